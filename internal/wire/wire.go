//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/sevigo/review-action/internal/app"
	"github.com/sevigo/review-action/internal/config"
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	wire.Build(AppSet)
	return &app.App{}, nil
}
