package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/review-action/internal/core"
)

var ErrConfigParsing = errors.New("config parsing failed")

// ParseRepoConfig parses the repository level config file. Empty content
// yields the defaults.
func ParseRepoConfig(data []byte) (*core.RepoConfig, error) {
	config := core.DefaultRepoConfig()
	if len(data) == 0 {
		return config, nil
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	return config, nil
}
