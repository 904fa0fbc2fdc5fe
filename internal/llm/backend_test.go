package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lcllms "github.com/tmc/langchaingo/llms"

	"github.com/sevigo/review-action/internal/core"
)

// fakeChatModel is a langchaingo model that records its prompts.
type fakeChatModel struct {
	mu          sync.Mutex
	prompts     []string
	temperature float64
	reply       string
	err         error
}

func (f *fakeChatModel) GenerateContent(_ context.Context, messages []lcllms.MessageContent, options ...lcllms.CallOption) (*lcllms.ContentResponse, error) {
	var opts lcllms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.temperature = opts.Temperature
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(lcllms.TextContent); ok {
				f.prompts = append(f.prompts, text.Text)
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &lcllms.ContentResponse{Choices: []*lcllms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeChatModel) Call(ctx context.Context, prompt string, options ...lcllms.CallOption) (string, error) {
	return lcllms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestChainBackend_Generate(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)
	model := &fakeChatModel{reply: "Consider checked arithmetic."}

	backend, err := NewChainBackend("openai", model, pm, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "openai", backend.Provider())

	got, err := backend.Generate(context.Background(), Request{
		Prompt:   CodeReviewPrompt,
		Language: "rust",
		Diff:     "+let total = a + b;",
	})
	require.NoError(t, err)
	assert.Equal(t, "Consider checked arithmetic.", got)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "expert in rust")
	assert.Contains(t, model.prompts[0], "+let total = a + b;")
	assert.InDelta(t, 0.2, model.temperature, 1e-9)
}

func TestChainBackend_EmptyReply(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	backend, err := NewChainBackend("openai", &fakeChatModel{reply: "  "}, pm, 0)
	require.NoError(t, err)

	_, err = backend.Generate(context.Background(), Request{Prompt: ChunkReviewPrompt, Language: "go", Diff: "@@"})
	assert.ErrorIs(t, err, core.ErrEmptyReview)
}

func TestChainBackend_ModelError(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)
	cause := errors.New("429 too many requests")

	backend, err := NewChainBackend("openai", &fakeChatModel{err: cause}, pm, 0)
	require.NoError(t, err)

	_, err = backend.Generate(context.Background(), Request{Prompt: CodeReviewPrompt, Language: "go", Diff: "@@"})
	assert.ErrorIs(t, err, cause)
}

func TestChainBackend_UnknownPrompt(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	backend, err := NewChainBackend("openai", &fakeChatModel{reply: "x"}, pm, 0)
	require.NoError(t, err)

	_, err = backend.Generate(context.Background(), Request{Prompt: SystemPrompt})
	assert.Error(t, err)
}

func TestModelBackend_Generate(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	var sent string
	backend := newModelBackend("gemini", pm, func(_ context.Context, prompt string) (string, error) {
		sent = prompt
		return "Looks fine.", nil
	})

	got, err := backend.Generate(context.Background(), Request{
		Prompt:       CodeReviewPrompt,
		Language:     "python",
		Diff:         "+import os",
		Instructions: []string{"Follow PEP 8"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Looks fine.", got)
	assert.Contains(t, sent, "expert in python")
	assert.Contains(t, sent, "\n\nYour task is to review a pull request.")
	assert.Contains(t, sent, "- Follow PEP 8")
	assert.Contains(t, sent, "+import os")
}

func TestModelBackend_Errors(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	empty := newModelBackend("ollama", pm, func(context.Context, string) (string, error) { return "", nil })
	_, err = empty.Generate(context.Background(), Request{Prompt: CodeReviewPrompt})
	assert.ErrorIs(t, err, core.ErrEmptyReview)

	cause := errors.New("connection refused")
	failing := newModelBackend("ollama", pm, func(context.Context, string) (string, error) { return "", cause })
	_, err = failing.Generate(context.Background(), Request{Prompt: CodeReviewPrompt})
	assert.ErrorIs(t, err, cause)
}
