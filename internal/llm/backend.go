package llm

import (
	"context"
	"fmt"
	"strings"

	goframellms "github.com/sevigo/goframe/llms"
	"github.com/tmc/langchaingo/chains"
	lcllms "github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"github.com/sevigo/review-action/internal/core"
)

// Request is one review to generate.
type Request struct {
	Prompt       PromptKey
	Language     string
	Diff         string
	Instructions []string
}

func (r Request) values() map[string]any {
	return map[string]any{
		"language":            r.Language,
		"diff":                r.Diff,
		"custom_instructions": formatInstructions(r.Instructions),
	}
}

// Backend produces review text for a request.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
	// Provider names the backend for logs and metrics.
	Provider() string
}

// chainBackend drives a langchaingo chat model through one LLM chain per prompt.
type chainBackend struct {
	provider    string
	chains      map[PromptKey]*chains.LLMChain
	temperature float64
}

// NewChainBackend builds a Backend on a langchaingo model. The system prompt
// and each review prompt become a chat prompt template rendered by the chain.
func NewChainBackend(provider string, model lcllms.Model, pm *PromptManager, temperature float64) (Backend, error) {
	system, err := pm.Source(SystemPrompt, ModelProvider(provider))
	if err != nil {
		return nil, err
	}

	vars := []string{"language", "diff", "custom_instructions"}
	b := &chainBackend{
		provider:    provider,
		chains:      make(map[PromptKey]*chains.LLMChain),
		temperature: temperature,
	}
	for _, key := range []PromptKey{CodeReviewPrompt, ChunkReviewPrompt} {
		human, err := pm.Source(key, ModelProvider(provider))
		if err != nil {
			return nil, err
		}
		chat := prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
			prompts.NewSystemMessagePromptTemplate(system, []string{"language"}),
			prompts.NewHumanMessagePromptTemplate(human, vars),
		})
		b.chains[key] = chains.NewLLMChain(model, chat)
	}
	return b, nil
}

func (b *chainBackend) Provider() string { return b.provider }

func (b *chainBackend) Generate(ctx context.Context, req Request) (string, error) {
	chain, ok := b.chains[req.Prompt]
	if !ok {
		return "", fmt.Errorf("no chain configured for prompt %q", req.Prompt)
	}

	out, err := chains.Call(ctx, chain, req.values(), chains.WithTemperature(b.temperature))
	if err != nil {
		return "", fmt.Errorf("%s chain call failed: %w", b.provider, err)
	}
	text, ok := out[chain.OutputKey].(string)
	if !ok {
		return "", fmt.Errorf("%s chain returned %T instead of text", b.provider, out[chain.OutputKey])
	}
	if strings.TrimSpace(text) == "" {
		return "", core.ErrEmptyReview
	}
	return text, nil
}

// modelBackend renders the prompts itself and sends them to a goframe model
// as a single prompt. Sampling settings are left to the model's defaults.
type modelBackend struct {
	provider string
	pm       *PromptManager
	call     func(ctx context.Context, prompt string) (string, error)
}

// NewModelBackend builds a Backend on a goframe model such as Gemini or Ollama.
func NewModelBackend(provider string, model goframellms.Model, pm *PromptManager) Backend {
	return newModelBackend(provider, pm, func(ctx context.Context, prompt string) (string, error) {
		return model.Call(ctx, prompt)
	})
}

func newModelBackend(provider string, pm *PromptManager, call func(ctx context.Context, prompt string) (string, error)) *modelBackend {
	return &modelBackend{provider: provider, pm: pm, call: call}
}

func (b *modelBackend) Provider() string { return b.provider }

func (b *modelBackend) Generate(ctx context.Context, req Request) (string, error) {
	data := req.values()
	system, err := b.pm.Render(SystemPrompt, ModelProvider(b.provider), data)
	if err != nil {
		return "", err
	}
	user, err := b.pm.Render(req.Prompt, ModelProvider(b.provider), data)
	if err != nil {
		return "", err
	}

	text, err := b.call(ctx, strings.TrimSpace(system)+"\n\n"+user)
	if err != nil {
		return "", fmt.Errorf("%s model call failed: %w", b.provider, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", core.ErrEmptyReview
	}
	return text, nil
}

func formatInstructions(instructions []string) string {
	var lines []string
	for _, in := range instructions {
		if in = strings.TrimSpace(in); in != "" {
			lines = append(lines, "- "+in)
		}
	}
	return strings.Join(lines, "\n")
}
