package llm

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

type ModelProvider string
type PromptKey string

const (
	DefaultProvider   ModelProvider = "default"
	SystemPrompt      PromptKey     = "system"
	CodeReviewPrompt  PromptKey     = "code_review"
	ChunkReviewPrompt PromptKey     = "chunk_review"
)

type prompt struct {
	source string
	tmpl   *template.Template
}

// PromptManager holds the embedded prompt templates. Files are named
// key_provider.prompt; a provider without its own file uses key_default.prompt.
type PromptManager struct {
	prompts map[PromptKey]map[ModelProvider]prompt
}

func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[PromptKey]map[ModelProvider]prompt),
	}

	files, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		baseName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		lastUnderscore := strings.LastIndex(baseName, "_")
		if lastUnderscore == -1 || lastUnderscore == 0 || lastUnderscore == len(baseName)-1 {
			return nil, fmt.Errorf("invalid prompt filename format: %s (expected 'key_provider.prompt' with non-empty key and provider)", fileName)
		}

		key := PromptKey(baseName[:lastUnderscore])
		provider := ModelProvider(baseName[lastUnderscore+1:])

		content, err := promptFiles.ReadFile("prompts/" + fileName)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded prompt file %s: %w", fileName, err)
		}

		if err := pm.register(key, provider, string(content)); err != nil {
			return nil, fmt.Errorf("failed to register prompt from file %s: %w", fileName, err)
		}
	}

	return pm, nil
}

func (pm *PromptManager) register(key PromptKey, provider ModelProvider, content string) error {
	tmpl, err := template.New(string(key) + "_" + string(provider)).Option("missingkey=zero").Parse(content)
	if err != nil {
		return fmt.Errorf("could not parse template: %w", err)
	}

	if _, ok := pm.prompts[key]; !ok {
		pm.prompts[key] = make(map[ModelProvider]prompt)
	}

	pm.prompts[key][provider] = prompt{source: content, tmpl: tmpl}
	return nil
}

func (pm *PromptManager) get(key PromptKey, provider ModelProvider) (prompt, error) {
	taskPrompts, ok := pm.prompts[key]
	if !ok {
		return prompt{}, fmt.Errorf("no prompts found for key '%s'", key)
	}

	if p, ok := taskPrompts[provider]; ok {
		return p, nil
	}
	if p, ok := taskPrompts[DefaultProvider]; ok {
		return p, nil
	}

	return prompt{}, fmt.Errorf("no template found for key '%s' and provider '%s', and no default was available", key, provider)
}

// Source returns the unrendered template text, for callers that run their
// own template engine over it.
func (pm *PromptManager) Source(key PromptKey, provider ModelProvider) (string, error) {
	p, err := pm.get(key, provider)
	if err != nil {
		return "", err
	}
	return p.source, nil
}

func (pm *PromptManager) Render(key PromptKey, provider ModelProvider, data any) (string, error) {
	p, err := pm.get(key, provider)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	return buf.String(), nil
}
