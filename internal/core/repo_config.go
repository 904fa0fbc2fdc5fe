package core

// RepoConfig represents the structure of the repository level configuration file.
type RepoConfig struct {
	// Glob patterns appended to the exclude_files input.
	// Example: ["vendor/**", "*.lock"]
	ExcludeFiles []string `yaml:"exclude_files"`

	// Custom instructions for the LLM prompt.
	CustomInstructions []string `yaml:"custom_instructions"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		ExcludeFiles:       []string{},
		CustomInstructions: []string{},
	}
}
