// Package config handles emissary configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./emissary.yaml, ~/.config/emissary/config.yaml, /etc/emissary/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"emissary.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "emissary", "config.yaml"))
	}

	paths = append(paths, "/etc/emissary/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all emissary configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	LLM       LLMConfig       `yaml:"llm"`
	Pushover  PushoverConfig  `yaml:"pushover"`
	Persona   PersonaConfig   `yaml:"persona"`
	Questions QuestionsConfig `yaml:"questions"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// LLMConfig defines the OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`   // Default: https://api.openai.com/v1
	ChatModel string `yaml:"chat_model"` // Model for the assistant turn
	EvalModel string `yaml:"eval_model"` // Model for the evaluator (defaults to chat_model)
}

// PushoverConfig defines the push notification credentials.
type PushoverConfig struct {
	Token    string `yaml:"token"`
	User     string `yaml:"user"`
	Endpoint string `yaml:"endpoint"` // Override for testing; default is the Pushover API
}

// PersonaConfig locates the persona context documents.
type PersonaConfig struct {
	Name string `yaml:"name"` // The person the agent represents
	Dir  string `yaml:"dir"`  // Directory containing summary.txt and profile.md
}

// QuestionsConfig defines the unanswered-question store.
type QuestionsConfig struct {
	DBPath string `yaml:"db_path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if cfg.LLM.EvalModel == "" {
		cfg.LLM.EvalModel = cfg.LLM.ChatModel
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		LLM: LLMConfig{
			BaseURL:   "https://api.openai.com/v1",
			ChatModel: "gpt-4o-mini",
		},
		Persona: PersonaConfig{
			Dir: "me",
		},
		Questions: QuestionsConfig{
			DBPath: "questions.db",
		},
	}
}
