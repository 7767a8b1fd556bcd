// Package config holds hybridqa configuration. Config is loaded from
// an optional YAML file layered over defaults, with secrets taken from
// the environment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all hybridqa configuration.
type Config struct {
	// DocsPath is the markdown policy corpus directory.
	DocsPath string `yaml:"docs_path"`

	// DatabasePath is the SQLite sales snapshot.
	DatabasePath string `yaml:"database_path"`

	// TracePath is the append-only JSONL trace sink.
	TracePath string `yaml:"trace_path"`

	// TopK is how many chunks to retrieve per question.
	TopK int `yaml:"top_k"`

	// MaxRepairs bounds the execute/validate/repair loop.
	MaxRepairs int `yaml:"max_repairs"`

	// LLM configures the route predictor.
	LLM LLMConfig `yaml:"llm"`
}

// LLMConfig configures the route predictor.
type LLMConfig struct {
	Provider string `yaml:"provider"` // genai, openai, none
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		DocsPath:     "docs",
		DatabasePath: "data/northwind.sqlite",
		TracePath:    "trace.jsonl",
		TopK:         10,
		MaxRepairs:   2,
		LLM: LLMConfig{
			Provider: "none",
		},
	}
}

// Load reads the config file at path over the defaults. A missing file
// is not an error; an unreadable or malformed one is. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv pulls secrets and path overrides from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("HYBRIDQA_DOCS"); v != "" {
		c.DocsPath = v
	}
	if v := os.Getenv("HYBRIDQA_DB"); v != "" {
		c.DatabasePath = v
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "genai":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
}

// Validate checks invariants the pipeline relies on.
func (c *Config) Validate() error {
	if c.DocsPath == "" {
		return fmt.Errorf("docs_path is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.MaxRepairs < 0 {
		return fmt.Errorf("max_repairs must be non-negative, got %d", c.MaxRepairs)
	}
	switch c.LLM.Provider {
	case "genai", "openai", "none", "":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}
