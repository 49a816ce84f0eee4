// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alienxp03/arena/internal/core"
	"github.com/alienxp03/arena/internal/provider"
	"github.com/alienxp03/arena/internal/registry"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig              `yaml:"server,omitempty"`
	Defaults  DefaultsConfig            `yaml:"defaults"`
	Battle    BattleConfig              `yaml:"battle,omitempty"`
	Debate    DebateConfig              `yaml:"debate,omitempty"`
	Turns     TurnsConfig               `yaml:"turns,omitempty"`
	Storage   StorageConfig             `yaml:"storage,omitempty"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Models    []ModelConfig             `yaml:"models,omitempty"`
}

// ServerConfig holds server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DefaultsConfig holds default model settings.
type DefaultsConfig struct {
	JudgeModel    string `yaml:"judge_model"`
	AnalyzerModel string `yaml:"analyzer_model"`
}

// BattleConfig holds competition settings.
type BattleConfig struct {
	CandidateCount int           `yaml:"candidate_count"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	MaxConcurrent  int           `yaml:"max_concurrent,omitempty"`
}

// DebateConfig holds debate settings.
type DebateConfig struct {
	MaxRounds            int      `yaml:"max_rounds"`
	ConsensusThreshold   float64  `yaml:"consensus_threshold"`
	EnableConsensusCheck bool     `yaml:"enable_consensus_check"`
	TurnOrder            []string `yaml:"turn_order,omitempty"`
}

// TurnsConfig holds free-discussion turn settings.
type TurnsConfig struct {
	MaxRespondersPerTurn int     `yaml:"max_responders_per_turn"`
	EnableFollowUp       bool    `yaml:"enable_follow_up"`
	FollowUpThreshold    float64 `yaml:"follow_up_threshold"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ProviderConfig holds provider-specific settings.
type ProviderConfig struct {
	Command   string        `yaml:"command"`
	Args      []string      `yaml:"args,omitempty"`
	ModelFlag string        `yaml:"model_flag,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	Enabled   bool          `yaml:"enabled"`
}

// ModelConfig holds one model registry entry.
type ModelConfig struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Provider     string   `yaml:"provider"`
	Tier         string   `yaml:"tier,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty"`
	Active       bool     `yaml:"active"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8183,
		},
		Defaults: DefaultsConfig{
			JudgeModel:    "anthropic/claude-sonnet-4",
			AnalyzerModel: "anthropic/claude-3-5-haiku",
		},
		Battle: BattleConfig{
			CandidateCount: 3,
			Timeout:        90 * time.Second,
			MaxConcurrent:  5,
		},
		Debate: DebateConfig{
			MaxRounds:            5,
			ConsensusThreshold:   0.8,
			EnableConsensusCheck: true,
			TurnOrder:            []string{"strategy", "tech", "product", "execution"},
		},
		Turns: TurnsConfig{
			MaxRespondersPerTurn: 3,
			EnableFollowUp:       true,
			FollowUpThreshold:    15,
		},
		Providers: map[string]ProviderConfig{
			"claude": {
				Command:   "claude",
				Args:      []string{"--print"},
				ModelFlag: "--model",
				Timeout:   5 * time.Minute,
				Enabled:   true,
			},
			"codex": {
				Command:   "codex",
				ModelFlag: "--model",
				Timeout:   5 * time.Minute,
				Enabled:   true,
			},
			"gemini": {
				Command:   "gemini",
				ModelFlag: "--model",
				Timeout:   5 * time.Minute,
				Enabled:   true,
			},
			"mock": {
				Command: "mock",
				Timeout: 1 * time.Minute,
				Enabled: false,
			},
		},
		Models: []ModelConfig{
			{ID: "anthropic/claude-sonnet-4", Name: "Claude Sonnet 4", Provider: "claude", Tier: "frontier", Capabilities: []string{"strategy", "technical-architecture", "synthesis", "debate"}, Active: true},
			{ID: "anthropic/claude-3-5-haiku", Name: "Claude 3.5 Haiku", Provider: "claude", Tier: "efficient", Capabilities: []string{"research", "data-analysis"}, Active: true},
			{ID: "openai/gpt-4o", Name: "GPT-4o", Provider: "codex", Tier: "frontier", Capabilities: []string{"code-generation", "creative-writing", "planning"}, Active: true},
			{ID: "google/gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: "gemini", Tier: "strong", Capabilities: []string{"market-analysis", "math-reasoning"}, Active: true},
		},
	}
}

// Load loads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, proceed with defaults
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Merge with defaults for any missing providers
	defaultCfg := Default()
	for name, defaultProvider := range defaultCfg.Providers {
		if _, exists := cfg.Providers[name]; !exists {
			cfg.Providers[name] = defaultProvider
		}
	}

	// Apply .env overrides if file exists
	if env, err := LoadEnv(".env"); err == nil {
		ApplyEnvOverrides(cfg, env)
	}

	return cfg, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo saves the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// CreateRegistry creates a provider registry from this configuration.
func (c *Config) CreateRegistry() *provider.Registry {
	reg := provider.NewRegistry()

	for name, provCfg := range c.Providers {
		if !provCfg.Enabled {
			continue
		}

		if name == "mock" {
			reg.Register(provider.NewMockProvider(name, 0))
			continue
		}

		reg.Register(provider.NewCLIProvider(provider.CLIConfig{
			Name:      name,
			Command:   provCfg.Command,
			Args:      provCfg.Args,
			ModelFlag: provCfg.ModelFlag,
			Timeout:   provCfg.Timeout,
		}))
	}

	return reg
}

// CreateModelRegistry builds the immutable model registry from configured
// models.
func (c *Config) CreateModelRegistry() *registry.ModelRegistry {
	entries := make([]core.ModelEntry, 0, len(c.Models))
	for _, m := range c.Models {
		caps := make([]core.Capability, len(m.Capabilities))
		for i, name := range m.Capabilities {
			caps[i] = core.Capability(name)
		}
		entries = append(entries, core.ModelEntry{
			ID:           m.ID,
			Name:         m.Name,
			Provider:     m.Provider,
			Tier:         core.ModelTier(m.Tier),
			Capabilities: caps,
			Active:       m.Active,
		})
	}
	return registry.New(entries...)
}

// ProviderLookup resolves a model ID to its provider, using the configured
// model entries to map models onto providers.
func (c *Config) ProviderLookup(providers *provider.Registry, models *registry.ModelRegistry) provider.Lookup {
	return func(modelID string) (provider.Provider, bool) {
		entry, ok := models.Get(modelID)
		if !ok {
			return nil, false
		}
		p, err := providers.Get(entry.Provider)
		if err != nil {
			return nil, false
		}
		return p, true
	}
}

// DebateRoles converts the configured turn order into debate roles.
func (c *Config) DebateRoles() []core.DebateRole {
	roles := make([]core.DebateRole, 0, len(c.Debate.TurnOrder))
	for _, r := range c.Debate.TurnOrder {
		roles = append(roles, core.DebateRole(strings.ToLower(r)))
	}
	return roles
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "arena.yaml"
	}
	return filepath.Join(home, ".arena", "config.yaml")
}
