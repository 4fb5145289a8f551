// Package config provides configuration loading and management for researchloop.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted in llm.provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderExec   = "exec"
)

// Defaults.
const (
	DefaultProvider            = ProviderOpenAI
	DefaultModel               = "gpt-4o-mini"
	DefaultGeminiModel         = "gemini-2.5-flash"
	DefaultAPIKeyEnv           = "OPENAI_API_KEY"
	DefaultGeminiAPIKeyEnv     = "GEMINI_API_KEY"
	DefaultThreshold           = 7.0
	DefaultMaxIterations       = 5
	DefaultProducerTemperature = 0.7
	DefaultJudgeTemperature    = 0.3
	DefaultTimeout             = 60 * time.Second
	DefaultStorePath           = ".researchloop/runs.db"
)

// Config is the root configuration.
type Config struct {
	LLM       LLMConfig       `json:"llm"       mapstructure:"llm"       yaml:"llm"`
	Loop      LoopConfig      `json:"loop"      mapstructure:"loop"      yaml:"loop"`
	Store     StoreConfig     `json:"store"     mapstructure:"store"     yaml:"store"`
	Retention RetentionPolicy `json:"retention" mapstructure:"retention" yaml:"retention"`
}

// LLMConfig describes the generation backend shared by the producer and the judge.
type LLMConfig struct {
	Provider  string        `json:"provider"              mapstructure:"provider"    yaml:"provider"`
	Model     string        `json:"model"                 mapstructure:"model"       yaml:"model"`
	BaseURL   string        `json:"base_url,omitempty"    mapstructure:"base_url"    yaml:"base_url,omitempty"`
	APIKey    string        `json:"api_key,omitempty"     mapstructure:"api_key"     yaml:"api_key,omitempty"`
	APIKeyEnv string        `json:"api_key_env,omitempty" mapstructure:"api_key_env" yaml:"api_key_env,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"     mapstructure:"timeout"     yaml:"timeout,omitempty"`
	Cmd       []string      `json:"cmd,omitempty"         mapstructure:"cmd"         yaml:"cmd,omitempty"`
	UseTTY    *bool         `json:"use_tty,omitempty"     mapstructure:"use_tty"     yaml:"use_tty,omitempty"`
}

// LoopConfig defines the research/evaluation loop limits.
type LoopConfig struct {
	Threshold           float64 `json:"threshold"            mapstructure:"threshold"            yaml:"threshold"`
	MaxIterations       int     `json:"max_iterations"       mapstructure:"max_iterations"       yaml:"max_iterations"`
	ProducerTemperature float64 `json:"producer_temperature" mapstructure:"producer_temperature" yaml:"producer_temperature"`
	JudgeTemperature    float64 `json:"judge_temperature"    mapstructure:"judge_temperature"    yaml:"judge_temperature"`
}

// StoreConfig controls the optional run journal.
type StoreConfig struct {
	Enabled bool   `json:"enabled"        mapstructure:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" mapstructure:"path"    yaml:"path,omitempty"`
}

// RetentionPolicy defines how many old runs to keep.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last" yaml:"keep_last,omitempty"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days" yaml:"keep_days,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:  DefaultProvider,
			Model:     DefaultModel,
			APIKeyEnv: DefaultAPIKeyEnv,
			Timeout:   DefaultTimeout,
		},
		Loop: LoopConfig{
			Threshold:           DefaultThreshold,
			MaxIterations:       DefaultMaxIterations,
			ProducerTemperature: DefaultProducerTemperature,
			JudgeTemperature:    DefaultJudgeTemperature,
		},
		Store: StoreConfig{
			Path: DefaultStorePath,
		},
		Retention: RetentionPolicy{
			KeepLast: 50,
			KeepDays: 30,
		},
	}
}

// Normalize canonicalizes the provider and fills empty strings and durations
// with defaults. Loop numbers are kept as given; start from Default().
func (c *Config) Normalize() {
	d := Default()
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = d.LLM.Provider
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.Model = DefaultGeminiModel
		case ProviderOpenAI:
			c.LLM.Model = d.LLM.Model
		}
	}
	if strings.TrimSpace(c.LLM.APIKeyEnv) == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.APIKeyEnv = DefaultGeminiAPIKeyEnv
		case ProviderOpenAI:
			c.LLM.APIKeyEnv = DefaultAPIKeyEnv
		}
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = d.LLM.Timeout
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = d.Store.Path
	}
}

// Validate checks semantic constraints that the schema cannot express.
func (c Config) Validate() error {
	if c.Loop.MaxIterations <= 0 {
		return fmt.Errorf("loop.max_iterations must be > 0")
	}
	if c.Loop.Threshold < 0 {
		return fmt.Errorf("loop.threshold must be >= 0")
	}
	if t := c.Loop.ProducerTemperature; t < 0 || t > 2 {
		return fmt.Errorf("loop.producer_temperature must be within [0, 2]")
	}
	if t := c.Loop.JudgeTemperature; t < 0 || t > 2 {
		return fmt.Errorf("loop.judge_temperature must be within [0, 2]")
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
		if strings.TrimSpace(c.LLM.Model) == "" {
			return fmt.Errorf("llm.model is required for provider %q", c.LLM.Provider)
		}
	case ProviderExec:
		if len(c.LLM.Cmd) == 0 {
			return fmt.Errorf("llm.cmd is required for provider %q", ProviderExec)
		}
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	return nil
}
