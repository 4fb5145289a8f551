package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/researchloop/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = ".researchloop/config.yaml"
	envPrefix         = "RESEARCHLOOP"
)

// resolveConfigPath makes path absolute against repoRoot and falls back to the
// json variant of the default file when the yaml one is missing.
func resolveConfigPath(repoRoot, path string) string {
	if path == "" {
		path = defaultConfigPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(repoRoot, path)
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if strings.HasSuffix(path, filepath.FromSlash(defaultConfigPath)) {
		alt := strings.TrimSuffix(path, ".yaml") + ".json"
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return path
}

func loadConfig(repoRoot, path string) (config.Config, error) {
	v := viper.New()
	setDefaults(v)

	path = resolveConfigPath(repoRoot, path)
	source := "defaults"
	switch _, err := os.Stat(path); {
	case err == nil:
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			v.SetConfigType(ext)
		}
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("read config: %w", err)
		}
		source = path
		log.Debug().Str("path", path).Msg("config loaded")
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("path", path).Msg("config file not found, using defaults")
	default:
		return config.Config{}, fmt.Errorf("stat config: %w", err)
	}

	if err := config.ValidateSettings(source, v.AllSettings()); err != nil {
		return config.Config{}, err
	}
	// Environment values are strings; they are checked after decoding.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := config.Default()
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// setDefaults registers every key so environment overrides resolve without a
// config file.
func setDefaults(v *viper.Viper) {
	d := config.Default()
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_env", "")
	v.SetDefault("llm.timeout", d.LLM.Timeout.String())
	v.SetDefault("loop.threshold", d.Loop.Threshold)
	v.SetDefault("loop.max_iterations", d.Loop.MaxIterations)
	v.SetDefault("loop.producer_temperature", d.Loop.ProducerTemperature)
	v.SetDefault("loop.judge_temperature", d.Loop.JudgeTemperature)
	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("retention.keep_last", d.Retention.KeepLast)
	v.SetDefault("retention.keep_days", d.Retention.KeepDays)
}

// loopFlags are per-command overrides applied on top of the loaded config.
type loopFlags struct {
	provider      string
	model         string
	threshold     float64
	maxIterations int
	store         bool
}

func (f *loopFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "llm provider (openai, gemini, exec)")
	cmd.Flags().StringVar(&f.model, "model", "", "model name")
	cmd.Flags().Float64Var(&f.threshold, "threshold", config.DefaultThreshold, "score at which an answer is sufficient")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", config.DefaultMaxIterations, "maximum research iterations")
	cmd.Flags().BoolVar(&f.store, "save", false, "record the run in the journal")
}

func (f *loopFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.LLM.Provider = f.provider
		if !flags.Changed("model") && cfg.LLM.Provider != config.DefaultProvider {
			cfg.LLM.Model = ""
			cfg.LLM.APIKeyEnv = ""
		}
	}
	if flags.Changed("model") {
		cfg.LLM.Model = f.model
	}
	if flags.Changed("threshold") {
		cfg.Loop.Threshold = f.threshold
	}
	if flags.Changed("max-iterations") {
		cfg.Loop.MaxIterations = f.maxIterations
	}
	if flags.Changed("save") {
		cfg.Store.Enabled = f.store
	}
	cfg.Normalize()
}

// commandConfig loads the config for cmd and applies its loop flags.
func commandConfig(cmd *cobra.Command, flags *loopFlags) (config.Config, error) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := loadConfig(repoRoot, configPath())
	if err != nil {
		return config.Config{}, err
	}
	if flags != nil {
		flags.apply(cmd, &cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
