package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/metalagman/researchloop/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default researchloop config",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			repoRoot, err := os.Getwd()
			if err != nil {
				return err
			}
			path := configPath()
			if !filepath.IsAbs(path) {
				path = filepath.Join(repoRoot, path)
			}
			written, err := writeDefaultConfig(path, force)
			if err != nil {
				return err
			}
			if !written {
				log.Info().Str("path", path).Msg("config already exists, skipping")
				return nil
			}
			log.Info().Str("path", path).Msg("installed default config")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

// writeDefaultConfig writes the default config to path. It reports false when
// the file exists and force is not set.
func writeDefaultConfig(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	d := config.Default()
	defaultConfig := map[string]any{
		"llm": map[string]any{
			"provider":    d.LLM.Provider,
			"model":       d.LLM.Model,
			"api_key_env": d.LLM.APIKeyEnv,
			"timeout":     d.LLM.Timeout.String(),
		},
		"loop": map[string]any{
			"threshold":            d.Loop.Threshold,
			"max_iterations":       d.Loop.MaxIterations,
			"producer_temperature": d.Loop.ProducerTemperature,
			"judge_temperature":    d.Loop.JudgeTemperature,
		},
		"store": map[string]any{
			"enabled": true,
			"path":    d.Store.Path,
		},
		"retention": map[string]any{
			"keep_last": d.Retention.KeepLast,
			"keep_days": d.Retention.KeepDays,
		},
	}
	data, err := yaml.Marshal(defaultConfig)
	if err != nil {
		return false, fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
