package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/metalagman/researchloop/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var (
	cfgFile string
	debug   bool
	logJSON bool
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "researchloop",
		Short:        "researchloop refines answers with a research/evaluation feedback loop",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logging.Init(logging.Options{Debug: debug, JSON: logJSON})
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			log.Debug().Str("config", viper.GetString("config")).Msg("starting")
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath, "config file path")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.AddCommand(askCmd())
	cmd.AddCommand(chatCmd())
	cmd.AddCommand(runsCmd())
	cmd.AddCommand(mcpCmd())
	cmd.AddCommand(uiCmd())
	cmd.AddCommand(initCmd())
	return cmd
}

func configPath() string {
	path := viper.GetString("config")
	if path == "" {
		path = cfgFile
	}
	if path == "" {
		path = defaultConfigPath
	}
	return path
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
