package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/metalagman/researchloop/internal/report"
	"github.com/metalagman/researchloop/internal/research"
	"github.com/spf13/cobra"
)

func askCmd() *cobra.Command {
	var (
		format string
		flags  loopFlags
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Research a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question must not be empty")
			}
			cfg, err := commandConfig(cmd, &flags)
			if err != nil {
				return err
			}
			s, err := newSession(cfg, cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if _, err := s.ask(ctx, question); err != nil {
				if errors.Is(err, research.ErrInterrupted) {
					fmt.Fprintln(cmd.ErrOrStderr(), "interrupted")
					return nil
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatText, "output format (text, json, yaml)")
	flags.register(cmd)
	return cmd
}
