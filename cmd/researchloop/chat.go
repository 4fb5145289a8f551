package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/metalagman/researchloop/internal/report"
	"github.com/metalagman/researchloop/internal/research"
	"github.com/metalagman/researchloop/internal/tui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// questionReader supplies questions to the chat loop.
type questionReader func(ctx context.Context, in io.Reader, out io.Writer) (string, error)

func chatCmd() *cobra.Command {
	var flags loopFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Research questions interactively until you quit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := commandConfig(cmd, &flags)
			if err != nil {
				return err
			}
			s, err := newSession(cfg, cmd.OutOrStdout(), report.FormatText)
			if err != nil {
				return err
			}
			return chatLoop(cmd.Context(), s, tui.PromptQuestion, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	return cmd
}

func chatLoop(ctx context.Context, s *session, read questionReader, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Research loop ready (threshold %s/10, up to %d iterations).\n",
		report.FormatScore(s.loop.Config.Loop.Threshold), s.loop.Controller.MaxIterations())
	for {
		question, err := read(ctx, in, out)
		if errors.Is(err, tui.ErrQuit) || (err == nil && tui.IsQuitWord(question)) {
			fmt.Fprintln(out, "Goodbye.")
			return nil
		}
		if err != nil {
			return err
		}

		started := time.Now()
		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		_, err = s.ask(runCtx, question)
		stop()
		switch {
		case errors.Is(err, research.ErrInterrupted):
			fmt.Fprintln(out, "interrupted")
			if ctx.Err() != nil {
				return nil
			}
		case err != nil:
			return err
		}
		log.Debug().Dur("duration", time.Since(started)).Msg("question finished")
		fmt.Fprintf(out, "\nTotal time: %s\n\n", report.Elapsed(time.Since(started)))
	}
}
