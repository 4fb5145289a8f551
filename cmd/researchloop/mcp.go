package main

import (
	"os"
	"os/signal"

	"github.com/metalagman/researchloop/internal/mcpserver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	var flags loopFlags
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the research tool over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := commandConfig(cmd, &flags)
			if err != nil {
				return err
			}
			l, err := buildLoop(cfg, logObserver{})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			info := l.Generator.Describe()
			log.Info().Str("provider", info.Provider).Str("model", info.Model).Msg("serving research tool over stdio")
			return mcpserver.New(recordingRunner{loop: l}, version).ServeStdio(ctx)
		},
	}
	flags.register(cmd)
	return cmd
}
