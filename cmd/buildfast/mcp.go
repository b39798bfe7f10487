package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/buildfast/internal/mcpserver"
	"github.com/nhle/buildfast/internal/steps"
	"github.com/nhle/buildfast/internal/store"
	"github.com/nhle/buildfast/internal/telemetry"
)

var mcpUser string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long: `Serve the MCP tools over stdio for a local agent. Tools act on behalf of
the user given by --user; without it only echo works.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdout carries the protocol.
		log := telemetry.NewLogger(os.Stderr, cfg.Log.Level, false)

		st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		userID, err := lookupUserID(cmd, st, mcpUser)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("serving mcp on stdio", "user_id", userID)
		return mcpserver.New(st, steps.NewService(st), userID, version, log).Run(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpUser, "user", "", "email of the user the tools act for")
	rootCmd.AddCommand(mcpCmd)
}
