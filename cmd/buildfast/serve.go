package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/buildfast/internal/ai"
	"github.com/nhle/buildfast/internal/api"
	"github.com/nhle/buildfast/internal/credential"
	"github.com/nhle/buildfast/internal/mcpserver"
	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/session"
	"github.com/nhle/buildfast/internal/steps"
	"github.com/nhle/buildfast/internal/store"
	"github.com/nhle/buildfast/internal/telemetry"
)

var serveSecure bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := telemetry.NewLogger(os.Stderr, cfg.Log.Level, true)
		slog.SetDefault(log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, log)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveSecure, "secure-cookies", false, "mark session cookies Secure (behind TLS)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *model.AppConfig, log *slog.Logger) error {
	sessions, err := session.NewProvider(cfg.Server.SessionSecret, serveSecure)
	if err != nil {
		return fmt.Errorf("server.session_secret: %w", err)
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Tracing.Enabled {
		tp, err := telemetry.NewTracerProvider(gctx, cfg.Tracing.ServiceName, os.Stderr)
		if err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return tp.Shutdown(shutdownCtx)
		})
	}

	svc := steps.NewService(st)
	engine := ai.NewEngine(chatModel(cfg.AI, log), st, svc, cfg.AI, log)

	srv := api.NewServer(api.Options{
		Config:   cfg.Server,
		Store:    st,
		Steps:    svc,
		Engine:   engine,
		Sessions: sessions,
		MCP:      mcpserver.HTTPHandler(st, svc, sessions, version, log),
		Logger:   log,
	})

	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// chatModel returns nil when no API key is configured; chat endpoints then
// answer with an error while the rest of the API keeps working.
func chatModel(cfg model.AIConfig, log *slog.Logger) ai.ChatModel {
	key, err := credential.APIKey()
	if err != nil {
		log.Warn("no model API key; chat is disabled", "error", err)
		return nil
	}
	m, err := ai.NewOpenAIModel(key, cfg.BaseURL, nil)
	if err != nil {
		log.Warn("creating model client", "error", err)
		return nil
	}
	return m
}
