package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/percept/agent"
	"github.com/tailored-agentic-units/percept/archive"
	"github.com/tailored-agentic-units/percept/core/config"
	"github.com/tailored-agentic-units/percept/locate"
	"github.com/tailored-agentic-units/percept/observability"
	"github.com/tailored-agentic-units/percept/registry"
	"github.com/tailored-agentic-units/percept/server"
	"github.com/tailored-agentic-units/percept/tools"
)

func serveCmd() *cobra.Command {
	var (
		configFile string
		addrFlag   string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if addrFlag != "" {
				cfg.Server.Addr = addrFlag
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			observer := observability.NewSlogObserver(logger)

			client := agent.NewClient(cfg.Completion, cfg.Agent.Model)
			localizer := locate.New(cfg.Locate.URL, cfg.Completion.APIKey, cfg.Locate.Task, cfg.Locate.Timeout())

			toolset := tools.NewRegistry()
			if err := tools.RegisterVisionSet(toolset, client, localizer, cfg.Session.FPS); err != nil {
				return fmt.Errorf("register vision tools: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			factory := func() agent.Runner {
				return agent.NewLoop(client, toolset, cfg.Agent)
			}
			sessions := registry.New(ctx, factory, cfg.Agent.Name, cfg.Session, observer)
			if cfg.Session.ArchiveDir != "" {
				sessions.SetArchive(archive.NewFileStore(cfg.Session.ArchiveDir))
			}
			sessions.StartSweeper(ctx)

			srv := server.New(sessions, observer)
			httpSrv := srv.HTTPServer(cfg.Server.Addr)

			errc := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", cfg.Server.Addr, "agent", cfg.Agent.Name, "model", cfg.Agent.Model)
				errc <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to config JSON file")
	cmd.Flags().StringVarP(&addrFlag, "addr", "a", "", "Listen address (overrides config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}
