package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/resumer/internal/api"
	"github.com/dgallion1/resumer/internal/pipeline"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}
		log := newLogger(cfg)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		gen := newGenerator(cfg)
		deps := buildDeps(cfg, gen, log)
		orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
			WorkerCount:  cfg.WorkerCount,
			MaxQueueSize: cfg.MaxQueueSize,
			JobTTL:       cfg.JobTTL,
		}, deps.Processor, log)
		orch.Start(ctx)
		deps.Orchestrator = orch

		srv := api.NewServer(deps, log, cfg)

		httpServer := &http.Server{
			Addr:        ":" + cfg.Port,
			Handler:     srv,
			ReadTimeout: 30 * time.Second,
			// Sync runs hold the connection for the whole pipeline.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			shutdown(shutdownCtx, httpServer, orch, gen, log)
		}()

		log.Info("starting resumer",
			"port", cfg.Port,
			"provider", cfg.LLMProvider,
			"model", cfg.Model(),
			"output_directory", cfg.OutputDirectory,
			"auth", cfg.APIKey != "",
		)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			return err
		}
		<-stopped
		return nil
	},
}

// shutdown stops accepting requests before the job queue closes, so a late
// async submission is answered instead of sent on a closed queue.
func shutdown(ctx context.Context, srv *http.Server, orch *pipeline.Orchestrator, gen generator, log *slog.Logger) {
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	orch.Stop()
	gen.Close()
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}
