package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"document-qa/internal/server"
	"document-qa/internal/session"
	"document-qa/internal/telemetry"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const sessionSweepInterval = time.Minute

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		RunE:  a.runServe,
	}
	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides config)")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	cfg := a.cfg
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Server.Port = port
	}

	flush, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	})
	if err != nil {
		log.Warn().Err(err).Msg("telemetry init failed, continuing without it")
	} else {
		defer flush()
	}

	sessions := session.NewManager(
		session.NewPipeline(cfg),
		session.WithIdleTTL(time.Duration(cfg.Server.SessionIdleMins)*time.Minute),
	)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx, sessionSweepInterval)

	router := server.NewRouter(server.RouterConfig{
		Handler: server.NewHandler(server.HandlerConfig{
			Sessions:     sessions,
			KeyPrefix:    cfg.KeyPrefix(),
			DefaultQuery: cfg.RAG.DefaultQuery,
		}),
		MaxBodyBytes: cfg.Server.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	log.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
