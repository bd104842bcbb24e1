package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/billdoc/internal/assembler"
	"github.com/dgallion1/billdoc/internal/config"
	"github.com/dgallion1/billdoc/internal/session"
	"github.com/dgallion1/billdoc/internal/stats"
)

const sessionSweepInterval = 5 * time.Minute

// ListenAndServe wires the session store, assembler and HTTP server from cfg
// and serves until ctx is cancelled.
func ListenAndServe(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	sessions := session.NewStore(cfg.DataDir, cfg.SessionTTL, session.Options{
		SlotCount:     cfg.Layout.SlotCount,
		PreviewMax:    cfg.PreviewMax,
		ImagesPerPage: cfg.Layout.ImagesPerPage,
	}, log)
	go sessions.Run(ctx, sessionSweepInterval)

	asm := assembler.New(cfg.Layout, log)
	srv := NewServer(sessions, asm, stats.NewGeneration(time.Hour), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting billdoc", "port", cfg.Port, "data_dir", cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
