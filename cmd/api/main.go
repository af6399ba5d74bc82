package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/config"
	"github.com/cardline/backend/internal/handler"
	"github.com/cardline/backend/internal/model/customer"
	"github.com/cardline/backend/internal/service/accounts"
	"github.com/cardline/backend/internal/service/resolution"
	"github.com/cardline/backend/internal/service/speech"
	logx "github.com/cardline/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logx.Init(logx.Config{Debug: cfg.Log.Debug, PrettyFormat: cfg.Log.Pretty})

	customerStore := customer.NewFileStore(cfg.Store.CustomerFile)
	accountsSvc := accounts.NewService(customerStore)

	speechSvc := speech.NewService(cfg.Speech.ServiceConfig())

	// The pipeline always gets a speech client so literal-transcript intake
	// works without credentials, but the raw passthrough routes only mount
	// when the provider is actually usable.
	var voiceSvc *speech.Service
	if cfg.Speech.Enabled() {
		voiceSvc = speechSvc
	} else {
		log.Warn().Msg("speech provider credentials missing, transcription calls will fail")
	}

	sessionStore := resolution.NewSessionStore(cfg.Sessions.TTL, cfg.Sessions.SweepInterval)
	defer sessionStore.Close()

	resolutionSvc := resolution.NewService(sessionStore, customerStore, speechSvc, accountsSvc)

	router := handler.NewRouter(cfg, resolutionSvc, accountsSvc, voiceSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("cardline backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
