package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/catalog"
	"github.com/DoyleJ11/deckbp/internal/config"
	"github.com/DoyleJ11/deckbp/internal/httpapi"
	"github.com/DoyleJ11/deckbp/internal/hub"
	"github.com/DoyleJ11/deckbp/internal/icon"
	"github.com/DoyleJ11/deckbp/internal/logging"
	"github.com/DoyleJ11/deckbp/internal/random"
	"github.com/DoyleJ11/deckbp/internal/roster"
	"github.com/DoyleJ11/deckbp/internal/session"
	"github.com/DoyleJ11/deckbp/internal/store/pgstore"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, apperrors.Config) {
			logger.Error("configuration error", zap.Error(err))
			os.Exit(2)
		}
		logger.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	pool, err := catalog.LoadPool(cfg.DeckPool)
	if err != nil {
		return err
	}
	logger.Info("deck pool loaded", zap.String("path", cfg.DeckPool), zap.Int("decks", len(pool)))

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Fail fast on a broken friendly roster instead of at the first session.
	if _, err := roster.Load(ctx, pool, store); err != nil {
		return err
	}

	seeds := random.NewSource(cfg.Seed)
	factory := func(ctx context.Context, code string) (*session.Session, error) {
		m, err := roster.Load(ctx, pool, store)
		if err != nil {
			return nil, err
		}
		r, err := seeds.Rand()
		if err != nil {
			return nil, err
		}
		return session.New(code, m, r, session.WithLogger(logger)), nil
	}

	h := hub.NewHub(ctx, factory, logger, hub.WithLobbyIdle(cfg.LobbyIdle))
	api := httpapi.NewServer(h, pool, icon.NewRenderer(cfg.IconWidth, cfg.IconHeight),
		httpapi.WithLogger(logger),
		httpapi.WithLanguage(cfg.Language()))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore picks where friendly defaults live. A fresh Postgres table is
// seeded from the friendly file when that file is readable.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (catalog.FriendlyStore, func(), error) {
	file := catalog.NewFileStore(cfg.FriendlyDeck)
	if cfg.DatabaseURL == "" {
		return file, func() {}, nil
	}

	pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := pg.Close(); err != nil {
			logger.Warn("close postgres", zap.Error(err))
		}
	}

	if _, err := pg.LoadFriendly(ctx); err != nil && cfg.FriendlyDeck != "" {
		records, ferr := file.LoadFriendly(ctx)
		if ferr != nil {
			closeFn()
			return nil, nil, errors.Join(err, ferr)
		}
		if err := pg.SaveFriendly(ctx, records); err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info("seeded friendly roster", zap.String("from", file.Path()), zap.Int("decks", len(records)))
	}
	return pg, closeFn, nil
}
