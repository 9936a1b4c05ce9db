package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/hobuy-widget/internal/config"
	"github.com/DoyleJ11/hobuy-widget/internal/host"
	"github.com/DoyleJ11/hobuy-widget/internal/httpapi"
	"github.com/DoyleJ11/hobuy-widget/internal/hub"
	"github.com/DoyleJ11/hobuy-widget/internal/session"
	"github.com/DoyleJ11/hobuy-widget/internal/storage"
	"github.com/DoyleJ11/hobuy-widget/internal/widget"
	"github.com/DoyleJ11/hobuy-widget/internal/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogDev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	var shop widget.Host
	if cfg.ShopAPIURL != "" {
		c := host.NewClient(cfg.ShopAPIURL, cfg.ShopTimeout, log)
		defer c.Close()
		shop = c
	} else {
		log.Warn("SHOP_API_URL is not set, auctions can only be joined by socket url")
	}

	factory := func(ctx context.Context, id string, wc widget.Config) (*widget.Widget, error) {
		if wc.SocketURL == "" {
			wc.SocketURL = cfg.DefaultSocketURL
		}
		if wc.Currency == "" {
			wc.Currency = cfg.DefaultCurrency
		}
		// One namespace per widget, the way one browser page owns one widget.
		store := storage.New(backend, cfg.StoragePrefix+":"+id, log, storage.WithTimeout(cfg.StorageTimeout))
		return widget.New(ctx, id, wc, widget.Deps{
			Storage:       store,
			Dial:          ws.Dialer,
			Host:          shop,
			Log:           log,
			DefaultLocale: cfg.DefaultLocale,
			SessionOptions: []session.Option{
				session.WithDialTimeout(cfg.DialTimeout),
				session.WithWriteTimeout(cfg.WriteTimeout),
			},
		})
	}

	h := hub.NewHub(ctx, factory, log)

	srv := &http.Server{
		Addr:              cfg.HTTPServerAddress,
		Handler:           httpapi.SetupRoutes(h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openBackend(ctx context.Context, cfg config.Config) (storage.Backend, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		b, err := storage.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return b, func() {}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return storage.NewRedisBackend(client), func() { _ = client.Close() }, nil

	default:
		return storage.NewMemoryBackend(), func() {}, nil
	}
}
