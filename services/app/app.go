// Package app assembles the asset services from configuration. Both binaries
// build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mark3labs/mcp-go/server"
	"gorm.io/gorm"

	"assetd/pkg/bus"
	"assetd/pkg/config"
	"assetd/pkg/db"
	"assetd/pkg/logger"
	"assetd/pkg/qrcode"
	gos3 "assetd/pkg/s3"
	"assetd/services/api"
	"assetd/services/artifacts"
	"assetd/services/assets"
	"assetd/services/audit"
	"assetd/services/reconciler"
	"assetd/services/tools"
)

// App holds the wired services. Bus and Local are nil when NATS is not
// configured or a remote artifact backend is used.
type App struct {
	Config config.Config
	Log    *logger.Logger

	Pool *pgxpool.Pool
	ORM  *gorm.DB
	Bus  *bus.Bus

	Artifacts artifacts.Store
	Local     *artifacts.LocalStore
	Images    *qrcode.Generator
	Onboarder *assets.Onboarder
	Assets    *assets.Service
	Tools     *server.MCPServer

	background []interface{ Close() error }
	closers    []func()
}

// New connects to the database (and NATS when configured), runs migrations
// when enabled and builds every service.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (_ *App, err error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("ASSETD_DATABASE_URL is required")
	}
	if log == nil {
		log = logger.NewNop()
	}

	a := &App{Config: cfg, Log: log, Images: qrcode.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Pool, err = db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, a.Pool.Close)

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx, a.Pool); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("database migrated")
	}

	a.ORM, err = db.OpenORM(a.Pool)
	if err != nil {
		return nil, fmt.Errorf("open orm: %w", err)
	}

	if cfg.Bus.NATSURL != "" {
		a.Bus, err = bus.New(cfg.Bus.NATSURL,
			bus.WithLogger(log.With("component", "bus")),
			bus.WithMaxDeliver(cfg.Bus.MaxDeliver),
		)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.closers = append(a.closers, a.Bus.Close)
		if err := a.Bus.EnsureStream(assets.StreamName, assets.StreamSubjects); err != nil {
			return nil, err
		}
	}

	a.Artifacts, a.Local, err = NewArtifactStore(ctx, cfg.Artifacts)
	if err != nil {
		return nil, err
	}

	store, err := assets.NewGormStore(a.ORM)
	if err != nil {
		return nil, err
	}

	opts := []assets.Option{assets.WithLogger(log)}
	if a.Bus != nil {
		opts = append(opts, assets.WithPublisher(a.Bus))
	}

	a.Onboarder, err = assets.NewOnboarder(store, a.Images, a.Artifacts, assets.OnboardingConfig{
		ScanBaseURL: cfg.Assets.ScanBaseURL,
		CodePrefix:  cfg.Assets.CodePrefix,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init onboarding: %w", err)
	}

	a.Assets, err = assets.NewService(store, a.Onboarder, assets.NewManualReader(log), assets.PreviewLimits{
		Default: cfg.Manuals.PreviewDefault,
		Max:     cfg.Manuals.PreviewMax,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init asset service: %w", err)
	}

	a.Tools = tools.New(a.Assets, log)
	return a, nil
}

// NewArtifactStore builds the configured artifact backend. The local store is
// also returned so callers can serve its directory.
func NewArtifactStore(ctx context.Context, cfg config.ArtifactsConfig) (artifacts.Store, *artifacts.LocalStore, error) {
	switch cfg.Backend {
	case config.BackendLocal, "":
		local, err := artifacts.NewLocalStore(cfg.Dir, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("init local artifacts: %w", err)
		}
		return local, local, nil
	case config.BackendS3:
		client, err := gos3.NewClientFromEnv(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("init s3 client: %w", err)
		}
		store, err := artifacts.NewS3Store(client, cfg.S3Bucket, cfg.KeyPrefix, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.BackendGCS:
		client, err := artifacts.NewGCSClient(ctx, cfg.GCSEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := artifacts.NewGCSStore(client, cfg.GCSBucket, cfg.KeyPrefix, cfg.PublicBaseURL)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}

// StartBackground launches the reconciler when enabled and the audit ingestor
// when a bus is connected.
func (a *App) StartBackground(ctx context.Context) error {
	if a.Config.Reconcile.Enabled {
		var sub reconciler.Subscriber
		if a.Bus != nil {
			sub = a.Bus
		}
		r, err := reconciler.New(a.Assets, sub, reconciler.Config{
			Interval:  a.Config.Reconcile.Interval,
			BatchSize: a.Config.Reconcile.BatchSize,
		}, a.Log)
		if err != nil {
			return err
		}
		if err := r.Start(ctx); err != nil {
			return fmt.Errorf("start reconciler: %w", err)
		}
		a.background = append(a.background, r)
		a.Log.Info("reconciler started", "interval", a.Config.Reconcile.Interval.String())
	}

	if a.Bus != nil {
		sink, err := audit.NewGormSink(a.ORM)
		if err != nil {
			return err
		}
		ing, err := audit.NewIngestor(sink, a.Bus, a.Log)
		if err != nil {
			return err
		}
		if err := ing.Start(ctx); err != nil {
			return fmt.Errorf("start audit: %w", err)
		}
		a.background = append(a.background, ing)
		a.Log.Info("audit ingestor started")
	}
	return nil
}

// Handler returns the HTTP surface: REST routes, stored code images for the
// local backend and the MCP endpoint when enabled.
func (a *App) Handler() (http.Handler, error) {
	var cfg api.Config
	if a.Local != nil {
		cfg.QRImages = a.Local.Handler()
	}
	if a.Config.HTTP.MCPEnabled {
		cfg.MCP = tools.HTTPHandler(a.Tools)
	}
	handlers, err := api.New(a.Assets, a.Images, a.Log, cfg)
	if err != nil {
		return nil, err
	}
	return handlers.Routes()
}

// Ready reports whether the database, and the bus when configured, are
// reachable.
func (a *App) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx, a.Pool); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.Bus != nil && !a.Bus.Connected() {
		return errors.New("nats: not connected")
	}
	return nil
}

// Close stops background workers and releases connections in reverse order.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.background) - 1; i >= 0; i-- {
		if err := a.background[i].Close(); err != nil {
			a.Log.Warn("background shutdown", "error", err)
		}
	}
	a.background = nil
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
