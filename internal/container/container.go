package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"roadwatch/config"
	app "roadwatch/internal/application"
	"roadwatch/internal/domain/port"
	"roadwatch/internal/infrastructure/detector"
	"roadwatch/internal/infrastructure/storage"
	"roadwatch/internal/infrastructure/vision"
)

const (
	reportsFile = "reports.json"
	walletFile  = "wallets.json"
	sqliteFile  = "roadwatch.db"
)

type Container struct {
	UserService   *app.UserService
	ReportService *app.ReportService
	Pipeline      *app.Pipeline

	detector port.FrameDetector
	closers  []io.Closer
}

// New собирает сервисы приложения по конфигурации.
func New(cfg *config.Config, log *slog.Logger) (*Container, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	c := &Container{}

	reports, ledger, err := c.openStores(cfg)
	if err != nil {
		return nil, err
	}

	frameDetector := c.newDetector(cfg, log)
	c.detector = frameDetector
	decoder := vision.NewDecoder(cfg.Pipeline.WorkingWidth, cfg.Pipeline.WorkingHeight)
	c.Pipeline = app.NewPipeline(frameDetector, decoder, cfg.Pipeline, log.With(slog.String("component", "pipeline")))
	c.ReportService = app.NewReportService(c.Pipeline, reports, ledger, log.With(slog.String("component", "reports")),
		app.WithReward(cfg.RewardAmount),
		app.WithMedia(storage.NewDiskMediaStore(cfg.DataDir), vision.NewAnnotator()),
	)
	c.UserService = app.NewUserService(storage.NewMemoryUserRepository())

	log.Info("container ready",
		slog.String("store", cfg.StoreBackend),
		slog.String("detector", cfg.DetectorTransport),
		slog.String("data_dir", cfg.DataDir))
	return c, nil
}

func (c *Container) openStores(cfg *config.Config) (port.ReportStore, port.RewardLedger, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := storage.OpenSQLite(filepath.Join(cfg.DataDir, sqliteFile))
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, db)
		return db, db, nil
	case config.BackendMemory:
		return storage.NewMemoryReportStore(), storage.NewMemoryWallet(), nil
	default:
		return storage.NewJSONReportStore(filepath.Join(cfg.DataDir, reportsFile)),
			storage.NewJSONWallet(filepath.Join(cfg.DataDir, walletFile)), nil
	}
}

func (c *Container) newDetector(cfg *config.Config, log *slog.Logger) port.FrameDetector {
	log = log.With(slog.String("component", "detector"))
	if cfg.DetectorTransport == config.TransportWebSocket {
		ws := detector.NewWebSocketDetector(cfg.DetectorURL, cfg.DetectorMinConfidence, log)
		c.closers = append(c.closers, ws)
		return ws
	}
	return detector.NewHTTPDetector(cfg.DetectorURL, cfg.DetectorMinConfidence, log)
}

// CheckDetector проверяет сервис инференса, если транспорт умеет это делать.
func (c *Container) CheckDetector(ctx context.Context) error {
	hc, ok := c.detector.(interface {
		CheckHealth(ctx context.Context) error
	})
	if !ok {
		return nil
	}
	return hc.CheckHealth(ctx)
}

// Close освобождает соединения с базой и детектором.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}
