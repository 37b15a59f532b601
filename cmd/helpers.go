package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/kulmaganbetov/overbot123/assembly"
	"github.com/kulmaganbetov/overbot123/config"
	"github.com/kulmaganbetov/overbot123/inventory"
	"github.com/kulmaganbetov/overbot123/models"
)

// catalogSource builds the configured snapshot source. db may be nil
// unless the source is the database.
func catalogSource(cfg *config.Config, db *gorm.DB) (inventory.Source, error) {
	switch cfg.Catalog.Source {
	case config.SourceFile:
		return inventory.NewFileSource(cfg.Catalog.Path), nil
	case config.SourceS3:
		s3 := cfg.Catalog.S3
		return inventory.NewS3Source(inventory.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			Bucket:    s3.Bucket,
			Key:       s3.Key,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			UseSSL:    s3.UseSSL,
		})
	default:
		if db == nil {
			return nil, fmt.Errorf("database catalog requested without a database")
		}
		return inventory.NewDBSource(models.NewProductsRepository(db)), nil
	}
}

// loadCatalog opens what the source needs and loads one snapshot into a
// fresh store. The returned close func releases the database, if any.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*inventory.Store, func(), error) {
	var db *gorm.DB
	closeDB := func() {}
	if cfg.Catalog.Source == config.SourceDatabase {
		var err error
		db, err = models.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeDB = func() { closeDatabase(db, logger) }
	}

	source, err := catalogSource(cfg, db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	store := inventory.NewStore()
	if err := inventory.NewRefresher(source, store, logger).Refresh(ctx); err != nil {
		closeDB()
		return nil, nil, err
	}
	return store, closeDB, nil
}

// catalogWatcher returns a watcher for a watched file catalog, or nil when
// file watching is off.
func catalogWatcher(cfg *config.Config, logger *slog.Logger) (*inventory.FileWatcher, error) {
	if !cfg.Catalog.Watch || cfg.Catalog.Source != config.SourceFile {
		return nil, nil
	}
	watcher, err := inventory.NewFileWatcher(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("creating catalog watcher: %w", err)
	}
	return watcher, nil
}

func assemblyOptions(cfg *config.Config) (assembly.Options, error) {
	labels, err := cfg.Assembly.SlotLabels()
	if err != nil {
		return assembly.Options{}, err
	}
	return assembly.Options{
		SlotTimeout:  cfg.Assembly.SlotTimeout,
		Labels:       labels,
		UpgradeQuery: cfg.Assembly.UpgradeQuery,
	}, nil
}

func closeDatabase(db *gorm.DB, logger *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("closing database", "error", err)
	}
}
