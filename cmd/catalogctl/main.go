package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/catalog-s3/internal/cache"
	"github.com/andresuchdata/catalog-s3/internal/config"
	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/replication"
	"github.com/andresuchdata/catalog-s3/internal/repository/postgres"
	"github.com/andresuchdata/catalog-s3/internal/service"
	"github.com/andresuchdata/catalog-s3/internal/storage"
	"github.com/andresuchdata/catalog-s3/pkg/logger"
)

type ctxKey string

const (
	dbKey  ctxKey = "db"
	cfgKey ctxKey = "config"
)

func newDBURLFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: required,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	app := &cli.App{
		Name:  "catalogctl",
		Usage: "Maintenance tasks for the product catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Configure(c.String("log-level"), "console")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema",
				Flags:  []cli.Flag{newDBURLFlag(true)},
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "backup",
				Usage: "Copy every object of the source bucket into the target bucket",
				Flags: []cli.Flag{
					newDBURLFlag(false),
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source bucket (defaults to the saved settings, then AWS_S3_BUCKET)",
					},
					&cli.StringFlag{
						Name:  "target",
						Usage: "Target bucket (defaults to the saved settings, then AWS_S3_BACKUP_BUCKET)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent copy workers (defaults to REPLICATION_WORKERS)",
					},
				},
				Before: loadConfigAndDB,
				After:  closeDB,
				Action: runBackup,
			},
			{
				Name:   "check",
				Usage:  "Report whether the configured buckets exist",
				Flags:  []cli.Flag{newDBURLFlag(false)},
				Before: loadConfigAndDB,
				After:  closeDB,
				Action: runCheck,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("catalogctl failed")
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.NewDBFromURL(c.String("db-url"))
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func loadConfigAndDB(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.Context = context.WithValue(c.Context, cfgKey, cfg)

	if c.String("db-url") == "" {
		return nil
	}
	return initDB(c)
}

func runMigrate(c *cli.Context) error {
	db := c.Context.Value(dbKey).(*postgres.DB)
	if err := db.Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("schema is up to date")
	return nil
}

// settingsFrom returns the saved settings when a database is configured and
// the environment defaults otherwise.
func settingsFrom(c *cli.Context, cfg *config.Config) *service.SettingsService {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return service.NewSettingsService(postgres.NewSettingsRepository(db), cfg.Storage)
	}
	return service.NewSettingsService(envSettings{cfg.Storage}, cfg.Storage)
}

func newStore(c *cli.Context, cfg *config.Config) (storage.Backend, error) {
	return storage.New(c.Context, cfg.Storage,
		storage.WithLogger(logger.Component("storage")),
		storage.WithPageSize(cfg.Backup.PageSize),
	)
}

func runBackup(c *cli.Context) error {
	cfg := c.Context.Value(cfgKey).(*config.Config)

	store, err := newStore(c, cfg)
	if err != nil {
		return err
	}

	workers := cfg.Backup.Workers
	if c.Int("workers") > 0 {
		workers = c.Int("workers")
	}
	replicator := replication.New(store,
		replication.WithWorkers(workers),
		replication.WithLogger(logger.Component("replication")),
	)

	settings := settingsFrom(c, cfg)
	saved, err := settings.Get(c.Context)
	if err != nil {
		return err
	}
	source, target := saved.BucketName, saved.BackupBucket
	if c.IsSet("source") {
		source = config.NormalizeBucketName(c.String("source"))
	}
	if c.IsSet("target") {
		target = config.NormalizeBucketName(c.String("target"))
	}

	backup := service.NewBackupService(settings, replicator, store, cache.NewLocalBackupLock())
	result, runErr := backup.RunBuckets(c.Context, source, target)
	if err := printJSON(result); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if result.Status != domain.BackupCompleted {
		return cli.Exit(result.Message, 2)
	}
	return nil
}

func runCheck(c *cli.Context) error {
	cfg := c.Context.Value(cfgKey).(*config.Config)

	store, err := newStore(c, cfg)
	if err != nil {
		return err
	}

	checks, err := service.NewBackupService(settingsFrom(c, cfg), nil, store, nil).CheckBuckets(c.Context)
	if err != nil {
		return err
	}
	return printJSON(checks)
}

// envSettings serves the environment defaults when no database is given.
type envSettings struct {
	storage config.StorageConfig
}

func (e envSettings) Get(context.Context) (*domain.StorageSettings, error) {
	return &domain.StorageSettings{BucketName: e.storage.Bucket, BackupBucket: e.storage.BackupBucket}, nil
}

func (e envSettings) Save(context.Context, *domain.StorageSettings) error {
	return fmt.Errorf("settings are read-only without a database")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
