package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
	"github.com/xenking/bookstore-catalog/internal/importer"
	"github.com/xenking/bookstore-catalog/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		cfg         importer.Config
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory with *.jsonl.gz product files (ignored when files are given as arguments)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or CATALOG_DATABASE_URL / DATABASE_URL env)")
	flag.IntVar(&cfg.Writers, "writers", 4, "concurrent product writes")
	flag.UintVar(&cfg.ExpectedItems, "expected", 1_000_000, "expected number of products, sizes the duplicate filter")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	for _, env := range []string{"CATALOG_DATABASE_URL", "DATABASE_URL"} {
		if databaseURL == "" {
			databaseURL = os.Getenv(env)
		}
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url, CATALOG_DATABASE_URL or DATABASE_URL")
	}

	files := flag.Args()
	if len(files) == 0 {
		files, err = filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
		if err != nil {
			lg.Fatal("List product files", zap.Error(err))
		}
	}
	if len(files) == 0 {
		lg.Fatal("No product files found", zap.String("data_dir", dataDir))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, files, cfg); err != nil {
		lg.Error("Catalog import failed", zap.Error(err))
		cancel()
		_ = lg.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, files []string, cfg importer.Config) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	catalog := product.NewService(postgres.NewProductStore(pool), product.ServiceConfig{})

	lg.Info("Importing products", zap.Strings("files", files), zap.Int("writers", cfg.Writers))
	stats, err := importer.New(catalog, lg, cfg).Run(ctx, files)
	lg.Info("Import finished",
		zap.Int64("lines", stats.Lines),
		zap.Int64("created", stats.Created),
		zap.Int64("duplicates", stats.Duplicates),
		zap.Int64("suspected_in_batch", stats.Suspected),
		zap.Int64("invalid", stats.Invalid),
	)
	if err != nil {
		return errors.Wrap(err, "import")
	}
	return nil
}
