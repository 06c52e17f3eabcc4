// Package importer loads products in bulk from gzip-compressed JSON-lines
// files into the catalog.
//
// Every line goes through the regular create path, so a product whose
// ISBN-13 is already stored is reported as a duplicate and left untouched.
// A bloom filter over the ISBN-13 values seen so far flags likely duplicates
// inside the batch before the store is consulted.
package importer

import (
	"bufio"
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
	"github.com/xenking/bookstore-catalog/internal/productjson"
)

const (
	defaultWriters       = 4
	defaultExpectedItems = 1_000_000
	defaultFPR           = 0.001
	maxLineBytes         = 4 << 20
	progressEvery        = 10_000
)

// Creator is implemented by *product.Service.
type Creator interface {
	CreateProduct(ctx context.Context, p product.Product) (*product.Product, error)
}

// Config holds non-dependency configuration for the Importer.
type Config struct {
	// Writers is the number of concurrent CreateProduct calls.
	Writers int
	// ExpectedItems and FalsePositiveRate size the duplicate filter.
	ExpectedItems     uint
	FalsePositiveRate float64
}

// Stats summarizes an import run.
type Stats struct {
	Lines      int64
	Created    int64
	Duplicates int64
	// Suspected counts lines the filter flagged as a likely repeat within
	// the batch. They are still offered to the catalog.
	Suspected int64
	Invalid   int64
}

// Importer streams product files into a Creator.
type Importer struct {
	catalog Creator
	lg      *zap.Logger
	writers int

	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// New creates an Importer.
func New(catalog Creator, lg *zap.Logger, cfg Config) *Importer {
	if cfg.Writers <= 0 {
		cfg.Writers = defaultWriters
	}
	if cfg.ExpectedItems == 0 {
		cfg.ExpectedItems = defaultExpectedItems
	}
	if cfg.FalsePositiveRate <= 0 {
		cfg.FalsePositiveRate = defaultFPR
	}
	return &Importer{
		catalog: catalog,
		lg:      lg.Named("importer"),
		writers: cfg.Writers,
		filter:  bloom.NewWithEstimates(cfg.ExpectedItems, cfg.FalsePositiveRate),
	}
}

type line struct {
	file string
	num  int
	data []byte
}

// Run imports every file. Files are decompressed and read concurrently.
// Malformed lines are logged and skipped; any other catalog error stops
// the import.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	var counters stats
	g, ctx := errgroup.WithContext(ctx)
	// A failed reader stops its siblings, then the writers through g.
	readers, rctx := errgroup.WithContext(ctx)
	lines := make(chan line, im.writers*64)

	for _, f := range files {
		readers.Go(func() error {
			return streamFile(rctx, f, func(num int, data []byte) error {
				select {
				case lines <- line{file: f, num: num, data: data}:
					return nil
				case <-rctx.Done():
					return rctx.Err()
				}
			})
		})
	}
	g.Go(func() error {
		defer close(lines)
		return readers.Wait()
	})

	for range im.writers {
		g.Go(func() error {
			for l := range lines {
				if err := im.importLine(ctx, l, &counters); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	return counters.snapshot(), err
}

func (im *Importer) importLine(ctx context.Context, l line, s *stats) error {
	n := s.lines.Add(1)
	if n%progressEvery == 0 {
		im.lg.Info("Import progress",
			zap.Int64("lines", n),
			zap.Int64("created", s.created.Load()),
		)
	}

	p, err := productjson.DecodeBytes(l.data)
	if err != nil {
		s.invalid.Add(1)
		im.lg.Warn("Skip malformed line",
			zap.String("file", l.file),
			zap.Int("line", l.num),
			zap.Error(err),
		)
		return nil
	}

	if p.ISBN13 != "" && im.seen(p.ISBN13) {
		s.suspected.Add(1)
	}

	if _, err := im.catalog.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, product.ErrAlreadyExists) {
			s.duplicates.Add(1)
			im.lg.Debug("Skip existing product",
				zap.String("isbn13", p.ISBN13),
				zap.String("file", l.file),
				zap.Int("line", l.num),
			)
			return nil
		}
		return errors.Wrapf(err, "%s:%d", l.file, l.num)
	}
	s.created.Add(1)
	return nil
}

// seen reports whether isbn13 was probably offered before and records it.
func (im *Importer) seen(isbn13 string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.filter.TestOrAddString(isbn13)
}

// streamFile calls fn for every non-empty line of a gzip-compressed file.
func streamFile(ctx context.Context, path string, fn func(num int, data []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	num := 0
	for scanner.Scan() {
		num++
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		data := append([]byte(nil), scanner.Bytes()...)
		if err := fn(num, data); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

type stats struct {
	lines      atomic.Int64
	created    atomic.Int64
	duplicates atomic.Int64
	suspected  atomic.Int64
	invalid    atomic.Int64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Lines:      s.lines.Load(),
		Created:    s.created.Load(),
		Duplicates: s.duplicates.Load(),
		Suspected:  s.suspected.Load(),
		Invalid:    s.invalid.Load(),
	}
}
