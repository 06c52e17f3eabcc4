package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

// --- Mock implementations ---

type catalogFake struct {
	mu      sync.Mutex
	byISBN  map[string]product.Product
	failOn  string
	created int
}

func newCatalogFake(existing ...string) *catalogFake {
	c := &catalogFake{byISBN: map[string]product.Product{}}
	for _, isbn := range existing {
		c.byISBN[isbn] = product.Product{ISBN13: isbn}
	}
	return c
}

func (c *catalogFake) CreateProduct(_ context.Context, p product.Product) (*product.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOn != "" && p.ISBN13 == c.failOn {
		return nil, errors.New("connection reset")
	}
	if _, ok := c.byISBN[p.ISBN13]; ok {
		return nil, product.ErrAlreadyExists
	}
	c.created++
	p.ID = "id"
	c.byISBN[p.ISBN13] = p
	return &p, nil
}

// stalledCatalog never completes a write before ctx is done.
type stalledCatalog struct{}

func (stalledCatalog) CreateProduct(ctx context.Context, _ product.Product) (*product.Product, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// --- Helpers ---

func writeGz(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func book(isbn13, title string) string {
	return `{"isbn13":"` + isbn13 + `","title":"` + title + `","price":9.99,"stock":3}`
}

// --- Tests ---

func TestImporter_Run(t *testing.T) {
	first := writeGz(t, "a.jsonl.gz",
		book("9780141396316", "Macbeth"),
		book("9780141396507", "Hamlet"),
		"",
		`{"title": "broken"`,
	)
	second := writeGz(t, "b.jsonl.gz",
		book("9780141396316", "Macbeth again"),
		book("9780141012155", "Othello"),
		book("9780743477123", "Already stored"),
	)
	catalog := newCatalogFake("9780743477123")

	im := New(catalog, zap.NewNop(), Config{Writers: 2, ExpectedItems: 1000})
	stats, err := im.Run(context.Background(), []string{first, second})
	require.NoError(t, err)

	assert.Equal(t, int64(6), stats.Lines)
	assert.Equal(t, int64(3), stats.Created)
	assert.Equal(t, int64(2), stats.Duplicates)
	assert.Equal(t, int64(1), stats.Invalid)
	assert.GreaterOrEqual(t, stats.Suspected, int64(1))
	assert.Equal(t, 3, catalog.created)
	assert.Contains(t, catalog.byISBN, "9780141396507")
	assert.Contains(t, catalog.byISBN, "9780141012155")
}

func TestImporter_LogsMalformedLines(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	path := writeGz(t, "bad.jsonl.gz", `not json`, book("9780141396316", "Macbeth"))

	stats, err := New(newCatalogFake(), zap.New(core), Config{}).Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Created)

	entries := logs.FilterMessage("Skip malformed line").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["line"])
}

func TestImporter_StopsOnCatalogError(t *testing.T) {
	catalog := newCatalogFake()
	catalog.failOn = "9780141396507"
	path := writeGz(t, "a.jsonl.gz",
		book("9780141396316", "Macbeth"),
		book("9780141396507", "Hamlet"),
	)

	_, err := New(catalog, zap.NewNop(), Config{Writers: 1}).Run(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "a.jsonl.gz:2")
}

func TestImporter_MissingFile(t *testing.T) {
	_, err := New(newCatalogFake(), zap.NewNop(), Config{}).
		Run(context.Background(), []string{filepath.Join(t.TempDir(), "nope.jsonl.gz")})
	require.Error(t, err)
}

func TestImporter_MissingFileStopsOtherReaders(t *testing.T) {
	books := make([]string, 0, 500)
	for i := range 500 {
		books = append(books, book(fmt.Sprintf("978%010d", i), "Book"))
	}
	big := writeGz(t, "big.jsonl.gz", books...)
	missing := filepath.Join(t.TempDir(), "nope.jsonl.gz")

	done := make(chan error, 1)
	go func() {
		_, err := New(stalledCatalog{}, zap.NewNop(), Config{Writers: 1}).
			Run(context.Background(), []string{big, missing})
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope.jsonl.gz")
	case <-time.After(10 * time.Second):
		t.Fatal("import did not stop after a file failed to open")
	}
}
