package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a stock or product lookup targets an unknown id.
	ErrNotFound = errors.New("product not found")
	// ErrAlreadyExists is returned by CreateProduct when the ISBN-13 is taken.
	ErrAlreadyExists = errors.New("product already exists")
	// ErrEmptySearchResult is returned when neither search pass matched.
	ErrEmptySearchResult = errors.New("empty search result")
	// ErrNegativeStock is returned by AddStock under StockReject when the
	// adjustment would leave the stock below zero.
	ErrNegativeStock = errors.New("stock would become negative")
	// ErrStockOutOfRange is returned by AddStock when the quantity or the
	// resulting stock does not fit the stored 32-bit stock level.
	ErrStockOutOfRange = errors.New("stock out of range")
)

// Product is a book in the catalog. ID is assigned by CreateProduct and
// ISBN13 is unique across stored products.
type Product struct {
	ID              string
	ISBN10          string
	ISBN13          string
	Title           string
	Version         string
	Authors         []string
	PublishingDate  time.Time
	PublishingHouse string
	Description     string
	Language        string
	Pages           int
	CoverURL        string
	Price           float64
	Stock           int
}

// Store is the persistence port used by Service. Implementations own the
// records; Service never caches them between calls.
type Store interface {
	// GetByID returns ErrNotFound when no product has the id.
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetByISBN13 returns ErrNotFound when no product has the ISBN-13.
	GetByISBN13(ctx context.Context, isbn13 string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	// SearchByTitle and SearchByISBN13 match case-insensitive substrings.
	SearchByTitle(ctx context.Context, query string) ([]Product, error)
	SearchByISBN13(ctx context.Context, query string) ([]Product, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	// Save inserts the product or replaces the stored record with the same id.
	Save(ctx context.Context, p *Product) error
	// DeleteByID succeeds when nothing was deleted.
	DeleteByID(ctx context.Context, id string) error
}

// CreatedHook is notified after a product has been stored by CreateProduct.
// Implementations must not block the caller.
type CreatedHook interface {
	ProductCreated(ctx context.Context, p Product)
}
