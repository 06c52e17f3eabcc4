package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

const productColumns = `id::text, isbn10, isbn13, title, version, authors, publishing_date,
	publishing_house, description, language, pages, cover_url, price, stock`

const (
	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductByISBN13SQL = `SELECT ` + productColumns + ` FROM products WHERE isbn13 = $1`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`

	searchByTitleSQL = `SELECT ` + productColumns + ` FROM products
		WHERE strpos(lower(title), lower($1)) > 0 ORDER BY created_at, id`

	searchByISBN13SQL = `SELECT ` + productColumns + ` FROM products
		WHERE strpos(lower(isbn13), lower($1)) > 0 ORDER BY created_at, id`

	existsByIDSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	saveProductSQL = `INSERT INTO products (id, isbn10, isbn13, title, version, authors, publishing_date,
		publishing_house, description, language, pages, cover_url, price, stock)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		isbn10 = EXCLUDED.isbn10,
		isbn13 = EXCLUDED.isbn13,
		title = EXCLUDED.title,
		version = EXCLUDED.version,
		authors = EXCLUDED.authors,
		publishing_date = EXCLUDED.publishing_date,
		publishing_house = EXCLUDED.publishing_house,
		description = EXCLUDED.description,
		language = EXCLUDED.language,
		pages = EXCLUDED.pages,
		cover_url = EXCLUDED.cover_url,
		price = EXCLUDED.price,
		stock = EXCLUDED.stock,
		updated_at = now()`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var _ product.Store = (*ProductStore)(nil)

// ProductStore implements product.Store backed by PostgreSQL.
type ProductStore struct {
	pool *pgxpool.Pool
}

// NewProductStore returns a ProductStore that uses the given pool.
func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

// GetByID returns product.ErrNotFound for unknown ids and for ids that are
// not UUIDs, since no such row can exist.
func (s *ProductStore) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if !validID(id) {
		return nil, product.ErrNotFound
	}
	return s.getOne(ctx, getProductByIDSQL, id)
}

// GetByISBN13 returns the product with the exact ISBN-13.
func (s *ProductStore) GetByISBN13(ctx context.Context, isbn13 string) (*product.Product, error) {
	return s.getOne(ctx, getProductByISBN13SQL, isbn13)
}

func (s *ProductStore) getOne(ctx context.Context, query, arg string) (*product.Product, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", arg, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", arg, err)
	}
	return &p, nil
}

// List returns all products in insertion order.
func (s *ProductStore) List(ctx context.Context) ([]product.Product, error) {
	return s.collect(ctx, "listing products", listProductsSQL)
}

// SearchByTitle returns products whose title contains query, ignoring case.
func (s *ProductStore) SearchByTitle(ctx context.Context, query string) ([]product.Product, error) {
	return s.collect(ctx, "searching by title", searchByTitleSQL, query)
}

// SearchByISBN13 returns products whose ISBN-13 contains query, ignoring case.
func (s *ProductStore) SearchByISBN13(ctx context.Context, query string) ([]product.Product, error) {
	return s.collect(ctx, "searching by isbn13", searchByISBN13SQL, query)
}

func (s *ProductStore) collect(ctx context.Context, op, query string, args ...any) ([]product.Product, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// ExistsByID reports whether a product with the id is stored.
func (s *ProductStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var ok bool
	if err := s.pool.QueryRow(ctx, existsByIDSQL, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking product %q: %w", id, err)
	}
	return ok, nil
}

// Save inserts p or replaces every column of the row with the same id.
// A clash on isbn13 with another row is reported as product.ErrAlreadyExists.
func (s *ProductStore) Save(ctx context.Context, p *product.Product) error {
	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	var published *time.Time
	if !p.PublishingDate.IsZero() {
		published = &p.PublishingDate
	}

	_, err := s.pool.Exec(ctx, saveProductSQL,
		p.ID, p.ISBN10, p.ISBN13, p.Title, p.Version, authors, published,
		p.PublishingHouse, p.Description, p.Language, p.Pages, p.CoverURL,
		decimal.NewFromFloat(p.Price), p.Stock,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return product.ErrAlreadyExists
		}
		return fmt.Errorf("saving product %q: %w", p.ID, err)
	}
	return nil
}

// DeleteByID removes the product. Unknown ids are not an error.
func (s *ProductStore) DeleteByID(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if _, err := s.pool.Exec(ctx, deleteProductSQL, id); err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	return nil
}

func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p         product.Product
		published *time.Time
		price     decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.ISBN10, &p.ISBN13, &p.Title, &p.Version, &p.Authors, &published,
		&p.PublishingHouse, &p.Description, &p.Language, &p.Pages, &p.CoverURL, &price, &p.Stock,
	)
	if published != nil {
		p.PublishingDate = published.UTC()
	}
	p.Price = price.InexactFloat64()
	return p, err
}
