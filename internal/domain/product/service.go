package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ServiceConfig holds non-dependency configuration for the Service.
type ServiceConfig struct {
	// StockPolicy governs AddStock results below zero. Zero value is StockAllow.
	StockPolicy StockPolicy
	// OnCreate, when set, is notified after every successful CreateProduct.
	OnCreate CreatedHook
}

// Service implements the catalog operations on top of a Store.
//
// Operations on the same product are not serialized: AddStock reads the
// current stock and writes back the sum, so concurrent adjustments of one
// product may overwrite each other.
type Service struct {
	store    Store
	policy   StockPolicy
	onCreate CreatedHook
	newID    func() string
}

// NewService creates a catalog Service backed by the given Store.
func NewService(store Store, cfg ServiceConfig) *Service {
	policy := cfg.StockPolicy
	if policy == "" {
		policy = StockAllow
	}
	return &Service{
		store:    store,
		policy:   policy,
		onCreate: cfg.OnCreate,
		newID:    func() string { return uuid.New().String() },
	}
}

// CreateProduct stores p under a freshly assigned id unless a product with
// the same ISBN-13 already exists, in which case it returns ErrAlreadyExists
// without writing. Retrying a create that already succeeded therefore fails.
func (s *Service) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	_, err := s.store.GetByISBN13(ctx, p.ISBN13)
	switch {
	case err == nil:
		return nil, ErrAlreadyExists
	case !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "lookup isbn13")
	}

	p.ID = s.newID()
	if err := s.store.Save(ctx, &p); err != nil {
		return nil, errors.Wrap(err, "save product")
	}

	if s.onCreate != nil {
		s.onCreate.ProductCreated(ctx, p)
	}
	return &p, nil
}

// GetProduct returns the product with the given id. A missing product is
// reported through the boolean, not as an error.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, bool, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "get product")
	}
	return p, true, nil
}

// ListProducts returns every stored product in storage order.
func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// UpdateProduct replaces the stored record with id p.ID by p. When no such
// product exists the call does nothing and reports no error.
func (s *Service) UpdateProduct(ctx context.Context, p Product) error {
	ok, err := s.store.ExistsByID(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "check product")
	}
	if !ok {
		return nil
	}
	if err := s.store.Save(ctx, &p); err != nil {
		return errors.Wrap(err, "replace product")
	}
	return nil
}

// RemoveProduct deletes the product with the given id. Deleting an unknown
// id is not an error.
func (s *Service) RemoveProduct(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return errors.Wrap(err, "delete product")
	}
	return nil
}

// AddStock adds quantity to the stock of the product and returns the stored
// value. quantity may be negative; the configured StockPolicy decides what
// happens when the result drops below zero.
func (s *Service) AddStock(ctx context.Context, id string, quantity int) (int, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrap(err, "get product")
	}

	next, err := s.policy.apply(p.Stock, quantity)
	if err != nil {
		return 0, err
	}

	p.Stock = next
	if err := s.store.Save(ctx, p); err != nil {
		return 0, errors.Wrap(err, "save stock")
	}
	return next, nil
}

// GetStock returns the current stock of the product.
func (s *Service) GetStock(ctx context.Context, id string) (int, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrap(err, "get product")
	}
	return p.Stock, nil
}

// SearchProducts returns the products whose title contains query. Only when
// there are none does it fall back to products whose ISBN-13 contains query.
// Both comparisons ignore case. ErrEmptySearchResult is returned when both
// passes come back empty.
func (s *Service) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	byTitle, err := s.store.SearchByTitle(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "search by title")
	}
	if len(byTitle) > 0 {
		return byTitle, nil
	}

	byISBN, err := s.store.SearchByISBN13(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "search by isbn13")
	}
	if len(byISBN) > 0 {
		return byISBN, nil
	}
	return nil, ErrEmptySearchResult
}
