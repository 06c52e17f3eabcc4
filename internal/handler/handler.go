package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

// Catalog is the set of catalog operations exposed over HTTP. It is
// implemented by *product.Service.
type Catalog interface {
	CreateProduct(ctx context.Context, p product.Product) (*product.Product, error)
	GetProduct(ctx context.Context, id string) (*product.Product, bool, error)
	ListProducts(ctx context.Context) ([]product.Product, error)
	UpdateProduct(ctx context.Context, p product.Product) error
	RemoveProduct(ctx context.Context, id string) error
	AddStock(ctx context.Context, id string, quantity int) (int, error)
	GetStock(ctx context.Context, id string) (int, error)
	SearchProducts(ctx context.Context, query string) ([]product.Product, error)
}

var _ Catalog = (*product.Service)(nil)

// maxBodyBytes limits product request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the catalog REST API.
type Handler struct {
	catalog Catalog
}

// NewHandler constructs a Handler delegating to catalog.
func NewHandler(catalog Catalog) *Handler {
	return &Handler{catalog: catalog}
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	encodeError(&e, status, message)
	writeJSON(w, status, &e)
}
