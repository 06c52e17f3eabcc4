package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

// Response messages shown to API clients.
const (
	msgNotAuthorized   = "Not authorized."
	msgAlreadyExists   = "Product already exists."
	msgNotFound        = "There is no product with the given id."
	msgNoProducts      = "No products found."
	msgNoSearchMatch   = "No products match the search query."
	msgNegativeStock   = "Stock would become negative."
	msgStockOutOfRange = "Stock would exceed the supported range."
	msgInvalidBody     = "Invalid product payload."
	msgInvalidID       = "Invalid product id."
	msgInvalidQuantity = "Quantity must be a 32-bit integer."
	msgInternalError   = "Internal Server Error"
)

// writeDomainError maps a Catalog error onto an HTTP response. Unclassified
// errors are logged and answered with 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, product.ErrAlreadyExists):
		writeError(w, http.StatusConflict, msgAlreadyExists)
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, product.ErrNegativeStock):
		writeError(w, http.StatusConflict, msgNegativeStock)
	case errors.Is(err, product.ErrStockOutOfRange):
		writeError(w, http.StatusConflict, msgStockOutOfRange)
	case errors.Is(err, product.ErrEmptySearchResult):
		writeText(w, http.StatusOK, msgNoSearchMatch)
	default:
		zctx.From(r.Context()).Error("Catalog operation failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}
