package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
	"github.com/xenking/bookstore-catalog/internal/productjson"
)

// ListProducts handles GET /products. An empty catalog is answered with 404.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if len(products) == 0 {
		writeError(w, http.StatusNotFound, msgNoProducts)
		return
	}

	var e jx.Encoder
	productjson.EncodeList(&e, products)
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct handles GET /products/{id}. Ids that are not UUIDs cannot exist
// and are answered like unknown ones.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	p, ok, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	var e jx.Encoder
	productjson.Encode(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

// SearchProducts handles GET /products/search/{query}.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.SearchProducts(r.Context(), r.PathValue("query"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	productjson.EncodeList(&e, products)
	writeJSON(w, http.StatusOK, &e)
}

// CreateProduct handles POST /products and answers with the stored record.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := readProduct(w, r)
	if !ok {
		return
	}

	created, err := h.catalog.CreateProduct(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	productjson.Encode(&e, *created)
	writeJSON(w, http.StatusOK, &e)
}

// UpdateProduct handles PUT /products. Updating an unknown id succeeds
// without effect.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := readProduct(w, r)
	if !ok {
		return
	}
	if err := h.catalog.UpdateProduct(r.Context(), p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteProduct handles DELETE /products/{id}. Deleting an unknown id
// succeeds without effect.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		writeError(w, http.StatusBadRequest, msgInvalidID)
		return
	}
	if err := h.catalog.RemoveProduct(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func readProduct(w http.ResponseWriter, r *http.Request) (product.Product, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return product.Product{}, false
	}
	p, err := productjson.DecodeBytes(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return product.Product{}, false
	}
	return p, true
}
