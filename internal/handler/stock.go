package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
)

// AddStock handles POST /stock/{id}/{quantity} and answers with the new
// stock level. quantity is a signed 32-bit integer and may be negative.
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	quantity, err := strconv.ParseInt(r.PathValue("quantity"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidQuantity)
		return
	}

	stock, err := h.catalog.AddStock(r.Context(), r.PathValue("id"), int(quantity))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeStock(w, stock)
}

// GetStock handles GET /stock/{id}.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.catalog.GetStock(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeStock(w, stock)
}

func writeStock(w http.ResponseWriter, stock int) {
	var e jx.Encoder
	e.Int(stock)
	writeJSON(w, http.StatusOK, &e)
}
