package handler

import "net/http"

// BasePath prefixes every API route.
const BasePath = "/api/v1"

// Register mounts the API on mux. Product and stock routes are guarded by
// their own security handlers so each group can require a different role.
func (h *Handler) Register(mux *http.ServeMux, products, stock *SecurityHandler) {
	route := func(pattern string, sec *SecurityHandler, fn http.HandlerFunc) {
		mux.Handle(pattern, sec.Protect(fn))
	}

	route("GET "+BasePath+"/products", products, h.ListProducts)
	route("GET "+BasePath+"/products/{id}", products, h.GetProduct)
	route("GET "+BasePath+"/products/search/{query}", products, h.SearchProducts)
	route("POST "+BasePath+"/products", products, h.CreateProduct)
	route("PUT "+BasePath+"/products", products, h.UpdateProduct)
	route("DELETE "+BasePath+"/products/{id}", products, h.DeleteProduct)

	route("GET "+BasePath+"/stock/{id}", stock, h.GetStock)
	route("POST "+BasePath+"/stock/{id}/{quantity}", stock, h.AddStock)
}
