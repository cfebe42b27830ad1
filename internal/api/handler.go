// Package api exposes the cart engine and its collaborators over HTTP.
//
// Handlers are hand-written over net/http: the surface is small and the
// domain-error mapping (validation failures vs benign no-ops) is the whole
// point of the layer.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/falcon-storefront/internal/cart"
	"github.com/xenking/falcon-storefront/internal/catalog"
	"github.com/xenking/falcon-storefront/internal/promo"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in responses. When
	// empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler routes API requests to the cart engine, the catalog client, and
// the promo validator.
type Handler struct {
	cart         *cart.Service
	catalog      *catalog.Client
	promos       *promo.Validator
	imageBaseURL string
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(cfg HandlerConfig, cartSvc *cart.Service, cat *catalog.Client, promos *promo.Validator) *Handler {
	return &Handler{
		cart:         cartSvc,
		catalog:      cat,
		promos:       promos,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register attaches all API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/items", h.addItem)
	mux.HandleFunc("PATCH /api/cart/items/{key}", h.updateItem)
	mux.HandleFunc("DELETE /api/cart/items/{key}", h.removeItem)
	mux.HandleFunc("POST /api/cart/promo", h.quotePromo)
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{slug}", h.getProduct)
	mux.HandleFunc("GET /api/categories", h.listCategories)
}

// errorResponse is the JSON error body shared by all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeInternalError logs the cause and responds with a generic 500 so
// internals never leak to clients.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
