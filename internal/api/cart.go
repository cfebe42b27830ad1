package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/falcon-storefront/internal/cart"
)

// addItemRequest mirrors the inbound construction contract: the caller
// supplies catalog metadata together with the chosen variant and quantity.
type addItemRequest struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	ImageRef     string          `json:"imageRef"`
	VariantColor string          `json:"variantColor"`
	VariantSize  string          `json:"variantSize"`
	Quantity     int             `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type lineItemResponse struct {
	LineItemKey  string  `json:"lineItemKey"`
	ProductID    string  `json:"productId"`
	Name         string  `json:"name"`
	UnitPrice    float64 `json:"unitPrice"`
	ImageRef     string  `json:"imageRef"`
	VariantColor string  `json:"variantColor"`
	VariantSize  string  `json:"variantSize"`
	Quantity     int     `json:"quantity"`
	LineTotal    float64 `json:"lineTotal"`
}

type cartResponse struct {
	Items         []lineItemResponse `json:"items"`
	TotalQuantity int                `json:"totalQuantity"`
	TotalAmount   float64            `json:"totalAmount"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.toCartResponse(h.cart.Snapshot()))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.cart.AddItem(cart.AddRequest{
		ProductID:    req.ProductID,
		Name:         req.Name,
		UnitPrice:    req.UnitPrice,
		ImageRef:     req.ImageRef,
		VariantColor: req.VariantColor,
		VariantSize:  req.VariantSize,
		Quantity:     req.Quantity,
	})
	if err != nil {
		var invalid *cart.InvalidItemError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusUnprocessableEntity, invalid.Error())
			return
		}
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toCartResponse(updated))
}

// updateItem sets a line item's quantity. Unknown keys and quantities below
// one leave the cart untouched; the response is still 200 with the current
// cart, because the no-op is a policy, not a failure.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated := h.cart.UpdateQuantity(r.PathValue("key"), req.Quantity)
	writeJSON(w, http.StatusOK, h.toCartResponse(updated))
}

// removeItem is idempotent: removing an absent key responds 200 with the
// unchanged cart.
func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	updated := h.cart.RemoveItem(r.PathValue("key"))
	writeJSON(w, http.StatusOK, h.toCartResponse(updated))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.toCartResponse(h.cart.Clear()))
}

func (h *Handler) toCartResponse(c cart.Cart) cartResponse {
	items := make([]lineItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = lineItemResponse{
			LineItemKey:  it.Key,
			ProductID:    it.ProductID,
			Name:         it.Name,
			UnitPrice:    it.UnitPrice.InexactFloat64(),
			ImageRef:     h.imageURL(it.ImageRef),
			VariantColor: it.VariantColor,
			VariantSize:  it.VariantSize,
			Quantity:     it.Quantity,
			LineTotal:    it.LineTotal.InexactFloat64(),
		}
	}
	return cartResponse{
		Items:         items,
		TotalQuantity: c.TotalQuantity,
		TotalAmount:   c.TotalAmount.InexactFloat64(),
	}
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(ref string) string {
	if h.imageBaseURL == "" || ref == "" || !isRelative(ref) {
		return ref
	}
	return h.imageBaseURL + ref
}

func isRelative(ref string) bool {
	return len(ref) > 0 && ref[0] == '/'
}
