package api

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/falcon-storefront/internal/promo"
)

type promoRequest struct {
	Code string `json:"code"`
}

type promoResponse struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Discount    float64 `json:"discount"`
	Subtotal    float64 `json:"subtotal"`
	Total       float64 `json:"total"`
}

// quotePromo validates a promo code against the current cart and returns the
// quoted discount. The cart itself is never mutated: discounts live at the
// presentation layer until checkout, which is out of scope.
func (h *Handler) quotePromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if !decodeBody(w, r, &req) {
		return
	}

	snapshot := h.cart.Snapshot()
	d, err := h.promos.Quote(req.Code, snapshot)
	if err != nil {
		if errors.Is(err, promo.ErrInvalidCode) {
			writeError(w, http.StatusUnprocessableEntity, "invalid promo code")
			return
		}
		writeInternalError(w, r, errors.Wrap(err, "quote promo"))
		return
	}

	subtotal := snapshot.TotalAmount
	writeJSON(w, http.StatusOK, promoResponse{
		Code:        d.Code,
		Description: d.Description,
		Discount:    d.Amount.InexactFloat64(),
		Subtotal:    subtotal.InexactFloat64(),
		Total:       subtotal.Sub(d.Amount).InexactFloat64(),
	})
}
