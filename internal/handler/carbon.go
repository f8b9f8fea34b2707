package handler

import (
	"net/http"

	"github.com/freshlane/grocer-orders/internal/domain/order"
)

// OrderCarbonFootprint returns the carbon estimate of one order, including
// the product/delivery/packaging breakdown and per-category figures.
func (h *Handler) OrderCarbonFootprint(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if !h.canAccessOrder(r, o) {
		respondError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}

	respondJSON(w, http.StatusOK, toFootprintResponse(o.ID, h.footprint.Estimate(o)))
}

// UserCarbonSummary returns the user's aggregated footprint history with the
// eco badge and trailing monthly buckets.
func (h *Handler) UserCarbonSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	summary, err := h.footprint.UserSummary(r.Context(), userID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCarbonSummaryResponse(summary))
}
