package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshlane/grocer-orders/internal/auth"
	"github.com/freshlane/grocer-orders/internal/domain/order"
)

// CreateOrder places an online order for the authenticated user.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, false)
}

// CreatePOSOrder places a point-of-sale order. POS orders skip the shipping
// address requirement and the delivery fee and start out CONFIRMED.
func (h *Handler) CreatePOSOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, true)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, pos bool) {
	var req createOrderRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), req.toDomain(identity(r).UserID, pos))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// GetOrder returns one order by its numeric identifier.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if !h.canAccessOrder(r, o) {
		respondError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// GetOrderByNumber returns one order by its public order number.
func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if !h.canAccessOrder(r, o) {
		respondError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListUserOrders returns all orders of one user, newest first.
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

// ListAllOrders returns every order, optionally filtered by the isPosOrder
// query parameter. Admin only.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	var posFilter *bool
	if raw := r.URL.Query().Get("isPosOrder"); raw != "" {
		pos, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid isPosOrder value")
			return
		}
		posFilter = &pos
	}

	orders, err := h.orders.List(r.Context(), posFilter)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

// UpdateOrderStatus transitions an order to a new lifecycle status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateStatusRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, order.Status(req.Status))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// ReorderItems returns the lines of a past order so the client can rebuild a
// cart from them.
func (h *Handler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines, err := h.orders.ReorderLines(r.Context(), orderID, identity(r).UserID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toLineResponses(lines))
}

// FrequentlyOrdered returns the products the user orders most often.
func (h *Handler) FrequentlyOrdered(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	products, err := h.orders.FrequentlyOrderedProducts(r.Context(), userID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toFrequentProductResponses(products))
}

// DailySales returns the sales report for one calendar day. The date query
// parameter defaults to today. Admin only.
func (h *Handler) DailySales(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	report, err := h.orders.DailySales(r.Context(), date)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toSalesReportResponse(report))
}

// MonthlySales returns per-day sales reports for one month. Admin only.
func (h *Handler) MonthlySales(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year, month := now.Year(), now.Month()

	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = parsed
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			respondError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = time.Month(parsed)
	}

	reports, err := h.orders.MonthlySales(r.Context(), year, month)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	out := make([]salesReportResponse, len(reports))
	for i, rep := range reports {
		out[i] = toSalesReportResponse(rep)
	}
	respondJSON(w, http.StatusOK, out)
}

// canAccessOrder reports whether the caller may read the given order: the
// owner or an admin.
func (h *Handler) canAccessOrder(r *http.Request, o *order.Order) bool {
	id := identity(r)
	return id.Role == auth.RoleAdmin || id.UserID == o.UserID
}
