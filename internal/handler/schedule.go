package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/freshlane/grocer-orders/internal/domain/schedule"
)

// CreateScheduledOrder registers a one-time or recurring order template for
// the authenticated user.
func (h *Handler) CreateScheduledOrder(w http.ResponseWriter, r *http.Request) {
	var req scheduledOrderRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	domainReq, err := req.toDomain()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	so, err := h.schedules.Create(r.Context(), identity(r).UserID, domainReq)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toScheduledOrderResponse(so))
}

// GetScheduledOrder returns one scheduled order owned by the caller.
func (h *Handler) GetScheduledOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	so, err := h.schedules.Get(r.Context(), id, identity(r).UserID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toScheduledOrderResponse(so))
}

// ListScheduledOrders returns all scheduled orders of one user.
func (h *Handler) ListScheduledOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	orders, err := h.schedules.ListByUser(r.Context(), userID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toScheduledOrderResponses(orders))
}

// ListScheduledOrdersByStatus returns the user's scheduled orders in one
// status.
func (h *Handler) ListScheduledOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	status := schedule.Status(chi.URLParam(r, "status"))
	if !schedule.ValidStatus(status) {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	orders, err := h.schedules.ListByUserAndStatus(r.Context(), userID, status)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toScheduledOrderResponses(orders))
}

// ListScheduledOrdersByDateRange returns the user's scheduled orders with a
// scheduled date inside the startDate..endDate query window.
func (h *Handler) ListScheduledOrdersByDateRange(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	from, err := time.Parse(dateLayout, r.URL.Query().Get("startDate"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid startDate, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse(dateLayout, r.URL.Query().Get("endDate"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid endDate, expected YYYY-MM-DD")
		return
	}

	orders, err := h.schedules.ListByUserAndDateRange(r.Context(), userID, from, to)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toScheduledOrderResponses(orders))
}

// UpdateScheduledOrder replaces the template of a PENDING scheduled order.
func (h *Handler) UpdateScheduledOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req scheduledOrderRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	domainReq, err := req.toDomain()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	so, err := h.schedules.Update(r.Context(), id, identity(r).UserID, domainReq)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toScheduledOrderResponse(so))
}

// CancelScheduledOrder cancels a scheduled order.
func (h *Handler) CancelScheduledOrder(w http.ResponseWriter, r *http.Request) {
	h.scheduleAction(w, r, h.schedules.Cancel)
}

// PauseScheduledOrder pauses a recurring scheduled order.
func (h *Handler) PauseScheduledOrder(w http.ResponseWriter, r *http.Request) {
	h.scheduleAction(w, r, h.schedules.Pause)
}

// ResumeScheduledOrder resumes a paused scheduled order.
func (h *Handler) ResumeScheduledOrder(w http.ResponseWriter, r *http.Request) {
	h.scheduleAction(w, r, h.schedules.Resume)
}

// DeleteScheduledOrder removes a PENDING or CANCELLED scheduled order.
func (h *Handler) DeleteScheduledOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.schedules.Delete(r.Context(), id, identity(r).UserID); err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ScheduledOrderExecutions returns the execution audit trail of one
// scheduled order.
func (h *Handler) ScheduledOrderExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.schedules.ExecutionHistory(r.Context(), id, identity(r).UserID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toExecutionResponses(records))
}

func (h *Handler) scheduleAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id, userID int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := action(r.Context(), id, identity(r).UserID); err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	so, err := h.schedules.Get(r.Context(), id, identity(r).UserID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toScheduledOrderResponse(so))
}
