// Package handler exposes the HTTP surface: order lifecycle, scheduled
// orders, carbon footprint and sales reports. It converts transport DTOs to
// domain requests and maps domain errors to status codes.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/freshlane/grocer-orders/internal/auth"
	"github.com/freshlane/grocer-orders/internal/domain/carbon"
	"github.com/freshlane/grocer-orders/internal/domain/order"
	"github.com/freshlane/grocer-orders/internal/domain/schedule"
)

// Handler handles all /api/orders routes.
type Handler struct {
	orders    *order.Service
	schedules *schedule.Service
	footprint *carbon.Service
	verifier  *auth.Verifier
	validate  *validator.Validate
}

// NewHandler constructs a Handler with the required domain services.
func NewHandler(
	orders *order.Service,
	schedules *schedule.Service,
	footprint *carbon.Service,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		orders:    orders,
		schedules: schedules,
		footprint: footprint,
		verifier:  verifier,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes mounts every order-engine route on a fresh chi router. All routes
// require a bearer token; admin-only routes additionally check the role.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/", h.CreateOrder)
		r.Post("/pos", h.CreatePOSOrder)
		r.Get("/{id}", h.GetOrder)
		r.Get("/number/{orderNumber}", h.GetOrderByNumber)
		r.Get("/user/{userId}", h.ListUserOrders)
		r.Get("/{orderId}/reorder-items", h.ReorderItems)
		r.Get("/user/{userId}/frequently-ordered", h.FrequentlyOrdered)

		r.Get("/{orderId}/carbon-footprint", h.OrderCarbonFootprint)
		r.Get("/user/{userId}/carbon-summary", h.UserCarbonSummary)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Put("/{id}/status", h.UpdateOrderStatus)
			r.Get("/admin/all", h.ListAllOrders)
			r.Get("/sales/daily", h.DailySales)
			r.Get("/sales/monthly", h.MonthlySales)
		})

		r.Route("/scheduled", func(r chi.Router) {
			r.Post("/", h.CreateScheduledOrder)
			r.Get("/user/{userId}", h.ListScheduledOrders)
			r.Get("/user/{userId}/status/{status}", h.ListScheduledOrdersByStatus)
			r.Get("/user/{userId}/date-range", h.ListScheduledOrdersByDateRange)
			r.Get("/{id}", h.GetScheduledOrder)
			r.Put("/{id}", h.UpdateScheduledOrder)
			r.Put("/{id}/cancel", h.CancelScheduledOrder)
			r.Put("/{id}/pause", h.PauseScheduledOrder)
			r.Put("/{id}/resume", h.ResumeScheduledOrder)
			r.Delete("/{id}", h.DeleteScheduledOrder)
			r.Get("/{id}/executions", h.ScheduledOrderExecutions)
		})
	})

	return r
}

// authenticate parses the Authorization header and stores the caller's
// Identity in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		id, err := h.verifier.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// requireAdmin rejects non-admin callers. Must run after authenticate.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || id.Role != auth.RoleAdmin {
			respondError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity returns the authenticated caller, which authenticate guarantees
// to be present on all mounted routes.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

// pathUserID resolves the {userId} path parameter against the caller: users
// may only address themselves, admins may address anyone.
func pathUserID(r *http.Request) (int64, error) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid user id")
	}

	id := identity(r)
	if id.Role != auth.RoleAdmin && id.UserID != userID {
		return 0, auth.ErrUnauthorized
	}
	return userID, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return h.validate.Struct(dst)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps domain errors to HTTP status codes: validation
// failures to 400, missing rows to 404, lifecycle policy violations to 409,
// everything else to 500.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, schedule.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case isPolicyError(err):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "forbidden")
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	var invalidLine *order.InvalidLineError
	return errors.Is(err, order.ErrEmptyLines) ||
		errors.Is(err, order.ErrMissingAddress) ||
		errors.Is(err, order.ErrInvalidStatus) ||
		errors.As(err, &invalidLine) ||
		errors.Is(err, schedule.ErrEmptyLines) ||
		errors.Is(err, schedule.ErrMissingDate) ||
		errors.Is(err, schedule.ErrRecurrenceMissing) ||
		errors.Is(err, schedule.ErrRecurrenceSet) ||
		errors.Is(err, schedule.ErrInvalidOccurrence)
}

func isPolicyError(err error) bool {
	return errors.Is(err, schedule.ErrUpdateNotPending) ||
		errors.Is(err, schedule.ErrPauseNotRecurring) ||
		errors.Is(err, schedule.ErrResumeNotPaused) ||
		errors.Is(err, schedule.ErrCancelTerminal) ||
		errors.Is(err, schedule.ErrDeleteForbidden)
}
