package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/uniform-shop/internal/metrics"
	"github.com/vasiliy-maslov/uniform-shop/internal/order"
)

type CheckoutRecorder interface {
	CheckoutOutcome(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) CheckoutOutcome(string) {}

type OrderHandler struct {
	service       order.Service
	recorder      CheckoutRecorder
	checkoutLimit func(http.Handler) http.Handler
}

// NewOrderHandler builds the user-facing order endpoints. recorder and
// checkoutLimit may be nil.
func NewOrderHandler(service order.Service, recorder CheckoutRecorder, checkoutLimit func(http.Handler) http.Handler) *OrderHandler {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if checkoutLimit == nil {
		checkoutLimit = func(next http.Handler) http.Handler { return next }
	}
	return &OrderHandler{service: service, recorder: recorder, checkoutLimit: checkoutLimit}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.With(h.checkoutLimit).Post("/orders", h.handleCheckout)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrderDetail)
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	receipt, err := h.service.Checkout(r.Context(), identity.UserID)
	h.recorder.CheckoutOutcome(checkoutOutcome(err))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to place order")
		return
	}

	respondWithJSON(w, http.StatusCreated, receipt)
}

func checkoutOutcome(err error) string {
	var notFound *order.ProductNotFoundError
	var noStock *order.InsufficientStockError

	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, order.ErrEmptyCart):
		return metrics.OutcomeEmptyCart
	case errors.As(err, &noStock):
		return metrics.OutcomeInsufficientStock
	case errors.As(err, &notFound):
		return metrics.OutcomeProductNotFound
	case errors.Is(err, order.ErrTransactionFailure):
		return metrics.OutcomeTransactionFailed
	default:
		return metrics.OutcomeError
	}
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	orders, err := h.service.ListOrders(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrderDetail(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	lines, err := h.service.GetOrderDetail(r.Context(), identity.UserID, orderID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, lines)
}
