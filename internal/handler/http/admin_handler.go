package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/uniform-shop/internal/order"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminHandler serves the back-office order endpoints. Routes must be
// mounted behind RequireAdmin.
type AdminHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewAdminHandler(service order.Service) *AdminHandler {
	return &AdminHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Get("/admin/orders", h.handleListAllOrders)
	router.Put("/admin/orders/{id}", h.handleUpdateOrderStatus)
}

func (h *AdminHandler) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAllOrders(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	updated, err := h.service.UpdateOrderStatus(r.Context(), orderID, order.Status(requestPayload.Status))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update order status")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}
