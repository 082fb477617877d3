package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/uniform-shop/internal/cart"
)

type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Size      string `json:"size" validate:"required,max=16"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=100"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/cart", h.handleListCart)
	router.Post("/cart", h.handleAddItem)
	router.Delete("/cart/{id}", h.handleRemoveItem)
}

func (h *CartHandler) handleListCart(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	lines, err := h.service.ListItems(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get cart")
		return
	}

	respondWithJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	var requestPayload AddCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	productID := uuid.FromStringOrNil(requestPayload.ProductID)
	line, err := h.service.AddItem(r.Context(), identity.UserID, productID, requestPayload.Size, requestPayload.Quantity)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add item to cart")
		return
	}

	respondWithJSON(w, http.StatusOK, line)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	idParam := chi.URLParam(r, "id")
	lineID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("line_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.service.RemoveItem(r.Context(), identity.UserID, lineID); err != nil {
		respondWithServiceError(w, r, err, "Failed to remove item from cart")
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Item removed from cart"})
}
