package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/uniform-shop/internal/catalog"
)

type Service interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID, size string, quantity int) (*Line, error)
	ListItems(ctx context.Context, userID uuid.UUID) ([]Line, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error
}

type service struct {
	repo     Repository
	products catalog.Repository
}

func NewService(repo Repository, products catalog.Repository) Service {
	return &service{repo: repo, products: products}
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, size string, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	size = strings.TrimSpace(size)
	if size == "" {
		return nil, ErrSizeRequired
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			log.Warn().Stringer("product_id", productID).Msg("service: add to cart for unknown product")
			return nil, catalog.ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", productID).Msg("service: failed to look up product")
		return nil, fmt.Errorf("service: failed to look up product: %w", err)
	}

	line, err := s.repo.Add(ctx, &Line{
		UserID:    userID,
		ProductID: productID,
		Size:      size,
		Quantity:  quantity,
	})
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to add cart item")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	log.Debug().Stringer("user_id", userID).Stringer("product_id", productID).Str("size", size).Int("quantity", line.Quantity).Msg("service: cart item saved")
	return line, nil
}

func (s *service) ListItems(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	lines, err := s.repo.LinesForUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch cart")
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}
	return lines, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error {
	if err := s.repo.Remove(ctx, userID, lineID); err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return ErrLineNotFound
		}
		log.Error().Err(err).Stringer("line_id", lineID).Msg("service: failed to remove cart item")
		return fmt.Errorf("service: failed to remove cart item: %w", err)
	}
	return nil
}
