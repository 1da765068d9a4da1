package mocks

import (
	"context"
	"time"

	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

type MockOfferRepo struct {
	domain.OfferRepository
	GetByIDFunc           func(ctx context.Context, id int) (*domain.Offer, error)
	GetActiveFunc         func(ctx context.Context) ([]domain.Offer, error)
	DeactivateExpiredFunc func(ctx context.Context, today time.Time) (int, error)
}

func (m *MockOfferRepo) GetByID(ctx context.Context, id int) (*domain.Offer, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockOfferRepo) GetActive(ctx context.Context) ([]domain.Offer, error) {
	return m.GetActiveFunc(ctx)
}

func (m *MockOfferRepo) DeactivateExpired(ctx context.Context, today time.Time) (int, error) {
	return m.DeactivateExpiredFunc(ctx, today)
}
