package mocks

import (
	"context"
	"time"

	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

type MockShowtimeRepo struct {
	domain.ShowtimeRepository
	GetByIDFunc           func(ctx context.Context, id int) (*domain.Showtime, error)
	DeactivateStartedFunc func(ctx context.Context, now time.Time) (int, error)
}

func (m *MockShowtimeRepo) GetByID(ctx context.Context, id int) (*domain.Showtime, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockShowtimeRepo) DeactivateStarted(ctx context.Context, now time.Time) (int, error) {
	return m.DeactivateStartedFunc(ctx, now)
}
