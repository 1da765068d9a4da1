package mocks

import (
	"context"

	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

type MockUserRepo struct {
	domain.UserRepository
	GetByIDFunc    func(ctx context.Context, id int) (*domain.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int) (*domain.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.GetByEmailFunc(ctx, email)
}
