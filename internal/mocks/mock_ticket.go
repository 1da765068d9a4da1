package mocks

import (
	"time"

	"github.com/selimok/cinema-ticketing-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockTicketGenerator struct {
	mock.Mock
}

func (m *MockTicketGenerator) Generate(detail *domain.ReservationDetail) ([]byte, error) {
	args := m.Called(detail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockTicketStore struct {
	mock.Mock
}

func (m *MockTicketStore) Save(code string, data []byte) (string, error) {
	args := m.Called(code, data)
	return args.String(0), args.Error(1)
}

func (m *MockTicketStore) RemoveOlderThan(cutoff time.Time) (int, error) {
	args := m.Called(cutoff)
	return args.Int(0), args.Error(1)
}
