package mocks

import (
	"context"
	"time"

	"github.com/selimok/cinema-ticketing-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockReservationRepo struct {
	mock.Mock
	domain.ReservationRepository
}

func (m *MockReservationRepo) Create(ctx context.Context, reservation *domain.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepo) GetByCode(ctx context.Context, code string) (*domain.ReservationDetail, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReservationDetail), args.Error(1)
}

func (m *MockReservationRepo) GetByID(ctx context.Context, id int) (*domain.ReservationDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReservationDetail), args.Error(1)
}

func (m *MockReservationRepo) GetSummariesByCustomer(ctx context.Context, customerID int, pagination domain.Pagination) ([]domain.ReservationSummary, *domain.Metadata, error) {
	args := m.Called(ctx, customerID, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.ReservationSummary), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockReservationRepo) HeldSeats(ctx context.Context, showtimeID int) ([]domain.SeatHold, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatHold), args.Error(1)
}

func (m *MockReservationRepo) IsSeatHeld(ctx context.Context, showtimeID, row, number int) (bool, error) {
	args := m.Called(ctx, showtimeID, row, number)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationRepo) SetTicketPath(ctx context.Context, reservationID int, path string) error {
	args := m.Called(ctx, reservationID, path)
	return args.Error(0)
}

func (m *MockReservationRepo) Confirm(ctx context.Context, code string, at time.Time) error {
	args := m.Called(ctx, code, at)
	return args.Error(0)
}

func (m *MockReservationRepo) Validate(ctx context.Context, reservationID, cashierID int, at time.Time) error {
	args := m.Called(ctx, reservationID, cashierID, at)
	return args.Error(0)
}

func (m *MockReservationRepo) Cancel(ctx context.Context, reservationID, cashierID int) error {
	args := m.Called(ctx, reservationID, cashierID)
	return args.Error(0)
}

func (m *MockReservationRepo) FindNeedingReminder(ctx context.Context, from, to time.Time) ([]domain.ReminderCandidate, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReminderCandidate), args.Error(1)
}

func (m *MockReservationRepo) MarkReminderSent(ctx context.Context, reservationID int, at time.Time) error {
	args := m.Called(ctx, reservationID, at)
	return args.Error(0)
}

func (m *MockReservationRepo) CancelUnconfirmed(ctx context.Context, threshold time.Time) ([]string, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockReservationRepo) CancelNoShows(ctx context.Context, threshold time.Time) ([]string, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
