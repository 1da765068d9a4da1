package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED_BY_CUSTOMER"
	StatusRedeemed  ReservationStatus = "REDEEMED"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// legalTransitions is the authoritative transition table. REDEEMED and
// CANCELLED are terminal.
var legalTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusConfirmed, StatusRedeemed, StatusCancelled},
	StatusConfirmed: {StatusRedeemed, StatusCancelled},
}

// CanTransition reports whether moving a reservation from one status to
// another is an edge in the transition table.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// CheckTransition returns a StateConflictError for any edge not in the table.
func CheckTransition(from, to ReservationStatus) error {
	if !CanTransition(from, to) {
		return &StateConflictError{Current: from, Attempted: to}
	}

	return nil
}

// NewReservationCode generates the opaque redemption code printed on a ticket.
func NewReservationCode() string {
	return uuid.NewString()
}

type Reservation struct {
	ID          int
	Code        string
	CustomerID  int
	ShowtimeID  int
	SeatCount   int
	TotalAmount decimal.Decimal
	OfferID     *int
	Status      ReservationStatus
	TicketPath  *string
	EmailSentAt *time.Time
	ConfirmedAt *time.Time
	ValidatedAt *time.Time
	CashierID   *int
	Seats       []SeatHold
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SeatHold claims one (row, number) pair for one showtime on behalf of a
// reservation. Holds are never deleted on cancellation; the released flag
// excludes them from availability instead.
type SeatHold struct {
	ReservationID int
	ShowtimeID    int
	Row           int
	Number        int
	Released      bool
}

// ReservationDetail is the read model returned for code lookups and ticket
// verification: the reservation plus the names venue staff need on screen.
type ReservationDetail struct {
	ID            int
	Code          string
	ShowtimeID    int
	Status        ReservationStatus
	CustomerName  string
	CustomerEmail string
	MovieTitle    string
	RoomName      string
	Category      string
	StartsAt      time.Time
	SeatCount     int
	TotalAmount   decimal.Decimal
	OfferID       *int
	OfferTitle    *string
	OfferPrice    *decimal.Decimal
	Seats         []SeatHold
	TicketPath    *string
	EmailSentAt   *time.Time
	ConfirmedAt   *time.Time
	ValidatedAt   *time.Time
	CashierName   *string
	CreatedAt     time.Time
}

type ReservationSummary struct {
	ReservationID int
	Code          string
	MovieTitle    string
	RoomName      string
	StartsAt      time.Time
	SeatCount     int
	TotalAmount   decimal.Decimal
	Status        ReservationStatus
	CreatedAt     time.Time
}

// ReminderCandidate is a reservation that needs its pre-show confirmation
// email, joined with everything the template requires.
type ReminderCandidate struct {
	ReservationID int
	Code          string
	CustomerName  string
	CustomerEmail string
	MovieTitle    string
	RoomName      string
	StartsAt      time.Time
	SeatCount     int
}

type ReservationRepository interface {
	// Create persists the reservation and its seat holds in one transaction.
	// A concurrent claim on any of the seats surfaces as ErrEditConflict.
	Create(ctx context.Context, reservation *Reservation) error

	GetByCode(ctx context.Context, code string) (*ReservationDetail, error)
	GetByID(ctx context.Context, id int) (*ReservationDetail, error)
	GetSummariesByCustomer(ctx context.Context, customerID int, pagination Pagination) ([]ReservationSummary, *Metadata, error)

	// HeldSeats returns the unreleased holds for a showtime. Availability is
	// always derived from this set, never from a counter.
	HeldSeats(ctx context.Context, showtimeID int) ([]SeatHold, error)
	IsSeatHeld(ctx context.Context, showtimeID, row, number int) (bool, error)

	SetTicketPath(ctx context.Context, reservationID int, path string) error

	// Confirm records customer presence confirmation. Idempotent for
	// already-confirmed and redeemed reservations; cancelled ones fail with a
	// StateConflictError.
	Confirm(ctx context.Context, code string, at time.Time) error

	// Validate redeems the ticket: a compare-and-swap from PENDING or
	// CONFIRMED_BY_CUSTOMER to REDEEMED that records the acting cashier.
	// Exactly one concurrent caller succeeds.
	Validate(ctx context.Context, reservationID, cashierID int, at time.Time) error

	// Cancel is the staff-initiated cancellation; it releases the seat holds
	// in the same transaction.
	Cancel(ctx context.Context, reservationID, cashierID int) error

	FindNeedingReminder(ctx context.Context, from, to time.Time) ([]ReminderCandidate, error)
	MarkReminderSent(ctx context.Context, reservationID int, at time.Time) error

	// CancelUnconfirmed cancels PENDING reservations whose reminder was sent
	// before the threshold and never confirmed. Returns the affected codes.
	CancelUnconfirmed(ctx context.Context, threshold time.Time) ([]string, error)

	// CancelNoShows cancels reservations still awaiting redemption whose
	// showtime started before the threshold. Returns the affected codes.
	CancelNoShows(ctx context.Context, threshold time.Time) ([]string, error)
}
