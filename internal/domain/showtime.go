package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryStandard is the only price category promotional offers apply to.
const CategoryStandard = "Standard"

type Showtime struct {
	ID          int
	MovieID     int
	MovieTitle  string
	RoomID      int
	RoomName    string
	StartsAt    time.Time
	DurationMin int
	Category    string
	BasePrice   decimal.Decimal
	Capacity    int
	SeatRows    int
	SeatsPerRow int
	Active      bool
	CreatedAt   time.Time
}

type ShowtimeRepository interface {
	GetByID(ctx context.Context, id int) (*Showtime, error)

	// DeactivateStarted marks showtimes whose start time has passed as
	// inactive and returns how many were flipped.
	DeactivateStarted(ctx context.Context, now time.Time) (int, error)
}
