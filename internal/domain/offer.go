package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Offer is a promotional price valid inside a date window. PartySize, when
// set, restricts the offer to bookings of exactly that many seats (duo and
// family style offers); a nil PartySize leaves the offer unrestricted.
type Offer struct {
	ID          int
	Title       string
	Description string
	Price       decimal.Decimal
	PartySize   *int
	StartDate   *time.Time
	EndDate     *time.Time
	Active      bool
	CreatedAt   time.Time
}

// WithinWindow reports whether the offer is valid on the given date. Open
// bounds are treated as unbounded.
func (o Offer) WithinWindow(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)

	if o.StartDate != nil && day.Before(o.StartDate.Truncate(24*time.Hour)) {
		return false
	}
	if o.EndDate != nil && day.After(o.EndDate.Truncate(24*time.Hour)) {
		return false
	}

	return true
}

// AppliesToPartySize reports whether the offer can be used for a booking of
// the given seat count.
func (o Offer) AppliesToPartySize(seatCount int) bool {
	return o.PartySize == nil || *o.PartySize == seatCount
}

// EffectivePrice caps the showing's base price with the offer price. An offer
// never raises the price.
func (o Offer) EffectivePrice(basePrice decimal.Decimal) decimal.Decimal {
	if o.Price.IsPositive() && o.Price.LessThan(basePrice) {
		return o.Price
	}

	return basePrice
}

type OfferRepository interface {
	GetByID(ctx context.Context, id int) (*Offer, error)
	GetActive(ctx context.Context) ([]Offer, error)

	// DeactivateExpired flips offers whose end date has passed and returns how
	// many were deactivated.
	DeactivateExpired(ctx context.Context, today time.Time) (int, error)
}
