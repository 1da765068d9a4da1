// Package api holds the request and response types of the HTTP surface.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validationErrors"`
	RequestId        string            `json:"requestId,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type SeatSelection struct {
	Row    int `json:"row" validate:"required,gt=0"`
	Number int `json:"number" validate:"required,gt=0"`
}

type CreateReservationRequest struct {
	ShowtimeId int             `json:"showtimeId" validate:"required,gt=0"`
	SeatCount  int             `json:"seatCount" validate:"required,gt=0,max=10"`
	Seats      []SeatSelection `json:"seats" validate:"required,min=1,max=10,dive"`
	OfferId    *int            `json:"offerId,omitempty" validate:"omitempty,gt=0"`
}

type OfferInfo struct {
	Id    int             `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

type ReservationResponse struct {
	Id          int             `json:"id"`
	Code        string          `json:"code"`
	Status      string          `json:"status"`
	ShowtimeId  int             `json:"showtimeId"`
	MovieTitle  string          `json:"movieTitle"`
	RoomName    string          `json:"roomName"`
	StartsAt    time.Time       `json:"startsAt"`
	SeatCount   int             `json:"seatCount"`
	Seats       []string        `json:"seats"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Offer       *OfferInfo      `json:"offer,omitempty"`
	TicketUrl   string          `json:"ticketUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ConfirmPresenceResponse struct {
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

// Verification error types returned by the ticket verify endpoint.
const (
	VerificationNotFound         = "NOT_FOUND"
	VerificationAlreadyValidated = "ALREADY_VALIDATED"
	VerificationCancelled        = "CANCELLED"
)

type VerifyTicketRequest struct {
	Code string `json:"code" validate:"required"`
}

type ReservationSnapshot struct {
	ReservationId int             `json:"reservationId"`
	Code          string          `json:"code"`
	Status        string          `json:"status"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	MovieTitle    string          `json:"movieTitle"`
	RoomName      string          `json:"roomName"`
	Category      string          `json:"category"`
	StartsAt      time.Time       `json:"startsAt"`
	SeatCount     int             `json:"seatCount"`
	Seats         []string        `json:"seats"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Offer         *OfferInfo      `json:"offer,omitempty"`
	ReservedAt    time.Time       `json:"reservedAt"`
}

type VerificationResponse struct {
	Valid       bool                 `json:"valid"`
	CanValidate bool                 `json:"canValidate"`
	Message     string               `json:"message"`
	ErrorType   string               `json:"errorType,omitempty"`
	Warning     string               `json:"warning,omitempty"`
	ValidatedBy string               `json:"validatedBy,omitempty"`
	ValidatedAt *time.Time           `json:"validatedAt,omitempty"`
	Reservation *ReservationSnapshot `json:"reservation,omitempty"`
}

type RedemptionResponse struct {
	Success     bool       `json:"success"`
	Message     string     `json:"message"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
}

type Seat struct {
	Row       int  `json:"row"`
	Number    int  `json:"number"`
	Available bool `json:"available"`
}

type SeatRow struct {
	Row   int    `json:"row"`
	Seats []Seat `json:"seats"`
}

type SeatMapResponse struct {
	ShowtimeId     int       `json:"showtimeId"`
	RoomId         int       `json:"roomId"`
	RoomName       string    `json:"roomName"`
	StartsAt       time.Time `json:"startsAt"`
	SeatsRemaining int       `json:"seatsRemaining"`
	SeatRows       []SeatRow `json:"seatRows"`
}

type OfferSummary struct {
	Id          int             `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	PartySize   *int            `json:"partySize,omitempty"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
}

type OfferListResponse struct {
	Offers []OfferSummary `json:"offers"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type ReservationSummary struct {
	Id          int             `json:"id"`
	Code        string          `json:"code"`
	MovieTitle  string          `json:"movieTitle"`
	RoomName    string          `json:"roomName"`
	StartsAt    time.Time       `json:"startsAt"`
	SeatCount   int             `json:"seatCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type CustomerReservationsResponse struct {
	Reservations []ReservationSummary `json:"reservations"`
	Metadata     Metadata             `json:"metadata"`
}
