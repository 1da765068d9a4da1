package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/selimok/cinema-ticketing-system/api"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

const (
	// earlyArrivalWarning and lateArrivalWarning bound the window around the
	// showtime inside which a ticket scans without remark.
	earlyArrivalWarning = 30 * time.Minute
	lateArrivalWarning  = time.Hour
)

// VerifyTicketHandler is the read-only half of the redemption workflow: it
// reports whether a code is redeemable without changing any state, so a
// cashier can scan a ticket before committing to validation.
func (app *application) VerifyTicketHandler(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyTicketRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	detail, err := app.reservationRepo.GetByCode(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			resp := api.VerificationResponse{
				Message:   "No reservation found for this code",
				ErrorType: api.VerificationNotFound,
			}
			app.writeVerification(w, r, resp)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := app.buildVerification(detail)

	app.writeVerification(w, r, resp)
}

func (app *application) buildVerification(detail *domain.ReservationDetail) api.VerificationResponse {
	snapshot := toReservationSnapshot(detail)

	switch detail.Status {
	case domain.StatusRedeemed:
		resp := api.VerificationResponse{
			Message:     "This ticket has already been validated",
			ErrorType:   api.VerificationAlreadyValidated,
			ValidatedAt: detail.ValidatedAt,
			Reservation: snapshot,
		}
		if detail.CashierName != nil {
			resp.ValidatedBy = *detail.CashierName
		}
		return resp

	case domain.StatusCancelled:
		return api.VerificationResponse{
			Message:     "This reservation has been cancelled",
			ErrorType:   api.VerificationCancelled,
			Reservation: snapshot,
		}
	}

	resp := api.VerificationResponse{
		Valid:       true,
		CanValidate: true,
		Message:     "Ticket is valid",
		Reservation: snapshot,
	}

	now := app.now()
	switch {
	case now.Before(detail.StartsAt.Add(-earlyArrivalWarning)):
		resp.Warning = "Customer is more than 30 minutes early for this showing"
	case now.After(detail.StartsAt.Add(lateArrivalWarning)):
		resp.Warning = "This showing started over an hour ago"
	}

	return resp
}

func (app *application) writeVerification(w http.ResponseWriter, r *http.Request, resp api.VerificationResponse) {
	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ValidateTicketHandler redeems a ticket. The underlying compare-and-swap
// guarantees that of any number of concurrent attempts exactly one succeeds.
func (app *application) ValidateTicketHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, err := app.readIDParam(r, "reservationId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	staff := app.contextGetStaff(r)
	now := app.now()

	err = app.reservationRepo.Validate(r.Context(), reservationID, staff.ID, now)
	if err != nil {
		var stateConflict *domain.StateConflictError
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.As(err, &stateConflict):
			app.redemptionConflictResponse(w, r, reservationID, stateConflict)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.logger.Info("ticket validated", "reservation_id", reservationID, "cashier", staff.FullName())

	resp := api.RedemptionResponse{
		Success:     true,
		Message:     "Ticket validated",
		ValidatedAt: &now,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// redemptionConflictResponse explains who won the race for an already-redeemed
// ticket, so the losing cashier sees more than a bare conflict.
func (app *application) redemptionConflictResponse(w http.ResponseWriter, r *http.Request, reservationID int, stateConflict *domain.StateConflictError) {
	message := "This reservation has been cancelled"

	if stateConflict.Current == domain.StatusRedeemed {
		message = "This ticket has already been validated"

		detail, err := app.reservationRepo.GetByID(r.Context(), reservationID)
		if err == nil && detail.CashierName != nil && detail.ValidatedAt != nil {
			message = fmt.Sprintf(
				"This ticket was already validated by %s at %s",
				*detail.CashierName,
				detail.ValidatedAt.Format("15:04:05"),
			)
		}
	}

	app.conflictResponse(w, r, message)
}

// CancelTicketHandler is the staff-initiated cancellation, releasing the held
// seats back to availability.
func (app *application) CancelTicketHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, err := app.readIDParam(r, "reservationId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	staff := app.contextGetStaff(r)

	err = app.reservationRepo.Cancel(r.Context(), reservationID, staff.ID)
	if err != nil {
		var stateConflict *domain.StateConflictError
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.As(err, &stateConflict):
			app.conflictResponse(w, r, fmt.Sprintf("cannot cancel a reservation that is %s", stateConflict.Current))
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := api.RedemptionResponse{
		Success: true,
		Message: "Reservation cancelled and seats released",
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toReservationSnapshot(detail *domain.ReservationDetail) *api.ReservationSnapshot {
	return &api.ReservationSnapshot{
		ReservationId: detail.ID,
		Code:          detail.Code,
		Status:        string(detail.Status),
		CustomerName:  detail.CustomerName,
		CustomerEmail: detail.CustomerEmail,
		MovieTitle:    detail.MovieTitle,
		RoomName:      detail.RoomName,
		Category:      detail.Category,
		StartsAt:      detail.StartsAt,
		SeatCount:     detail.SeatCount,
		Seats:         formatSeats(detail.Seats),
		TotalAmount:   detail.TotalAmount,
		Offer:         toOfferInfo(detail),
		ReservedAt:    detail.CreatedAt,
	}
}
