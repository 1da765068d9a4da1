package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/selimok/cinema-ticketing-system/api"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
	"github.com/selimok/cinema-ticketing-system/internal/mailer"
	"github.com/shopspring/decimal"
)

const (
	// bookingCutoff is how close to the start of a showing bookings stay open.
	bookingCutoff = 4 * time.Hour

	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 50
)

func (app *application) CreateReservationHandler(w http.ResponseWriter, r *http.Request) {
	var req api.CreateReservationRequest

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

	if len(req.Seats) != req.SeatCount {
		app.businessRuleResponse(w, r, "seatCount must match the number of selected seats")
		return
	}

	customerID := app.contextGetCustomerID(r)

	showtime, err := app.showtimeRepo.GetByID(r.Context(), req.ShowtimeId)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	now := app.now()

	if !showtime.Active || now.After(showtime.StartsAt.Add(-bookingCutoff)) {
		app.businessRuleResponse(w, r, "bookings close 4 hours before the showing starts")
		return
	}

	seats, err := app.checkSeatSelection(r.Context(), showtime, req.Seats)
	if err != nil {
		var seatConflict *domain.SeatConflictError
		switch {
		case errors.As(err, &seatConflict):
			app.conflictResponse(w, r, seatConflict.Error())
		case errors.Is(err, errSeatOutOfRange), errors.Is(err, errDuplicateSeat):
			app.businessRuleResponse(w, r, err.Error())
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	pricePerSeat := showtime.BasePrice
	if req.OfferId != nil {
		offer, err := app.checkOffer(r.Context(), *req.OfferId, showtime, req.SeatCount, now)
		if err != nil {
			var ruleErr *domain.BusinessRuleError
			if errors.As(err, &ruleErr) {
				app.businessRuleResponse(w, r, ruleErr.Detail)
				return
			}
			app.serverErrorResponse(w, r, err)
			return
		}

		pricePerSeat = offer.EffectivePrice(showtime.BasePrice)
	}

	reservation := &domain.Reservation{
		Code:        domain.NewReservationCode(),
		CustomerID:  customerID,
		ShowtimeID:  showtime.ID,
		SeatCount:   req.SeatCount,
		TotalAmount: pricePerSeat.Mul(decimal.NewFromInt(int64(req.SeatCount))),
		OfferID:     req.OfferId,
		Status:      domain.StatusPending,
		Seats:       seats,
	}

	err = app.reservationRepo.Create(r.Context(), reservation)
	if err != nil {
		if errors.Is(err, domain.ErrEditConflict) {
			app.conflictResponse(w, r, ErrSeatJustTaken)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	app.reservationsCreated.Add(r.Context(), 1)

	detail, err := app.reservationRepo.GetByCode(r.Context(), reservation.Code)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	// The booking is already committed at this point, so ticket generation
	// and the email are best effort: failures are logged and the customer
	// can still present the reservation code.
	ticketData := app.generateTicket(r.Context(), detail)

	app.background(func() {
		app.sendBookingEmail(detail, ticketData)
	})

	err = app.writeJSON(w, http.StatusCreated, toReservationResponse(detail), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

var (
	errSeatOutOfRange = errors.New("seat does not exist in this room")
	errDuplicateSeat  = errors.New("the same seat is selected more than once")
)

// checkSeatSelection validates seats against the room grid and reports the
// first seat already held by another active reservation. The store-level
// unique index still backstops the race between this check and the insert.
func (app *application) checkSeatSelection(ctx context.Context, showtime *domain.Showtime, selections []api.SeatSelection) ([]domain.SeatHold, error) {
	seen := make(map[[2]int]bool, len(selections))
	seats := make([]domain.SeatHold, 0, len(selections))

	for _, sel := range selections {
		if sel.Row > showtime.SeatRows || sel.Number > showtime.SeatsPerRow {
			return nil, fmt.Errorf("seat row %d number %d: %w", sel.Row, sel.Number, errSeatOutOfRange)
		}

		key := [2]int{sel.Row, sel.Number}
		if seen[key] {
			return nil, fmt.Errorf("seat row %d number %d: %w", sel.Row, sel.Number, errDuplicateSeat)
		}
		seen[key] = true

		held, err := app.reservationRepo.IsSeatHeld(ctx, showtime.ID, sel.Row, sel.Number)
		if err != nil {
			return nil, err
		}
		if held {
			return nil, &domain.SeatConflictError{Row: sel.Row, Number: sel.Number}
		}

		seats = append(seats, domain.SeatHold{
			ShowtimeID: showtime.ID,
			Row:        sel.Row,
			Number:     sel.Number,
		})
	}

	return seats, nil
}

func (app *application) checkOffer(ctx context.Context, offerID int, showtime *domain.Showtime, seatCount int, now time.Time) (*domain.Offer, error) {
	offer, err := app.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewBusinessRuleError("offer", "offer %d does not exist or is no longer active", offerID)
		}
		return nil, err
	}

	if !offer.Active {
		return nil, domain.NewBusinessRuleError("offer", "offer %d does not exist or is no longer active", offerID)
	}

	if !offer.WithinWindow(now) {
		return nil, domain.NewBusinessRuleError("offer", "offer %q is not valid today", offer.Title)
	}

	if showtime.Category != domain.CategoryStandard {
		return nil, domain.NewBusinessRuleError("offer", "offers only apply to %s showings", domain.CategoryStandard)
	}

	if !offer.AppliesToPartySize(seatCount) {
		return nil, domain.NewBusinessRuleError("offer", "offer %q requires a party of exactly %d", offer.Title, *offer.PartySize)
	}

	return offer, nil
}

func (app *application) generateTicket(ctx context.Context, detail *domain.ReservationDetail) []byte {
	data, err := app.ticketGenerator.Generate(detail)
	if err != nil {
		app.logger.Error("failed to generate ticket", "reservation_code", detail.Code, "error", err)
		return nil
	}

	path, err := app.ticketStore.Save(detail.Code, data)
	if err != nil {
		app.logger.Error("failed to store ticket", "reservation_code", detail.Code, "error", err)
		return data
	}

	err = app.reservationRepo.SetTicketPath(ctx, detail.ID, path)
	if err != nil {
		app.logger.Error("failed to record ticket path", "reservation_code", detail.Code, "error", err)
	}

	return data
}

func (app *application) sendBookingEmail(detail *domain.ReservationDetail, ticketData []byte) {
	data := map[string]any{
		"customerName": detail.CustomerName,
		"movieTitle":   detail.MovieTitle,
		"startsAt":     detail.StartsAt.Format("02 Jan 2006 15:04"),
		"roomName":     detail.RoomName,
		"seats":        strings.Join(formatSeats(detail.Seats), ", "),
		"totalAmount":  detail.TotalAmount.StringFixed(2),
		"code":         detail.Code,
	}

	var err error
	if ticketData != nil {
		attachment := mailer.Attachment{
			Name: fmt.Sprintf("ticket_%s.txt", detail.Code),
			Data: ticketData,
		}
		err = app.mailer.SendWithAttachment(detail.CustomerEmail, "booking_success.tmpl", data, attachment)
	} else {
		err = app.mailer.Send(detail.CustomerEmail, "booking_success.tmpl", data)
	}

	if err != nil {
		app.logger.Error("failed to send booking email", "reservation_code", detail.Code, "error", err)
	}
}

func (app *application) ConfirmPresenceHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	now := app.now()

	err := app.reservationRepo.Confirm(r.Context(), code, now)
	if err != nil {
		var stateConflict *domain.StateConflictError
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.As(err, &stateConflict):
			app.conflictResponse(w, r, "this reservation has been cancelled and can no longer be confirmed")
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := api.ConfirmPresenceResponse{
		Confirmed:   true,
		ConfirmedAt: &now,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetReservationByCodeHandler(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	detail, err := app.reservationRepo.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toReservationResponse(detail), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetCustomerReservationsHandler(w http.ResponseWriter, r *http.Request) {
	customerID := app.contextGetCustomerID(r)

	pagination := domain.Pagination{
		Page:     app.readIntQuery(r, "page", DefaultPage),
		PageSize: app.readIntQuery(r, "pageSize", DefaultPageSize),
	}

	if pagination.Page < 1 {
		pagination.Page = DefaultPage
	}
	if pagination.PageSize < 1 || pagination.PageSize > MaxPageSize {
		pagination.PageSize = DefaultPageSize
	}

	summaries, metadata, err := app.reservationRepo.GetSummariesByCustomer(r.Context(), customerID, pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.CustomerReservationsResponse{
		Reservations: toReservationSummaries(summaries),
		Metadata:     toApiMetadata(metadata),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toReservationResponse(detail *domain.ReservationDetail) api.ReservationResponse {
	resp := api.ReservationResponse{
		Id:          detail.ID,
		Code:        detail.Code,
		Status:      string(detail.Status),
		ShowtimeId:  detail.ShowtimeID,
		MovieTitle:  detail.MovieTitle,
		RoomName:    detail.RoomName,
		StartsAt:    detail.StartsAt,
		SeatCount:   detail.SeatCount,
		Seats:       formatSeats(detail.Seats),
		TotalAmount: detail.TotalAmount,
		CreatedAt:   detail.CreatedAt,
	}

	if detail.TicketPath != nil {
		resp.TicketUrl = *detail.TicketPath
	}

	resp.Offer = toOfferInfo(detail)

	return resp
}

func toOfferInfo(detail *domain.ReservationDetail) *api.OfferInfo {
	if detail.OfferID == nil || detail.OfferTitle == nil || detail.OfferPrice == nil {
		return nil
	}

	return &api.OfferInfo{
		Id:    *detail.OfferID,
		Title: *detail.OfferTitle,
		Price: *detail.OfferPrice,
	}
}

func toReservationSummaries(summaries []domain.ReservationSummary) []api.ReservationSummary {
	out := make([]api.ReservationSummary, len(summaries))

	for i, v := range summaries {
		out[i] = api.ReservationSummary{
			Id:          v.ReservationID,
			Code:        v.Code,
			MovieTitle:  v.MovieTitle,
			RoomName:    v.RoomName,
			StartsAt:    v.StartsAt,
			SeatCount:   v.SeatCount,
			TotalAmount: v.TotalAmount,
			Status:      string(v.Status),
			CreatedAt:   v.CreatedAt,
		}
	}

	return out
}

func toApiMetadata(metadata *domain.Metadata) api.Metadata {
	return api.Metadata{
		CurrentPage:  metadata.CurrentPage,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		PageSize:     metadata.PageSize,
		TotalRecords: metadata.TotalRecords,
	}
}

func formatSeats(seats []domain.SeatHold) []string {
	out := make([]string, len(seats))
	for i, seat := range seats {
		out[i] = fmt.Sprintf("R%d-N%d", seat.Row, seat.Number)
	}

	return out
}
