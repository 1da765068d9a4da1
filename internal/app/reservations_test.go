package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/selimok/cinema-ticketing-system/api"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
	"github.com/selimok/cinema-ticketing-system/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func validCreateRequest() api.CreateReservationRequest {
	return api.CreateReservationRequest{
		ShowtimeId: 1,
		SeatCount:  2,
		Seats: []api.SeatSelection{
			{Row: 3, Number: 5},
			{Row: 3, Number: 6},
		},
	}
}

var customerHeaders = map[string]string{"X-Customer-Id": "5"}

func TestCreateReservationHandler(t *testing.T) {
	tests := []struct {
		name           string
		request        api.CreateReservationRequest
		setupMocks     func(*mocks.MockShowtimeRepo, *mocks.MockOfferRepo, *mocks.MockReservationRepo)
		wantStatus     int
		wantErrMessage string
	}{
		{
			name:    "creates a pending reservation",
			request: validCreateRequest(),
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtimes.GetByIDFunc = getShowtime(testShowtime())
				reservations.On("IsSeatHeld", mock.Anything, 1, 3, 5).Return(false, nil)
				reservations.On("IsSeatHeld", mock.Anything, 1, 3, 6).Return(false, nil)
				reservations.On("Create", mock.Anything, mock.Anything).Return(nil)
				reservations.On("GetByCode", mock.Anything, mock.Anything).Return(testReservationDetail(), nil)
				reservations.On("SetTicketPath", mock.Anything, 7, mock.Anything).Return(nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "rejects a missing seat count",
			request: api.CreateReservationRequest{
				ShowtimeId: 1,
				Seats:      []api.SeatSelection{{Row: 1, Number: 1}},
			},
			setupMocks:     func(*mocks.MockShowtimeRepo, *mocks.MockOfferRepo, *mocks.MockReservationRepo) {},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "is required",
		},
		{
			name: "rejects a seat count that disagrees with the seat list",
			request: api.CreateReservationRequest{
				ShowtimeId: 1,
				SeatCount:  3,
				Seats:      []api.SeatSelection{{Row: 1, Number: 1}},
			},
			setupMocks:     func(*mocks.MockShowtimeRepo, *mocks.MockOfferRepo, *mocks.MockReservationRepo) {},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "seatCount must match the number of selected seats",
		},
		{
			name:    "rejects an unknown showtime",
			request: validCreateRequest(),
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtimes.GetByIDFunc = getShowtimeErr(domain.ErrRecordNotFound)
			},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name:    "rejects a booking inside the cutoff window",
			request: validCreateRequest(),
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtime := testShowtime()
				showtime.StartsAt = testNow.Add(2 * time.Hour)
				showtimes.GetByIDFunc = getShowtime(showtime)
			},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "bookings close 4 hours before the showing starts",
		},
		{
			name:    "rejects a booking for an inactive showtime",
			request: validCreateRequest(),
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtime := testShowtime()
				showtime.Active = false
				showtimes.GetByIDFunc = getShowtime(showtime)
			},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "bookings close 4 hours before the showing starts",
		},
		{
			name: "rejects a seat outside the room grid",
			request: api.CreateReservationRequest{
				ShowtimeId: 1,
				SeatCount:  1,
				Seats:      []api.SeatSelection{{Row: 11, Number: 1}},
			},
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtimes.GetByIDFunc = getShowtime(testShowtime())
			},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "seat row 11 number 1: seat does not exist in this room",
		},
		{
			name: "rejects a duplicated seat selection",
			request: api.CreateReservationRequest{
				ShowtimeId: 1,
				SeatCount:  2,
				Seats:      []api.SeatSelection{{Row: 2, Number: 4}, {Row: 2, Number: 4}},
			},
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtimes.GetByIDFunc = getShowtime(testShowtime())
				reservations.On("IsSeatHeld", mock.Anything, 1, 2, 4).Return(false, nil)
			},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "seat row 2 number 4: the same seat is selected more than once",
		},
		{
			name:    "names the seat that is already reserved",
			request: validCreateRequest(),
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtimes.GetByIDFunc = getShowtime(testShowtime())
				reservations.On("IsSeatHeld", mock.Anything, 1, 3, 5).Return(true, nil)
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: "seat row 3 number 5 is already reserved",
		},
		{
			name: "rejects an offer for the wrong party size",
			request: api.CreateReservationRequest{
				ShowtimeId: 1,
				SeatCount:  3,
				Seats:      []api.SeatSelection{{Row: 1, Number: 1}, {Row: 1, Number: 2}, {Row: 1, Number: 3}},
				OfferId:    ptr(9),
			},
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtimes.GetByIDFunc = getShowtime(testShowtime())
				for n := 1; n <= 3; n++ {
					reservations.On("IsSeatHeld", mock.Anything, 1, 1, n).Return(false, nil)
				}
				offers.GetByIDFunc = getOffer(&domain.Offer{
					ID:        9,
					Title:     "Duo Deal",
					PartySize: ptr(2),
					Active:    true,
				})
			},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: `offer "Duo Deal" requires a party of exactly 2`,
		},
		{
			name: "rejects an offer on a non-standard showing",
			request: api.CreateReservationRequest{
				ShowtimeId: 1,
				SeatCount:  2,
				Seats:      []api.SeatSelection{{Row: 3, Number: 5}, {Row: 3, Number: 6}},
				OfferId:    ptr(9),
			},
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtime := testShowtime()
				showtime.Category = "IMAX"
				showtimes.GetByIDFunc = getShowtime(showtime)
				reservations.On("IsSeatHeld", mock.Anything, 1, 3, 5).Return(false, nil)
				reservations.On("IsSeatHeld", mock.Anything, 1, 3, 6).Return(false, nil)
				offers.GetByIDFunc = getOffer(&domain.Offer{ID: 9, Title: "Duo Deal", PartySize: ptr(2), Active: true})
			},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "offers only apply to Standard showings",
		},
		{
			name:    "reports the seat race loss as a conflict",
			request: validCreateRequest(),
			setupMocks: func(showtimes *mocks.MockShowtimeRepo, offers *mocks.MockOfferRepo, reservations *mocks.MockReservationRepo) {
				showtimes.GetByIDFunc = getShowtime(testShowtime())
				reservations.On("IsSeatHeld", mock.Anything, 1, 3, 5).Return(false, nil)
				reservations.On("IsSeatHeld", mock.Anything, 1, 3, 6).Return(false, nil)
				reservations.On("Create", mock.Anything, mock.Anything).Return(domain.ErrEditConflict)
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: ErrSeatJustTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			showtimes := &mocks.MockShowtimeRepo{}
			offers := &mocks.MockOfferRepo{}
			reservations := new(mocks.MockReservationRepo)
			generator := new(mocks.MockTicketGenerator)
			store := new(mocks.MockTicketStore)

			generator.On("Generate", mock.Anything).Return([]byte("TICKET"), nil).Maybe()
			store.On("Save", mock.Anything, mock.Anything).Return("/tickets/ticket.txt", nil).Maybe()

			tt.setupMocks(showtimes, offers, reservations)

			app := newTestApplication(func(a *application) {
				a.showtimeRepo = showtimes
				a.offerRepo = offers
				a.reservationRepo = reservations
				a.ticketGenerator = generator
				a.ticketStore = store
			})

			w := executeRequest(t, app, http.MethodPost, "/reservations", tt.request, customerHeaders)

			checkErrorResponse(t, w, tt.wantStatus, tt.wantErrMessage)

			if tt.wantStatus == http.StatusCreated {
				resp := decodeResponse[api.ReservationResponse](t, w)
				assert.Equal(t, string(domain.StatusPending), resp.Status)
				assert.Equal(t, []string{"R3-N5", "R3-N6"}, resp.Seats)
				assert.NotEmpty(t, resp.Code)
			}
		})
	}
}

func TestCreateReservationHandlerSurvivesTicketFailure(t *testing.T) {
	showtimes := &mocks.MockShowtimeRepo{GetByIDFunc: getShowtime(testShowtime())}

	reservations := new(mocks.MockReservationRepo)
	reservations.On("IsSeatHeld", mock.Anything, 1, 3, 5).Return(false, nil)
	reservations.On("IsSeatHeld", mock.Anything, 1, 3, 6).Return(false, nil)
	reservations.On("Create", mock.Anything, mock.Anything).Return(nil)
	reservations.On("GetByCode", mock.Anything, mock.Anything).Return(testReservationDetail(), nil)

	generator := new(mocks.MockTicketGenerator)
	generator.On("Generate", mock.Anything).Return(nil, errors.New("render failed"))

	store := new(mocks.MockTicketStore)

	app := newTestApplication(func(a *application) {
		a.showtimeRepo = showtimes
		a.reservationRepo = reservations
		a.ticketGenerator = generator
		a.ticketStore = store
	})

	w := executeRequest(t, app, http.MethodPost, "/reservations", validCreateRequest(), customerHeaders)

	// The booking is already committed; a failed ticket document must not
	// turn it into an error.
	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse[api.ReservationResponse](t, w)
	assert.NotEmpty(t, resp.Code)

	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	reservations.AssertNotCalled(t, "SetTicketPath", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateReservationHandlerRequiresCustomer(t *testing.T) {
	app := newTestApplication()

	w := executeRequest(t, app, http.MethodPost, "/reservations", validCreateRequest(), nil)

	checkErrorResponse(t, w, http.StatusUnauthorized, ErrUnauthorizedAccess)
}

func TestConfirmPresenceHandler(t *testing.T) {
	tests := []struct {
		name           string
		confirmErr     error
		wantStatus     int
		wantErrMessage string
	}{
		{
			name:       "confirms a pending reservation",
			wantStatus: http.StatusOK,
		},
		{
			name:           "returns not found for an unknown code",
			confirmErr:     domain.ErrRecordNotFound,
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name:           "rejects confirming a cancelled reservation",
			confirmErr:     &domain.StateConflictError{Current: domain.StatusCancelled, Attempted: domain.StatusConfirmed},
			wantStatus:     http.StatusConflict,
			wantErrMessage: "this reservation has been cancelled and can no longer be confirmed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reservations := new(mocks.MockReservationRepo)
			reservations.On("Confirm", mock.Anything, "some-code", testNow).Return(tt.confirmErr)

			app := newTestApplication(func(a *application) {
				a.reservationRepo = reservations
			})

			w := executeRequest(t, app, http.MethodPost, "/reservations/some-code/confirm", nil, nil)

			checkErrorResponse(t, w, tt.wantStatus, tt.wantErrMessage)

			if tt.wantStatus == http.StatusOK {
				resp := decodeResponse[api.ConfirmPresenceResponse](t, w)
				assert.True(t, resp.Confirmed)
				assert.NotNil(t, resp.ConfirmedAt)
			}
		})
	}
}

func TestGetReservationByCodeHandler(t *testing.T) {
	detail := testReservationDetail()

	reservations := new(mocks.MockReservationRepo)
	reservations.On("GetByCode", mock.Anything, detail.Code).Return(detail, nil)
	reservations.On("GetByCode", mock.Anything, "missing").Return(nil, domain.ErrRecordNotFound)

	app := newTestApplication(func(a *application) {
		a.reservationRepo = reservations
	})

	w := executeRequest(t, app, http.MethodGet, "/reservations/"+detail.Code, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse[api.ReservationResponse](t, w)
	assert.Equal(t, detail.Code, resp.Code)
	assert.Equal(t, detail.MovieTitle, resp.MovieTitle)

	w = executeRequest(t, app, http.MethodGet, "/reservations/missing", nil, nil)
	checkErrorResponse(t, w, http.StatusNotFound, ErrNotFound)
}

func TestGetCustomerReservationsHandler(t *testing.T) {
	summaries := []domain.ReservationSummary{
		{ReservationID: 1, Code: "code-1", MovieTitle: "The Matrix", Status: domain.StatusPending},
		{ReservationID: 2, Code: "code-2", MovieTitle: "Alien", Status: domain.StatusRedeemed},
	}

	reservations := new(mocks.MockReservationRepo)
	reservations.On(
		"GetSummariesByCustomer",
		mock.Anything,
		5,
		domain.Pagination{Page: 2, PageSize: 10},
	).Return(summaries, domain.NewMetadata(12, 2, 10), nil)

	app := newTestApplication(func(a *application) {
		a.reservationRepo = reservations
	})

	w := executeRequest(t, app, http.MethodGet, "/reservations?page=2", nil, customerHeaders)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse[api.CustomerReservationsResponse](t, w)
	assert.Len(t, resp.Reservations, 2)
	assert.Equal(t, 12, resp.Metadata.TotalRecords)
	assert.Equal(t, 2, resp.Metadata.CurrentPage)
}

func getShowtime(showtime *domain.Showtime) func(ctx context.Context, id int) (*domain.Showtime, error) {
	return func(context.Context, int) (*domain.Showtime, error) {
		return showtime, nil
	}
}

func getShowtimeErr(err error) func(ctx context.Context, id int) (*domain.Showtime, error) {
	return func(context.Context, int) (*domain.Showtime, error) {
		return nil, err
	}
}

func getOffer(offer *domain.Offer) func(ctx context.Context, id int) (*domain.Offer, error) {
	return func(context.Context, int) (*domain.Offer, error) {
		return offer, nil
	}
}
