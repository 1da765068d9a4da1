package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/selimok/cinema-ticketing-system/api"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
	"github.com/selimok/cinema-ticketing-system/internal/mailer"
	"github.com/selimok/cinema-ticketing-system/internal/validator"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestApplication(opts ...func(*application)) *application {
	counter, _ := newReservationsCreatedCounter()

	app := &application{
		validator:           validator.NewValidator(),
		logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		mailer:              mailer.NewMockMailer(),
		reservationsCreated: counter,
		now:                 func() time.Time { return testNow },
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func executeRequest(t *testing.T, app *application, method, url string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		r.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	app.routes().ServeHTTP(w, r)

	return w
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	return out
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantErrMessage string) {
	t.Helper()

	if w.Code != wantStatus {
		t.Errorf("status = %d, want %d", w.Code, wantStatus)
	}

	if wantStatus >= 200 && wantStatus < 300 {
		return
	}

	switch wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("failed to decode validation error response: %v", err)
		}

		if validationResp.Message == wantErrMessage {
			return
		}

		for _, vErr := range validationResp.ValidationErrors {
			if vErr.Issue == wantErrMessage {
				return
			}
		}

		t.Errorf("expected error message %q not found in response", wantErrMessage)

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("failed to decode error response: %v", err)
		}

		if wantErrMessage != "" && errorResp.Message != wantErrMessage {
			t.Errorf("error message = %q, want %q", errorResp.Message, wantErrMessage)
		}
	}
}

func testShowtime() *domain.Showtime {
	return &domain.Showtime{
		ID:          1,
		MovieID:     1,
		MovieTitle:  "The Matrix",
		RoomID:      2,
		RoomName:    "Room 1",
		StartsAt:    testNow.Add(5 * time.Hour),
		DurationMin: 136,
		Category:    domain.CategoryStandard,
		BasePrice:   decimal.NewFromInt(12),
		Capacity:    100,
		SeatRows:    10,
		SeatsPerRow: 10,
		Active:      true,
	}
}

func testReservationDetail() *domain.ReservationDetail {
	return &domain.ReservationDetail{
		ID:            7,
		Code:          "8d9f2c41-5a3e-4f7b-9c1d-2e6a8b4f0d73",
		ShowtimeID:    1,
		Status:        domain.StatusPending,
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		MovieTitle:    "The Matrix",
		RoomName:      "Room 1",
		Category:      domain.CategoryStandard,
		StartsAt:      testNow.Add(5 * time.Hour),
		SeatCount:     2,
		TotalAmount:   decimal.NewFromInt(24),
		Seats: []domain.SeatHold{
			{ReservationID: 7, ShowtimeID: 1, Row: 3, Number: 5},
			{ReservationID: 7, ShowtimeID: 1, Row: 3, Number: 6},
		},
		CreatedAt: testNow,
	}
}

func testCashier() *domain.User {
	return &domain.User{
		ID:        42,
		FirstName: "Carl",
		LastName:  "Cash",
		Email:     "carl@example.com",
		Role:      domain.RoleCashier,
		Active:    true,
	}
}

func ptr[T any](v T) *T {
	return &v
}
