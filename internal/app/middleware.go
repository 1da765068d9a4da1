package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

type contextKey string

const (
	customerIDContextKey = contextKey("customerID")
	staffContextKey      = contextKey("staff")
)

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requireCustomer resolves the acting customer from the X-Customer-Id header
// set by the authenticating gateway in front of this service.
func (app *application) requireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customerID, err := strconv.Atoi(r.Header.Get("X-Customer-Id"))
		if err != nil || customerID < 1 {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), customerIDContextKey, customerID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireStaff resolves the acting staff member from the X-Staff-Id header and
// checks that their role allows driving the redemption workflow.
func (app *application) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		staffID, err := strconv.Atoi(r.Header.Get("X-Staff-Id"))
		if err != nil || staffID < 1 {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		staff, err := app.userRepo.GetByID(r.Context(), staffID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				app.unauthorizedAccessResponse(w, r)
				return
			}
			app.serverErrorResponse(w, r, err)
			return
		}

		if !staff.CanRedeem() {
			app.forbiddenAccessResponse(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), staffContextKey, staff)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) contextGetCustomerID(r *http.Request) int {
	customerID, ok := r.Context().Value(customerIDContextKey).(int)
	if !ok {
		panic("missing customer id in request context")
	}

	return customerID
}

func (app *application) contextGetStaff(r *http.Request) *domain.User {
	staff, ok := r.Context().Value(staffContextKey).(*domain.User)
	if !ok {
		panic("missing staff user in request context")
	}

	return staff
}
