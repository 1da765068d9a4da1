package app

import (
	"errors"
	"net/http"

	"github.com/selimok/cinema-ticketing-system/api"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

// GetShowtimeSeatsHandler returns the seat map for a showing. Availability is
// derived from the active seat holds on every request; there is no cached
// remaining-seats counter to drift out of sync.
func (app *application) GetShowtimeSeatsHandler(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readIDParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtime, err := app.showtimeRepo.GetByID(r.Context(), showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	holds, err := app.reservationRepo.HeldSeats(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	held := make(map[[2]int]bool, len(holds))
	for _, hold := range holds {
		held[[2]int{hold.Row, hold.Number}] = true
	}

	seatRows := make([]api.SeatRow, showtime.SeatRows)
	for row := 1; row <= showtime.SeatRows; row++ {
		seats := make([]api.Seat, showtime.SeatsPerRow)
		for number := 1; number <= showtime.SeatsPerRow; number++ {
			seats[number-1] = api.Seat{
				Row:       row,
				Number:    number,
				Available: !held[[2]int{row, number}],
			}
		}

		seatRows[row-1] = api.SeatRow{
			Row:   row,
			Seats: seats,
		}
	}

	resp := api.SeatMapResponse{
		ShowtimeId:     showtime.ID,
		RoomId:         showtime.RoomID,
		RoomName:       showtime.RoomName,
		StartsAt:       showtime.StartsAt,
		SeatsRemaining: showtime.Capacity - len(holds),
		SeatRows:       seatRows,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
