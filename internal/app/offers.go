package app

import (
	"net/http"

	"github.com/selimok/cinema-ticketing-system/api"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

// GetApplicableOffersHandler lists the active offers valid today, optionally
// narrowed to those usable for a given party size.
func (app *application) GetApplicableOffersHandler(w http.ResponseWriter, r *http.Request) {
	partySize := app.readIntQuery(r, "partySize", 0)

	offers, err := app.offerRepo.GetActive(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	now := app.now()

	applicable := make([]api.OfferSummary, 0, len(offers))
	for _, offer := range offers {
		if !offer.WithinWindow(now) {
			continue
		}
		if partySize > 0 && !offer.AppliesToPartySize(partySize) {
			continue
		}

		applicable = append(applicable, toOfferSummary(offer))
	}

	resp := api.OfferListResponse{
		Offers: applicable,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toOfferSummary(offer domain.Offer) api.OfferSummary {
	return api.OfferSummary{
		Id:          offer.ID,
		Title:       offer.Title,
		Description: offer.Description,
		Price:       offer.Price,
		PartySize:   offer.PartySize,
		EndDate:     offer.EndDate,
	}
}
