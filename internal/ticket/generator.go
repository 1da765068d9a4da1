// Package ticket produces and stores the redeemable ticket documents.
// Document layout is intentionally minimal; the generator is an interface so
// a richer renderer can be swapped in without touching the booking flow.
package ticket

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

type Generator interface {
	Generate(detail *domain.ReservationDetail) ([]byte, error)
}

var ticketTemplate = template.Must(template.New("ticket").Parse(`CINEMA TICKET
=============

Code:     {{.Code}}
Movie:    {{.MovieTitle}}
Room:     {{.RoomName}}
Starts:   {{.StartsAt.Format "02 Jan 2006 15:04"}}
Customer: {{.CustomerName}}
Seats:    {{range $i, $s := .Seats}}{{if $i}}, {{end}}R{{$s.Row}}-N{{$s.Number}}{{end}}
Total:    {{.TotalAmount}}

Present this code at the entrance. Valid for one admission only.
`))

// TextGenerator renders a plain-text ticket document.
type TextGenerator struct{}

func NewTextGenerator() TextGenerator {
	return TextGenerator{}
}

func (TextGenerator) Generate(detail *domain.ReservationDetail) ([]byte, error) {
	buf := new(bytes.Buffer)

	err := ticketTemplate.Execute(buf, detail)
	if err != nil {
		return nil, fmt.Errorf("failed to render ticket for %s: %w", detail.Code, err)
	}

	return buf.Bytes(), nil
}
