// Package reconcile contains the periodic sweeps that keep reservation state
// honest: reminder emails, lapsed-confirmation and no-show cancellations,
// showtime deactivation, offer expiry, and ticket file retention.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/selimok/cinema-ticketing-system/internal/domain"
	"github.com/selimok/cinema-ticketing-system/internal/mailer"
	"github.com/selimok/cinema-ticketing-system/internal/scheduler"
	"github.com/selimok/cinema-ticketing-system/internal/ticket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// reminderLead is how long before the showtime the confirmation email
	// goes out; reminderWindow matches the sweep interval so each sweep
	// picks up one disjoint slice of upcoming showtimes.
	reminderLead   = 3 * time.Hour
	reminderWindow = 10 * time.Minute

	// confirmGrace is how long a customer has after the reminder email to
	// confirm presence before the reservation is cancelled.
	confirmGrace = time.Hour

	// noShowGrace is how long after the showtime starts an unredeemed
	// reservation survives.
	noShowGrace = 30 * time.Minute

	// ticketRetention is how long generated ticket documents are kept.
	ticketRetention = 30 * 24 * time.Hour
)

type Reconciler struct {
	reservations domain.ReservationRepository
	showtimes    domain.ShowtimeRepository
	offers       domain.OfferRepository
	tickets      ticket.Store
	mailer       mailer.Mailer
	frontendURL  string
	logger       *slog.Logger

	// now is swappable so tests can pin the sweep windows.
	now func() time.Time

	processed metric.Int64Counter
}

func New(
	reservations domain.ReservationRepository,
	showtimes domain.ShowtimeRepository,
	offers domain.OfferRepository,
	tickets ticket.Store,
	mailer mailer.Mailer,
	frontendURL string,
	logger *slog.Logger,
) (*Reconciler, error) {
	meter := otel.Meter("github.com/selimok/cinema-ticketing-system/internal/reconcile")

	processed, err := meter.Int64Counter(
		"reconcile.records.processed",
		metric.WithDescription("Records handled by reconciliation sweeps, by sweep and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconcile counter: %w", err)
	}

	return &Reconciler{
		reservations: reservations,
		showtimes:    showtimes,
		offers:       offers,
		tickets:      tickets,
		mailer:       mailer,
		frontendURL:  frontendURL,
		logger:       logger,
		now:          time.Now,
		processed:    processed,
	}, nil
}

// Tasks returns the six sweeps wired to their intervals, ready to hand to the
// scheduler.
func (r *Reconciler) Tasks() []scheduler.Task {
	return []scheduler.Task{
		{Name: "send-reminders", Interval: 10 * time.Minute, Run: r.SendReminders},
		{Name: "cancel-unconfirmed", Interval: 5 * time.Minute, Run: r.CancelUnconfirmed},
		{Name: "cancel-no-shows", Interval: 15 * time.Minute, Run: r.CancelNoShows},
		{Name: "deactivate-showtimes", Interval: 5 * time.Minute, Run: r.DeactivateShowtimes},
		{Name: "expire-offers", Interval: 24 * time.Hour, Run: r.ExpireOffers},
		{Name: "cleanup-ticket-files", Interval: 24 * time.Hour, Run: r.CleanupTicketFiles},
	}
}

// SendReminders emails the presence confirmation request for reservations
// whose showtime starts in roughly three hours. One failing recipient does
// not block the rest of the batch.
func (r *Reconciler) SendReminders(ctx context.Context) error {
	from := r.now().Add(reminderLead)
	to := from.Add(reminderWindow)

	candidates, err := r.reservations.FindNeedingReminder(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to load reminder candidates: %w", err)
	}

	var sent, failed int

	for _, candidate := range candidates {
		err := r.sendReminder(ctx, candidate)
		if err != nil {
			failed++
			r.logger.Error("failed to send presence reminder",
				"reservation_code", candidate.Code, "error", err)
			r.count(ctx, "send-reminders", "failed", 1)
			continue
		}

		sent++
		r.count(ctx, "send-reminders", "ok", 1)
	}

	if sent > 0 || failed > 0 {
		r.logger.Info("presence reminders processed", "sent", sent, "failed", failed)
	}

	return nil
}

func (r *Reconciler) sendReminder(ctx context.Context, candidate domain.ReminderCandidate) error {
	data := map[string]any{
		"customerName":     candidate.CustomerName,
		"movieTitle":       candidate.MovieTitle,
		"startsAt":         candidate.StartsAt.Format("02 Jan 2006 15:04"),
		"roomName":         candidate.RoomName,
		"seatCount":        candidate.SeatCount,
		"code":             candidate.Code,
		"confirmationLink": fmt.Sprintf("%s/reservations/%s/confirm", r.frontendURL, candidate.Code),
	}

	err := r.mailer.Send(candidate.CustomerEmail, "presence_reminder.tmpl", data)
	if err != nil {
		return err
	}

	return r.reservations.MarkReminderSent(ctx, candidate.ReservationID, r.now())
}

// CancelUnconfirmed cancels reservations whose reminder went out over an hour
// ago without the customer confirming presence.
func (r *Reconciler) CancelUnconfirmed(ctx context.Context) error {
	threshold := r.now().Add(-confirmGrace)

	codes, err := r.reservations.CancelUnconfirmed(ctx, threshold)
	if err != nil {
		return fmt.Errorf("failed to cancel unconfirmed reservations: %w", err)
	}

	if len(codes) > 0 {
		r.logger.Info("cancelled unconfirmed reservations", "count", len(codes), "codes", codes)
		r.count(ctx, "cancel-unconfirmed", "ok", len(codes))
	}

	return nil
}

// CancelNoShows cancels reservations that were never redeemed within half an
// hour of their showtime starting.
func (r *Reconciler) CancelNoShows(ctx context.Context) error {
	threshold := r.now().Add(-noShowGrace)

	codes, err := r.reservations.CancelNoShows(ctx, threshold)
	if err != nil {
		return fmt.Errorf("failed to cancel no-show reservations: %w", err)
	}

	if len(codes) > 0 {
		r.logger.Info("cancelled no-show reservations", "count", len(codes), "codes", codes)
		r.count(ctx, "cancel-no-shows", "ok", len(codes))
	}

	return nil
}

// DeactivateShowtimes closes bookings for showtimes that have started.
func (r *Reconciler) DeactivateShowtimes(ctx context.Context) error {
	n, err := r.showtimes.DeactivateStarted(ctx, r.now())
	if err != nil {
		return fmt.Errorf("failed to deactivate started showtimes: %w", err)
	}

	if n > 0 {
		r.logger.Info("deactivated started showtimes", "count", n)
		r.count(ctx, "deactivate-showtimes", "ok", n)
	}

	return nil
}

// ExpireOffers deactivates offers whose validity window has closed.
func (r *Reconciler) ExpireOffers(ctx context.Context) error {
	n, err := r.offers.DeactivateExpired(ctx, r.now())
	if err != nil {
		return fmt.Errorf("failed to expire offers: %w", err)
	}

	if n > 0 {
		r.logger.Info("deactivated expired offers", "count", n)
		r.count(ctx, "expire-offers", "ok", n)
	}

	return nil
}

// CleanupTicketFiles removes ticket documents past the retention period. The
// reservation rows themselves are kept.
func (r *Reconciler) CleanupTicketFiles(ctx context.Context) error {
	removed, err := r.tickets.RemoveOlderThan(r.now().Add(-ticketRetention))
	if err != nil {
		return fmt.Errorf("failed to clean up ticket files: %w", err)
	}

	if removed > 0 {
		r.logger.Info("removed expired ticket files", "count", removed)
		r.count(ctx, "cleanup-ticket-files", "ok", removed)
	}

	return nil
}

func (r *Reconciler) count(ctx context.Context, sweep, outcome string, n int) {
	r.processed.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("sweep", sweep),
		attribute.String("outcome", outcome),
	))
}
