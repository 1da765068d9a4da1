package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

type PostgresReservationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresReservationRepository(db *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{
		db: db,
	}
}

// Create inserts the reservation and its seat holds in one transaction. The
// partial unique index on active seat holds is the last line of defense
// against two bookings racing for the same seat: losing that race surfaces as
// domain.ErrEditConflict so callers can retry with fresh availability.
func (p *PostgresReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO reservations (code, customer_id, showtime_id, seat_count, total_amount, offer_id, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			reservation.Code,
			reservation.CustomerID,
			reservation.ShowtimeID,
			reservation.SeatCount,
			reservation.TotalAmount,
			reservation.OfferID,
			reservation.Status,
		).Scan(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt)

		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(reservation.Seats))
		for i := range reservation.Seats {
			reservation.Seats[i].ReservationID = reservation.ID
			reservation.Seats[i].ShowtimeID = reservation.ShowtimeID

			rows = append(rows, []any{
				reservation.ID,
				reservation.ShowtimeID,
				reservation.Seats[i].Row,
				reservation.Seats[i].Number,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"seat_holds"},
			[]string{"reservation_id", "showtime_id", "seat_row", "seat_number"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return domain.ErrEditConflict
			}

			return err
		}

		return nil
	})
}

const reservationDetailQuery = `
	SELECT
		r.id,
		r.code,
		r.showtime_id,
		r.status,
		cu.first_name || ' ' || cu.last_name,
		cu.email,
		m.title,
		ro.name,
		s.category,
		s.starts_at,
		r.seat_count,
		r.total_amount,
		r.offer_id,
		o.title,
		o.price,
		r.ticket_path,
		r.email_sent_at,
		r.confirmed_at,
		r.validated_at,
		ca.first_name || ' ' || ca.last_name,
		r.created_at
	FROM reservations r
	JOIN users cu ON r.customer_id = cu.id
	JOIN showtimes s ON r.showtime_id = s.id
	JOIN movies m ON s.movie_id = m.id
	JOIN rooms ro ON s.room_id = ro.id
	LEFT JOIN offers o ON r.offer_id = o.id
	LEFT JOIN users ca ON r.cashier_id = ca.id
`

func (p *PostgresReservationRepository) GetByCode(ctx context.Context, code string) (*domain.ReservationDetail, error) {
	return p.getDetail(ctx, reservationDetailQuery+` WHERE r.code = $1`, code)
}

func (p *PostgresReservationRepository) GetByID(ctx context.Context, id int) (*domain.ReservationDetail, error) {
	return p.getDetail(ctx, reservationDetailQuery+` WHERE r.id = $1`, id)
}

func (p *PostgresReservationRepository) getDetail(ctx context.Context, query string, arg any) (*domain.ReservationDetail, error) {
	var detail domain.ReservationDetail

	err := p.db.QueryRow(ctx, query, arg).Scan(
		&detail.ID,
		&detail.Code,
		&detail.ShowtimeID,
		&detail.Status,
		&detail.CustomerName,
		&detail.CustomerEmail,
		&detail.MovieTitle,
		&detail.RoomName,
		&detail.Category,
		&detail.StartsAt,
		&detail.SeatCount,
		&detail.TotalAmount,
		&detail.OfferID,
		&detail.OfferTitle,
		&detail.OfferPrice,
		&detail.TicketPath,
		&detail.EmailSentAt,
		&detail.ConfirmedAt,
		&detail.ValidatedAt,
		&detail.CashierName,
		&detail.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	seats, err := p.retrieveSeatHolds(ctx, detail.ID)
	if err != nil {
		return nil, err
	}

	detail.Seats = seats

	return &detail, nil
}

func (p *PostgresReservationRepository) retrieveSeatHolds(ctx context.Context, reservationID int) ([]domain.SeatHold, error) {
	query := `
		SELECT reservation_id, showtime_id, seat_row, seat_number, released
		FROM seat_holds
		WHERE reservation_id = $1
		ORDER BY seat_row, seat_number
	`

	rows, err := p.db.Query(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.SeatHold, 0)

	for rows.Next() {
		var seat domain.SeatHold

		err = rows.Scan(&seat.ReservationID, &seat.ShowtimeID, &seat.Row, &seat.Number, &seat.Released)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (p *PostgresReservationRepository) GetSummariesByCustomer(
	ctx context.Context,
	customerID int,
	pagination domain.Pagination) ([]domain.ReservationSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			r.id,
			r.code,
			m.title,
			ro.name,
			s.starts_at,
			r.seat_count,
			r.total_amount,
			r.status,
			r.created_at
		FROM reservations r
		JOIN showtimes s ON r.showtime_id = s.id
		JOIN movies m ON s.movie_id = m.id
		JOIN rooms ro ON s.room_id = ro.id
		WHERE r.customer_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, customerID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	summaries := make([]domain.ReservationSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.ReservationSummary

		err := rows.Scan(
			&totalRecords,
			&summary.ReservationID,
			&summary.Code,
			&summary.MovieTitle,
			&summary.RoomName,
			&summary.StartsAt,
			&summary.SeatCount,
			&summary.TotalAmount,
			&summary.Status,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}

func (p *PostgresReservationRepository) HeldSeats(ctx context.Context, showtimeID int) ([]domain.SeatHold, error) {
	query := `
		SELECT reservation_id, showtime_id, seat_row, seat_number, released
		FROM seat_holds
		WHERE showtime_id = $1 AND NOT released
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.SeatHold, 0)

	for rows.Next() {
		var seat domain.SeatHold

		err = rows.Scan(&seat.ReservationID, &seat.ShowtimeID, &seat.Row, &seat.Number, &seat.Released)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (p *PostgresReservationRepository) IsSeatHeld(ctx context.Context, showtimeID, row, number int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM seat_holds
			WHERE showtime_id = $1 AND seat_row = $2 AND seat_number = $3 AND NOT released
		)
	`

	var held bool

	err := p.db.QueryRow(ctx, query, showtimeID, row, number).Scan(&held)
	if err != nil {
		return false, err
	}

	return held, nil
}

func (p *PostgresReservationRepository) SetTicketPath(ctx context.Context, reservationID int, path string) error {
	query := `
		UPDATE reservations
		SET ticket_path = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := p.db.Exec(ctx, query, reservationID, path)

	return err
}

// Confirm is idempotent: re-confirming keeps the first timestamp, and a
// redeemed ticket confirms as a no-op. Only a cancelled reservation rejects.
func (p *PostgresReservationRepository) Confirm(ctx context.Context, code string, at time.Time) error {
	query := `
		UPDATE reservations
		SET status = $2, confirmed_at = COALESCE(confirmed_at, $3), updated_at = NOW()
		WHERE code = $1 AND status IN ($4, $2)
	`

	tag, err := p.db.Exec(ctx, query, code, domain.StatusConfirmed, at, domain.StatusPending)
	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	status, err := p.statusByCode(ctx, code)
	if err != nil {
		return err
	}

	if status == domain.StatusRedeemed {
		return nil
	}

	return &domain.StateConflictError{Current: status, Attempted: domain.StatusConfirmed}
}

// Validate performs the exactly-once redemption: a compare-and-swap on the
// status restricted to the two legal source states. Under concurrent calls
// exactly one update wins; every loser gets a StateConflictError.
func (p *PostgresReservationRepository) Validate(ctx context.Context, reservationID, cashierID int, at time.Time) error {
	query := `
		UPDATE reservations
		SET status = $3, validated_at = $4, cashier_id = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($5, $6)
	`

	tag, err := p.db.Exec(
		ctx,
		query,
		reservationID,
		cashierID,
		domain.StatusRedeemed,
		at,
		domain.StatusPending,
		domain.StatusConfirmed,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	status, err := p.statusByID(ctx, reservationID)
	if err != nil {
		return err
	}

	return &domain.StateConflictError{Current: status, Attempted: domain.StatusRedeemed}
}

func (p *PostgresReservationRepository) Cancel(ctx context.Context, reservationID, cashierID int) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE reservations
			SET status = $3, cashier_id = $2, updated_at = NOW()
			WHERE id = $1 AND status IN ($4, $5)
		`

		tag, err := tx.Exec(
			ctx,
			query,
			reservationID,
			cashierID,
			domain.StatusCancelled,
			domain.StatusPending,
			domain.StatusConfirmed,
		)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			status, err := p.statusByID(ctx, reservationID)
			if err != nil {
				return err
			}

			return &domain.StateConflictError{Current: status, Attempted: domain.StatusCancelled}
		}

		return releaseSeatHolds(ctx, tx, []int{reservationID})
	})
}

func (p *PostgresReservationRepository) statusByCode(ctx context.Context, code string) (domain.ReservationStatus, error) {
	return p.status(ctx, `SELECT status FROM reservations WHERE code = $1`, code)
}

func (p *PostgresReservationRepository) statusByID(ctx context.Context, id int) (domain.ReservationStatus, error) {
	return p.status(ctx, `SELECT status FROM reservations WHERE id = $1`, id)
}

func (p *PostgresReservationRepository) status(ctx context.Context, query string, arg any) (domain.ReservationStatus, error) {
	var status domain.ReservationStatus

	err := p.db.QueryRow(ctx, query, arg).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrRecordNotFound
		}

		return "", err
	}

	return status, nil
}

func (p *PostgresReservationRepository) FindNeedingReminder(ctx context.Context, from, to time.Time) ([]domain.ReminderCandidate, error) {
	query := `
		SELECT
			r.id,
			r.code,
			cu.first_name || ' ' || cu.last_name,
			cu.email,
			m.title,
			ro.name,
			s.starts_at,
			r.seat_count
		FROM reservations r
		JOIN showtimes s ON r.showtime_id = s.id
		JOIN movies m ON s.movie_id = m.id
		JOIN rooms ro ON s.room_id = ro.id
		JOIN users cu ON r.customer_id = cu.id
		WHERE r.status = $1
			AND r.email_sent_at IS NULL
			AND s.starts_at >= $2
			AND s.starts_at < $3
	`

	rows, err := p.db.Query(ctx, query, domain.StatusPending, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]domain.ReminderCandidate, 0)

	for rows.Next() {
		var c domain.ReminderCandidate

		err = rows.Scan(
			&c.ReservationID,
			&c.Code,
			&c.CustomerName,
			&c.CustomerEmail,
			&c.MovieTitle,
			&c.RoomName,
			&c.StartsAt,
			&c.SeatCount,
		)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return candidates, nil
}

func (p *PostgresReservationRepository) MarkReminderSent(ctx context.Context, reservationID int, at time.Time) error {
	query := `
		UPDATE reservations
		SET email_sent_at = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := p.db.Exec(ctx, query, reservationID, at)

	return err
}

func (p *PostgresReservationRepository) CancelUnconfirmed(ctx context.Context, threshold time.Time) ([]string, error) {
	query := `
		UPDATE reservations
		SET status = $1, updated_at = NOW()
		WHERE status = $2
			AND confirmed_at IS NULL
			AND email_sent_at IS NOT NULL
			AND email_sent_at < $3
		RETURNING id, code
	`

	return p.cancelBatch(ctx, query, domain.StatusCancelled, domain.StatusPending, threshold)
}

func (p *PostgresReservationRepository) CancelNoShows(ctx context.Context, threshold time.Time) ([]string, error) {
	query := `
		UPDATE reservations r
		SET status = $1, updated_at = NOW()
		FROM showtimes s
		WHERE r.showtime_id = s.id
			AND r.status IN ($2, $3)
			AND s.starts_at < $4
		RETURNING r.id, r.code
	`

	return p.cancelBatch(ctx, query, domain.StatusCancelled, domain.StatusPending, domain.StatusConfirmed, threshold)
}

func (p *PostgresReservationRepository) cancelBatch(ctx context.Context, query string, args ...any) ([]string, error) {
	var codes []string

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		var ids []int

		for rows.Next() {
			var (
				id   int
				code string
			)

			if err := rows.Scan(&id, &code); err != nil {
				return err
			}

			ids = append(ids, id)
			codes = append(codes, code)
		}

		if err = rows.Err(); err != nil {
			return err
		}

		rows.Close()

		if len(ids) == 0 {
			return nil
		}

		return releaseSeatHolds(ctx, tx, ids)
	})

	if err != nil {
		return nil, err
	}

	return codes, nil
}

// releaseSeatHolds frees the index slots held by cancelled reservations
// without deleting the rows, so availability queries stop seeing them while
// the audit trail stays intact.
func releaseSeatHolds(ctx context.Context, tx pgx.Tx, reservationIDs []int) error {
	query := `
		UPDATE seat_holds
		SET released = TRUE
		WHERE reservation_id = ANY($1)
	`

	_, err := tx.Exec(ctx, query, reservationIDs)

	return err
}
