package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

type PostgresShowtimeRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowtimeRepository(db *pgxpool.Pool) *PostgresShowtimeRepository {
	return &PostgresShowtimeRepository{
		db: db,
	}
}

func (p *PostgresShowtimeRepository) GetByID(ctx context.Context, id int) (*domain.Showtime, error) {
	query := `
		SELECT
			s.id,
			s.movie_id,
			m.title,
			s.room_id,
			ro.name,
			s.starts_at,
			m.duration_min,
			s.category,
			s.base_price,
			ro.capacity,
			ro.seat_rows,
			ro.seats_per_row,
			s.active,
			s.created_at
		FROM showtimes s
		JOIN movies m ON s.movie_id = m.id
		JOIN rooms ro ON s.room_id = ro.id
		WHERE s.id = $1
	`

	var showtime domain.Showtime

	err := p.db.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.MovieID,
		&showtime.MovieTitle,
		&showtime.RoomID,
		&showtime.RoomName,
		&showtime.StartsAt,
		&showtime.DurationMin,
		&showtime.Category,
		&showtime.BasePrice,
		&showtime.Capacity,
		&showtime.SeatRows,
		&showtime.SeatsPerRow,
		&showtime.Active,
		&showtime.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &showtime, nil
}

func (p *PostgresShowtimeRepository) DeactivateStarted(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE showtimes
		SET active = FALSE
		WHERE active AND starts_at < $1
	`

	tag, err := p.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}
