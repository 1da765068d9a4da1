package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
)

type PostgresOfferRepository struct {
	db *pgxpool.Pool
}

func NewPostgresOfferRepository(db *pgxpool.Pool) *PostgresOfferRepository {
	return &PostgresOfferRepository{
		db: db,
	}
}

func (p *PostgresOfferRepository) GetByID(ctx context.Context, id int) (*domain.Offer, error) {
	query := `
		SELECT id, title, description, price, party_size, start_date, end_date, active, created_at
		FROM offers
		WHERE id = $1
	`

	var offer domain.Offer

	err := p.db.QueryRow(ctx, query, id).Scan(
		&offer.ID,
		&offer.Title,
		&offer.Description,
		&offer.Price,
		&offer.PartySize,
		&offer.StartDate,
		&offer.EndDate,
		&offer.Active,
		&offer.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &offer, nil
}

func (p *PostgresOfferRepository) GetActive(ctx context.Context) ([]domain.Offer, error) {
	query := `
		SELECT id, title, description, price, party_size, start_date, end_date, active, created_at
		FROM offers
		WHERE active
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	offers := make([]domain.Offer, 0)

	for rows.Next() {
		var offer domain.Offer

		err = rows.Scan(
			&offer.ID,
			&offer.Title,
			&offer.Description,
			&offer.Price,
			&offer.PartySize,
			&offer.StartDate,
			&offer.EndDate,
			&offer.Active,
			&offer.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		offers = append(offers, offer)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return offers, nil
}

func (p *PostgresOfferRepository) DeactivateExpired(ctx context.Context, today time.Time) (int, error) {
	query := `
		UPDATE offers
		SET active = FALSE
		WHERE active AND end_date IS NOT NULL AND end_date < $1
	`

	tag, err := p.db.Exec(ctx, query, today)
	if err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}
