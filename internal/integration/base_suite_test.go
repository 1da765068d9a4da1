package integration_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
	"github.com/selimok/cinema-ticketing-system/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "cinema_ticketing"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
)

type BaseSuite struct {
	suite.Suite
	db             *pgxpool.Pool
	redis          *redis.Client
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer

	users        *repository.PostgresUserRepository
	showtimes    *repository.PostgresShowtimeRepository
	offers       *repository.PostgresOfferRepository
	reservations *repository.PostgresReservationRepository
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	s.Require().NoError(err, "failed to start DB container")

	redisContainer, err := getCacheContainer(ctx)
	s.Require().NoError(err, "failed to start cache container")

	s.dbContainer = postgresContainer
	s.cacheContainer = redisContainer

	db, err := pgxpool.New(ctx, postgresContainer.ConnectionString)
	s.Require().NoError(err, "failed to create connection pool")

	s.db = db
	s.redis = redis.NewClient(&redis.Options{Addr: redisContainer.ConnectionString})

	s.users = repository.NewPostgresUserRepository(db)
	s.showtimes = repository.NewPostgresShowtimeRepository(db)
	s.offers = repository.NewPostgresOfferRepository(db)
	s.reservations = repository.NewPostgresReservationRepository(db)
}

func (s *BaseSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}

var (
	fixtureSeq int

	// fixturePasswordHash is computed once because bcrypt is deliberately slow.
	fixturePasswordHash []byte
)

const fixturePassword = "pa55word"

func (s *BaseSuite) passwordHash() []byte {
	if fixturePasswordHash == nil {
		var u domain.User
		s.Require().NoError(u.Password.Set(fixturePassword))
		fixturePasswordHash = u.Password.Hash
	}

	return fixturePasswordHash
}

// createUser inserts a user with a unique email and returns its id.
func (s *BaseSuite) createUser(role domain.Role) int {
	fixtureSeq++

	var id int
	err := s.db.QueryRow(
		context.Background(),
		`INSERT INTO users (first_name, last_name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		"Test", fmt.Sprintf("User%d", fixtureSeq), fmt.Sprintf("user%d@example.com", fixtureSeq),
		s.passwordHash(), role,
	).Scan(&id)
	s.Require().NoError(err)

	return id
}

// createShowtime inserts a movie, a room and a showtime starting at the given
// time, and returns the showtime id.
func (s *BaseSuite) createShowtime(startsAt time.Time) int {
	fixtureSeq++

	ctx := context.Background()

	var movieID int
	err := s.db.QueryRow(
		ctx,
		`INSERT INTO movies (title, duration_min) VALUES ($1, 120) RETURNING id`,
		fmt.Sprintf("Movie %d", fixtureSeq),
	).Scan(&movieID)
	s.Require().NoError(err)

	var roomID int
	err = s.db.QueryRow(
		ctx,
		`INSERT INTO rooms (name, seat_rows, seats_per_row, capacity)
		 VALUES ($1, 10, 10, 100)
		 RETURNING id`,
		fmt.Sprintf("Room %d", fixtureSeq),
	).Scan(&roomID)
	s.Require().NoError(err)

	var showtimeID int
	err = s.db.QueryRow(
		ctx,
		`INSERT INTO showtimes (movie_id, room_id, starts_at, base_price)
		 VALUES ($1, $2, $3, 12.00)
		 RETURNING id`,
		movieID, roomID, startsAt,
	).Scan(&showtimeID)
	s.Require().NoError(err)

	return showtimeID
}

func (s *BaseSuite) newReservation(customerID, showtimeID int, seats ...domain.SeatHold) *domain.Reservation {
	return &domain.Reservation{
		Code:        domain.NewReservationCode(),
		CustomerID:  customerID,
		ShowtimeID:  showtimeID,
		SeatCount:   len(seats),
		TotalAmount: decimal.NewFromInt(int64(12 * len(seats))),
		Status:      domain.StatusPending,
		Seats:       seats,
	}
}

func seat(row, number int) domain.SeatHold {
	return domain.SeatHold{Row: row, Number: number}
}

func (s *BaseSuite) markEmailSent(reservationID int, at time.Time) {
	_, err := s.db.Exec(
		context.Background(),
		`UPDATE reservations SET email_sent_at = $2 WHERE id = $1`,
		reservationID, at,
	)
	s.Require().NoError(err)
}
