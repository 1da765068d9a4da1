package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"github.com/selimok/cinema-ticketing-system/internal/domain"
	"github.com/selimok/cinema-ticketing-system/internal/mailer"
	"github.com/selimok/cinema-ticketing-system/internal/reconcile"
	"github.com/selimok/cinema-ticketing-system/internal/repository"
	"github.com/selimok/cinema-ticketing-system/internal/scheduler"
	"github.com/selimok/cinema-ticketing-system/internal/ticket"
	appvalidator "github.com/selimok/cinema-ticketing-system/internal/validator"
	"github.com/selimok/cinema-ticketing-system/internal/vcs"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	version = vcs.Version()
)

type application struct {
	config    config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate
	mailer    mailer.Mailer

	userRepo        domain.UserRepository
	showtimeRepo    domain.ShowtimeRepository
	offerRepo       domain.OfferRepository
	reservationRepo domain.ReservationRepository

	ticketGenerator ticket.Generator
	ticketStore     ticket.Store

	reservationsCreated metric.Int64Counter

	// now is swappable so tests can pin the booking cutoff and the
	// verification warning windows.
	now func() time.Time
}

type config struct {
	port int
	env  string
	db   struct {
		dsn          string
		maxOpenConns int
		maxIdleTime  time.Duration
	}
	redis struct {
		url          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  time.Duration
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	otelCollectorUrl string
	frontendUrl      string
	ticketDir        string
}

func Run() error {
	var cfg config

	flag.IntVar(&cfg.port, "port", 3000, "server port")
	flag.StringVar(&cfg.env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.db.dsn, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.db.maxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.redis.url, "redis-url", "", "Redis URL (empty disables cross-instance sweep locks)")
	flag.IntVar(&cfg.redis.maxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.redis.maxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.redis.maxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.smtp.host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "Cinema <no-reply@cinema.selimok.net>", "SMTP sender")

	flag.StringVar(&cfg.otelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")
	flag.StringVar(&cfg.frontendUrl, "frontend-url", "http://localhost:4000", "Base URL used in confirmation links")
	flag.StringVar(&cfg.ticketDir, "ticket-dir", "./tickets", "Directory for generated ticket documents")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	textHandler := slog.NewTextHandler(os.Stdout, nil)
	logger := slog.New(textHandler)

	app := &application{
		config:    cfg,
		logger:    logger,
		validator: appvalidator.NewValidator(),
		now:       time.Now,
	}

	telemetryShutdown, err := app.initTelemetry()
	if err != nil {
		return err
	}
	defer telemetryShutdown(context.Background())

	if cfg.otelCollectorUrl != "" {
		app.logger = slog.New(NewMultiHandler(textHandler, otelslog.NewHandler("cinema-ticketing-api")))
	}

	app.reservationsCreated, err = newReservationsCreatedCounter()
	if err != nil {
		return err
	}

	db, err := newDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		app.redis = redisClient
	}

	ticketStore, err := ticket.NewFileStore(cfg.ticketDir)
	if err != nil {
		return err
	}

	app.db = db
	app.mailer = mailer.NewSMTPMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender)
	app.userRepo = repository.NewPostgresUserRepository(db)
	app.showtimeRepo = repository.NewPostgresShowtimeRepository(db)
	app.offerRepo = repository.NewPostgresOfferRepository(db)
	app.reservationRepo = repository.NewPostgresReservationRepository(db)
	app.ticketGenerator = ticket.NewTextGenerator()
	app.ticketStore = ticketStore

	reconciler, err := reconcile.New(
		app.reservationRepo,
		app.showtimeRepo,
		app.offerRepo,
		app.ticketStore,
		app.mailer,
		cfg.frontendUrl,
		app.logger,
	)
	if err != nil {
		return err
	}

	sched := scheduler.New(app.logger, app.redis)
	sched.Register(reconciler.Tasks()...)

	return app.run(sched)
}

func newReservationsCreatedCounter() (metric.Int64Counter, error) {
	meter := otel.Meter("github.com/selimok/cinema-ticketing-system/internal/app")

	return meter.Int64Counter(
		"reservations.created",
		metric.WithDescription("Reservations successfully created"),
	)
}

func newRedisClient(cfg config) (*redis.Client, error) {
	if cfg.redis.url == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.redis.url,
		MaxIdleConns:    cfg.redis.maxIdleConns,
		MaxActiveConns:  cfg.redis.maxOpenConns,
		ConnMaxIdleTime: cfg.redis.maxIdleTime,
	})

	err := redisotel.InstrumentTracing(rdb)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.db.maxIdleTime
	config.MaxConns = int32(cfg.db.maxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *application) run(sched *scheduler.Scheduler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	sched.Start()

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
			return
		}

		sched.Stop()

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("cinema-ticketing-api", otelchi.WithChiRoutes(r)))
	r.Use(app.recoverPanic)

	r.Get("/health", app.HealthcheckHandler)

	r.Get("/showtimes/{showtimeId}/seats", app.GetShowtimeSeatsHandler)
	r.Get("/offers/applicable", app.GetApplicableOffersHandler)

	r.Get("/reservations/{code}", app.GetReservationByCodeHandler)
	r.Post("/reservations/{code}/confirm", app.ConfirmPresenceHandler)

	r.With(app.requireCustomer).Group(func(r chi.Router) {
		r.Post("/reservations", app.CreateReservationHandler)
		r.Get("/reservations", app.GetCustomerReservationsHandler)
	})

	r.With(app.requireStaff).Route("/tickets", func(r chi.Router) {
		r.Post("/verify", app.VerifyTicketHandler)
		r.Post("/{reservationId}/validate", app.ValidateTicketHandler)
		r.Post("/{reservationId}/cancel", app.CancelTicketHandler)
	})

	return r
}
