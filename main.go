package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun"

	"ms-booking/internal/auth"
	"ms-booking/internal/bookings/booking_api"
	bookingdb "ms-booking/internal/bookings/db"
	"ms-booking/internal/bookings/pass"
	bookings "ms-booking/internal/bookings/service"
	"ms-booking/internal/config"
	"ms-booking/internal/database"
	"ms-booking/internal/database/migrations"
	eventdb "ms-booking/internal/events/db"
	"ms-booking/internal/events/event_api"
	events "ms-booking/internal/events/service"
	"ms-booking/internal/kafka"
	"ms-booking/internal/lock"
	"ms-booking/internal/logger"
	"ms-booking/internal/sse"
	userdb "ms-booking/internal/users/db"
	users "ms-booking/internal/users/service"
	"ms-booking/internal/users/user_api"
	"ms-booking/internal/utils"
	"ms-booking/internal/views"
)

// deps is everything the router needs; main owns their lifetimes.
type deps struct {
	cfg       *config.Config
	log       *logger.Logger
	bunDB     *bun.DB
	locker    lock.Locker
	verifier  auth.Verifier
	producer  *kafka.Producer
	emitter   *sse.AvailabilityEmitter
	passes    *pass.Generator
	redis     *redis.Client
	userStore *userdb.DB
}

func newRouter(d deps) http.Handler {
	eventStore := eventdb.New(d.bunDB)
	ledger := bookingdb.New(d.bunDB)

	eventService := events.NewService(d.bunDB, eventStore, d.locker, d.log)
	eventService.Notifier = d.emitter
	eventService.LockTimeout = d.cfg.Booking.LockWait

	bookingService := bookings.NewService(d.bunDB, eventStore, ledger, d.locker, d.log)
	bookingService.Notifier = d.emitter
	bookingService.LockTimeout = d.cfg.Booking.LockWait

	if d.producer != nil {
		eventService.Publisher = d.producer
		bookingService.Publisher = d.producer
	}

	userService := users.NewService(d.bunDB, d.userStore, eventStore, ledger, d.cfg.Auth.AdminRole, d.log)

	eventHandler := event_api.NewHandler(eventService, views.NewQuery(d.bunDB, eventStore, ledger), d.emitter, d.log)
	bookingHandler := booking_api.NewHandler(bookingService, d.passes, d.log)
	userHandler := user_api.NewHandler(userService, d.log)

	d.log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(logger.Middleware(d.log))

	// --- Public Routes ---
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.bunDB.PingContext(ctx); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Database unavailable", err.Error()))
			return
		}
		if d.redis != nil {
			if err := d.redis.Ping(ctx).Err(); err != nil {
				utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Redis unavailable", err.Error()))
				return
			}
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", nil))
	})

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.verifier, userService, d.cfg.Auth.AdminRole, d.log))
		d.log.Info("AUTH", "Bearer token middleware applied to protected routes")

		eventHandler.Register(r)
		d.log.Info("ROUTER", "Event routes registered under /events")
		bookingHandler.Register(r)
		d.log.Info("ROUTER", "Booking routes registered under /events/booking")
		userHandler.Register(r)
		d.log.Info("ROUTER", "User routes registered under /users")
	})

	return r
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) (auth.Verifier, error) {
	if cfg.OIDCIssuer != "" {
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
		if err != nil {
			return nil, err
		}
		log.Info("AUTH", fmt.Sprintf("Verifying bearer tokens against OIDC issuer %s", cfg.OIDCIssuer))
		return v, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("set OIDC_ISSUER or JWT_SECRET")
	}
	log.Warn("AUTH", "OIDC_ISSUER not set, verifying HMAC tokens signed with JWT_SECRET")
	return auth.NewHMACVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
}

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s not loaded, using environment variables\n", *envFile)
	}
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Dir, "booking-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	log.SetLevel(cfg.Log.Level)

	log.Info("APP", "Starting Booking Service initialization")
	if err := run(cfg, log); err != nil {
		log.Fatal("APP", err.Error())
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("APP", "Verifying database connections")
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if database.IsPostgres(bunDB) && cfg.Database.AutoMigrate {
		if err := migrations.NewRunner(bunDB, log).RunMigrations(); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("DATABASE", "✅ Migrations applied")
	}

	d := deps{
		cfg:       cfg,
		log:       log,
		bunDB:     bunDB,
		emitter:   sse.NewAvailabilityEmitter(),
		userStore: userdb.New(bunDB),
	}

	if cfg.Redis.Enabled() {
		d.redis, err = lock.Connect(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer d.redis.Close()
	}
	d.locker = lock.New(d.redis, cfg.Booking, log)

	if cfg.Kafka.Enabled {
		log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		d.producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer d.producer.Close()
		log.Info("KAFKA", "Kafka producer initialized successfully")
	}

	if cfg.Pass.UsesDefaultSecret() {
		log.Warn("SECURITY", "PASS_SECRET_KEY is the built-in default, booking passes can be forged; set a real secret")
	}
	if d.passes, err = pass.NewGenerator(cfg.Pass.SecretKey); err != nil {
		return fmt.Errorf("pass generator: %w", err)
	}
	if d.verifier, err = newVerifier(ctx, cfg.Auth, log); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// cancelled on shutdown so open availability streams return
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      newRouter(d),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	cancelStreams()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
		return err
	}
	log.Info("HTTP", "✅ Booking Service shutdown complete")
	return nil
}
