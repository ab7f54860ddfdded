package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tal-mizrahi/barberbook/internal/booking"
	"github.com/tal-mizrahi/barberbook/internal/config"
	"github.com/tal-mizrahi/barberbook/internal/db"
	"github.com/tal-mizrahi/barberbook/internal/handlers"
	"github.com/tal-mizrahi/barberbook/internal/httpx"
	"github.com/tal-mizrahi/barberbook/internal/model"
	"github.com/tal-mizrahi/barberbook/internal/notify"
	"github.com/tal-mizrahi/barberbook/internal/otelx"
	"github.com/tal-mizrahi/barberbook/internal/reconcile"
	"github.com/tal-mizrahi/barberbook/internal/runtime"
	"github.com/tal-mizrahi/barberbook/internal/storage"
	"github.com/tal-mizrahi/barberbook/internal/watch"
)

// recordTables are the candidate appointment stores in probe priority
// order. The first is authoritative: new bookings always land there. The
// rest are historical tables still holding live records until the one-time
// migration runs.
var recordTables = []string{
	"appointments",
	"client_appointments",
	"bookings",
	"appointments_legacy",
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "barberbook")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
	}

	// The hub snapshots through the reconciler, and the stores announce
	// through the hub; the load closure reads the reconciler variable
	// assigned just below, before anything runs.
	var records *reconcile.Reconciler
	hub := watch.NewHub(logger, func(ctx context.Context) ([]model.Appointment, error) {
		recs, err := records.ListAllMerged(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]model.Appointment, 0, len(recs))
		for _, rec := range recs {
			out = append(out, rec.Appointment)
		}
		return out, nil
	}, rdb, config.String("WATCH_CHANNEL", "appointments.changed"))

	stores := make([]reconcile.Store, 0, len(recordTables))
	var primary storage.AppointmentStore
	for _, table := range recordTables {
		st, err := storage.NewAppointmentTable(pool, table, hub)
		if err != nil {
			panic(err)
		}
		if primary == nil {
			primary = st
		}
		stores = append(stores, st)
	}
	records = reconcile.New(logger, stores...)
	windows := storage.NewUnavailabilityStore(pool)

	go hub.Run(ctx)

	var dispatcher notify.Dispatcher = &notify.LogDispatcher{Logger: logger}
	brokers := config.String("KAFKA_BROKERS", "")
	kafkaCheck := runtime.ReadyCheck{}
	if brokers != "" {
		kd, err := notify.NewKafkaDispatcher(brokers, logger)
		if err != nil {
			logger.Error("kafka dispatcher init failed; falling back to log dispatcher", "err", err)
		} else {
			dispatcher = kd
			defer kd.Close()
			kafkaCheck = runtime.ReadyCheck{Name: "kafka", Check: notify.ReadyCheck(brokers)}
		}
	}

	lifecycle := booking.NewLifecycle(primary, records, windows, dispatcher, logger)
	availability := booking.NewAvailability(records, windows, config.Int("BOOKING_HORIZON_DAYS", booking.DefaultHorizonDays))

	bookingHandler := handlers.NewBookingHandler(lifecycle, availability, logger)
	adminHandler := handlers.NewAdminHandler(lifecycle, records, windows, hub, logger)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		kafkaCheck,
	)

	publicLimit := config.Int("PUBLIC_RATE_LIMIT", 30)
	publicWindow := config.Duration("PUBLIC_RATE_WINDOW", time.Minute)
	var limit httpx.Middleware
	if rdb != nil {
		limit = httpx.NewRedisRateLimiter(rdb, publicLimit, publicWindow, "rl:public").Middleware(logger)
	} else {
		limit = httpx.NewRateLimiter(publicLimit, publicWindow).Middleware()
	}
	public := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, limit,
			httpx.WithTimeout(config.Duration("PUBLIC_TIMEOUT", 10*time.Second)),
			httpx.WithBodyLimit(64<<10))
	}

	mux.Handle("/api/v1/public/services", public(bookingHandler.Services))
	mux.Handle("/api/v1/public/dates", public(bookingHandler.Dates))
	mux.Handle("/api/v1/public/slots", public(bookingHandler.Slots))
	mux.Handle("/api/v1/public/book", public(bookingHandler.Book))

	mux.HandleFunc("/api/v1/appointments", adminHandler.Appointments)
	mux.HandleFunc("/api/v1/appointments/watch", adminHandler.Watch)
	mux.HandleFunc("/api/v1/appointments/approve", adminHandler.Approve)
	mux.HandleFunc("/api/v1/appointments/reject", adminHandler.Reject)
	mux.HandleFunc("/api/v1/appointments/cancel", adminHandler.Cancel)
	mux.HandleFunc("/api/v1/appointments/reinstate", adminHandler.Reinstate)
	mux.HandleFunc("/api/v1/unavailability", adminHandler.Unavailability)

	var origins []string
	for _, o := range strings.Split(config.String("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(origins),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
