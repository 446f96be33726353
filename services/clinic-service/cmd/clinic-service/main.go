package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mahfuz-rahman/clinicsched/libs/config"
	"github.com/mahfuz-rahman/clinicsched/libs/db"
	"github.com/mahfuz-rahman/clinicsched/libs/httpx"
	"github.com/mahfuz-rahman/clinicsched/libs/kafkax"
	otelx "github.com/mahfuz-rahman/clinicsched/libs/otel"
	"github.com/mahfuz-rahman/clinicsched/libs/runtime"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/handlers"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/outbox"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/scheduling"
	"github.com/mahfuz-rahman/clinicsched/services/clinic-service/internal/storage"
)

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "clinic-service")
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
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 2)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	apptRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	patientRepo := storage.NewPatientRepository(pool)
	doctorRepo := storage.NewDoctorRepository(pool)
	medicationRepo := storage.NewMedicationRepository(pool)

	policy := scheduling.DefaultPolicy()
	policy.OpeningHour = config.Int("CLINIC_OPENING_HOUR", policy.OpeningHour)
	policy.ClosingHour = config.Int("CLINIC_CLOSING_HOUR", policy.ClosingHour)
	policy.CancellationNotice = config.Duration("CLINIC_CANCELLATION_NOTICE", policy.CancellationNotice)
	scheduler := scheduling.NewScheduler(apptRepo,
		scheduling.WithPolicy(policy),
		scheduling.WithLogger(logger),
	)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMiddleware httpx.Middleware
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		rdb := redis.NewClient(redisOpts)
		defer func() { _ = rdb.Close() }()
		rateLimitMiddleware = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service).Middleware(logger, true)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		rateLimitMiddleware = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	apptHandler := handlers.NewAppointmentHandler(scheduler, logger)
	patientHandler := handlers.NewPatientHandler(patientRepo, logger)
	doctorHandler := handlers.NewDoctorHandler(doctorRepo, logger)
	medicationHandler := handlers.NewMedicationHandler(medicationRepo, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/appointments", apptHandler.Collection)
	mux.HandleFunc("/api/v1/appointments/update", apptHandler.Update)
	mux.HandleFunc("/api/v1/appointments/cancel", apptHandler.Cancel)
	mux.HandleFunc("/api/v1/appointments/reschedule", apptHandler.Reschedule)
	mux.HandleFunc("/api/v1/appointments/complete", apptHandler.Complete)
	mux.HandleFunc("/api/v1/appointments/no-show", apptHandler.NoShow)
	mux.HandleFunc("/api/v1/appointments/delete", apptHandler.Delete)
	mux.HandleFunc("/api/v1/appointments/stats", apptHandler.Stats)
	mux.HandleFunc("/api/v1/patients", patientHandler.Collection)
	mux.HandleFunc("/api/v1/patients/update", patientHandler.Update)
	mux.HandleFunc("/api/v1/patients/delete", patientHandler.Delete)
	mux.HandleFunc("/api/v1/doctors", doctorHandler.Collection)
	mux.HandleFunc("/api/v1/doctors/update", doctorHandler.Update)
	mux.HandleFunc("/api/v1/doctors/delete", doctorHandler.Delete)
	mux.HandleFunc("/api/v1/medications", medicationHandler.Collection)
	mux.HandleFunc("/api/v1/medications/update", medicationHandler.Update)
	mux.HandleFunc("/api/v1/medications/delete", medicationHandler.Delete)

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,DELETE,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id")),
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
		rateLimitMiddleware,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "clinic")
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
