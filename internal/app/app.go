// Package app wires configuration, storage, the backend client and the
// services shared by the web and bot front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"tennisluv/internal/backend"
	"tennisluv/internal/catalog"
	"tennisluv/internal/config"
	"tennisluv/internal/domain"
	"tennisluv/internal/events"
	"tennisluv/internal/export"
	"tennisluv/internal/logging"
	"tennisluv/internal/metrics"
	"tennisluv/internal/models"
	"tennisluv/internal/repository"
	"tennisluv/internal/selection"
	"tennisluv/internal/service"
	"tennisluv/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// App holds everything a front end needs to run.
type App struct {
	Config   *config.Config
	Logger   *zerolog.Logger
	Catalog  *catalog.Catalog
	Backend  *backend.Client
	Redis    *redis.Client
	EventBus *events.EventBus
	Sessions *service.SessionService
	Booking  *service.BookingService
	Accounts *service.AccountService
	Admin    *service.AdminService
	Sheets   *worker.SheetsWorker

	closers []io.Closer
}

// LoadConfig reads the file named by CONFIG_PATH, configs/config.yaml by default.
func LoadConfig() (*config.Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	return config.Load(configPath)
}

// New builds the application. Redis and Google Sheets are optional: without
// Redis sessions live in memory, without Google credentials publishing is off.
func New(ctx context.Context, cfg *config.Config, component string) (*App, error) {
	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, err
	}
	logger := logging.Component(baseLogger, component)
	a := &App{Config: cfg, Logger: logger}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("create export directory")
		a.Close()
		return nil, err
	}

	a.Catalog = catalog.Default()
	if len(cfg.Booking.EntryTypes) > 0 {
		if a.Catalog, err = catalog.New(cfg.Booking.EntryTypes); err != nil {
			a.Close()
			return nil, fmt.Errorf("entry types: %w", err)
		}
	}

	mode, err := selection.ParseSubmitMode(cfg.Backend.SubmitMode)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Redis = initRedis(ctx, cfg, logger)
	sessionRepo := a.sessionRepository()

	a.Backend = backend.NewClient(cfg.Backend.BaseURL, time.Duration(cfg.Backend.TimeoutSeconds)*time.Second, baseLogger)
	if a.Redis != nil {
		a.Backend.UseRedisCache(a.Redis, time.Duration(cfg.Backend.CacheTTLSeconds)*time.Second)
	}

	a.EventBus = events.NewEventBus()
	subscribeAudit(a.EventBus, logging.Component(baseLogger, "audit"))

	if publisher := initSheets(ctx, cfg, a.Catalog, logger); publisher != nil {
		a.Sheets = worker.NewSheetsWorker(publisher, a.Redis, worker.DefaultRetryPolicy(), baseLogger)
	}

	machine := selection.NewMachine(a.Catalog, selection.Rules{
		OpeningHour:          cfg.Booking.OpeningHour,
		ClosingHour:          cfg.Booking.ClosingHour,
		DefaultMaxDailyHours: cfg.Booking.DefaultMaxDailyHours,
	})
	courts := cfg.Booking.Courts

	a.Sessions = service.NewSessionService(sessionRepo, a.EventBus, logging.Component(baseLogger, "sessions"))
	a.Booking = service.NewBookingService(a.Backend, machine, a.EventBus, mode, courts, logging.Component(baseLogger, "booking"))
	a.Booking.UseLocation(loc)
	a.Accounts = service.NewAccountService(a.Backend, a.Sessions, a.EventBus,
		service.LoginLimit{Attempts: cfg.Web.LoginAttempts, Window: time.Minute},
		logging.Component(baseLogger, "accounts"))

	// a nil *SheetsWorker must not become a non-nil interface
	var queue service.SheetsQueue
	if a.Sheets != nil {
		queue = a.Sheets
	}
	a.Admin = service.NewAdminService(a.Backend, a.Backend, queue, a.Catalog, a.EventBus, cfg.Exports.Path, courts, logging.Component(baseLogger, "admin"))
	a.Admin.UseLocation(loc)
	return a, nil
}

// SheetsEnabled reports whether Google Sheets publishing is configured.
func (a *App) SheetsEnabled() bool {
	return a.Sheets != nil
}

// Run starts the background parts: the sheets worker and the metrics endpoint.
func (a *App) Run(ctx context.Context) {
	if a.Sheets != nil {
		go a.Sheets.Start(ctx)
	}
	if a.Config.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, a.Config.Monitoring.PrometheusPort, a.Logger)
	}
}

// Close releases Redis and the log file.
func (a *App) Close() {
	if a.Redis != nil {
		if err := repository.Close(a.Redis); err != nil {
			a.Logger.Warn().Err(err).Msg("close redis")
		}
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *App) sessionRepository() domain.SessionRepository {
	ttl := time.Duration(a.Config.Web.SessionTTL) * time.Second
	fallback := repository.NewMemorySessionRepository(ttl)
	if a.Redis == nil {
		return fallback
	}
	primary := repository.NewRedisSessionRepository(a.Redis, ttl)
	return repository.NewFailoverSessionRepository(primary, fallback, a.Logger, redisProbe.NextDelay)
}

// redisProbe doubles the wait between Redis probes per failure, from 5s up to 5m.
var redisProbe = worker.RetryPolicy{InitialDelay: 5 * time.Second, MaxDelay: 5 * time.Minute, BackoffFactor: 2}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		logger.Info().Msg("redis not configured, sessions are kept in memory")
		return nil
	}
	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, falling back to memory until it recovers")
	}
	return client
}

func initSheets(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, logger *zerolog.Logger) *export.SheetsPublisher {
	g := cfg.Google
	if g.GoogleCredentialsFile == "" || g.EntriesSpreadSheetID == "" {
		logger.Info().Msg("google sheets not configured, publishing disabled")
		return nil
	}
	publisher, err := export.NewSheetsPublisher(ctx, g.GoogleCredentialsFile, g.EntriesSpreadSheetID, g.SheetName, cat)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize google sheets")
		return nil
	}
	if err := publisher.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed")
		return nil
	}
	logger.Info().Str("spreadsheet_id", g.EntriesSpreadSheetID).Msg("google sheets publishing enabled")
	return publisher
}

// subscribeAudit writes every booking and account event to the audit log.
func subscribeAudit(bus *events.EventBus, logger *zerolog.Logger) {
	bus.OnError(func(ev *events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})

	booking := func(ev *events.Event) error {
		var p events.BookingEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		logger.Info().
			Str("event", ev.Type).
			Str("user", p.UserEmail).
			Int64("court_id", p.CourtID).
			Str("date", p.Date.Format(models.DateLayout)).
			Int("start_hour", p.StartHour).
			Int("end_hour", p.EndHour).
			Str("result", p.Result).
			Msg("booking event")
		return nil
	}
	user := func(ev *events.Event) error {
		var p events.UserEventPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		logger.Info().
			Str("event", ev.Type).
			Str("session_id", p.SessionID).
			Int64("user_id", p.UserID).
			Str("user", p.UserEmail).
			Str("change", p.Change).
			Msg("account event")
		return nil
	}

	bus.Subscribe(events.EventBookingSubmitted, booking)
	bus.Subscribe(events.EventEntryRelabeled, booking)
	bus.Subscribe(events.EventEntryDeleted, booking)
	bus.Subscribe(events.EventUserChanged, user)
	bus.Subscribe(events.EventSessionExpired, user)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
