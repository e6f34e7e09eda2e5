// Package web is the browser front end: server-rendered pages for booking,
// account and administration plus a small JSON API for the booking grid.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"tennisluv/internal/catalog"
	"tennisluv/internal/config"
	"tennisluv/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type Deps struct {
	Config        config.WebConfig
	Sessions      *service.SessionService
	Booking       *service.BookingService
	Accounts      *service.AccountService
	Admin         *service.AdminService
	Catalog       *catalog.Catalog
	SheetsEnabled bool
	Logger        *zerolog.Logger
}

type Server struct {
	cfg           config.WebConfig
	sessions      *service.SessionService
	booking       *service.BookingService
	accounts      *service.AccountService
	admin         *service.AdminService
	sheetsEnabled bool

	render  *renderer
	landing template.HTML
	limiter *ipLimiter
	csrfKey []byte
	server  *http.Server
	logger  zerolog.Logger
}

func NewServer(d Deps) (*Server, error) {
	cfg := d.Config
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "tennisluv_session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * 3600
	}
	logger := zerolog.Nop()
	if d.Logger != nil {
		logger = d.Logger.With().Str("component", "web").Logger()
	}

	rnd, err := newRenderer(d.Catalog)
	if err != nil {
		return nil, err
	}
	landing, err := loadLanding(cfg.LandingPage)
	if err != nil {
		return nil, fmt.Errorf("landing page: %w", err)
	}

	s := &Server{
		cfg:           cfg,
		sessions:      d.Sessions,
		booking:       d.Booking,
		accounts:      d.Accounts,
		admin:         d.Admin,
		sheetsEnabled: d.SheetsEnabled,
		render:        rnd,
		landing:       landing,
		limiter:       newIPLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		csrfKey:       csrfKey(cfg.CSRFKey),
		logger:        logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.withSession)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.cfg.CORSOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders:   []string{"Content-Type", requestIDHeader},
				ExposedHeaders:   []string{requestIDHeader},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			r.Use(middleware.AllowContentType("application/json"))
			r.Use(s.apiRequireAuth)
			r.Get("/booking", s.apiView)
			r.Post("/booking/date", s.apiDate)
			r.Post("/booking/toggle", s.apiToggle)
			r.Post("/booking/type", s.apiType)
			r.Post("/booking/submit", s.apiSubmit)
			r.Post("/booking/cancel", s.apiCancel)
			r.Post("/booking/delete", s.apiDelete)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.csrfProtect())

			r.Get("/", s.handleLanding)
			r.Get("/login", s.handleLoginForm)
			r.Post("/login", s.handleLogin)
			r.Get("/register", s.handleRegisterForm)
			r.Post("/register", s.handleRegister)
			r.Get("/verify-pending", s.handleVerifyPending)
			r.Post("/verify-pending/check", s.handleVerifyCheck)
			r.Post("/verify-pending/resend", s.handleVerifyResend)
			r.Get("/verify", s.handleVerify)
			r.Get("/logout", s.handleLogout)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/booking", s.handleBooking)
				r.Post("/booking/toggle", s.handleToggle)
				r.Post("/booking/submit", s.handleSubmit)
				r.Post("/booking/cancel", s.handleCancel)
				r.Post("/booking/delete", s.handleDelete)
				r.Post("/booking/date", s.handleDate)
				r.Post("/booking/type", s.handleType)

				r.Get("/profile", s.handleProfile)
				r.Post("/profile/delete", s.handleDeleteAccount)
				r.Get("/settings", s.handleSettingsForm)
				r.Post("/settings", s.handleSettings)

				r.Route("/admin", func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/", s.handleAdmin)
					r.Post("/users/{id}/admin", s.handleSetAdmin)
					r.Post("/users/{id}/membership", s.handleSetMembership)
					r.Post("/users/{id}/hours", s.handleSetHours)
					r.Post("/users/{id}/delete", s.handleDeleteUser)
					r.Post("/entries/delete", s.handleAdminDeleteEntry)
					r.Post("/sheets", s.handlePublishSheets)
					r.Get("/entries.xlsx", s.handleExportXLSX)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.errorPage(w, r, http.StatusNotFound, "This page does not exist.")
	})
	return r
}

func (s *Server) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("web front end listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// SweepLimiters forgets rate-limit buckets of clients idle for maxIdle.
func (s *Server) SweepLimiters(maxIdle time.Duration) int {
	return s.limiter.Sweep(maxIdle)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, "landing", "Willkommen", s.landing)
}
