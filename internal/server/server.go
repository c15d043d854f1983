// Package server — HTTP API Mini App: маршруты, middleware, ограничение
// частоты запросов и жизненный цикл http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/config"
	"serotonyl.ru/labubu-roulette/internal/features/admin"
	"serotonyl.ru/labubu-roulette/internal/features/payments"
	"serotonyl.ru/labubu-roulette/internal/features/prizes"
	"serotonyl.ru/labubu-roulette/internal/features/referral"
	"serotonyl.ru/labubu-roulette/internal/features/roulette"
	"serotonyl.ru/labubu-roulette/internal/transport/httpx"
)

// Handlers — обработчики фич, которые монтирует роутер.
type Handlers struct {
	Roulette *roulette.Handler
	Prizes   *prizes.Handler
	Referral *referral.Handler
	Payments *payments.Handler
	Admin    *admin.Handler
}

// Limiter — ограничитель частоты для отдельных маршрутов.
// nil — без ограничений.
type Limiter interface {
	Middleware(scope string) func(http.Handler) http.Handler
}

// NewRouter собирает chi-роутер со всеми маршрутами.
func NewRouter(h Handlers, limiter Limiter, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	if requestTimeout > 0 {
		r.Use(chimiddleware.Timeout(requestTimeout))
	}

	limited := func(scope string) func(http.Handler) http.Handler {
		if limiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return limiter.Middleware(scope)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	})

	r.Get("/prizes", h.Prizes.List)

	r.Get("/spin", h.Roulette.HandleRecentWins)
	r.With(limited("spin")).Post("/spin", h.Roulette.HandleSpin)
	r.Post("/user-stats", h.Roulette.HandleUserStats)
	r.Post("/profile", h.Roulette.HandleProfile)

	r.Route("/referral", func(r chi.Router) {
		r.With(limited("referral")).Post("/enter-code", h.Referral.EnterCode)
		r.Post("/stats", h.Referral.Stats)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/freekassa/link", h.Payments.FreeKassaLink)
		r.Post("/freekassa/notify", h.Payments.FreeKassaNotify)
		r.Post("/stars/invoice", h.Payments.StarsInvoice)
	})

	r.Route("/admin", func(r chi.Router) {
		r.With(limited("admin")).Post("/login", h.Admin.Login)
		r.Group(func(r chi.Router) {
			r.Use(h.Admin.RequireSession)
			r.Post("/logout", h.Admin.Logout)
			r.Get("/wins", h.Admin.ListWins)
			r.Post("/wins/{id}/verify", h.Admin.VerifyWin)
			r.Post("/wins/{id}/claim", h.Admin.ClaimWin)
			r.Put("/settings/{key}", h.Admin.UpdateSetting)
			r.Post("/prizes/{id}/active", h.Admin.SetPrizeActive)
			r.Post("/users/{id}/labu", h.Admin.GrantLabu)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Error: "Not found", Code: "NOT_FOUND"})
	})
	return r
}

// Server — HTTP-сервер с graceful shutdown.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// New создаёт сервер на адресе из конфига.
func New(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: cfg.HTTPShutdownTimeout,
	}
}

// Run слушает порт до отмены ctx, затем дожидается текущих запросов.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.srv.Addr).Info("HTTP сервер запущен")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP сервера: %w", err)
	}
	log.Info("HTTP сервер остановлен")
	return nil
}
