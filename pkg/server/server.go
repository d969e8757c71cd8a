// Package server exposes the dayboard services as an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/metrics"
	"github.com/harrisonrobin/dayboard/pkg/service"
)

type Config struct {
	Addr           string
	JWTSecret      string
	DevUser        string
	AllowedOrigins []string
	RateLimit      int
	RateBurst      int
}

type Server struct {
	cfg     Config
	svcs    *service.Services
	log     *logrus.Logger
	limiter *rateLimiter
	handler http.Handler
	now     func() time.Time
}

func New(cfg Config, svcs *service.Services, log *logrus.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.DevUser == "" {
		cfg.DevUser = "local"
	}
	s := &Server{
		cfg:     cfg,
		svcs:    svcs,
		log:     log,
		limiter: newRateLimiter(cfg.RateLimit, cfg.RateBurst, log),
		now:     time.Now,
	}
	s.handler = cors(cfg.AllowedOrigins, s.routes())
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Cleanup drops rate limiter state of idle callers.
func (s *Server) Cleanup() {
	s.limiter.cleanup()
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogging(s.log), instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, s.log, apperr.NotFound("route"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{Code: apperr.KindInvalid, Message: "method not allowed"}})
	})

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	auth := &authenticator{secret: []byte(s.cfg.JWTSecret), devUser: s.cfg.DevUser, limiter: s.limiter, log: s.log}
	api := r.NewRoute().Subrouter()
	api.Use(auth.middleware, s.limiter.middleware)

	api.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.updateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{id}/complete", s.completeTask).Methods(http.MethodPost)

	api.HandleFunc("/goals", s.listGoals).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.createGoal).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}", s.getGoal).Methods(http.MethodGet)
	api.HandleFunc("/goals/{id}", s.updateGoal).Methods(http.MethodPatch)
	api.HandleFunc("/goals/{id}", s.deleteGoal).Methods(http.MethodDelete)
	api.HandleFunc("/goals/{id}/complete", s.completeGoal).Methods(http.MethodPost)

	api.HandleFunc("/schedule", s.dailySchedule).Methods(http.MethodGet)
	api.HandleFunc("/calendar", s.calendarEntries).Methods(http.MethodGet)
	api.HandleFunc("/calendar/sync", s.calendarSync).Methods(http.MethodPost)

	api.HandleFunc("/energy", s.energySummary).Methods(http.MethodGet)
	api.HandleFunc("/energy", s.addEnergy).Methods(http.MethodPost)
	api.HandleFunc("/energy/history", s.energyHistory).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireAdmin(s.log))
	admin.HandleFunc("/emails", s.listEmails).Methods(http.MethodGet)
	admin.HandleFunc("/emails", s.receiveEmail).Methods(http.MethodPost)
	admin.HandleFunc("/emails/{id}", s.getEmail).Methods(http.MethodGet)
	admin.HandleFunc("/emails/{id}", s.updateEmail).Methods(http.MethodPatch)
	admin.HandleFunc("/emails/{id}", s.deleteEmail).Methods(http.MethodDelete)
	admin.HandleFunc("/generate-draft", s.generateDraft).Methods(http.MethodPost)
	admin.HandleFunc("/send-email", s.sendEmail).Methods(http.MethodPost)
	admin.HandleFunc("/customers", s.listCustomers).Methods(http.MethodGet)
	admin.HandleFunc("/customers/{email}", s.getCustomer).Methods(http.MethodGet)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// identity returns the caller set by the auth middleware.
func identity(r *http.Request) Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}
