// Package server exposes the public submission endpoint and the cookie-gated
// admin API.
package server

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-intake/internal/analysis"
	"github.com/sells-group/lead-intake/internal/config"
	"github.com/sells-group/lead-intake/internal/crm"
	"github.com/sells-group/lead-intake/internal/notify"
	"github.com/sells-group/lead-intake/internal/store"
	"github.com/sells-group/lead-intake/internal/tasks"
)

// Server wires the intake pipeline behind HTTP handlers.
type Server struct {
	store      store.Store
	analyzer   *analysis.Analyzer
	dispatcher *notify.Dispatcher
	crm        *crm.Sync // nil disables CRM sync
	runner     *tasks.Runner
	cfg        config.ServerConfig
	adminPass  string

	mu         sync.Mutex
	ipLimiters map[string]*rate.Limiter
}

// New creates a Server.
func New(st store.Store, analyzer *analysis.Analyzer, dispatcher *notify.Dispatcher, crmSync *crm.Sync, runner *tasks.Runner, cfg config.ServerConfig, adminCfg config.AdminConfig) *Server {
	return &Server{
		store:      st,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		crm:        crmSync,
		runner:     runner,
		cfg:        cfg,
		adminPass:  adminCfg.Password,
		ipLimiters: make(map[string]*rate.Limiter),
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.With(s.submitLimit).Post("/submit-brief", s.handleSubmitBrief)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/auth", s.handleAdminAuth)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/briefs", s.handleListBriefs)
				r.Patch("/briefs", s.handleUpdateBrief)
			})
		})
	})

	return r
}

// submitLimit is a soft per-IP guard on the public endpoint.
func (s *Server) submitLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allowIP(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowIP(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.ipLimiters[ip]
	if !ok {
		rps := s.cfg.SubmitRPS
		if rps <= 0 {
			rps = 2
		}
		burst := s.cfg.SubmitBurst
		if burst <= 0 {
			burst = 5
		}
		lim = rate.NewLimiter(rate.Limit(rps), burst)
		s.ipLimiters[ip] = lim
	}
	return lim.Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
