// Package http exposes the ledger service as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"divider/internal/cache"
	"divider/internal/core"
	applog "divider/internal/log"
	"divider/internal/services"
)

type Server struct {
	http.Server
	service     *services.LedgerService
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Balance reads dominate traffic; cache them per ledger and invalidate
	// on every mutation.
	balanceCache *cache.LRUCache[map[string]core.Money]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, service *services.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:          service,
		rateLimiter:      newRateLimiter(),
		metrics:          &securityMetrics{},
		balanceCache:     cache.NewLRUCache[map[string]core.Money](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /health", handleHealth)

	mux.HandleFunc("GET /ledgers", s.withSecurity(s.handleListLedgers))
	mux.HandleFunc("POST /ledgers", s.withSecurity(s.handleCreateLedger))
	mux.HandleFunc("GET /ledgers/{name}", s.withSecurity(s.handleGetLedger))
	mux.HandleFunc("POST /ledgers/{name}/people", s.withSecurity(s.handleAddPerson))
	mux.HandleFunc("POST /ledgers/{name}/payments", s.withSecurity(s.handleAddPayment))
	mux.HandleFunc("POST /ledgers/{name}/expenses", s.withSecurity(s.handleAddExpense))
	mux.HandleFunc("POST /ledgers/{name}/undo", s.withSecurity(s.handleUndo))
	mux.HandleFunc("GET /ledgers/{name}/balances", s.withSecurity(s.handleBalances))
	mux.HandleFunc("GET /ledgers/{name}/verify", s.withSecurity(s.handleVerify))
	mux.HandleFunc("GET /ledgers/{name}/settlement", s.withSecurity(s.handleSettlement))

	return s
}

// withSecurity adds security headers, rate limiting, and request logging.
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := r.Context()
		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				applog.FieldRequestID, requestID,
				applog.FieldClientIP, clientIP,
				applog.FieldComponent, applog.ComponentSecurity,
				applog.FieldPath, r.URL.String())
		}

		// Mutations are rate limited per client IP.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldComponent, applog.ComponentRateLimit,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.balanceCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

func (s *Server) invalidateBalances(ledger string) {
	s.balanceCache.Delete(ledger)
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
