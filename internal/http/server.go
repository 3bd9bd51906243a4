package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"prestiti/internal/core"
	"prestiti/internal/rows"
	"prestiti/internal/services"
)

type Server struct {
	http.Server

	repo        core.Repository
	importer    *services.Importer
	statements  *services.StatementService
	performance *services.PerformanceService

	rateLimiter *rateLimiter
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, repo core.Repository, importer *services.Importer, statements *services.StatementService, performance *services.PerformanceService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:        repo,
		importer:    importer,
		statements:  statements,
		performance: performance,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /user_credits/{user_id}", s.withLogging(s.handleUserCredits))
	mux.HandleFunc("GET /plans_performance", s.withLogging(s.handlePlansPerformance))

	mux.HandleFunc("POST /import_users", s.withLogging(
		s.handleImport("import_users", "Users successfully added.",
			func(r *http.Request, set rows.Set) error {
				return s.importer.ImportUsers(r.Context(), set)
			})))
	mux.HandleFunc("POST /import_credits", s.withLogging(
		s.handleImport("import_credits", "Credits successfully added.",
			func(r *http.Request, set rows.Set) error {
				return s.importer.ImportCredits(r.Context(), set)
			})))
	mux.HandleFunc("POST /import_plans", s.withLogging(
		s.handleImport("import_plans", "Plans successfully added.",
			func(r *http.Request, set rows.Set) error {
				return s.importer.ImportPlans(r.Context(), set)
			})))
	mux.HandleFunc("POST /import_dictionary", s.withLogging(
		s.handleImport("import_dictionary", "Dictionaries successfully added.",
			func(r *http.Request, set rows.Set) error {
				return s.importer.ImportDictionary(r.Context(), set)
			})))
	mux.HandleFunc("POST /import_payments", s.withLogging(s.handleImportPayments))

	return s
}

// withLogging adds rate limiting and request logging to a handler.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Imports are the only mutating calls; throttle them per client.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Shutdown stops the rate limiter before draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}
