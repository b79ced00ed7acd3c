// Package http exposes the tracker session as a JSON API. One server
// process serves one session; signing in and out rebinds the session's
// store subscriptions, exactly as a client app switching accounts.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kyat/internal/auth"
	"kyat/internal/log"
	"kyat/internal/tracker"
)

type Server struct {
	http.Server

	session     *tracker.Session
	provider    *auth.Local
	logger      *log.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, session *tracker.Session, provider *auth.Local, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		session:     session,
		provider:    provider,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/session", s.with(s.handleSignIn))
	mux.HandleFunc("DELETE /api/session", s.with(s.handleSignOut))
	mux.HandleFunc("GET /api/session", s.with(s.handleSession))

	mux.HandleFunc("GET /api/income", s.with(s.handleGetIncome))
	mux.HandleFunc("POST /api/income", s.with(s.handleSetIncome))
	mux.HandleFunc("PUT /api/income", s.with(s.handleReplaceIncome))
	mux.HandleFunc("POST /api/income/add", s.with(s.handleAddIncome))

	mux.HandleFunc("GET /api/expenses", s.with(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.with(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.with(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/transactions", s.with(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.with(s.handleCreateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.with(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/balance", s.with(s.handleBalance))
	mux.HandleFunc("GET /api/catalog", s.with(s.handleCatalog))
	mux.HandleFunc("GET /api/events", s.handleEvents)

	return s
}

// with adds request logging, rate limiting on writes, and response
// headers common to every API handler.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientAddr(r)
		requestID := generateRequestID()

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(r.Context(), "rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(r.Context(), "request completed",
			"request_id", requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// Shutdown stops background routines before shutting the listener down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func clientAddr(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
