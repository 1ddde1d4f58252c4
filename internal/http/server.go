// Package http exposes the dashboard, transaction and entity operations
// as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"aurora/internal/amqp"
	"aurora/internal/auth"
	"aurora/internal/dashboard"
	"aurora/internal/list"
	applog "aurora/internal/log"
	"aurora/internal/services"
	"aurora/internal/store"
)

type Server struct {
	http.Server

	gw       store.Gateway
	auth     *auth.State
	verifier *auth.Verifier
	pageSize int

	transactions *services.TransactionService
	accounts     *services.AccountService
	budgets      *services.BudgetService
	goals        *services.GoalService
	categories   *services.CategoriesService

	// One live aggregator per principal, created lazily on the first
	// dashboard request and torn down at shutdown.
	aggMu       sync.Mutex
	aggregators map[string]*dashboard.Aggregator

	// One search session per principal: rapid edits across successive
	// list requests only change the visible set once input has been
	// quiet for searchDelay.
	searchMu    sync.Mutex
	searches    map[string]*searchSession
	searchDelay time.Duration

	shutdownOnce sync.Once
}

// Options carries the server dependencies. Verifier and AMQPClient may
// be nil: without a verifier the configured static principal is used,
// without AMQP the mirror queue is skipped.
type Options struct {
	Addr       string
	Gateway    store.Gateway
	Auth       *auth.State
	Verifier   *auth.Verifier
	AMQPClient *amqp.Client
	PageSize   int

	// SearchDebounce is the quiet period before a free-text search takes
	// effect. Non-positive falls back to list.DefaultDebounce.
	SearchDebounce time.Duration
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		gw:          opts.Gateway,
		auth:        opts.Auth,
		verifier:    opts.Verifier,
		pageSize:    opts.PageSize,
		aggregators: make(map[string]*dashboard.Aggregator),
		searches:    make(map[string]*searchSession),
		searchDelay: opts.SearchDebounce,

		transactions: services.NewTransactionService(opts.Gateway, opts.Auth, opts.AMQPClient),
		accounts:     services.NewAccountService(opts.Gateway, opts.Auth),
		budgets:      services.NewBudgetService(opts.Gateway, opts.Auth),
		goals:        services.NewGoalService(opts.Gateway, opts.Auth),
		categories:   services.NewCategoriesService(opts.Gateway, opts.Auth),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/dashboard", s.withRequest(s.handleDashboard))

	mux.HandleFunc("GET /api/transazioni", s.withRequest(s.handleListTransactions))
	mux.HandleFunc("POST /api/transazioni", s.withRequest(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transazioni/{id}", s.withRequest(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transazioni/{id}", s.withRequest(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/transazioni/export", s.withRequest(s.handleExportTransactions))

	mux.HandleFunc("GET /api/conti", s.withRequest(s.handleListAccounts))
	mux.HandleFunc("POST /api/conti", s.withRequest(s.handleCreateAccount))
	mux.HandleFunc("DELETE /api/conti/{id}", s.withRequest(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/budget", s.withRequest(s.handleListBudgets))
	mux.HandleFunc("PUT /api/budget", s.withRequest(s.handleSaveBudget))

	mux.HandleFunc("GET /api/obiettivi", s.withRequest(s.handleListGoals))
	mux.HandleFunc("POST /api/obiettivi", s.withRequest(s.handleCreateGoal))
	mux.HandleFunc("DELETE /api/obiettivi/{id}", s.withRequest(s.handleDeleteGoal))

	mux.HandleFunc("GET /api/categorie", s.withRequest(s.handleGetCategories))
	mux.HandleFunc("PUT /api/categorie", s.withRequest(s.handleSaveCategories))

	return s
}

// withRequest adds request logging, a request ID and bearer-token
// authentication to a handler.
func (s *Server) withRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)

		if s.verifier != nil {
			token := auth.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			uid, err := s.verifier.Verify(ctx, token)
			if err != nil {
				slog.WarnContext(ctx, "Token verification failed",
					applog.FieldRequestID, requestID, applog.FieldError, err)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			// The verified identity travels with this request only;
			// concurrent requests from different users never see each
			// other's principal.
			ctx = auth.WithPrincipal(ctx, uid)
			r = r.WithContext(ctx)
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds())
	}
}

type requestIDKey struct{}

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
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// searchSession pairs a principal's debouncer with the last raw value
// seen, so only a changed value counts as a new input event and repeated
// polls of the same query cannot keep the timer from firing.
type searchSession struct {
	deb  *list.Debouncer
	last string
}

// debouncedSearch feeds the raw query text through the principal's
// debouncer and returns the committed value. A changed value restarts
// the quiet-period timer; the visible set only follows after the commit.
func (s *Server) debouncedSearch(owner, raw string) string {
	s.searchMu.Lock()
	if s.searches == nil {
		// Shutting down.
		s.searchMu.Unlock()
		return raw
	}
	sess, ok := s.searches[owner]
	if !ok {
		sess = &searchSession{deb: list.NewDebouncer(s.searchDelay, nil)}
		s.searches[owner] = sess
	}
	if raw != sess.last {
		sess.last = raw
		sess.deb.Input(raw)
	}
	deb := sess.deb
	s.searchMu.Unlock()

	return deb.Committed()
}

// Shutdown closes the live aggregators and search debouncers, then the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.aggMu.Lock()
		for _, agg := range s.aggregators {
			agg.Close()
		}
		s.aggregators = nil
		s.aggMu.Unlock()

		s.searchMu.Lock()
		for _, sess := range s.searches {
			sess.deb.Close()
		}
		s.searches = nil
		s.searchMu.Unlock()

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
