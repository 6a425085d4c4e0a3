// Package api provides the local HTTP server for the allowance dashboard.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pawbank/allowance/internal/app/dashboard"
	"github.com/pawbank/allowance/internal/domain"
)

// Version is reported by /api/version.
const Version = "0.1.0"

// Server is the allowance HTTP API server.
type Server struct {
	svc            *dashboard.Service
	log            *zap.Logger
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(svc *dashboard.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, log: logger.Named("api")}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
//
// GET    /health                    — liveness
// GET    /api/version               — build version
// GET    /api/dashboard             — full dashboard snapshot
// GET    /api/transactions          — transactions, newest first (?limit=N)
// POST   /api/transactions          — add a manual transaction
// DELETE /api/transactions/{id}     — remove a transaction
// GET    /api/quests                — quests with status
// POST   /api/quests/{id}/toggle    — complete / un-complete a quest
// POST   /api/quests/sweep          — run the period reset sweep
// GET    /api/events                — live change feed (SSE)
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Route("/api", func(r chi.Router) {
		// Event streams are long-lived; everything else gets a deadline.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/dashboard", s.handleDashboard)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleAddTransaction)
			r.Delete("/transactions/{id}", s.handleRemoveTransaction)

			r.Get("/quests", s.handleListQuests)
			r.Post("/quests/sweep", s.handleSweep)
			r.Post("/quests/{id}/toggle", s.handleToggleQuest)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Dashboard ──────────────────────────────────────────────────────────────

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Snapshot())
}

// ─── Transactions ───────────────────────────────────────────────────────────

type addTransactionRequest struct {
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Amount   float64 `json:"amount"`
	Type     string  `json:"type"`
	Tint     string  `json:"tint"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": s.svc.Transactions(limit),
	})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	typ, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	in := domain.TransactionInput{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Amount:   req.Amount,
		Type:     typ,
	}
	if req.Tint != "" {
		in.Tint = domain.ParseTint(req.Tint)
	}
	tx, err := s.svc.AddTransaction(in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.RemoveTransaction(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// ─── Quests ─────────────────────────────────────────────────────────────────

func (s *Server) handleListQuests(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"quests":          snap.Quests,
		"completed_count": snap.CompletedCount,
		"total_quests":    snap.TotalQuests,
	})
}

func (s *Server) handleToggleQuest(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ToggleQuest(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	reset := s.svc.Activate()
	if reset == nil {
		reset = []domain.Quest{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reset": reset,
	})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeDomainError maps domain errors onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidTransactionType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownQuest), errors.Is(err, domain.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(`{"error":{"message":"response could not be encoded","type":"error"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
