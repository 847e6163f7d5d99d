package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feesuggest/internal/config"
	"feesuggest/internal/feesuggest"
)

// Suggester is the oracle surface the API serves; *oracle.Service implements it.
type Suggester interface {
	SuggestFees(ctx context.Context, newest string) (*feesuggest.Suggestions, error)
	SuggestMaxBaseFee(ctx context.Context, newest string) (*feesuggest.MaxFeeSuggestions, error)
	SuggestMaxPriorityFee(ctx context.Context, newest string) (*feesuggest.MaxPriorityFeeSuggestions, error)
}

type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	suggester Suggester
	gatherer  prometheus.Gatherer
}

func NewServer(cfg *config.Config, logger *slog.Logger, suggester Suggester, gatherer prometheus.Gatherer) *Server {
	return &Server{cfg: cfg, logger: logger, suggester: suggester, gatherer: gatherer}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.withAuth)
	v1.HandleFunc("/suggestions", s.handleSuggestions).Methods(http.MethodGet)
	v1.HandleFunc("/suggestions/base-fee", s.handleBaseFee).Methods(http.MethodGet)
	v1.HandleFunc("/suggestions/priority-fee", s.handlePriorityFee).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.API.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxTimeout)
	}()
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.API.AuthToken != "" {
			token := r.Header.Get("X-API-Key")
			if token == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					token = strings.TrimSpace(auth[7:])
				}
			}
			if token != s.cfg.API.AuthToken {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	res, err := s.suggester.SuggestFees(r.Context(), r.URL.Query().Get("block"))
	if err != nil {
		s.writeSuggestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBaseFee(w http.ResponseWriter, r *http.Request) {
	res, err := s.suggester.SuggestMaxBaseFee(r.Context(), r.URL.Query().Get("block"))
	if err != nil {
		s.writeSuggestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePriorityFee(w http.ResponseWriter, r *http.Request) {
	res, err := s.suggester.SuggestMaxPriorityFee(r.Context(), r.URL.Query().Get("block"))
	if err != nil {
		s.writeSuggestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeSuggestError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, feesuggest.ErrInvalidInput) {
		status = http.StatusBadRequest
	}
	s.logger.Warn("suggestion request failed", "status", status, "error", err)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
