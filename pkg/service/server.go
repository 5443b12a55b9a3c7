package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/canarysec/canary-scanner/pkg/dispatch"
	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/jobstore"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/validate"
)

const (
	apiKeyHeader = "X-API-Key"

	submitPath = "/api/v1/validate"
	statusPath = "/api/v1/validate/status/"
	healthPath = "/api/v1/health"
)

type (

	// Server exposes the validation dispatcher over HTTP. Both job
	// endpoints demand the shared API key before any business logic
	// runs; health stays open for probes.
	Server struct {
		apiKey     string
		version    string
		dispatcher *dispatch.Dispatcher
		log        logg.Logg
	}

	ValidateRequest struct {
		SecretType  string            `json:"secret_type"`
		SecretValue string            `json:"secret_value"`
		Context     map[string]string `json:"context,omitempty"`
	}

	ValidateResponse struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}

	StatusResponse struct {
		JobID        string           `json:"job_id"`
		Status       string           `json:"status"`
		Result       *validate.Result `json:"result,omitempty"`
		ErrorMessage string           `json:"error_message,omitempty"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func NewServer(apiKey, version string, dispatcher *dispatch.Dispatcher, log logg.Logg) *Server {
	return &Server{
		apiKey:     apiKey,
		version:    version,
		dispatcher: dispatcher,
		log:        log,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(healthPath, s.handleHealth)
	mux.HandleFunc(submitPath, s.requireAPIKey(s.handleSubmit))
	mux.HandleFunc(statusPath, s.requireAPIKey(s.handleStatus))

	return mux
}

// ListenAndServe blocks until the listener fails or the context is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) (err error) {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		case <-done:
		}
	}()

	s.log.WithField("addr", addr).Info("validation service listening")

	err = server.ListenAndServe()
	close(done)
	if err == http.ErrServerClosed {
		err = nil
	}
	return
}

// requireAPIKey rejects requests lacking the shared secret before the
// wrapped handler runs.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(apiKeyHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(s.apiKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid API key"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.SecretType == "" || req.SecretValue == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "secret_type and secret_value are required"})
		return
	}

	jobID, err := s.dispatcher.Submit(req.SecretType, req.SecretValue, req.Context)
	if err != nil {
		errors.ErrLog(s.log, err).Warn("validation submission rejected")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, ValidateResponse{
		JobID:  jobID,
		Status: string(jobstore.StatusQueued),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, statusPath)
	if jobID == "" || strings.Contains(jobID, "/") {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid job id"})
		return
	}

	job, err := s.dispatcher.Status(jobID)
	if err != nil {
		if jobstore.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "job not found"})
			return
		}
		errors.ErrLog(s.log, err).Error("unable to read job status")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unable to read job status"})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		JobID:        job.JobID,
		Status:       string(job.Status),
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
