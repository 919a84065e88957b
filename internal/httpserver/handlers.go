package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/founderkit/outreach/internal/auth"
	"github.com/founderkit/outreach/internal/outreach"
	"github.com/founderkit/outreach/internal/sendlog"
	"github.com/founderkit/outreach/internal/transport"
	"github.com/founderkit/outreach/internal/variants"
)

// defaultBatchSize is used when a batch schedule request omits the size.
const defaultBatchSize = 10

func (s *Server) registerRoutes() {
	r := s.router

	r.Get("/healthz", s.handleHealth)

	r.Put("/api/credentials", s.handlePutCredentials)
	r.Delete("/api/credentials", s.handleDeleteCredentials)

	r.Post("/api/send", s.handleSend)
	r.Post("/api/drafts", s.handleDraft)
	r.Post("/api/schedule", s.handleSchedule)
	r.Get("/api/scheduled", s.handleScheduled)
	r.Get("/api/sent", s.handleSent)
	r.Get("/api/replies", s.handleReplies)
	r.Post("/api/variants", s.handleVariants)
}

// deliveryRequest is the shared body of send, draft, and schedule requests.
type deliveryRequest struct {
	Subject   string              `json:"subject"`
	Body      string              `json:"body"`
	Investors []outreach.Investor `json:"investors"`

	// Schedule-only fields.
	ScheduleType string `json:"schedule_type,omitempty"`
	BatchSize    int    `json:"batch_size,omitempty"`
	RunAt        string `json:"run_at,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePutCredentials(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid credential payload"})
		return
	}
	if err := creds.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.setCredentials(creds)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCredentials(w http.ResponseWriter, _ *http.Request) {
	s.clearCredentials()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	creds, req, ok := s.decodeDelivery(w, r)
	if !ok {
		return
	}

	if err := s.config.Service.SendEmail(r.Context(), creds, req.Subject, req.Body, req.Investors); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "sent", "count": len(req.Investors)})
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	creds, req, ok := s.decodeDelivery(w, r)
	if !ok {
		return
	}

	if err := s.config.Service.SaveDraft(r.Context(), creds, req.Subject, req.Body, req.Investors); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "drafted", "count": len(req.Investors)})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	creds, req, ok := s.decodeDelivery(w, r)
	if !ok {
		return
	}

	svc := s.config.Service
	var (
		ids []string
		err error
	)

	switch req.ScheduleType {
	case "batch":
		size := req.BatchSize
		if size == 0 {
			size = defaultBatchSize
		}
		ids, err = svc.ScheduleBatchEmails(creds, req.Subject, req.Body, req.Investors, size)

	case "fixed_time":
		var runAt time.Time
		runAt, err = parseRunAt(req.RunAt)
		if err == nil {
			ids, err = svc.ScheduleAllAtOnce(creds, req.Subject, req.Body, req.Investors, runAt)
		}

	case "individual":
		if len(req.Investors) != 1 {
			writeError(w, &outreach.MalformedInputError{Reason: "individual schedule requires exactly one investor"})
			return
		}
		var runAt time.Time
		runAt, err = parseRunAt(req.RunAt)
		if err == nil {
			var id string
			id, err = svc.ScheduleIndividualEmail(creds, req.Subject, req.Body, req.Investors[0], runAt)
			ids = []string{id}
		}

	default:
		writeError(w, &outreach.MalformedInputError{Reason: "invalid schedule type " + req.ScheduleType})
		return
	}

	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "scheduled", "job_ids": ids})
}

func (s *Server) handleScheduled(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scheduled": s.config.Service.GetScheduledEmails()})
}

func (s *Server) handleSent(w http.ResponseWriter, _ *http.Request) {
	records, err := s.config.Service.SentEmails()
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []sendlog.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": records})
}

func (s *Server) handleReplies(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.credentials()
	if !ok {
		writeError(w, &transport.AuthError{Op: "fetch replies", Err: errNoSession})
		return
	}

	found, err := s.config.Service.FetchReplies(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"replies": found})
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	if s.config.Generator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "variant generation not configured"})
		return
	}

	var profile variants.FounderProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid founder profile"})
		return
	}

	drafts := variants.GenerateAll(r.Context(), s.config.Generator, profile)
	writeJSON(w, http.StatusOK, map[string]any{"variants": drafts})
}

// decodeDelivery decodes the shared delivery body and resolves the session
// credentials, writing the error response itself on failure.
func (s *Server) decodeDelivery(w http.ResponseWriter, r *http.Request) (auth.Credentials, deliveryRequest, bool) {
	var req deliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
		return auth.Credentials{}, req, false
	}

	creds, ok := s.credentials()
	if !ok {
		writeError(w, &transport.AuthError{Op: r.URL.Path, Err: errNoSession})
		return auth.Credentials{}, req, false
	}
	return creds, req, true
}

var errNoSession = errors.New("no credentials in session; complete the login flow first")

// parseRunAt parses a scheduled-time string, rejecting bad formats before any
// transport call.
func parseRunAt(value string) (time.Time, error) {
	runAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &outreach.MalformedInputError{Reason: "invalid run_at, want RFC 3339 timestamp"}
	}
	return runAt, nil
}

// writeError maps the core error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		authErr      *transport.AuthError
		inputErr     *outreach.MalformedInputError
		persistErr   *sendlog.PersistenceError
		transportErr *transport.TransportError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &inputErr):
		status = http.StatusBadRequest
	case errors.As(err, &persistErr):
		status = http.StatusInternalServerError
	case errors.As(err, &transportErr):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
