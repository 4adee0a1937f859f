package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/service"
)

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Rules    *service.RuleService
	Tags     *service.TagRegistry
	Scanners *service.ScannerDirectory
	Verifier TokenVerifier

	// MetricsHandler serves GET /metrics when set (promhttp).
	MetricsHandler http.Handler
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	rules      *service.RuleService
	tags       *service.TagRegistry
	scanners   *service.ScannerDirectory
	verifier   TokenVerifier
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:   d.Logger,
		rules:    d.Rules,
		tags:     d.Tags,
		scanners: d.Scanners,
		verifier: d.Verifier,
	}

	mux.HandleFunc("POST /v1/rules", s.handleCreateRule)
	mux.HandleFunc("GET /v1/rules", s.handleListRules)
	mux.HandleFunc("DELETE /v1/rules/{id}", s.handleDeleteRule)

	mux.HandleFunc("POST /v1/requests", s.handleCreateRequest)
	mux.HandleFunc("GET /v1/requests", s.handleListRequests)
	mux.HandleFunc("POST /v1/requests/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /v1/requests/{id}/disapprove", s.handleDisapprove)

	mux.HandleFunc("GET /v1/events", s.handleListEvents)

	mux.HandleFunc("POST /v1/scanners", s.handleCreateScanner)
	mux.HandleFunc("GET /v1/scanners", s.handleListScanners)

	mux.HandleFunc("GET /v1/tags/unassigned", s.handleListUnassignedTags)
	mux.HandleFunc("POST /v1/tags/{id}/assign", s.handleAssignTag)

	if d.MetricsHandler != nil {
		mux.Handle("GET /metrics", d.MetricsHandler)
	}

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Rules and requests ──────────────────────────────────────────────────────

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	in, ok := decodeRuleInput(w, r)
	if !ok {
		return
	}

	rule, err := s.rules.CreateRule(r.Context(), caller, in)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ruleToJSON(rule))
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	in, ok := decodeRuleInput(w, r)
	if !ok {
		return
	}

	rule, err := s.rules.CreateRequest(r.Context(), caller, in)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ruleToJSON(rule))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	rules, err := s.rules.ListRules(r.Context(), caller, ruleFilterFromQuery(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rulesToJSON(rules))
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	requests, err := s.rules.ListRequests(r.Context(), caller, ruleFilterFromQuery(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rulesToJSON(requests))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.rules.Approve(r.Context(), caller, id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (s *Server) handleDisapprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.rules.Disapprove(r.Context(), caller, id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disapproved"})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.rules.DeleteRule(r.Context(), caller, id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ── Audit log ───────────────────────────────────────────────────────────────

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}

	events, err := s.rules.ListEvents(r.Context(), caller, eventFilterFromQuery(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// ── Scanners (admin glue for the external CRUD layer) ───────────────────────

func (s *Server) handleCreateScanner(w http.ResponseWriter, r *http.Request) {
	_, ok := s.adminCaller(w, r)
	if !ok {
		return
	}

	var in struct {
		UID         string `json:"uid"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	sc, err := s.scanners.Register(r.Context(), in.UID, in.Description)
	if err != nil {
		if errors.Is(err, service.ErrInvalidScannerUID) {
			writeError(w, http.StatusBadRequest, "invalid_uid", err.Error())
			return
		}
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleListScanners(w http.ResponseWriter, r *http.Request) {
	_, ok := s.adminCaller(w, r)
	if !ok {
		return
	}

	scanners, err := s.scanners.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scanners)
}

// ── Tags (admin glue) ───────────────────────────────────────────────────────

func (s *Server) handleListUnassignedTags(w http.ResponseWriter, r *http.Request) {
	_, ok := s.adminCaller(w, r)
	if !ok {
		return
	}

	tags, err := s.tags.ListUnassigned(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleAssignTag(w http.ResponseWriter, r *http.Request) {
	_, ok := s.adminCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in struct {
		UserID int64 `json:"user_id"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	if err := s.tags.AssignOwner(r.Context(), id, in.UserID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func decodeRuleInput(w http.ResponseWriter, r *http.Request) (service.RuleInput, bool) {
	var in service.RuleInput
	if !decodeJSON(w, r, &in) {
		return service.RuleInput{}, false
	}
	return in, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation_failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no such resource")
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "resource not in expected state")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
	default:
		s.logger.Printf("management API error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}
