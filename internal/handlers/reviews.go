package handlers

import (
	"time"

	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nithiyan25/reviewtrack/internal/app"
	"github.com/nithiyan25/reviewtrack/internal/metrics"
	"github.com/nithiyan25/reviewtrack/internal/schedule"
)

type ReviewHandler struct {
	service *app.Service
}

func NewReviewHandler(service *app.Service) *ReviewHandler {
	return &ReviewHandler{
		service: service,
	}
}

func (h *ReviewHandler) observe(r *http.Request, start time.Time, status string) {
	duration := time.Since(start).Seconds()
	metrics.APIRequestDuration.WithLabelValues(
		r.URL.Path,
		r.Method,
		status,
	).Observe(duration)
}

// HandleTeamPhase serves the phase engine output for one team.
func (h *ReviewHandler) HandleTeamPhase(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, start, "200")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	scope := r.PathValue("scope")
	teamID := r.PathValue("team")
	if scope == "" || teamID == "" {
		logger.Error.Printf("Failed to extract scope/team from path: %s", r.URL.Path)
		http.Error(w, "Invalid scope or team", http.StatusBadRequest)
		return
	}

	_, state, err := h.service.TeamPhaseState(scope, teamID, time.Now())
	if err != nil {
		logger.Error.Printf("Failed to compute phase state: %v", err)
		http.Error(w, "Failed to compute phase state", http.StatusInternalServerError)
		return
	}
	if state == nil {
		http.Error(w, "Team not found", http.StatusNotFound)
		return
	}

	metrics.CurrentPhaseGauge.WithLabelValues(scope, teamID).Set(float64(state.CurrentPhase))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"phase_state": state,
	}); err != nil {
		logger.Error.Printf("Failed to encode phase state: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// HandleEligibility serves the submission gate decision without
// creating a submission.
func (h *ReviewHandler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, start, "200")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	scope := r.PathValue("scope")
	teamID := r.PathValue("team")
	if scope == "" || teamID == "" {
		logger.Error.Printf("Failed to extract scope/team from path: %s", r.URL.Path)
		http.Error(w, "Invalid scope or team", http.StatusBadRequest)
		return
	}

	decision, state, err := h.service.SubmissionEligibility(scope, teamID, time.Now())
	if err != nil {
		logger.Error.Printf("Failed to evaluate eligibility: %v", err)
		http.Error(w, "Failed to evaluate eligibility", http.StatusInternalServerError)
		return
	}
	if decision == nil {
		http.Error(w, "Team not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"decision":    decision,
		"phase_state": state,
	}); err != nil {
		logger.Error.Printf("Failed to encode eligibility: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

type submitRequest struct {
	Note string `json:"note"`
}

// HandleSubmit runs the gate and records the submission intent. A locked
// gate answers 409 with the gating reason in the body.
func (h *ReviewHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, start, "200")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	scope := r.PathValue("scope")
	teamID := r.PathValue("team")
	if scope == "" || teamID == "" {
		logger.Error.Printf("Failed to extract scope/team from path: %s", r.URL.Path)
		http.Error(w, "Invalid scope or team", http.StatusBadRequest)
		return
	}

	student := r.Header.Get(h.service.Config.API.StudentIDHeader)
	if student == "" {
		http.Error(w, "Invalid student id specified", http.StatusUnauthorized)
		return
	}

	if err := h.service.ValidateAuthAndStudent(r, scope, student); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	decision, err := h.service.SubmitForReview(scope, teamID, student, req.Note, time.Now())
	if err != nil {
		logger.Error.Printf("Failed to submit for review: %v", err)
		http.Error(w, "Failed to submit for review", http.StatusInternalServerError)
		return
	}

	outcome := "allowed"
	if !decision.Allowed {
		outcome = decision.Reason
	}
	metrics.SubmissionDecisionsTotal.WithLabelValues(scope, outcome).Inc()

	w.Header().Set("Content-Type", "application/json")
	if !decision.Allowed {
		w.WriteHeader(http.StatusConflict)
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"decision": decision,
	}); err != nil {
		logger.Error.Printf("Failed to encode decision: %v", err)
	}
}

// HandleStudentMarks serves the aggregate. The payload stays "pending"
// until the scope publishes results.
func (h *ReviewHandler) HandleStudentMarks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, start, "200")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	scope := r.PathValue("scope")
	student := r.PathValue("student")
	if scope == "" || student == "" {
		logger.Error.Printf("Failed to extract scope/student from path: %s", r.URL.Path)
		http.Error(w, "Invalid scope or student", http.StatusBadRequest)
		return
	}

	if err := h.service.ValidateAuthAndStudent(r, scope, student); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summary, err := h.service.StudentMarks(scope, student)
	if err != nil {
		logger.Error.Printf("Failed to aggregate marks for %s/%s: %v", scope, student, err)
		http.Error(w, "Failed to aggregate marks", http.StatusInternalServerError)
		return
	}

	if summary.CumulativePct != nil {
		metrics.MarksPercentHistogram.WithLabelValues(scope).Observe(*summary.CumulativePct)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"marks": summary,
	}); err != nil {
		logger.Error.Printf("Failed to encode marks: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// HandleSessions lists lab sessions for a window classifier, default
// today.
func (h *ReviewHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, start, "200")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	scope := r.PathValue("scope")
	if scope == "" {
		logger.Error.Printf("Failed to extract scope from path: %s", r.URL.Path)
		http.Error(w, "Invalid scope", http.StatusBadRequest)
		return
	}

	classifier := schedule.Classifier(r.URL.Query().Get("window"))
	if classifier == "" {
		classifier = schedule.WindowToday
	}

	sessions, err := h.service.Sessions(scope, classifier, time.Now())
	if err != nil {
		logger.Error.Printf("Failed to list sessions: %v", err)
		http.Error(w, "Failed to list sessions", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"rows": sessions,
	}); err != nil {
		logger.Error.Printf("Failed to encode sessions: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// HandleTeams lists teams in a scope alongside their review progress
// rollup.
func (h *ReviewHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer h.observe(r, start, "200")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	scope := r.PathValue("scope")
	if scope == "" {
		logger.Error.Printf("Failed to extract scope from path: %s", r.URL.Path)
		http.Error(w, "Invalid scope", http.StatusBadRequest)
		return
	}

	teams, err := h.service.Store.ListTeams(scope)
	if err != nil {
		logger.Error.Printf("Failed to list teams: %v", err)
		http.Error(w, "Failed to list teams", http.StatusInternalServerError)
		return
	}

	progress, err := h.service.Store.FetchReviewProgress(scope)
	if err != nil {
		logger.Error.Printf("Failed to fetch review progress: %v", err)
		http.Error(w, "Failed to fetch review progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"teams":    teams,
		"progress": progress,
	}); err != nil {
		logger.Error.Printf("Failed to encode teams: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
