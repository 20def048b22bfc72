package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nithiyan25/reviewtrack/internal/models"
	"github.com/nithiyan25/reviewtrack/internal/review"
	"github.com/nithiyan25/reviewtrack/internal/schedule"
	"github.com/nithiyan25/reviewtrack/internal/store"
)

type Service struct {
	Config *Config
	Store  store.ReviewStore
	Auth   *Auth
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	auth, err := NewAuth(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	return &Service{
		Config: config,
		Store:  store,
		Auth:   auth,
	}, nil
}

func (s *Service) ValidateAuthAndStudent(r *http.Request, scope, student string) error {
	if !s.Config.Server.EnableAuth {
		return nil
	}

	authHeader := r.Header.Get(s.Auth.tokenHeader)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return fmt.Errorf("Invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	return s.Auth.ValidateToken(r.Context(), scope, student, token)
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

// TeamPhaseState loads the team snapshot and runs the phase engine over
// it. A nil snapshot means the team does not exist in the scope.
func (s *Service) TeamPhaseState(scope, teamID string, now time.Time) (*models.TeamSnapshot, *review.PhaseState, error) {
	snap, err := s.Store.GetTeamSnapshot(scope, teamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load team snapshot: %w", err)
	}
	if snap == nil {
		return nil, nil, nil
	}

	state := review.ComputePhaseState(snap, now.Unix())
	return snap, &state, nil
}

// SubmissionEligibility answers whether the team may submit for its
// current phase right now.
func (s *Service) SubmissionEligibility(scope, teamID string, now time.Time) (*review.Decision, *review.PhaseState, error) {
	snap, state, err := s.TeamPhaseState(scope, teamID, now)
	if err != nil || state == nil {
		return nil, nil, err
	}

	decision := review.EvaluateSubmission(snap, *state)
	return &decision, state, nil
}

// SubmitForReview runs the gate and, when allowed, persists the
// submission intent tagged with the current phase. A locked gate is not
// an error: the decision carries the reason for the caller to render.
func (s *Service) SubmitForReview(scope, teamID, student, note string, now time.Time) (*review.Decision, error) {
	snap, state, err := s.TeamPhaseState(scope, teamID, now)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("team %s not found in scope %s", teamID, scope)
	}

	if !snap.Team.HasApprovedMember(student) {
		return nil, fmt.Errorf("student %s is not an approved member of team %s", student, teamID)
	}

	decision := review.EvaluateSubmission(snap, *state)
	if !decision.Allowed {
		return &decision, nil
	}

	sub := &models.Submission{
		TeamID:    teamID,
		Scope:     scope,
		Phase:     decision.Phase,
		Student:   student,
		Note:      note,
		CreatedAt: now.Unix(),
	}
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}
	if err := s.Store.CreateSubmission(sub); err != nil {
		return nil, err
	}

	return &decision, nil
}

// StudentMarks aggregates a student's published marks across the scope.
func (s *Service) StudentMarks(scope, student string) (*review.MarkSummary, error) {
	sc, err := s.Store.GetScope(scope)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("scope %s not configured", scope)
	}

	reviews, err := s.Store.StudentReviews(scope, student)
	if err != nil {
		return nil, err
	}

	summary := review.AggregateMarks(reviews, student, sc.ResultsPublished)
	return &summary, nil
}

// Sessions lists lab sessions falling inside the classifier window.
func (s *Service) Sessions(scope string, classifier schedule.Classifier, now time.Time) ([]models.LabSession, error) {
	start, end, err := schedule.Window(classifier, now)
	if err != nil {
		return nil, err
	}

	startUnix, endUnix := schedule.UnixBounds(start, end)
	sessions, err := s.Store.ListSessions(scope, startUnix, endUnix)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Auth.Close(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
