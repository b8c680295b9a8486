package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/identity"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ApplyRequest struct {
	PositionID string
	FullName   string
	Email      string
	Phone      string
	Source     string
	Actor      identity.Actor
}

type TransitionRequest struct {
	CandidateID  string
	Actor        identity.Actor
	TargetStage  string
	TargetStatus string
	Description  string
	Visibility   Visibility
}

type TransitionResult struct {
	Candidate Candidate        `json:"candidate"`
	Previous  State            `json:"previous"`
	Entry     ActivityLogEntry `json:"activity"`
}

type ListCandidatesRequest struct {
	pagination.Pagination
	PositionID string
	Stage      string
	Status     string
}

type ListCandidatesResponse struct {
	pagination.PageInfo
	Candidates []Candidate `json:"candidates"`
}

type ListActivityRequest struct {
	pagination.Pagination
	CandidateID string
	Viewer      identity.Role
}

type ListActivityResponse struct {
	pagination.PageInfo
	Entries []ActivityLogEntry `json:"entries"`
}

// ActivityInput describes a log entry written by another component inside
// its own transaction.
type ActivityInput struct {
	CandidateID snowflake.ID
	Stage       string
	Status      string
	ActionType  string
	Description string
	Actor       identity.Actor
	Visibility  Visibility
	Metadata    map[string]any
}

type Service interface {
	Apply(ctx context.Context, req ApplyRequest) (Candidate, error)
	Transition(ctx context.Context, req TransitionRequest) (TransitionResult, error)
	GetCandidate(ctx context.Context, id string) (Candidate, error)
	ListCandidates(ctx context.Context, req ListCandidatesRequest) (ListCandidatesResponse, error)
	ListActivity(ctx context.Context, req ListActivityRequest) (ListActivityResponse, error)
	StageCounts(ctx context.Context, positionID string) (map[string]int64, error)

	// RecordActivity appends a log entry using tx.
	RecordActivity(ctx context.Context, tx *gorm.DB, in ActivityInput) (ActivityLogEntry, error)
	// AdvanceInTx moves the candidate from -> to using tx when it is still
	// at from, and logs the move. It reports whether the move happened.
	AdvanceInTx(ctx context.Context, tx *gorm.DB, candidateID snowflake.ID, from, to State, in ActivityInput) (bool, error)
	// LockCandidateInTx reads and row-locks a candidate through tx.
	LockCandidateInTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (Candidate, error)
}

var (
	ErrInvalidCandidateID     = errors.New("invalid_candidate_id")
	ErrCandidateNotFound      = errors.New("candidate_not_found")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrIllegalStageRegression = errors.New("illegal_stage_regression")
	ErrPipelineClosed         = errors.New("pipeline_closed")
	ErrTransitionNotPermitted = errors.New("transition_not_permitted")
	ErrConcurrentTransition   = errors.New("concurrent_transition")
	ErrInvalidName            = errors.New("invalid_full_name")
	ErrInvalidEmail           = errors.New("invalid_email")
	ErrInvalidVisibility      = errors.New("invalid_visibility")
	ErrDuplicateApplication   = errors.New("duplicate_application")
)

func ParseVisibility(raw string) (Visibility, error) {
	switch Visibility(raw) {
	case "":
		return VisibilityBoth, nil
	case VisibilityCandidate, VisibilityManager, VisibilityBoth:
		return Visibility(raw), nil
	default:
		return "", ErrInvalidVisibility
	}
}

// VisibleTo lists the visibilities a viewer role may read. A nil result
// means no filter.
func VisibleTo(role identity.Role) []Visibility {
	switch role {
	case identity.RoleCandidate:
		return []Visibility{VisibilityCandidate, VisibilityBoth}
	case identity.RoleManager:
		return []Visibility{VisibilityManager, VisibilityBoth}
	case identity.RoleHR, identity.RoleAdmin:
		return nil
	default:
		return []Visibility{VisibilityBoth}
	}
}
