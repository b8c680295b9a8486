package domain

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/smallbiznis/talentflow/internal/identity"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
)

type IssueCandidatePassRequest struct {
	CandidateID string
	// TTL overrides the configured lifetime when positive.
	TTL   time.Duration
	Actor identity.Actor
}

type IssueManagerPassRequest struct {
	PositionID string
	ManagerID  string
	TTL        time.Duration
	Actor      identity.Actor
}

// IssuedPass carries the raw token. It is returned once and never again.
type IssuedPass struct {
	Pass  Pass   `json:"pass"`
	Token string `json:"token"`
}

type ListRequest struct {
	pagination.Pagination
	Type       string
	Status     string
	PositionID string
}

type ListResponse struct {
	pagination.PageInfo
	Passes []PassView `json:"passes"`
}

type PassView struct {
	Pass
	Status Status `json:"status"`
}

// Resolved is the public result of a token lookup. Exactly one of the
// projections is set.
type Resolved struct {
	Pass      PassView       `json:"pass"`
	Candidate *CandidatePass `json:"candidate,omitempty"`
	Manager   *ManagerPass   `json:"manager,omitempty"`
}

type ManagerViewRequest struct {
	PositionID string
	Viewer     identity.Actor
}

type Service interface {
	CandidateView(ctx context.Context, candidateID string) (CandidatePass, error)
	ManagerView(ctx context.Context, req ManagerViewRequest) (ManagerPass, error)

	IssueCandidatePass(ctx context.Context, req IssueCandidatePassRequest) (IssuedPass, error)
	IssueManagerPass(ctx context.Context, req IssueManagerPassRequest) (IssuedPass, error)
	ResolveCandidate(ctx context.Context, token string) (CandidatePass, error)
	ResolveManager(ctx context.Context, token string) (ManagerPass, error)
	Resolve(ctx context.Context, token string) (Resolved, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Revoke(ctx context.Context, id string, actor identity.Actor) (PassView, error)
	RenderCandidatePass(ctx context.Context, token string) (io.Reader, error)
}

var (
	ErrInvalidID          = errors.New("invalid_pass_id")
	ErrInvalidType        = errors.New("invalid_pass_type")
	ErrInvalidStatus      = errors.New("invalid_pass_status")
	ErrPassNotFound       = errors.New("pass_not_found")
	ErrPassExpired        = errors.New("pass_expired")
	ErrPassRevoked        = errors.New("pass_revoked")
	ErrNotPositionManager = errors.New("not_position_manager")
)

func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return "", nil
	case TypeCandidate:
		return TypeCandidate, nil
	case TypeManager:
		return TypeManager, nil
	default:
		return "", ErrInvalidType
	}
}

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return "", nil
	case StatusActive:
		return StatusActive, nil
	case StatusExpired:
		return StatusExpired, nil
	case StatusRevoked:
		return StatusRevoked, nil
	default:
		return "", ErrInvalidStatus
	}
}
