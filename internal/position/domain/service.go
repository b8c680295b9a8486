package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/talentflow/pkg/db/pagination"
)

type CreateRequest struct {
	Title           string
	Department      string
	Status          string
	Headcount       int
	SLADays         int
	ManagerID       string
	ReferenceNumber string
}

type ListRequest struct {
	pagination.Pagination
	Status    string
	ManagerID string
}

type ListResponse struct {
	pagination.PageInfo
	Positions []Position `json:"positions"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Position, error)
	GetByID(ctx context.Context, id string) (Position, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidID        = errors.New("invalid_position_id")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidStatus    = errors.New("invalid_position_status")
	ErrInvalidHeadcount = errors.New("invalid_headcount")
	ErrInvalidSLADays   = errors.New("invalid_sla_days")
	ErrInvalidManager   = errors.New("invalid_manager")
	ErrDuplicateRef     = errors.New("duplicate_reference_number")
	ErrNotFound         = errors.New("position_not_found")
	ErrNotOpen          = errors.New("position_not_open")
)

func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusOpen, StatusPendingApproval, StatusClosed:
		return Status(raw), nil
	default:
		return "", ErrInvalidStatus
	}
}
