package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type CandidateFilter struct {
	PositionID snowflake.ID
	Stage      string
	Status     string
}

type Repository interface {
	InsertCandidate(ctx context.Context, db *gorm.DB, candidate *Candidate) error
	FindCandidate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Candidate, error)
	// FindCandidateForUpdate row-locks the candidate on dialects that
	// support SELECT ... FOR UPDATE.
	FindCandidateForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Candidate, error)
	ExistsByEmail(ctx context.Context, db *gorm.DB, positionID snowflake.ID, email string) (bool, error)
	CountByNumberPrefix(ctx context.Context, db *gorm.DB, prefix string) (int64, error)
	ListCandidates(ctx context.Context, db *gorm.DB, filter CandidateFilter, page pagination.Pagination) ([]*Candidate, error)
	FindCandidatesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Candidate, error)

	// UpdateState moves the candidate only if it still holds from; the
	// returned count is zero when another writer got there first.
	UpdateState(ctx context.Context, db *gorm.DB, id snowflake.ID, from State, to State, at time.Time) (int64, error)
	CountByStage(ctx context.Context, db *gorm.DB, positionID snowflake.ID) (map[string]int64, error)

	InsertActivity(ctx context.Context, db *gorm.DB, entry *ActivityLogEntry) error
	ListActivity(ctx context.Context, db *gorm.DB, candidateID snowflake.ID, visibilities []Visibility, page pagination.Pagination) ([]*ActivityLogEntry, error)
}
