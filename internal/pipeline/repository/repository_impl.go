package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/pipeline/domain"
	"github.com/smallbiznis/talentflow/pkg/db/option"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCandidate(ctx context.Context, db *gorm.DB, c *domain.Candidate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO candidates (id, position_id, candidate_number, full_name, email, phone, source, current_stage, current_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.PositionID,
		c.CandidateNumber,
		c.FullName,
		c.Email,
		c.Phone,
		c.Source,
		c.CurrentStage,
		c.CurrentStatus,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) FindCandidate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Candidate, error) {
	var c domain.Candidate
	err := db.WithContext(ctx).Raw(
		`SELECT id, position_id, candidate_number, full_name, email, phone, source, current_stage, current_status, created_at, updated_at
		 FROM candidates WHERE id = ?`,
		id,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) FindCandidateForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Candidate, error) {
	var c domain.Candidate
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (r *repo) ExistsByEmail(ctx context.Context, db *gorm.DB, positionID snowflake.ID, email string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM candidates WHERE position_id = ? AND LOWER(email) = LOWER(?)`,
		positionID, email,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) CountByNumberPrefix(ctx context.Context, db *gorm.DB, prefix string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM candidates WHERE candidate_number LIKE ?`,
		prefix+"%",
	).Scan(&count).Error
	return count, err
}

func (r *repo) ListCandidates(ctx context.Context, db *gorm.DB, filter domain.CandidateFilter, page pagination.Pagination) ([]*domain.Candidate, error) {
	var items []*domain.Candidate
	stmt := db.WithContext(ctx).Model(&domain.Candidate{})
	if filter.PositionID != 0 {
		stmt = stmt.Where("position_id = ?", filter.PositionID)
	}
	if filter.Stage != "" {
		stmt = stmt.Where("current_stage = ?", filter.Stage)
	}
	if filter.Status != "" {
		stmt = stmt.Where("current_status = ?", filter.Status)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindCandidatesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Candidate
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, id snowflake.ID, from domain.State, to domain.State, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE candidates
		 SET current_stage = ?, current_status = ?, updated_at = ?
		 WHERE id = ? AND current_stage = ? AND current_status = ?`,
		to.Stage, to.Status, at,
		id, from.Stage, from.Status,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) CountByStage(ctx context.Context, db *gorm.DB, positionID snowflake.ID) (map[string]int64, error) {
	var rows []struct {
		Stage string `gorm:"column:current_stage"`
		Count int64  `gorm:"column:count"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT current_stage, COUNT(*) AS count
		 FROM candidates
		 WHERE position_id = ?
		 GROUP BY current_stage`,
		positionID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Stage] = row.Count
	}
	return out, nil
}

func (r *repo) InsertActivity(ctx context.Context, db *gorm.DB, e *domain.ActivityLogEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO candidate_activity_logs (id, candidate_id, stage, status, action_type, description, performed_by, actor_role, visibility, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.CandidateID,
		e.Stage,
		e.Status,
		e.ActionType,
		e.Description,
		e.PerformedBy,
		e.ActorRole,
		e.Visibility,
		e.Metadata,
		e.CreatedAt,
	).Error
}

func (r *repo) ListActivity(ctx context.Context, db *gorm.DB, candidateID snowflake.ID, visibilities []domain.Visibility, page pagination.Pagination) ([]*domain.ActivityLogEntry, error) {
	var items []*domain.ActivityLogEntry
	stmt := db.WithContext(ctx).Model(&domain.ActivityLogEntry{}).
		Where("candidate_id = ?", candidateID)
	if len(visibilities) > 0 {
		stmt = stmt.Where("visibility IN ?", visibilities)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
