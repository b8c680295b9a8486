package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/pass/domain"
	"github.com/smallbiznis/talentflow/pkg/db/option"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Pass) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO passes (id, pass_number, pass_type, candidate_id, position_id, manager_id, token_hash, valid_from, valid_until, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.PassNumber,
		p.PassType,
		p.CandidateID,
		p.PositionID,
		p.ManagerID,
		p.TokenHash,
		p.ValidFrom,
		p.ValidUntil,
		p.CreatedBy,
		p.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Pass, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByTokenHash(ctx context.Context, db *gorm.DB, hash string) (*domain.Pass, error) {
	return r.findOne(ctx, db, "token_hash = ?", hash)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Pass, error) {
	var p domain.Pass
	err := db.WithContext(ctx).Where(where, arg).Limit(1).Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Pass, error) {
	stmt := db.WithContext(ctx).Model(&domain.Pass{})
	if filter.Type != "" {
		stmt = stmt.Where("pass_type = ?", filter.Type)
	}
	if filter.PositionID != 0 {
		stmt = stmt.Where("position_id = ?", filter.PositionID)
	}
	switch filter.Status {
	case domain.StatusActive:
		stmt = stmt.Where("revoked_at IS NULL AND valid_until > ?", filter.Now)
	case domain.StatusExpired:
		stmt = stmt.Where("revoked_at IS NULL AND valid_until <= ?", filter.Now)
	case domain.StatusRevoked:
		stmt = stmt.Where("revoked_at IS NOT NULL")
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Pass
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Revoke(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE passes SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		at, id,
	)
	return res.RowsAffected, res.Error
}
