package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/position/domain"
	"github.com/smallbiznis/talentflow/pkg/db/option"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, position *domain.Position) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO positions (id, reference_number, title, department, status, headcount, sla_days, manager_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		position.ID,
		position.ReferenceNumber,
		position.Title,
		position.Department,
		position.Status,
		position.Headcount,
		position.SLADays,
		position.ManagerID,
		position.CreatedAt,
		position.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Position, error) {
	var position domain.Position
	err := db.WithContext(ctx).Raw(
		`SELECT id, reference_number, title, department, status, headcount, sla_days, manager_id, created_at, updated_at
		 FROM positions WHERE id = ?`,
		id,
	).Scan(&position).Error
	if err != nil {
		return nil, err
	}
	if position.ID == 0 {
		return nil, nil
	}
	return &position, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Position, error) {
	var positions []*domain.Position
	stmt := db.WithContext(ctx).Model(&domain.Position{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ManagerID != "" {
		stmt = stmt.Where("manager_id = ?", filter.ManagerID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("id desc").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *repo) CountByReferencePrefix(ctx context.Context, db *gorm.DB, prefix string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM positions WHERE reference_number LIKE ?`,
		prefix+"%",
	).Scan(&count).Error
	return count, err
}
