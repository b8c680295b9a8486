package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status    Status
	ManagerID string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, position *Position) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Position, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Position, error)
	CountByReferencePrefix(ctx context.Context, db *gorm.DB, prefix string) (int64, error)
}
