package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Type       Type
	Status     Status
	PositionID snowflake.ID
	Now        time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pass *Pass) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Pass, error)
	FindByTokenHash(ctx context.Context, db *gorm.DB, hash string) (*Pass, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Pass, error)
	Revoke(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)
}
