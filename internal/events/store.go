package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Store reads and settles outbox rows for the relay.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FetchPending(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []Event
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, event_type, aggregate_id, payload, published, published_at, created_at
		 FROM recruitment_events
		 WHERE published = ?
		 ORDER BY id ASC
		 LIMIT ?`,
		false, limit,
	).Scan(&rows).Error
	return rows, err
}

func (s *Store) MarkPublished(ctx context.Context, id snowflake.ID, at time.Time) error {
	return s.db.WithContext(ctx).Exec(
		`UPDATE recruitment_events SET published = ?, published_at = ? WHERE id = ? AND published = ?`,
		true, at, id, false,
	).Error
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM recruitment_events WHERE published = ?`,
		false,
	).Scan(&count).Error
	return count, err
}
