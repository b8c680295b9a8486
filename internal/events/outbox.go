package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrMissingAggregateID = errors.New("missing aggregate_id")

type outboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutboxPublisher(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) Publisher {
	return &outboxPublisher{
		db:    db,
		genID: genID,
		clock: clk,
	}
}

func (p *outboxPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	var parsed Envelope
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return err
	}

	aggregateID := strings.TrimSpace(parsed.AggregateID)
	if aggregateID == "" {
		return ErrMissingAggregateID
	}

	return p.db.WithContext(ctx).Exec(
		`INSERT INTO recruitment_events (id, event_type, aggregate_id, payload, published, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.genID.Generate(),
		topic,
		aggregateID,
		datatypes.JSON(payload),
		false,
		p.clock.Now(),
	).Error
}
