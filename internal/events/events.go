package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TopicCandidateApplied      = "candidate.applied"
	TopicCandidateTransitioned = "candidate.transitioned"
	TopicSlotsCreated          = "slots.created"
	TopicSlotBooked            = "slot.booked"
	TopicSlotConfirmed         = "slot.confirmed"
	TopicSlotCancelled         = "slot.cancelled"
	TopicFeedbackSubmitted     = "feedback.submitted"
	TopicPassIssued            = "pass.issued"
	TopicPassRevoked           = "pass.revoked"
)

// Publisher records a post-commit event. Callers treat failures as
// non-fatal: the state change has already been committed.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Envelope is the wire shape of every event payload.
type Envelope struct {
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Event is an outbox row.
type Event struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	EventType   string         `gorm:"column:event_type;not null" json:"event_type"`
	AggregateID string         `gorm:"column:aggregate_id;not null" json:"aggregate_id"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Published   bool           `gorm:"not null" json:"published"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Event) TableName() string { return "recruitment_events" }

// Emit wraps data in an Envelope and hands it to the publisher.
func Emit(ctx context.Context, p Publisher, topic, aggregateID string, occurredAt time.Time, data any) error {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Envelope{
		AggregateID: aggregateID,
		OccurredAt:  occurredAt.UTC(),
		Data:        raw,
	})
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, payload)
}
