package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SlotFilter struct {
	SetupID     snowflake.ID
	PositionID  snowflake.ID
	CandidateID snowflake.ID
	RoundNumber int
	Status      SlotStatus
}

type Repository interface {
	InsertSetup(ctx context.Context, db *gorm.DB, setup *Setup) error
	UpdateSetup(ctx context.Context, db *gorm.DB, setup *Setup) error
	FindSetup(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Setup, error)
	FindSetupByPosition(ctx context.Context, db *gorm.DB, positionID snowflake.ID) (*Setup, error)

	InsertSlots(ctx context.Context, db *gorm.DB, slots []Slot) error
	FindSlot(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Slot, error)
	ListSlots(ctx context.Context, db *gorm.DB, filter SlotFilter) ([]Slot, error)
	CountSlotsByStatus(ctx context.Context, db *gorm.DB, positionID snowflake.ID) (map[SlotStatus]int64, error)
	MaxBookedRound(ctx context.Context, db *gorm.DB, setupID snowflake.ID) (int, error)

	// ClaimSlot books an open slot for the candidate in one conditional
	// statement. Zero rows means the slot was not open or the candidate
	// already holds a booking for the round.
	ClaimSlot(ctx context.Context, db *gorm.DB, slotID, candidateID snowflake.ID, round int, at time.Time) (int64, error)
	MarkConfirmed(ctx context.Context, db *gorm.DB, slotID, candidateID snowflake.ID, at time.Time) (int64, error)
	MarkCancelled(ctx context.Context, db *gorm.DB, slotID snowflake.ID, at time.Time) (int64, error)
	HasBookingForRound(ctx context.Context, db *gorm.DB, candidateID snowflake.ID, round int) (bool, error)

	InsertFeedback(ctx context.Context, db *gorm.DB, feedback *Feedback) error
	FindFeedbackBySlot(ctx context.Context, db *gorm.DB, slotID snowflake.ID) (*Feedback, error)
	CountPendingFeedback(ctx context.Context, db *gorm.DB, positionID snowflake.ID) (int64, error)
}
