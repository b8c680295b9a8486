package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/action"
	interviewdomain "github.com/smallbiznis/talentflow/internal/interview/domain"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
)

type Type string

const (
	TypeCandidate Type = "candidate"
	TypeManager   Type = "manager"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Pass is a shareable link to a read-only projection. Only the hash of the
// token is stored.
type Pass struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	PassNumber  string        `gorm:"not null;uniqueIndex" json:"pass_number"`
	PassType    Type          `gorm:"not null" json:"pass_type"`
	CandidateID *snowflake.ID `json:"candidate_id,omitempty"`
	PositionID  snowflake.ID  `gorm:"not null;index" json:"position_id"`
	ManagerID   string        `json:"manager_id,omitempty"`
	TokenHash   string        `gorm:"not null;uniqueIndex" json:"-"`
	ValidFrom   time.Time     `gorm:"not null" json:"valid_from"`
	ValidUntil  time.Time     `gorm:"not null" json:"valid_until"`
	RevokedAt   *time.Time    `json:"revoked_at,omitempty"`
	CreatedBy   string        `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
}

func (Pass) TableName() string { return "passes" }

func (p Pass) StatusAt(now time.Time) Status {
	switch {
	case p.RevokedAt != nil:
		return StatusRevoked
	case !now.Before(p.ValidUntil):
		return StatusExpired
	default:
		return StatusActive
	}
}

type StageState string

const (
	StageCompleted StageState = "completed"
	StageCurrent   StageState = "current"
	StageUpcoming  StageState = "upcoming"
)

type StageView struct {
	Key   string     `json:"key"`
	Index int        `json:"index"`
	Label string     `json:"label"`
	State StageState `json:"state"`
}

// CandidatePass is the candidate-facing projection. It is derived on every
// read and never stored.
type CandidatePass struct {
	CandidateID     snowflake.ID                      `json:"candidate_id"`
	CandidateNumber string                            `json:"candidate_number"`
	FullName        string                            `json:"full_name"`
	PositionID      snowflake.ID                      `json:"position_id"`
	PositionTitle   string                            `json:"position_title"`
	CurrentStage    string                            `json:"current_stage"`
	CurrentStatus   string                            `json:"current_status"`
	StageLabel      string                            `json:"stage_label"`
	StatusLabel     string                            `json:"status_label"`
	Closed          bool                              `json:"closed"`
	Stages          []StageView                       `json:"stages"`
	NextAction      *action.Action                    `json:"next_action"`
	ActiveRound     int                               `json:"active_round,omitempty"`
	BookedSlot      *interviewdomain.Slot             `json:"booked_slot"`
	AvailableSlots  []interviewdomain.Slot            `json:"available_slots"`
	Activity        []pipelinedomain.ActivityLogEntry `json:"activity"`
}

type ConfirmedInterview struct {
	SlotID        snowflake.ID `json:"slot_id"`
	CandidateID   snowflake.ID `json:"candidate_id"`
	CandidateName string       `json:"candidate_name"`
	SlotDate      string       `json:"slot_date"`
	StartTime     string       `json:"start_time"`
	EndTime       string       `json:"end_time"`
	RoundNumber   int          `json:"round_number"`
}

type SlotOccupancy struct {
	Open      int64 `json:"open"`
	Booked    int64 `json:"booked"`
	Cancelled int64 `json:"cancelled"`
}

// ManagerPass is the hiring manager's projection of one position.
type ManagerPass struct {
	Position            positiondomain.Position `json:"position"`
	SLADays             int                     `json:"sla_days"`
	DaysOpen            int                     `json:"days_open"`
	SLABreached         bool                    `json:"sla_breached"`
	PipelineStats       map[string]int64        `json:"pipeline_stats"`
	TotalCandidates     int64                   `json:"total_candidates"`
	Setup               *interviewdomain.Setup  `json:"setup"`
	Slots               SlotOccupancy           `json:"slots"`
	ConfirmedInterviews []ConfirmedInterview    `json:"confirmed_interviews"`
	PendingFeedback     int                     `json:"pending_feedback"`
	NextAction          *action.Action          `json:"next_action"`
}
