package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Visibility string

const (
	VisibilityCandidate Visibility = "candidate"
	VisibilityManager   Visibility = "manager"
	VisibilityBoth      Visibility = "both"
)

// Activity action types written to the log.
const (
	ActivityApplicationSubmitted = "application_submitted"
	ActivityStageChanged         = "stage_changed"
	ActivityStatusChanged        = "status_changed"
	ActivityPipelineClosed       = "pipeline_closed"
	ActivityInterviewBooked      = "interview_booked"
	ActivityInterviewConfirmed   = "interview_confirmed"
	ActivityFeedbackSubmitted    = "feedback_submitted"
)

// State is a candidate's position in the pipeline.
type State struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
}

type Candidate struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	PositionID      snowflake.ID `gorm:"not null;index" json:"position_id"`
	CandidateNumber string       `gorm:"not null;uniqueIndex" json:"candidate_number"`
	FullName        string       `gorm:"not null" json:"full_name"`
	Email           string       `gorm:"not null" json:"email"`
	Phone           string       `json:"phone,omitempty"`
	Source          string       `json:"source,omitempty"`
	CurrentStage    string       `gorm:"not null" json:"current_stage"`
	CurrentStatus   string       `gorm:"not null" json:"current_status"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

func (Candidate) TableName() string { return "candidates" }

func (c Candidate) State() State {
	return State{Stage: c.CurrentStage, Status: c.CurrentStatus}
}

// ActivityLogEntry is append-only.
type ActivityLogEntry struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	CandidateID snowflake.ID      `gorm:"not null;index" json:"candidate_id"`
	Stage       string            `gorm:"not null" json:"stage"`
	Status      string            `gorm:"not null" json:"status"`
	ActionType  string            `gorm:"not null" json:"action_type"`
	Description string            `gorm:"not null" json:"description"`
	PerformedBy string            `gorm:"not null" json:"performed_by"`
	ActorRole   string            `gorm:"not null" json:"actor_role"`
	Visibility  Visibility        `gorm:"not null" json:"visibility"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
}

func (ActivityLogEntry) TableName() string { return "candidate_activity_logs" }
