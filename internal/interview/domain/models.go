package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

type Format string

const (
	FormatOnline   Format = "online"
	FormatInPerson Format = "in-person"
	FormatHybrid   Format = "hybrid"
)

type SlotStatus string

const (
	SlotStatusOpen      SlotStatus = "open"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCancelled SlotStatus = "cancelled"
)

type Recommendation string

const (
	RecommendationAdvance Recommendation = "advance"
	RecommendationHold    Recommendation = "hold"
	RecommendationReject  Recommendation = "reject"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Setup is the interview plan for a position. Exactly one exists per
// position; RoundNumber is the first round it covers.
type Setup struct {
	ID                          snowflake.ID   `gorm:"primaryKey" json:"id"`
	PositionID                  snowflake.ID   `gorm:"not null;uniqueIndex" json:"position_id"`
	RoundNumber                 int            `gorm:"not null;default:1" json:"round_number"`
	InterviewFormat             Format         `gorm:"not null" json:"interview_format"`
	InterviewRounds             int            `gorm:"not null" json:"interview_rounds"`
	TechnicalAssessmentRequired bool           `gorm:"not null" json:"technical_assessment_required"`
	AdditionalInterviewers      pq.StringArray `gorm:"type:text" json:"additional_interviewers"`
	Notes                       string         `json:"notes,omitempty"`
	CreatedBy                   string         `gorm:"not null" json:"created_by"`
	CreatedAt                   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt                   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Setup) TableName() string { return "interview_setups" }

type Slot struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	SetupID            snowflake.ID  `gorm:"not null;index" json:"setup_id"`
	PositionID         snowflake.ID  `gorm:"not null;index" json:"position_id"`
	SlotDate           string        `gorm:"not null" json:"slot_date"`
	StartTime          string        `gorm:"not null" json:"start_time"`
	EndTime            string        `gorm:"not null" json:"end_time"`
	RoundNumber        int           `gorm:"not null" json:"round_number"`
	Status             SlotStatus    `gorm:"not null" json:"status"`
	CandidateID        *snowflake.ID `json:"candidate_id,omitempty"`
	CandidateConfirmed bool          `gorm:"not null" json:"candidate_confirmed"`
	BookedAt           *time.Time    `json:"booked_at,omitempty"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null" json:"updated_at"`
}

func (Slot) TableName() string { return "interview_slots" }

// BookedBy reports whether the slot is booked by the candidate.
func (s Slot) BookedBy(candidateID snowflake.ID) bool {
	return s.Status == SlotStatusBooked && s.CandidateID != nil && *s.CandidateID == candidateID
}

type Feedback struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	SlotID         snowflake.ID   `gorm:"not null;uniqueIndex" json:"slot_id"`
	CandidateID    snowflake.ID   `gorm:"not null;index" json:"candidate_id"`
	PositionID     snowflake.ID   `gorm:"not null;index" json:"position_id"`
	RoundNumber    int            `gorm:"not null" json:"round_number"`
	ReviewerID     string         `gorm:"not null" json:"reviewer_id"`
	Recommendation Recommendation `gorm:"not null" json:"recommendation"`
	Notes          string         `json:"notes,omitempty"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
}

func (Feedback) TableName() string { return "interview_feedback" }
