package domain

import (
	"time"

	"github.com/smallbiznis/talentflow/internal/action"
	"github.com/smallbiznis/talentflow/internal/catalog"
	interviewdomain "github.com/smallbiznis/talentflow/internal/interview/domain"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
)

// Public projections are served to token holders. They carry labels, dates
// and human-readable numbers only; no record ids or portal user ids.

type PublicPass struct {
	PassNumber string    `json:"pass_number"`
	PassType   Type      `json:"pass_type"`
	Status     Status    `json:"status"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
}

type PublicSlot struct {
	SlotDate    string `json:"slot_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	RoundNumber int    `json:"round_number"`
	Confirmed   bool   `json:"confirmed"`
}

type PublicActivity struct {
	StageLabel  string    `json:"stage_label"`
	StatusLabel string    `json:"status_label"`
	ActionType  string    `json:"action_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type PublicCandidatePass struct {
	CandidateNumber string           `json:"candidate_number"`
	FullName        string           `json:"full_name"`
	PositionTitle   string           `json:"position_title"`
	CurrentStage    string           `json:"current_stage"`
	CurrentStatus   string           `json:"current_status"`
	StageLabel      string           `json:"stage_label"`
	StatusLabel     string           `json:"status_label"`
	Closed          bool             `json:"closed"`
	Stages          []StageView      `json:"stages"`
	NextAction      *action.Action   `json:"next_action"`
	ActiveRound     int              `json:"active_round,omitempty"`
	BookedSlot      *PublicSlot      `json:"booked_slot"`
	AvailableSlots  []PublicSlot     `json:"available_slots"`
	Activity        []PublicActivity `json:"activity"`
}

type PublicInterviewSetup struct {
	InterviewFormat             interviewdomain.Format `json:"interview_format"`
	InterviewRounds             int                    `json:"interview_rounds"`
	TechnicalAssessmentRequired bool                   `json:"technical_assessment_required"`
}

type PublicInterview struct {
	CandidateName string `json:"candidate_name"`
	SlotDate      string `json:"slot_date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	RoundNumber   int    `json:"round_number"`
}

type PublicManagerPass struct {
	ReferenceNumber     string                `json:"reference_number"`
	PositionTitle       string                `json:"position_title"`
	Department          string                `json:"department"`
	PositionStatus      string                `json:"position_status"`
	Headcount           int                   `json:"headcount"`
	SLADays             int                   `json:"sla_days"`
	DaysOpen            int                   `json:"days_open"`
	SLABreached         bool                  `json:"sla_breached"`
	PipelineStats       map[string]int64      `json:"pipeline_stats"`
	TotalCandidates     int64                 `json:"total_candidates"`
	Setup               *PublicInterviewSetup `json:"setup"`
	Slots               SlotOccupancy         `json:"slots"`
	ConfirmedInterviews []PublicInterview     `json:"confirmed_interviews"`
	PendingFeedback     int                   `json:"pending_feedback"`
	NextAction          *action.Action        `json:"next_action"`
}

type PublicResolved struct {
	Pass      PublicPass           `json:"pass"`
	Candidate *PublicCandidatePass `json:"candidate,omitempty"`
	Manager   *PublicManagerPass   `json:"manager,omitempty"`
}

func (r Resolved) Public() PublicResolved {
	out := PublicResolved{Pass: r.Pass.Public()}
	if r.Candidate != nil {
		view := r.Candidate.Public()
		out.Candidate = &view
	}
	if r.Manager != nil {
		view := r.Manager.Public()
		out.Manager = &view
	}
	return out
}

func (v PassView) Public() PublicPass {
	return PublicPass{
		PassNumber: v.PassNumber,
		PassType:   v.PassType,
		Status:     v.Status,
		ValidFrom:  v.ValidFrom,
		ValidUntil: v.ValidUntil,
	}
}

func (c CandidatePass) Public() PublicCandidatePass {
	out := PublicCandidatePass{
		CandidateNumber: c.CandidateNumber,
		FullName:        c.FullName,
		PositionTitle:   c.PositionTitle,
		CurrentStage:    c.CurrentStage,
		CurrentStatus:   c.CurrentStatus,
		StageLabel:      c.StageLabel,
		StatusLabel:     c.StatusLabel,
		Closed:          c.Closed,
		Stages:          c.Stages,
		NextAction:      c.NextAction,
		ActiveRound:     c.ActiveRound,
		AvailableSlots:  make([]PublicSlot, 0, len(c.AvailableSlots)),
		Activity:        make([]PublicActivity, 0, len(c.Activity)),
	}
	if c.BookedSlot != nil {
		slot := publicSlot(*c.BookedSlot)
		out.BookedSlot = &slot
	}
	for _, slot := range c.AvailableSlots {
		out.AvailableSlots = append(out.AvailableSlots, publicSlot(slot))
	}
	for _, entry := range c.Activity {
		out.Activity = append(out.Activity, publicActivity(entry))
	}
	return out
}

func (m ManagerPass) Public() PublicManagerPass {
	out := PublicManagerPass{
		ReferenceNumber:     m.Position.ReferenceNumber,
		PositionTitle:       m.Position.Title,
		Department:          m.Position.Department,
		PositionStatus:      string(m.Position.Status),
		Headcount:           m.Position.Headcount,
		SLADays:             m.SLADays,
		DaysOpen:            m.DaysOpen,
		SLABreached:         m.SLABreached,
		PipelineStats:       m.PipelineStats,
		TotalCandidates:     m.TotalCandidates,
		Slots:               m.Slots,
		ConfirmedInterviews: make([]PublicInterview, 0, len(m.ConfirmedInterviews)),
		PendingFeedback:     m.PendingFeedback,
		NextAction:          m.NextAction,
	}
	if m.Setup != nil {
		out.Setup = &PublicInterviewSetup{
			InterviewFormat:             m.Setup.InterviewFormat,
			InterviewRounds:             m.Setup.InterviewRounds,
			TechnicalAssessmentRequired: m.Setup.TechnicalAssessmentRequired,
		}
	}
	for _, iv := range m.ConfirmedInterviews {
		out.ConfirmedInterviews = append(out.ConfirmedInterviews, PublicInterview{
			CandidateName: iv.CandidateName,
			SlotDate:      iv.SlotDate,
			StartTime:     iv.StartTime,
			EndTime:       iv.EndTime,
			RoundNumber:   iv.RoundNumber,
		})
	}
	return out
}

func publicSlot(s interviewdomain.Slot) PublicSlot {
	return PublicSlot{
		SlotDate:    s.SlotDate,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		RoundNumber: s.RoundNumber,
		Confirmed:   s.CandidateConfirmed,
	}
}

func publicActivity(e pipelinedomain.ActivityLogEntry) PublicActivity {
	return PublicActivity{
		StageLabel:  catalog.StageLabel(e.Stage, catalog.PerspectiveCandidate),
		StatusLabel: catalog.StatusLabel(e.Stage, e.Status, catalog.PerspectiveCandidate),
		ActionType:  e.ActionType,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}
