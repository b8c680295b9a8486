package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/talentflow/internal/identity"
)

type TimeRange struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

type ConfigureSetupRequest struct {
	PositionID                  string
	InterviewFormat             string
	InterviewRounds             int
	TechnicalAssessmentRequired bool
	AdditionalInterviewers      []string
	Notes                       string
	Actor                       identity.Actor
}

// UpdateSetupRequest leaves nil fields unchanged.
type UpdateSetupRequest struct {
	SetupID                     string
	InterviewFormat             *string
	InterviewRounds             *int
	TechnicalAssessmentRequired *bool
	AdditionalInterviewers      *[]string
	Notes                       *string
	Actor                       identity.Actor
}

type CreateSlotsRequest struct {
	SetupID     string
	Dates       []string
	TimeRanges  []TimeRange
	RoundNumber int
	// UseDefaultTimeRanges fills an empty TimeRanges from the scheduling
	// config instead of failing with ErrEmptySelection.
	UseDefaultTimeRanges bool
	Actor                identity.Actor
}

type BookSlotRequest struct {
	SlotID      string
	CandidateID string
	Actor       identity.Actor
}

type ConfirmSlotRequest struct {
	SlotID      string
	CandidateID string
	Actor       identity.Actor
}

type CancelSlotRequest struct {
	SlotID string
	Actor  identity.Actor
}

type ListSlotsRequest struct {
	SetupID     string
	PositionID  string
	RoundNumber int
	Status      string
}

type SubmitFeedbackRequest struct {
	SlotID         string
	Recommendation string
	Notes          string
	Actor          identity.Actor
}

type Service interface {
	ConfigureSetup(ctx context.Context, req ConfigureSetupRequest) (Setup, error)
	UpdateSetup(ctx context.Context, req UpdateSetupRequest) (Setup, error)
	GetSetup(ctx context.Context, id string) (Setup, error)
	GetSetupByPosition(ctx context.Context, positionID string) (Setup, error)

	CreateSlots(ctx context.Context, req CreateSlotsRequest) ([]Slot, error)
	BookSlot(ctx context.Context, req BookSlotRequest) (Slot, error)
	ConfirmSlot(ctx context.Context, req ConfirmSlotRequest) (Slot, error)
	CancelSlot(ctx context.Context, req CancelSlotRequest) (Slot, error)
	GetSlot(ctx context.Context, id string) (Slot, error)
	ListSlots(ctx context.Context, req ListSlotsRequest) ([]Slot, error)
	AvailableSlots(ctx context.Context, positionID string, round int) ([]Slot, error)
	CandidateBookings(ctx context.Context, candidateID string) ([]Slot, error)
	SlotCounts(ctx context.Context, positionID string) (map[SlotStatus]int64, error)

	SubmitFeedback(ctx context.Context, req SubmitFeedbackRequest) (Feedback, error)
	PendingFeedbackCount(ctx context.Context, positionID string) (int, error)
}

var (
	ErrInvalidSetupID           = errors.New("invalid_setup_id")
	ErrInvalidSlotID            = errors.New("invalid_slot_id")
	ErrInvalidFormat            = errors.New("invalid_interview_format")
	ErrInvalidRounds            = errors.New("invalid_interview_rounds")
	ErrInvalidRecommendation    = errors.New("invalid_recommendation")
	ErrInvalidSlotStatus        = errors.New("invalid_slot_status")
	ErrSetupExists              = errors.New("setup_exists")
	ErrSetupNotFound            = errors.New("setup_not_found")
	ErrRoundHasBookings         = errors.New("round_has_bookings")
	ErrEmptySelection           = errors.New("empty_selection")
	ErrTooManySlots             = errors.New("too_many_slots")
	ErrRoundOutOfRange          = errors.New("round_out_of_range")
	ErrInvalidDate              = errors.New("invalid_slot_date")
	ErrInvalidTimeRange         = errors.New("invalid_time_range")
	ErrSlotNotFound             = errors.New("slot_not_found")
	ErrSlotAlreadyTaken         = errors.New("slot_already_taken")
	ErrDuplicateBookingForRound = errors.New("duplicate_booking_for_round")
	ErrSlotPositionMismatch     = errors.New("slot_position_mismatch")
	ErrNotSlotOwner             = errors.New("not_slot_owner")
	ErrSlotNotBooked            = errors.New("slot_not_booked")
	ErrCannotCancelBookedSlot   = errors.New("cannot_cancel_booked_slot")
	ErrSlotCancelled            = errors.New("slot_cancelled")
	ErrFeedbackExists           = errors.New("feedback_exists")
	ErrNotInInterviewStage      = errors.New("not_in_interview_stage")
	ErrRoundOutOfOrder          = errors.New("round_out_of_order")
	ErrDuplicateDate            = errors.New("duplicate_slot_date")
	ErrDuplicateTimeRange       = errors.New("duplicate_time_range")
)

// ParseFormat accepts loose spellings such as "In Person" or "IN_PERSON".
func ParseFormat(raw string) (Format, error) {
	normalized := slug.Make(strings.ReplaceAll(raw, "_", "-"))
	switch Format(normalized) {
	case FormatOnline, FormatInPerson, FormatHybrid:
		return Format(normalized), nil
	case "inperson", "onsite", "on-site":
		return FormatInPerson, nil
	default:
		return "", ErrInvalidFormat
	}
}

func ParseSlotStatus(raw string) (SlotStatus, error) {
	switch SlotStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return "", nil
	case SlotStatusOpen:
		return SlotStatusOpen, nil
	case SlotStatusBooked:
		return SlotStatusBooked, nil
	case SlotStatusCancelled:
		return SlotStatusCancelled, nil
	default:
		return "", ErrInvalidSlotStatus
	}
}

func ParseRecommendation(raw string) (Recommendation, error) {
	switch Recommendation(strings.ToLower(strings.TrimSpace(raw))) {
	case RecommendationAdvance:
		return RecommendationAdvance, nil
	case RecommendationHold:
		return RecommendationHold, nil
	case RecommendationReject:
		return RecommendationReject, nil
	default:
		return "", ErrInvalidRecommendation
	}
}
