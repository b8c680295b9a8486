package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/catalog"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/config"
	"github.com/smallbiznis/talentflow/internal/events"
	"github.com/smallbiznis/talentflow/internal/identity"
	"github.com/smallbiznis/talentflow/internal/interview/domain"
	"github.com/smallbiznis/talentflow/internal/observability/metrics"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
	"github.com/smallbiznis/talentflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	statePending   = pipelinedomain.State{Stage: string(catalog.StageInterview), Status: "pending"}
	stateScheduled = pipelinedomain.State{Stage: string(catalog.StageInterview), Status: "scheduled"}
	stateConfirmed = pipelinedomain.State{Stage: string(catalog.StageInterview), Status: "confirmed"}
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Pipeline   pipelinedomain.Service
	Positions  positiondomain.Repository
	Scheduling *config.SchedulingConfigHolder
	Publisher  events.Publisher     `optional:"true"`
	Metrics    *metrics.Recruitment `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	pipeline   pipelinedomain.Service
	positions  positiondomain.Repository
	scheduling *config.SchedulingConfigHolder
	publisher  events.Publisher
	metrics    *metrics.Recruitment
}

func New(p Params) domain.Service {
	scheduling := p.Scheduling
	if scheduling == nil {
		scheduling = config.NewStaticSchedulingConfigHolder(config.DefaultSchedulingConfig())
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("interview.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		pipeline:   p.Pipeline,
		positions:  p.Positions,
		scheduling: scheduling,
		publisher:  p.Publisher,
		metrics:    p.Metrics,
	}
}

func (s *Service) ConfigureSetup(ctx context.Context, req domain.ConfigureSetupRequest) (domain.Setup, error) {
	positionID, err := snowflake.ParseString(strings.TrimSpace(req.PositionID))
	if err != nil || positionID == 0 {
		return domain.Setup{}, positiondomain.ErrInvalidID
	}
	format, err := domain.ParseFormat(req.InterviewFormat)
	if err != nil {
		return domain.Setup{}, err
	}
	if err := s.validateRounds(req.InterviewRounds); err != nil {
		return domain.Setup{}, err
	}

	now := s.clock.Now()
	setup := domain.Setup{
		ID:                          s.genID.Generate(),
		PositionID:                  positionID,
		RoundNumber:                 1,
		InterviewFormat:             format,
		InterviewRounds:             req.InterviewRounds,
		TechnicalAssessmentRequired: req.TechnicalAssessmentRequired,
		AdditionalInterviewers:      cleanInterviewers(req.AdditionalInterviewers),
		Notes:                       strings.TrimSpace(req.Notes),
		CreatedBy:                   req.Actor.ID,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := s.positions.FindByID(ctx, tx, positionID)
		if err != nil {
			return err
		}
		if position == nil {
			return positiondomain.ErrNotFound
		}
		existing, err := s.repo.FindSetupByPosition(ctx, tx, positionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrSetupExists
		}
		return s.repo.InsertSetup(ctx, tx, &setup)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Setup{}, domain.ErrSetupExists
		}
		return domain.Setup{}, err
	}

	s.log.Info("interview setup configured",
		zap.String("setup_id", setup.ID.String()),
		zap.String("position_id", positionID.String()),
		zap.Int("rounds", setup.InterviewRounds),
	)
	return setup, nil
}

func (s *Service) UpdateSetup(ctx context.Context, req domain.UpdateSetupRequest) (domain.Setup, error) {
	setupID, err := parseSetupID(req.SetupID)
	if err != nil {
		return domain.Setup{}, err
	}

	var updated domain.Setup
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		setup, err := s.repo.FindSetup(ctx, tx, setupID)
		if err != nil {
			return err
		}
		if setup == nil {
			return domain.ErrSetupNotFound
		}

		if req.InterviewFormat != nil {
			format, err := domain.ParseFormat(*req.InterviewFormat)
			if err != nil {
				return err
			}
			setup.InterviewFormat = format
		}
		if req.InterviewRounds != nil {
			rounds := *req.InterviewRounds
			if err := s.validateRounds(rounds); err != nil {
				return err
			}
			if rounds < setup.InterviewRounds {
				booked, err := s.repo.MaxBookedRound(ctx, tx, setup.ID)
				if err != nil {
					return err
				}
				if rounds < booked {
					return domain.ErrRoundHasBookings
				}
			}
			setup.InterviewRounds = rounds
		}
		if req.TechnicalAssessmentRequired != nil {
			setup.TechnicalAssessmentRequired = *req.TechnicalAssessmentRequired
		}
		if req.AdditionalInterviewers != nil {
			setup.AdditionalInterviewers = cleanInterviewers(*req.AdditionalInterviewers)
		}
		if req.Notes != nil {
			setup.Notes = strings.TrimSpace(*req.Notes)
		}
		setup.UpdatedAt = s.clock.Now()

		if err := s.repo.UpdateSetup(ctx, tx, setup); err != nil {
			return err
		}
		updated = *setup
		return nil
	})
	if err != nil {
		return domain.Setup{}, err
	}
	return updated, nil
}

func (s *Service) validateRounds(rounds int) error {
	if rounds < 1 {
		return domain.ErrInvalidRounds
	}
	if limit := s.scheduling.Get().MaxRounds; limit > 0 && rounds > limit {
		return domain.ErrInvalidRounds
	}
	return nil
}

func (s *Service) GetSetup(ctx context.Context, id string) (domain.Setup, error) {
	setupID, err := parseSetupID(id)
	if err != nil {
		return domain.Setup{}, err
	}
	setup, err := s.repo.FindSetup(ctx, s.db, setupID)
	if err != nil {
		return domain.Setup{}, err
	}
	if setup == nil {
		return domain.Setup{}, domain.ErrSetupNotFound
	}
	return *setup, nil
}

func (s *Service) GetSetupByPosition(ctx context.Context, positionID string) (domain.Setup, error) {
	id, err := parsePositionID(positionID)
	if err != nil {
		return domain.Setup{}, err
	}
	setup, err := s.repo.FindSetupByPosition(ctx, s.db, id)
	if err != nil {
		return domain.Setup{}, err
	}
	if setup == nil {
		return domain.Setup{}, domain.ErrSetupNotFound
	}
	return *setup, nil
}

// CreateSlots opens one slot per date and time range. A zero round means
// the setup's first round.
func (s *Service) CreateSlots(ctx context.Context, req domain.CreateSlotsRequest) ([]domain.Slot, error) {
	setupID, err := parseSetupID(req.SetupID)
	if err != nil {
		return nil, err
	}
	if req.RoundNumber < 0 {
		return nil, domain.ErrRoundOutOfRange
	}

	cfg := s.scheduling.Get()
	ranges := req.TimeRanges
	if len(ranges) == 0 && req.UseDefaultTimeRanges {
		for _, r := range cfg.DefaultTimeRanges {
			ranges = append(ranges, domain.TimeRange{Start: r.Start, End: r.End})
		}
	}
	if len(req.Dates) == 0 || len(ranges) == 0 {
		return nil, domain.ErrEmptySelection
	}

	dates, err := normalizeDates(req.Dates)
	if err != nil {
		return nil, err
	}
	ranges, err = normalizeRanges(ranges)
	if err != nil {
		return nil, err
	}
	total := len(dates) * len(ranges)
	if cfg.MaxSlotsPerBatch > 0 && total > cfg.MaxSlotsPerBatch {
		return nil, domain.ErrTooManySlots
	}

	var slots []domain.Slot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		setup, err := s.repo.FindSetup(ctx, tx, setupID)
		if err != nil {
			return err
		}
		if setup == nil {
			return domain.ErrSetupNotFound
		}

		round := req.RoundNumber
		if round == 0 {
			round = setup.RoundNumber
		}
		if round < 1 || round > setup.InterviewRounds {
			return domain.ErrRoundOutOfRange
		}

		now := s.clock.Now()
		slots = make([]domain.Slot, 0, total)
		for _, date := range dates {
			for _, r := range ranges {
				slots = append(slots, domain.Slot{
					ID:          s.genID.Generate(),
					SetupID:     setup.ID,
					PositionID:  setup.PositionID,
					SlotDate:    date,
					StartTime:   r.Start,
					EndTime:     r.End,
					RoundNumber: round,
					Status:      domain.SlotStatusOpen,
					CreatedAt:   now,
					UpdatedAt:   now,
				})
			}
		}
		return s.repo.InsertSlots(ctx, tx, slots)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AddSlotsCreated(len(slots))
	s.publish(ctx, events.TopicSlotsCreated, setupID, map[string]any{
		"setup_id":     setupID.String(),
		"position_id":  slots[0].PositionID.String(),
		"round_number": slots[0].RoundNumber,
		"count":        len(slots),
	})
	s.log.Info("interview slots created",
		zap.String("setup_id", setupID.String()),
		zap.Int("count", len(slots)),
		zap.Int("round", slots[0].RoundNumber),
	)
	return slots, nil
}

func normalizeDates(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		parsed, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
		if err != nil {
			return nil, domain.ErrInvalidDate
		}
		date := parsed.Format(domain.DateLayout)
		if _, ok := seen[date]; ok {
			return nil, domain.ErrDuplicateDate
		}
		seen[date] = struct{}{}
		out = append(out, date)
	}
	sort.Strings(out)
	return out, nil
}

func normalizeRanges(raw []domain.TimeRange) ([]domain.TimeRange, error) {
	seen := make(map[domain.TimeRange]struct{}, len(raw))
	out := make([]domain.TimeRange, 0, len(raw))
	for _, r := range raw {
		start, err := time.Parse(domain.TimeLayout, strings.TrimSpace(r.Start))
		if err != nil {
			return nil, domain.ErrInvalidTimeRange
		}
		end, err := time.Parse(domain.TimeLayout, strings.TrimSpace(r.End))
		if err != nil {
			return nil, domain.ErrInvalidTimeRange
		}
		if !start.Before(end) {
			return nil, domain.ErrInvalidTimeRange
		}
		normalized := domain.TimeRange{
			Start: start.Format(domain.TimeLayout),
			End:   end.Format(domain.TimeLayout),
		}
		if _, ok := seen[normalized]; ok {
			return nil, domain.ErrDuplicateTimeRange
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out, nil
}

func (s *Service) BookSlot(ctx context.Context, req domain.BookSlotRequest) (domain.Slot, error) {
	start := time.Now()

	slotID, err := parseSlotID(req.SlotID)
	if err != nil {
		return domain.Slot{}, err
	}
	candidateID, err := parseCandidateID(req.CandidateID)
	if err != nil {
		return domain.Slot{}, err
	}
	if err := checkOwner(req.Actor, candidateID); err != nil {
		return domain.Slot{}, err
	}

	var (
		booked    domain.Slot
		advanced  bool
		candidate pipelinedomain.Candidate
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		candidate, err = s.pipeline.LockCandidateInTx(ctx, tx, candidateID)
		if err != nil {
			return err
		}
		if catalog.IsTerminal(candidate.CurrentStage, candidate.CurrentStatus) {
			return pipelinedomain.ErrPipelineClosed
		}
		if candidate.CurrentStage != string(catalog.StageInterview) {
			return domain.ErrNotInInterviewStage
		}

		slot, err := s.repo.FindSlot(ctx, tx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return domain.ErrSlotNotFound
		}
		if slot.PositionID != candidate.PositionID {
			return domain.ErrSlotPositionMismatch
		}
		if err := s.checkEarlierRounds(ctx, tx, candidateID, slot.RoundNumber); err != nil {
			return err
		}

		now := s.clock.Now()
		affected, err := s.repo.ClaimSlot(ctx, tx, slotID, candidateID, slot.RoundNumber, now)
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateBookingForRound
			}
			return err
		}
		if affected == 0 {
			return s.explainClaimFailure(ctx, tx, slotID)
		}

		booked = *slot
		booked.Status = domain.SlotStatusBooked
		booked.CandidateID = &candidateID
		booked.BookedAt = &now
		booked.UpdatedAt = now

		activity := pipelinedomain.ActivityInput{
			ActionType:  pipelinedomain.ActivityInterviewBooked,
			Description: fmt.Sprintf("Interview booked for %s %s-%s", slot.SlotDate, slot.StartTime, slot.EndTime),
			Actor:       bookingActor(req.Actor, candidateID),
			Visibility:  pipelinedomain.VisibilityBoth,
			Metadata: map[string]any{
				"slot_id":      slotID.String(),
				"round_number": slot.RoundNumber,
				"slot_date":    slot.SlotDate,
				"start_time":   slot.StartTime,
			},
		}
		if candidate.State() == statePending {
			advanced, err = s.pipeline.AdvanceInTx(ctx, tx, candidateID, statePending, stateScheduled, activity)
			if err != nil {
				return err
			}
			if !advanced {
				return pipelinedomain.ErrConcurrentTransition
			}
			return nil
		}
		activity.CandidateID = candidateID
		activity.Stage = candidate.CurrentStage
		activity.Status = candidate.CurrentStatus
		_, err = s.pipeline.RecordActivity(ctx, tx, activity)
		return err
	})
	if err != nil {
		s.metrics.ObserveBooking(bookingResultLabel(err), time.Since(start))
		return domain.Slot{}, err
	}
	s.metrics.ObserveBooking("ok", time.Since(start))

	s.publish(ctx, events.TopicSlotBooked, slotID, map[string]any{
		"slot_id":      slotID.String(),
		"candidate_id": candidateID.String(),
		"position_id":  booked.PositionID.String(),
		"round_number": booked.RoundNumber,
		"slot_date":    booked.SlotDate,
		"start_time":   booked.StartTime,
		"end_time":     booked.EndTime,
		"advanced":     advanced,
	})
	s.log.Info("interview slot booked",
		zap.String("slot_id", slotID.String()),
		zap.String("candidate_id", candidateID.String()),
		zap.Int("round", booked.RoundNumber),
	)
	return booked, nil
}

// checkEarlierRounds requires a booking in every round before round.
func (s *Service) checkEarlierRounds(ctx context.Context, tx *gorm.DB, candidateID snowflake.ID, round int) error {
	for r := 1; r < round; r++ {
		booked, err := s.repo.HasBookingForRound(ctx, tx, candidateID, r)
		if err != nil {
			return err
		}
		if !booked {
			return domain.ErrRoundOutOfOrder
		}
	}
	return nil
}

// explainClaimFailure maps a zero-row claim to the reason it lost.
func (s *Service) explainClaimFailure(ctx context.Context, tx *gorm.DB, slotID snowflake.ID) error {
	current, err := s.repo.FindSlot(ctx, tx, slotID)
	if err != nil {
		return err
	}
	switch {
	case current == nil:
		return domain.ErrSlotNotFound
	case current.Status == domain.SlotStatusCancelled:
		return domain.ErrSlotCancelled
	case current.Status == domain.SlotStatusBooked:
		return domain.ErrSlotAlreadyTaken
	default:
		return domain.ErrDuplicateBookingForRound
	}
}

func bookingResultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrSlotAlreadyTaken):
		return "taken"
	case errors.Is(err, domain.ErrDuplicateBookingForRound):
		return "duplicate_round"
	case errors.Is(err, domain.ErrSlotCancelled):
		return "cancelled"
	case errors.Is(err, domain.ErrSlotNotFound), errors.Is(err, pipelinedomain.ErrCandidateNotFound):
		return "not_found"
	case errors.Is(err, pipelinedomain.ErrPipelineClosed):
		return "closed"
	case errors.Is(err, domain.ErrNotInInterviewStage), errors.Is(err, domain.ErrRoundOutOfOrder):
		return "not_eligible"
	default:
		return "error"
	}
}

func (s *Service) ConfirmSlot(ctx context.Context, req domain.ConfirmSlotRequest) (domain.Slot, error) {
	slotID, err := parseSlotID(req.SlotID)
	if err != nil {
		return domain.Slot{}, err
	}
	candidateID, err := parseCandidateID(req.CandidateID)
	if err != nil {
		return domain.Slot{}, err
	}
	if err := checkOwner(req.Actor, candidateID); err != nil {
		return domain.Slot{}, err
	}

	var (
		confirmed domain.Slot
		changed   bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate, err := s.pipeline.LockCandidateInTx(ctx, tx, candidateID)
		if err != nil {
			return err
		}

		slot, err := s.repo.FindSlot(ctx, tx, slotID)
		if err != nil {
			return err
		}
		switch {
		case slot == nil:
			return domain.ErrSlotNotFound
		case slot.Status != domain.SlotStatusBooked:
			return domain.ErrSlotNotBooked
		case !slot.BookedBy(candidateID):
			return domain.ErrNotSlotOwner
		case slot.CandidateConfirmed:
			confirmed = *slot
			return nil
		}

		now := s.clock.Now()
		affected, err := s.repo.MarkConfirmed(ctx, tx, slotID, candidateID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrSlotNotBooked
		}
		changed = true
		confirmed = *slot
		confirmed.CandidateConfirmed = true
		confirmed.ConfirmedAt = &now
		confirmed.UpdatedAt = now

		activity := pipelinedomain.ActivityInput{
			ActionType:  pipelinedomain.ActivityInterviewConfirmed,
			Description: fmt.Sprintf("Interview confirmed for %s %s-%s", slot.SlotDate, slot.StartTime, slot.EndTime),
			Actor:       bookingActor(req.Actor, candidateID),
			Visibility:  pipelinedomain.VisibilityBoth,
			Metadata: map[string]any{
				"slot_id":      slotID.String(),
				"round_number": slot.RoundNumber,
			},
		}
		if candidate.State() == stateScheduled {
			advanced, err := s.pipeline.AdvanceInTx(ctx, tx, candidateID, stateScheduled, stateConfirmed, activity)
			if err != nil {
				return err
			}
			if !advanced {
				return pipelinedomain.ErrConcurrentTransition
			}
			return nil
		}
		activity.CandidateID = candidateID
		activity.Stage = candidate.CurrentStage
		activity.Status = candidate.CurrentStatus
		_, err = s.pipeline.RecordActivity(ctx, tx, activity)
		return err
	})
	if err != nil {
		return domain.Slot{}, err
	}
	if !changed {
		return confirmed, nil
	}

	s.publish(ctx, events.TopicSlotConfirmed, slotID, map[string]any{
		"slot_id":      slotID.String(),
		"candidate_id": candidateID.String(),
		"position_id":  confirmed.PositionID.String(),
		"round_number": confirmed.RoundNumber,
	})
	s.log.Info("interview slot confirmed",
		zap.String("slot_id", slotID.String()),
		zap.String("candidate_id", candidateID.String()),
	)
	return confirmed, nil
}

func (s *Service) CancelSlot(ctx context.Context, req domain.CancelSlotRequest) (domain.Slot, error) {
	slotID, err := parseSlotID(req.SlotID)
	if err != nil {
		return domain.Slot{}, err
	}

	var cancelled domain.Slot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		affected, err := s.repo.MarkCancelled(ctx, tx, slotID, now)
		if err != nil {
			return err
		}
		current, err := s.repo.FindSlot(ctx, tx, slotID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrSlotNotFound
		}
		if affected == 0 {
			if current.Status == domain.SlotStatusBooked {
				return domain.ErrCannotCancelBookedSlot
			}
			return domain.ErrSlotCancelled
		}
		cancelled = *current
		return nil
	})
	if err != nil {
		return domain.Slot{}, err
	}

	s.publish(ctx, events.TopicSlotCancelled, slotID, map[string]any{
		"slot_id":      slotID.String(),
		"position_id":  cancelled.PositionID.String(),
		"round_number": cancelled.RoundNumber,
		"actor_id":     req.Actor.ID,
	})
	s.log.Info("interview slot cancelled",
		zap.String("slot_id", slotID.String()),
		zap.String("actor_role", string(req.Actor.Role)),
	)
	return cancelled, nil
}

func (s *Service) GetSlot(ctx context.Context, id string) (domain.Slot, error) {
	slotID, err := parseSlotID(id)
	if err != nil {
		return domain.Slot{}, err
	}
	slot, err := s.repo.FindSlot(ctx, s.db, slotID)
	if err != nil {
		return domain.Slot{}, err
	}
	if slot == nil {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return *slot, nil
}

func (s *Service) ListSlots(ctx context.Context, req domain.ListSlotsRequest) ([]domain.Slot, error) {
	filter := domain.SlotFilter{RoundNumber: req.RoundNumber}
	if raw := strings.TrimSpace(req.SetupID); raw != "" {
		id, err := parseSetupID(raw)
		if err != nil {
			return nil, err
		}
		filter.SetupID = id
	}
	if raw := strings.TrimSpace(req.PositionID); raw != "" {
		id, err := parsePositionID(raw)
		if err != nil {
			return nil, err
		}
		filter.PositionID = id
	}
	if filter.SetupID == 0 && filter.PositionID == 0 {
		return nil, domain.ErrInvalidSetupID
	}
	status, err := domain.ParseSlotStatus(req.Status)
	if err != nil {
		return nil, err
	}
	filter.Status = status
	return s.repo.ListSlots(ctx, s.db, filter)
}

func (s *Service) AvailableSlots(ctx context.Context, positionID string, round int) ([]domain.Slot, error) {
	id, err := parsePositionID(positionID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSlots(ctx, s.db, domain.SlotFilter{
		PositionID:  id,
		RoundNumber: round,
		Status:      domain.SlotStatusOpen,
	})
}

func (s *Service) CandidateBookings(ctx context.Context, candidateID string) ([]domain.Slot, error) {
	id, err := parseCandidateID(candidateID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSlots(ctx, s.db, domain.SlotFilter{
		CandidateID: id,
		Status:      domain.SlotStatusBooked,
	})
}

func (s *Service) SlotCounts(ctx context.Context, positionID string) (map[domain.SlotStatus]int64, error) {
	id, err := parsePositionID(positionID)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountSlotsByStatus(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	for _, status := range []domain.SlotStatus{domain.SlotStatusOpen, domain.SlotStatusBooked, domain.SlotStatusCancelled} {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}

func (s *Service) SubmitFeedback(ctx context.Context, req domain.SubmitFeedbackRequest) (domain.Feedback, error) {
	slotID, err := parseSlotID(req.SlotID)
	if err != nil {
		return domain.Feedback{}, err
	}
	recommendation, err := domain.ParseRecommendation(req.Recommendation)
	if err != nil {
		return domain.Feedback{}, err
	}
	if !req.Actor.Valid() {
		return domain.Feedback{}, identity.ErrInvalidRole
	}

	var feedback domain.Feedback
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slot, err := s.repo.FindSlot(ctx, tx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return domain.ErrSlotNotFound
		}
		if slot.Status != domain.SlotStatusBooked || slot.CandidateID == nil {
			return domain.ErrSlotNotBooked
		}
		existing, err := s.repo.FindFeedbackBySlot(ctx, tx, slotID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrFeedbackExists
		}

		candidate, err := s.pipeline.LockCandidateInTx(ctx, tx, *slot.CandidateID)
		if err != nil {
			return err
		}

		feedback = domain.Feedback{
			ID:             s.genID.Generate(),
			SlotID:         slotID,
			CandidateID:    candidate.ID,
			PositionID:     slot.PositionID,
			RoundNumber:    slot.RoundNumber,
			ReviewerID:     req.Actor.ID,
			Recommendation: recommendation,
			Notes:          strings.TrimSpace(req.Notes),
			CreatedAt:      s.clock.Now(),
		}
		if err := s.repo.InsertFeedback(ctx, tx, &feedback); err != nil {
			return err
		}
		_, err = s.pipeline.RecordActivity(ctx, tx, pipelinedomain.ActivityInput{
			CandidateID: candidate.ID,
			Stage:       candidate.CurrentStage,
			Status:      candidate.CurrentStatus,
			ActionType:  pipelinedomain.ActivityFeedbackSubmitted,
			Description: fmt.Sprintf("Round %d feedback: %s", slot.RoundNumber, recommendation),
			Actor:       req.Actor,
			Visibility:  pipelinedomain.VisibilityManager,
			Metadata: map[string]any{
				"slot_id":        slotID.String(),
				"round_number":   slot.RoundNumber,
				"recommendation": string(recommendation),
			},
		})
		return err
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Feedback{}, domain.ErrFeedbackExists
		}
		return domain.Feedback{}, err
	}

	s.publish(ctx, events.TopicFeedbackSubmitted, slotID, map[string]any{
		"slot_id":        slotID.String(),
		"candidate_id":   feedback.CandidateID.String(),
		"position_id":    feedback.PositionID.String(),
		"round_number":   feedback.RoundNumber,
		"recommendation": string(recommendation),
	})
	return feedback, nil
}

func (s *Service) PendingFeedbackCount(ctx context.Context, positionID string) (int, error) {
	id, err := parsePositionID(positionID)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.CountPendingFeedback(ctx, s.db, id)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *Service) publish(ctx context.Context, topic string, aggregateID snowflake.ID, data map[string]any) {
	if err := events.Emit(ctx, s.publisher, topic, aggregateID.String(), s.clock.Now(), data); err != nil {
		s.log.Warn("failed to publish event",
			zap.String("topic", topic),
			zap.String("aggregate_id", aggregateID.String()),
			zap.Error(err),
		)
	}
}

// checkOwner stops a candidate from acting on someone else's booking.
func checkOwner(actor identity.Actor, candidateID snowflake.ID) error {
	if actor.Role == identity.RoleCandidate && actor.ID != candidateID.String() {
		return domain.ErrNotSlotOwner
	}
	return nil
}

func bookingActor(actor identity.Actor, candidateID snowflake.ID) identity.Actor {
	if actor.Valid() {
		return actor
	}
	return identity.Actor{ID: candidateID.String(), Role: identity.RoleCandidate}
}

func cleanInterviewers(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	return out
}

func parseSetupID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidSetupID
	}
	return id, nil
}

func parseSlotID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidSlotID
	}
	return id, nil
}

func parseCandidateID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, pipelinedomain.ErrInvalidCandidateID
	}
	return id, nil
}

func parsePositionID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, positiondomain.ErrInvalidID
	}
	return id, nil
}
