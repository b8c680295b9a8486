package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/action"
	"github.com/smallbiznis/talentflow/internal/catalog"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/config"
	"github.com/smallbiznis/talentflow/internal/events"
	"github.com/smallbiznis/talentflow/internal/identity"
	interviewdomain "github.com/smallbiznis/talentflow/internal/interview/domain"
	"github.com/smallbiznis/talentflow/internal/observability/metrics"
	"github.com/smallbiznis/talentflow/internal/pass/domain"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
	"github.com/smallbiznis/talentflow/internal/providers/pdf"
	"github.com/smallbiznis/talentflow/pkg/db/option"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPassTTL   = 30 * 24 * time.Hour
	activityPageSize = 50
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Repo       domain.Repository
	Pipeline   pipelinedomain.Service
	Candidates pipelinedomain.Repository
	Interview  interviewdomain.Service
	Positions  positiondomain.Repository
	PDF        pdf.Provider     `optional:"true"`
	Publisher  events.Publisher `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	ttl        time.Duration
	baseURL    string
	repo       domain.Repository
	pipeline   pipelinedomain.Service
	candidates pipelinedomain.Repository
	interview  interviewdomain.Service
	positions  positiondomain.Repository
	pdf        pdf.Provider
	publisher  events.Publisher
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	ttl := p.Config.Pass.TTL
	if ttl <= 0 {
		ttl = defaultPassTTL
	}
	renderer := p.PDF
	if renderer == nil {
		renderer = pdf.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("pass.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		ttl:        ttl,
		baseURL:    p.Config.PublicBaseURL,
		repo:       p.Repo,
		pipeline:   p.Pipeline,
		candidates: p.Candidates,
		interview:  p.Interview,
		positions:  p.Positions,
		pdf:        renderer,
		publisher:  p.Publisher,
		metrics:    p.Metrics,
	}
}

func (s *Service) CandidateView(ctx context.Context, candidateID string) (domain.CandidatePass, error) {
	candidate, err := s.pipeline.GetCandidate(ctx, candidateID)
	if err != nil {
		return domain.CandidatePass{}, err
	}

	view := domain.CandidatePass{
		CandidateID:     candidate.ID,
		CandidateNumber: candidate.CandidateNumber,
		FullName:        candidate.FullName,
		PositionID:      candidate.PositionID,
		CurrentStage:    candidate.CurrentStage,
		CurrentStatus:   candidate.CurrentStatus,
		StageLabel:      catalog.StageLabel(candidate.CurrentStage, catalog.PerspectiveCandidate),
		StatusLabel:     catalog.StatusLabel(candidate.CurrentStage, candidate.CurrentStatus, catalog.PerspectiveCandidate),
		Closed:          catalog.IsTerminal(candidate.CurrentStage, candidate.CurrentStatus),
		Stages:          stageViews(candidate.CurrentStage),
		NextAction:      action.ForCandidate(candidate.CurrentStage, candidate.CurrentStatus),
		AvailableSlots:  []interviewdomain.Slot{},
		Activity:        []pipelinedomain.ActivityLogEntry{},
	}

	position, err := s.positions.FindByID(ctx, s.db, candidate.PositionID)
	if err != nil {
		return domain.CandidatePass{}, err
	}
	if position != nil {
		view.PositionTitle = position.Title
	}

	bookings, err := s.interview.CandidateBookings(ctx, candidate.ID.String())
	if err != nil {
		return domain.CandidatePass{}, err
	}
	booked := make(map[int]bool, len(bookings))
	for i := range bookings {
		booked[bookings[i].RoundNumber] = true
		if view.BookedSlot == nil || bookings[i].RoundNumber > view.BookedSlot.RoundNumber {
			slot := bookings[i]
			view.BookedSlot = &slot
		}
	}

	setup, err := s.setupFor(ctx, candidate.PositionID)
	if err != nil {
		return domain.CandidatePass{}, err
	}
	if setup != nil && !view.Closed && candidate.CurrentStage == string(catalog.StageInterview) {
		for round := 1; round <= setup.InterviewRounds; round++ {
			if !booked[round] {
				view.ActiveRound = round
				break
			}
		}
		if view.ActiveRound > 0 {
			available, err := s.interview.AvailableSlots(ctx, candidate.PositionID.String(), view.ActiveRound)
			if err != nil {
				return domain.CandidatePass{}, err
			}
			view.AvailableSlots = append(view.AvailableSlots, available...)
		}
	}

	activity, err := s.pipeline.ListActivity(ctx, pipelinedomain.ListActivityRequest{
		Pagination:  pagination.Pagination{PageSize: activityPageSize},
		CandidateID: candidate.ID.String(),
		Viewer:      identity.RoleCandidate,
	})
	if err != nil {
		return domain.CandidatePass{}, err
	}
	view.Activity = append(view.Activity, activity.Entries...)
	return view, nil
}

func stageViews(current string) []domain.StageView {
	currentIdx, err := catalog.StageIndex(current)
	if err != nil {
		currentIdx = -1
	}
	stages := catalog.Stages()
	out := make([]domain.StageView, 0, len(stages))
	for _, stage := range stages {
		state := domain.StageUpcoming
		switch {
		case stage.Index < currentIdx:
			state = domain.StageCompleted
		case stage.Index == currentIdx:
			state = domain.StageCurrent
		}
		out = append(out, domain.StageView{
			Key:   string(stage.Key),
			Index: stage.Index,
			Label: stage.CandidateLabel,
			State: state,
		})
	}
	return out
}

func (s *Service) ManagerView(ctx context.Context, req domain.ManagerViewRequest) (domain.ManagerPass, error) {
	positionID, err := snowflake.ParseString(strings.TrimSpace(req.PositionID))
	if err != nil || positionID == 0 {
		return domain.ManagerPass{}, positiondomain.ErrInvalidID
	}
	position, err := s.positions.FindByID(ctx, s.db, positionID)
	if err != nil {
		return domain.ManagerPass{}, err
	}
	if position == nil {
		return domain.ManagerPass{}, positiondomain.ErrNotFound
	}
	if req.Viewer.Role == identity.RoleManager && position.ManagerID != req.Viewer.ID {
		return domain.ManagerPass{}, domain.ErrNotPositionManager
	}

	now := s.clock.Now()
	view := domain.ManagerPass{
		Position:            *position,
		SLADays:             position.SLADays,
		DaysOpen:            position.DaysOpen(now),
		SLABreached:         position.SLABreached(now),
		ConfirmedInterviews: []domain.ConfirmedInterview{},
	}

	view.PipelineStats, err = s.pipeline.StageCounts(ctx, positionID.String())
	if err != nil {
		return domain.ManagerPass{}, err
	}
	for _, count := range view.PipelineStats {
		view.TotalCandidates += count
	}

	view.Setup, err = s.setupFor(ctx, positionID)
	if err != nil {
		return domain.ManagerPass{}, err
	}

	counts, err := s.interview.SlotCounts(ctx, positionID.String())
	if err != nil {
		return domain.ManagerPass{}, err
	}
	view.Slots = domain.SlotOccupancy{
		Open:      counts[interviewdomain.SlotStatusOpen],
		Booked:    counts[interviewdomain.SlotStatusBooked],
		Cancelled: counts[interviewdomain.SlotStatusCancelled],
	}

	view.ConfirmedInterviews, err = s.confirmedInterviews(ctx, positionID)
	if err != nil {
		return domain.ManagerPass{}, err
	}

	view.PendingFeedback, err = s.interview.PendingFeedbackCount(ctx, positionID.String())
	if err != nil {
		return domain.ManagerPass{}, err
	}

	view.NextAction = action.ForManager(action.ManagerFacts{
		HasSetup:        view.Setup != nil,
		OpenSlots:       int(view.Slots.Open),
		PendingFeedback: view.PendingFeedback,
	})
	return view, nil
}

func (s *Service) setupFor(ctx context.Context, positionID snowflake.ID) (*interviewdomain.Setup, error) {
	setup, err := s.interview.GetSetupByPosition(ctx, positionID.String())
	if errors.Is(err, interviewdomain.ErrSetupNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setup, nil
}

func (s *Service) confirmedInterviews(ctx context.Context, positionID snowflake.ID) ([]domain.ConfirmedInterview, error) {
	slots, err := s.interview.ListSlots(ctx, interviewdomain.ListSlotsRequest{
		PositionID: positionID.String(),
		Status:     string(interviewdomain.SlotStatusBooked),
	})
	if err != nil {
		return nil, err
	}

	confirmed := make([]interviewdomain.Slot, 0, len(slots))
	ids := make([]snowflake.ID, 0, len(slots))
	for _, slot := range slots {
		if !slot.CandidateConfirmed || slot.CandidateID == nil {
			continue
		}
		confirmed = append(confirmed, slot)
		ids = append(ids, *slot.CandidateID)
	}
	out := make([]domain.ConfirmedInterview, 0, len(confirmed))
	if len(confirmed) == 0 {
		return out, nil
	}

	candidates, err := s.candidates.FindCandidatesByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.FullName
	}

	for _, slot := range confirmed {
		out = append(out, domain.ConfirmedInterview{
			SlotID:        slot.ID,
			CandidateID:   *slot.CandidateID,
			CandidateName: names[*slot.CandidateID],
			SlotDate:      slot.SlotDate,
			StartTime:     slot.StartTime,
			EndTime:       slot.EndTime,
			RoundNumber:   slot.RoundNumber,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SlotDate != out[j].SlotDate {
			return out[i].SlotDate < out[j].SlotDate
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *Service) IssueCandidatePass(ctx context.Context, req domain.IssueCandidatePassRequest) (domain.IssuedPass, error) {
	candidate, err := s.pipeline.GetCandidate(ctx, req.CandidateID)
	if err != nil {
		return domain.IssuedPass{}, err
	}
	candidateID := candidate.ID
	return s.issue(ctx, domain.Pass{
		PassType:    domain.TypeCandidate,
		CandidateID: &candidateID,
		PositionID:  candidate.PositionID,
	}, req.TTL, req.Actor)
}

func (s *Service) IssueManagerPass(ctx context.Context, req domain.IssueManagerPassRequest) (domain.IssuedPass, error) {
	positionID, err := snowflake.ParseString(strings.TrimSpace(req.PositionID))
	if err != nil || positionID == 0 {
		return domain.IssuedPass{}, positiondomain.ErrInvalidID
	}
	position, err := s.positions.FindByID(ctx, s.db, positionID)
	if err != nil {
		return domain.IssuedPass{}, err
	}
	if position == nil {
		return domain.IssuedPass{}, positiondomain.ErrNotFound
	}
	managerID := strings.TrimSpace(req.ManagerID)
	if managerID == "" {
		managerID = position.ManagerID
	}
	if req.Actor.Role == identity.RoleManager && position.ManagerID != req.Actor.ID {
		return domain.IssuedPass{}, domain.ErrNotPositionManager
	}
	return s.issue(ctx, domain.Pass{
		PassType:   domain.TypeManager,
		PositionID: positionID,
		ManagerID:  managerID,
	}, req.TTL, req.Actor)
}

func (s *Service) issue(ctx context.Context, p domain.Pass, ttl time.Duration, actor identity.Actor) (domain.IssuedPass, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	token, hash, err := domain.NewToken()
	if err != nil {
		return domain.IssuedPass{}, err
	}

	now := s.clock.Now()
	p.ID = s.genID.Generate()
	p.PassNumber = domain.NewPassNumber()
	p.TokenHash = hash
	p.ValidFrom = now
	p.ValidUntil = now.Add(ttl)
	p.CreatedBy = actor.ID
	p.CreatedAt = now

	if err := s.repo.Insert(ctx, s.db, &p); err != nil {
		return domain.IssuedPass{}, err
	}

	s.publish(ctx, events.TopicPassIssued, p.ID, map[string]any{
		"pass_id":     p.ID.String(),
		"pass_number": p.PassNumber,
		"pass_type":   string(p.PassType),
		"position_id": p.PositionID.String(),
		"valid_until": p.ValidUntil,
	})
	s.log.Info("pass issued",
		zap.String("pass_id", p.ID.String()),
		zap.String("pass_type", string(p.PassType)),
		zap.Time("valid_until", p.ValidUntil),
	)
	return domain.IssuedPass{Pass: p, Token: token}, nil
}

// lookup resolves a token to a pass that is still usable.
func (s *Service) lookup(ctx context.Context, token string) (domain.Pass, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Pass{}, domain.ErrPassNotFound
	}
	p, err := s.repo.FindByTokenHash(ctx, s.db, domain.HashToken(token))
	if err != nil {
		return domain.Pass{}, err
	}
	if p == nil {
		s.metrics.RecordPassResolution(ctx, "unknown", "not_found")
		return domain.Pass{}, domain.ErrPassNotFound
	}
	switch p.StatusAt(s.clock.Now()) {
	case domain.StatusRevoked:
		s.metrics.RecordPassResolution(ctx, string(p.PassType), "revoked")
		return domain.Pass{}, domain.ErrPassRevoked
	case domain.StatusExpired:
		s.metrics.RecordPassResolution(ctx, string(p.PassType), "expired")
		return domain.Pass{}, domain.ErrPassExpired
	}
	s.metrics.RecordPassResolution(ctx, string(p.PassType), "ok")
	return *p, nil
}

func (s *Service) Resolve(ctx context.Context, token string) (domain.Resolved, error) {
	p, err := s.lookup(ctx, token)
	if err != nil {
		return domain.Resolved{}, err
	}
	out := domain.Resolved{Pass: s.toView(p)}
	switch p.PassType {
	case domain.TypeCandidate:
		view, err := s.candidateViewFor(ctx, p)
		if err != nil {
			return domain.Resolved{}, err
		}
		out.Candidate = &view
	case domain.TypeManager:
		view, err := s.ManagerView(ctx, domain.ManagerViewRequest{PositionID: p.PositionID.String()})
		if err != nil {
			return domain.Resolved{}, err
		}
		out.Manager = &view
	default:
		return domain.Resolved{}, domain.ErrInvalidType
	}
	return out, nil
}

func (s *Service) ResolveCandidate(ctx context.Context, token string) (domain.CandidatePass, error) {
	p, err := s.lookup(ctx, token)
	if err != nil {
		return domain.CandidatePass{}, err
	}
	if p.PassType != domain.TypeCandidate {
		return domain.CandidatePass{}, domain.ErrPassNotFound
	}
	return s.candidateViewFor(ctx, p)
}

func (s *Service) ResolveManager(ctx context.Context, token string) (domain.ManagerPass, error) {
	p, err := s.lookup(ctx, token)
	if err != nil {
		return domain.ManagerPass{}, err
	}
	if p.PassType != domain.TypeManager {
		return domain.ManagerPass{}, domain.ErrPassNotFound
	}
	return s.ManagerView(ctx, domain.ManagerViewRequest{PositionID: p.PositionID.String()})
}

func (s *Service) candidateViewFor(ctx context.Context, p domain.Pass) (domain.CandidatePass, error) {
	if p.CandidateID == nil {
		return domain.CandidatePass{}, domain.ErrPassNotFound
	}
	view, err := s.CandidateView(ctx, p.CandidateID.String())
	if errors.Is(err, pipelinedomain.ErrCandidateNotFound) {
		return domain.CandidatePass{}, domain.ErrPassNotFound
	}
	return view, err
}

func (s *Service) RenderCandidatePass(ctx context.Context, token string) (io.Reader, error) {
	p, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if p.PassType != domain.TypeCandidate {
		return nil, domain.ErrPassNotFound
	}
	view, err := s.candidateViewFor(ctx, p)
	if err != nil {
		return nil, err
	}

	data := pdf.CandidatePassData{
		PassNumber:      p.PassNumber,
		CandidateName:   view.FullName,
		CandidateNumber: view.CandidateNumber,
		PositionTitle:   view.PositionTitle,
		StageLabel:      view.StageLabel,
		StatusLabel:     view.StatusLabel,
		ValidUntil:      p.ValidUntil.Format("2006-01-02"),
	}
	if view.NextAction != nil {
		data.NextAction = view.NextAction.Label
	}
	if s.baseURL != "" {
		data.VerifyURL = s.baseURL + "/public/passes/" + strings.TrimSpace(token)
	}
	for _, stage := range view.Stages {
		data.Stages = append(data.Stages, pdf.PassStage{Label: stage.Label, State: string(stage.State)})
	}
	if slot := view.BookedSlot; slot != nil {
		data.Interview = &pdf.PassInterview{
			Date:      slot.SlotDate,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Round:     slot.RoundNumber,
			Confirmed: slot.CandidateConfirmed,
		}
	}
	return s.pdf.GenerateCandidatePass(ctx, data)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	passType, err := domain.ParseType(req.Type)
	if err != nil {
		return domain.ListResponse{}, err
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return domain.ListResponse{}, err
	}
	filter := domain.ListFilter{Type: passType, Status: status, Now: s.clock.Now()}
	if raw := strings.TrimSpace(req.PositionID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListResponse{}, positiondomain.ErrInvalidID
		}
		filter.PositionID = id
	}

	pageSize := option.NormalizePageSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.Page(items, pageSize, func(p *domain.Pass) string {
		return p.ID.String()
	})

	out := make([]domain.PassView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, s.toView(*item))
	}
	return domain.ListResponse{PageInfo: pageInfo, Passes: out}, nil
}

func (s *Service) Revoke(ctx context.Context, id string, actor identity.Actor) (domain.PassView, error) {
	passID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || passID == 0 {
		return domain.PassView{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var revoked domain.Pass
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Revoke(ctx, tx, passID, now)
		if err != nil {
			return err
		}
		current, err := s.repo.FindByID(ctx, tx, passID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrPassNotFound
		}
		if affected == 0 {
			return domain.ErrPassRevoked
		}
		revoked = *current
		return nil
	})
	if err != nil {
		return domain.PassView{}, err
	}

	s.publish(ctx, events.TopicPassRevoked, passID, map[string]any{
		"pass_id":     passID.String(),
		"pass_number": revoked.PassNumber,
		"actor_id":    actor.ID,
	})
	s.log.Info("pass revoked",
		zap.String("pass_id", passID.String()),
		zap.String("actor_role", string(actor.Role)),
	)
	return s.toView(revoked), nil
}

func (s *Service) toView(p domain.Pass) domain.PassView {
	return domain.PassView{Pass: p, Status: p.StatusAt(s.clock.Now())}
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
