package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/catalog"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/events"
	"github.com/smallbiznis/talentflow/internal/identity"
	"github.com/smallbiznis/talentflow/internal/observability/metrics"
	"github.com/smallbiznis/talentflow/internal/pipeline/domain"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
	"github.com/smallbiznis/talentflow/pkg/db"
	"github.com/smallbiznis/talentflow/pkg/db/option"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNumberAttempts = 3

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Positions positiondomain.Repository
	Publisher events.Publisher     `optional:"true"`
	Metrics   *metrics.Recruitment `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	positions positiondomain.Repository
	publisher events.Publisher
	metrics   *metrics.Recruitment
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("pipeline.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		positions: p.Positions,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *Service) Apply(ctx context.Context, req domain.ApplyRequest) (domain.Candidate, error) {
	positionID, err := snowflake.ParseString(strings.TrimSpace(req.PositionID))
	if err != nil || positionID == 0 {
		return domain.Candidate{}, positiondomain.ErrInvalidID
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return domain.Candidate{}, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.Candidate{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	candidate := domain.Candidate{
		ID:            s.genID.Generate(),
		PositionID:    positionID,
		FullName:      name,
		Email:         email,
		Phone:         strings.TrimSpace(req.Phone),
		Source:        strings.TrimSpace(req.Source),
		CurrentStage:  string(catalog.StageApplication),
		CurrentStatus: "submitted",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var entry domain.ActivityLogEntry
	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			position, err := s.positions.FindByID(ctx, tx, positionID)
			if err != nil {
				return err
			}
			if position == nil {
				return positiondomain.ErrNotFound
			}
			if position.Status != positiondomain.StatusOpen {
				return positiondomain.ErrNotOpen
			}

			exists, err := s.repo.ExistsByEmail(ctx, tx, positionID, email)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateApplication
			}

			number, err := s.nextCandidateNumber(ctx, tx, now.Year())
			if err != nil {
				return err
			}
			candidate.CandidateNumber = number
			if err := s.repo.InsertCandidate(ctx, tx, &candidate); err != nil {
				return err
			}

			actor := req.Actor
			if !actor.Valid() {
				actor = identity.Actor{ID: candidate.ID.String(), Role: identity.RoleCandidate}
			}
			entry, err = s.RecordActivity(ctx, tx, domain.ActivityInput{
				CandidateID: candidate.ID,
				Stage:       candidate.CurrentStage,
				Status:      candidate.CurrentStatus,
				ActionType:  domain.ActivityApplicationSubmitted,
				Description: fmt.Sprintf("Application submitted for %s", position.Title),
				Actor:       actor,
				Visibility:  domain.VisibilityBoth,
			})
			return err
		})
		if err == nil || !db.IsDuplicateKeyErr(err) || attempt == maxNumberAttempts {
			break
		}
	}
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Candidate{}, domain.ErrDuplicateApplication
		}
		return domain.Candidate{}, err
	}

	s.publish(ctx, events.TopicCandidateApplied, candidate.ID, map[string]any{
		"candidate_id":     candidate.ID.String(),
		"position_id":      candidate.PositionID.String(),
		"candidate_number": candidate.CandidateNumber,
		"activity_id":      entry.ID.String(),
	})
	s.log.Info("candidate applied",
		zap.String("candidate_id", candidate.ID.String()),
		zap.String("position_id", positionID.String()),
	)
	return candidate, nil
}

// nextCandidateNumber yields CAN-YYYY-NNNNN numbered per calendar year.
func (s *Service) nextCandidateNumber(ctx context.Context, tx *gorm.DB, year int) (string, error) {
	prefix := fmt.Sprintf("CAN-%d-", year)
	count, err := s.repo.CountByNumberPrefix(ctx, tx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (domain.TransitionResult, error) {
	start := time.Now()

	candidateID, err := parseCandidateID(req.CandidateID)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	stageKey, err := catalog.NormalizeStage(req.TargetStage)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	stage := string(stageKey)
	status := catalog.NormalizeStatus(req.TargetStatus)
	if !catalog.IsValidStatus(stage, status) {
		return domain.TransitionResult{}, domain.ErrInvalidStatus
	}
	visibility, err := domain.ParseVisibility(string(req.Visibility))
	if err != nil {
		return domain.TransitionResult{}, err
	}
	if !req.Actor.Valid() {
		return domain.TransitionResult{}, identity.ErrInvalidRole
	}

	target := domain.State{Stage: stage, Status: status}
	targetTerminal := catalog.IsTerminal(stage, status)

	var result domain.TransitionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindCandidateForUpdate(ctx, tx, candidateID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrCandidateNotFound
		}
		from := current.State()

		if catalog.IsTerminal(from.Stage, from.Status) && !req.Actor.IsStaff() {
			return domain.ErrPipelineClosed
		}
		if req.Actor.Role == identity.RoleCandidate && !candidateMayMove(from, target) {
			return domain.ErrTransitionNotPermitted
		}

		currentIdx, err := catalog.StageIndex(from.Stage)
		if err != nil {
			return err
		}
		targetIdx, err := catalog.StageIndex(stage)
		if err != nil {
			return err
		}
		if targetIdx < currentIdx && !targetTerminal {
			return domain.ErrIllegalStageRegression
		}

		now := s.clock.Now()
		affected, err := s.repo.UpdateState(ctx, tx, candidateID, from, target, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrConcurrentTransition
		}

		actionType := domain.ActivityStatusChanged
		switch {
		case targetTerminal:
			actionType = domain.ActivityPipelineClosed
		case targetIdx != currentIdx:
			actionType = domain.ActivityStageChanged
		}

		description := strings.TrimSpace(req.Description)
		if description == "" {
			description = defaultDescription(stage, status)
		}

		entry, err := s.RecordActivity(ctx, tx, domain.ActivityInput{
			CandidateID: candidateID,
			Stage:       stage,
			Status:      status,
			ActionType:  actionType,
			Description: description,
			Actor:       req.Actor,
			Visibility:  visibility,
			Metadata: map[string]any{
				"from_stage":  from.Stage,
				"from_status": from.Status,
				"to_stage":    stage,
				"to_status":   status,
			},
		})
		if err != nil {
			return err
		}

		updated := *current
		updated.CurrentStage = stage
		updated.CurrentStatus = status
		updated.UpdatedAt = now
		result = domain.TransitionResult{Candidate: updated, Previous: from, Entry: entry}
		return nil
	})
	if err != nil {
		s.metrics.ObserveTransition(stage, transitionResultLabel(err), time.Since(start))
		return domain.TransitionResult{}, err
	}
	s.metrics.ObserveTransition(stage, "ok", time.Since(start))

	s.publish(ctx, events.TopicCandidateTransitioned, candidateID, map[string]any{
		"candidate_id": candidateID.String(),
		"position_id":  result.Candidate.PositionID.String(),
		"from_stage":   result.Previous.Stage,
		"from_status":  result.Previous.Status,
		"to_stage":     stage,
		"to_status":    status,
		"actor_id":     req.Actor.ID,
		"actor_role":   string(req.Actor.Role),
	})
	s.log.Info("candidate transitioned",
		zap.String("candidate_id", candidateID.String()),
		zap.String("from", result.Previous.Stage+"/"+result.Previous.Status),
		zap.String("to", stage+"/"+status),
		zap.String("actor_role", string(req.Actor.Role)),
	)
	return result, nil
}

// candidateMayMove limits candidates to resubmitting an incomplete
// application or withdrawing at their current stage.
func candidateMayMove(from, to domain.State) bool {
	if from.Stage != to.Stage {
		return false
	}
	if to.Status == catalog.StatusWithdrawn {
		return true
	}
	return from.Stage == string(catalog.StageApplication) &&
		from.Status == "incomplete" && to.Status == "submitted"
}

func defaultDescription(stage, status string) string {
	return fmt.Sprintf("%s: %s",
		catalog.StageLabel(stage, catalog.PerspectiveCandidate),
		catalog.StatusLabel(stage, status, catalog.PerspectiveCandidate),
	)
}

func transitionResultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrIllegalStageRegression):
		return "regression"
	case errors.Is(err, domain.ErrConcurrentTransition):
		return "conflict"
	case errors.Is(err, domain.ErrPipelineClosed):
		return "closed"
	case errors.Is(err, domain.ErrTransitionNotPermitted):
		return "forbidden"
	case errors.Is(err, domain.ErrCandidateNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (s *Service) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	candidateID, err := parseCandidateID(id)
	if err != nil {
		return domain.Candidate{}, err
	}
	item, err := s.repo.FindCandidate(ctx, s.db, candidateID)
	if err != nil {
		return domain.Candidate{}, err
	}
	if item == nil {
		return domain.Candidate{}, domain.ErrCandidateNotFound
	}
	return *item, nil
}

func (s *Service) LockCandidateInTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (domain.Candidate, error) {
	item, err := s.repo.FindCandidateForUpdate(ctx, tx, id)
	if err != nil {
		return domain.Candidate{}, err
	}
	if item == nil {
		return domain.Candidate{}, domain.ErrCandidateNotFound
	}
	return *item, nil
}

func (s *Service) ListCandidates(ctx context.Context, req domain.ListCandidatesRequest) (domain.ListCandidatesResponse, error) {
	filter := domain.CandidateFilter{Status: catalog.NormalizeStatus(req.Status)}
	if raw := strings.TrimSpace(req.PositionID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListCandidatesResponse{}, positiondomain.ErrInvalidID
		}
		filter.PositionID = id
	}
	if raw := strings.TrimSpace(req.Stage); raw != "" {
		key, err := catalog.NormalizeStage(raw)
		if err != nil {
			return domain.ListCandidatesResponse{}, err
		}
		filter.Stage = string(key)
	}

	pageSize := option.NormalizePageSize(req.PageSize)
	items, err := s.repo.ListCandidates(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListCandidatesResponse{}, err
	}
	items, pageInfo := pagination.Page(items, pageSize, func(c *domain.Candidate) string {
		return c.ID.String()
	})

	out := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return domain.ListCandidatesResponse{PageInfo: pageInfo, Candidates: out}, nil
}

func (s *Service) ListActivity(ctx context.Context, req domain.ListActivityRequest) (domain.ListActivityResponse, error) {
	candidateID, err := parseCandidateID(req.CandidateID)
	if err != nil {
		return domain.ListActivityResponse{}, err
	}

	pageSize := option.NormalizePageSize(req.PageSize)
	items, err := s.repo.ListActivity(ctx, s.db, candidateID, domain.VisibleTo(req.Viewer), pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListActivityResponse{}, err
	}
	items, pageInfo := pagination.Page(items, pageSize, func(e *domain.ActivityLogEntry) string {
		return e.ID.String()
	})

	out := make([]domain.ActivityLogEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return domain.ListActivityResponse{PageInfo: pageInfo, Entries: out}, nil
}

func (s *Service) StageCounts(ctx context.Context, positionID string) (map[string]int64, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(positionID))
	if err != nil || id == 0 {
		return nil, positiondomain.ErrInvalidID
	}
	counts, err := s.repo.CountByStage(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	for _, stage := range catalog.Stages() {
		if _, ok := counts[string(stage.Key)]; !ok {
			counts[string(stage.Key)] = 0
		}
	}
	return counts, nil
}

func (s *Service) RecordActivity(ctx context.Context, tx *gorm.DB, in domain.ActivityInput) (domain.ActivityLogEntry, error) {
	if in.CandidateID == 0 {
		return domain.ActivityLogEntry{}, domain.ErrInvalidCandidateID
	}
	visibility, err := domain.ParseVisibility(string(in.Visibility))
	if err != nil {
		return domain.ActivityLogEntry{}, err
	}

	entry := domain.ActivityLogEntry{
		ID:          s.genID.Generate(),
		CandidateID: in.CandidateID,
		Stage:       in.Stage,
		Status:      in.Status,
		ActionType:  in.ActionType,
		Description: strings.TrimSpace(in.Description),
		PerformedBy: in.Actor.ID,
		ActorRole:   string(in.Actor.Role),
		Visibility:  visibility,
		Metadata:    in.Metadata,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertActivity(ctx, tx, &entry); err != nil {
		return domain.ActivityLogEntry{}, err
	}
	return entry, nil
}

func (s *Service) AdvanceInTx(ctx context.Context, tx *gorm.DB, candidateID snowflake.ID, from, to domain.State, in domain.ActivityInput) (bool, error) {
	if !catalog.IsValidStatus(to.Stage, to.Status) {
		return false, domain.ErrInvalidStatus
	}
	affected, err := s.repo.UpdateState(ctx, tx, candidateID, from, to, s.clock.Now())
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	in.CandidateID = candidateID
	in.Stage = to.Stage
	in.Status = to.Status
	if in.Metadata == nil {
		in.Metadata = map[string]any{}
	}
	in.Metadata["from_stage"] = from.Stage
	in.Metadata["from_status"] = from.Status
	in.Metadata["to_stage"] = to.Stage
	in.Metadata["to_status"] = to.Status
	if _, err := s.RecordActivity(ctx, tx, in); err != nil {
		return false, err
	}
	return true, nil
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

func parseCandidateID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidCandidateID
	}
	return id, nil
}
