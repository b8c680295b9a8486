package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/position/domain"
	"github.com/smallbiznis/talentflow/pkg/db"
	"github.com/smallbiznis/talentflow/pkg/db/option"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("position.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Position, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Position{}, domain.ErrInvalidTitle
	}
	if req.Headcount <= 0 {
		return domain.Position{}, domain.ErrInvalidHeadcount
	}
	if req.SLADays < 0 {
		return domain.Position{}, domain.ErrInvalidSLADays
	}
	managerID := strings.TrimSpace(req.ManagerID)
	if managerID == "" {
		return domain.Position{}, domain.ErrInvalidManager
	}

	status := domain.StatusOpen
	if raw := strings.TrimSpace(req.Status); raw != "" {
		parsed, err := domain.ParseStatus(strings.ToLower(raw))
		if err != nil {
			return domain.Position{}, err
		}
		status = parsed
	}

	now := s.clock.Now()
	position := domain.Position{
		ID:              s.genID.Generate(),
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
		Title:           title,
		Department:      strings.TrimSpace(req.Department),
		Status:          status,
		Headcount:       req.Headcount,
		SLADays:         req.SLADays,
		ManagerID:       managerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if position.ReferenceNumber == "" {
			ref, err := s.nextReference(ctx, tx, now.Year())
			if err != nil {
				return err
			}
			position.ReferenceNumber = ref
		}
		return s.repo.Insert(ctx, tx, &position)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Position{}, domain.ErrDuplicateRef
		}
		return domain.Position{}, err
	}

	s.log.Info("position created",
		zap.String("position_id", position.ID.String()),
		zap.String("reference_number", position.ReferenceNumber),
	)
	return position, nil
}

// nextReference yields REF-YYYY-NNN numbered per calendar year.
func (s *Service) nextReference(ctx context.Context, tx *gorm.DB, year int) (string, error) {
	prefix := fmt.Sprintf("REF-%d-", year)
	count, err := s.repo.CountByReferencePrefix(ctx, tx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Position, error) {
	positionID, err := parseID(id)
	if err != nil {
		return domain.Position{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, positionID)
	if err != nil {
		return domain.Position{}, err
	}
	if item == nil {
		return domain.Position{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{ManagerID: strings.TrimSpace(req.ManagerID)}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := domain.ParseStatus(strings.ToLower(raw))
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.Status = status
	}

	pageSize := option.NormalizePageSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(p *domain.Position) string {
		return p.ID.String()
	})

	positions := make([]domain.Position, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		positions = append(positions, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Positions: positions}, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
