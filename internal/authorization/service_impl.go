package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/talentflow/internal/identity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectPosition       = "position"
	ObjectCandidate      = "candidate"
	ObjectInterviewSetup = "interview_setup"
	ObjectInterviewSlot  = "interview_slot"
	ObjectPass           = "pass"
)

const (
	ActionPositionView   = "position.view"
	ActionPositionCreate = "position.create"

	ActionCandidateApply        = "candidate.apply"
	ActionCandidateView         = "candidate.view"
	ActionCandidateTransition   = "candidate.transition"
	ActionCandidateViewActivity = "candidate.view_activity"

	ActionSetupConfigure = "interview_setup.configure"
	ActionSetupView      = "interview_setup.view"

	ActionSlotCreate   = "interview_slot.create"
	ActionSlotView     = "interview_slot.view"
	ActionSlotBook     = "interview_slot.book"
	ActionSlotConfirm  = "interview_slot.confirm"
	ActionSlotCancel   = "interview_slot.cancel"
	ActionSlotFeedback = "interview_slot.feedback"

	ActionPassViewCandidate = "pass.view_candidate"
	ActionPassViewManager   = "pass.view_manager"
	ActionPassIssue         = "pass.issue"
	ActionPassList          = "pass.list"
	ActionPassRevoke        = "pass.revoke"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer holding only the seeded policies.
// Used by handler tests and tools that run without a database.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor identity.Actor, object string, action string) error {
	if !actor.Valid() {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(roleSubject(actor.Role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("actor_id", actor.ID),
			zap.String("actor_role", string(actor.Role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleSubject(role identity.Role) string {
	return "role:" + string(role)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Candidate self-service
		{"role:candidate", ObjectPosition, ActionPositionView},
		{"role:candidate", ObjectCandidate, ActionCandidateApply},
		{"role:candidate", ObjectCandidate, ActionCandidateView},
		{"role:candidate", ObjectCandidate, ActionCandidateTransition},
		{"role:candidate", ObjectCandidate, ActionCandidateViewActivity},
		{"role:candidate", ObjectInterviewSlot, ActionSlotView},
		{"role:candidate", ObjectInterviewSlot, ActionSlotBook},
		{"role:candidate", ObjectInterviewSlot, ActionSlotConfirm},
		{"role:candidate", ObjectPass, ActionPassViewCandidate},

		// Hiring manager
		{"role:manager", ObjectPosition, ActionPositionView},
		{"role:manager", ObjectCandidate, ActionCandidateView},
		{"role:manager", ObjectCandidate, ActionCandidateTransition},
		{"role:manager", ObjectCandidate, ActionCandidateViewActivity},
		{"role:manager", ObjectInterviewSetup, ActionSetupConfigure},
		{"role:manager", ObjectInterviewSetup, ActionSetupView},
		{"role:manager", ObjectInterviewSlot, ActionSlotCreate},
		{"role:manager", ObjectInterviewSlot, ActionSlotView},
		{"role:manager", ObjectInterviewSlot, ActionSlotCancel},
		{"role:manager", ObjectInterviewSlot, ActionSlotFeedback},
		{"role:manager", ObjectPass, ActionPassViewCandidate},
		{"role:manager", ObjectPass, ActionPassViewManager},
		{"role:manager", ObjectPass, ActionPassIssue},
		{"role:manager", ObjectPass, ActionPassList},

		// HR
		{"role:hr", ObjectPosition, ActionPositionCreate},
		{"role:hr", ObjectCandidate, ActionCandidateApply},
		{"role:hr", ObjectPass, ActionPassRevoke},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	// hr inherits every manager capability, admin inherits hr.
	groupings := [][]string{
		{"role:hr", "role:manager"},
		{"role:admin", "role:hr"},
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g); err != nil {
			return err
		}
	}
	return nil
}
