package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/action"
	"github.com/smallbiznis/talentflow/internal/catalog"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/events"
	"github.com/smallbiznis/talentflow/internal/identity"
	"github.com/smallbiznis/talentflow/internal/pipeline/domain"
	"github.com/smallbiznis/talentflow/internal/pipeline/repository"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
	positionrepo "github.com/smallbiznis/talentflow/internal/position/repository"
	"github.com/smallbiznis/talentflow/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	manager = identity.Actor{ID: "mgr-1", Role: identity.RoleManager}
	hr      = identity.Actor{ID: "hr-1", Role: identity.RoleHR}
)

type fixture struct {
	db         *gorm.DB
	svc        domain.Service
	clock      *clock.FakeClock
	positionID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC))

	positionID := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO positions (id, reference_number, title, department, status, headcount, sla_days, manager_id, created_at, updated_at)
		 VALUES (?, 'REF-2025-001', 'Backend Engineer', 'Engineering', 'open', 2, 30, 'mgr-1', ?, ?)`,
		positionID, clk.Now(), clk.Now(),
	).Error)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      repository.Provide(),
		Positions: positionrepo.Provide(),
		Publisher: events.NewOutboxPublisher(db, node, clk),
	})
	return &fixture{db: db, svc: svc, clock: clk, positionID: positionID}
}

func (f *fixture) apply(t *testing.T, email string) domain.Candidate {
	t.Helper()
	c, err := f.svc.Apply(context.Background(), domain.ApplyRequest{
		PositionID: f.positionID.String(),
		FullName:   "Dana Example",
		Email:      email,
		Source:     "referral",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) transition(candidateID snowflake.ID, actor identity.Actor, stage, status string) (domain.TransitionResult, error) {
	return f.svc.Transition(context.Background(), domain.TransitionRequest{
		CandidateID:  candidateID.String(),
		Actor:        actor,
		TargetStage:  stage,
		TargetStatus: status,
	})
}

func TestApplyThenMarkIncomplete(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "dana@example.com")

	assert.Equal(t, "application", c.CurrentStage)
	assert.Equal(t, "submitted", c.CurrentStatus)
	assert.Equal(t, "CAN-2025-00001", c.CandidateNumber)
	assert.Nil(t, action.ForCandidate(c.CurrentStage, c.CurrentStatus))

	res, err := f.transition(c.ID, manager, "application", "incomplete")
	require.NoError(t, err)

	got := action.ForCandidate(res.Candidate.CurrentStage, res.Candidate.CurrentStatus)
	require.NotNil(t, got)
	assert.Equal(t, "Complete Application", got.Label)
	assert.Equal(t, action.TypeCompleteProfile, got.Type)
}

func TestApplyRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.apply(t, "dana@example.com")

	_, err := f.svc.Apply(ctx, domain.ApplyRequest{PositionID: f.positionID.String(), FullName: "Dana", Email: "DANA@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateApplication)

	_, err = f.svc.Apply(ctx, domain.ApplyRequest{PositionID: f.positionID.String(), FullName: "Dana", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.Apply(ctx, domain.ApplyRequest{PositionID: f.positionID.String(), FullName: " ", Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Apply(ctx, domain.ApplyRequest{PositionID: "999", FullName: "Dana", Email: "y@example.com"})
	assert.ErrorIs(t, err, positiondomain.ErrNotFound)

	require.NoError(t, f.db.Exec(`UPDATE positions SET status = 'closed' WHERE id = ?`, f.positionID).Error)
	_, err = f.svc.Apply(ctx, domain.ApplyRequest{PositionID: f.positionID.String(), FullName: "Dana", Email: "z@example.com"})
	assert.ErrorIs(t, err, positiondomain.ErrNotOpen)
}

func TestTransitionValidation(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "dana@example.com")

	_, err := f.transition(c.ID, manager, "probation", "pending")
	assert.ErrorIs(t, err, catalog.ErrUnknownStage)

	_, err = f.transition(c.ID, manager, "interview", "released")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.transition(c.ID, manager, "interview", "feedback_pending")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus, "manager-side vocabulary is not stored on candidates")

	_, err = f.svc.Transition(context.Background(), domain.TransitionRequest{
		CandidateID: "abc", Actor: manager, TargetStage: "screening", TargetStatus: "under_review",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCandidateID)

	_, err = f.transition(snowflake.ID(42), manager, "screening", "under_review")
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
}

func TestTransitionRegression(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "dana@example.com")

	_, err := f.transition(c.ID, manager, "interview", "pending")
	require.NoError(t, err)

	_, err = f.transition(c.ID, manager, "screening", "shortlisted")
	assert.ErrorIs(t, err, domain.ErrIllegalStageRegression)

	stored, err := f.svc.GetCandidate(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.State{Stage: "interview", Status: "pending"}, stored.State())

	res, err := f.transition(c.ID, manager, "screening", "not_shortlisted")
	require.NoError(t, err, "terminal statuses may be recorded at an earlier stage")
	assert.Equal(t, domain.ActivityPipelineClosed, res.Entry.ActionType)
}

func TestTransitionOnClosedPipeline(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "dana@example.com")

	_, err := f.transition(c.ID, identity.Actor{ID: c.ID.String(), Role: identity.RoleCandidate}, "application", "withdrawn")
	require.NoError(t, err)

	_, err = f.transition(c.ID, manager, "screening", "under_review")
	assert.ErrorIs(t, err, domain.ErrPipelineClosed)

	res, err := f.transition(c.ID, hr, "screening", "under_review")
	require.NoError(t, err)
	assert.Equal(t, "screening", res.Candidate.CurrentStage)
}

func TestCandidateSelfServiceTransitions(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "dana@example.com")
	self := identity.Actor{ID: c.ID.String(), Role: identity.RoleCandidate}

	_, err := f.transition(c.ID, self, "screening", "under_review")
	assert.ErrorIs(t, err, domain.ErrTransitionNotPermitted, "candidates never open a new stage")
	_, err = f.transition(c.ID, self, "application", "validated")
	assert.ErrorIs(t, err, domain.ErrTransitionNotPermitted)

	_, err = f.transition(c.ID, manager, "application", "incomplete")
	require.NoError(t, err)
	res, err := f.transition(c.ID, self, "application", "submitted")
	require.NoError(t, err, "an incomplete application may be resubmitted")
	assert.Equal(t, "submitted", res.Candidate.CurrentStatus)

	_, err = f.transition(c.ID, hr, "onboarding", "initiated")
	require.NoError(t, err)
	_, err = f.transition(c.ID, self, "onboarding", "completed")
	assert.ErrorIs(t, err, domain.ErrTransitionNotPermitted)
	_, err = f.transition(c.ID, self, "offer", "withdrawn")
	assert.ErrorIs(t, err, domain.ErrTransitionNotPermitted, "withdrawal is recorded at the current stage")

	res, err = f.transition(c.ID, self, "onboarding", "withdrawn")
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityPipelineClosed, res.Entry.ActionType)

	stored, err := f.svc.GetCandidate(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.State{Stage: "onboarding", Status: "withdrawn"}, stored.State())
}

func TestTransitionInvariantsAcrossHistory(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "dana@example.com")

	steps := []domain.State{
		{Stage: "screening", Status: "under_review"},
		{Stage: "screening", Status: "shortlisted"},
		{Stage: "interview", Status: "pending"},
		{Stage: "interview", Status: "scheduled"},
		{Stage: "interview", Status: "completed"},
		{Stage: "decision", Status: "in_preparation"},
		{Stage: "offer", Status: "released"},
		{Stage: "offer", Status: "accepted"},
		{Stage: "onboarding", Status: "documents_pending"},
	}
	for _, step := range steps {
		res, err := f.transition(c.ID, manager, step.Stage, step.Status)
		require.NoError(t, err, "%s/%s", step.Stage, step.Status)
		assert.True(t, catalog.IsValidStatus(res.Candidate.CurrentStage, res.Candidate.CurrentStatus))
	}

	resp, err := f.svc.ListActivity(context.Background(), domain.ListActivityRequest{
		CandidateID: c.ID.String(),
		Viewer:      identity.RoleHR,
	})
	require.NoError(t, err)
	require.Len(t, resp.Entries, len(steps)+1)

	// Entries come newest first; walk oldest to newest.
	prev := -1
	for i := len(resp.Entries) - 1; i >= 0; i-- {
		e := resp.Entries[i]
		assert.True(t, catalog.IsValidStatus(e.Stage, e.Status), "%s/%s", e.Stage, e.Status)
		idx, err := catalog.StageIndex(e.Stage)
		require.NoError(t, err)
		if !catalog.IsTerminal(e.Stage, e.Status) {
			assert.GreaterOrEqual(t, idx, prev)
			prev = idx
		}
	}
	assert.Equal(t, "offer", resp.Entries[2].Stage, "decision is stored as offer")
}

func TestTransitionRollsBackWhenLogFails(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "dana@example.com")

	require.NoError(t, f.db.Exec(`DROP TABLE candidate_activity_logs`).Error)

	_, err := f.transition(c.ID, manager, "screening", "under_review")
	require.Error(t, err)

	stored, err := f.svc.GetCandidate(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.State{Stage: "application", Status: "submitted"}, stored.State())
}

func TestListActivityVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.apply(t, "dana@example.com")

	_, err := f.svc.Transition(ctx, domain.TransitionRequest{
		CandidateID: c.ID.String(), Actor: manager, TargetStage: "screening", TargetStatus: "under_review",
		Description: "internal note", Visibility: domain.VisibilityManager,
	})
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, domain.TransitionRequest{
		CandidateID: c.ID.String(), Actor: manager, TargetStage: "screening", TargetStatus: "shortlisted",
		Visibility: domain.VisibilityCandidate,
	})
	require.NoError(t, err)

	count := func(role identity.Role) int {
		resp, err := f.svc.ListActivity(ctx, domain.ListActivityRequest{CandidateID: c.ID.String(), Viewer: role})
		require.NoError(t, err)
		return len(resp.Entries)
	}
	assert.Equal(t, 2, count(identity.RoleCandidate))
	assert.Equal(t, 2, count(identity.RoleManager))
	assert.Equal(t, 3, count(identity.RoleAdmin))

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{
		CandidateID: c.ID.String(), Actor: manager, TargetStage: "screening", TargetStatus: "on_hold",
		Visibility: "everyone",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidVisibility)
}

func TestListActivityPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.apply(t, "dana@example.com")
	for _, st := range []string{"under_review", "on_hold", "shortlisted"} {
		_, err := f.transition(c.ID, manager, "screening", st)
		require.NoError(t, err)
	}

	first, err := f.svc.ListActivity(ctx, domain.ListActivityRequest{CandidateID: c.ID.String(), Viewer: identity.RoleHR})
	require.NoError(t, err)
	require.Len(t, first.Entries, 4)

	req := domain.ListActivityRequest{CandidateID: c.ID.String(), Viewer: identity.RoleHR}
	req.PageSize = 3
	page1, err := f.svc.ListActivity(ctx, req)
	require.NoError(t, err)
	require.Len(t, page1.Entries, 3)
	assert.True(t, page1.HasMore)

	req.PageToken = page1.NextPageToken
	page2, err := f.svc.ListActivity(ctx, req)
	require.NoError(t, err)
	require.Len(t, page2.Entries, 1)
	assert.False(t, page2.HasMore)
	assert.Equal(t, domain.ActivityApplicationSubmitted, page2.Entries[0].ActionType)
}

func TestStageCountsAndListCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.apply(t, "a@example.com")
	f.apply(t, "b@example.com")
	_, err := f.transition(a.ID, manager, "interview", "pending")
	require.NoError(t, err)

	counts, err := f.svc.StageCounts(ctx, f.positionID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["application"])
	assert.Equal(t, int64(1), counts["interview"])
	assert.Equal(t, int64(0), counts["onboarding"])

	resp, err := f.svc.ListCandidates(ctx, domain.ListCandidatesRequest{PositionID: f.positionID.String(), Stage: "interview"})
	require.NoError(t, err)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, a.ID, resp.Candidates[0].ID)
}

func TestAdvanceInTxRequiresExpectedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.apply(t, "dana@example.com")

	var moved bool
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		moved, err = f.svc.AdvanceInTx(ctx, tx, c.ID,
			domain.State{Stage: "interview", Status: "pending"},
			domain.State{Stage: "interview", Status: "scheduled"},
			domain.ActivityInput{ActionType: domain.ActivityInterviewBooked, Actor: manager, Description: "booked"},
		)
		return err
	})
	require.NoError(t, err)
	assert.False(t, moved)

	stored, err := f.svc.GetCandidate(ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "submitted", stored.CurrentStatus)
}

func TestTransitionWritesOutboxEvent(t *testing.T) {
	f := newFixture(t)
	c := f.apply(t, "dana@example.com")
	_, err := f.transition(c.ID, manager, "screening", "under_review")
	require.NoError(t, err)

	var topics []string
	require.NoError(t, f.db.Raw(`SELECT event_type FROM recruitment_events ORDER BY id`).Scan(&topics).Error)
	assert.Equal(t, []string{events.TopicCandidateApplied, events.TopicCandidateTransitioned}, topics)
}
