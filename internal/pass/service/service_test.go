package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/action"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/config"
	"github.com/smallbiznis/talentflow/internal/events"
	"github.com/smallbiznis/talentflow/internal/identity"
	interviewdomain "github.com/smallbiznis/talentflow/internal/interview/domain"
	interviewrepo "github.com/smallbiznis/talentflow/internal/interview/repository"
	interviewsvc "github.com/smallbiznis/talentflow/internal/interview/service"
	"github.com/smallbiznis/talentflow/internal/pass/domain"
	"github.com/smallbiznis/talentflow/internal/pass/repository"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	pipelinerepo "github.com/smallbiznis/talentflow/internal/pipeline/repository"
	pipelinesvc "github.com/smallbiznis/talentflow/internal/pipeline/service"
	positionrepo "github.com/smallbiznis/talentflow/internal/position/repository"
	"github.com/smallbiznis/talentflow/internal/providers/pdf"
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
	pipeline   pipelinedomain.Service
	interview  interviewdomain.Service
	clock      *clock.FakeClock
	positionID snowflake.ID
	seq        int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC))

	positionID := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO positions (id, reference_number, title, department, status, headcount, sla_days, manager_id, created_at, updated_at)
		 VALUES (?, 'REF-2025-020', 'Product Designer', 'Design', 'open', 1, 10, 'mgr-1', ?, ?)`,
		positionID, clk.Now().AddDate(0, 0, -12), clk.Now().AddDate(0, 0, -12),
	).Error)

	publisher := events.NewOutboxPublisher(db, node, clk)
	pipeline := pipelinesvc.New(pipelinesvc.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo: pipelinerepo.Provide(), Positions: positionrepo.Provide(), Publisher: publisher,
	})
	interview := interviewsvc.New(interviewsvc.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: clk,
		Repo: interviewrepo.Provide(), Pipeline: pipeline, Positions: positionrepo.Provide(),
		Scheduling: config.NewStaticSchedulingConfigHolder(config.DefaultSchedulingConfig()),
		Publisher:  publisher,
	})
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Config:     config.Config{PublicBaseURL: "https://talentflow.example", Pass: config.PassConfig{TTL: 48 * time.Hour}},
		Repo:       repository.Provide(),
		Pipeline:   pipeline,
		Candidates: pipelinerepo.Provide(),
		Interview:  interview,
		Positions:  positionrepo.Provide(),
		PDF:        pdf.New(),
		Publisher:  publisher,
	})
	return &fixture{db: db, svc: svc, pipeline: pipeline, interview: interview, clock: clk, positionID: positionID}
}

func (f *fixture) candidate(t *testing.T, stage, status string) pipelinedomain.Candidate {
	t.Helper()
	f.seq++
	c, err := f.pipeline.Apply(context.Background(), pipelinedomain.ApplyRequest{
		PositionID: f.positionID.String(),
		FullName:   fmt.Sprintf("Candidate %d", f.seq),
		Email:      fmt.Sprintf("c%d@example.com", f.seq),
	})
	require.NoError(t, err)
	if stage == "" {
		return c
	}
	res, err := f.pipeline.Transition(context.Background(), pipelinedomain.TransitionRequest{
		CandidateID: c.ID.String(), Actor: hr, TargetStage: stage, TargetStatus: status,
	})
	require.NoError(t, err)
	return res.Candidate
}

func (f *fixture) configure(t *testing.T, rounds int, dates ...string) []interviewdomain.Slot {
	t.Helper()
	ctx := context.Background()
	setup, err := f.interview.ConfigureSetup(ctx, interviewdomain.ConfigureSetupRequest{
		PositionID: f.positionID.String(), InterviewFormat: "hybrid", InterviewRounds: rounds, Actor: manager,
	})
	require.NoError(t, err)
	if len(dates) == 0 {
		return nil
	}
	slots, err := f.interview.CreateSlots(ctx, interviewdomain.CreateSlotsRequest{
		SetupID: setup.ID.String(), Dates: dates,
		TimeRanges: []interviewdomain.TimeRange{{Start: "09:00", End: "10:00"}, {Start: "13:00", End: "14:00"}},
	})
	require.NoError(t, err)
	return slots
}

func (f *fixture) book(t *testing.T, slot interviewdomain.Slot, c pipelinedomain.Candidate) {
	t.Helper()
	_, err := f.interview.BookSlot(context.Background(), interviewdomain.BookSlotRequest{
		SlotID: slot.ID.String(), CandidateID: c.ID.String(),
		Actor: identity.Actor{ID: c.ID.String(), Role: identity.RoleCandidate},
	})
	require.NoError(t, err)
}

func TestCandidateViewWithoutSetup(t *testing.T) {
	f := newFixture(t)
	c := f.candidate(t, "screening", "under_review")

	view, err := f.svc.CandidateView(context.Background(), c.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "Product Designer", view.PositionTitle)
	assert.Equal(t, "Assessment", view.StageLabel)
	assert.Equal(t, "Under Review", view.StatusLabel)
	require.Len(t, view.Stages, 5)
	assert.Equal(t, domain.StageCompleted, view.Stages[0].State)
	assert.Equal(t, domain.StageCurrent, view.Stages[1].State)
	assert.Equal(t, domain.StageUpcoming, view.Stages[4].State)
	require.NotNil(t, view.NextAction)
	assert.Equal(t, action.TypeNone, view.NextAction.Type)
	assert.Nil(t, view.BookedSlot)
	assert.Empty(t, view.AvailableSlots)
	assert.NotNil(t, view.AvailableSlots)
	assert.NotEmpty(t, view.Activity)
}

func TestCandidateViewTracksBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slots := f.configure(t, 1, "2025-04-14", "2025-04-15")
	c := f.candidate(t, "interview", "pending")

	view, err := f.svc.CandidateView(ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, view.ActiveRound)
	assert.Len(t, view.AvailableSlots, 4)
	require.NotNil(t, view.NextAction)
	assert.Equal(t, "Select Interview Slot", view.NextAction.Label)

	f.book(t, slots[0], c)

	view, err = f.svc.CandidateView(ctx, c.ID.String())
	require.NoError(t, err)
	require.NotNil(t, view.BookedSlot)
	assert.Equal(t, slots[0].ID, view.BookedSlot.ID)
	assert.Zero(t, view.ActiveRound, "every round is booked")
	assert.Empty(t, view.AvailableSlots)
	require.NotNil(t, view.NextAction)
	assert.Equal(t, "Confirm Interview", view.NextAction.Label)
}

func TestCandidateViewClosedPipeline(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 1, "2025-04-14")
	c := f.candidate(t, "interview", "no_show")

	view, err := f.svc.CandidateView(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.True(t, view.Closed)
	assert.Nil(t, view.NextAction)
	assert.Empty(t, view.AvailableSlots)

	_, err = f.svc.CandidateView(context.Background(), "424242")
	assert.ErrorIs(t, err, pipelinedomain.ErrCandidateNotFound)
}

func TestManagerViewPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := domain.ManagerViewRequest{PositionID: f.positionID.String(), Viewer: manager}

	view, err := f.svc.ManagerView(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, view.Setup)
	assert.Equal(t, 12, view.DaysOpen)
	assert.True(t, view.SLABreached)
	assert.Equal(t, int64(0), view.TotalCandidates)
	require.NotNil(t, view.NextAction)
	assert.Equal(t, action.TypeSetupInterview, view.NextAction.Type)

	f.configure(t, 1)
	view, err = f.svc.ManagerView(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, view.Setup)
	require.NotNil(t, view.NextAction)
	assert.Equal(t, "Add Time Slots", view.NextAction.Label)
}

func TestManagerViewOccupancyAndFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slots := f.configure(t, 1, "2025-04-14", "2025-04-15")
	a := f.candidate(t, "interview", "pending")
	b := f.candidate(t, "interview", "pending")
	f.candidate(t, "", "")

	f.book(t, slots[2], a)
	f.book(t, slots[0], b)
	_, err := f.interview.ConfirmSlot(ctx, interviewdomain.ConfirmSlotRequest{
		SlotID: slots[2].ID.String(), CandidateID: a.ID.String(),
		Actor: identity.Actor{ID: a.ID.String(), Role: identity.RoleCandidate},
	})
	require.NoError(t, err)
	_, err = f.interview.CancelSlot(ctx, interviewdomain.CancelSlotRequest{SlotID: slots[3].ID.String(), Actor: manager})
	require.NoError(t, err)
	_, err = f.pipeline.Transition(ctx, pipelinedomain.TransitionRequest{
		CandidateID: b.ID.String(), Actor: manager, TargetStage: "interview", TargetStatus: "completed",
	})
	require.NoError(t, err)

	view, err := f.svc.ManagerView(ctx, domain.ManagerViewRequest{PositionID: f.positionID.String(), Viewer: hr})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotOccupancy{Open: 1, Booked: 2, Cancelled: 1}, view.Slots)
	assert.Equal(t, int64(3), view.TotalCandidates)
	assert.Equal(t, int64(2), view.PipelineStats["interview"])
	assert.Equal(t, int64(1), view.PipelineStats["application"])
	assert.Equal(t, int64(0), view.PipelineStats["offer"])

	require.Len(t, view.ConfirmedInterviews, 1)
	assert.Equal(t, a.FullName, view.ConfirmedInterviews[0].CandidateName)
	assert.Equal(t, "2025-04-15", view.ConfirmedInterviews[0].SlotDate)

	assert.Equal(t, 1, view.PendingFeedback)
	require.NotNil(t, view.NextAction)
	assert.Equal(t, "Review 1 Candidate", view.NextAction.Label)

	_, err = f.svc.ManagerView(ctx, domain.ManagerViewRequest{
		PositionID: f.positionID.String(), Viewer: identity.Actor{ID: "mgr-2", Role: identity.RoleManager},
	})
	assert.ErrorIs(t, err, domain.ErrNotPositionManager)
}

func TestIssueAndResolvePasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.candidate(t, "interview", "pending")

	issued, err := f.svc.IssueCandidatePass(ctx, domain.IssueCandidatePassRequest{CandidateID: c.ID.String(), Actor: hr})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Regexp(t, `^PASS-[0-9A-Z]{26}$`, issued.Pass.PassNumber)
	assert.Equal(t, f.clock.Now().Add(48*time.Hour), issued.Pass.ValidUntil)

	var stored string
	require.NoError(t, f.db.Raw(`SELECT token_hash FROM passes WHERE id = ?`, issued.Pass.ID).Scan(&stored).Error)
	assert.Equal(t, domain.HashToken(issued.Token), stored)
	assert.NotEqual(t, issued.Token, stored)

	view, err := f.svc.ResolveCandidate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, c.ID, view.CandidateID)

	_, err = f.svc.ResolveManager(ctx, issued.Token)
	assert.ErrorIs(t, err, domain.ErrPassNotFound)

	_, err = f.svc.ResolveCandidate(ctx, "not-a-token")
	assert.ErrorIs(t, err, domain.ErrPassNotFound)

	mgrPass, err := f.svc.IssueManagerPass(ctx, domain.IssueManagerPassRequest{PositionID: f.positionID.String(), TTL: time.Hour, Actor: manager})
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", mgrPass.Pass.ManagerID)

	resolved, err := f.svc.Resolve(ctx, mgrPass.Token)
	require.NoError(t, err)
	require.NotNil(t, resolved.Manager)
	assert.Nil(t, resolved.Candidate)
	assert.Equal(t, domain.StatusActive, resolved.Pass.Status)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.ResolveManager(ctx, mgrPass.Token)
	assert.ErrorIs(t, err, domain.ErrPassExpired)

	_, err = f.svc.IssueManagerPass(ctx, domain.IssueManagerPassRequest{
		PositionID: f.positionID.String(), Actor: identity.Actor{ID: "mgr-9", Role: identity.RoleManager},
	})
	assert.ErrorIs(t, err, domain.ErrNotPositionManager)
}

func TestRevokeAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.candidate(t, "", "")

	first, err := f.svc.IssueCandidatePass(ctx, domain.IssueCandidatePassRequest{CandidateID: c.ID.String(), Actor: hr})
	require.NoError(t, err)
	second, err := f.svc.IssueCandidatePass(ctx, domain.IssueCandidatePassRequest{CandidateID: c.ID.String(), TTL: time.Minute, Actor: hr})
	require.NoError(t, err)
	_, err = f.svc.IssueManagerPass(ctx, domain.IssueManagerPassRequest{PositionID: f.positionID.String(), Actor: hr})
	require.NoError(t, err)

	revoked, err := f.svc.Revoke(ctx, first.Pass.ID.String(), hr)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRevoked, revoked.Status)

	_, err = f.svc.Revoke(ctx, first.Pass.ID.String(), hr)
	assert.ErrorIs(t, err, domain.ErrPassRevoked)
	_, err = f.svc.Revoke(ctx, "777", hr)
	assert.ErrorIs(t, err, domain.ErrPassNotFound)

	_, err = f.svc.ResolveCandidate(ctx, first.Token)
	assert.ErrorIs(t, err, domain.ErrPassRevoked)

	f.clock.Advance(5 * time.Minute)

	list, err := f.svc.List(ctx, domain.ListRequest{Type: "candidate"})
	require.NoError(t, err)
	assert.Len(t, list.Passes, 2)

	list, err = f.svc.List(ctx, domain.ListRequest{Status: "expired"})
	require.NoError(t, err)
	require.Len(t, list.Passes, 1)
	assert.Equal(t, second.Pass.ID, list.Passes[0].ID)

	list, err = f.svc.List(ctx, domain.ListRequest{Status: "active"})
	require.NoError(t, err)
	require.Len(t, list.Passes, 1)
	assert.Equal(t, domain.TypeManager, list.Passes[0].PassType)

	page, err := f.svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Passes, 3)
	assert.False(t, page.HasMore)

	_, err = f.svc.List(ctx, domain.ListRequest{Status: "paused"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestRenderCandidatePass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slots := f.configure(t, 1, "2025-04-14")
	c := f.candidate(t, "interview", "pending")
	f.book(t, slots[0], c)

	issued, err := f.svc.IssueCandidatePass(ctx, domain.IssueCandidatePassRequest{CandidateID: c.ID.String(), Actor: hr})
	require.NoError(t, err)

	r, err := f.svc.RenderCandidatePass(ctx, issued.Token)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	mgr, err := f.svc.IssueManagerPass(ctx, domain.IssueManagerPassRequest{PositionID: f.positionID.String(), Actor: hr})
	require.NoError(t, err)
	_, err = f.svc.RenderCandidatePass(ctx, mgr.Token)
	assert.ErrorIs(t, err, domain.ErrPassNotFound)
}
