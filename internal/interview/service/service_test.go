package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/config"
	"github.com/smallbiznis/talentflow/internal/events"
	"github.com/smallbiznis/talentflow/internal/identity"
	"github.com/smallbiznis/talentflow/internal/interview/domain"
	"github.com/smallbiznis/talentflow/internal/interview/repository"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	pipelinerepo "github.com/smallbiznis/talentflow/internal/pipeline/repository"
	pipelinesvc "github.com/smallbiznis/talentflow/internal/pipeline/service"
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
	pipeline   pipelinedomain.Service
	clock      *clock.FakeClock
	positionID snowflake.ID
	seq        int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC))

	positionID := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO positions (id, reference_number, title, department, status, headcount, sla_days, manager_id, created_at, updated_at)
		 VALUES (?, 'REF-2025-010', 'Data Engineer', 'Engineering', 'open', 1, 21, 'mgr-1', ?, ?)`,
		positionID, clk.Now(), clk.Now(),
	).Error)

	publisher := events.NewOutboxPublisher(db, node, clk)
	pipeline := pipelinesvc.New(pipelinesvc.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Repo:      pipelinerepo.Provide(),
		Positions: positionrepo.Provide(),
		Publisher: publisher,
	})
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Repo:       repository.Provide(),
		Pipeline:   pipeline,
		Positions:  positionrepo.Provide(),
		Scheduling: config.NewStaticSchedulingConfigHolder(config.DefaultSchedulingConfig()),
		Publisher:  publisher,
	})
	return &fixture{db: db, svc: svc, pipeline: pipeline, clock: clk, positionID: positionID}
}

// candidateAt applies a new candidate and moves it to interview/pending.
func (f *fixture) candidateAt(t *testing.T, stage, status string) pipelinedomain.Candidate {
	t.Helper()
	f.seq++
	c, err := f.pipeline.Apply(context.Background(), pipelinedomain.ApplyRequest{
		PositionID: f.positionID.String(),
		FullName:   fmt.Sprintf("Candidate %d", f.seq),
		Email:      fmt.Sprintf("candidate%d@example.com", f.seq),
	})
	require.NoError(t, err)
	res, err := f.pipeline.Transition(context.Background(), pipelinedomain.TransitionRequest{
		CandidateID:  c.ID.String(),
		Actor:        hr,
		TargetStage:  stage,
		TargetStatus: status,
	})
	require.NoError(t, err)
	return res.Candidate
}

func (f *fixture) setup(t *testing.T, rounds int) domain.Setup {
	t.Helper()
	setup, err := f.svc.ConfigureSetup(context.Background(), domain.ConfigureSetupRequest{
		PositionID:      f.positionID.String(),
		InterviewFormat: "Online",
		InterviewRounds: rounds,
		Actor:           manager,
	})
	require.NoError(t, err)
	return setup
}

func (f *fixture) slots(t *testing.T, setup domain.Setup, round int, dates ...string) []domain.Slot {
	t.Helper()
	slots, err := f.svc.CreateSlots(context.Background(), domain.CreateSlotsRequest{
		SetupID:     setup.ID.String(),
		Dates:       dates,
		TimeRanges:  []domain.TimeRange{{Start: "09:00", End: "10:00"}},
		RoundNumber: round,
		Actor:       manager,
	})
	require.NoError(t, err)
	return slots
}

func candidateActor(c pipelinedomain.Candidate) identity.Actor {
	return identity.Actor{ID: c.ID.String(), Role: identity.RoleCandidate}
}

func (f *fixture) book(slot domain.Slot, c pipelinedomain.Candidate) (domain.Slot, error) {
	return f.svc.BookSlot(context.Background(), domain.BookSlotRequest{
		SlotID:      slot.ID.String(),
		CandidateID: c.ID.String(),
		Actor:       candidateActor(c),
	})
}

func TestConfigureSetup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	setup, err := f.svc.ConfigureSetup(ctx, domain.ConfigureSetupRequest{
		PositionID:             f.positionID.String(),
		InterviewFormat:        "In Person",
		InterviewRounds:        2,
		AdditionalInterviewers: []string{" lee@example.com ", "", "LEE@example.com", "kim@example.com"},
		Actor:                  manager,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatInPerson, setup.InterviewFormat)
	assert.Equal(t, 1, setup.RoundNumber)
	assert.Equal(t, []string{"lee@example.com", "kim@example.com"}, []string(setup.AdditionalInterviewers))

	stored, err := f.svc.GetSetupByPosition(ctx, f.positionID.String())
	require.NoError(t, err)
	assert.Equal(t, setup.ID, stored.ID)
	assert.Equal(t, []string{"lee@example.com", "kim@example.com"}, []string(stored.AdditionalInterviewers))

	_, err = f.svc.ConfigureSetup(ctx, domain.ConfigureSetupRequest{
		PositionID: f.positionID.String(), InterviewFormat: "online", InterviewRounds: 1, Actor: manager,
	})
	assert.ErrorIs(t, err, domain.ErrSetupExists)

	_, err = f.svc.ConfigureSetup(ctx, domain.ConfigureSetupRequest{
		PositionID: f.positionID.String(), InterviewFormat: "carrier pigeon", InterviewRounds: 1, Actor: manager,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = f.svc.ConfigureSetup(ctx, domain.ConfigureSetupRequest{
		PositionID: f.positionID.String(), InterviewFormat: "online", InterviewRounds: 0, Actor: manager,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRounds)

	_, err = f.svc.GetSetupByPosition(ctx, "12345")
	assert.ErrorIs(t, err, domain.ErrSetupNotFound)
}

func TestCreateSlotsTwoDatesThreeRangesThenBookAndConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 1)

	slots, err := f.svc.CreateSlots(ctx, domain.CreateSlotsRequest{
		SetupID: setup.ID.String(),
		Dates:   []string{"2025-04-15", "2025-04-14"},
		TimeRanges: []domain.TimeRange{
			{Start: "9:00", End: "10:00"},
			{Start: "11:00", End: "12:00"},
			{Start: "14:00", End: "15:00"},
		},
		RoundNumber: 1,
		Actor:       manager,
	})
	require.NoError(t, err)
	require.Len(t, slots, 6)
	for _, slot := range slots {
		assert.Equal(t, domain.SlotStatusOpen, slot.Status)
		assert.Equal(t, 1, slot.RoundNumber)
		assert.Nil(t, slot.CandidateID)
	}
	assert.Equal(t, "2025-04-14", slots[0].SlotDate)
	assert.Equal(t, "09:00", slots[0].StartTime)

	a := f.candidateAt(t, "interview", "pending")
	b := f.candidateAt(t, "interview", "pending")

	booked, err := f.book(slots[0], a)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusBooked, booked.Status)
	require.NotNil(t, booked.CandidateID)
	assert.Equal(t, a.ID, *booked.CandidateID)
	assert.False(t, booked.CandidateConfirmed)

	stored, err := f.pipeline.GetCandidate(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, pipelinedomain.State{Stage: "interview", Status: "scheduled"}, stored.State())

	confirmed, err := f.svc.ConfirmSlot(ctx, domain.ConfirmSlotRequest{
		SlotID: slots[0].ID.String(), CandidateID: a.ID.String(), Actor: candidateActor(a),
	})
	require.NoError(t, err)
	assert.True(t, confirmed.CandidateConfirmed)
	require.NotNil(t, confirmed.ConfirmedAt)

	stored, err = f.pipeline.GetCandidate(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, pipelinedomain.State{Stage: "interview", Status: "confirmed"}, stored.State())

	again, err := f.svc.ConfirmSlot(ctx, domain.ConfirmSlotRequest{
		SlotID: slots[0].ID.String(), CandidateID: a.ID.String(), Actor: candidateActor(a),
	})
	require.NoError(t, err, "confirming twice is a no-op")
	assert.True(t, again.CandidateConfirmed)

	_, err = f.book(slots[0], b)
	assert.ErrorIs(t, err, domain.ErrSlotAlreadyTaken)

	available, err := f.svc.AvailableSlots(ctx, f.positionID.String(), 1)
	require.NoError(t, err)
	assert.Len(t, available, 5)

	counts, err := f.svc.SlotCounts(ctx, f.positionID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts[domain.SlotStatusOpen])
	assert.Equal(t, int64(1), counts[domain.SlotStatusBooked])
	assert.Equal(t, int64(0), counts[domain.SlotStatusCancelled])

	entries, err := f.pipeline.ListActivity(ctx, pipelinedomain.ListActivityRequest{
		CandidateID: a.ID.String(), Viewer: identity.RoleCandidate,
	})
	require.NoError(t, err)
	var types []string
	for _, e := range entries.Entries {
		types = append(types, e.ActionType)
	}
	assert.Contains(t, types, pipelinedomain.ActivityInterviewBooked)
	assert.Contains(t, types, pipelinedomain.ActivityInterviewConfirmed)

	var published int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM recruitment_events WHERE event_type IN (?, ?)`,
		events.TopicSlotBooked, events.TopicSlotConfirmed,
	).Scan(&published).Error)
	assert.Equal(t, int64(2), published)
}

func TestCreateSlotsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 2)

	cases := []struct {
		name string
		req  domain.CreateSlotsRequest
		err  error
	}{
		{"no dates", domain.CreateSlotsRequest{TimeRanges: []domain.TimeRange{{Start: "09:00", End: "10:00"}}}, domain.ErrEmptySelection},
		{"no ranges", domain.CreateSlotsRequest{Dates: []string{"2025-04-14"}}, domain.ErrEmptySelection},
		{"bad date", domain.CreateSlotsRequest{Dates: []string{"14/04/2025"}, TimeRanges: []domain.TimeRange{{Start: "09:00", End: "10:00"}}}, domain.ErrInvalidDate},
		{"inverted range", domain.CreateSlotsRequest{Dates: []string{"2025-04-14"}, TimeRanges: []domain.TimeRange{{Start: "10:00", End: "09:00"}}}, domain.ErrInvalidTimeRange},
		{"empty range", domain.CreateSlotsRequest{Dates: []string{"2025-04-14"}, TimeRanges: []domain.TimeRange{{Start: "10:00", End: "10:00"}}}, domain.ErrInvalidTimeRange},
		{"garbage time", domain.CreateSlotsRequest{Dates: []string{"2025-04-14"}, TimeRanges: []domain.TimeRange{{Start: "noon", End: "13:00"}}}, domain.ErrInvalidTimeRange},
		{"round above setup", domain.CreateSlotsRequest{Dates: []string{"2025-04-14"}, TimeRanges: []domain.TimeRange{{Start: "09:00", End: "10:00"}}, RoundNumber: 3}, domain.ErrRoundOutOfRange},
		{"negative round", domain.CreateSlotsRequest{Dates: []string{"2025-04-14"}, TimeRanges: []domain.TimeRange{{Start: "09:00", End: "10:00"}}, RoundNumber: -1}, domain.ErrRoundOutOfRange},
		{"repeated date", domain.CreateSlotsRequest{Dates: []string{"2025-04-14", " 2025-04-14"}, TimeRanges: []domain.TimeRange{{Start: "09:00", End: "10:00"}}}, domain.ErrDuplicateDate},
		{"repeated range after trim", domain.CreateSlotsRequest{Dates: []string{"2025-04-14"}, TimeRanges: []domain.TimeRange{{Start: "09:00", End: "10:00"}, {Start: " 09:00", End: "10:00 "}}}, domain.ErrDuplicateTimeRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.SetupID = setup.ID.String()
			_, err := f.svc.CreateSlots(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := f.svc.CreateSlots(ctx, domain.CreateSlotsRequest{
		SetupID: "999", Dates: []string{"2025-04-14"}, TimeRanges: []domain.TimeRange{{Start: "09:00", End: "10:00"}},
	})
	assert.ErrorIs(t, err, domain.ErrSetupNotFound)

	var count int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM interview_slots`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestCreateSlotsDefaultsAndLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 1)

	slots, err := f.svc.CreateSlots(ctx, domain.CreateSlotsRequest{
		SetupID:              setup.ID.String(),
		Dates:                []string{"2025-04-14"},
		UseDefaultTimeRanges: true,
	})
	require.NoError(t, err)
	assert.Len(t, slots, len(config.DefaultSchedulingConfig().DefaultTimeRanges))
	assert.Equal(t, 1, slots[0].RoundNumber, "zero round falls back to the setup's first round")

	dates := make([]string, 0, 60)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		dates = append(dates, start.AddDate(0, 0, i).Format(domain.DateLayout))
	}
	ranges := make([]domain.TimeRange, 0, 9)
	for h := 8; h < 17; h++ {
		ranges = append(ranges, domain.TimeRange{Start: fmt.Sprintf("%02d:00", h), End: fmt.Sprintf("%02d:45", h)})
	}
	_, err = f.svc.CreateSlots(ctx, domain.CreateSlotsRequest{SetupID: setup.ID.String(), Dates: dates, TimeRanges: ranges})
	assert.ErrorIs(t, err, domain.ErrTooManySlots)
}

func TestConcurrentBookingsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	setup := f.setup(t, 1)
	slot := f.slots(t, setup, 1, "2025-04-14")[0]

	const n = 8
	candidates := make([]pipelinedomain.Candidate, n)
	for i := range candidates {
		candidates[i] = f.candidateAt(t, "interview", "pending")
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for _, c := range candidates {
		wg.Add(1)
		go func(c pipelinedomain.Candidate) {
			defer wg.Done()
			_, err := f.book(slot, c)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, domain.ErrSlotAlreadyTaken):
				losses++
			}
		}(c)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)

	var booked int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM interview_slots WHERE id = ? AND status = 'booked' AND candidate_id IS NOT NULL`, slot.ID,
	).Scan(&booked).Error)
	assert.Equal(t, int64(1), booked)

	var scheduled int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM candidates WHERE current_status = 'scheduled'`,
	).Scan(&scheduled).Error)
	assert.Equal(t, int64(1), scheduled, "only the winner advances")
}

func TestOneBookingPerCandidatePerRound(t *testing.T) {
	f := newFixture(t)
	setup := f.setup(t, 2)
	round1 := f.slots(t, setup, 1, "2025-04-14", "2025-04-15", "2025-04-16")
	round2 := f.slots(t, setup, 2, "2025-04-21")
	c := f.candidateAt(t, "interview", "pending")

	var wg sync.WaitGroup
	results := make([]error, len(round1))
	for i, slot := range round1 {
		wg.Add(1)
		go func(i int, slot domain.Slot) {
			defer wg.Done()
			_, results[i] = f.book(slot, c)
		}(i, slot)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateBookingForRound)
	}
	assert.Equal(t, 1, ok)

	_, err := f.book(round2[0], c)
	require.NoError(t, err, "a different round is a separate booking")

	bookings, err := f.svc.CandidateBookings(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
}

func TestBookSlotRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 1)
	slots := f.slots(t, setup, 1, "2025-04-14", "2025-04-15")
	c := f.candidateAt(t, "interview", "pending")
	other := f.candidateAt(t, "interview", "pending")

	_, err := f.svc.BookSlot(ctx, domain.BookSlotRequest{SlotID: slots[0].ID.String(), CandidateID: c.ID.String(), Actor: candidateActor(other)})
	assert.ErrorIs(t, err, domain.ErrNotSlotOwner)

	_, err = f.book(domain.Slot{ID: snowflake.ID(77)}, c)
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)

	_, err = f.svc.CancelSlot(ctx, domain.CancelSlotRequest{SlotID: slots[1].ID.String(), Actor: manager})
	require.NoError(t, err)
	_, err = f.book(slots[1], c)
	assert.ErrorIs(t, err, domain.ErrSlotCancelled)
	_, err = f.svc.ConfirmSlot(ctx, domain.ConfirmSlotRequest{SlotID: slots[1].ID.String(), CandidateID: c.ID.String(), Actor: candidateActor(c)})
	assert.ErrorIs(t, err, domain.ErrSlotNotBooked, "any slot that is not booked cannot be confirmed")

	closed := f.candidateAt(t, "interview", "no_show")
	_, err = f.book(slots[0], closed)
	assert.ErrorIs(t, err, pipelinedomain.ErrPipelineClosed)

	_, err = f.book(slots[0], c)
	require.NoError(t, err)
	_, err = f.svc.ConfirmSlot(ctx, domain.ConfirmSlotRequest{SlotID: slots[0].ID.String(), CandidateID: other.ID.String(), Actor: candidateActor(other)})
	assert.ErrorIs(t, err, domain.ErrNotSlotOwner)
}

func TestBookSlotEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 2)
	round1 := f.slots(t, setup, 1, "2025-04-14")[0]
	round2 := f.slots(t, setup, 2, "2025-04-21")[0]

	shortlisted := f.candidateAt(t, "screening", "shortlisted")
	_, err := f.book(round1, shortlisted)
	assert.ErrorIs(t, err, domain.ErrNotInInterviewStage)

	c := f.candidateAt(t, "interview", "pending")
	_, err = f.book(round2, c)
	assert.ErrorIs(t, err, domain.ErrRoundOutOfOrder)

	_, err = f.book(round1, c)
	require.NoError(t, err)
	_, err = f.book(round2, c)
	require.NoError(t, err, "round two opens once round one is booked")

	stored, err := f.pipeline.GetCandidate(ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, stateScheduled, stored.State(), "a later round keeps the current status")

	var open int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM interview_slots WHERE status = 'open'`).Scan(&open).Error)
	assert.Zero(t, open)
}

func TestCancelSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 1)
	slots := f.slots(t, setup, 1, "2025-04-14", "2025-04-15")
	c := f.candidateAt(t, "interview", "pending")

	_, err := f.book(slots[0], c)
	require.NoError(t, err)

	_, err = f.svc.CancelSlot(ctx, domain.CancelSlotRequest{SlotID: slots[0].ID.String(), Actor: manager})
	assert.ErrorIs(t, err, domain.ErrCannotCancelBookedSlot)

	unchanged, err := f.svc.GetSlot(ctx, slots[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusBooked, unchanged.Status)
	require.NotNil(t, unchanged.CandidateID)
	assert.Equal(t, c.ID, *unchanged.CandidateID)

	cancelled, err := f.svc.CancelSlot(ctx, domain.CancelSlotRequest{SlotID: slots[1].ID.String(), Actor: manager})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.CancelSlot(ctx, domain.CancelSlotRequest{SlotID: slots[1].ID.String(), Actor: manager})
	assert.ErrorIs(t, err, domain.ErrSlotCancelled)

	_, err = f.svc.CancelSlot(ctx, domain.CancelSlotRequest{SlotID: "31337", Actor: manager})
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
}

func TestUpdateSetupRounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 1)
	c := f.candidateAt(t, "interview", "pending")

	_, err := f.svc.CreateSlots(ctx, domain.CreateSlotsRequest{
		SetupID: setup.ID.String(), Dates: []string{"2025-04-21"},
		TimeRanges: []domain.TimeRange{{Start: "09:00", End: "10:00"}}, RoundNumber: 2,
	})
	assert.ErrorIs(t, err, domain.ErrRoundOutOfRange)

	three := 3
	notes := "  bring laptop "
	updated, err := f.svc.UpdateSetup(ctx, domain.UpdateSetupRequest{
		SetupID: setup.ID.String(), InterviewRounds: &three, Notes: &notes, Actor: manager,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.InterviewRounds)
	assert.Equal(t, "bring laptop", updated.Notes)
	assert.Equal(t, domain.FormatOnline, updated.InterviewFormat)

	for round, date := range map[int]string{1: "2025-04-14", 2: "2025-04-21", 3: "2025-04-28"} {
		f.slots(t, setup, round, date)
	}
	for round := 1; round <= 3; round++ {
		slots, err := f.svc.ListSlots(ctx, domain.ListSlotsRequest{SetupID: setup.ID.String(), RoundNumber: round})
		require.NoError(t, err)
		require.Len(t, slots, 1)
		_, err = f.book(slots[0], c)
		require.NoError(t, err)
	}

	two := 2
	_, err = f.svc.UpdateSetup(ctx, domain.UpdateSetupRequest{SetupID: setup.ID.String(), InterviewRounds: &two, Actor: manager})
	assert.ErrorIs(t, err, domain.ErrRoundHasBookings)

	tooMany := 50
	_, err = f.svc.UpdateSetup(ctx, domain.UpdateSetupRequest{SetupID: setup.ID.String(), InterviewRounds: &tooMany, Actor: manager})
	assert.ErrorIs(t, err, domain.ErrInvalidRounds)

	stored, err := f.svc.GetSetup(ctx, setup.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, stored.InterviewRounds)
}

func TestFeedbackAndPendingCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 1)
	slots := f.slots(t, setup, 1, "2025-04-14", "2025-04-15", "2025-04-16")
	a := f.candidateAt(t, "interview", "pending")
	b := f.candidateAt(t, "interview", "pending")

	_, err := f.book(slots[0], a)
	require.NoError(t, err)
	_, err = f.book(slots[1], b)
	require.NoError(t, err)

	pending, err := f.svc.PendingFeedbackCount(ctx, f.positionID.String())
	require.NoError(t, err)
	assert.Zero(t, pending, "only completed interviews await feedback")

	for _, c := range []pipelinedomain.Candidate{a, b} {
		_, err := f.pipeline.Transition(ctx, pipelinedomain.TransitionRequest{
			CandidateID: c.ID.String(), Actor: manager, TargetStage: "interview", TargetStatus: "completed",
		})
		require.NoError(t, err)
	}
	pending, err = f.svc.PendingFeedbackCount(ctx, f.positionID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	_, err = f.svc.SubmitFeedback(ctx, domain.SubmitFeedbackRequest{SlotID: slots[0].ID.String(), Recommendation: "maybe", Actor: manager})
	assert.ErrorIs(t, err, domain.ErrInvalidRecommendation)

	fb, err := f.svc.SubmitFeedback(ctx, domain.SubmitFeedbackRequest{
		SlotID: slots[0].ID.String(), Recommendation: "Advance", Notes: "strong systems design", Actor: manager,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RecommendationAdvance, fb.Recommendation)
	assert.Equal(t, a.ID, fb.CandidateID)

	_, err = f.svc.SubmitFeedback(ctx, domain.SubmitFeedbackRequest{SlotID: slots[0].ID.String(), Recommendation: "hold", Actor: hr})
	assert.ErrorIs(t, err, domain.ErrFeedbackExists)

	_, err = f.svc.SubmitFeedback(ctx, domain.SubmitFeedbackRequest{SlotID: slots[2].ID.String(), Recommendation: "hold", Actor: manager})
	assert.ErrorIs(t, err, domain.ErrSlotNotBooked)

	pending, err = f.svc.PendingFeedbackCount(ctx, f.positionID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	candidateView, err := f.pipeline.ListActivity(ctx, pipelinedomain.ListActivityRequest{CandidateID: a.ID.String(), Viewer: identity.RoleCandidate})
	require.NoError(t, err)
	for _, e := range candidateView.Entries {
		assert.NotEqual(t, pipelinedomain.ActivityFeedbackSubmitted, e.ActionType, "feedback is manager-only")
	}
}

func TestListSlotsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setup := f.setup(t, 2)
	f.slots(t, setup, 1, "2025-04-14", "2025-04-15")
	f.slots(t, setup, 2, "2025-04-21")

	all, err := f.svc.ListSlots(ctx, domain.ListSlotsRequest{SetupID: setup.ID.String()})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	round2, err := f.svc.ListSlots(ctx, domain.ListSlotsRequest{PositionID: f.positionID.String(), RoundNumber: 2, Status: "OPEN"})
	require.NoError(t, err)
	require.Len(t, round2, 1)
	assert.Equal(t, "2025-04-21", round2[0].SlotDate)

	_, err = f.svc.ListSlots(ctx, domain.ListSlotsRequest{SetupID: setup.ID.String(), Status: "reserved"})
	assert.ErrorIs(t, err, domain.ErrInvalidSlotStatus)

	_, err = f.svc.ListSlots(ctx, domain.ListSlotsRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidSetupID)
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]domain.Format{
		"online":    domain.FormatOnline,
		"In Person": domain.FormatInPerson,
		"IN_PERSON": domain.FormatInPerson,
		"on-site":   domain.FormatInPerson,
		" Hybrid ":  domain.FormatHybrid,
	} {
		got, err := domain.ParseFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := domain.ParseFormat("")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
}
