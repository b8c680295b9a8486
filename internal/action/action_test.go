package action

import (
	"testing"

	"github.com/smallbiznis/talentflow/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForCandidateRuleTable(t *testing.T) {
	cases := []struct {
		stage, status string
		label         string
		typ           Type
	}{
		{"application", "incomplete", "Complete Application", TypeCompleteProfile},
		{"interview", "pending", "Select Interview Slot", TypeSelectSlot},
		{"interview", "Scheduled", "Confirm Interview", TypeConfirmInterview},
		{"offer", "released", "Review Offer", TypeReviewOffer},
		{"decision", "released", "Review Offer", TypeReviewOffer},
		{"onboarding", "documents-pending", "Upload Documents", TypeUploadDocuments},
		{"onboarding", "initiated", "Complete Onboarding", TypeCompleteOnboarding},
		{"screening", "under review", "Awaiting Review", TypeNone},
	}
	for _, tc := range cases {
		t.Run(tc.stage+"/"+tc.status, func(t *testing.T) {
			got := ForCandidate(tc.stage, tc.status)
			require.NotNil(t, got)
			assert.Equal(t, tc.label, got.Label)
			assert.Equal(t, tc.typ, got.Type)
		})
	}
}

func TestForCandidateCaughtUp(t *testing.T) {
	assert.Nil(t, ForCandidate("application", "submitted"))
	assert.Nil(t, ForCandidate("interview", "confirmed"))
	assert.Nil(t, ForCandidate("unknown", "pending"))
}

func TestForCandidateTerminalNeverActs(t *testing.T) {
	for _, stage := range catalog.Stages() {
		for _, p := range []catalog.Perspective{catalog.PerspectiveCandidate, catalog.PerspectiveManager} {
			statuses, err := catalog.Statuses(string(stage.Key), p)
			require.NoError(t, err)
			for _, st := range statuses {
				if !catalog.IsTerminal(string(stage.Key), st.Key) {
					continue
				}
				assert.Nil(t, ForCandidate(string(stage.Key), st.Key), "%s/%s", stage.Key, st.Key)
			}
		}
	}

	for _, pair := range [][2]string{
		{"screening", "withdrawn"},
		{"interview", "rejected"},
		{"interview", "withdrawn"},
		{"onboarding", "withdrawn"},
	} {
		assert.Nil(t, ForCandidate(pair[0], pair[1]), "%s/%s", pair[0], pair[1])
	}
}

func TestForCandidateTerminalOverridesRuleEntry(t *testing.T) {
	key := "offer:declined"
	candidateRules[key] = Action{Label: "Should not appear", Type: TypeReviewOffer}
	t.Cleanup(func() { delete(candidateRules, key) })

	assert.Nil(t, ForCandidate("offer", "declined"))
}

func TestForCandidateReturnsCopy(t *testing.T) {
	got := ForCandidate("interview", "pending")
	require.NotNil(t, got)
	got.Label = "changed"
	assert.Equal(t, "Select Interview Slot", ForCandidate("interview", "pending").Label)
}

func TestForManagerPriority(t *testing.T) {
	t.Run("no setup", func(t *testing.T) {
		got := ForManager(ManagerFacts{HasSetup: false, OpenSlots: 0, PendingFeedback: 3})
		require.NotNil(t, got)
		assert.Equal(t, "Configure Interview", got.Label)
		assert.Equal(t, TypeSetupInterview, got.Type)
	})
	t.Run("no slots beats pending feedback", func(t *testing.T) {
		got := ForManager(ManagerFacts{HasSetup: true, OpenSlots: 0, PendingFeedback: 2})
		require.NotNil(t, got)
		assert.Equal(t, "Add Time Slots", got.Label)
	})
	t.Run("pending feedback plural", func(t *testing.T) {
		got := ForManager(ManagerFacts{HasSetup: true, OpenSlots: 4, PendingFeedback: 2})
		require.NotNil(t, got)
		assert.Equal(t, "Review 2 Candidates", got.Label)
		assert.Equal(t, TypeReviewCandidates, got.Type)
	})
	t.Run("pending feedback singular", func(t *testing.T) {
		got := ForManager(ManagerFacts{HasSetup: true, OpenSlots: 1, PendingFeedback: 1})
		require.NotNil(t, got)
		assert.Equal(t, "Review 1 Candidate", got.Label)
	})
	t.Run("nothing pending", func(t *testing.T) {
		assert.Nil(t, ForManager(ManagerFacts{HasSetup: true, OpenSlots: 5}))
	})
}

func TestDerive(t *testing.T) {
	got := Derive(catalog.PerspectiveCandidate, Facts{Stage: "application", Status: "incomplete"})
	require.NotNil(t, got)
	assert.Equal(t, TypeCompleteProfile, got.Type)

	got = Derive(catalog.PerspectiveManager, Facts{Manager: ManagerFacts{}})
	require.NotNil(t, got)
	assert.Equal(t, TypeSetupInterview, got.Type)

	assert.Nil(t, Derive(catalog.Perspective("auditor"), Facts{}))
}
