package action

import (
	"fmt"

	"github.com/smallbiznis/talentflow/internal/catalog"
)

type Type string

const (
	TypeNone               Type = "none"
	TypeCompleteProfile    Type = "complete_profile"
	TypeSelectSlot         Type = "select_slot"
	TypeConfirmInterview   Type = "confirm_interview"
	TypeReviewOffer        Type = "review_offer"
	TypeUploadDocuments    Type = "upload_onboarding_docs"
	TypeCompleteOnboarding Type = "complete_onboarding"
	TypeSetupInterview     Type = "setup_interview"
	TypeAddSlots           Type = "add_slots"
	TypeReviewCandidates   Type = "review_candidates"
)

// Action is the single next step shown to a candidate or manager.
type Action struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Type        Type   `json:"action_type"`
}

var candidateRules = map[string]Action{
	"application:incomplete": {
		Label:       "Complete Application",
		Description: "Fill in missing details",
		Type:        TypeCompleteProfile,
	},
	"screening:under_review": {
		Label:       "Awaiting Review",
		Description: "Your application is being reviewed",
		Type:        TypeNone,
	},
	"interview:pending": {
		Label:       "Select Interview Slot",
		Description: "Choose your preferred time",
		Type:        TypeSelectSlot,
	},
	"interview:scheduled": {
		Label:       "Confirm Interview",
		Description: "Confirm your attendance",
		Type:        TypeConfirmInterview,
	},
	"offer:released": {
		Label:       "Review Offer",
		Description: "Review your offer letter",
		Type:        TypeReviewOffer,
	},
	"onboarding:initiated": {
		Label:       "Complete Onboarding",
		Description: "Start your onboarding journey",
		Type:        TypeCompleteOnboarding,
	},
	"onboarding:documents_pending": {
		Label:       "Upload Documents",
		Description: "Submit onboarding documents",
		Type:        TypeUploadDocuments,
	},
}

// ForCandidate returns the pending candidate action for the pair, or nil
// when nothing is pending. Terminal pairs never yield an action.
func ForCandidate(stage, status string) *Action {
	key, err := catalog.NormalizeStage(stage)
	if err != nil {
		return nil
	}
	normalized := catalog.NormalizeStatus(status)
	if catalog.IsTerminal(string(key), normalized) {
		return nil
	}
	rule, ok := candidateRules[string(key)+":"+normalized]
	if !ok {
		return nil
	}
	out := rule
	return &out
}

// ManagerFacts are the inputs to the manager rule sequence.
type ManagerFacts struct {
	HasSetup        bool
	OpenSlots       int
	PendingFeedback int
}

// ForManager evaluates the manager rules in priority order; the first match
// wins.
func ForManager(f ManagerFacts) *Action {
	switch {
	case !f.HasSetup:
		return &Action{
			Label:       "Configure Interview",
			Description: "Set up interview format and rounds",
			Type:        TypeSetupInterview,
		}
	case f.OpenSlots <= 0:
		return &Action{
			Label:       "Add Time Slots",
			Description: "Provide available interview times",
			Type:        TypeAddSlots,
		}
	case f.PendingFeedback > 0:
		noun := "Candidates"
		if f.PendingFeedback == 1 {
			noun = "Candidate"
		}
		return &Action{
			Label:       fmt.Sprintf("Review %d %s", f.PendingFeedback, noun),
			Description: "Submit interview feedback",
			Type:        TypeReviewCandidates,
		}
	default:
		return nil
	}
}

// Facts carries whatever a perspective needs; unused fields are ignored.
type Facts struct {
	Stage   string
	Status  string
	Manager ManagerFacts
}

func Derive(perspective catalog.Perspective, f Facts) *Action {
	switch perspective {
	case catalog.PerspectiveCandidate:
		return ForCandidate(f.Stage, f.Status)
	case catalog.PerspectiveManager:
		return ForManager(f.Manager)
	default:
		return nil
	}
}
