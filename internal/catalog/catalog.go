// Package catalog holds the fixed hiring stages and the status values
// legal in each of them.
//
//	application(0) -> screening(1) -> interview(2) -> offer(3) -> onboarding(4)
//
// Every stage carries two status vocabularies: the candidate-facing one,
// which is what a candidate record stores, and the manager-facing one used
// to label the recruitment request. Tables are built once at package init
// and never mutated.
package catalog

import (
	"errors"
	"regexp"
	"strings"
)

type StageKey string

const (
	StageApplication StageKey = "application"
	StageScreening   StageKey = "screening"
	StageInterview   StageKey = "interview"
	StageOffer       StageKey = "offer"
	StageOnboarding  StageKey = "onboarding"
)

// stageAliases maps accepted spellings onto canonical keys.
var stageAliases = map[string]StageKey{
	"decision": StageOffer,
}

// StatusWithdrawn is the candidate's own exit. Every stage carries it as a
// terminal status.
const StatusWithdrawn = "withdrawn"

type Perspective string

const (
	PerspectiveCandidate Perspective = "candidate"
	PerspectiveManager   Perspective = "manager"
)

var (
	ErrUnknownStage       = errors.New("unknown_stage")
	ErrUnknownPerspective = errors.New("unknown_perspective")
)

type Stage struct {
	Key            StageKey `json:"key"`
	Index          int      `json:"index"`
	CandidateLabel string   `json:"candidate_label"`
	ManagerLabel   string   `json:"manager_label"`
}

type Status struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Terminal bool   `json:"terminal"`
}

var stages = []Stage{
	{Key: StageApplication, Index: 0, CandidateLabel: "Application", ManagerLabel: "Request"},
	{Key: StageScreening, Index: 1, CandidateLabel: "Assessment", ManagerLabel: "Screening"},
	{Key: StageInterview, Index: 2, CandidateLabel: "Interview", ManagerLabel: "Interview"},
	{Key: StageOffer, Index: 3, CandidateLabel: "Offer", ManagerLabel: "Decision"},
	{Key: StageOnboarding, Index: 4, CandidateLabel: "Onboard", ManagerLabel: "Onboard"},
}

var candidateStatuses = map[StageKey][]Status{
	StageApplication: {
		{Key: "submitted", Label: "Submitted"},
		{Key: "incomplete", Label: "Incomplete"},
		{Key: StatusWithdrawn, Label: "Withdrawn", Terminal: true},
		{Key: "validated", Label: "Application Validated"},
	},
	StageScreening: {
		{Key: "under_review", Label: "Under Review"},
		{Key: "shortlisted", Label: "Shortlisted"},
		{Key: "not_shortlisted", Label: "Not Shortlisted", Terminal: true},
		{Key: "on_hold", Label: "On Hold"},
		{Key: StatusWithdrawn, Label: "Withdrawn", Terminal: true},
	},
	StageInterview: {
		{Key: "pending", Label: "Interview Pending"},
		{Key: "scheduled", Label: "Interview Scheduled"},
		{Key: "confirmed", Label: "Interview Confirmed"},
		{Key: "completed", Label: "Interview Completed"},
		{Key: "cancelled", Label: "Interview Cancelled"},
		{Key: "no_show", Label: "Interview No-Show", Terminal: true},
		{Key: "rejected", Label: "Rejected After Interview", Terminal: true},
		{Key: StatusWithdrawn, Label: "Withdrawn", Terminal: true},
	},
	StageOffer: {
		{Key: "in_preparation", Label: "Offer In Preparation"},
		{Key: "released", Label: "Offer Released"},
		{Key: "accepted", Label: "Offer Accepted"},
		{Key: "declined", Label: "Offer Declined", Terminal: true},
		{Key: "expired", Label: "Offer Expired", Terminal: true},
		{Key: StatusWithdrawn, Label: "Offer Withdrawn", Terminal: true},
	},
	StageOnboarding: {
		{Key: "initiated", Label: "Onboarding Initiated"},
		{Key: "documents_pending", Label: "Documents Pending"},
		{Key: "pre_joining", Label: "Pre-Joining In Progress"},
		{Key: "completed", Label: "Onboarding Completed"},
		{Key: "no_show", Label: "No Show", Terminal: true},
		{Key: StatusWithdrawn, Label: "Withdrawn", Terminal: true},
	},
}

var managerStatuses = map[StageKey][]Status{
	StageApplication: {
		{Key: "raised", Label: "Request Raised"},
		{Key: "approved", Label: "Request Approved"},
		{Key: "on_hold", Label: "Request On Hold"},
		{Key: "cancelled", Label: "Request Cancelled", Terminal: true},
	},
	StageScreening: {
		{Key: "in_progress", Label: "Screening In Progress"},
		{Key: "shortlisted", Label: "Shortlisted"},
		{Key: "rejected", Label: "Rejected at Screening", Terminal: true},
		{Key: "on_hold", Label: "Screening On Hold"},
	},
	StageInterview: {
		{Key: "scheduled", Label: "Interview Scheduled"},
		{Key: "completed", Label: "Interview Completed"},
		{Key: "feedback_pending", Label: "Feedback Pending"},
		{Key: "additional_required", Label: "Additional Interview Required"},
		{Key: "cancelled", Label: "Interview Cancelled"},
	},
	StageOffer: {
		{Key: "pending", Label: "Decision Pending"},
		{Key: "approved", Label: "Approved for Offer"},
		{Key: "not_approved", Label: "Not Approved", Terminal: true},
		{Key: "released", Label: "Offer Released"},
		{Key: "declined", Label: "Offer Declined by Candidate", Terminal: true},
	},
	StageOnboarding: {
		{Key: "initiated", Label: "Onboarding Initiated"},
		{Key: "documentation", Label: "Documentation In Progress"},
		{Key: "joining_confirmed", Label: "Joining Confirmed"},
		{Key: "completed", Label: "Onboarding Completed"},
		{Key: "failed", Label: "Onboarding Failed", Terminal: true},
	},
}

type statusEntry struct {
	label    string
	terminal bool
}

var (
	stageByKey     map[StageKey]Stage
	statusIndex    map[Perspective]map[string]statusEntry
	terminalStatus map[string]struct{}
)

func init() {
	stageByKey = make(map[StageKey]Stage, len(stages))
	for _, s := range stages {
		stageByKey[s.Key] = s
	}

	statusIndex = map[Perspective]map[string]statusEntry{
		PerspectiveCandidate: indexStatuses(candidateStatuses),
		PerspectiveManager:   indexStatuses(managerStatuses),
	}

	terminalStatus = map[string]struct{}{}
	for _, table := range []map[StageKey][]Status{candidateStatuses, managerStatuses} {
		for stage, list := range table {
			for _, st := range list {
				if st.Terminal {
					terminalStatus[compositeKey(stage, st.Key)] = struct{}{}
				}
			}
		}
	}
}

func indexStatuses(table map[StageKey][]Status) map[string]statusEntry {
	out := make(map[string]statusEntry)
	for stage, list := range table {
		for _, st := range list {
			out[compositeKey(stage, st.Key)] = statusEntry{label: st.Label, terminal: st.Terminal}
		}
	}
	return out
}

func compositeKey(stage StageKey, status string) string {
	return string(stage) + ":" + status
}

// Stages returns the ordered stage list.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// NormalizeStage resolves a raw stage key, including aliases, to its
// canonical form.
func NormalizeStage(raw string) (StageKey, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := stageAliases[key]; ok {
		return alias, nil
	}
	if _, ok := stageByKey[StageKey(key)]; ok {
		return StageKey(key), nil
	}
	return "", ErrUnknownStage
}

// StageIndex returns the position of the stage in the hiring order.
func StageIndex(raw string) (int, error) {
	key, err := NormalizeStage(raw)
	if err != nil {
		return -1, err
	}
	return stageByKey[key].Index, nil
}

func StageLabel(raw string, perspective Perspective) string {
	key, err := NormalizeStage(raw)
	if err != nil {
		return FallbackLabel(raw)
	}
	stage := stageByKey[key]
	if perspective == PerspectiveManager {
		return stage.ManagerLabel
	}
	return stage.CandidateLabel
}

var statusSeparators = regexp.MustCompile(`[\s-]+`)

// NormalizeStatus lowercases a status key and folds whitespace and dashes
// into underscores.
func NormalizeStatus(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	return statusSeparators.ReplaceAllString(value, "_")
}

// StatusLabel never fails: unknown stages or statuses render through
// FallbackLabel.
func StatusLabel(stage, status string, perspective Perspective) string {
	key, err := NormalizeStage(stage)
	if err != nil {
		return FallbackLabel(status)
	}
	table, ok := statusIndex[perspective]
	if !ok {
		table = statusIndex[PerspectiveCandidate]
	}
	if entry, ok := table[compositeKey(key, NormalizeStatus(status))]; ok {
		return entry.label
	}
	return FallbackLabel(status)
}

// FallbackLabel title-cases a raw key: "feedback_pending" -> "Feedback Pending".
func FallbackLabel(raw string) string {
	words := strings.Fields(strings.ReplaceAll(strings.TrimSpace(raw), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// IsTerminal reports whether the pair ends forward progress. Both status
// vocabularies are consulted.
func IsTerminal(stage, status string) bool {
	key, err := NormalizeStage(stage)
	if err != nil {
		return false
	}
	_, ok := terminalStatus[compositeKey(key, NormalizeStatus(status))]
	return ok
}

// IsValidStatus reports whether status may be stored on a candidate at stage.
func IsValidStatus(stage, status string) bool {
	key, err := NormalizeStage(stage)
	if err != nil {
		return false
	}
	_, ok := statusIndex[PerspectiveCandidate][compositeKey(key, NormalizeStatus(status))]
	return ok
}

func Statuses(stage string, perspective Perspective) ([]Status, error) {
	key, err := NormalizeStage(stage)
	if err != nil {
		return nil, err
	}
	var table map[StageKey][]Status
	switch perspective {
	case PerspectiveCandidate:
		table = candidateStatuses
	case PerspectiveManager:
		table = managerStatuses
	default:
		return nil, ErrUnknownPerspective
	}
	out := make([]Status, len(table[key]))
	copy(out, table[key])
	return out, nil
}
