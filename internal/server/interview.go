package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentflow/internal/identity"
	interviewdomain "github.com/smallbiznis/talentflow/internal/interview/domain"
)

type configureSetupRequest struct {
	PositionID                  string   `json:"position_id"`
	InterviewFormat             string   `json:"interview_format"`
	InterviewRounds             int      `json:"interview_rounds"`
	TechnicalAssessmentRequired bool     `json:"technical_assessment_required"`
	AdditionalInterviewers      []string `json:"additional_interviewers"`
	Notes                       string   `json:"notes"`
}

func (s *Server) ConfigureInterviewSetup(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req configureSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if _, err := s.managedPosition(c, actor, req.PositionID); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.interviewSvc.ConfigureSetup(c.Request.Context(), interviewdomain.ConfigureSetupRequest{
		PositionID:                  strings.TrimSpace(req.PositionID),
		InterviewFormat:             strings.TrimSpace(req.InterviewFormat),
		InterviewRounds:             req.InterviewRounds,
		TechnicalAssessmentRequired: req.TechnicalAssessmentRequired,
		AdditionalInterviewers:      req.AdditionalInterviewers,
		Notes:                       strings.TrimSpace(req.Notes),
		Actor:                       actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type updateSetupRequest struct {
	InterviewFormat             *string   `json:"interview_format"`
	InterviewRounds             *int      `json:"interview_rounds"`
	TechnicalAssessmentRequired *bool     `json:"technical_assessment_required"`
	AdditionalInterviewers      *[]string `json:"additional_interviewers"`
	Notes                       *string   `json:"notes"`
}

func (s *Server) UpdateInterviewSetup(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req updateSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	setup, err := s.interviewSvc.GetSetup(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.managedPosition(c, actor, setup.PositionID.String()); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.interviewSvc.UpdateSetup(c.Request.Context(), interviewdomain.UpdateSetupRequest{
		SetupID:                     setup.ID.String(),
		InterviewFormat:             req.InterviewFormat,
		InterviewRounds:             req.InterviewRounds,
		TechnicalAssessmentRequired: req.TechnicalAssessmentRequired,
		AdditionalInterviewers:      req.AdditionalInterviewers,
		Notes:                       req.Notes,
		Actor:                       actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInterviewSetupByPosition(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	positionID := c.Param("positionId")
	if _, err := s.managedPosition(c, actor, positionID); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.interviewSvc.GetSetupByPosition(c.Request.Context(), positionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createSlotsRequest struct {
	SetupID              string                      `json:"setup_id"`
	Dates                []string                    `json:"dates"`
	TimeRanges           []interviewdomain.TimeRange `json:"time_ranges"`
	RoundNumber          int                         `json:"round_number"`
	UseDefaultTimeRanges bool                        `json:"use_default_time_ranges"`
}

func (s *Server) CreateInterviewSlots(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req createSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	setup, err := s.interviewSvc.GetSetup(c.Request.Context(), req.SetupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.managedPosition(c, actor, setup.PositionID.String()); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.interviewSvc.CreateSlots(c.Request.Context(), interviewdomain.CreateSlotsRequest{
		SetupID:              setup.ID.String(),
		Dates:                req.Dates,
		TimeRanges:           req.TimeRanges,
		RoundNumber:          req.RoundNumber,
		UseDefaultTimeRanges: req.UseDefaultTimeRanges,
		Actor:                actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"created": len(resp),
		"slots":   resp,
	}})
}

func (s *Server) ListInterviewSlots(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var query struct {
		SetupID     string `form:"setup_id"`
		PositionID  string `form:"position_id"`
		RoundNumber string `form:"round_number"`
		Status      string `form:"status"`
		Available   string `form:"available"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	round, err := parseRound(query.RoundNumber)
	if err != nil {
		AbortWithError(c, newValidationError("round_number", "invalid_round_number", "invalid round_number"))
		return
	}
	available, err := parseOptionalBool(query.Available)
	if err != nil {
		AbortWithError(c, newValidationError("available", "invalid_available", "invalid available"))
		return
	}

	req := interviewdomain.ListSlotsRequest{
		SetupID:     strings.TrimSpace(query.SetupID),
		PositionID:  strings.TrimSpace(query.PositionID),
		RoundNumber: round,
		Status:      strings.TrimSpace(query.Status),
	}
	if available != nil && *available {
		req.Status = string(interviewdomain.SlotStatusOpen)
	}

	if actor.Role == identity.RoleCandidate {
		// Candidates browse open slots of the position they applied to.
		candidate, err := s.loadCandidate(c, actor, actor.ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.SetupID = ""
		req.PositionID = candidate.PositionID.String()
		req.Status = string(interviewdomain.SlotStatusOpen)
	} else {
		positionID := req.PositionID
		if positionID == "" && req.SetupID != "" {
			setup, err := s.interviewSvc.GetSetup(c.Request.Context(), req.SetupID)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			positionID = setup.PositionID.String()
		}
		if positionID != "" {
			if _, err := s.managedPosition(c, actor, positionID); err != nil {
				AbortWithError(c, err)
				return
			}
		}
	}

	resp, err := s.interviewSvc.ListSlots(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"slots": resp}})
}

type slotCandidateRequest struct {
	SlotID      string `json:"slot_id"`
	CandidateID string `json:"candidate_id"`
}

// candidateFor defaults the candidate to the caller when the caller is a
// candidate.
func candidateFor(actor identity.Actor, requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" && actor.Role == identity.RoleCandidate {
		return actor.ID
	}
	return requested
}

func (s *Server) BookInterviewSlot(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req slotCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	candidateID := candidateFor(actor, req.CandidateID)
	c.Set("slot_id", strings.TrimSpace(req.SlotID))
	c.Set("candidate_id", candidateID)

	resp, err := s.interviewSvc.BookSlot(c.Request.Context(), interviewdomain.BookSlotRequest{
		SlotID:      strings.TrimSpace(req.SlotID),
		CandidateID: candidateID,
		Actor:       actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ConfirmInterviewSlot(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req slotCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	candidateID := candidateFor(actor, req.CandidateID)
	c.Set("slot_id", strings.TrimSpace(req.SlotID))
	c.Set("candidate_id", candidateID)

	resp, err := s.interviewSvc.ConfirmSlot(c.Request.Context(), interviewdomain.ConfirmSlotRequest{
		SlotID:      strings.TrimSpace(req.SlotID),
		CandidateID: candidateID,
		Actor:       actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelInterviewSlot(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if _, err := s.managedSlot(c, actor, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.interviewSvc.CancelSlot(c.Request.Context(), interviewdomain.CancelSlotRequest{
		SlotID: strings.TrimSpace(c.Param("id")),
		Actor:  actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type feedbackRequest struct {
	Recommendation string `json:"recommendation"`
	Notes          string `json:"notes"`
}

func (s *Server) SubmitInterviewFeedback(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if _, err := s.managedSlot(c, actor, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.interviewSvc.SubmitFeedback(c.Request.Context(), interviewdomain.SubmitFeedbackRequest{
		SlotID:         strings.TrimSpace(c.Param("id")),
		Recommendation: strings.TrimSpace(req.Recommendation),
		Notes:          strings.TrimSpace(req.Notes),
		Actor:          actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) managedSlot(c *gin.Context, actor identity.Actor, slotID string) (interviewdomain.Slot, error) {
	slot, err := s.interviewSvc.GetSlot(c.Request.Context(), slotID)
	if err != nil {
		return interviewdomain.Slot{}, err
	}
	c.Set("slot_id", slot.ID.String())
	if _, err := s.managedPosition(c, actor, slot.PositionID.String()); err != nil {
		return interviewdomain.Slot{}, err
	}
	return slot, nil
}
