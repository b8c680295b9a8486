package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentflow/internal/identity"
	passdomain "github.com/smallbiznis/talentflow/internal/pass/domain"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
)

func (s *Server) GetCandidatePassView(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	candidate, err := s.loadCandidate(c, actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.passSvc.CandidateView(c.Request.Context(), candidate.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetManagerPassView(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	positionID := strings.TrimSpace(c.Param("positionId"))
	c.Set("position_id", positionID)

	resp, err := s.passSvc.ManagerView(c.Request.Context(), passdomain.ManagerViewRequest{
		PositionID: positionID,
		Viewer:     actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type issuePassRequest struct {
	Type        string `json:"type"`
	CandidateID string `json:"candidate_id"`
	PositionID  string `json:"position_id"`
	ManagerID   string `json:"manager_id"`
	TTLHours    int    `json:"ttl_hours"`
}

func (s *Server) IssuePass(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req issuePassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.TTLHours < 0 {
		AbortWithError(c, newValidationError("ttl_hours", "invalid_ttl_hours", "invalid ttl_hours"))
		return
	}
	ttl := time.Duration(req.TTLHours) * time.Hour

	passType, err := passdomain.ParseType(req.Type)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var resp passdomain.IssuedPass
	switch passType {
	case passdomain.TypeCandidate:
		candidate, err := s.loadCandidate(c, actor, req.CandidateID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		resp, err = s.passSvc.IssueCandidatePass(c.Request.Context(), passdomain.IssueCandidatePassRequest{
			CandidateID: candidate.ID.String(),
			TTL:         ttl,
			Actor:       actor,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
	case passdomain.TypeManager:
		managerID := strings.TrimSpace(req.ManagerID)
		if !actor.IsStaff() {
			managerID = ""
		}
		resp, err = s.passSvc.IssueManagerPass(c.Request.Context(), passdomain.IssueManagerPassRequest{
			PositionID: strings.TrimSpace(req.PositionID),
			ManagerID:  managerID,
			TTL:        ttl,
			Actor:      actor,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
	default:
		AbortWithError(c, passdomain.ErrInvalidType)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPasses(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var query struct {
		pagination.Pagination
		Type       string `form:"type"`
		Status     string `form:"status"`
		PositionID string `form:"position_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	positionID := strings.TrimSpace(query.PositionID)
	if actor.Role == identity.RoleManager {
		if positionID == "" {
			AbortWithError(c, newValidationError("position_id", "required", "position_id is required"))
			return
		}
		if _, err := s.managedPosition(c, actor, positionID); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	resp, err := s.passSvc.List(c.Request.Context(), passdomain.ListRequest{
		Pagination: query.Pagination,
		Type:       strings.TrimSpace(query.Type),
		Status:     strings.TrimSpace(query.Status),
		PositionID: positionID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevokePass(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	resp, err := s.passSvc.Revoke(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
