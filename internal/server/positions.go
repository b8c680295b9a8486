package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentflow/internal/identity"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
)

type createPositionRequest struct {
	Title           string `json:"title"`
	Department      string `json:"department"`
	Status          string `json:"status"`
	Headcount       int    `json:"headcount"`
	SLADays         int    `json:"sla_days"`
	ManagerID       string `json:"manager_id"`
	ReferenceNumber string `json:"reference_number"`
}

func (s *Server) CreatePosition(c *gin.Context) {
	var req createPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.positionSvc.Create(c.Request.Context(), positiondomain.CreateRequest{
		Title:           strings.TrimSpace(req.Title),
		Department:      strings.TrimSpace(req.Department),
		Status:          strings.TrimSpace(req.Status),
		Headcount:       req.Headcount,
		SLADays:         req.SLADays,
		ManagerID:       strings.TrimSpace(req.ManagerID),
		ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPositions(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var query struct {
		pagination.Pagination
		Status    string `form:"status"`
		ManagerID string `form:"manager_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := positiondomain.ListRequest{
		Pagination: query.Pagination,
		Status:     strings.TrimSpace(query.Status),
		ManagerID:  strings.TrimSpace(query.ManagerID),
	}
	switch actor.Role {
	case identity.RoleManager:
		req.ManagerID = actor.ID
	case identity.RoleCandidate:
		req.Status = string(positiondomain.StatusOpen)
		req.ManagerID = ""
	}

	resp, err := s.positionSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPosition(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	resp, err := s.positionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	switch actor.Role {
	case identity.RoleManager:
		if resp.ManagerID != actor.ID {
			AbortWithError(c, ErrForbidden)
			return
		}
	case identity.RoleCandidate:
		if resp.Status != positiondomain.StatusOpen {
			AbortWithError(c, positiondomain.ErrNotFound)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type applyRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Source   string `json:"source"`
}

func (s *Server) ApplyToPosition(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pipelineSvc.Apply(c.Request.Context(), pipelinedomain.ApplyRequest{
		PositionID: strings.TrimSpace(c.Param("id")),
		FullName:   strings.TrimSpace(req.FullName),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Source:     strings.TrimSpace(req.Source),
		Actor:      actor,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPositionCandidates(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if _, err := s.managedPosition(c, actor, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		pagination.Pagination
		Stage  string `form:"stage"`
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pipelineSvc.ListCandidates(c.Request.Context(), pipelinedomain.ListCandidatesRequest{
		Pagination: query.Pagination,
		PositionID: strings.TrimSpace(c.Param("id")),
		Stage:      strings.TrimSpace(query.Stage),
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
