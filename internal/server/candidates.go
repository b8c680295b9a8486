package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	"github.com/smallbiznis/talentflow/pkg/db/pagination"
)

func (s *Server) GetCandidate(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	resp, err := s.loadCandidate(c, actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type transitionRequest struct {
	Stage       string `json:"stage"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
}

func (s *Server) TransitionCandidate(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	visibility, err := pipelinedomain.ParseVisibility(strings.TrimSpace(req.Visibility))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	candidate, err := s.loadCandidate(c, actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pipelineSvc.Transition(c.Request.Context(), pipelinedomain.TransitionRequest{
		CandidateID:  candidate.ID.String(),
		Actor:        actor,
		TargetStage:  strings.TrimSpace(req.Stage),
		TargetStatus: strings.TrimSpace(req.Status),
		Description:  strings.TrimSpace(req.Description),
		Visibility:   visibility,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCandidateActivity(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	candidate, err := s.loadCandidate(c, actor, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.pipelineSvc.ListActivity(c.Request.Context(), pipelinedomain.ListActivityRequest{
		Pagination:  query,
		CandidateID: candidate.ID.String(),
		Viewer:      actor.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
