package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentflow/internal/identity"
	pipelinedomain "github.com/smallbiznis/talentflow/internal/pipeline/domain"
	positiondomain "github.com/smallbiznis/talentflow/internal/position/domain"
)

// authorize checks the role capability. Record-level ownership is checked
// by the handlers once the record is loaded.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, strings.TrimSpace(object), strings.TrimSpace(action)); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// loadCandidate returns the candidate when the actor may see it: candidates
// only themselves, managers only candidates of their positions.
func (s *Server) loadCandidate(c *gin.Context, actor identity.Actor, id string) (pipelinedomain.Candidate, error) {
	id = strings.TrimSpace(id)
	if actor.Role == identity.RoleCandidate && id != actor.ID {
		return pipelinedomain.Candidate{}, ErrForbidden
	}

	candidate, err := s.pipelineSvc.GetCandidate(c.Request.Context(), id)
	if err != nil {
		return pipelinedomain.Candidate{}, err
	}
	c.Set("candidate_id", candidate.ID.String())

	if actor.Role == identity.RoleManager {
		if _, err := s.managedPosition(c, actor, candidate.PositionID.String()); err != nil {
			return pipelinedomain.Candidate{}, err
		}
	}
	return candidate, nil
}

// managedPosition returns the position when the actor manages it. Staff
// manage every position; candidates none.
func (s *Server) managedPosition(c *gin.Context, actor identity.Actor, positionID string) (positiondomain.Position, error) {
	if actor.Role == identity.RoleCandidate {
		return positiondomain.Position{}, ErrForbidden
	}
	position, err := s.positionSvc.GetByID(c.Request.Context(), positionID)
	if err != nil {
		return positiondomain.Position{}, err
	}
	c.Set("position_id", position.ID.String())
	if actor.Role == identity.RoleManager && position.ManagerID != actor.ID {
		return positiondomain.Position{}, ErrForbidden
	}
	return position, nil
}
