package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentflow/internal/identity"
	obscontext "github.com/smallbiznis/talentflow/internal/observability/context"
)

const contextActorKey = "actor"

// AuthRequired verifies the bearer token and stores the actor on both the
// gin and request contexts.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor, err := s.verifier.Verify(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), string(actor.Role), actor.ID))
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func actorFromContext(c *gin.Context) (identity.Actor, bool) {
	if c == nil {
		return identity.Actor{}, false
	}
	value, ok := c.Get(contextActorKey)
	if !ok {
		return identity.Actor{}, false
	}
	actor, ok := value.(identity.Actor)
	if !ok || !actor.Valid() {
		return identity.Actor{}, false
	}
	return actor, true
}

// mustActor aborts with 401 when the request carries no actor.
func mustActor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return identity.Actor{}, false
	}
	return actor, true
}
