package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Public pass routes authenticate by the token in the path. Request logs
// record the route template for them instead of the raw path, and bodies
// carry the public projection only.

func (s *Server) ResolvePublicPass(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.passSvc.Resolve(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"data": resp.Public()})
}

func (s *Server) DownloadPublicPassPDF(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	reader, err := s.passSvc.RenderCandidatePass(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, -1, "application/pdf", reader, map[string]string{
		"Content-Disposition": `inline; filename="candidate-pass.pdf"`,
	})
}
