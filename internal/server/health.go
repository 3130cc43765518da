package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/twill/pkg/api"
)

// handleHealth reports process liveness plus what is currently loaded
func (s *Server) handleHealth(c *gin.Context) {
	res := api.HealthResponse{
		Status:       "ok",
		UptimeMS:     time.Since(s.started).Milliseconds(),
		Capabilities: s.engine.Registry().Count(),
	}
	if flow, ok := s.engine.Flow(); ok {
		res.Flow = flow.Name
		res.Steps = len(flow.Steps)
	}
	c.JSON(http.StatusOK, res)
}
