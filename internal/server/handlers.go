package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/twill/internal/engine"
	"github.com/kode4food/twill/internal/profile"
	"github.com/kode4food/twill/pkg/api"
)

var (
	ErrInvalidJSON      = errors.New("invalid JSON request")
	ErrCallIncomplete   = errors.New("call requires a type and operation")
	ErrReloadNotEnabled = errors.New("reload not enabled")
)

func (s *Server) handleFlow(c *gin.Context) {
	flow, ok := s.engine.Flow()
	if !ok {
		fail(c, http.StatusNotFound, engine.ErrNoFlow)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) handleCapabilities(c *gin.Context) {
	infos := s.engine.Registry().Infos()
	c.JSON(http.StatusOK, api.CapabilitiesResponse{
		Capabilities: infos,
		Count:        len(infos),
	})
}

// handleExecute runs the loaded flow to completion. The response is the
// full run result whether or not every step succeeded; only a flow that
// cannot start at all produces an error status
func (s *Server) handleExecute(c *gin.Context) {
	var req api.ExecuteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest,
				fmt.Errorf("%w: %v", ErrInvalidJSON, err))
			return
		}
	}

	res, err := s.engine.Execute(c.Request.Context(), req.Init)
	if err != nil {
		failExecute(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleExecuteStep(c *gin.Context) {
	id := api.StepID(c.Param("stepID"))

	var req api.ExecuteStepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest,
				fmt.Errorf("%w: %v", ErrInvalidJSON, err))
			return
		}
	}

	rec, err := s.engine.ExecuteStep(c.Request.Context(), id, req.Params)
	if err != nil {
		failExecute(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleCall performs one ad-hoc capability invocation gated by the
// credential profile, which is loaded fresh for every request so edits
// to the profile file take effect immediately
func (s *Server) handleCall(c *gin.Context) {
	var req api.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest,
			fmt.Errorf("%w: %v", ErrInvalidJSON, err))
		return
	}
	if req.Type == "" || req.Operation == "" {
		fail(c, http.StatusBadRequest, ErrCallIncomplete)
		return
	}

	prof, err := profile.LoadOrNew(s.config.ProfilePath)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.ExecuteCall(
		c.Request.Context(), prof, &req))
}

func (s *Server) handleReload(c *gin.Context) {
	if s.reload == nil {
		fail(c, http.StatusServiceUnavailable, ErrReloadNotEnabled)
		return
	}
	s.reload()

	res := api.ReloadResponse{Reloaded: true}
	if flow, ok := s.engine.Flow(); ok {
		res.Flow = flow.Name
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleRun(c *gin.Context) {
	id := api.RunID(c.Param("runID"))
	res, err := s.engine.LookupRun(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusNotFound,
			fmt.Errorf("%w: %s", engine.ErrRunNotFound, id))
		return
	}
	c.JSON(http.StatusOK, res)
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}

// failExecute maps engine execution errors onto HTTP statuses: a
// missing flow means the server is not ready to run anything, an
// unknown step is a lookup failure, and everything else (cycles,
// unknown capability types) is a flow the engine refused to run
func failExecute(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNoFlow):
		fail(c, http.StatusServiceUnavailable, err)
	case errors.Is(err, engine.ErrStepNotFound):
		fail(c, http.StatusNotFound, err)
	default:
		fail(c, http.StatusUnprocessableEntity, err)
	}
}
