package server

import (
	"fmt"
	"log/slog"
	"net/http"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/log"
)

// SetupRoutes configures and returns the HTTP router with all API
// endpoints. Routes the flow itself declares are dispatched against the
// live definition on every request, so a reload that adds or removes
// them takes effect without rebuilding the router
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))
	router.Use(corsMiddleware)

	router.GET("/health", s.handleHealth)

	apiRoutes := router.Group("/api")
	{
		apiRoutes.GET("/flow", s.handleFlow)
		apiRoutes.GET("/capabilities", s.handleCapabilities)
		apiRoutes.POST("/execute", s.handleExecute)
		apiRoutes.POST("/steps/:stepID/execute", s.handleExecuteStep)
		apiRoutes.POST("/call", s.handleCall)
		apiRoutes.POST("/reload", s.handleReload)
		apiRoutes.GET("/runs/:runID", s.handleRun)
	}

	router.GET("/ws", s.handleWebSocket)

	router.NoRoute(s.handleFlowRoute)
	return router
}

func corsMiddleware(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set(
		"Access-Control-Allow-Methods",
		"GET, POST, PUT, DELETE, OPTIONS",
	)
	c.Writer.Header().Set(
		"Access-Control-Allow-Headers",
		"Content-Type, Authorization",
	)

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(http.StatusOK)
		return
	}

	c.Next()
}

// handleFlowRoute matches requests no static endpoint claimed against
// the live flow's declared routes and starts a run entered at the
// matched route's step
func (s *Server) handleFlowRoute(c *gin.Context) {
	flow, ok := s.engine.Flow()
	if !ok {
		s.routeNotFound(c)
		return
	}
	for _, r := range flow.Routes {
		if r.Path != c.Request.URL.Path ||
			r.HTTPMethod() != c.Request.Method {
			continue
		}
		s.startRouteRun(c, r)
		return
	}
	s.routeNotFound(c)
}

func (s *Server) startRouteRun(c *gin.Context, route *api.RouteConfig) {
	var init api.Args
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&init); err != nil {
			fail(c, http.StatusBadRequest,
				fmt.Errorf("%w: %v", ErrInvalidJSON, err))
			return
		}
	}

	slog.Info("Route triggered",
		log.Route(route.Path),
		log.StepID(route.EntryStep()))
	res, err := s.engine.ExecuteFrom(
		c.Request.Context(), route.EntryStep(), init)
	if err != nil {
		failExecute(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) routeNotFound(c *gin.Context) {
	fail(c, http.StatusNotFound,
		fmt.Errorf("no route for %s %s",
			c.Request.Method, c.Request.URL.Path))
}
