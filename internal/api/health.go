package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

type HealthResponse struct {
	Status      string         `json:"status"`
	Database    string         `json:"database"`
	Sessions    int            `json:"sessions"`
	Connections map[string]int `json:"connections,omitempty"`
	Uptime      string         `json:"uptime"`
	Timestamp   time.Time      `json:"timestamp"`
}

// GET /health
// FUNCTIONAL DISCOVERY: Health check includes database connectivity for comprehensive monitoring
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Database:  "healthy",
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
	if s.deps.Sessions != nil {
		resp.Sessions = s.deps.Sessions.Count()
	}
	if s.deps.Live != nil {
		resp.Connections = s.deps.Live.Stats()
	}

	status := http.StatusOK
	if err := s.deps.DB.HealthCheck(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
