// Package api exposes the forecast pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skylens/aqcast/pkg/forecast"
	"github.com/skylens/aqcast/pkg/types"
)

// BatchRunner runs a forecast batch and returns the per-sensor status map.
type BatchRunner interface {
	RunBatch(ctx context.Context, sensorIDs []string, anchor time.Time) (map[string]string, error)
}

// Server implements the HTTP API server.
type Server struct {
	runner BatchRunner
	addr   string
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(addr string, runner BatchRunner) *Server {
	return &Server{
		runner: runner,
		addr:   addr,
	}
}

// jobRequest is the forecast job payload. SensorID accepts either a single
// id string or a list of ids.
type jobRequest struct {
	SensorID  json.RawMessage `json:"sensorId"`
	Timestamp string          `json:"timestamp"`
}

// Handler builds the HTTP handler. Exposed separately from Start for tests.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/", s.handleForecast)
	router.GET("/health", s.handleHealth)

	return router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Minute, // batches can run long
	}

	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleForecast runs a forecast batch. Always answers 200 with the
// per-sensor status map unless the request itself is invalid.
func (s *Server) handleForecast(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no JSON payload provided"})
		return
	}

	sensorIDs, ok := parseSensorIDs(req.SensorID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sensorId format. Expected list or string."})
		return
	}

	anchor := time.Now()
	if req.Timestamp != "" {
		var err error
		anchor, err = time.Parse(types.TimeLayout, req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp, expected YYYYMMDDThhmm"})
			return
		}
	}

	results, err := s.runner.RunBatch(c.Request.Context(), sensorIDs, anchor)
	if err != nil {
		if errors.Is(err, forecast.ErrNoSensors) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// parseSensorIDs accepts a bare string or a list of strings. A JSON null
// unmarshals into both as a no-op, so it is rejected up front.
func parseSensorIDs(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, false
		}
		return []string{single}, true
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, id := range many {
			if id == "" {
				return nil, false
			}
		}
		return many, true
	}

	return nil, false
}
