package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component states, ordered from best to worst.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

var statusRank = map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports catalog database and search index state",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth is the state of one dependency.
type ComponentHealth struct {
	Status  string `json:"status" enum:"healthy,degraded,unhealthy" doc:"Component state"`
	Latency string `json:"latency,omitempty" doc:"Probe duration"`
	Message string `json:"message,omitempty" doc:"Why the component is not healthy"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string                     `json:"status" doc:"Worst component state"`
	Version      string                     `json:"version" doc:"Server version"`
	Games        int                        `json:"games" doc:"Games in the catalog"`
	LastModified *time.Time                 `json:"last_modified,omitempty" doc:"Latest change to a game, tag or platform"`
	LastSynced   *time.Time                 `json:"last_synced,omitempty" doc:"Latest completed sync phase of any source"`
	Components   map[string]ComponentHealth `json:"components" doc:"Per-component state"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	body := HealthResponse{
		Version:    s.version,
		Components: make(map[string]ComponentHealth, 2),
	}

	body.Components["database"] = probe("database unavailable", func() error {
		cp, err := s.store.GetCatalogCheckpoint(ctx)
		if err != nil {
			return err
		}
		body.Games = cp.Games
		if !cp.LastModified.IsZero() {
			body.LastModified = &cp.LastModified
		}
		if !cp.LastSynced.IsZero() {
			body.LastSynced = &cp.LastSynced
		}
		return nil
	})

	if s.services.Search == nil {
		body.Components["search"] = ComponentHealth{Status: StatusDegraded, Message: "search is not enabled"}
	} else {
		body.Components["search"] = probe("search index unavailable", func() error {
			_, err := s.services.Search.DocumentCount()
			return err
		})
	}

	body.Status = StatusHealthy
	for _, c := range body.Components {
		if statusRank[c.Status] > statusRank[body.Status] {
			body.Status = c.Status
		}
	}
	return &HealthOutput{Body: body}, nil
}

// probe times fn and marks the component unhealthy with msg when it fails.
func probe(msg string, fn func() error) ComponentHealth {
	start := time.Now()
	err := fn()
	c := ComponentHealth{Status: StatusHealthy, Latency: time.Since(start).String()}
	if err != nil {
		c.Status, c.Message = StatusUnhealthy, msg
	}
	return c
}
