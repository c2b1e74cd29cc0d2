package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/planventa/planventa/pkg/application"
	"github.com/planventa/planventa/pkg/httpapi"
)

type healthStatus string

const (
	healthStatusHealthy  healthStatus = "healthy"
	healthStatusDegraded healthStatus = "degraded"
	healthStatusDown     healthStatus = "down"
)

const (
	dbDegradedLatency  = 100 * time.Millisecond
	healthCheckTimeout = 5 * time.Second
)

type healthResponse struct {
	Status    healthStatus   `json:"status"`
	Timestamp string         `json:"timestamp"`
	Checks    map[string]any `json:"checks"`
}

type componentHealth struct {
	Status       healthStatus `json:"status"`
	ResponseTime string       `json:"responseTime,omitempty"`
	Error        string       `json:"error,omitempty"`
}

type HealthController struct {
	app application.Application
}

func NewHealthController(app application.Application) application.Controller {
	return &HealthController{app: app}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Get).Methods(http.MethodGet)
}

func (c *HealthController) Get(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]any)
	overall := healthStatusHealthy

	dbHealth := c.checkDatabase(r.Context())
	checks["database"] = dbHealth
	overall = mergeHealthStatus(overall, dbHealth.Status)

	response := healthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	status := http.StatusOK
	if overall == healthStatusDown {
		status = http.StatusServiceUnavailable
	}
	_ = httpapi.WriteJSON(w, status, response)
}

func mergeHealthStatus(current, next healthStatus) healthStatus {
	if next == healthStatusDown {
		return healthStatusDown
	}
	if next == healthStatusDegraded && current == healthStatusHealthy {
		return healthStatusDegraded
	}
	return current
}

func (c *HealthController) checkDatabase(ctx context.Context) componentHealth {
	start := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	db := c.app.DB()
	if db == nil {
		return componentHealth{
			Status:       healthStatusDown,
			ResponseTime: time.Since(start).String(),
			Error:        "database connection pool not available",
		}
	}

	var result int
	err := db.QueryRow(timeoutCtx, "SELECT 1").Scan(&result)
	responseTime := time.Since(start)
	if err != nil {
		return componentHealth{
			Status:       healthStatusDown,
			ResponseTime: responseTime.String(),
			Error:        fmt.Sprintf("database query failed: %v", err),
		}
	}

	status := healthStatusHealthy
	if responseTime > dbDegradedLatency {
		status = healthStatusDegraded
	}

	return componentHealth{
		Status:       status,
		ResponseTime: responseTime.String(),
	}
}
