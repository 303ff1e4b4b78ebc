// health.go — пробы живости и готовности, /metrics.
package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/media-catalog/internal/config"
)

const serviceName = "media-catalog"

// Статусы проверок.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// ReadinessChecker — проверка готовности одной зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус (ok, degraded, fail) и сообщение.
	CheckReady() (status, message string)
}

// CheckerFunc позволяет использовать функцию как ReadinessChecker.
type CheckerFunc func() (status, message string)

// CheckReady вызывает f.
func (f CheckerFunc) CheckReady() (string, string) { return f() }

// Check — именованная проверка для /health/ready.
type Check struct {
	Name    string
	Checker ReadinessChecker
}

// HealthHandler обслуживает /health/* и /metrics.
type HealthHandler struct {
	checks      []Check
	startedAt   time.Time
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик. Без проверок readiness отвечает fail.
func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{
		checks:      checks,
		startedAt:   time.Now(),
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

type healthReadyResponse struct {
	healthLiveResponse
	UptimeSeconds int64                        `json:"uptime_seconds"`
	Checks        map[string]healthCheckResult `json:"checks"`
}

func (h *HealthHandler) base(status string) healthLiveResponse {
	return healthLiveResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}
}

// HealthLive — GET /health/live, всегда 200.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.base(statusOK))
}

// HealthReady — GET /health/ready: 200 при ok/degraded, 503 при fail.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	results := make(map[string]healthCheckResult, len(h.checks))
	statuses := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		st, msg := c.Checker.CheckReady()
		results[c.Name] = healthCheckResult{Status: st, Message: msg}
		statuses = append(statuses, st)
	}
	if len(statuses) == 0 {
		statuses = append(statuses, statusFail)
	}

	resp := healthReadyResponse{
		healthLiveResponse: h.base(overallStatus(statuses...)),
		UptimeSeconds:      int64(time.Since(h.startedAt).Seconds()),
		Checks:             results,
	}
	code := http.StatusOK
	if resp.Status == statusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics — GET /metrics.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// overallStatus: любой fail — fail, любой degraded — degraded, иначе ok.
func overallStatus(statuses ...string) string {
	result := statusOK
	for _, s := range statuses {
		switch s {
		case statusFail:
			return statusFail
		case statusDegraded:
			result = statusDegraded
		}
	}
	return result
}
