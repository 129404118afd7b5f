package base

import (
	"sync"
	"time"

	"github.com/helixdata/helix/pkg/connector/core"
)

// HealthChecker tracks the health status reported by a connector.
type HealthChecker struct {
	name   string
	status core.HealthStatus
	mu     sync.RWMutex
}

// NewHealthChecker creates a health checker starting in the healthy state
func NewHealthChecker(name string) *HealthChecker {
	return &HealthChecker{
		name: name,
		status: core.HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now(),
		},
	}
}

// GetStatus returns the current health status
func (hc *HealthChecker) GetStatus() core.HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.status
}

// UpdateStatus records a new health observation
func (hc *HealthChecker) UpdateStatus(healthy bool, details map[string]interface{}) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	hc.status = core.HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Details:   details,
	}
}

// SetError marks the connector unhealthy with the given error
func (hc *HealthChecker) SetError(err error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.status = core.HealthStatus{
		Status:    "unhealthy",
		Timestamp: time.Now(),
		Error:     err,
	}
}
