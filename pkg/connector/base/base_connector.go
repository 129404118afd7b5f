// Package base provides the foundational BaseConnector that Helix
// connectors embed. It implements common functionality: circuit breaking,
// rate limiting, retry with backoff, health monitoring, state management,
// and metrics collection.
//
// All connectors should embed BaseConnector:
//
//	type MyConnector struct {
//	    *base.BaseConnector
//	    // connector-specific fields
//	}
package base

import (
	"context"
	"sync"
	"time"

	"github.com/helixdata/helix/pkg/clients"
	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/core"
	"github.com/helixdata/helix/pkg/errors"
	"github.com/helixdata/helix/pkg/logger"
	"github.com/helixdata/helix/pkg/metrics"
	"go.uber.org/zap"
)

// BaseConnector provides common functionality for all connectors.
type BaseConnector struct {
	name          string
	connectorType core.ConnectorType
	version       string
	config        *config.BaseConfig
	logger        *zap.Logger

	// State management
	state      core.State
	stateMutex sync.RWMutex

	// Resource management
	ctx        context.Context
	cancel     context.CancelFunc
	closed     bool
	closeMutex sync.Mutex

	// Reliability features
	circuitBreaker   *clients.CircuitBreaker
	rateLimiter      clients.RateLimiter
	retryPolicy      *RetryPolicy
	healthChecker    *HealthChecker
	metricsCollector *metrics.Collector
}

// NewBaseConnector creates a new base connector with the specified name,
// type, and version. Call Initialize before use.
func NewBaseConnector(name string, connectorType core.ConnectorType, version string) *BaseConnector {
	return &BaseConnector{
		name:          name,
		connectorType: connectorType,
		version:       version,
		state:         make(core.State),
		logger:        logger.Get().With(zap.String("connector", name)),
	}
}

// Initialize sets up the reliability features of the base connector:
// circuit breaker, rate limiter, retry policy, health checks, and metrics.
func (bc *BaseConnector) Initialize(ctx context.Context, cfg *config.BaseConfig) error {
	if cfg == nil {
		return errors.New(errors.ErrorTypeConfig, "configuration is required")
	}

	bc.config = cfg
	bc.ctx, bc.cancel = context.WithCancel(ctx)

	if cfg.Reliability.CircuitBreaker {
		bc.circuitBreaker = clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 3,
			Timeout:          30 * time.Second,
		})
	}

	if cfg.Reliability.RateLimitPerSec > 0 {
		bc.rateLimiter = clients.NewRateLimiter(
			cfg.Reliability.RateLimitPerSec,
			cfg.Reliability.RateLimitPerSec*2,
		)
	}

	bc.retryPolicy = NewRetryPolicy(
		cfg.Reliability.RetryAttempts,
		cfg.Reliability.RetryDelay.Std(),
	)

	bc.healthChecker = NewHealthChecker(bc.name)
	bc.metricsCollector = metrics.NewCollector(bc.name)

	bc.logger.Info("connector initialized",
		zap.String("type", string(bc.connectorType)),
		zap.String("version", bc.version))

	return nil
}

// Name returns the connector name
func (bc *BaseConnector) Name() string {
	return bc.name
}

// Type returns the connector type
func (bc *BaseConnector) Type() core.ConnectorType {
	return bc.connectorType
}

// Version returns the connector version
func (bc *BaseConnector) Version() string {
	return bc.version
}

// GetState returns a copy of the current state
func (bc *BaseConnector) GetState() core.State {
	bc.stateMutex.RLock()
	defer bc.stateMutex.RUnlock()

	stateCopy := make(core.State, len(bc.state))
	for k, v := range bc.state {
		stateCopy[k] = v
	}
	return stateCopy
}

// SetState replaces the connector state
func (bc *BaseConnector) SetState(state core.State) error {
	bc.stateMutex.Lock()
	defer bc.stateMutex.Unlock()

	bc.state = state
	bc.logger.Debug("state updated", zap.Any("state", state))
	return nil
}

// Health performs a health check
func (bc *BaseConnector) Health(ctx context.Context) error {
	if bc.closed {
		return errors.New(errors.ErrorTypeConnection, "connector is closed")
	}

	status := bc.healthChecker.GetStatus()
	if status.Status != "healthy" {
		return errors.Wrap(status.Error, errors.ErrorTypeHealth, "health check failed")
	}

	return nil
}

// Metrics returns current metrics
func (bc *BaseConnector) Metrics() map[string]interface{} {
	m := bc.metricsCollector.GetAll()

	m["name"] = bc.name
	m["type"] = bc.connectorType
	m["version"] = bc.version
	m["uptime"] = time.Since(bc.metricsCollector.StartTime()).Seconds()

	if bc.circuitBreaker != nil {
		m["circuit_breaker_state"] = bc.circuitBreaker.State().String()
		m["circuit_breaker_failure_rate"] = bc.circuitBreaker.FailureRate()
	}

	if bc.rateLimiter != nil {
		stats := bc.rateLimiter.GetStats()
		m["rate_limit"] = stats.Rate
		m["rate_limiter_allowed"] = stats.AllowedRequests
		m["rate_limiter_blocked"] = stats.BlockedRequests
	}

	if bc.healthChecker != nil {
		m["health_status"] = bc.healthChecker.GetStatus().Status
	}

	return m
}

// Close shuts down the connector
func (bc *BaseConnector) Close(ctx context.Context) error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()

	if bc.closed {
		return nil
	}

	if bc.cancel != nil {
		bc.cancel()
	}

	bc.closed = true
	bc.logger.Info("connector closed")

	return nil
}

// ExecuteWithRetry executes a function with automatic retry and exponential
// backoff; only retryable errors are retried.
func (bc *BaseConnector) ExecuteWithRetry(ctx context.Context, fn func() error) error {
	return bc.retryPolicy.ExecuteWithCondition(ctx, fn, errors.IsRetryable)
}

// ExecuteWithCircuitBreaker executes a function with circuit breaker
// protection; when no breaker is configured the function runs directly.
func (bc *BaseConnector) ExecuteWithCircuitBreaker(fn func() error) error {
	if bc.circuitBreaker == nil {
		return fn()
	}
	return bc.circuitBreaker.Execute(fn)
}

// RateLimit enforces the configured rate limit, blocking if necessary.
// Returns immediately if no rate limiter is configured.
func (bc *BaseConnector) RateLimit(ctx context.Context) error {
	if bc.rateLimiter == nil {
		return nil
	}
	return bc.rateLimiter.Wait(ctx)
}

// RecordMetric records a metric on the connector's collector
func (bc *BaseConnector) RecordMetric(name string, value interface{}) {
	bc.metricsCollector.Record(name, value)
}

// UpdateHealth updates the health status
func (bc *BaseConnector) UpdateHealth(healthy bool, details map[string]interface{}) {
	if bc.healthChecker != nil {
		bc.healthChecker.UpdateStatus(healthy, details)
	}
}

// IsHealthy returns true if the connector is healthy
func (bc *BaseConnector) IsHealthy() bool {
	if bc.closed {
		return false
	}
	if bc.healthChecker != nil {
		return bc.healthChecker.GetStatus().Status == "healthy"
	}
	return true
}

// GetLogger returns the connector logger
func (bc *BaseConnector) GetLogger() *zap.Logger {
	return bc.logger
}

// GetConfig returns the connector configuration
func (bc *BaseConnector) GetConfig() *config.BaseConfig {
	return bc.config
}

// GetContext returns the connector context
func (bc *BaseConnector) GetContext() context.Context {
	return bc.ctx
}

// GetMetricsCollector returns the metrics collector
func (bc *BaseConnector) GetMetricsCollector() *metrics.Collector {
	return bc.metricsCollector
}
