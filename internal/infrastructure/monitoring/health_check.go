package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	checks []HealthCheck
	clock  clockwork.Clock
	mu     sync.RWMutex
}

type HealthCheck struct {
	Name    string
	Check   func(ctx context.Context) error
	Timeout time.Duration
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker(clock clockwork.Clock) *HealthChecker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HealthChecker{clock: clock}
}

func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, HealthCheck{
		Name:    name,
		Check:   check,
		Timeout: timeout,
	})
}

// AddPingCheck registers p under name. A nil pinger is skipped.
func (h *HealthChecker) AddPingCheck(name string, p Pinger, timeout time.Duration) {
	if p == nil {
		return
	}
	h.AddCheck(name, p.Ping, timeout)
}

// AddFreshnessCheck fails when last reports a time older than maxAge. A
// zero time means nothing has happened yet and passes.
func (h *HealthChecker) AddFreshnessCheck(name string, last func() time.Time, maxAge time.Duration) {
	h.AddCheck(name, func(ctx context.Context) error {
		t := last()
		if t.IsZero() {
			return nil
		}
		if age := h.clock.Since(t); age > maxAge {
			return &staleError{name: name, age: age}
		}
		return nil
	}, time.Second)
}

func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: h.clock.Now(),
		Checks:    make(map[string]string, len(checks)),
	}
	for _, check := range checks {
		if err := h.run(ctx, check); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[check.Name] = err.Error()
			continue
		}
		status.Checks[check.Name] = StatusHealthy
	}
	return status
}

func (h *HealthChecker) run(ctx context.Context, check HealthCheck) error {
	if check.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, check.Timeout)
		defer cancel()
	}
	return check.Check(ctx)
}

// IsReady reports whether every check passes.
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == StatusHealthy
}

type staleError struct {
	name string
	age  time.Duration
}

func (e *staleError) Error() string {
	return e.name + " is stale: last success " + e.age.Round(time.Second).String() + " ago"
}
