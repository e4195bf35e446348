// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck is one named probe. A failing critical check makes the whole
// service unhealthy; any other failure only degrades it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// CheckResult is the outcome of one probe
type CheckResult struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Error    string        `json:"error,omitempty"`
	Critical bool          `json:"critical"`
	Duration time.Duration `json:"duration"`
}

// SystemHealth represents overall system health information
type SystemHealth struct {
	Status     HealthStatus  `json:"status"`
	Timestamp  time.Time     `json:"timestamp"`
	Version    string        `json:"version,omitempty"`
	Uptime     time.Duration `json:"uptime"`
	Goroutines int           `json:"goroutines"`
	Checks     []CheckResult `json:"checks,omitempty"`
}

// HealthManager runs the registered checks on demand
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
	version string
	started time.Time
}

// NewHealthManager creates a manager. Each check is bounded by timeout.
func NewHealthManager(version string, timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthManager{
		checks:  make(map[string]HealthCheck),
		timeout: timeout,
		version: version,
		started: time.Now(),
	}
}

// RegisterCheck adds or replaces a check
func (hm *HealthManager) RegisterCheck(check HealthCheck) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[check.Name] = check
}

// Check runs every check concurrently and summarizes them
func (hm *HealthManager) Check(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]HealthCheck, 0, len(hm.checks))
	for _, c := range hm.checks {
		checks = append(checks, c)
	}
	hm.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c HealthCheck) {
			defer wg.Done()
			results[i] = hm.run(ctx, c)
		}(i, c)
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := HealthStatusHealthy
	for _, r := range results {
		if r.Status == HealthStatusHealthy {
			continue
		}
		if r.Critical {
			status = HealthStatusUnhealthy
		} else if status == HealthStatusHealthy {
			status = HealthStatusDegraded
		}
	}

	return SystemHealth{
		Status:     status,
		Timestamp:  time.Now(),
		Version:    hm.version,
		Uptime:     time.Since(hm.started),
		Goroutines: runtime.NumGoroutine(),
		Checks:     results,
	}
}

func (hm *HealthManager) run(ctx context.Context, c HealthCheck) (result CheckResult) {
	start := time.Now()
	result = CheckResult{Name: c.Name, Critical: c.Critical, Status: HealthStatusHealthy}
	defer func() {
		if r := recover(); r != nil {
			result.Status = HealthStatusUnhealthy
			result.Error = fmt.Sprintf("check panicked: %v", r)
		}
		result.Duration = time.Since(start)
	}()

	checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()
	if err := c.Check(checkCtx); err != nil {
		result.Status = HealthStatusUnhealthy
		result.Error = err.Error()
	}
	return result
}

// HealthHandler serves the health report; unhealthy answers 503
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	}
}

// GoroutineHealthCheck fails when more than max goroutines are running
func GoroutineHealthCheck(max int) HealthCheck {
	return HealthCheck{
		Name: "goroutines",
		Check: func(context.Context) error {
			if n := runtime.NumGoroutine(); n > max {
				return fmt.Errorf("%d goroutines running, limit %d", n, max)
			}
			return nil
		},
	}
}

// StoreHealthCheck probes a store by reading a key
func StoreHealthCheck(get func(ctx context.Context) error) HealthCheck {
	return HealthCheck{
		Name:     "storage",
		Critical: true,
		Check:    get,
	}
}
