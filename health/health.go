// Package health reports dependency status with a short-lived cache so the
// probe endpoint cannot hammer MongoDB and Redis.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// CheckFunc returns nil when the dependency is reachable.
type CheckFunc func(ctx context.Context) error

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

type Report struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	CheckedAt  time.Time         `json:"checkedAt"`
	Cached     bool              `json:"cached"`
}

type Checker struct {
	checks map[string]CheckFunc
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	last      *Report
	checkedAt time.Time
}

func NewChecker(ttl time.Duration, checks map[string]CheckFunc) *Checker {
	return &Checker{checks: checks, ttl: ttl, now: time.Now}
}

// Check returns the cached report while it is younger than the TTL and
// probes every dependency otherwise.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.last != nil && now.Sub(c.checkedAt) < c.ttl {
		out := *c.last
		out.Cached = true
		return out
	}

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := Report{Status: StatusOK, Components: make(map[string]string, len(names)), CheckedAt: now}
	failed := 0
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.checks[name](probeCtx)
		cancel()
		if err != nil {
			report.Components[name] = StatusDown
			failed++
			continue
		}
		report.Components[name] = StatusOK
	}
	switch {
	case failed == 0:
	case failed == len(names):
		report.Status = StatusDown
	default:
		report.Status = StatusDegraded
	}

	c.last = &report
	c.checkedAt = now
	return report
}
