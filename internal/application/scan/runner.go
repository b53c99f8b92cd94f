package scan

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	model "github.com/khanhnv2901/walletscan/internal/domain/scan"
)

// TargetScanner scans a single raw target.
type TargetScanner interface {
	Run(ctx context.Context, raw string) (*model.Result, error)
}

// Outcome is the result of scanning one target in a batch.
type Outcome struct {
	Target   string        `json:"target"`
	Result   *model.Result `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration_ns"`
}

// AuditFunc is a callback invoked as each target finishes
type AuditFunc func(outcome Outcome)

// Runner orchestrates scans of several targets with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent scans
	RateLimit   int           // Scans started per second (0 = unlimited)
	Timeout     time.Duration // Overall deadline per target (0 = per-call timeouts only)
}

// Run scans every target using a worker pool. Outcomes are returned in the
// order of targets regardless of completion order.
func (r *Runner) Run(ctx context.Context, targets []string, scanner TargetScanner, auditFn AuditFunc) []Outcome {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var limiter *rate.Limiter
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	// Worker pool
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	outcomes := make([]Outcome, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()

			// Acquire semaphore
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := Outcome{Target: t}

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					outcome.Err = err
					outcome.Error = err.Error()
					outcomes[i] = outcome
					if auditFn != nil {
						auditFn(outcome)
					}
					return
				}
			}

			start := time.Now()

			scanCtx := ctx
			if r.Timeout > 0 {
				var cancel context.CancelFunc
				scanCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				defer cancel()
			}

			outcome.Result, outcome.Err = scanner.Run(scanCtx, t)
			if outcome.Err != nil {
				outcome.Error = outcome.Err.Error()
			}
			outcome.Duration = time.Since(start)

			if auditFn != nil {
				auditFn(outcome)
			}

			// Each worker owns its slot
			outcomes[i] = outcome
		}(i, target)
	}

	wg.Wait()
	return outcomes
}
