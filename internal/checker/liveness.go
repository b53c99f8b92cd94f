package checker

import (
	"context"
	"fmt"
	"net/http"

	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

// Prober issues the lightweight liveness request.
type Prober interface {
	Head(ctx context.Context, target string) (int, error)
}

// LivenessChecker confirms a target resolves in DNS and answers an HTTP probe
// before any content is fetched.
type LivenessChecker struct {
	DNS    *DNSChecker
	Prober Prober
}

// Check returns nil when the target is live. Any failure is reported as
// ErrTargetInactive wrapping the stage that failed.
func (l *LivenessChecker) Check(ctx context.Context, target string) error {
	if _, err := l.DNS.Resolve(ctx, target); err != nil {
		return fmt.Errorf("%w: %w", scanerrors.ErrTargetInactive, err)
	}

	status, err := l.Prober.Head(ctx, target)
	if err != nil {
		return fmt.Errorf("%w: %w: %v", scanerrors.ErrTargetInactive, scanerrors.ErrProbeFailed, err)
	}
	if !IsLiveStatus(status) {
		return fmt.Errorf("%w: %w: status %d", scanerrors.ErrTargetInactive, scanerrors.ErrProbeFailed, status)
	}
	return nil
}

// IsLiveStatus reports whether a probe status counts as reachable.
func IsLiveStatus(status int) bool {
	return status >= http.StatusOK && status < http.StatusBadRequest
}

// Name returns the name of this checker
func (l *LivenessChecker) Name() string {
	return "check liveness"
}
