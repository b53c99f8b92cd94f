package errors

import "errors"

// Domain errors
var (
	// Target errors
	ErrInvalidTarget  = errors.New("invalid URL or domain format")
	ErrTargetInactive = errors.New("domain is inactive")
	ErrDNSResolution  = errors.New("dns resolution failed")
	ErrProbeFailed    = errors.New("http probe failed")

	// Fetch errors
	ErrRootFetch   = errors.New("could not fetch website content")
	ErrScriptFetch = errors.New("could not fetch external script")

	// Detection errors
	ErrEmptyPatternSet   = errors.New("pattern set cannot be empty")
	ErrInvalidThresholds = errors.New("scam threshold must be greater than suspicious threshold")

	// Job errors
	ErrJobNotFound = errors.New("job not found")

	// Catch-all for failures that escaped a scan stage
	ErrUnexpected = errors.New("unexpected scan error")
)
