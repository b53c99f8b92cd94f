package cmd

import (
	"errors"
	"fmt"

	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

// BatchError reports that some targets in a multi-target scan failed.
type BatchError struct {
	Failed int
	Total  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d scans failed", e.Failed, e.Total)
}

// userMessage turns an error into the line shown to the operator.
func userMessage(err error) string {
	var batchErr *BatchError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &batchErr):
		return batchErr.Error()
	case errors.Is(err, scanerrors.ErrInvalidTarget):
		return "Invalid URL or domain format"
	case errors.Is(err, scanerrors.ErrTargetInactive):
		return "Domain is inactive"
	case errors.Is(err, scanerrors.ErrUnexpected):
		return "An unexpected error occurred while scanning"
	default:
		return err.Error()
	}
}
