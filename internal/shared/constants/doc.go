// Package constants centralizes the scanner's fixed defaults.
//
// Timeouts, the script fan-out ceiling and the scoring weights live here so the
// checker, detection and CLI layers agree on them without import cycles.
package constants
