package constants

import "time"

const (
	// DefaultRequestTimeout bounds every outbound call (DNS, HEAD, GET).
	DefaultRequestTimeout = 5 * time.Second
	// DefaultScriptConcurrency caps in-flight external script downloads.
	DefaultScriptConcurrency = 10
	// DefaultScheme is prepended to bare domains.
	DefaultScheme = "https"
	// DefaultUserAgent identifies outbound requests.
	DefaultUserAgent = "walletscan/1.0"
)

const (
	// ScorePerMatch is the weight of a single pattern match.
	ScorePerMatch = 5
	// DefaultSuspiciousThreshold is the lowest score classified as suspicious.
	DefaultSuspiciousThreshold = 5
	// DefaultScamThreshold is the lowest score classified as a scam.
	DefaultScamThreshold = 10
	// PercentageScoreCap is the score at which the display percentage saturates.
	PercentageScoreCap = 20
	// PercentagePerPoint converts a capped score into a 0-100 percentage.
	PercentagePerPoint = 5
)

const (
	// MaxDocumentBytes caps how much of a root document or script body is read.
	MaxDocumentBytes = 5 * 1024 * 1024
)
