package detection

import (
	"fmt"

	"github.com/khanhnv2901/walletscan/internal/domain/scan"
	consts "github.com/khanhnv2901/walletscan/internal/shared/constants"
	scanerrors "github.com/khanhnv2901/walletscan/internal/shared/errors"
)

const (
	labelHigh   = "High Risk"
	labelMedium = "Medium Risk"
	labelLow    = "Low Risk"

	summaryScam       = "High Risk! This website contains wallet-draining scripts!"
	summarySuspicious = "Medium Risk! Suspicious scripts detected."
	summarySafe       = "Website appears legit (no dangerous backend scripts detected)"
)

// Classifier maps a match count onto a risk tier.
type Classifier struct {
	SuspiciousThreshold int
	ScamThreshold       int
}

// NewClassifier validates the thresholds. Zero values select the defaults.
func NewClassifier(suspicious, scam int) (*Classifier, error) {
	if suspicious <= 0 {
		suspicious = consts.DefaultSuspiciousThreshold
	}
	if scam <= 0 {
		scam = consts.DefaultScamThreshold
	}
	if scam <= suspicious {
		return nil, fmt.Errorf("%w: suspicious=%d scam=%d", scanerrors.ErrInvalidThresholds, suspicious, scam)
	}
	return &Classifier{SuspiciousThreshold: suspicious, ScamThreshold: scam}, nil
}

// DefaultClassifier uses thresholds 5 and 10.
func DefaultClassifier() *Classifier {
	return &Classifier{
		SuspiciousThreshold: consts.DefaultSuspiciousThreshold,
		ScamThreshold:       consts.DefaultScamThreshold,
	}
}

// Assess scores matchCount and classifies it.
func (c *Classifier) Assess(matchCount int) scan.Assessment {
	if matchCount < 0 {
		matchCount = 0
	}
	score := Score(matchCount)

	assessment := scan.Assessment{
		Score:      score,
		Percentage: Percentage(score),
	}

	switch {
	case score >= c.ScamThreshold:
		assessment.Tier = scan.TierScam
		assessment.Label = labelHigh
		assessment.Summary = summaryScam
	case score >= c.SuspiciousThreshold:
		assessment.Tier = scan.TierSuspicious
		assessment.Label = labelMedium
		assessment.Summary = summarySuspicious
	default:
		assessment.Tier = scan.TierSafe
		assessment.Label = labelLow
		assessment.Summary = summarySafe
	}

	return assessment
}

// Score is the weighted match count.
func Score(matchCount int) int {
	return consts.ScorePerMatch * matchCount
}

// Percentage converts a score to the 0-100 display value.
func Percentage(score int) int {
	if score < 0 {
		score = 0
	}
	if score > consts.PercentageScoreCap {
		score = consts.PercentageScoreCap
	}
	return score * consts.PercentagePerPoint
}
