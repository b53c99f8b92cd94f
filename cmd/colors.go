package cmd

import (
	"github.com/fatih/color"

	model "github.com/khanhnv2901/walletscan/internal/domain/scan"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBadge   = map[model.Tier]func(a ...interface{}) string{
		model.TierSafe:       color.New(color.FgBlack, color.BgGreen).SprintFunc(),
		model.TierSuspicious: color.New(color.FgBlack, color.BgYellow).SprintFunc(),
		model.TierScam:       color.New(color.FgWhite, color.BgRed, color.Bold).SprintFunc(),
	}
)

// formatTierWithColor renders a tier as a coloured " TIER " badge.
func formatTierWithColor(tier model.Tier) string {
	badge := " " + string(tier) + " "
	if paint, ok := colorBadge[tier]; ok {
		return paint(badge)
	}
	return badge
}

// formatLabelWithColor colours a risk label to match its tier.
func formatLabelWithColor(tier model.Tier, label string) string {
	switch tier {
	case model.TierSafe:
		return colorSuccess(label)
	case model.TierSuspicious:
		return colorWarn(label)
	case model.TierScam:
		return colorError(label)
	default:
		return label
	}
}
