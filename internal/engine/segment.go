package engine

import "github.com/AngelCh415/bidopt/internal/models"

// Classify maps the two KPI values onto a segment using the weighted score
// vs. the weighted target. Records with both KPIs at zero are forced red
// before the proportional bands (whale protection).
func Classify(primary, secondary float64, cfg models.RunConfig) models.Segment {
	score := cfg.Score(primary, secondary)
	target := cfg.Target()
	if score >= target {
		return models.SegmentGreen
	}
	if primary == 0 && secondary == 0 {
		return models.SegmentRed
	}
	below := pctBelow(score, target)
	if below <= 0.50 {
		return models.SegmentYellow
	}
	if below < 1.0 {
		return models.SegmentOrange
	}
	return models.SegmentRed
}

// ClassifySingle bands one KPI against its own target. Used by the poor
// progression branch of the bid policy.
func ClassifySingle(val, target float64) models.Segment {
	if val >= target {
		return models.SegmentGreen
	}
	if val == 0 {
		return models.SegmentRed
	}
	below := pctBelow(val, target)
	if below <= 0.50 {
		return models.SegmentYellow
	}
	if below < 1.0 {
		return models.SegmentOrange
	}
	return models.SegmentRed
}

// Trend classifies progression between the earlier (primary) and later
// (secondary) KPI windows. primary == 0 means flat: small-sample campaigns
// must not emit a false "poor" signal.
func Trend(primary, secondary float64) models.Progression {
	if primary == 0 {
		return models.ProgressionFlat
	}
	if secondary > primary {
		return models.ProgressionGood
	}
	if secondary < primary {
		return models.ProgressionPoor
	}
	return models.ProgressionFlat
}

// The zero-target guards below are unreachable after RunConfig.Validate, but
// a violated invariant degrades to 0 instead of dividing by zero.

func pctAbove(score, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return (score - target) / target
}

func pctBelow(score, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return (target - score) / target
}
