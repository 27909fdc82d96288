package engine

import (
	"strings"

	"github.com/AngelCh415/bidopt/internal/models"
)

// ShouldDiscard decides whether a record is excluded from bid action despite
// its segment. Rules run in order, first hit wins:
//
//  1. green with 5+ installs is always kept
//  2. good progression with low fill, live primary KPI and real spend is kept
//  3. spend under 100 goes
//  4. preloads under 100 go
//  5. paused and not green goes
func ShouldDiscard(r models.CampaignRecord) bool {
	isGreen := r.Segment == models.SegmentGreen

	if isGreen && r.Installs >= 5 {
		return false
	}
	if r.Progression == models.ProgressionGood && r.FillRate < 0.60 && r.KPIPrimary > 0 && r.Spend >= 100 {
		return false
	}
	if r.Spend < 100 {
		return true
	}
	if r.Preloads < 100 {
		return true
	}
	if strings.EqualFold(r.Status, "paused") && !isGreen {
		return true
	}
	return false
}
