package engine

import (
	"fmt"

	"github.com/AngelCh415/bidopt/internal/models"
)

const dailyCapSpendGate = 1000.0

// DailyCapSuggestion flags high-spend records independently of the bid
// decision: zero performers get a pause suggestion, floor-bound performers
// get a spend cap at half the daily run rate.
func DailyCapSuggestion(r models.CampaignRecord) *string {
	if r.Spend <= dailyCapSpendGate {
		return nil
	}

	atFloor := r.EffectiveBidFloor != nil && r.BidRate <= *r.EffectiveBidFloor
	hasPerf := r.KPIPrimary > 0 || r.KPISecondary > 0

	if r.KPIPrimary == 0 && r.KPISecondary == 0 {
		s := "Suggest pause"
		return &s
	}
	if atFloor && hasPerf {
		daily := round2(r.Spend / 30 * 0.50)
		s := fmt.Sprintf("Add daily cap $%.2f", daily)
		return &s
	}
	return nil
}
