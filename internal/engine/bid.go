package engine

import (
	"fmt"

	"github.com/AngelCh415/bidopt/internal/models"
)

// The bid policy is an ordered list of guarded rules; the first rule whose
// guard matches settles the record, even when it settles it to "no action".
// Keeping the branches flat keeps the precedence auditable rule by rule.

type bidInput struct {
	rec      models.CampaignRecord
	cfg      models.RunConfig
	atFloor  bool
	pctAbove float64
	pctBelow float64
}

type bidDecision struct {
	action *string
	bid    *float64
}

type bidRule struct {
	name string
	eval func(in bidInput) (bidDecision, bool)
}

var bidPolicy = []bidRule{
	{"discarded", ruleDiscarded},
	{"at-floor", ruleAtFloor},
	{"good-progression", ruleGoodProgression},
	{"poor-progression", rulePoorProgression},
	{"green", ruleGreen},
	{"yellow", ruleYellow},
	{"orange", ruleOrange},
	{"red", ruleRed},
}

// OptimizeBid runs the policy for one record and returns the action label
// and recommended bid, both nil when the record is left alone.
func OptimizeBid(r models.CampaignRecord, cfg models.RunConfig) (*string, *float64) {
	score := cfg.Score(r.KPIPrimary, r.KPISecondary)
	target := cfg.Target()
	in := bidInput{
		rec:      r,
		cfg:      cfg,
		atFloor:  r.EffectiveBidFloor != nil && r.BidRate <= *r.EffectiveBidFloor,
		pctAbove: pctAbove(score, target),
		pctBelow: pctBelow(score, target),
	}
	for _, rule := range bidPolicy {
		if d, ok := rule.eval(in); ok {
			return d.action, d.bid
		}
	}
	return nil, nil
}

func ruleDiscarded(in bidInput) (bidDecision, bool) {
	if in.rec.Discard {
		return bidDecision{}, true
	}
	return bidDecision{}, false
}

// Once the bid sits at (or below) the floor there is nothing left to lower
// and raising is a separate conversation. No adjustment.
func ruleAtFloor(in bidInput) (bidDecision, bool) {
	if in.atFloor {
		return bidDecision{}, true
	}
	return bidDecision{}, false
}

// Good progression overrides the segment: low fill with an improving KPI
// gets a bump sized by how steep the improvement is.
func ruleGoodProgression(in bidInput) (bidDecision, bool) {
	r := in.rec
	if r.Progression != models.ProgressionGood || r.FillRate >= 0.60 || r.KPIPrimary <= 0 {
		return bidDecision{}, false
	}
	ratio := r.KPISecondary / r.KPIPrimary
	pct := 0.10
	if ratio >= 2.0 {
		pct = 0.15
	}
	candidate := round2(r.BidRate * (1 + pct))
	candidate, action := applyHighTier(r, candidate, pct)
	return floorClamped(r, candidate, action), true
}

func rulePoorProgression(in bidInput) (bidDecision, bool) {
	r := in.rec
	if r.Progression != models.ProgressionPoor {
		return bidDecision{}, false
	}
	if r.Spend < 100 {
		return bidDecision{}, true
	}
	// Only act when the later window itself is underperforming; a green
	// secondary KPI means wait and see.
	if ClassifySingle(r.KPISecondary, in.cfg.TargetSecondary) == models.SegmentGreen {
		return bidDecision{}, true
	}
	candidate := round2(r.BidRate * 0.90)
	return floorClamped(r, candidate, "Decrease bid 10%"), true
}

func ruleGreen(in bidInput) (bidDecision, bool) {
	r := in.rec
	if r.Segment != models.SegmentGreen {
		return bidDecision{}, false
	}
	if r.Installs < 5 {
		return bidDecision{}, true
	}

	if r.FillRate > 0.80 {
		// Saturated inventory: flat 15%, plain tier min, no override.
		candidate := round2(r.BidRate * 1.15)
		if r.HighTier != nil {
			candidate = round2(minF(candidate, *r.HighTier))
		}
		return floorClamped(r, candidate, "Increase bid 15%"), true
	}

	pct := 0.15
	if r.FillRate <= 0.60 {
		switch {
		case in.pctAbove <= 0.25:
			pct = 0.10
		case in.pctAbove <= 0.50:
			pct = 0.20
		default:
			pct = 0.30
		}
	}
	candidate := round2(r.BidRate * (1 + pct))
	candidate, action := applyHighTier(r, candidate, pct)
	return floorClamped(r, candidate, action), true
}

func ruleYellow(in bidInput) (bidDecision, bool) {
	if in.rec.Segment != models.SegmentYellow {
		return bidDecision{}, false
	}
	pct := 0.15
	if in.pctBelow <= 0.25 {
		pct = 0.10
	}
	return decrease(in.rec, pct), true
}

func ruleOrange(in bidInput) (bidDecision, bool) {
	if in.rec.Segment != models.SegmentOrange {
		return bidDecision{}, false
	}
	pct := 0.25
	if in.pctBelow <= 0.75 {
		pct = 0.20
	}
	return decrease(in.rec, pct), true
}

// Red is the fallthrough: every record still unmatched lands here.
func ruleRed(in bidInput) (bidDecision, bool) {
	return decrease(in.rec, 0.30), true
}

func decrease(r models.CampaignRecord, pct float64) bidDecision {
	candidate := round2(r.BidRate * (1 - pct))
	return floorClamped(r, candidate, fmt.Sprintf("Decrease bid %d%%", int(pct*100)))
}

// applyHighTier caps an increase at the highTier ceiling. A bid already over
// tier with fill under 70% overrides to a flat 15% bump instead; otherwise
// the label keeps the nominal (pre-cap) percentage.
func applyHighTier(r models.CampaignRecord, candidate, pct float64) (float64, string) {
	if r.HighTier == nil {
		return round2(candidate), increaseLabel(pct)
	}
	if r.BidRate > *r.HighTier && r.FillRate < 0.70 {
		return round2(r.BidRate * 1.15), "Increase bid 15%"
	}
	return round2(minF(candidate, *r.HighTier)), increaseLabel(pct)
}

// floorClamped finishes a decision: a candidate below the floor is replaced
// by the floor itself and the label becomes "Meet bid floor", superseding
// whatever the branch produced.
func floorClamped(r models.CampaignRecord, candidate float64, action string) bidDecision {
	bid := round2(candidate)
	if r.EffectiveBidFloor != nil && bid < *r.EffectiveBidFloor {
		bid = round2(*r.EffectiveBidFloor)
		action = "Meet bid floor"
	}
	return bidDecision{action: &action, bid: &bid}
}

func increaseLabel(pct float64) string {
	return fmt.Sprintf("Increase bid %d%%", int(pct*100))
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// round2 rounds half-up to cents after every bid transformation, so chained
// steps (tier cap, then floor clamp) round the same way the rates are quoted.
func round2(f float64) float64 { return float64(int64(f*100+0.5)) / 100 }
