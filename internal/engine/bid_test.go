package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/bidopt/internal/models"
)

// assertDecision checks one OptimizeBid outcome against the expected label
// and bid; empty action means "no action expected".
func assertDecision(t *testing.T, r models.CampaignRecord, action string, bid float64) {
	t.Helper()
	gotAction, gotBid := OptimizeBid(r, testCfg)
	if action == "" {
		assert.Nil(t, gotAction)
		assert.Nil(t, gotBid)
		return
	}
	require.NotNil(t, gotAction)
	require.NotNil(t, gotBid)
	assert.Equal(t, action, *gotAction)
	assert.InDelta(t, bid, *gotBid, 1e-9)
}

func TestOptimizeBidDiscardAndFloorShortCircuit(t *testing.T) {
	r := models.CampaignRecord{
		Segment: models.SegmentGreen, Installs: 10, BidRate: 1.00,
		KPIPrimary: 0.2, KPISecondary: 0.1, Discard: true,
	}
	assertDecision(t, r, "", 0)

	r.Discard = false
	r.EffectiveBidFloor = fptr(1.00) // bid == floor
	assertDecision(t, r, "", 0)
}

func TestOptimizeBidGoodProgression(t *testing.T) {
	base := models.CampaignRecord{
		Progression: models.ProgressionGood,
		Segment:     models.SegmentYellow,
		FillRate:    0.30,
		BidRate:     1.00,
	}

	t.Run("steep improvement gets 15", func(t *testing.T) {
		r := base
		r.KPIPrimary, r.KPISecondary = 0.02, 0.05 // ratio 2.5
		assertDecision(t, r, "Increase bid 15%", 1.15)
	})

	t.Run("mild improvement gets 10", func(t *testing.T) {
		r := base
		r.KPIPrimary, r.KPISecondary = 0.02, 0.03
		assertDecision(t, r, "Increase bid 10%", 1.10)
	})

	t.Run("high fill falls through to segment", func(t *testing.T) {
		r := base
		r.FillRate = 0.70
		r.KPIPrimary, r.KPISecondary = 0.02, 0.05 // yellow: score 0.026
		assertDecision(t, r, "Decrease bid 15%", 0.85)
	})

	t.Run("tier caps the bump", func(t *testing.T) {
		r := base
		r.KPIPrimary, r.KPISecondary = 0.02, 0.05
		r.HighTier = fptr(1.05)
		assertDecision(t, r, "Increase bid 15%", 1.05)
	})
}

func TestOptimizeBidPoorProgression(t *testing.T) {
	base := models.CampaignRecord{
		Progression: models.ProgressionPoor,
		Segment:     models.SegmentGreen, // progression outranks segment
		Spend:       500,
		BidRate:     1.00,
	}

	t.Run("low spend waits", func(t *testing.T) {
		r := base
		r.Spend = 50
		r.KPIPrimary, r.KPISecondary = 0.05, 0.02
		assertDecision(t, r, "", 0)
	})

	t.Run("declining secondary decreases 10", func(t *testing.T) {
		r := base
		r.KPIPrimary, r.KPISecondary = 0.05, 0.02 // 0.02 vs target 0.05: orange
		assertDecision(t, r, "Decrease bid 10%", 0.90)
	})

	t.Run("green secondary waits and sees", func(t *testing.T) {
		r := base
		r.KPIPrimary, r.KPISecondary = 0.08, 0.06 // 0.06 >= 0.05 target
		assertDecision(t, r, "", 0)
	})
}

func TestOptimizeBidGreen(t *testing.T) {
	base := models.CampaignRecord{
		Segment:     models.SegmentGreen,
		Progression: models.ProgressionFlat,
		Installs:    10,
		BidRate:     1.00,
	}

	t.Run("needs installs", func(t *testing.T) {
		r := base
		r.Installs = 4
		r.KPIPrimary, r.KPISecondary = 0.12, 0.06
		assertDecision(t, r, "", 0)
	})

	// Scenario: installs=10, fill=0.85, bid=1.00, highTier=1.10: the flat
	// 15% bump (1.15) is capped at the tier but keeps its nominal label.
	t.Run("high fill flat 15 capped at tier", func(t *testing.T) {
		r := base
		r.FillRate = 0.85
		r.HighTier = fptr(1.10)
		r.KPIPrimary, r.KPISecondary = 0.12, 0.06
		assertDecision(t, r, "Increase bid 15%", 1.10)
	})

	t.Run("mid fill flat 15", func(t *testing.T) {
		r := base
		r.FillRate = 0.70
		r.KPIPrimary, r.KPISecondary = 0.12, 0.06
		assertDecision(t, r, "Increase bid 15%", 1.15)
	})

	t.Run("low fill proportional 10", func(t *testing.T) {
		r := base
		r.FillRate = 0.50
		r.KPIPrimary, r.KPISecondary = 0.12, 0.06 // score 0.108, pctAbove 0.2
		assertDecision(t, r, "Increase bid 10%", 1.10)
	})

	t.Run("low fill proportional 20", func(t *testing.T) {
		r := base
		r.FillRate = 0.50
		r.KPIPrimary, r.KPISecondary = 0.135, 0.045 // score 0.117, pctAbove 0.3
		assertDecision(t, r, "Increase bid 20%", 1.20)
	})

	t.Run("low fill proportional 30", func(t *testing.T) {
		r := base
		r.FillRate = 0.50
		r.KPIPrimary, r.KPISecondary = 0.20, 0.10 // score 0.18, pctAbove 1.0
		assertDecision(t, r, "Increase bid 30%", 1.30)
	})

	// A bid already over tier with starved fill is allowed a flat 15% bump
	// regardless of the branch's computed percentage.
	t.Run("over tier with low fill overrides", func(t *testing.T) {
		r := base
		r.FillRate = 0.50
		r.BidRate = 1.50
		r.HighTier = fptr(1.20)
		r.KPIPrimary, r.KPISecondary = 0.20, 0.10
		assertDecision(t, r, "Increase bid 15%", 1.73) // round2(1.50*1.15)
	})
}

func TestOptimizeBidDecreases(t *testing.T) {
	base := models.CampaignRecord{
		Progression: models.ProgressionFlat,
		BidRate:     1.00,
	}

	t.Run("yellow shallow 10", func(t *testing.T) {
		r := base
		r.Segment = models.SegmentYellow
		r.KPIPrimary, r.KPISecondary = 0.08, 0.04 // score 0.072, pctBelow 0.2
		assertDecision(t, r, "Decrease bid 10%", 0.90)
	})

	t.Run("yellow deep 15", func(t *testing.T) {
		r := base
		r.Segment = models.SegmentYellow
		r.KPIPrimary, r.KPISecondary = 0.06, 0.03 // score 0.054, pctBelow 0.4
		assertDecision(t, r, "Decrease bid 15%", 0.85)
	})

	t.Run("orange shallow 20", func(t *testing.T) {
		r := base
		r.Segment = models.SegmentOrange
		r.KPIPrimary, r.KPISecondary = 0.04, 0.02 // score 0.036, pctBelow 0.6
		assertDecision(t, r, "Decrease bid 20%", 0.80)
	})

	t.Run("orange deep 25", func(t *testing.T) {
		r := base
		r.Segment = models.SegmentOrange
		r.KPIPrimary, r.KPISecondary = 0.02, 0.01 // score 0.018, pctBelow 0.8
		assertDecision(t, r, "Decrease bid 25%", 0.75)
	})

	t.Run("red flat 30", func(t *testing.T) {
		r := base
		r.Segment = models.SegmentRed
		assertDecision(t, r, "Decrease bid 30%", 0.70)
	})
}

func TestOptimizeBidFloorClamp(t *testing.T) {
	r := models.CampaignRecord{
		Segment:           models.SegmentYellow,
		Progression:       models.ProgressionFlat,
		BidRate:           0.95,
		EffectiveBidFloor: fptr(0.90),
		KPIPrimary:        0.08,
		KPISecondary:      0.04, // 10% decrease would land at 0.86
	}
	gotAction, gotBid := OptimizeBid(r, testCfg)
	require.NotNil(t, gotAction)
	require.NotNil(t, gotBid)
	assert.Equal(t, "Meet bid floor", *gotAction)
	assert.InDelta(t, 0.90, *gotBid, 1e-9)
	assert.GreaterOrEqual(t, *gotBid, *r.EffectiveBidFloor)
}

func TestOptimizeBidIsIdempotent(t *testing.T) {
	r := models.CampaignRecord{
		Segment:      models.SegmentOrange,
		Progression:  models.ProgressionFlat,
		BidRate:      1.00,
		KPIPrimary:   0.04,
		KPISecondary: 0.02,
	}
	a1, b1 := OptimizeBid(r, testCfg)
	a2, b2 := OptimizeBid(r, testCfg)
	require.NotNil(t, a1)
	assert.Equal(t, *a1, *a2)
	assert.Equal(t, *b1, *b2)
}
