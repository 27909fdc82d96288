package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AngelCh415/bidopt/internal/models"
)

func baseRecord() models.CampaignRecord {
	return models.CampaignRecord{
		Status:      "active",
		Spend:       500,
		Preloads:    300,
		FillRate:    0.70,
		Installs:    0,
		Segment:     models.SegmentYellow,
		Progression: models.ProgressionFlat,
		KPIPrimary:  0.05,
	}
}

func TestShouldDiscard(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*models.CampaignRecord)
		want bool
	}{
		{"healthy row stays", func(r *models.CampaignRecord) {}, false},
		{"low spend", func(r *models.CampaignRecord) { r.Spend = 50 }, true},
		{"low preloads", func(r *models.CampaignRecord) { r.Preloads = 50 }, true},
		{"paused non-green", func(r *models.CampaignRecord) { r.Status = "PAUSED" }, true},
		{"paused green kept", func(r *models.CampaignRecord) {
			r.Status = "paused"
			r.Segment = models.SegmentGreen
		}, false},
		{"green installs override beats low spend", func(r *models.CampaignRecord) {
			r.Segment = models.SegmentGreen
			r.Installs = 5
			r.Spend = 50
			r.Preloads = 10
		}, false},
		// Scenario: spend=50, preloads=200, active, installs=0 is discarded
		// even when green, because the installs override needs 5+.
		{"green without installs still discarded on spend", func(r *models.CampaignRecord) {
			r.Segment = models.SegmentGreen
			r.Installs = 0
			r.Spend = 50
			r.Preloads = 200
		}, true},
		{"good progression override", func(r *models.CampaignRecord) {
			r.Progression = models.ProgressionGood
			r.FillRate = 0.40
			r.KPIPrimary = 0.01
			r.Spend = 100
			r.Preloads = 10 // would discard on preloads without the override
		}, false},
		{"good progression needs spend", func(r *models.CampaignRecord) {
			r.Progression = models.ProgressionGood
			r.FillRate = 0.40
			r.KPIPrimary = 0.01
			r.Spend = 99
		}, true},
		{"good progression needs low fill", func(r *models.CampaignRecord) {
			r.Progression = models.ProgressionGood
			r.FillRate = 0.90
			r.KPIPrimary = 0.01
			r.Preloads = 50
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := baseRecord()
			tt.mod(&r)
			assert.Equal(t, tt.want, ShouldDiscard(r))
		})
	}
}
