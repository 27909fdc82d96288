package models

import "fmt"

// Segment is the performance tier of a record vs. the weighted KPI target.
type Segment string

const (
	SegmentGreen  Segment = "green"
	SegmentYellow Segment = "yellow"
	SegmentOrange Segment = "orange"
	SegmentRed    Segment = "red"
)

// Progression compares the later KPI window against the earlier one.
type Progression string

const (
	ProgressionGood Progression = "good"
	ProgressionPoor Progression = "poor"
	ProgressionFlat Progression = "flat"
)

// CampaignRecord is one internal line-item enriched with advertiser KPIs.
// Pointer fields are nullable in the source data and stay null through the
// whole run; KPIPrimary/KPISecondary are guaranteed non-null because rows
// missing them are dropped before classification.
type CampaignRecord struct {
	Key          string
	CampaignName string
	SiteID       string
	SiteName     string
	Status       string

	Spend             float64
	Preloads          int
	MaxPreloads       float64
	FillRate          float64
	Installs          int
	EffectiveBidFloor *float64
	BidRate           float64
	LowTier           *float64
	MidTier           *float64
	HighTier          *float64

	KPIPrimary   float64
	KPISecondary float64

	// Extra carries pass-through internal columns (cvr, ecpp, ...) raw as
	// read, for the report writer.
	Extra map[string]string

	Segment     Segment
	Progression Progression
	Discard     bool
	DailyCap    *string
	Action      *string
	Recommended *float64
}

// RunConfig is the caller-supplied knob set, immutable for the run.
type RunConfig struct {
	PrimaryColumn   int // 0-based index into the advertiser table
	SecondaryColumn int
	TargetPrimary   float64 // decimal fraction, e.g. 0.10 for 10%
	TargetSecondary float64
	WeightPrimary   float64
	WeightSecondary float64
}

// ConfigurationError aborts a run before any row is processed.
type ConfigurationError struct{ Reason string }

func (e *ConfigurationError) Error() string { return "configuration: " + e.Reason }

const weightTolerance = 1e-6

func (c RunConfig) Validate() error {
	if c.PrimaryColumn < 0 || c.SecondaryColumn < 0 {
		return &ConfigurationError{Reason: "KPI column indexes must be >= 0"}
	}
	if c.TargetPrimary <= 0 || c.TargetSecondary <= 0 {
		return &ConfigurationError{Reason: "KPI targets must be positive"}
	}
	if d := c.WeightPrimary + c.WeightSecondary - 1.0; d > weightTolerance || d < -weightTolerance {
		return &ConfigurationError{Reason: fmt.Sprintf("weights must sum to 1.0, got %.4f", c.WeightPrimary+c.WeightSecondary)}
	}
	return nil
}

// Score is the weighted KPI score of a record.
func (c RunConfig) Score(primary, secondary float64) float64 {
	return c.WeightPrimary*primary + c.WeightSecondary*secondary
}

// Target is the weighted KPI target the score is compared against.
func (c RunConfig) Target() float64 {
	return c.WeightPrimary*c.TargetPrimary + c.WeightSecondary*c.TargetSecondary
}

// RunSummary is the aggregate outcome of one run.
type RunSummary struct {
	TotalRows        int            `json:"total_rows"`
	Excluded         int            `json:"excluded"`
	DroppedNulls     int            `json:"dropped_nulls"`
	MalformedKeys    int            `json:"malformed_keys"`
	Actioned         int            `json:"actioned"`
	Disregarded      int            `json:"disregarded"`
	DailyCap         int            `json:"daily_cap"`
	ActionBreakdown  map[string]int `json:"action_breakdown"`
	SegmentBreakdown map[string]int `json:"segment_breakdown"`
	PrimaryLabel     string         `json:"main_col"`
	SecondaryLabel   string         `json:"sec_col"`
}

// Report is the row-per-record artifact handed to the spreadsheet writer.
// Columns is already filtered to what the source tables actually carried.
type Report struct {
	Columns        []string
	PrimaryLabel   string
	SecondaryLabel string
	Records        []CampaignRecord
}
