package engine

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/AngelCh415/bidopt/internal/ingest"
	"github.com/AngelCh415/bidopt/internal/metrics"
	"github.com/AngelCh415/bidopt/internal/models"
)

type Engine struct {
	log     *slog.Logger
	m       *metrics.Collector
	exclude *regexp.Regexp
}

// New builds an Engine. pattern overrides the built-in excluded-site regex
// when non-empty; m may be nil when no metrics are wanted (CLI runs).
func New(log *slog.Logger, m *metrics.Collector, pattern string) (*Engine, error) {
	if pattern == "" {
		pattern = DefaultExcludePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Engine{log: log, m: m, exclude: re}, nil
}

// Run executes the full pipeline for one pair of tables: exclude site
// types, merge advertiser KPIs, drop incomplete rows, classify, apply the
// discard policy, the daily-cap advisor and the bid policy, then summarize.
// Each record is decided independently of the others.
func (e *Engine) Run(ctx context.Context, internal, advertiser ingest.Table, cfg models.RunConfig) (*models.Report, *models.RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.Target() <= 0 {
		// Unreachable after Validate, kept as a diagnostic per the band math
		// falling back to 0.
		e.log.Warn("weighted KPI target is not positive", slog.Float64("target", cfg.Target()))
	}

	merged, err := e.merge(internal, advertiser, cfg)
	if err != nil {
		return nil, nil, err
	}

	summary := &models.RunSummary{
		Excluded:         merged.excluded,
		MalformedKeys:    merged.malformed,
		ActionBreakdown:  map[string]int{},
		SegmentBreakdown: map[string]int{},
		PrimaryLabel:     merged.primaryLabel,
		SecondaryLabel:   merged.secondaryLabel,
	}

	records := make([]models.CampaignRecord, 0, len(merged.rows))
	for _, row := range merged.rows {
		if row.kpiPrimary == nil || row.kpiSecond == nil || row.maxPreloads == nil || row.fillRate == nil {
			summary.DroppedNulls++
			continue
		}
		rec := row.rec
		rec.KPIPrimary = *row.kpiPrimary
		rec.KPISecondary = *row.kpiSecond
		rec.MaxPreloads = *row.maxPreloads
		rec.FillRate = *row.fillRate

		rec.Segment = Classify(rec.KPIPrimary, rec.KPISecondary, cfg)
		rec.Progression = Trend(rec.KPIPrimary, rec.KPISecondary)
		rec.Discard = ShouldDiscard(rec)
		rec.DailyCap = DailyCapSuggestion(rec)
		rec.Action, rec.Recommended = OptimizeBid(rec, cfg)

		summary.SegmentBreakdown[string(rec.Segment)]++
		if rec.DailyCap != nil {
			summary.DailyCap++
		}
		if rec.Action != nil {
			summary.Actioned++
			summary.ActionBreakdown[*rec.Action]++
		} else {
			summary.Disregarded++
		}
		records = append(records, rec)
	}
	summary.TotalRows = len(records)

	report := &models.Report{
		Columns:        reportColumns(internal.Columns, merged.primaryLabel, merged.secondaryLabel),
		PrimaryLabel:   merged.primaryLabel,
		SecondaryLabel: merged.secondaryLabel,
		Records:        records,
	}

	if e.m != nil {
		e.m.ObserveRun(summary)
	}
	e.log.Info("optimization complete",
		slog.Int("rows", summary.TotalRows),
		slog.Int("actioned", summary.Actioned),
		slog.Int("excluded", summary.Excluded),
		slog.Int("dropped_nulls", summary.DroppedNulls),
	)
	return report, summary, nil
}

// Canonical report column order; only columns present in the source table
// are emitted.
var reportColumnOrder = []string{
	"Key", "campaignId", "campaignName", "siteId", "siteName", "status",
	"spend", "preloads", "maxPreloads", "fillRate", "installs", "cvr",
	"ecpp", "ecpi", "bidFloorGroupName", "effectiveBidFloor", "bidRate",
	"dailyCap", "lowTier", "midTier", "highTier",
}

func reportColumns(internalCols []string, primaryLabel, secondaryLabel string) []string {
	present := make(map[string]struct{}, len(internalCols))
	for _, c := range internalCols {
		present[c] = struct{}{}
	}
	out := []string{}
	for _, c := range reportColumnOrder {
		if c == "Key" {
			out = append(out, c)
			continue
		}
		if _, ok := present[c]; ok {
			out = append(out, c)
		}
	}
	return append(out, primaryLabel, secondaryLabel, "Action", "Recommended bid", "Daily Cap Suggestion")
}
