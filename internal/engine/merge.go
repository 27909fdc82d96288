package engine

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/AngelCh415/bidopt/internal/ingest"
	"github.com/AngelCh415/bidopt/internal/models"
)

// Push-notification style placements never get bid actions; they are cut
// before the merge.
const DefaultExcludePattern = `(?i)OM.?Push|OM_PUSH|Notif`

// Columns the internal export must carry. Anything else passes through to
// the report untouched.
var requiredInternalCols = []string{
	"campaignName", "siteId", "siteName", "status", "spend", "preloads",
	"maxPreloads", "fillRate", "installs", "effectiveBidFloor", "bidRate",
	"highTier",
}

// mergedRow is a record before the null filter: KPIs, maxPreloads and
// fillRate may still be missing here.
type mergedRow struct {
	rec         models.CampaignRecord
	kpiPrimary  *float64
	kpiSecond   *float64
	maxPreloads *float64
	fillRate    *float64
}

type mergeResult struct {
	rows           []mergedRow
	primaryLabel   string
	secondaryLabel string
	excluded       int
	malformed      int
}

func (e *Engine) merge(internal, advertiser ingest.Table, cfg models.RunConfig) (*mergeResult, error) {
	cols := map[string]int{}
	for _, name := range requiredInternalCols {
		i := internal.ColIndex(name)
		if i < 0 {
			return nil, &ColumnResolutionError{Dataset: "internal", Column: name}
		}
		cols[name] = i
	}
	for _, name := range []string{"lowTier", "midTier"} {
		if i := internal.ColIndex(name); i >= 0 {
			cols[name] = i
		}
	}

	if cfg.PrimaryColumn >= len(advertiser.Columns) || cfg.SecondaryColumn >= len(advertiser.Columns) {
		return nil, &ColumnResolutionError{Dataset: "advertiser", Column: "kpi column index out of range"}
	}
	campCol, siteCol, err := resolveAdvertiserKeyColumns(advertiser)
	if err != nil {
		return nil, err
	}

	res := &mergeResult{
		primaryLabel:   KPILabel(advertiser.Columns[cfg.PrimaryColumn]),
		secondaryLabel: KPILabel(advertiser.Columns[cfg.SecondaryColumn]),
	}

	// Advertiser lookup by key, first occurrence wins (matches the upstream
	// report which lists the canonical row first).
	type kpiPair struct{ p, s *float64 }
	lookup := make(map[string]kpiPair, len(advertiser.Rows))
	for i := range advertiser.Rows {
		key, err := buildKey("advertiser", advertiser.Cell(i, campCol), advertiser.Cell(i, siteCol))
		if err != nil {
			res.malformed++
			e.log.Warn("skipping advertiser row", slog.Int("row", i), slog.String("err", err.Error()))
			continue
		}
		if _, seen := lookup[key]; seen {
			continue
		}
		lookup[key] = kpiPair{
			p: ParsePct(advertiser.Cell(i, cfg.PrimaryColumn)),
			s: ParsePct(advertiser.Cell(i, cfg.SecondaryColumn)),
		}
	}

	typed := map[string]struct{}{}
	for n := range cols {
		typed[n] = struct{}{}
	}

	// Left join: every surviving internal row stays, unmatched rows carry
	// null KPIs and fall to the null filter.
	for i := range internal.Rows {
		name := internal.Cell(i, cols["campaignName"])
		site := internal.Cell(i, cols["siteName"])
		if e.exclude.MatchString(name) || e.exclude.MatchString(site) {
			res.excluded++
			continue
		}

		key, err := buildKey("internal", name, internal.Cell(i, cols["siteId"]))
		if err != nil {
			res.malformed++
			e.log.Warn("skipping internal row", slog.Int("row", i), slog.String("err", err.Error()))
			continue
		}

		rec := models.CampaignRecord{
			Key:               key,
			CampaignName:      strings.TrimSpace(name),
			SiteID:            keySiteID(internal.Cell(i, cols["siteId"])),
			SiteName:          site,
			Status:            internal.Cell(i, cols["status"]),
			Spend:             floatOr(internal.Cell(i, cols["spend"]), 0),
			Preloads:          intOr(internal.Cell(i, cols["preloads"]), 0),
			Installs:          intOr(internal.Cell(i, cols["installs"]), 0),
			BidRate:           floatOr(internal.Cell(i, cols["bidRate"]), 0),
			EffectiveBidFloor: floatPtr(internal.Cell(i, cols["effectiveBidFloor"])),
			HighTier:          floatPtr(internal.Cell(i, cols["highTier"])),
			Extra:             map[string]string{},
		}
		if c, ok := cols["lowTier"]; ok {
			rec.LowTier = floatPtr(internal.Cell(i, c))
		}
		if c, ok := cols["midTier"]; ok {
			rec.MidTier = floatPtr(internal.Cell(i, c))
		}
		for j, col := range internal.Columns {
			if _, ok := typed[col]; ok {
				continue
			}
			rec.Extra[col] = internal.Cell(i, j)
		}

		row := mergedRow{
			rec:         rec,
			maxPreloads: floatPtr(internal.Cell(i, cols["maxPreloads"])),
			fillRate:    floatPtr(internal.Cell(i, cols["fillRate"])),
		}
		if pair, ok := lookup[key]; ok {
			row.kpiPrimary = pair.p
			row.kpiSecond = pair.s
		}
		res.rows = append(res.rows, row)
	}
	return res, nil
}

// resolveAdvertiserKeyColumns locates the campaign-name and site-id columns
// by case-insensitive substring match: a column containing both "campaign"
// and "name" is preferred, any "campaign" column is the fallback.
func resolveAdvertiserKeyColumns(t ingest.Table) (camp, site int, err error) {
	camp, site = -1, -1
	for i, c := range t.Columns {
		lc := strings.ToLower(c)
		if camp < 0 && strings.Contains(lc, "campaign") && strings.Contains(lc, "name") {
			camp = i
		}
		if site < 0 && strings.Contains(lc, "site") && strings.Contains(lc, "id") {
			site = i
		}
	}
	if camp < 0 {
		for i, c := range t.Columns {
			if strings.Contains(strings.ToLower(c), "campaign") {
				camp = i
				break
			}
		}
	}
	if camp < 0 {
		return 0, 0, &ColumnResolutionError{Dataset: "advertiser", Column: "campaign name"}
	}
	if site < 0 {
		return 0, 0, &ColumnResolutionError{Dataset: "advertiser", Column: "site id"}
	}
	return camp, site, nil
}

// buildKey produces "campaignName_siteId" with the site id coerced through
// an integer, so "123", "123.0" and 123 all key the same.
func buildKey(dataset, campaignName, siteID string) (string, error) {
	name := strings.TrimSpace(campaignName)
	id := keySiteID(siteID)
	if id == "" {
		return "", &KeyConstructionError{Dataset: dataset, SiteID: siteID}
	}
	return name + "_" + id, nil
}

// keySiteID coerces a raw site id to its integer form, "" when it isn't
// integer-coercible. Floats truncate, matching an integer cast.
func keySiteID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return ""
}

func floatOr(s string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return v
	}
	return def
}

func intOr(s string, def int) int {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return int(v)
	}
	return def
}

func floatPtr(s string) *float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return &v
	}
	return nil
}
