package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/bidopt/internal/ingest"
)

var internalCols = []string{
	"campaignName", "siteId", "siteName", "status", "spend", "preloads",
	"maxPreloads", "fillRate", "installs", "effectiveBidFloor", "bidRate",
	"highTier",
}

func internalRow(name, siteID, siteName string) []string {
	return []string{name, siteID, siteName, "active", "500", "300", "1000", "0.5", "10", "0.20", "1.00", "1.50"}
}

func advertiserTable(rows ...[]string) ingest.Table {
	return ingest.Table{
		Columns: []string{"Campaign Name", "Site ID", "ROAS D7", "ROAS D30"},
		Rows:    rows,
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, "")
	require.NoError(t, err)
	return e
}

func TestMergeJoinsOnKey(t *testing.T) {
	e := newTestEngine(t)
	cfg := testCfg
	cfg.PrimaryColumn, cfg.SecondaryColumn = 2, 3

	internal := ingest.Table{Columns: internalCols, Rows: [][]string{
		internalRow(" Camp A ", "101", "Site A"),
		internalRow("Camp B", "102", "Site B"), // no advertiser match
	}}
	adv := advertiserTable(
		[]string{"Camp A", "101", "5.9%", "8.2%"},
	)

	res, err := e.merge(internal, adv, cfg)
	require.NoError(t, err)
	require.Len(t, res.rows, 2)

	a := res.rows[0]
	assert.Equal(t, "Camp A_101", a.rec.Key) // trimmed before keying
	require.NotNil(t, a.kpiPrimary)
	assert.InDelta(t, 0.059, *a.kpiPrimary, 1e-9)
	assert.Equal(t, "ROI D7", res.primaryLabel)
	assert.Equal(t, "ROI D30", res.secondaryLabel)

	b := res.rows[1]
	assert.Nil(t, b.kpiPrimary) // left join: unmatched row kept with nulls
	assert.Nil(t, b.kpiSecond)
}

func TestMergeExcludesPushPlacements(t *testing.T) {
	e := newTestEngine(t)
	cfg := testCfg
	cfg.PrimaryColumn, cfg.SecondaryColumn = 2, 3

	internal := ingest.Table{Columns: internalCols, Rows: [][]string{
		internalRow("Camp A", "101", "OM Push US"),
		internalRow("Notif Camp", "102", "Site B"),
		internalRow("Camp C", "103", "Site C"),
	}}
	res, err := e.merge(internal, advertiserTable(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.excluded)
	require.Len(t, res.rows, 1)
	assert.Equal(t, "Camp C_103", res.rows[0].rec.Key)
}

func TestMergeDedupKeepsFirstOccurrence(t *testing.T) {
	e := newTestEngine(t)
	cfg := testCfg
	cfg.PrimaryColumn, cfg.SecondaryColumn = 2, 3

	internal := ingest.Table{Columns: internalCols, Rows: [][]string{
		internalRow("Camp A", "101", "Site A"),
	}}
	adv := advertiserTable(
		[]string{"Camp A", "101", "5.0", "6.0"},
		[]string{"Camp A", "101", "9.0", "9.0"},
	)
	res, err := e.merge(internal, adv, cfg)
	require.NoError(t, err)
	require.Len(t, res.rows, 1)
	require.NotNil(t, res.rows[0].kpiPrimary)
	assert.InDelta(t, 0.05, *res.rows[0].kpiPrimary, 1e-9)
}

func TestMergeSkipsAndCountsMalformedSiteIDs(t *testing.T) {
	e := newTestEngine(t)
	cfg := testCfg
	cfg.PrimaryColumn, cfg.SecondaryColumn = 2, 3

	internal := ingest.Table{Columns: internalCols, Rows: [][]string{
		internalRow("Camp A", "abc", "Site A"), // not integer-coercible
		internalRow("Camp B", "102.0", "Site B"),
	}}
	res, err := e.merge(internal, advertiserTable(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.malformed)
	require.Len(t, res.rows, 1)
	assert.Equal(t, "Camp B_102", res.rows[0].rec.Key) // float coerces through int
}

func TestMergeColumnResolutionFailures(t *testing.T) {
	e := newTestEngine(t)
	cfg := testCfg
	cfg.PrimaryColumn, cfg.SecondaryColumn = 2, 3

	internal := ingest.Table{Columns: internalCols, Rows: nil}

	t.Run("no campaign column in advertiser", func(t *testing.T) {
		adv := ingest.Table{Columns: []string{"Name", "Site ID", "ROAS D7", "ROAS D30"}}
		_, err := e.merge(internal, adv, cfg)
		var colErr *ColumnResolutionError
		require.ErrorAs(t, err, &colErr)
		assert.Equal(t, "advertiser", colErr.Dataset)
	})

	t.Run("campaign fallback without name", func(t *testing.T) {
		adv := ingest.Table{Columns: []string{"campaign", "Site ID", "ROAS D7", "ROAS D30"}}
		_, err := e.merge(internal, adv, cfg)
		assert.NoError(t, err)
	})

	t.Run("kpi index out of range", func(t *testing.T) {
		badCfg := cfg
		badCfg.SecondaryColumn = 99
		_, err := e.merge(internal, advertiserTable(), badCfg)
		var colErr *ColumnResolutionError
		require.ErrorAs(t, err, &colErr)
	})

	t.Run("missing required internal column", func(t *testing.T) {
		bad := ingest.Table{Columns: []string{"campaignName", "siteId"}}
		_, err := e.merge(bad, advertiserTable(), cfg)
		var colErr *ColumnResolutionError
		require.ErrorAs(t, err, &colErr)
		assert.Equal(t, "internal", colErr.Dataset)
	})
}
