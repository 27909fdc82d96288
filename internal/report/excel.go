package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/bidopt/internal/models"
)

const sheetName = "Optimization"

// Fills is the default color map for the annotated report. Callers pass it
// (or their own copy) into Build; the writer never mutates it.
var Fills = map[string]string{
	"green":  "C6EFCE",
	"yellow": "FFEB9C",
	"orange": "FFCC99",
	"red":    "FFC7CE",
	"header": "1F3864",
	"cap":    "DAE3F3",
	"action": "D9E1F2",
}

var (
	numFmtPercent = "0.00%"
	numFmtMoney   = "$#,##0.00"
	numFmtInt     = "#,##0"
	numFmtText    = "@"
)

var moneyCols = map[string]bool{
	"spend": true, "ecpp": true, "ecpi": true, "effectiveBidFloor": true,
	"bidRate": true, "Recommended bid": true, "lowTier": true,
	"midTier": true, "highTier": true,
}

var intCols = map[string]bool{
	"preloads": true, "maxPreloads": true, "installs": true, "dailyCap": true,
}

var textCols = map[string]bool{"campaignId": true, "siteId": true}

var colWidths = map[string]float64{
	"Key": 30, "campaignId": 12, "campaignName": 38, "siteId": 10,
	"siteName": 45, "status": 10, "spend": 10, "preloads": 10,
	"maxPreloads": 12, "fillRate": 10, "installs": 10, "cvr": 8,
	"ecpp": 8, "ecpi": 8, "bidFloorGroupName": 20, "effectiveBidFloor": 14,
	"bidRate": 10, "dailyCap": 10, "lowTier": 8, "midTier": 8, "highTier": 8,
	"Action": 22, "Recommended bid": 16, "Daily Cap Suggestion": 22,
}

// Bytes renders the report workbook and returns it as xlsx bytes.
func Bytes(rep *models.Report, fills map[string]string) ([]byte, error) {
	f, err := Build(rep, fills)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Build writes one sheet: a styled header row plus one row per record.
// Segment tinting is applied to the KPI and action cells of rows that were
// not discarded.
func Build(rep *models.Report, fills map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	w := &writer{f: f, fills: fills, styles: map[string]int{}}

	headerStyle, err := w.headerStyle()
	if err != nil {
		return nil, err
	}
	for i, col := range rep.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}
	if err := f.SetRowHeight(sheetName, 1, 30); err != nil {
		return nil, err
	}

	for ri, rec := range rep.Records {
		if err := w.writeRow(rep, rec, ri+2); err != nil {
			return nil, err
		}
	}

	for i, col := range rep.Columns {
		width, ok := colWidths[col]
		if !ok {
			if col == rep.PrimaryLabel || col == rep.SecondaryLabel {
				width = 10
			} else {
				width = 12
			}
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, name, name, width); err != nil {
			return nil, err
		}
	}
	return f, nil
}

type writer struct {
	f      *excelize.File
	fills  map[string]string
	styles map[string]int // cache: fill|bold|numfmt -> style id
}

func (w *writer) writeRow(rep *models.Report, rec models.CampaignRecord, row int) error {
	segFill := ""
	if !rec.Discard {
		segFill = w.fills[string(rec.Segment)]
	}

	for i, col := range rep.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		val := cellValue(rep, rec, col)
		if val != nil {
			if err := w.f.SetCellValue(sheetName, cell, val); err != nil {
				return err
			}
		}

		fill, bold := "", false
		switch {
		case (col == rep.PrimaryLabel || col == rep.SecondaryLabel) && segFill != "":
			fill = segFill
		case (col == "Action" || col == "Recommended bid") && rec.Action != nil:
			fill, bold = segFill, true
			if fill == "" {
				fill = w.fills["action"]
			}
		case col == "Daily Cap Suggestion" && rec.DailyCap != nil:
			fill, bold = w.fills["cap"], true
		}

		style, err := w.cellStyle(fill, bold, numFmtFor(rep, col))
		if err != nil {
			return err
		}
		if err := w.f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func numFmtFor(rep *models.Report, col string) string {
	switch {
	case col == "fillRate" || col == "cvr" || col == rep.PrimaryLabel || col == rep.SecondaryLabel:
		return numFmtPercent
	case moneyCols[col]:
		return numFmtMoney
	case intCols[col]:
		return numFmtInt
	case textCols[col]:
		return numFmtText
	}
	return ""
}

// cellValue maps a report column to the typed value for one record. nil
// means leave the cell empty.
func cellValue(rep *models.Report, rec models.CampaignRecord, col string) interface{} {
	switch col {
	case "Key":
		return rec.Key
	case "campaignName":
		return rec.CampaignName
	case "siteId":
		return rec.SiteID
	case "siteName":
		return rec.SiteName
	case "status":
		return rec.Status
	case "spend":
		return rec.Spend
	case "preloads":
		return rec.Preloads
	case "maxPreloads":
		return rec.MaxPreloads
	case "fillRate":
		return rec.FillRate
	case "installs":
		return rec.Installs
	case "effectiveBidFloor":
		return floatOrNil(rec.EffectiveBidFloor)
	case "bidRate":
		return rec.BidRate
	case "lowTier":
		return floatOrNil(rec.LowTier)
	case "midTier":
		return floatOrNil(rec.MidTier)
	case "highTier":
		return floatOrNil(rec.HighTier)
	case rep.PrimaryLabel:
		return rec.KPIPrimary
	case rep.SecondaryLabel:
		return rec.KPISecondary
	case "Action":
		return strOrNil(rec.Action)
	case "Recommended bid":
		return floatOrNil(rec.Recommended)
	case "Daily Cap Suggestion":
		return strOrNil(rec.DailyCap)
	}
	raw, ok := rec.Extra[col]
	if !ok || raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !textCols[col] {
		return f
	}
	return raw
}

func (w *writer) headerStyle() (int, error) {
	return w.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{w.fills["header"]}},
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Family: "Arial", Size: 9},
		Alignment: &excelize.Alignment{
			Horizontal: "center", Vertical: "center", WrapText: true,
		},
	})
}

func (w *writer) cellStyle(fill string, bold bool, numFmt string) (int, error) {
	key := fmt.Sprintf("%s|%t|%s", fill, bold, numFmt)
	if id, ok := w.styles[key]; ok {
		return id, nil
	}
	style := &excelize.Style{
		Font:      &excelize.Font{Family: "Arial", Size: 9, Bold: bold},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}
	if fill != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}}
	}
	if numFmt != "" {
		style.CustomNumFmt = &numFmt
	}
	id, err := w.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	w.styles[key] = id
	return id, nil
}

func floatOrNil(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func strOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
