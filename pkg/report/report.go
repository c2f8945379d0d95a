// Package report builds a summary workbook from processed slide
// workbooks. Slides are grouped by their channel configuration; each group
// gets a number and a color used for summary rows and sheet tabs, so
// slides analyzed with the same panel are visually adjacent.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"slideposarea/pkg/workbook"
)

// tab10Colors is the matplotlib tab10 palette as RGB hex. Groups cycle
// through it in order.
var tab10Colors = []string{
	"1F77B4", // blue
	"FF7F0E", // orange
	"2CA02C", // green
	"D62728", // red
	"9467BD", // purple
	"8C564B", // brown
	"E377C2", // pink
	"7F7F7F", // gray
	"BCBD22", // olive
	"17BECF", // cyan
}

// slideEntry is one processed workbook admitted into the report.
type slideEntry struct {
	path      string
	slideName string
	header    []string
	rows      [][]string
}

// group is a set of slides sharing a channel signature.
type group struct {
	signature []int
	entries   []slideEntry
}

// Generate writes a summary workbook for the given processed files. Files
// that cannot be read as processed workbooks are skipped with a warning;
// if none remain, Generate fails.
func Generate(processedPaths []string, outPath string, log zerolog.Logger) error {
	groups := assignGroups(processedPaths, log)
	if len(groups) == 0 {
		return fmt.Errorf("no valid processed files found")
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}

	if err := writeSummary(f, groups); err != nil {
		return err
	}
	if err := writeSlideSheets(f, groups); err != nil {
		return err
	}

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("saving %s: %w", outPath, err)
	}

	total := 0
	for _, g := range groups {
		total += len(g.entries)
	}
	log.Info().
		Int("files", total).
		Int("groups", len(groups)).
		Str("output", outPath).
		Msg("summary report written")
	return nil
}

// assignGroups reads each processed workbook and buckets it by channel
// signature. Groups come back ordered by signature, entries by slide name.
func assignGroups(paths []string, log zerolog.Logger) []group {
	bySignature := map[string]*group{}
	for _, path := range paths {
		doc, err := workbook.Read(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping unreadable processed file")
			continue
		}
		sig := channelSignature(doc)
		if len(sig) == 0 {
			log.Warn().Str("file", path).Msg("skipping processed file with no channels")
			continue
		}
		key := signatureKey(sig)
		g, ok := bySignature[key]
		if !ok {
			g = &group{signature: sig}
			bySignature[key] = g
		}
		g.entries = append(g.entries, slideEntry{
			path:      path,
			slideName: doc.Descriptor.SlideName,
			header:    doc.Header,
			rows:      doc.Rows,
		})
	}

	groups := make([]group, 0, len(bySignature))
	for _, g := range bySignature {
		sort.Slice(g.entries, func(i, j int) bool {
			return g.entries[i].slideName < g.entries[j].slideName
		})
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return lessSignature(groups[i].signature, groups[j].signature)
	})
	return groups
}

// channelSignature returns the sorted distinct channel numbers of a
// processed workbook.
func channelSignature(doc *workbook.Document) []int {
	seen := map[int]bool{}
	var sig []int
	for _, t := range doc.Descriptor.Thresholds {
		if !seen[t.Channel] {
			seen[t.Channel] = true
			sig = append(sig, t.Channel)
		}
	}
	sort.Ints(sig)
	return sig
}

func signatureKey(sig []int) string {
	parts := make([]string, len(sig))
	for i, c := range sig {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

func lessSignature(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func groupColor(groupNum int) string {
	return tab10Colors[(groupNum-1)%len(tab10Colors)]
}

// writeSummary fills the Summary sheet: one row per slide, colored by
// group.
func writeSummary(f *excelize.File, groups []group) error {
	const sheet = "Summary"

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	header := []any{"Slide Name", "File Path", "Group"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", bold); err != nil {
		return err
	}

	widths := columnWidths(nil, [][]string{{"Slide Name", "File Path", "Group"}})
	row := 2
	for i, g := range groups {
		groupNum := i + 1
		fill, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{groupColor(groupNum)}},
		})
		if err != nil {
			return err
		}
		for _, e := range g.entries {
			cells := []string{e.slideName, e.path, fmt.Sprintf("Group %d", groupNum)}
			if err := setRow(f, sheet, row, toAny(cells)); err != nil {
				return err
			}
			start, _ := excelize.CoordinatesToCellName(1, row)
			end, _ := excelize.CoordinatesToCellName(3, row)
			if err := f.SetCellStyle(sheet, start, end, fill); err != nil {
				return err
			}
			widths = columnWidths(widths, [][]string{cells})
			row++
		}
	}
	return applyWidths(f, sheet, widths, 50)
}

// writeSlideSheets adds one sheet per slide with its thresholds table and
// the group color on the tab.
func writeSlideSheets(f *excelize.File, groups []group) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, g := range groups {
		color := groupColor(i + 1)
		for _, e := range g.entries {
			sheet := sheetName(f, e.slideName)
			if _, err := f.NewSheet(sheet); err != nil {
				return err
			}
			if err := f.SetSheetProps(sheet, &excelize.SheetPropsOptions{TabColorRGB: &color}); err != nil {
				return err
			}

			if err := setRow(f, sheet, 1, toAny(e.header)); err != nil {
				return err
			}
			endHeader, _ := excelize.CoordinatesToCellName(max(len(e.header), 1), 1)
			if err := f.SetCellStyle(sheet, "A1", endHeader, bold); err != nil {
				return err
			}
			for r, cells := range e.rows {
				values := make([]any, len(cells))
				for c, v := range cells {
					values[c] = cellValue(v)
				}
				if err := setRow(f, sheet, r+2, values); err != nil {
					return err
				}
			}

			widths := columnWidths(nil, [][]string{e.header})
			widths = columnWidths(widths, e.rows)
			if err := applyWidths(f, sheet, widths, 30); err != nil {
				return err
			}
		}
	}
	return nil
}

// sheetName fits a slide name into Excel's 31-character sheet name limit
// and deduplicates collisions with a numeric suffix.
func sheetName(f *excelize.File, slideName string) string {
	name := slideName
	if len(name) > 31 {
		name = name[:31]
	}
	base := name
	for counter := 1; sheetExists(f, name); counter++ {
		suffix := fmt.Sprintf("_%d", counter)
		trimmed := base
		if len(trimmed) > 31-len(suffix) {
			trimmed = trimmed[:31-len(suffix)]
		}
		name = trimmed + suffix
	}
	return name
}

func sheetExists(f *excelize.File, name string) bool {
	for _, s := range f.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, start, &values)
}

func cellValue(s string) any {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, c := range row {
		out[i] = c
	}
	return out
}

// columnWidths folds rows into per-column content lengths.
func columnWidths(widths []float64, rows [][]string) []float64 {
	for _, row := range rows {
		for i, cell := range row {
			for len(widths) <= i {
				widths = append(widths, 0)
			}
			if w := float64(len(cell)); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// applyWidths sets column widths to content length plus padding, capped.
func applyWidths(f *excelize.File, sheet string, widths []float64, limit float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		adjusted := w + 2
		if adjusted > limit {
			adjusted = limit
		}
		if err := f.SetColWidth(sheet, col, col, adjusted); err != nil {
			return err
		}
	}
	return nil
}
