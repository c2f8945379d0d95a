package workbook

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"slideposarea/internal/models"
)

// MetricColumns are the columns appended to the thresholds table by
// processing, in output order. Areas are written rounded to 2 decimals,
// fractions to 5.
var MetricColumns = []string{
	"Area (µm^2)",
	"Positive Area (µm^2)",
	"Tissue Area (µm^2)",
	"Positive Area in Tissue (µm^2)",
	"Positive Fraction (%)",
	"Positive Fraction in Tissue (%)",
}

// ProcessedName returns the output filename for an input workbook:
// "<stem>_processed.xlsx".
func ProcessedName(inputPath string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_processed.xlsx"
}

// IsProcessed reports whether a filename is a processed output workbook.
func IsProcessed(name string) bool {
	return strings.HasSuffix(name, "_processed.xlsx")
}

// WriteProcessed writes the processed workbook for doc into outDir and
// returns its path. The output is a copy of the input workbook with the
// thresholds sheet rewritten: the channel column first, the remaining
// original columns unchanged, then the metric columns. metrics must hold
// one entry per parsed threshold row, as returned by the engine.
func WriteProcessed(doc *Document, metrics []models.ChannelMetrics, outDir string) (string, error) {
	byChannel := make(map[int]models.ChannelMetrics, len(metrics))
	for _, m := range metrics {
		byChannel[m.Channel] = m
	}

	f, err := excelize.OpenFile(doc.Path)
	if err != nil {
		return "", fmt.Errorf("reopening %s: %w", doc.Path, err)
	}
	defer f.Close()

	sheet := doc.thresholdsName
	chIdx := columnIndex(doc.Header, colChannel)

	header := append([]string{colChannel}, dropColumn(doc.Header, chIdx)...)
	header = append(header, MetricColumns...)
	if err := setRow(f, sheet, 1, toAny(header)); err != nil {
		return "", err
	}

	for i, row := range doc.Rows {
		// GetRows trims trailing empty cells; pad so the metric
		// columns line up with their headers.
		for len(row) < len(doc.Header) {
			row = append(row, "")
		}
		ch, _ := parseChannel(cell(row, chIdx))
		m := byChannel[ch]
		out := []any{ch}
		for _, c := range dropColumn(row, chIdx) {
			out = append(out, cellValue(c))
		}
		out = append(out,
			round(m.Area, 2),
			round(m.PositiveArea, 2),
			round(m.TissueArea, 2),
			round(m.PositiveAreaInTissue, 2),
			round(m.PositiveFraction, 5),
			round(m.PositiveFractionInTissue, 5),
		)
		if err := setRow(f, sheet, i+2, out); err != nil {
			return "", err
		}
	}

	outPath := filepath.Join(outDir, ProcessedName(doc.Path))
	if err := f.SaveAs(outPath); err != nil {
		return "", fmt.Errorf("saving %s: %w", outPath, err)
	}
	return outPath, nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, start, &values)
}

func dropColumn[T any](row []T, idx int) []T {
	if idx < 0 || idx >= len(row) {
		return append([]T(nil), row...)
	}
	out := append([]T(nil), row[:idx]...)
	return append(out, row[idx+1:]...)
}

// cellValue writes numeric-looking cells back as numbers so spreadsheet
// formatting survives the rewrite.
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

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
