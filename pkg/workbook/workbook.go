// Package workbook reads and writes the Excel records this tool exchanges
// with its users: an input workbook with a "Files" sheet (one slide, one
// image path) and a "Thresholds" sheet (one row per channel), and the
// processed output workbook with the metric columns appended.
package workbook

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"slideposarea/internal/models"
)

// Sheet and column names of the input record. Sheet lookup is
// case-insensitive; column names are exact.
const (
	FilesSheet      = "Files"
	ThresholdsSheet = "Thresholds"

	colSlideName = "Slide Name"
	colFilePath  = "File Path"
	colChannel   = "Channel #"
	colThreshold = "Threshold"
)

// FormatError reports a workbook that does not have the expected two-table
// shape: unreadable as xlsx, missing sheets, or missing required columns.
type FormatError struct {
	// MissingSheets lists required sheet names absent from the workbook.
	MissingSheets []string

	// MissingColumns lists required columns absent from a sheet, as
	// "<sheet>/<column>" pairs.
	MissingColumns []MissingColumn

	// Err is set when the file could not be read as a workbook at all.
	Err error
}

// MissingColumn names one required column absent from one sheet.
type MissingColumn struct {
	Sheet  string
	Column string
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot read workbook: %v", e.Err)
	}
	var parts []string
	for _, s := range e.MissingSheets {
		parts = append(parts, fmt.Sprintf("missing '%s' sheet", s))
	}
	for _, c := range e.MissingColumns {
		parts = append(parts, fmt.Sprintf("'%s' sheet missing '%s' column", c.Sheet, c.Column))
	}
	return strings.Join(parts, "; ")
}

func (e *FormatError) Unwrap() error { return e.Err }

// CardinalityError reports a "Files" sheet with a row count other than one.
type CardinalityError struct {
	Rows int
}

func (e *CardinalityError) Error() string {
	if e.Rows == 0 {
		return "'Files' sheet is empty"
	}
	return fmt.Sprintf("'Files' sheet has %d rows, expected 1", e.Rows)
}

// CellReason classifies a threshold-table cell that could not be parsed.
type CellReason int

const (
	// EmptyChannel marks a row with no channel number.
	EmptyChannel CellReason = iota

	// NonIntegerChannel marks a channel number that is not an integer.
	NonIntegerChannel

	// BadThreshold marks a threshold value that is not numeric.
	BadThreshold
)

// CellIssue describes one unparseable cell in the thresholds sheet. These
// are carried on the Document rather than failing the read, so validation
// can report every bad row at once.
type CellIssue struct {
	// Row is the 1-based sheet row of the offending cell.
	Row int

	// Value is the raw cell content.
	Value string

	Reason CellReason
}

// Document is one parsed input workbook: the descriptor extracted from it
// plus the raw thresholds table for passthrough into the processed output.
type Document struct {
	// Path is the workbook file the document was read from.
	Path string

	// Descriptor is the slide record assembled from the two sheets.
	// Threshold rows with unparseable cells are omitted from it and
	// reported in CellIssues instead.
	Descriptor models.SlideDescriptor

	// Header and Rows mirror the thresholds sheet as read: the header
	// row and the raw data rows, in sheet order.
	Header []string
	Rows   [][]string

	// CellIssues lists thresholds cells that did not parse.
	CellIssues []CellIssue

	// filesName and thresholdsName are the actual (possibly differently
	// cased) sheet names in the workbook.
	filesName      string
	thresholdsName string
}

// Read parses one input workbook. It returns a FormatError or
// CardinalityError when the two-table shape is violated; per-cell problems
// in the thresholds table do not fail the read and are reported on the
// Document.
func Read(path string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &FormatError{Err: err}
	}
	defer f.Close()

	doc := &Document{Path: path}

	var missing []string
	doc.filesName = findSheet(f, FilesSheet)
	doc.thresholdsName = findSheet(f, ThresholdsSheet)
	if doc.filesName == "" {
		missing = append(missing, FilesSheet)
	}
	if doc.thresholdsName == "" {
		missing = append(missing, ThresholdsSheet)
	}
	if len(missing) > 0 {
		return nil, &FormatError{MissingSheets: missing}
	}

	if err := doc.readFiles(f); err != nil {
		return nil, err
	}
	if err := doc.readThresholds(f); err != nil {
		return nil, err
	}
	return doc, nil
}

// findSheet returns the workbook's actual name for a sheet, matched
// case-insensitively, or "" if absent.
func findSheet(f *excelize.File, name string) string {
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(s, name) {
			return s
		}
	}
	return ""
}

func (d *Document) readFiles(f *excelize.File) error {
	rows, err := f.GetRows(d.filesName)
	if err != nil {
		return &FormatError{Err: err}
	}
	data := dataRows(rows)
	if len(data) != 1 {
		return &CardinalityError{Rows: len(data)}
	}

	header := []string{}
	if len(rows) > 0 {
		header = rows[0]
	}
	nameIdx := columnIndex(header, colSlideName)
	pathIdx := columnIndex(header, colFilePath)
	var missing []MissingColumn
	if nameIdx < 0 {
		missing = append(missing, MissingColumn{FilesSheet, colSlideName})
	}
	if pathIdx < 0 {
		missing = append(missing, MissingColumn{FilesSheet, colFilePath})
	}
	if len(missing) > 0 {
		return &FormatError{MissingColumns: missing}
	}

	d.Descriptor.SlideName = cell(data[0], nameIdx)
	d.Descriptor.ImagePath = cell(data[0], pathIdx)
	return nil
}

func (d *Document) readThresholds(f *excelize.File) error {
	rows, err := f.GetRows(d.thresholdsName)
	if err != nil {
		return &FormatError{Err: err}
	}
	if len(rows) > 0 {
		d.Header = rows[0]
	}

	chIdx := columnIndex(d.Header, colChannel)
	thIdx := columnIndex(d.Header, colThreshold)
	var missing []MissingColumn
	if chIdx < 0 {
		missing = append(missing, MissingColumn{ThresholdsSheet, colChannel})
	}
	if thIdx < 0 {
		missing = append(missing, MissingColumn{ThresholdsSheet, colThreshold})
	}
	if len(missing) > 0 {
		return &FormatError{MissingColumns: missing}
	}
	labelIdx := labelColumn(d.Header, chIdx, thIdx)

	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		sheetRow := i + 2
		d.Rows = append(d.Rows, row)

		ch, ok := parseChannel(cell(row, chIdx))
		if !ok {
			reason := NonIntegerChannel
			if cell(row, chIdx) == "" {
				reason = EmptyChannel
			}
			d.CellIssues = append(d.CellIssues, CellIssue{Row: sheetRow, Value: cell(row, chIdx), Reason: reason})
			continue
		}
		threshold, err := strconv.ParseFloat(cell(row, thIdx), 64)
		if err != nil {
			d.CellIssues = append(d.CellIssues, CellIssue{Row: sheetRow, Value: cell(row, thIdx), Reason: BadThreshold})
			continue
		}
		t := models.ChannelThreshold{Channel: ch, Threshold: threshold}
		if labelIdx >= 0 {
			t.Label = cell(row, labelIdx)
		}
		d.Descriptor.Thresholds = append(d.Descriptor.Thresholds, t)
	}
	return nil
}

// parseChannel parses a channel cell. Spreadsheets store integers as "2"
// or "2.0" depending on formatting, so integral floats are accepted.
func parseChannel(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}

// labelColumn picks the first column that is neither the channel nor the
// threshold column; it carries the optional marker label.
func labelColumn(header []string, chIdx, thIdx int) int {
	for i, h := range header {
		if i != chIdx && i != thIdx && strings.TrimSpace(h) != "" {
			return i
		}
	}
	return -1
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// dataRows returns the non-blank rows below the header.
func dataRows(rows [][]string) [][]string {
	var out [][]string
	if len(rows) < 2 {
		return out
	}
	for _, row := range rows[1:] {
		if !blankRow(row) {
			out = append(out, row)
		}
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
