package workbook

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"slideposarea/internal/models"
)

// createWorkbook writes an xlsx with the given sheets, each a slice of rows.
func createWorkbook(t *testing.T, path string, sheets map[string][][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("Failed to rename sheet: %v", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("Failed to add sheet %s: %v", name, err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("Bad coordinates: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("Failed to write row %d of %s: %v", i+1, name, err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
}

// standardInput creates a well-formed input workbook and returns its path.
func standardInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "slide_A.xlsx")
	createWorkbook(t, path, map[string][][]any{
		"Files": {
			{"Slide Name", "File Path"},
			{"Slide A", "/data/slide_a.ome.tiff"},
		},
		"Thresholds": {
			{"Channel #", "Marker", "Threshold"},
			{2, "DAPI", 500},
			{3, "CD8", 1300},
			{5, "FoxP3", 1650},
		},
	})
	return path
}

func TestRead(t *testing.T) {
	dir := t.TempDir()

	t.Run("WellFormedWorkbook", func(t *testing.T) {
		doc, err := Read(standardInput(t, dir))
		if err != nil {
			t.Fatalf("Failed to read workbook: %v", err)
		}

		if doc.Descriptor.SlideName != "Slide A" {
			t.Errorf("Expected slide name 'Slide A', got %q", doc.Descriptor.SlideName)
		}
		if doc.Descriptor.ImagePath != "/data/slide_a.ome.tiff" {
			t.Errorf("Unexpected image path %q", doc.Descriptor.ImagePath)
		}

		want := []models.ChannelThreshold{
			{Channel: 2, Label: "DAPI", Threshold: 500},
			{Channel: 3, Label: "CD8", Threshold: 1300},
			{Channel: 5, Label: "FoxP3", Threshold: 1650},
		}
		if len(doc.Descriptor.Thresholds) != len(want) {
			t.Fatalf("Expected %d thresholds, got %d", len(want), len(doc.Descriptor.Thresholds))
		}
		for i, w := range want {
			if doc.Descriptor.Thresholds[i] != w {
				t.Errorf("Threshold %d: expected %+v, got %+v", i, w, doc.Descriptor.Thresholds[i])
			}
		}
		if len(doc.CellIssues) != 0 {
			t.Errorf("Expected no cell issues, got %v", doc.CellIssues)
		}
	})

	t.Run("CaseInsensitiveSheetNames", func(t *testing.T) {
		path := filepath.Join(dir, "lowercase.xlsx")
		createWorkbook(t, path, map[string][][]any{
			"files": {
				{"Slide Name", "File Path"},
				{"S1", "/data/s1.tiff"},
			},
			"thresholds": {
				{"Channel #", "Threshold"},
				{2, 500},
			},
		})
		doc, err := Read(path)
		if err != nil {
			t.Fatalf("Failed to read workbook with lowercase sheets: %v", err)
		}
		if doc.Descriptor.SlideName != "S1" {
			t.Errorf("Unexpected slide name %q", doc.Descriptor.SlideName)
		}
	})

	t.Run("MissingSheets", func(t *testing.T) {
		path := filepath.Join(dir, "nosheet.xlsx")
		createWorkbook(t, path, map[string][][]any{
			"Data": {{"x"}},
		})
		_, err := Read(path)
		var format *FormatError
		if !errors.As(err, &format) {
			t.Fatalf("Expected FormatError, got %v", err)
		}
		if len(format.MissingSheets) != 2 {
			t.Errorf("Expected both sheets reported missing, got %v", format.MissingSheets)
		}
	})

	t.Run("TwoFilesRows", func(t *testing.T) {
		path := filepath.Join(dir, "tworows.xlsx")
		createWorkbook(t, path, map[string][][]any{
			"Files": {
				{"Slide Name", "File Path"},
				{"A", "/a.tiff"},
				{"B", "/b.tiff"},
			},
			"Thresholds": {
				{"Channel #", "Threshold"},
				{2, 500},
			},
		})
		_, err := Read(path)
		var cardinality *CardinalityError
		if !errors.As(err, &cardinality) {
			t.Fatalf("Expected CardinalityError, got %v", err)
		}
		if cardinality.Rows != 2 {
			t.Errorf("Expected row count 2 in error, got %d", cardinality.Rows)
		}
	})

	t.Run("EmptyFilesSheet", func(t *testing.T) {
		path := filepath.Join(dir, "emptyfiles.xlsx")
		createWorkbook(t, path, map[string][][]any{
			"Files": {
				{"Slide Name", "File Path"},
			},
			"Thresholds": {
				{"Channel #", "Threshold"},
				{2, 500},
			},
		})
		_, err := Read(path)
		var cardinality *CardinalityError
		if !errors.As(err, &cardinality) {
			t.Fatalf("Expected CardinalityError, got %v", err)
		}
		if cardinality.Rows != 0 {
			t.Errorf("Expected row count 0, got %d", cardinality.Rows)
		}
	})

	t.Run("MissingColumns", func(t *testing.T) {
		path := filepath.Join(dir, "nocols.xlsx")
		createWorkbook(t, path, map[string][][]any{
			"Files": {
				{"Slide Name", "File Path"},
				{"A", "/a.tiff"},
			},
			"Thresholds": {
				{"Channel", "Cutoff"},
				{2, 500},
			},
		})
		_, err := Read(path)
		var format *FormatError
		if !errors.As(err, &format) {
			t.Fatalf("Expected FormatError, got %v", err)
		}
		if len(format.MissingColumns) != 2 {
			t.Errorf("Expected 2 missing columns, got %v", format.MissingColumns)
		}
	})

	t.Run("BadThresholdCells", func(t *testing.T) {
		path := filepath.Join(dir, "badcells.xlsx")
		createWorkbook(t, path, map[string][][]any{
			"Files": {
				{"Slide Name", "File Path"},
				{"A", "/a.tiff"},
			},
			"Thresholds": {
				{"Channel #", "Threshold"},
				{2, 500},
				{"two", 600},
				{nil, 700},
				{4, "high"},
			},
		})
		doc, err := Read(path)
		if err != nil {
			t.Fatalf("Cell problems must not fail the read: %v", err)
		}
		if len(doc.Descriptor.Thresholds) != 1 {
			t.Errorf("Expected 1 parseable threshold, got %d", len(doc.Descriptor.Thresholds))
		}
		if len(doc.CellIssues) != 3 {
			t.Fatalf("Expected 3 cell issues, got %d", len(doc.CellIssues))
		}
		reasons := map[CellReason]int{}
		for _, ci := range doc.CellIssues {
			reasons[ci.Reason]++
		}
		if reasons[NonIntegerChannel] != 1 || reasons[EmptyChannel] != 1 || reasons[BadThreshold] != 1 {
			t.Errorf("Unexpected issue breakdown: %v", doc.CellIssues)
		}
	})

	t.Run("NotAWorkbook", func(t *testing.T) {
		_, err := Read(filepath.Join(dir, "does-not-exist.xlsx"))
		var format *FormatError
		if !errors.As(err, &format) {
			t.Fatalf("Expected FormatError, got %v", err)
		}
		if format.Err == nil {
			t.Error("Expected the underlying read error to be carried")
		}
	})
}

func TestParseChannel(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2", 2, true},
		{"10", 10, true},
		{"3.0", 3, true},
		{"3.5", 0, false},
		{"", 0, false},
		{"two", 0, false},
	}
	for _, c := range cases {
		got, ok := parseChannel(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("parseChannel(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestProcessedName(t *testing.T) {
	if got := ProcessedName("/in/slide_A.xlsx"); got != "slide_A_processed.xlsx" {
		t.Errorf("Unexpected processed name %q", got)
	}
	if !IsProcessed("slide_A_processed.xlsx") {
		t.Error("Expected processed name to be recognized")
	}
	if IsProcessed("slide_A.xlsx") {
		t.Error("Plain input must not be recognized as processed")
	}
}

func TestWriteProcessed(t *testing.T) {
	dir := t.TempDir()
	doc, err := Read(standardInput(t, dir))
	if err != nil {
		t.Fatalf("Failed to read input: %v", err)
	}

	metrics := []models.ChannelMetrics{
		{Channel: 2, Threshold: 500, Area: 16900, PositiveArea: 2000.123456, TissueArea: 169, PositiveAreaInTissue: 169, PositiveFraction: 11.8349317, PositiveFractionInTissue: 100},
		{Channel: 3, Threshold: 1300, Area: 16900, PositiveArea: 0, TissueArea: 169, PositiveAreaInTissue: 0, PositiveFraction: 0, PositiveFractionInTissue: 0},
		{Channel: 5, Threshold: 1650, Area: 16900, PositiveArea: 16900, TissueArea: 169, PositiveAreaInTissue: 169, PositiveFraction: 100, PositiveFractionInTissue: 100},
	}

	outDir := filepath.Join(dir, "results")
	outPath, err := WriteProcessed(doc, metrics, outDir)
	if err != nil {
		t.Fatalf("Failed to write processed workbook: %v", err)
	}
	if filepath.Base(outPath) != "slide_A_processed.xlsx" {
		t.Errorf("Unexpected output name %q", outPath)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		t.Fatalf("Failed to reopen output: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Thresholds")
	if err != nil {
		t.Fatalf("Failed to read output thresholds: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d rows", len(rows))
	}

	t.Run("HeaderLayout", func(t *testing.T) {
		header := rows[0]
		wantStart := []string{"Channel #", "Marker", "Threshold"}
		for i, w := range wantStart {
			if header[i] != w {
				t.Errorf("Header column %d: expected %q, got %q", i, w, header[i])
			}
		}
		for i, w := range MetricColumns {
			if header[3+i] != w {
				t.Errorf("Metric column %d: expected %q, got %q", i, w, header[3+i])
			}
		}
	})

	t.Run("RoundingApplied", func(t *testing.T) {
		// channel 2 row: positive area rounded to 2 decimals,
		// fraction to 5
		if rows[1][4] != "2000.12" {
			t.Errorf("Expected positive area 2000.12, got %q", rows[1][4])
		}
		if rows[1][7] != "11.83493" {
			t.Errorf("Expected positive fraction 11.83493, got %q", rows[1][7])
		}
	})

	t.Run("LabelsPreserved", func(t *testing.T) {
		if rows[3][1] != "FoxP3" {
			t.Errorf("Expected label FoxP3 on third row, got %q", rows[3][1])
		}
	})

	t.Run("FilesSheetUntouched", func(t *testing.T) {
		files, err := f.GetRows("Files")
		if err != nil {
			t.Fatalf("Failed to read Files sheet: %v", err)
		}
		if len(files) != 2 || files[1][0] != "Slide A" {
			t.Errorf("Files sheet was modified: %v", files)
		}
	})

	t.Run("RereadAsDocument", func(t *testing.T) {
		processed, err := Read(outPath)
		if err != nil {
			t.Fatalf("Processed output must be readable: %v", err)
		}
		if len(processed.Descriptor.Thresholds) != 3 {
			t.Errorf("Expected 3 thresholds in processed output, got %d", len(processed.Descriptor.Thresholds))
		}
	})
}
