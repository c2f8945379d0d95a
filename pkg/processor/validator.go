// Package processor implements the core of slideposarea: pre-flight
// validation of input workbooks and per-slide computation of positive-area
// metrics. The surrounding CLI, batch walking, and report generation call
// into this package with file paths and receive either issue lists or
// completed metric tables.
package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"slideposarea/internal/models"
	"slideposarea/pkg/config"
	"slideposarea/pkg/slide"
	"slideposarea/pkg/workbook"
)

// Validator runs the pre-flight checks over one input workbook. Every
// problem it can detect is reported before any expensive processing
// starts, so a batch's worth of inputs can be fixed in one pass.
type Validator struct {
	// Analysis supplies the reference channel number and working
	// pyramid level the checks are made against.
	Analysis config.Analysis

	// OutputDir is the directory processed output will be written to.
	OutputDir string

	// Open opens the slide image. Defaults to slide.Open.
	Open slide.OpenFunc

	Log zerolog.Logger
}

// NewValidator returns a Validator over the pyramidal TIFF reader.
func NewValidator(cfg config.Analysis, outputDir string, log zerolog.Logger) *Validator {
	return &Validator{Analysis: cfg, OutputDir: outputDir, Open: slide.Open, Log: log}
}

// Validate checks one input workbook and returns every problem found, in
// check order. An empty result means the workbook is safe to process.
//
// Checks run in a fixed order so structural failures short-circuit checks
// that would otherwise crash: a workbook that cannot be parsed, or whose
// image path does not exist, ends validation early. After a failed image
// open, the reference-channel check still runs (it only inspects the
// table), but channel-range checks are skipped since there is no channel
// count to compare against.
func (v *Validator) Validate(path string) []Issue {
	var issues []Issue

	doc, err := workbook.Read(path)
	if err != nil {
		return append(issues, readIssues(err)...)
	}

	// The image path must exist before anything image-related can run.
	if doc.Descriptor.ImagePath == "" {
		return append(issues, Issue{Path, "Image file path is empty"})
	}
	if _, err := os.Stat(doc.Descriptor.ImagePath); err != nil {
		return append(issues, Issue{Path, fmt.Sprintf("Image file does not exist: %s", doc.Descriptor.ImagePath)})
	}

	img, err := v.open()(doc.Descriptor.ImagePath)
	if err != nil {
		v.Log.Debug().Err(err).Str("image", doc.Descriptor.ImagePath).Msg("image open failed")
		issues = append(issues, Issue{ImageOpen, fmt.Sprintf("Cannot read image file: %v", err)})
		img = nil
	} else {
		defer img.Close()
	}

	// The reference channel requirement only inspects the table, so it
	// is reported even when the image could not be opened.
	if !hasChannel(doc.Descriptor.Thresholds, v.Analysis.ReferenceChannel) {
		issues = append(issues, Issue{MissingReferenceChannel, fmt.Sprintf(
			"Channel #%d is required for tissue region definition but not found in 'Thresholds' sheet",
			v.Analysis.ReferenceChannel)})
	}

	if img != nil {
		issues = append(issues, v.channelIssues(doc, img)...)
	}

	if err := checkOutputDir(v.OutputDir); err != nil {
		issues = append(issues, Issue{OutputPath, fmt.Sprintf("Cannot write to output directory %s: %v", v.OutputDir, err)})
	}
	return issues
}

// channelIssues verifies every thresholds entry against the opened image:
// the working pyramid level must exist, and each channel number must be an
// integer in [1, channels].
func (v *Validator) channelIssues(doc *workbook.Document, img slide.Image) []Issue {
	var issues []Issue
	if img.Levels() <= v.Analysis.PyramidLevel {
		return append(issues, Issue{ImageOpen, fmt.Sprintf("Image does not have pyramid level %d", v.Analysis.PyramidLevel)})
	}

	for _, ci := range doc.CellIssues {
		switch ci.Reason {
		case workbook.EmptyChannel:
			issues = append(issues, Issue{ChannelRange, fmt.Sprintf("Row %d in 'Thresholds' sheet has empty Channel #", ci.Row)})
		case workbook.NonIntegerChannel:
			issues = append(issues, Issue{ChannelRange, fmt.Sprintf("Row %d in 'Thresholds' sheet has non-integer Channel # (%s)", ci.Row, ci.Value)})
		case workbook.BadThreshold:
			issues = append(issues, Issue{ChannelRange, fmt.Sprintf("Row %d in 'Thresholds' sheet has non-numeric Threshold (%s)", ci.Row, ci.Value)})
		}
	}

	channels := img.Channels()
	for _, t := range doc.Descriptor.Thresholds {
		if t.Channel < 1 || t.Channel > channels {
			issues = append(issues, Issue{ChannelRange, fmt.Sprintf(
				"Channel # %d is invalid (image has %d channels: 1-%d)", t.Channel, channels, channels)})
		}
	}
	return issues
}

// readIssues maps workbook read failures onto validation issues.
func readIssues(err error) []Issue {
	var format *workbook.FormatError
	if errors.As(err, &format) {
		if format.Err != nil {
			return []Issue{{Format, fmt.Sprintf("Cannot read Excel file: %v", format.Err)}}
		}
		var issues []Issue
		for _, s := range format.MissingSheets {
			issues = append(issues, Issue{Format, fmt.Sprintf("Missing '%s' sheet", s)})
		}
		for _, c := range format.MissingColumns {
			issues = append(issues, Issue{Format, fmt.Sprintf("'%s' sheet missing '%s' column", c.Sheet, c.Column)})
		}
		return issues
	}
	var cardinality *workbook.CardinalityError
	if errors.As(err, &cardinality) {
		return []Issue{{Cardinality, cardinality.Error()}}
	}
	return []Issue{{Format, fmt.Sprintf("Cannot read Excel file: %v", err)}}
}

func hasChannel(thresholds []models.ChannelThreshold, channel int) bool {
	for _, t := range thresholds {
		if t.Channel == channel {
			return true
		}
	}
	return false
}

// checkOutputDir ensures the output directory exists (creating it if
// needed) and is writable, probing with a throwaway file.
func checkOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}

func (v *Validator) open() slide.OpenFunc {
	if v.Open != nil {
		return v.Open
	}
	return slide.Open
}
