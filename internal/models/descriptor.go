package models

// SlideDescriptor describes one slide to be analyzed: the slide identity,
// the whole-slide image it was scanned into, and the per-channel thresholds
// the user configured for it. Descriptors are read from an input workbook
// and never mutated afterwards.
type SlideDescriptor struct {
	// SlideName is the user-facing identifier of the slide.
	SlideName string

	// ImagePath is the path to the multi-resolution, multi-channel
	// whole-slide image on disk.
	ImagePath string

	// Thresholds holds one entry per channel to analyze, in the order
	// they appear in the input workbook.
	Thresholds []ChannelThreshold
}

// ChannelThreshold is one row of the thresholds table: a channel to analyze
// and the intensity cutoff above which a pixel counts as positive.
type ChannelThreshold struct {
	// Channel is the 1-based channel number as the user sees it.
	// Channel numbers are unique within a descriptor.
	Channel int

	// Label is an optional marker/stain name. It is carried through to
	// the output unchanged and plays no part in the computation.
	Label string

	// Threshold is the intensity cutoff for this channel, compared
	// against the smoothed channel plane.
	Threshold float64
}

// ChannelMetrics holds the six area-based metrics computed for one channel
// of one slide. All areas are in square microns at the working resolution.
// Instances are derived once per processing run and immutable afterwards.
type ChannelMetrics struct {
	// Channel is the 1-based channel number this row describes.
	Channel int

	// Threshold is the cutoff the metrics were computed with.
	Threshold float64

	// Area is the total imaged area covered by the channel plane.
	Area float64

	// PositiveArea is the area of pixels whose smoothed intensity
	// exceeds Threshold, over the whole plane.
	PositiveArea float64

	// TissueArea is the area of the tissue mask derived from the
	// reference channel. It is identical across all channels of a slide.
	TissueArea float64

	// PositiveAreaInTissue is the area of positive pixels that also lie
	// inside the tissue mask.
	PositiveAreaInTissue float64

	// PositiveFraction is 100 * PositiveArea / Area.
	PositiveFraction float64

	// PositiveFractionInTissue is 100 * PositiveAreaInTissue / TissueArea.
	PositiveFractionInTissue float64
}
