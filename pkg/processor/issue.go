package processor

// Kind classifies a validation issue. Kinds map one-to-one onto the checks
// the validator performs, so callers can count or filter without parsing
// messages.
type Kind int

const (
	// Format: the workbook does not have the expected two-table shape.
	Format Kind = iota

	// Cardinality: the "Files" sheet does not contain exactly one row.
	Cardinality

	// Path: the referenced image file is missing or unset.
	Path

	// ImageOpen: the image exists but could not be opened as a pyramid.
	ImageOpen

	// MissingReferenceChannel: the thresholds table has no entry for the
	// tissue reference channel.
	MissingReferenceChannel

	// ChannelRange: a thresholds entry names a channel outside the
	// image's valid 1-based range, or one that is not an integer.
	ChannelRange

	// OutputPath: the output directory cannot be created or written.
	OutputPath
)

func (k Kind) String() string {
	switch k {
	case Format:
		return "format"
	case Cardinality:
		return "cardinality"
	case Path:
		return "path"
	case ImageOpen:
		return "image-open"
	case MissingReferenceChannel:
		return "missing-reference-channel"
	case ChannelRange:
		return "channel-range"
	case OutputPath:
		return "output-path"
	default:
		return "unknown"
	}
}

// Issue is one human-readable validation problem. The validator reports
// issues as values rather than errors: an input with problems is an
// expected condition, and the caller needs the full list, not the first.
type Issue struct {
	Kind    Kind
	Message string
}

func (i Issue) String() string { return i.Message }
