package processor

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"slideposarea/internal/models"
	"slideposarea/pkg/config"
	"slideposarea/pkg/filter"
	"slideposarea/pkg/slide"
)

// ErrChannelDecode marks a plane decode failure during processing. The
// validator is expected to have excluded such inputs already; this is the
// defensive path, fatal for the one slide rather than silently partial.
var ErrChannelDecode = errors.New("cannot decode channel")

// Engine computes the per-channel positive-area metrics for one validated
// slide descriptor. Engines hold no per-slide state; one engine may be
// reused across slides, and separate slides may be processed concurrently
// by separate calls since each Process owns its image handle and mask.
type Engine struct {
	// Analysis supplies the working pyramid level, smoothing sigma,
	// pixel size, and reference channel.
	Analysis config.Analysis

	// Open opens the slide image. Defaults to slide.Open.
	Open slide.OpenFunc

	Log zerolog.Logger
}

// NewEngine returns an Engine over the pyramidal TIFF reader.
func NewEngine(cfg config.Analysis, log zerolog.Logger) *Engine {
	return &Engine{Analysis: cfg, Open: slide.Open, Log: log}
}

// Process opens the descriptor's image, derives the tissue mask from the
// reference channel, and returns one ChannelMetrics per configured
// threshold, in input order. Any failure aborts the whole slide; partial
// results are never returned.
func (e *Engine) Process(desc *models.SlideDescriptor) ([]models.ChannelMetrics, error) {
	img, err := e.openFunc()(desc.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", desc.ImagePath, err)
	}
	defer img.Close()

	level := e.Analysis.PyramidLevel
	if img.Levels() <= level {
		return nil, fmt.Errorf("image %s does not have pyramid level %d", desc.ImagePath, level)
	}

	refThreshold, ok := referenceThreshold(desc.Thresholds, e.Analysis.ReferenceChannel)
	if !ok {
		return nil, fmt.Errorf("no threshold configured for reference channel %d", e.Analysis.ReferenceChannel)
	}

	pixelArea := e.Analysis.PixelSize() * e.Analysis.PixelSize()

	// The tissue mask comes from the smoothed reference channel. The
	// smoothed plane is kept so the reference channel's own metrics row
	// reuses it bit-identically instead of decoding twice.
	refPlane, err := e.smoothedPlane(img, e.Analysis.ReferenceChannel)
	if err != nil {
		return nil, err
	}
	tissueMask := threshold(refPlane, refThreshold)
	tissueArea := float64(countTrue(tissueMask)) * pixelArea

	e.Log.Debug().
		Str("slide", desc.SlideName).
		Float64("tissueAreaUm2", tissueArea).
		Msg("tissue mask built")

	metrics := make([]models.ChannelMetrics, 0, len(desc.Thresholds))
	for _, t := range desc.Thresholds {
		smoothed := refPlane
		if t.Channel != e.Analysis.ReferenceChannel {
			smoothed, err = e.smoothedPlane(img, t.Channel)
			if err != nil {
				return nil, err
			}
		}

		positive := threshold(smoothed, t.Threshold)
		positiveInTissue := countBoth(positive, tissueMask)

		m := models.ChannelMetrics{
			Channel:              t.Channel,
			Threshold:            t.Threshold,
			Area:                 float64(len(smoothed)) * pixelArea,
			PositiveArea:         float64(countTrue(positive)) * pixelArea,
			TissueArea:           tissueArea,
			PositiveAreaInTissue: float64(positiveInTissue) * pixelArea,
		}
		// divide before scaling so an exact cover gives exactly 100.0
		m.PositiveFraction = 100 * (m.PositiveArea / m.Area)
		m.PositiveFractionInTissue = 100 * (m.PositiveAreaInTissue / m.TissueArea)
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// smoothedPlane decodes one channel (1-based) at the working level and
// applies the Gaussian. The 1-based to 0-based conversion happens here and
// nowhere else.
func (e *Engine) smoothedPlane(img slide.Image, channel int) ([]float64, error) {
	p, err := img.Plane(e.Analysis.PyramidLevel, channel-1)
	if err != nil {
		return nil, fmt.Errorf("%w %d: %v", ErrChannelDecode, channel, err)
	}
	return filter.Gaussian(p.Pix, p.Width, p.Height, e.Analysis.GaussianSigma), nil
}

func referenceThreshold(thresholds []models.ChannelThreshold, channel int) (float64, bool) {
	for _, t := range thresholds {
		if t.Channel == channel {
			return t.Threshold, true
		}
	}
	return 0, false
}

func threshold(pix []float64, cutoff float64) []bool {
	mask := make([]bool, len(pix))
	for i, v := range pix {
		mask[i] = v > cutoff
	}
	return mask
}

func countTrue(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}

func countBoth(a, b []bool) int {
	n := 0
	for i, v := range a {
		if v && b[i] {
			n++
		}
	}
	return n
}

func (e *Engine) openFunc() slide.OpenFunc {
	if e.Open != nil {
		return e.Open
	}
	return slide.Open
}
