// Package slide provides read access to multi-resolution, multi-channel
// whole-slide images. The processing core only depends on the Image
// interface; the pyramidal TIFF implementation lives in tiff.go and test
// doubles can stand in for it.
package slide

import "fmt"

// Plane is one decoded channel plane at one resolution level, as a
// row-major float64 raster of raw intensity values.
type Plane struct {
	// Pix holds Width*Height samples, row-major.
	Pix []float64

	// Width and Height are the plane dimensions in pixels.
	Width  int
	Height int
}

// NewPlane allocates a zeroed plane of the given dimensions.
func NewPlane(width, height int) *Plane {
	return &Plane{
		Pix:    make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the sample at (x, y). No bounds checking beyond the slice's own.
func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

// Set stores v at (x, y).
func (p *Plane) Set(x, y int, v float64) {
	p.Pix[y*p.Width+x] = v
}

// Image is an opened whole-slide image: a pyramid of resolution levels,
// each holding the same set of channel planes. Level 0 is full resolution
// and channel indices are 0-based at this boundary; callers dealing in
// user-facing 1-based channel numbers convert before calling Plane.
type Image interface {
	// Levels returns the number of pyramid levels.
	Levels() int

	// Channels returns the number of channels per level.
	Channels() int

	// Plane decodes one channel plane at one level.
	Plane(level, channel int) (*Plane, error)

	// Close releases the image.
	Close() error
}

// OpenFunc opens a whole-slide image by path. The processing core takes an
// OpenFunc so tests can substitute in-memory images for pyramidal TIFFs.
type OpenFunc func(path string) (Image, error)

// checkPlaneArgs validates a Plane request against the image geometry.
func checkPlaneArgs(img Image, level, channel int) error {
	if level < 0 || level >= img.Levels() {
		return fmt.Errorf("pyramid level %d out of range (image has %d levels)", level, img.Levels())
	}
	if channel < 0 || channel >= img.Channels() {
		return fmt.Errorf("channel index %d out of range (image has %d channels)", channel, img.Channels())
	}
	return nil
}
