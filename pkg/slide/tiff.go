package slide

import (
	"fmt"
	"image"
	"image/color"
	"os"

	tiff "github.com/chai2010/tiff"
)

// TIFF pyramid layout: whole-slide scanners write one IFD per channel
// plane, full-resolution planes first, then the same channels again at
// each coarser level. Pages are grouped into levels by their pixel
// dimensions; every level must carry the same number of pages.

// tiffImage is a pyramidal TIFF opened via Open. All pages are decoded up
// front; whole-slide pyramids above level 0 are small enough for that.
type tiffImage struct {
	// levels[level][channel] is one decoded page.
	levels [][]image.Image
}

// Open reads a pyramidal multi-channel TIFF from disk. It fails if the
// file cannot be decoded or if its pages do not form a consistent pyramid.
func Open(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	decoded, _, err := tiff.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	// Flatten IFDs and their sub-IFDs into one page sequence.
	var pages []image.Image
	for _, group := range decoded {
		pages = append(pages, group...)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("decoding %s: no pages", path)
	}

	levels, err := groupLevels(pages)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &tiffImage{levels: levels}, nil
}

// groupLevels splits a page sequence into pyramid levels: consecutive
// pages with identical dimensions belong to the same level, and all levels
// must hold the same number of pages (the channel count).
func groupLevels(pages []image.Image) ([][]image.Image, error) {
	var levels [][]image.Image
	for _, page := range pages {
		n := len(levels)
		if n > 0 && sameSize(levels[n-1][0], page) {
			levels[n-1] = append(levels[n-1], page)
			continue
		}
		levels = append(levels, []image.Image{page})
	}

	channels := len(levels[0])
	for i, level := range levels {
		if len(level) != channels {
			return nil, fmt.Errorf("level %d has %d pages, level 0 has %d", i, len(level), channels)
		}
	}
	return levels, nil
}

func sameSize(a, b image.Image) bool {
	return a.Bounds().Size() == b.Bounds().Size()
}

func (t *tiffImage) Levels() int {
	return len(t.levels)
}

func (t *tiffImage) Channels() int {
	return len(t.levels[0])
}

func (t *tiffImage) Plane(level, channel int) (*Plane, error) {
	if err := checkPlaneArgs(t, level, channel); err != nil {
		return nil, err
	}
	return planeFromImage(t.levels[level][channel]), nil
}

func (t *tiffImage) Close() error {
	t.levels = nil
	return nil
}

// planeFromImage converts a decoded page to raw float64 intensities.
// Grayscale pages keep their native sample values (0-255 or 0-65535);
// anything else falls back to the 16-bit luma of the color model.
func planeFromImage(img image.Image) *Plane {
	bounds := img.Bounds()
	p := NewPlane(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < p.Height; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+p.Width]
			for x, v := range row {
				p.Pix[y*p.Width+x] = float64(v)
			}
		}
	case *image.Gray16:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				i := y*src.Stride + 2*x
				p.Pix[y*p.Width+x] = float64(uint16(src.Pix[i])<<8 | uint16(src.Pix[i+1]))
			}
		}
	default:
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				c := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				p.Pix[y*p.Width+x] = float64(c.Y)
			}
		}
	}
	return p
}
