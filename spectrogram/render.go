package spectrogram

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"gonum.org/v1/gonum/floats"
)

// renderPNG writes log-mel frames as a PNG with time on the X axis and mel
// bands on the Y axis, low frequencies at the bottom. Intensities are
// min-max normalized over the whole image so the full color range is used
// regardless of recording loudness.
func renderPNG(frames [][]float64, path string) error {
	if len(frames) == 0 || len(frames[0]) == 0 {
		return fmt.Errorf("nothing to render")
	}

	width := len(frames)
	height := len(frames[0])

	lo, hi := floats.Min(frames[0]), floats.Max(frames[0])
	for _, frame := range frames[1:] {
		if m := floats.Min(frame); m < lo {
			lo = m
		}
		if m := floats.Max(frame); m > hi {
			hi = m
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			val := uint8(255 * (frames[x][y] - lo) / span)
			img.SetRGBA(x, height-y-1, color.RGBA{R: val, G: val, B: val, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %v", path, err)
	}
	return f.Close()
}
