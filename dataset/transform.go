package dataset

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"os"

	_ "image/jpeg"
	_ "image/png"

	"github.com/Akalya1854/voice-traits/tensor"
)

// Normalization statistics matching the backbone's training distribution.
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// ImageSize is the square resolution every spectrogram image is resized to
// before entering the classifier.
const ImageSize = 64

// Transform maps a decoded image to a [3, size, size] input tensor. The
// training variant randomizes flip, rotation and photometric jitter per
// call; the evaluation variant is deterministic.
type Transform struct {
	size     int
	training bool
	rng      *rand.Rand
}

// NewTrainTransform builds the stochastic training pipeline.
func NewTrainTransform(size int, rng *rand.Rand) *Transform {
	return &Transform{size: size, training: true, rng: rng}
}

// NewEvalTransform builds the deterministic evaluation pipeline: resize
// and normalization only. Inference must use this exact pipeline or
// accuracy silently degrades.
func NewEvalTransform(size int) *Transform {
	return &Transform{size: size}
}

// LoadImage decodes a PNG or JPEG image from disk.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %v", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %v", path, err)
	}
	return img, nil
}

// Apply runs the pipeline and returns a CHW tensor.
func (t *Transform) Apply(img image.Image) (*tensor.Tensor, error) {
	rgba := resizeRGBA(img, t.size)

	if t.training {
		if t.randFloat() < 0.5 {
			rgba = flipHorizontal(rgba)
		}
		angle := (t.randFloat()*2 - 1) * 15 * math.Pi / 180
		rgba = rotate(rgba, angle)
	}

	brightness, contrast := float32(1), float32(1)
	if t.training {
		brightness = float32(1 + 0.2*(t.randFloat()*2-1))
		contrast = float32(1 + 0.2*(t.randFloat()*2-1))
	}

	size := t.size
	data := make([]float32, 3*size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := rgba.RGBAAt(x, y)
			px := [3]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
			for ch := 0; ch < 3; ch++ {
				v := px[ch]
				if t.training {
					v = (v-0.5)*contrast + 0.5
					v *= brightness
					if v < 0 {
						v = 0
					}
					if v > 1 {
						v = 1
					}
				}
				data[ch*size*size+y*size+x] = (v - channelMean[ch]) / channelStd[ch]
			}
		}
	}

	return tensor.NewTensor([]int{3, size, size}, tensor.Float32, data)
}

func (t *Transform) randFloat() float64 {
	if t.rng != nil {
		return t.rng.Float64()
	}
	return rand.Float64()
}

// resizeRGBA resizes with nearest-neighbor sampling, which keeps the
// spectrogram's energy bands crisp.
func resizeRGBA(img image.Image, size int) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(image.Rect(0, 0, size, size))

	scaleX := float64(width) / float64(size)
	scaleY := float64(height) / float64(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + int(float64(x)*scaleX)
			srcY := bounds.Min.Y + int(float64(y)*scaleY)
			if srcX >= bounds.Max.X {
				srcX = bounds.Max.X - 1
			}
			if srcY >= bounds.Max.Y {
				srcY = bounds.Max.Y - 1
			}
			out.Set(x, y, img.At(srcX, srcY))
		}
	}
	return out
}

func flipHorizontal(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.SetRGBA(x, y, img.RGBAAt(width-x-1, y))
		}
	}
	return out
}

// rotate maps each output pixel back through the inverse rotation around
// the image center. Pixels that fall outside the source stay black.
func rotate(img *image.RGBA, angle float64) *image.RGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)

	cx, cy := float64(width)/2, float64(height)/2
	sin, cos := math.Sin(-angle), math.Cos(-angle)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			srcX := int(math.Round(cx + dx*cos - dy*sin))
			srcY := int(math.Round(cy + dx*sin + dy*cos))
			if srcX < 0 || srcX >= width || srcY < 0 || srcY >= height {
				out.SetRGBA(x, y, color.RGBA{A: 255})
				continue
			}
			out.SetRGBA(x, y, img.RGBAAt(srcX, srcY))
		}
	}
	return out
}
