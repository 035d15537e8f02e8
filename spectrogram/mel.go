package spectrogram

import (
	"fmt"
	"math"

	"github.com/r9y9/gossp/stft"
)

// Config fixes the rendering parameters of the spectrogram pipeline.
// Changing any of these invalidates every checkpoint trained on images
// rendered with the old values.
type Config struct {
	SampleRate int
	NumMels    int
	FrameShift int
	FFTSize    int
	FreqMin    float64
	FreqMax    float64
}

// DefaultConfig is the rendering setup used across the repository.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		NumMels:    64,
		FrameShift: 256,
		FFTSize:    1024,
		FreqMin:    0,
		FreqMax:    8000,
	}
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.NumMels <= 0 {
		return fmt.Errorf("mel band count must be positive, got %d", c.NumMels)
	}
	if c.FFTSize <= 0 || c.FrameShift <= 0 {
		return fmt.Errorf("fft size and frame shift must be positive, got %d and %d", c.FFTSize, c.FrameShift)
	}
	if c.FreqMax <= c.FreqMin {
		return fmt.Errorf("frequency range [%f, %f] is empty", c.FreqMin, c.FreqMax)
	}
	return nil
}

// Generator converts waveforms to log-mel spectrogram frames and renders
// them as images.
type Generator struct {
	cfg  Config
	bank [][]float64
}

func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:  cfg,
		bank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.FreqMin, cfg.FreqMax),
	}, nil
}

// Generate renders the audio file at audioPath as a mel-spectrogram PNG at
// outputPath and returns outputPath. The caller owns the output file and
// is responsible for deleting it when temporary.
func (g *Generator) Generate(audioPath, outputPath string) (string, error) {
	samples, err := DecodeMono(audioPath, g.cfg.SampleRate)
	if err != nil {
		return "", err
	}

	frames, err := g.FromSamples(samples)
	if err != nil {
		return "", fmt.Errorf("failed to compute spectrogram for %s: %v", audioPath, err)
	}

	if err := renderPNG(frames, outputPath); err != nil {
		return "", fmt.Errorf("failed to render spectrogram for %s: %v", audioPath, err)
	}
	return outputPath, nil
}

// FromSamples computes log-mel frames from a mono waveform. The result is
// indexed [frame][mel band].
func (g *Generator) FromSamples(samples []float64) ([][]float64, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty waveform")
	}

	buf := padToFrames(samples, g.cfg.FFTSize, g.cfg.FrameShift)
	spectrum := stft.New(g.cfg.FrameShift, g.cfg.FFTSize).STFT(buf)
	if len(spectrum) == 0 {
		return nil, fmt.Errorf("waveform too short for one frame")
	}

	bins := g.cfg.FFTSize/2 + 1
	frames := make([][]float64, len(spectrum))
	power := make([]float64, bins)
	for i, frame := range spectrum {
		for j := 0; j < bins; j++ {
			re, im := real(frame[j]), imag(frame[j])
			power[j] = re*re + im*im
		}
		frames[i] = applyFilterBank(power, g.bank)
		spectralNormalize(frames[i])
	}
	return frames, nil
}

// padToFrames zero-pads the buffer so at least one full analysis window
// fits and the tail is not truncated.
func padToFrames(buf []float64, fftSize, frameShift int) []float64 {
	if len(buf) < fftSize {
		padded := make([]float64, fftSize)
		copy(padded, buf)
		return padded
	}
	if rem := (len(buf) - fftSize) % frameShift; rem != 0 {
		padded := make([]float64, len(buf)+frameShift-rem)
		copy(padded, buf)
		return padded
	}
	return buf
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank builds triangular filters equally spaced on the mel scale,
// each indexed over fftSize/2+1 spectrum bins.
func melFilterBank(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	lowMel := hzToMel(lowFreq)
	highMel := hzToMel(highFreq)

	melPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range melPoints {
		melPoints[i] = lowMel + float64(i)*melStep
	}

	binPoints := make([]int, len(melPoints))
	for i, mel := range melPoints {
		bin := int(math.Floor((float64(fftSize)+1.0)*melToHz(mel)/float64(sampleRate) + 0.5))
		if bin > fftSize/2 {
			bin = fftSize / 2
		}
		binPoints[i] = bin
	}

	bank := make([][]float64, numFilters)
	for m := 1; m <= numFilters; m++ {
		filter := make([]float64, fftSize/2+1)
		left, center, right := binPoints[m-1], binPoints[m], binPoints[m+1]
		for k := left; k < center && k < len(filter); k++ {
			if center != left {
				filter[k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k < right && k < len(filter); k++ {
			if right != center {
				filter[k] = float64(right-k) / float64(right-center)
			}
		}
		bank[m-1] = filter
	}
	return bank
}

func applyFilterBank(powerSpectrum []float64, bank [][]float64) []float64 {
	out := make([]float64, len(bank))
	for i, filter := range bank {
		var sum float64
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		out[i] = sum
	}
	return out
}

// spectralNormalize clamps tiny energies and moves to log scale in place.
func spectralNormalize(frame []float64) {
	for i := range frame {
		if frame[i] < 1e-5 {
			frame[i] = 1e-5
		}
		frame[i] = math.Log(frame[i])
	}
}
