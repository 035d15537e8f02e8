// Package spectrogram turns audio recordings into the mel-spectrogram
// images the classifier consumes. The rendering parameters are fixed:
// training-time dataset preparation and inference-time generation must
// produce identical images for the same recording.
package spectrogram

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// DecodeMono reads an audio file, mixes it down to one channel and
// resamples it to targetRate. WAV, FLAC and MP3 are supported, chosen by
// file extension.
func DecodeMono(path string, targetRate int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file %s: %v", path, err)
	}
	defer f.Close()

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		stream, format, err = wav.Decode(f)
	case ".flac":
		stream, format, err = flac.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	default:
		return nil, fmt.Errorf("unsupported audio format %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v", path, err)
	}
	defer stream.Close()

	var streamer beep.Streamer = stream
	if int(format.SampleRate) != targetRate {
		streamer = beep.Resample(4, format.SampleRate, beep.SampleRate(targetRate), stream)
	}

	samples := drainMono(streamer)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded from %s", path)
	}
	return samples, nil
}

func drainMono(streamer beep.Streamer) []float64 {
	var out []float64
	buf := make([][2]float64, 512)
	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}
	return out
}
