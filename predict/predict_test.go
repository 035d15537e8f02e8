package predict

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/Akalya1854/voice-traits/labelenc"
	"github.com/Akalya1854/voice-traits/nn"
	"github.com/Akalya1854/voice-traits/spectrogram"
)

func writeTestWav(t *testing.T, path string, seconds float64, rate int) {
	t.Helper()

	total := int(seconds * float64(rate))
	pos := 0
	streamer := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		n := 0
		for i := range samples {
			if pos >= total {
				break
			}
			v := 0.5 * math.Sin(2*math.Pi*440*float64(pos)/float64(rate))
			samples[i][0] = v
			samples[i][1] = v
			pos++
			n++
		}
		return n, true
	})

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test wav: %v", err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, streamer, format); err != nil {
		t.Fatalf("failed to encode test wav: %v", err)
	}
}

func testStore(t *testing.T) *labelenc.Store {
	t.Helper()
	store, err := labelenc.NewStore(
		[]string{"teens", "twenties", "thirties"},
		[]string{"female", "male"},
		[]string{"canada", "england", "scotland", "us"},
	)
	if err != nil {
		t.Fatalf("failed to build encoders: %v", err)
	}
	return store
}

func testPredictor(t *testing.T) *Predictor {
	t.Helper()
	rng := rand.New(rand.NewSource(9))
	model, err := nn.NewMultiHead("mobile", nn.HeadSizes{Age: 3, Gender: 2, Accent: 4}, 0, rng)
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}
	gen, err := spectrogram.NewGenerator(spectrogram.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to build generator: %v", err)
	}
	p, err := NewPredictor(model, testStore(t), gen)
	if err != nil {
		t.Fatalf("failed to build predictor: %v", err)
	}
	return p
}

func TestNewPredictorRejectsNilComponents(t *testing.T) {
	if _, err := NewPredictor(nil, nil, nil); err == nil {
		t.Error("expected error for nil components")
	}
}

func TestNewPredictorRejectsEncoderMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	model, err := nn.NewMultiHead("mobile", nn.HeadSizes{Age: 5, Gender: 2, Accent: 4}, 0, rng)
	if err != nil {
		t.Fatalf("failed to build model: %v", err)
	}
	gen, err := spectrogram.NewGenerator(spectrogram.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to build generator: %v", err)
	}

	// The age head expects 5 classes but the encoder only knows 3.
	if _, err := NewPredictor(model, testStore(t), gen); err == nil {
		t.Error("expected error for head/encoder class count mismatch")
	}
}

func TestPredictMissingAudioFile(t *testing.T) {
	p := testPredictor(t)
	if _, err := p.Predict(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("expected error for missing audio file")
	}
}

func TestPredictReturnsKnownCategories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping inference test in short mode")
	}

	p := testPredictor(t)
	audioPath := filepath.Join(t.TempDir(), "voice.wav")
	writeTestWav(t, audioPath, 1.0, 22050)

	pred, err := p.Predict(audioPath)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	contains := func(values []string, v string) bool {
		for _, c := range values {
			if c == v {
				return true
			}
		}
		return false
	}
	store := testStore(t)
	if !contains(store.Age.Classes(), pred.Age) {
		t.Errorf("age %q not a known category", pred.Age)
	}
	if !contains(store.Gender.Classes(), pred.Gender) {
		t.Errorf("gender %q not a known category", pred.Gender)
	}
	if !contains(store.Accent.Classes(), pred.Accent) {
		t.Errorf("accent %q not a known category", pred.Accent)
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping inference test in short mode")
	}

	p := testPredictor(t)
	audioPath := filepath.Join(t.TempDir(), "voice.wav")
	writeTestWav(t, audioPath, 0.5, 22050)

	first, err := p.Predict(audioPath)
	if err != nil {
		t.Fatalf("first predict failed: %v", err)
	}
	second, err := p.Predict(audioPath)
	if err != nil {
		t.Fatalf("second predict failed: %v", err)
	}

	if *first != *second {
		t.Errorf("same audio produced different predictions: %+v vs %+v", first, second)
	}
}
