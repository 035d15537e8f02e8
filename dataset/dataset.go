package dataset

import (
	"fmt"
	"math/rand"

	"github.com/Akalya1854/voice-traits/labelenc"
	"github.com/Akalya1854/voice-traits/tensor"
)

// Sample is one training or evaluation unit: an image path plus the three
// dense-encoded attribute labels in fixed order age, gender, accent.
// Samples are built once from manifest rows and never mutated.
type Sample struct {
	ImagePath   string
	AgeLabel    int
	GenderLabel int
	AccentLabel int
}

// Dataset serves transformed spectrogram images with their label triples.
type Dataset struct {
	samples   []Sample
	transform *Transform
}

// New encodes manifest rows against the given encoders and wraps them with
// a transform pipeline.
func New(rows []Row, encoders *labelenc.Store, transform *Transform) (*Dataset, error) {
	samples := make([]Sample, len(rows))
	for i, row := range rows {
		age, err := encoders.Age.Encode(row.Age)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", i, err)
		}
		gender, err := encoders.Gender.Encode(row.Gender)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", i, err)
		}
		accent, err := encoders.Accent.Encode(row.Accent)
		if err != nil {
			return nil, fmt.Errorf("row %d: %v", i, err)
		}
		samples[i] = Sample{
			ImagePath:   row.ImagePath,
			AgeLabel:    age,
			GenderLabel: gender,
			AccentLabel: accent,
		}
	}
	return &Dataset{samples: samples, transform: transform}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.samples)
}

// Get loads and transforms the sample at index, returning the input tensor
// and the label triple in order age, gender, accent.
func (d *Dataset) Get(index int) (*tensor.Tensor, [3]int, error) {
	if index < 0 || index >= len(d.samples) {
		return nil, [3]int{}, fmt.Errorf("index %d out of range for dataset of %d samples", index, len(d.samples))
	}
	sample := d.samples[index]

	img, err := LoadImage(sample.ImagePath)
	if err != nil {
		return nil, [3]int{}, err
	}
	input, err := d.transform.Apply(img)
	if err != nil {
		return nil, [3]int{}, fmt.Errorf("failed to transform %s: %v", sample.ImagePath, err)
	}
	return input, [3]int{sample.AgeLabel, sample.GenderLabel, sample.AccentLabel}, nil
}

// Split shuffles rows and divides them into training and validation
// subsets. valFraction is clamped so both subsets stay non-empty when the
// input has at least two rows.
func Split(rows []Row, valFraction float64, rng *rand.Rand) (train, val []Row) {
	shuffled := make([]Row, len(rows))
	copy(shuffled, rows)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	valCount := int(float64(len(shuffled)) * valFraction)
	if valCount < 1 && len(shuffled) > 1 {
		valCount = 1
	}
	if valCount >= len(shuffled) {
		valCount = len(shuffled) - 1
	}
	return shuffled[valCount:], shuffled[:valCount]
}
