// Package labelenc maps categorical voice attributes to dense integer
// indices and back. Encoders are fitted once against the training data and
// persisted alongside checkpoints, since predictions are only meaningful
// against the exact encoder they were trained with.
package labelenc

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Encoder is a bidirectional category-to-index mapping for one attribute.
// Indices are dense, starting at zero, assigned in sorted category order so
// fitting the same categories always yields the same mapping.
type Encoder struct {
	classes []string
	index   map[string]int
}

// Fit builds an encoder from observed category values. Duplicates are
// collapsed; at least one value is required.
func Fit(values []string) (*Encoder, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("cannot fit encoder on empty value list")
	}

	seen := make(map[string]bool)
	var classes []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &Encoder{classes: classes, index: index}, nil
}

// Encode maps a category name to its integer index.
func (e *Encoder) Encode(category string) (int, error) {
	idx, ok := e.index[category]
	if !ok {
		return 0, fmt.Errorf("unknown category %q", category)
	}
	return idx, nil
}

// Decode maps an integer index back to its category name. Out-of-range
// indices are an error, not a panic: checkpoints and encoders are loaded
// from separate files and can drift out of sync.
func (e *Encoder) Decode(index int) (string, error) {
	if index < 0 || index >= len(e.classes) {
		return "", fmt.Errorf("index %d out of range for encoder with %d classes", index, len(e.classes))
	}
	return e.classes[index], nil
}

// NumClasses returns the number of distinct categories.
func (e *Encoder) NumClasses() int {
	return len(e.classes)
}

// Classes returns the categories in index order.
func (e *Encoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Store bundles the three attribute encoders and handles persistence.
type Store struct {
	Age    *Encoder
	Gender *Encoder
	Accent *Encoder
}

type storeFile struct {
	Age    []string `json:"age"`
	Gender []string `json:"gender"`
	Accent []string `json:"accent"`
}

// NewStore fits all three encoders from parallel value slices.
func NewStore(ages, genders, accents []string) (*Store, error) {
	age, err := Fit(ages)
	if err != nil {
		return nil, fmt.Errorf("failed to fit age encoder: %v", err)
	}
	gender, err := Fit(genders)
	if err != nil {
		return nil, fmt.Errorf("failed to fit gender encoder: %v", err)
	}
	accent, err := Fit(accents)
	if err != nil {
		return nil, fmt.Errorf("failed to fit accent encoder: %v", err)
	}
	return &Store{Age: age, Gender: gender, Accent: accent}, nil
}

// Save writes the encoder classes as JSON.
func (s *Store) Save(path string) error {
	payload := storeFile{
		Age:    s.Age.Classes(),
		Gender: s.Gender.Classes(),
		Accent: s.Accent.Classes(),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal encoders: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write encoders to %s: %v", path, err)
	}
	return nil
}

// LoadStore reads encoders previously written by Save.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoders from %s: %v", path, err)
	}

	var payload storeFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse encoders from %s: %v", path, err)
	}

	return NewStore(payload.Age, payload.Gender, payload.Accent)
}
