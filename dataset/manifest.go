// Package dataset turns manifest rows of (spectrogram image, attribute
// labels) into transformed model inputs.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/Akalya1854/voice-traits/labelenc"
)

// Row is one manifest entry before label encoding.
type Row struct {
	ImagePath string
	Age       string
	Gender    string
	Accent    string
}

// LoadManifest reads a CSV manifest with columns path,age,gender,accent.
// Rows with missing fields or a missing image file are dropped, not fatal;
// the second return value reports how many were dropped.
func LoadManifest(path string) ([]Row, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open manifest %s: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse manifest %s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, 0, fmt.Errorf("manifest %s is empty", path)
	}

	// Skip a header row if present.
	start := 0
	if len(records[0]) > 0 && records[0][0] == "path" {
		start = 1
	}

	var rows []Row
	dropped := 0
	for _, record := range records[start:] {
		if len(record) < 4 {
			dropped++
			continue
		}
		row := Row{ImagePath: record[0], Age: record[1], Gender: record[2], Accent: record[3]}
		if row.ImagePath == "" || row.Age == "" || row.Gender == "" || row.Accent == "" {
			dropped++
			continue
		}
		if _, err := os.Stat(row.ImagePath); err != nil {
			dropped++
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, dropped, fmt.Errorf("manifest %s has no usable rows (%d dropped)", path, dropped)
	}
	return rows, dropped, nil
}

// FitEncoders builds the three attribute encoders from manifest rows.
func FitEncoders(rows []Row) (*labelenc.Store, error) {
	ages := make([]string, len(rows))
	genders := make([]string, len(rows))
	accents := make([]string, len(rows))
	for i, row := range rows {
		ages[i] = row.Age
		genders[i] = row.Gender
		accents[i] = row.Accent
	}
	return labelenc.NewStore(ages, genders, accents)
}
