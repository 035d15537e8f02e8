// Command prepare renders spectrogram images for a manifest of audio clips
// and writes the image manifest the training tools consume.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Akalya1854/voice-traits/logging"
	"github.com/Akalya1854/voice-traits/spectrogram"
)

func main() {
	_ = godotenv.Load()

	audioManifest := flag.String("audio-manifest", envOr("VT_AUDIO_MANIFEST", "data/audio.csv"), "CSV of audio clips: path,age,gender,accent")
	outDir := flag.String("out-dir", "data/spectrograms", "directory for rendered spectrogram images")
	outManifest := flag.String("out-manifest", "data/manifest.csv", "image manifest output path")
	flag.Parse()

	if err := run(*audioManifest, *outDir, *outManifest); err != nil {
		logging.Error("preparation failed: %v", err)
		os.Exit(1)
	}
}

func run(audioManifest, outDir, outManifest string) error {
	records, err := readAudioManifest(audioManifest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %v", outDir, err)
	}

	generator, err := spectrogram.NewGenerator(spectrogram.DefaultConfig())
	if err != nil {
		return err
	}

	var out [][]string
	out = append(out, []string{"path", "age", "gender", "accent"})
	failed := 0
	for i, record := range records {
		audioPath := record[0]
		name := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
		imagePath := filepath.Join(outDir, name+".png")

		if _, err := generator.Generate(audioPath, imagePath); err != nil {
			logging.Warn("skipping %s: %v", audioPath, err)
			failed++
			continue
		}
		out = append(out, []string{imagePath, record[1], record[2], record[3]})

		if (i+1)%100 == 0 {
			logging.Info("rendered %d/%d spectrograms", i+1, len(records))
		}
	}

	if len(out) == 1 {
		return fmt.Errorf("no spectrograms could be rendered (%d failures)", failed)
	}

	f, err := os.Create(outManifest)
	if err != nil {
		return fmt.Errorf("failed to create manifest %s: %v", outManifest, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.WriteAll(out); err != nil {
		return fmt.Errorf("failed to write manifest %s: %v", outManifest, err)
	}

	logging.Info("rendered %d spectrograms (%d failed), manifest at %s", len(out)-1, failed, outManifest)
	return nil
}

// readAudioManifest loads rows of path,age,gender,accent, skipping a header
// row and incomplete records.
func readAudioManifest(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio manifest %s: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse audio manifest %s: %v", path, err)
	}

	var records [][]string
	for i, record := range all {
		if i == 0 && len(record) > 0 && record[0] == "path" {
			continue
		}
		if len(record) < 4 || record[0] == "" {
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("audio manifest %s has no usable rows", path)
	}
	return records, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
