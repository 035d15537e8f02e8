// Command evaluate scores a trained checkpoint against a labeled manifest
// and prints the per-attribute classification report.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/joho/godotenv"

	"github.com/Akalya1854/voice-traits/checkpoints"
	"github.com/Akalya1854/voice-traits/dataset"
	"github.com/Akalya1854/voice-traits/labelenc"
	"github.com/Akalya1854/voice-traits/logging"
	"github.com/Akalya1854/voice-traits/training"
)

func main() {
	_ = godotenv.Load()

	manifestPath := flag.String("manifest", envOr("VT_MANIFEST", "data/manifest.csv"), "CSV manifest of spectrogram images and labels")
	checkpointPath := flag.String("checkpoint", envOr("VT_CHECKPOINT", "checkpoints/best.json"), "trained checkpoint to evaluate")
	encodersPath := flag.String("encoders", "checkpoints/encoders.json", "label encoders fitted at training time")
	batchSize := flag.Int("batch-size", 32, "samples per forward pass")
	flag.Parse()

	if err := run(*manifestPath, *checkpointPath, *encodersPath, *batchSize); err != nil {
		logging.Error("evaluation failed: %v", err)
		os.Exit(1)
	}
}

func run(manifestPath, checkpointPath, encodersPath string, batchSize int) error {
	rng := rand.New(rand.NewSource(1))

	model, cp, err := checkpoints.Load(checkpointPath, rng)
	if err != nil {
		return err
	}
	logging.Info("loaded checkpoint %s (epoch %d, best accuracy %.4f)",
		checkpointPath, cp.TrainingState.Epoch, cp.TrainingState.BestAccuracy)

	encoders, err := labelenc.LoadStore(encodersPath)
	if err != nil {
		return err
	}

	rows, dropped, err := dataset.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	if dropped > 0 {
		logging.Warn("dropped %d unusable manifest rows", dropped)
	}

	ds, err := dataset.New(rows, encoders, dataset.NewEvalTransform(dataset.ImageSize))
	if err != nil {
		return err
	}
	loader, err := training.NewDataLoader(ds, batchSize, false, nil)
	if err != nil {
		return err
	}

	result, err := training.NewEvaluator(model).Evaluate(loader, model.Heads)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d samples from %s\n\n%s", loader.NumSamples(), manifestPath, result.String())
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
