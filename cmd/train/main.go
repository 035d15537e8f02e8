// Command train fits the multi-head voice attribute classifier from a
// manifest of spectrogram images.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/Akalya1854/voice-traits/dataset"
	"github.com/Akalya1854/voice-traits/logging"
	"github.com/Akalya1854/voice-traits/nn"
	"github.com/Akalya1854/voice-traits/training"
)

func main() {
	// .env is optional; flags win over environment values either way.
	_ = godotenv.Load()

	manifestPath := flag.String("manifest", envOr("VT_MANIFEST", "data/manifest.csv"), "CSV manifest of spectrogram images and labels")
	valFraction := flag.Float64("val-fraction", 0.2, "fraction of samples held out for validation")
	backbone := flag.String("backbone", envOr("VT_BACKBONE", "resnet-mini"), "backbone identifier: resnet-mini or mobile")
	dropout := flag.Float64("dropout", 0.3, "dropout probability before the heads")
	epochs := flag.Int("epochs", 30, "epoch budget")
	batchSize := flag.Int("batch-size", 32, "samples per optimizer step")
	lr := flag.Float64("lr", 1e-3, "initial learning rate")
	weightDecay := flag.Float64("weight-decay", 1e-4, "optimizer weight decay")
	earlyStop := flag.Int("early-stop-patience", 5, "epochs without improvement before stopping")
	schedPatience := flag.Int("scheduler-patience", 2, "epochs without improvement before halving the learning rate")
	bestPath := flag.String("best", "checkpoints/best.json", "best checkpoint output path")
	finalPath := flag.String("final", "checkpoints/final.json", "final checkpoint output path")
	encodersPath := flag.String("encoders", "checkpoints/encoders.json", "fitted label encoders output path")
	plotURL := flag.String("plot-url", os.Getenv("VT_PLOT_URL"), "optional plotting sidecar base URL")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	if err := run(*manifestPath, *valFraction, *backbone, *dropout, *epochs, *batchSize,
		*lr, *weightDecay, *earlyStop, *schedPatience,
		*bestPath, *finalPath, *encodersPath, *plotURL, *seed); err != nil {
		logging.Error("training failed: %v", err)
		os.Exit(1)
	}
}

func run(manifestPath string, valFraction float64, backbone string, dropout float64,
	epochs, batchSize int, lr, weightDecay float64, earlyStop, schedPatience int,
	bestPath, finalPath, encodersPath, plotURL string, seed int64) error {

	rng := rand.New(rand.NewSource(seed))

	for _, p := range []string{bestPath, finalPath, encodersPath} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %v", dir, err)
			}
		}
	}

	rows, dropped, err := dataset.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	if dropped > 0 {
		logging.Warn("dropped %d unusable manifest rows", dropped)
	}
	logging.Info("loaded %d samples from %s", len(rows), manifestPath)

	encoders, err := dataset.FitEncoders(rows)
	if err != nil {
		return err
	}
	if err := encoders.Save(encodersPath); err != nil {
		return err
	}
	heads := nn.HeadSizes{
		Age:    encoders.Age.NumClasses(),
		Gender: encoders.Gender.NumClasses(),
		Accent: encoders.Accent.NumClasses(),
	}
	logging.Info("classes: age=%d gender=%d accent=%d", heads.Age, heads.Gender, heads.Accent)

	trainRows, valRows := dataset.Split(rows, valFraction, rng)
	logging.Info("split: %d train / %d validation", len(trainRows), len(valRows))

	trainSet, err := dataset.New(trainRows, encoders, dataset.NewTrainTransform(dataset.ImageSize, rng))
	if err != nil {
		return err
	}
	valSet, err := dataset.New(valRows, encoders, dataset.NewEvalTransform(dataset.ImageSize))
	if err != nil {
		return err
	}

	trainLoader, err := training.NewDataLoader(trainSet, batchSize, true, rng)
	if err != nil {
		return err
	}
	valLoader, err := training.NewDataLoader(valSet, batchSize, false, nil)
	if err != nil {
		return err
	}

	model, err := nn.NewMultiHead(backbone, heads, dropout, rng)
	if err != nil {
		return err
	}

	cfg := training.Config{
		Epochs:              epochs,
		LearningRate:        lr,
		WeightDecay:         weightDecay,
		EarlyStopPatience:   earlyStop,
		SchedulerPatience:   schedPatience,
		BestCheckpointPath:  bestPath,
		FinalCheckpointPath: finalPath,
		ShowProgress:        true,
	}
	if plotURL != "" {
		curves := training.NewCurveClient(plotURL, fmt.Sprintf("train-%d", seed))
		if err := curves.CheckHealth(); err != nil {
			logging.Warn("training curves disabled: %v", err)
		} else {
			cfg.Curves = curves
		}
	}

	trainer, err := training.NewTrainer(model, cfg)
	if err != nil {
		return err
	}

	result, err := trainer.Fit(trainLoader, valLoader)
	if err != nil {
		return err
	}

	logging.Info("training complete: %d epochs, best validation accuracy %.4f",
		result.EpochsRun, result.BestAccuracy)
	if result.EarlyStopped {
		logging.Info("run ended by early stopping")
	}
	logging.Info("best checkpoint: %s", bestPath)
	logging.Info("final checkpoint: %s", finalPath)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
