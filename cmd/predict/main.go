// Command predict classifies the speaker attributes of a single audio file.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/joho/godotenv"

	"github.com/Akalya1854/voice-traits/checkpoints"
	"github.com/Akalya1854/voice-traits/labelenc"
	"github.com/Akalya1854/voice-traits/logging"
	"github.com/Akalya1854/voice-traits/predict"
	"github.com/Akalya1854/voice-traits/spectrogram"
)

func main() {
	_ = godotenv.Load()

	checkpointPath := flag.String("checkpoint", envOr("VT_CHECKPOINT", "checkpoints/best.json"), "trained checkpoint")
	encodersPath := flag.String("encoders", "checkpoints/encoders.json", "label encoders fitted at training time")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <audio-file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(*checkpointPath, *encodersPath, flag.Arg(0)); err != nil {
		logging.Error("prediction failed: %v", err)
		os.Exit(1)
	}
}

func run(checkpointPath, encodersPath, audioPath string) error {
	model, _, err := checkpoints.Load(checkpointPath, rand.New(rand.NewSource(1)))
	if err != nil {
		return err
	}
	encoders, err := labelenc.LoadStore(encodersPath)
	if err != nil {
		return err
	}
	generator, err := spectrogram.NewGenerator(spectrogram.DefaultConfig())
	if err != nil {
		return err
	}

	predictor, err := predict.NewPredictor(model, encoders, generator)
	if err != nil {
		return err
	}

	result, err := predictor.Predict(audioPath)
	if err != nil {
		return err
	}

	fmt.Printf("age:    %s\n", result.Age)
	fmt.Printf("gender: %s\n", result.Gender)
	fmt.Printf("accent: %s\n", result.Accent)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
