package training

import (
	"fmt"

	"github.com/Akalya1854/voice-traits/checkpoints"
	"github.com/Akalya1854/voice-traits/nn"
	"github.com/Akalya1854/voice-traits/tensor"
)

// Config holds the training loop's knobs.
type Config struct {
	Epochs            int
	LearningRate      float64
	WeightDecay       float64
	EarlyStopPatience int
	SchedulerPatience int

	BestCheckpointPath  string
	FinalCheckpointPath string

	ShowProgress bool
	Curves       *CurveClient
}

// DefaultConfig mirrors the hyperparameters used for the published runs.
func DefaultConfig() Config {
	return Config{
		Epochs:            30,
		LearningRate:      1e-3,
		WeightDecay:       1e-4,
		EarlyStopPatience: 5,
		SchedulerPatience: 2,
	}
}

func (c Config) validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epoch budget must be positive, got %d", c.Epochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %f", c.LearningRate)
	}
	if c.EarlyStopPatience <= 0 {
		return fmt.Errorf("early-stop patience must be positive, got %d", c.EarlyStopPatience)
	}
	if c.BestCheckpointPath == "" || c.FinalCheckpointPath == "" {
		return fmt.Errorf("both checkpoint paths must be set")
	}
	return nil
}

// EpochStats is one epoch's line in the training history.
type EpochStats struct {
	Epoch         int
	TrainLoss     float64
	TrainAccuracy float64
	ValLoss       float64
	ValAccuracy   float64
	LearningRate  float64
	Improved      bool
}

// FitResult summarizes a completed run.
type FitResult struct {
	History      []EpochStats
	BestAccuracy float64
	EpochsRun    int
	EarlyStopped bool
}

// Trainer drives the multi-head training loop: summed cross-entropy loss,
// Adam with weight decay, plateau-driven learning rate halving, best and
// final checkpoints, and early stopping on validation accuracy.
type Trainer struct {
	model     *nn.MultiHead
	optimizer Optimizer
	scheduler *ReduceLROnPlateauScheduler
	loss      *MultiTaskLoss
	cfg       Config

	bestAccuracy float64
	badEpochs    int
}

func NewTrainer(model *nn.MultiHead, cfg Config) (*Trainer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Trainer{
		model:     model,
		optimizer: NewAdam(model.Parameters(), cfg.LearningRate, 0, 0, 0, cfg.WeightDecay),
		scheduler: NewReduceLROnPlateauScheduler(0.5, cfg.SchedulerPatience, 1e-4, "max"),
		loss:      NewMultiTaskLoss(),
		cfg:       cfg,
	}, nil
}

// Fit runs the loop until the epoch budget is exhausted or early stopping
// fires, then writes the final checkpoint unconditionally.
func (t *Trainer) Fit(trainLoader, valLoader *DataLoader) (*FitResult, error) {
	result := &FitResult{}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		trainLoss, trainAcc, err := t.runTrainEpoch(trainLoader, epoch)
		if err != nil {
			return nil, fmt.Errorf("training epoch %d failed: %v", epoch, err)
		}

		valLoss, valAcc, err := t.runValidation(valLoader)
		if err != nil {
			return nil, fmt.Errorf("validation epoch %d failed: %v", epoch, err)
		}

		improved, stop, err := t.observeEpoch(epoch, valAcc)
		if err != nil {
			return nil, err
		}

		stats := EpochStats{
			Epoch:         epoch,
			TrainLoss:     trainLoss,
			TrainAccuracy: trainAcc,
			ValLoss:       valLoss,
			ValAccuracy:   valAcc,
			LearningRate:  t.optimizer.GetLR(),
			Improved:      improved,
		}
		result.History = append(result.History, stats)
		result.EpochsRun = epoch

		fmt.Printf("epoch %d/%d: train_loss=%.4f train_acc=%.4f val_loss=%.4f val_acc=%.4f lr=%.6f",
			epoch, t.cfg.Epochs, trainLoss, trainAcc, valLoss, valAcc, t.optimizer.GetLR())
		if improved {
			fmt.Printf(" [best checkpoint saved]")
		}
		fmt.Println()

		if t.cfg.Curves != nil {
			t.cfg.Curves.RecordEpoch(stats)
		}

		if stop {
			fmt.Printf("early stopping after %d epochs without improvement\n", t.cfg.EarlyStopPatience)
			result.EarlyStopped = true
			break
		}
	}

	result.BestAccuracy = t.bestAccuracy

	state := checkpoints.TrainingState{
		Epoch:        result.EpochsRun,
		LearningRate: t.optimizer.GetLR(),
		BestAccuracy: t.bestAccuracy,
	}
	if err := checkpoints.Save(t.cfg.FinalCheckpointPath, t.model, state); err != nil {
		return nil, fmt.Errorf("failed to save final checkpoint: %v", err)
	}

	return result, nil
}

// observeEpoch applies the epoch-end policy: scheduler step on validation
// accuracy, best checkpointing on strict improvement, early-stop counting
// otherwise. Returns whether the epoch improved and whether to stop.
func (t *Trainer) observeEpoch(epoch int, valAccuracy float64) (improved, stop bool, err error) {
	newLR := t.scheduler.Step(valAccuracy, t.optimizer.GetLR())
	if newLR != t.optimizer.GetLR() {
		fmt.Printf("reducing learning rate to %.6f\n", newLR)
		t.optimizer.SetLR(newLR)
	}

	// Ties do not count as improvement.
	if valAccuracy > t.bestAccuracy {
		t.bestAccuracy = valAccuracy
		t.badEpochs = 0

		state := checkpoints.TrainingState{
			Epoch:        epoch,
			LearningRate: t.optimizer.GetLR(),
			BestAccuracy: t.bestAccuracy,
		}
		if err := checkpoints.Save(t.cfg.BestCheckpointPath, t.model, state); err != nil {
			return false, false, fmt.Errorf("failed to save best checkpoint: %v", err)
		}
		return true, false, nil
	}

	t.badEpochs++
	return false, t.badEpochs >= t.cfg.EarlyStopPatience, nil
}

func (t *Trainer) runTrainEpoch(loader *DataLoader, epoch int) (avgLoss, accuracy float64, err error) {
	t.model.SetTraining(true)
	loader.Reset()

	var progress *ProgressBar
	if t.cfg.ShowProgress {
		progress = NewProgressBar(fmt.Sprintf("epoch %d", epoch), loader.NumBatches())
	}

	var lossSum float64
	batches := 0
	correct := 0
	samples := 0

	for {
		batch, ok, err := loader.Next()
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			break
		}

		t.optimizer.ZeroGrad()
		age, gender, accent := t.model.Forward(batch.Images)

		lossVal, err := t.loss.Forward(age, gender, accent, batch)
		if err != nil {
			return 0, 0, err
		}
		if err := t.loss.Backward(age, gender, accent, batch); err != nil {
			return 0, 0, err
		}
		if err := t.optimizer.Step(); err != nil {
			return 0, 0, err
		}

		batchCorrect, err := countCorrect(age, gender, accent, batch)
		if err != nil {
			return 0, 0, err
		}
		correct += batchCorrect
		samples += batch.Size
		lossSum += float64(lossVal)
		batches++

		if progress != nil {
			progress.Update(batches, map[string]float64{
				"loss": lossSum / float64(batches),
				"acc":  float64(correct) / float64(3*samples),
			})
		}
	}

	if progress != nil {
		progress.Finish()
	}
	if batches == 0 {
		return 0, 0, fmt.Errorf("training epoch produced no batches")
	}
	return lossSum / float64(batches), float64(correct) / float64(3*samples), nil
}

func (t *Trainer) runValidation(loader *DataLoader) (avgLoss, accuracy float64, err error) {
	t.model.SetTraining(false)
	loader.Reset()

	var lossSum float64
	batches := 0
	correct := 0
	samples := 0

	for {
		batch, ok, err := loader.Next()
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			break
		}

		age, gender, accent := t.model.Forward(batch.Images)
		lossVal, err := t.loss.Forward(age, gender, accent, batch)
		if err != nil {
			return 0, 0, err
		}

		batchCorrect, err := countCorrect(age, gender, accent, batch)
		if err != nil {
			return 0, 0, err
		}
		correct += batchCorrect
		samples += batch.Size
		lossSum += float64(lossVal)
		batches++
	}

	if batches == 0 {
		return 0, 0, fmt.Errorf("validation produced no batches")
	}
	return lossSum / float64(batches), float64(correct) / float64(3*samples), nil
}

// countCorrect sums arg-max hits across all three heads.
func countCorrect(age, gender, accent *tensor.Tensor, batch *Batch) (int, error) {
	correct := 0
	for i, logits := range []*tensor.Tensor{age, gender, accent} {
		preds, err := tensor.ArgMaxRows(logits)
		if err != nil {
			return 0, err
		}
		target, err := batch.LabelColumn(i)
		if err != nil {
			return 0, err
		}
		targetData := target.Data.([]int32)
		for j, pred := range preds {
			if int32(pred) == targetData[j] {
				correct++
			}
		}
	}
	return correct, nil
}
