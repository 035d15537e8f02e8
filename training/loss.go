package training

import (
	"fmt"
	"math"

	"github.com/Akalya1854/voice-traits/tensor"
)

// CrossEntropyLoss computes softmax cross-entropy between logits and
// integer class targets, with mean reduction over the batch.
type CrossEntropyLoss struct{}

func NewCrossEntropyLoss() *CrossEntropyLoss {
	return &CrossEntropyLoss{}
}

// Forward computes the scalar loss.
// predicted: [batch_size, num_classes] Float32 logits.
// target: [batch_size] Int32 class indices.
func (ce *CrossEntropyLoss) Forward(predicted, target *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ce.check(predicted, target); err != nil {
		return nil, err
	}

	batchSize := predicted.Shape[0]
	numClasses := predicted.Shape[1]

	probs, err := tensor.Softmax(predicted)
	if err != nil {
		return nil, fmt.Errorf("softmax computation failed: %v", err)
	}

	probData := probs.Data.([]float32)
	targetData := target.Data.([]int32)

	var total float64
	for i := 0; i < batchSize; i++ {
		class := int(targetData[i])
		if class < 0 || class >= numClasses {
			return nil, fmt.Errorf("target class %d out of range [0, %d)", class, numClasses)
		}
		p := probData[i*numClasses+class]
		if p < 1e-10 {
			p = 1e-10
		}
		total -= math.Log(float64(p))
	}

	return tensor.FromScalar(float32(total / float64(batchSize)))
}

// Backward computes the gradient of the loss with respect to the logits:
// softmax probabilities minus one at the target class, scaled by 1/batch.
func (ce *CrossEntropyLoss) Backward(predicted, target *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ce.check(predicted, target); err != nil {
		return nil, err
	}

	batchSize := predicted.Shape[0]
	numClasses := predicted.Shape[1]

	probs, err := tensor.Softmax(predicted)
	if err != nil {
		return nil, fmt.Errorf("softmax computation failed: %v", err)
	}

	grad, err := probs.Clone()
	if err != nil {
		return nil, fmt.Errorf("gradient initialization failed: %v", err)
	}

	gradData := grad.Data.([]float32)
	targetData := target.Data.([]int32)
	scale := 1 / float32(batchSize)

	for i := 0; i < batchSize; i++ {
		class := int(targetData[i])
		if class < 0 || class >= numClasses {
			return nil, fmt.Errorf("target class %d out of range [0, %d)", class, numClasses)
		}
		gradData[i*numClasses+class] -= 1
	}
	for i := range gradData {
		gradData[i] *= scale
	}

	return grad, nil
}

func (ce *CrossEntropyLoss) check(predicted, target *tensor.Tensor) error {
	if predicted.DType != tensor.Float32 || target.DType != tensor.Int32 {
		return fmt.Errorf("predicted must be Float32 and target must be Int32")
	}
	if len(predicted.Shape) != 2 {
		return fmt.Errorf("predicted must be 2D [batch_size, num_classes], got shape %v", predicted.Shape)
	}
	if len(target.Shape) != 1 {
		return fmt.Errorf("target must be 1D [batch_size], got shape %v", target.Shape)
	}
	if target.Shape[0] != predicted.Shape[0] {
		return fmt.Errorf("batch size mismatch: predicted %d, target %d", predicted.Shape[0], target.Shape[0])
	}
	return nil
}

// MultiTaskLoss sums the three attribute cross-entropy losses unweighted.
// The three per-head losses are also reported individually.
type MultiTaskLoss struct {
	ce *CrossEntropyLoss
}

func NewMultiTaskLoss() *MultiTaskLoss {
	return &MultiTaskLoss{ce: NewCrossEntropyLoss()}
}

// Forward returns the summed scalar loss over the three heads. The batch
// provides the label columns in head order.
func (mt *MultiTaskLoss) Forward(age, gender, accent *tensor.Tensor, batch *Batch) (float32, error) {
	var total float32
	for i, logits := range []*tensor.Tensor{age, gender, accent} {
		target, err := batch.LabelColumn(i)
		if err != nil {
			return 0, err
		}
		loss, err := mt.ce.Forward(logits, target)
		if err != nil {
			return 0, fmt.Errorf("loss for head %d failed: %v", i, err)
		}
		value, err := loss.Item()
		if err != nil {
			return 0, err
		}
		total += value
	}
	return total, nil
}

// Backward propagates the summed loss. Each head's cross-entropy gradient
// flows through its own graph; the shared backbone accumulates all three
// contributions, which is exactly the gradient of the unweighted sum.
func (mt *MultiTaskLoss) Backward(age, gender, accent *tensor.Tensor, batch *Batch) error {
	for i, logits := range []*tensor.Tensor{age, gender, accent} {
		target, err := batch.LabelColumn(i)
		if err != nil {
			return err
		}
		grad, err := mt.ce.Backward(logits, target)
		if err != nil {
			return fmt.Errorf("loss gradient for head %d failed: %v", i, err)
		}
		if err := logits.Backward(grad); err != nil {
			return fmt.Errorf("backpropagation for head %d failed: %v", i, err)
		}
	}
	return nil
}
