// Package training implements the multi-head training loop, evaluation
// reporting and the supporting optimizer, scheduler and metric machinery.
package training

import (
	"fmt"
	"math/rand"

	"github.com/Akalya1854/voice-traits/dataset"
	"github.com/Akalya1854/voice-traits/tensor"
)

// Batch is one optimizer step's worth of samples: stacked images
// [B, 3, H, W] and stacked labels [B, 3] with columns age, gender, accent.
type Batch struct {
	Images *tensor.Tensor
	Labels *tensor.Tensor
	Size   int
}

// LabelColumn extracts one attribute's labels as a [B] Int32 tensor.
func (b *Batch) LabelColumn(column int) (*tensor.Tensor, error) {
	if column < 0 || column >= 3 {
		return nil, fmt.Errorf("label column %d out of range", column)
	}
	labels := b.Labels.Data.([]int32)
	out := make([]int32, b.Size)
	for i := 0; i < b.Size; i++ {
		out[i] = labels[i*3+column]
	}
	return tensor.NewTensor([]int{b.Size}, tensor.Int32, out)
}

// DataLoader assembles dataset samples into batches. With shuffle enabled
// the sample order is re-randomized at the start of every epoch; without
// it the order is fixed, which validation and evaluation rely on.
type DataLoader struct {
	data      *dataset.Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand

	order    []int
	position int
}

func NewDataLoader(data *dataset.Dataset, batchSize int, shuffle bool, rng *rand.Rand) (*DataLoader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if data.Len() == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	loader := &DataLoader{
		data:      data,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rng,
		order:     make([]int, data.Len()),
	}
	for i := range loader.order {
		loader.order[i] = i
	}
	loader.Reset()
	return loader, nil
}

// Reset rewinds to the start of an epoch, reshuffling if enabled.
func (l *DataLoader) Reset() {
	l.position = 0
	if l.shuffle && l.rng != nil {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

// NumBatches returns the number of batches per epoch. The final partial
// batch counts.
func (l *DataLoader) NumBatches() int {
	return (l.data.Len() + l.batchSize - 1) / l.batchSize
}

// NumSamples returns the total sample count.
func (l *DataLoader) NumSamples() int {
	return l.data.Len()
}

// Next returns the next batch, or ok=false at the end of the epoch. A
// corrupt sample aborts the whole batch.
func (l *DataLoader) Next() (*Batch, bool, error) {
	if l.position >= len(l.order) {
		return nil, false, nil
	}

	end := l.position + l.batchSize
	if end > len(l.order) {
		end = len(l.order)
	}
	indices := l.order[l.position:end]
	l.position = end

	var (
		imageData []float32
		imgShape  []int
	)
	labelData := make([]int32, 0, len(indices)*3)

	for _, idx := range indices {
		input, labels, err := l.data.Get(idx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load sample %d: %v", idx, err)
		}
		if imgShape == nil {
			imgShape = input.Shape
			imageData = make([]float32, 0, len(indices)*input.NumElems)
		}
		imageData = append(imageData, input.Data.([]float32)...)
		labelData = append(labelData, int32(labels[0]), int32(labels[1]), int32(labels[2]))
	}

	images, err := tensor.NewTensor(
		[]int{len(indices), imgShape[0], imgShape[1], imgShape[2]},
		tensor.Float32, imageData)
	if err != nil {
		return nil, false, fmt.Errorf("failed to stack batch images: %v", err)
	}
	labels, err := tensor.NewTensor([]int{len(indices), 3}, tensor.Int32, labelData)
	if err != nil {
		return nil, false, fmt.Errorf("failed to stack batch labels: %v", err)
	}

	return &Batch{Images: images, Labels: labels, Size: len(indices)}, true, nil
}
