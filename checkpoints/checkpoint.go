// Package checkpoints persists classifier parameters as versioned JSON
// snapshots. The schema records the backbone identifier and head sizes
// alongside the weights so a load against a mismatched model fails loudly
// instead of silently truncating or padding.
package checkpoints

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/x448/float16"

	"github.com/Akalya1854/voice-traits/nn"
)

// SchemaVersion is bumped whenever the checkpoint layout changes in a way
// old readers cannot handle.
const SchemaVersion = 1

const framework = "voice-traits"

// Metadata identifies the checkpoint format and provenance.
type Metadata struct {
	Version   int       `json:"version"`
	Framework string    `json:"framework"`
	CreatedAt time.Time `json:"created_at"`
}

// ModelSpec pins the architecture the weights belong to.
type ModelSpec struct {
	Backbone string       `json:"backbone"`
	Heads    nn.HeadSizes `json:"heads"`
	DropoutP float64      `json:"dropout_p"`
}

// TrainingState captures where training stood when the snapshot was taken.
type TrainingState struct {
	Epoch        int     `json:"epoch"`
	LearningRate float64 `json:"learning_rate"`
	BestAccuracy float64 `json:"best_accuracy"`
}

// WeightTensor is one parameter's payload. Values are packed as IEEE 754
// half-precision, which halves checkpoint size at a precision cost far
// below what affects arg-max predictions.
type WeightTensor struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	Data  []byte `json:"data"`
}

// BufferTensor is non-learnable state, stored at full precision since the
// batch-norm running variances it carries can be small enough to underflow
// half precision.
type BufferTensor struct {
	Name string    `json:"name"`
	Data []float32 `json:"data"`
}

// Checkpoint is the full on-disk document.
type Checkpoint struct {
	Metadata      Metadata       `json:"metadata"`
	Model         ModelSpec      `json:"model"`
	TrainingState TrainingState  `json:"training_state"`
	Weights       []WeightTensor `json:"weights"`
	Buffers       []BufferTensor `json:"buffers,omitempty"`
}

func packFloat16(values []float32) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], float16.Fromfloat32(v).Bits())
	}
	return out
}

func unpackFloat16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("weight payload has odd byte length %d", len(data))
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(data[2*i:])).Float32()
	}
	return out, nil
}

// Save writes a snapshot of the model to path. The write goes through a
// temp file and rename so a crash never leaves a partial checkpoint.
func Save(path string, model *nn.MultiHead, state TrainingState) error {
	cp := Checkpoint{
		Metadata: Metadata{
			Version:   SchemaVersion,
			Framework: framework,
			CreatedAt: time.Now().UTC(),
		},
		Model: ModelSpec{
			Backbone: model.BackboneID,
			Heads:    model.Heads,
			DropoutP: model.DropoutP,
		},
		TrainingState: state,
	}

	for _, p := range model.NamedParameters() {
		values, err := p.Tensor.Float32Data()
		if err != nil {
			return fmt.Errorf("parameter %s: %v", p.Name, err)
		}
		shape := make([]int, len(p.Tensor.Shape))
		copy(shape, p.Tensor.Shape)
		cp.Weights = append(cp.Weights, WeightTensor{
			Name:  p.Name,
			Shape: shape,
			Data:  packFloat16(values),
		})
	}

	for _, b := range model.NamedBuffers() {
		data := make([]float32, len(b.Data))
		copy(data, b.Data)
		cp.Buffers = append(cp.Buffers, BufferTensor{Name: b.Name, Data: data})
	}

	payload, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %v", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %v", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize checkpoint %s: %v", path, err)
	}
	return nil
}

// Load reads a checkpoint and reconstructs the classifier it describes.
// Every recorded weight must match a model parameter of identical shape,
// and every model parameter must be present in the file.
func Load(path string, rng *rand.Rand) (*nn.MultiHead, *Checkpoint, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read checkpoint %s: %v", path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return nil, nil, fmt.Errorf("failed to parse checkpoint %s: %v", path, err)
	}

	if cp.Metadata.Version != SchemaVersion {
		return nil, nil, fmt.Errorf("checkpoint %s has schema version %d, this build reads version %d",
			path, cp.Metadata.Version, SchemaVersion)
	}
	if cp.Metadata.Framework != framework {
		return nil, nil, fmt.Errorf("checkpoint %s was written by %q, not %q", path, cp.Metadata.Framework, framework)
	}
	if err := cp.Model.Heads.Validate(); err != nil {
		return nil, nil, fmt.Errorf("checkpoint %s: %v", path, err)
	}

	model, err := nn.NewMultiHead(cp.Model.Backbone, cp.Model.Heads, cp.Model.DropoutP, rng)
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint %s: %v", path, err)
	}

	if err := applyWeights(&cp, model); err != nil {
		return nil, nil, fmt.Errorf("checkpoint %s: %v", path, err)
	}
	return model, &cp, nil
}

// Restore applies a checkpoint's weights onto an existing model, refusing
// any architecture mismatch.
func Restore(cp *Checkpoint, model *nn.MultiHead) error {
	if cp.Model.Backbone != model.BackboneID {
		return fmt.Errorf("checkpoint backbone %q does not match model backbone %q", cp.Model.Backbone, model.BackboneID)
	}
	if cp.Model.Heads != model.Heads {
		return fmt.Errorf("checkpoint head sizes %+v do not match model head sizes %+v", cp.Model.Heads, model.Heads)
	}
	return applyWeights(cp, model)
}

func applyWeights(cp *Checkpoint, model *nn.MultiHead) error {
	params := model.NamedParameters()
	byName := make(map[string]int, len(params))
	for i, p := range params {
		byName[p.Name] = i
	}

	seen := make(map[string]bool, len(cp.Weights))
	for _, w := range cp.Weights {
		idx, ok := byName[w.Name]
		if !ok {
			return fmt.Errorf("recorded weight %q has no matching model parameter", w.Name)
		}
		param := params[idx].Tensor

		if len(w.Shape) != len(param.Shape) {
			return fmt.Errorf("weight %q has shape %v, model expects %v", w.Name, w.Shape, param.Shape)
		}
		for i := range w.Shape {
			if w.Shape[i] != param.Shape[i] {
				return fmt.Errorf("weight %q has shape %v, model expects %v", w.Name, w.Shape, param.Shape)
			}
		}

		values, err := unpackFloat16(w.Data)
		if err != nil {
			return fmt.Errorf("weight %q: %v", w.Name, err)
		}
		if len(values) != param.NumElems {
			return fmt.Errorf("weight %q has %d values, model expects %d", w.Name, len(values), param.NumElems)
		}
		if err := param.SetData(values); err != nil {
			return fmt.Errorf("weight %q: %v", w.Name, err)
		}
		seen[w.Name] = true
	}

	for _, p := range params {
		if !seen[p.Name] {
			return fmt.Errorf("model parameter %q missing from checkpoint", p.Name)
		}
	}

	buffers := model.NamedBuffers()
	bufByName := make(map[string][]float32, len(buffers))
	for _, b := range buffers {
		bufByName[b.Name] = b.Data
	}
	for _, b := range cp.Buffers {
		dst, ok := bufByName[b.Name]
		if !ok {
			return fmt.Errorf("recorded buffer %q has no matching model state", b.Name)
		}
		if len(b.Data) != len(dst) {
			return fmt.Errorf("buffer %q has %d values, model expects %d", b.Name, len(b.Data), len(dst))
		}
		copy(dst, b.Data)
	}

	return nil
}
