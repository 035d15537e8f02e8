package training

import (
	"fmt"

	"github.com/Akalya1854/voice-traits/nn"
	"github.com/Akalya1854/voice-traits/tensor"
)

// Evaluator runs a trained model over a held-out set and produces the
// per-attribute classification report with confusion matrices.
type Evaluator struct {
	model *nn.MultiHead
}

func NewEvaluator(model *nn.MultiHead) *Evaluator {
	return &Evaluator{model: model}
}

// EvalResult bundles the report with the raw confusion matrices so callers
// can print either view.
type EvalResult struct {
	Report   *Report
	Matrices []*ConfusionMatrix
	Names    []string
}

// Evaluate runs the model in inference mode over every batch the loader
// yields and accumulates one confusion matrix per attribute head.
func (e *Evaluator) Evaluate(loader *DataLoader, heads nn.HeadSizes) (*EvalResult, error) {
	if err := heads.Validate(); err != nil {
		return nil, err
	}

	names := []string{"age", "gender", "accent"}
	sizes := []int{heads.Age, heads.Gender, heads.Accent}
	matrices := make([]*ConfusionMatrix, len(sizes))
	for i, n := range sizes {
		cm, err := NewConfusionMatrix(n)
		if err != nil {
			return nil, err
		}
		matrices[i] = cm
	}

	e.model.SetTraining(false)
	loader.Reset()

	seen := 0
	for {
		batch, ok, err := loader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		age, gender, accent := e.model.Forward(batch.Images)
		for i, logits := range []*tensor.Tensor{age, gender, accent} {
			preds, err := tensor.ArgMaxRows(logits)
			if err != nil {
				return nil, err
			}
			target, err := batch.LabelColumn(i)
			if err != nil {
				return nil, err
			}
			targetData := target.Data.([]int32)
			for j, pred := range preds {
				if err := matrices[i].Add(pred, int(targetData[j])); err != nil {
					return nil, err
				}
			}
		}
		seen += batch.Size
	}

	if seen == 0 {
		return nil, fmt.Errorf("evaluation set is empty")
	}

	report, err := BuildReport(names, matrices)
	if err != nil {
		return nil, err
	}
	return &EvalResult{Report: report, Matrices: matrices, Names: names}, nil
}

// String renders the report followed by each attribute's confusion matrix.
func (r *EvalResult) String() string {
	out := r.Report.String()
	for i, name := range r.Names {
		out += fmt.Sprintf("\nconfusion matrix (%s):\n%s", name, r.Matrices[i].String())
	}
	return out
}
