// Package predict runs the end-to-end single-sample inference pipeline:
// audio file in, decoded attribute categories out.
package predict

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Akalya1854/voice-traits/dataset"
	"github.com/Akalya1854/voice-traits/labelenc"
	"github.com/Akalya1854/voice-traits/logging"
	"github.com/Akalya1854/voice-traits/nn"
	"github.com/Akalya1854/voice-traits/spectrogram"
	"github.com/Akalya1854/voice-traits/tensor"
)

// Prediction holds the decoded category for each attribute.
type Prediction struct {
	Age    string
	Gender string
	Accent string
}

// Predictor turns one audio file into a Prediction. It renders a temporary
// spectrogram image, pushes it through the evaluation transform and the
// model, and decodes the arg-max class of each head.
type Predictor struct {
	model     *nn.MultiHead
	encoders  *labelenc.Store
	generator *spectrogram.Generator
	transform *dataset.Transform
}

// NewPredictor wires a trained model with its label encoders. The encoders
// must be the ones fitted at training time or decoded categories will be
// silently wrong.
func NewPredictor(model *nn.MultiHead, encoders *labelenc.Store, generator *spectrogram.Generator) (*Predictor, error) {
	if model == nil || encoders == nil || generator == nil {
		return nil, fmt.Errorf("model, encoders and generator are all required")
	}
	if err := checkCoverage(model.Heads, encoders); err != nil {
		return nil, err
	}
	return &Predictor{
		model:     model,
		encoders:  encoders,
		generator: generator,
		transform: dataset.NewEvalTransform(dataset.ImageSize),
	}, nil
}

// checkCoverage rejects encoder stores whose class counts disagree with the
// model's head sizes. Catching the mismatch here beats decoding garbage.
func checkCoverage(heads nn.HeadSizes, encoders *labelenc.Store) error {
	pairs := []struct {
		name    string
		head    int
		classes int
	}{
		{"age", heads.Age, encoders.Age.NumClasses()},
		{"gender", heads.Gender, encoders.Gender.NumClasses()},
		{"accent", heads.Accent, encoders.Accent.NumClasses()},
	}
	for _, p := range pairs {
		if p.head != p.classes {
			return fmt.Errorf("%s head has %d classes but encoder has %d", p.name, p.head, p.classes)
		}
	}
	return nil
}

// Predict classifies one audio file. The intermediate spectrogram image is
// written under the system temp directory with a unique name and removed
// before returning, whether or not inference succeeds.
func (p *Predictor) Predict(audioPath string) (*Prediction, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not accessible: %v", err)
	}

	imagePath := filepath.Join(os.TempDir(), uuid.New().String()+".png")
	defer func() {
		if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove temporary spectrogram %s: %v", imagePath, err)
		}
	}()

	if _, err := p.generator.Generate(audioPath, imagePath); err != nil {
		return nil, fmt.Errorf("spectrogram generation failed for %s: %v", audioPath, err)
	}

	input, err := p.loadInput(imagePath)
	if err != nil {
		return nil, err
	}

	p.model.SetTraining(false)
	ageLogits, genderLogits, accentLogits := p.model.Forward(input)

	age, err := p.decodeHead(ageLogits, p.encoders.Age, "age")
	if err != nil {
		return nil, err
	}
	gender, err := p.decodeHead(genderLogits, p.encoders.Gender, "gender")
	if err != nil {
		return nil, err
	}
	accent, err := p.decodeHead(accentLogits, p.encoders.Accent, "accent")
	if err != nil {
		return nil, err
	}

	return &Prediction{Age: age, Gender: gender, Accent: accent}, nil
}

// loadInput runs the evaluation transform and adds the batch dimension.
func (p *Predictor) loadInput(imagePath string) (*tensor.Tensor, error) {
	img, err := dataset.LoadImage(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load spectrogram image: %v", err)
	}
	input, err := p.transform.Apply(img)
	if err != nil {
		return nil, fmt.Errorf("failed to transform spectrogram image: %v", err)
	}
	return input.Reshape([]int{1, input.Shape[0], input.Shape[1], input.Shape[2]})
}

// decodeHead takes the arg-max class of a [1, numClasses] logit tensor and
// maps it back to its category string.
func (p *Predictor) decodeHead(logits *tensor.Tensor, encoder *labelenc.Encoder, name string) (string, error) {
	preds, err := tensor.ArgMaxRows(logits)
	if err != nil {
		return "", fmt.Errorf("%s head produced invalid logits: %v", name, err)
	}
	if len(preds) != 1 {
		return "", fmt.Errorf("%s head produced %d predictions for one sample", name, len(preds))
	}
	category, err := encoder.Decode(preds[0])
	if err != nil {
		return "", fmt.Errorf("%s prediction out of encoder range: %v", name, err)
	}
	return category, nil
}
