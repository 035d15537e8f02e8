package nn

import (
	"fmt"
	"math/rand"

	"github.com/Akalya1854/voice-traits/tensor"
)

// HeadSizes records the category count of each attribute head in fixed
// order: age, gender, accent.
type HeadSizes struct {
	Age    int `json:"age"`
	Gender int `json:"gender"`
	Accent int `json:"accent"`
}

func (h HeadSizes) Validate() error {
	if h.Age <= 0 || h.Gender <= 0 || h.Accent <= 0 {
		return fmt.Errorf("head sizes must be positive, got age=%d gender=%d accent=%d", h.Age, h.Gender, h.Accent)
	}
	return nil
}

// MultiHead wraps a feature-extracting backbone with dropout and three
// independent linear heads, one per voice attribute.
type MultiHead struct {
	Backbone   Module
	BackboneID string
	Heads      HeadSizes
	DropoutP   float64

	dropout    *Dropout
	ageHead    *Linear
	genderHead *Linear
	accentHead *Linear
}

// NewMultiHead builds the classifier. The backbone identifier is kept so
// checkpoints can record which feature extractor the weights belong to.
func NewMultiHead(backboneID string, heads HeadSizes, dropoutP float64, rng *rand.Rand) (*MultiHead, error) {
	if err := heads.Validate(); err != nil {
		return nil, err
	}

	backbone, err := NewBackbone(backboneID, rng)
	if err != nil {
		return nil, err
	}

	ageHead, err := NewLinear("age_head", FeatureDim, heads.Age, rng)
	if err != nil {
		return nil, err
	}
	genderHead, err := NewLinear("gender_head", FeatureDim, heads.Gender, rng)
	if err != nil {
		return nil, err
	}
	accentHead, err := NewLinear("accent_head", FeatureDim, heads.Accent, rng)
	if err != nil {
		return nil, err
	}

	return &MultiHead{
		Backbone:   backbone,
		BackboneID: backboneID,
		Heads:      heads,
		DropoutP:   dropoutP,
		dropout:    NewDropout(dropoutP, rng),
		ageHead:    ageHead,
		genderHead: genderHead,
		accentHead: accentHead,
	}, nil
}

// Forward runs a batch of images through the backbone and all three heads,
// returning age, gender and accent logits in that order.
func (m *MultiHead) Forward(images *tensor.Tensor) (age, gender, accent *tensor.Tensor) {
	features := m.Backbone.Forward(images)
	features = m.dropout.Forward(features)
	return m.ageHead.Forward(features),
		m.genderHead.Forward(features),
		m.accentHead.Forward(features)
}

func (m *MultiHead) Parameters() []*tensor.Tensor {
	params := m.Backbone.Parameters()
	params = append(params, m.ageHead.Parameters()...)
	params = append(params, m.genderHead.Parameters()...)
	params = append(params, m.accentHead.Parameters()...)
	return params
}

func (m *MultiHead) NamedParameters() []NamedParameter {
	params := m.Backbone.NamedParameters()
	params = append(params, m.ageHead.NamedParameters()...)
	params = append(params, m.genderHead.NamedParameters()...)
	params = append(params, m.accentHead.NamedParameters()...)
	return params
}

// NamedBuffers exposes the backbone's non-learnable checkpoint state.
func (m *MultiHead) NamedBuffers() []NamedBuffer {
	if bm, ok := m.Backbone.(BufferModule); ok {
		return bm.NamedBuffers()
	}
	return nil
}

// SetTraining toggles dropout and batch-norm behavior across the whole
// classifier.
func (m *MultiHead) SetTraining(training bool) {
	m.Backbone.SetTraining(training)
	m.dropout.SetTraining(training)
}

// ZeroGrad clears accumulated gradients on every parameter.
func (m *MultiHead) ZeroGrad() {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}
