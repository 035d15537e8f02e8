package training

import (
	"fmt"
	"math"

	"github.com/Akalya1854/voice-traits/tensor"
)

// Optimizer updates model parameters from their accumulated gradients.
type Optimizer interface {
	Step() error
	ZeroGrad()
	GetLR() float64
	SetLR(lr float64)
}

// SGD implements stochastic gradient descent with optional momentum and
// weight decay.
type SGD struct {
	parameters   []*tensor.Tensor
	learningRate float64
	momentum     float64
	weightDecay  float64
	velocities   map[*tensor.Tensor][]float32
}

func NewSGD(parameters []*tensor.Tensor, lr, momentum, weightDecay float64) *SGD {
	return &SGD{
		parameters:   parameters,
		learningRate: lr,
		momentum:     momentum,
		weightDecay:  weightDecay,
		velocities:   make(map[*tensor.Tensor][]float32),
	}
}

func (sgd *SGD) Step() error {
	for _, param := range sgd.parameters {
		if !param.RequiresGrad() || param.Grad() == nil {
			continue
		}

		data, err := param.Float32Data()
		if err != nil {
			return fmt.Errorf("parameter access failed: %v", err)
		}
		gradData, err := param.Grad().Float32Data()
		if err != nil {
			return fmt.Errorf("gradient access failed: %v", err)
		}

		update := make([]float32, len(data))
		copy(update, gradData)
		if sgd.weightDecay > 0 {
			wd := float32(sgd.weightDecay)
			for i := range update {
				update[i] += wd * data[i]
			}
		}

		if sgd.momentum > 0 {
			velocity := sgd.velocities[param]
			if velocity == nil {
				velocity = make([]float32, len(data))
				sgd.velocities[param] = velocity
			}
			mom := float32(sgd.momentum)
			for i := range velocity {
				velocity[i] = mom*velocity[i] + update[i]
				update[i] = velocity[i]
			}
		}

		lr := float32(sgd.learningRate)
		newData := make([]float32, len(data))
		for i := range data {
			newData[i] = data[i] - lr*update[i]
		}
		if err := param.SetData(newData); err != nil {
			return fmt.Errorf("parameter update failed: %v", err)
		}
	}
	return nil
}

func (sgd *SGD) ZeroGrad() {
	for _, param := range sgd.parameters {
		param.ZeroGrad()
	}
}

func (sgd *SGD) GetLR() float64 {
	return sgd.learningRate
}

func (sgd *SGD) SetLR(lr float64) {
	sgd.learningRate = lr
}

// Adam implements the Adam optimizer with bias-corrected moment estimates
// and optional weight decay.
type Adam struct {
	parameters  []*tensor.Tensor
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	step        int64
	m           map[*tensor.Tensor][]float32
	v           map[*tensor.Tensor][]float32
}

// NewAdam creates an Adam optimizer. Zero beta or eps values fall back to
// the standard defaults.
func NewAdam(parameters []*tensor.Tensor, lr, beta1, beta2, eps, weightDecay float64) *Adam {
	if beta1 <= 0 {
		beta1 = 0.9
	}
	if beta2 <= 0 {
		beta2 = 0.999
	}
	if eps <= 0 {
		eps = 1e-8
	}
	return &Adam{
		parameters:  parameters,
		lr:          lr,
		beta1:       beta1,
		beta2:       beta2,
		eps:         eps,
		weightDecay: weightDecay,
		m:           make(map[*tensor.Tensor][]float32),
		v:           make(map[*tensor.Tensor][]float32),
	}
}

func (adam *Adam) Step() error {
	adam.step++

	bias1 := 1.0 - math.Pow(adam.beta1, float64(adam.step))
	bias2 := 1.0 - math.Pow(adam.beta2, float64(adam.step))

	for _, param := range adam.parameters {
		if !param.RequiresGrad() || param.Grad() == nil {
			continue
		}

		data, err := param.Float32Data()
		if err != nil {
			return fmt.Errorf("parameter access failed: %v", err)
		}
		gradData, err := param.Grad().Float32Data()
		if err != nil {
			return fmt.Errorf("gradient access failed: %v", err)
		}

		grad := make([]float32, len(gradData))
		copy(grad, gradData)
		if adam.weightDecay > 0 {
			wd := float32(adam.weightDecay)
			for i := range grad {
				grad[i] += wd * data[i]
			}
		}

		m := adam.m[param]
		v := adam.v[param]
		if m == nil {
			m = make([]float32, len(data))
			v = make([]float32, len(data))
			adam.m[param] = m
			adam.v[param] = v
		}

		b1, b2 := float32(adam.beta1), float32(adam.beta2)
		newData := make([]float32, len(data))
		for i := range data {
			m[i] = b1*m[i] + (1-b1)*grad[i]
			v[i] = b2*v[i] + (1-b2)*grad[i]*grad[i]

			mHat := float64(m[i]) / bias1
			vHat := float64(v[i]) / bias2
			newData[i] = data[i] - float32(adam.lr*mHat/(math.Sqrt(vHat)+adam.eps))
		}
		if err := param.SetData(newData); err != nil {
			return fmt.Errorf("parameter update failed: %v", err)
		}
	}
	return nil
}

func (adam *Adam) ZeroGrad() {
	for _, param := range adam.parameters {
		param.ZeroGrad()
	}
}

func (adam *Adam) GetLR() float64 {
	return adam.lr
}

func (adam *Adam) SetLR(lr float64) {
	adam.lr = lr
}
