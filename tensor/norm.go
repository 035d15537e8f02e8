package tensor

import (
	"fmt"
	"math"
)

// BatchNorm1DOp normalizes a [B, C] feature tensor per channel using batch
// statistics, then applies a learned scale and shift.
type BatchNorm1DOp struct {
	input, gamma, beta *Tensor
	eps                float32

	batchMean []float32
	batchVar  []float32
	xhat      []float32
	invStd    []float32
}

func (op *BatchNorm1DOp) Forward(inputs ...*Tensor) *Tensor {
	op.input, op.gamma, op.beta = inputs[0], inputs[1], inputs[2]
	if len(op.input.Shape) != 2 {
		panic(fmt.Sprintf("BatchNorm1DOp requires a [B, C] tensor, got shape %v", op.input.Shape))
	}

	batch, ch := op.input.Shape[0], op.input.Shape[1]
	inData := op.input.Data.([]float32)
	gData := op.gamma.Data.([]float32)
	bData := op.beta.Data.([]float32)

	op.batchMean = make([]float32, ch)
	op.batchVar = make([]float32, ch)
	op.invStd = make([]float32, ch)
	op.xhat = make([]float32, len(inData))
	outData := make([]float32, len(inData))

	for c := 0; c < ch; c++ {
		var sum float32
		for n := 0; n < batch; n++ {
			sum += inData[n*ch+c]
		}
		mean := sum / float32(batch)
		var variance float32
		for n := 0; n < batch; n++ {
			d := inData[n*ch+c] - mean
			variance += d * d
		}
		variance /= float32(batch)
		op.batchMean[c] = mean
		op.batchVar[c] = variance
		op.invStd[c] = 1 / float32(math.Sqrt(float64(variance+op.eps)))
	}

	for n := 0; n < batch; n++ {
		for c := 0; c < ch; c++ {
			idx := n*ch + c
			xh := (inData[idx] - op.batchMean[c]) * op.invStd[c]
			op.xhat[idx] = xh
			outData[idx] = gData[c]*xh + bData[c]
		}
	}

	out, err := NewTensor(op.input.Shape, Float32, outData)
	if err != nil {
		panic(fmt.Sprintf("BatchNorm1DOp forward failed: %v", err))
	}
	attachCreator(out, op, op.input, op.gamma, op.beta)
	return out
}

func (op *BatchNorm1DOp) Backward(gradOut *Tensor) []*Tensor {
	batch, ch := op.input.Shape[0], op.input.Shape[1]
	gOut := gradOut.Data.([]float32)
	gData := op.gamma.Data.([]float32)

	gradGamma := make([]float32, ch)
	gradBeta := make([]float32, ch)
	gradIn := make([]float32, len(gOut))

	for c := 0; c < ch; c++ {
		var sumG, sumGX float32
		for n := 0; n < batch; n++ {
			idx := n*ch + c
			sumG += gOut[idx]
			sumGX += gOut[idx] * op.xhat[idx]
		}
		gradBeta[c] = sumG
		gradGamma[c] = sumGX

		invB := 1 / float32(batch)
		for n := 0; n < batch; n++ {
			idx := n*ch + c
			gradIn[idx] = gData[c] * op.invStd[c] * (gOut[idx] - invB*sumG - op.xhat[idx]*invB*sumGX)
		}
	}

	gradInT, err := NewTensor(op.input.Shape, Float32, gradIn)
	if err != nil {
		panic(fmt.Sprintf("BatchNorm1DOp backward failed: %v", err))
	}
	gradGammaT, err := NewTensor(op.gamma.Shape, Float32, gradGamma)
	if err != nil {
		panic(fmt.Sprintf("BatchNorm1DOp backward failed: %v", err))
	}
	gradBetaT, err := NewTensor(op.beta.Shape, Float32, gradBeta)
	if err != nil {
		panic(fmt.Sprintf("BatchNorm1DOp backward failed: %v", err))
	}
	return []*Tensor{gradInT, gradGammaT, gradBetaT}
}

func (op *BatchNorm1DOp) Inputs() []*Tensor {
	return []*Tensor{op.input, op.gamma, op.beta}
}

// BatchNorm1DAutograd normalizes input with batch statistics and records
// the op on the graph. It also returns the batch mean and variance so the
// caller can maintain running estimates.
func BatchNorm1DAutograd(input, gamma, beta *Tensor, eps float32) (*Tensor, []float32, []float32) {
	op := &BatchNorm1DOp{eps: eps}
	out := op.Forward(input, gamma, beta)
	return out, op.batchMean, op.batchVar
}

// BatchNorm1DInference normalizes input with fixed running statistics, the
// evaluation-time path that needs no graph bookkeeping.
func BatchNorm1DInference(input, gamma, beta *Tensor, runningMean, runningVar []float32, eps float32) (*Tensor, error) {
	if len(input.Shape) != 2 {
		return nil, fmt.Errorf("BatchNorm1DInference requires a [B, C] tensor, got shape %v", input.Shape)
	}
	batch, ch := input.Shape[0], input.Shape[1]
	if len(runningMean) != ch || len(runningVar) != ch {
		return nil, fmt.Errorf("running statistics length mismatch: want %d channels", ch)
	}

	inData := input.Data.([]float32)
	gData := gamma.Data.([]float32)
	bData := beta.Data.([]float32)
	outData := make([]float32, len(inData))

	for c := 0; c < ch; c++ {
		invStd := 1 / float32(math.Sqrt(float64(runningVar[c]+eps)))
		for n := 0; n < batch; n++ {
			idx := n*ch + c
			outData[idx] = gData[c]*(inData[idx]-runningMean[c])*invStd + bData[c]
		}
	}

	return NewTensor(input.Shape, Float32, outData)
}
