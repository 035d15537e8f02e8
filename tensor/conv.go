package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Conv2DOp implements a 2D convolution over NCHW input with square stride
// and zero padding. Weight layout is [outC, inC, kH, kW], bias is [outC].
type Conv2DOp struct {
	input, weight, bias *Tensor
	stride, padding     int
}

func conv2dOutputDims(h, w, kh, kw, stride, padding int) (int, int) {
	outH := (h+2*padding-kh)/stride + 1
	outW := (w+2*padding-kw)/stride + 1
	return outH, outW
}

func (op *Conv2DOp) Forward(inputs ...*Tensor) *Tensor {
	op.input, op.weight = inputs[0], inputs[1]
	if len(inputs) > 2 {
		op.bias = inputs[2]
	}

	if len(op.input.Shape) != 4 {
		panic(fmt.Sprintf("Conv2DOp requires NCHW input, got shape %v", op.input.Shape))
	}
	if len(op.weight.Shape) != 4 {
		panic(fmt.Sprintf("Conv2DOp requires 4D weight, got shape %v", op.weight.Shape))
	}

	batch, inC, h, w := op.input.Shape[0], op.input.Shape[1], op.input.Shape[2], op.input.Shape[3]
	outC, kInC, kh, kw := op.weight.Shape[0], op.weight.Shape[1], op.weight.Shape[2], op.weight.Shape[3]
	if inC != kInC {
		panic(fmt.Sprintf("Conv2DOp channel mismatch: input has %d, weight expects %d", inC, kInC))
	}

	outH, outW := conv2dOutputDims(h, w, kh, kw, op.stride, op.padding)
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("Conv2DOp output collapsed to %dx%d for input %dx%d", outH, outW, h, w))
	}

	inData := op.input.Data.([]float32)
	wData := op.weight.Data.([]float32)
	var bData []float32
	if op.bias != nil {
		bData = op.bias.Data.([]float32)
	}

	outData := make([]float32, batch*outC*outH*outW)

	for n := 0; n < batch; n++ {
		for oc := 0; oc < outC; oc++ {
			var biasVal float32
			if bData != nil {
				biasVal = bData[oc]
			}
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					acc := biasVal
					for ic := 0; ic < inC; ic++ {
						for ky := 0; ky < kh; ky++ {
							iy := oy*op.stride - op.padding + ky
							if iy < 0 || iy >= h {
								continue
							}
							for kx := 0; kx < kw; kx++ {
								ix := ox*op.stride - op.padding + kx
								if ix < 0 || ix >= w {
									continue
								}
								inIdx := ((n*inC+ic)*h+iy)*w + ix
								wIdx := ((oc*inC+ic)*kh+ky)*kw + kx
								acc += inData[inIdx] * wData[wIdx]
							}
						}
					}
					outData[((n*outC+oc)*outH+oy)*outW+ox] = acc
				}
			}
		}
	}

	out, err := NewTensor([]int{batch, outC, outH, outW}, Float32, outData)
	if err != nil {
		panic(fmt.Sprintf("Conv2DOp forward failed: %v", err))
	}
	if op.bias != nil {
		attachCreator(out, op, op.input, op.weight, op.bias)
	} else {
		attachCreator(out, op, op.input, op.weight)
	}
	return out
}

func (op *Conv2DOp) Backward(gradOut *Tensor) []*Tensor {
	batch, inC, h, w := op.input.Shape[0], op.input.Shape[1], op.input.Shape[2], op.input.Shape[3]
	outC, _, kh, kw := op.weight.Shape[0], op.weight.Shape[1], op.weight.Shape[2], op.weight.Shape[3]
	outH, outW := gradOut.Shape[2], gradOut.Shape[3]

	inData := op.input.Data.([]float32)
	wData := op.weight.Data.([]float32)
	gData := gradOut.Data.([]float32)

	gradIn := make([]float32, len(inData))
	gradW := make([]float32, len(wData))
	var gradB []float32
	if op.bias != nil {
		gradB = make([]float32, outC)
	}

	for n := 0; n < batch; n++ {
		for oc := 0; oc < outC; oc++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					g := gData[((n*outC+oc)*outH+oy)*outW+ox]
					if gradB != nil {
						gradB[oc] += g
					}
					if g == 0 {
						continue
					}
					for ic := 0; ic < inC; ic++ {
						for ky := 0; ky < kh; ky++ {
							iy := oy*op.stride - op.padding + ky
							if iy < 0 || iy >= h {
								continue
							}
							for kx := 0; kx < kw; kx++ {
								ix := ox*op.stride - op.padding + kx
								if ix < 0 || ix >= w {
									continue
								}
								inIdx := ((n*inC+ic)*h+iy)*w + ix
								wIdx := ((oc*inC+ic)*kh+ky)*kw + kx
								gradIn[inIdx] += g * wData[wIdx]
								gradW[wIdx] += g * inData[inIdx]
							}
						}
					}
				}
			}
		}
	}

	gradInT, err := NewTensor(op.input.Shape, Float32, gradIn)
	if err != nil {
		panic(fmt.Sprintf("Conv2DOp backward failed: %v", err))
	}
	gradWT, err := NewTensor(op.weight.Shape, Float32, gradW)
	if err != nil {
		panic(fmt.Sprintf("Conv2DOp backward failed: %v", err))
	}

	if op.bias == nil {
		return []*Tensor{gradInT, gradWT}
	}
	gradBT, err := NewTensor(op.bias.Shape, Float32, gradB)
	if err != nil {
		panic(fmt.Sprintf("Conv2DOp backward failed: %v", err))
	}
	return []*Tensor{gradInT, gradWT, gradBT}
}

func (op *Conv2DOp) Inputs() []*Tensor {
	if op.bias == nil {
		return []*Tensor{op.input, op.weight}
	}
	return []*Tensor{op.input, op.weight, op.bias}
}

// Conv2DAutograd convolves input with weight and records the op on the
// graph. bias may be nil.
func Conv2DAutograd(input, weight, bias *Tensor, stride, padding int) *Tensor {
	op := &Conv2DOp{stride: stride, padding: padding}
	if bias == nil {
		return op.Forward(input, weight)
	}
	return op.Forward(input, weight, bias)
}

// MaxPool2DOp implements max pooling over NCHW input.
type MaxPool2DOp struct {
	input       *Tensor
	kernel      int
	stride      int
	argmax      []int
	outputShape []int
}

func (op *MaxPool2DOp) Forward(inputs ...*Tensor) *Tensor {
	op.input = inputs[0]
	if len(op.input.Shape) != 4 {
		panic(fmt.Sprintf("MaxPool2DOp requires NCHW input, got shape %v", op.input.Shape))
	}

	batch, ch, h, w := op.input.Shape[0], op.input.Shape[1], op.input.Shape[2], op.input.Shape[3]
	outH := (h-op.kernel)/op.stride + 1
	outW := (w-op.kernel)/op.stride + 1
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("MaxPool2DOp output collapsed to %dx%d for input %dx%d", outH, outW, h, w))
	}

	inData := op.input.Data.([]float32)
	outData := make([]float32, batch*ch*outH*outW)
	op.argmax = make([]int, len(outData))
	op.outputShape = []int{batch, ch, outH, outW}

	for n := 0; n < batch; n++ {
		for c := 0; c < ch; c++ {
			for oy := 0; oy < outH; oy++ {
				for ox := 0; ox < outW; ox++ {
					best := float32(math.Inf(-1))
					bestIdx := -1
					for ky := 0; ky < op.kernel; ky++ {
						iy := oy*op.stride + ky
						for kx := 0; kx < op.kernel; kx++ {
							ix := ox*op.stride + kx
							idx := ((n*ch+c)*h+iy)*w + ix
							if inData[idx] > best {
								best = inData[idx]
								bestIdx = idx
							}
						}
					}
					outIdx := ((n*ch+c)*outH+oy)*outW + ox
					outData[outIdx] = best
					op.argmax[outIdx] = bestIdx
				}
			}
		}
	}

	out, err := NewTensor(op.outputShape, Float32, outData)
	if err != nil {
		panic(fmt.Sprintf("MaxPool2DOp forward failed: %v", err))
	}
	attachCreator(out, op, op.input)
	return out
}

func (op *MaxPool2DOp) Backward(gradOut *Tensor) []*Tensor {
	gData := gradOut.Data.([]float32)
	gradIn := make([]float32, op.input.NumElems)
	for i, srcIdx := range op.argmax {
		gradIn[srcIdx] += gData[i]
	}
	grad, err := NewTensor(op.input.Shape, Float32, gradIn)
	if err != nil {
		panic(fmt.Sprintf("MaxPool2DOp backward failed: %v", err))
	}
	return []*Tensor{grad}
}

func (op *MaxPool2DOp) Inputs() []*Tensor {
	return []*Tensor{op.input}
}

// MaxPool2DAutograd max-pools input and records the op on the graph.
func MaxPool2DAutograd(input *Tensor, kernel, stride int) *Tensor {
	op := &MaxPool2DOp{kernel: kernel, stride: stride}
	return op.Forward(input)
}

// GlobalAvgPoolOp averages each channel's spatial plane, reducing NCHW to
// [N, C].
type GlobalAvgPoolOp struct {
	input *Tensor
}

func (op *GlobalAvgPoolOp) Forward(inputs ...*Tensor) *Tensor {
	op.input = inputs[0]
	if len(op.input.Shape) != 4 {
		panic(fmt.Sprintf("GlobalAvgPoolOp requires NCHW input, got shape %v", op.input.Shape))
	}

	batch, ch, h, w := op.input.Shape[0], op.input.Shape[1], op.input.Shape[2], op.input.Shape[3]
	plane := h * w
	inData := op.input.Data.([]float32)
	outData := make([]float32, batch*ch)

	for n := 0; n < batch; n++ {
		for c := 0; c < ch; c++ {
			var sum float32
			base := (n*ch + c) * plane
			for i := 0; i < plane; i++ {
				sum += inData[base+i]
			}
			outData[n*ch+c] = sum / float32(plane)
		}
	}

	out, err := NewTensor([]int{batch, ch}, Float32, outData)
	if err != nil {
		panic(fmt.Sprintf("GlobalAvgPoolOp forward failed: %v", err))
	}
	attachCreator(out, op, op.input)
	return out
}

func (op *GlobalAvgPoolOp) Backward(gradOut *Tensor) []*Tensor {
	batch, ch, h, w := op.input.Shape[0], op.input.Shape[1], op.input.Shape[2], op.input.Shape[3]
	plane := h * w
	scale := 1 / float32(plane)
	gData := gradOut.Data.([]float32)
	gradIn := make([]float32, op.input.NumElems)

	for n := 0; n < batch; n++ {
		for c := 0; c < ch; c++ {
			g := gData[n*ch+c] * scale
			base := (n*ch + c) * plane
			for i := 0; i < plane; i++ {
				gradIn[base+i] = g
			}
		}
	}

	grad, err := NewTensor(op.input.Shape, Float32, gradIn)
	if err != nil {
		panic(fmt.Sprintf("GlobalAvgPoolOp backward failed: %v", err))
	}
	return []*Tensor{grad}
}

func (op *GlobalAvgPoolOp) Inputs() []*Tensor {
	return []*Tensor{op.input}
}

// GlobalAvgPoolAutograd averages spatial planes and records the op on the
// graph.
func GlobalAvgPoolAutograd(input *Tensor) *Tensor {
	op := &GlobalAvgPoolOp{}
	return op.Forward(input)
}

// DropoutOp zeroes elements with probability p during training and scales
// the survivors by 1/(1-p).
type DropoutOp struct {
	input *Tensor
	mask  []float32
}

func (op *DropoutOp) Forward(inputs ...*Tensor) *Tensor {
	op.input = inputs[0]
	out, err := op.input.Clone()
	if err != nil {
		panic(fmt.Sprintf("DropoutOp forward failed: %v", err))
	}
	data := out.Data.([]float32)
	for i := range data {
		data[i] *= op.mask[i]
	}
	out.creator = nil
	attachCreator(out, op, op.input)
	return out
}

func (op *DropoutOp) Backward(gradOut *Tensor) []*Tensor {
	gData := gradOut.Data.([]float32)
	gradIn := make([]float32, len(gData))
	for i := range gradIn {
		gradIn[i] = gData[i] * op.mask[i]
	}
	grad, err := NewTensor(op.input.Shape, Float32, gradIn)
	if err != nil {
		panic(fmt.Sprintf("DropoutOp backward failed: %v", err))
	}
	return []*Tensor{grad}
}

func (op *DropoutOp) Inputs() []*Tensor {
	return []*Tensor{op.input}
}

// DropoutAutograd applies inverted dropout with probability p, drawing the
// mask from rng.
func DropoutAutograd(input *Tensor, p float64, rng *rand.Rand) *Tensor {
	mask := make([]float32, input.NumElems)
	keep := float32(1 / (1 - p))
	for i := range mask {
		var u float64
		if rng != nil {
			u = rng.Float64()
		} else {
			u = rand.Float64()
		}
		if u >= p {
			mask[i] = keep
		}
	}
	op := &DropoutOp{mask: mask}
	return op.Forward(input)
}
