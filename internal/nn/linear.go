package nn

import (
	"fmt"
	"math/rand"

	"github.com/loom-ml/loom/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
//   - x: [batch_size, in_features]
//   - W: [out_features, in_features]
//   - b: [out_features]
//   - y: [batch_size, out_features]
//
// Weight and bias are initialized from U(-k, k) with k = 1/sqrt(in_features).
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
	backend     B
}

// NewLinear creates a Linear layer with freshly initialized parameters.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	weight := NewParameter("weight",
		ScaledUniform(inFeatures, tensor.Shape{outFeatures, inFeatures}, rng, backend))
	bias := NewParameter("bias",
		ScaledUniform(inFeatures, tensor.Shape{outFeatures}, rng, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes y = x @ W.T + b for a [batch_size, in_features]
// input, producing [batch_size, out_features].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("linear: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("linear: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	wT := l.weight.Tensor().Transpose() // [in_features, out_features]
	output := input.MatMul(wT)

	// Bias broadcasts over the batch dimension as [1, out_features].
	b := l.bias.Tensor().Reshape(tensor.Shape{1, l.outFeatures})
	return output.Add(b)
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the [out_features, in_features] weight matrix.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the [out_features] bias vector.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures reports the layer's input width.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures reports the layer's output width.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns the layer parameters keyed "weight" and "bias".
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": l.weight.Tensor().Raw(),
		"bias":   l.bias.Tensor().Raw(),
	}
}

// LoadStateDict restores the layer parameters, failing on missing keys or
// shape mismatches.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, p := range []*Parameter[B]{l.weight, l.bias} {
		raw, ok := stateDict[p.Name()]
		if !ok {
			return fmt.Errorf("linear: missing %q in state dict", p.Name())
		}
		if err := p.CopyFrom(raw); err != nil {
			return fmt.Errorf("linear: loading %q: %w", p.Name(), err)
		}
	}
	return nil
}

// Train is a no-op: Linear behaves identically in both modes.
func (l *Linear[B]) Train() {}

// Eval is a no-op: Linear behaves identically in both modes.
func (l *Linear[B]) Eval() {}
