package nn

import (
	"fmt"
	"math/rand"

	"github.com/loom-ml/loom/internal/tensor"
)

// LSTM implements a multi-layer long short-term memory network over
// batch-first sequences, optionally bidirectional, with inter-layer dropout.
//
// Input shape: [batch, seq_len, input_size]
// Output shape: [batch, seq_len, hidden_size * num_directions]
//
// Per layer and direction the parameters follow the fused-gate layout:
//
//	weight_ih_l{k}: [4*hidden, layer_input]   input projection
//	weight_hh_l{k}: [4*hidden, hidden]        recurrent projection
//	bias_ih_l{k}, bias_hh_l{k}: [4*hidden]
//
// with the reverse direction carrying a "_reverse" suffix. The 4*hidden rows
// hold the input, forget, cell and output gates in that order. All parameters
// are initialized from U(-k, k) with k = 1/sqrt(hidden).
//
// The initial hidden and cell states are zero. Dropout applies to the output
// of every layer except the last, only in training mode.
type LSTM[B tensor.Backend] struct {
	inputSize     int
	hiddenSize    int
	numLayers     int
	bidirectional bool

	layers  [][]lstmDirection[B] // [layer][direction]
	dropout *Dropout[B]          // nil when rate is 0
	backend B
}

// lstmDirection holds the four parameter tensors of one layer direction.
type lstmDirection[B tensor.Backend] struct {
	weightIH *Parameter[B]
	weightHH *Parameter[B]
	biasIH   *Parameter[B]
	biasHH   *Parameter[B]
}

func (d *lstmDirection[B]) parameters() []*Parameter[B] {
	return []*Parameter[B]{d.weightIH, d.weightHH, d.biasIH, d.biasHH}
}

// NewLSTM creates an LSTM with freshly initialized parameters.
func NewLSTM[B tensor.Backend](
	inputSize, hiddenSize, numLayers int,
	dropoutRate float32,
	bidirectional bool,
	rng *rand.Rand,
	backend B,
) *LSTM[B] {
	if inputSize < 1 || hiddenSize < 1 {
		panic(fmt.Sprintf("lstm: input and hidden sizes must be positive, got %d and %d",
			inputSize, hiddenSize))
	}
	if numLayers < 1 {
		panic(fmt.Sprintf("lstm: need at least one layer, got %d", numLayers))
	}

	numDirections := 1
	if bidirectional {
		numDirections = 2
	}

	lstm := &LSTM[B]{
		inputSize:     inputSize,
		hiddenSize:    hiddenSize,
		numLayers:     numLayers,
		bidirectional: bidirectional,
		layers:        make([][]lstmDirection[B], numLayers),
		backend:       backend,
	}

	for layer := 0; layer < numLayers; layer++ {
		layerInput := inputSize
		if layer > 0 {
			layerInput = hiddenSize * numDirections
		}

		lstm.layers[layer] = make([]lstmDirection[B], numDirections)
		for dir := 0; dir < numDirections; dir++ {
			suffix := fmt.Sprintf("l%d", layer)
			if dir == 1 {
				suffix += "_reverse"
			}

			lstm.layers[layer][dir] = lstmDirection[B]{
				weightIH: NewParameter("weight_ih_"+suffix,
					ScaledUniform(hiddenSize, tensor.Shape{4 * hiddenSize, layerInput}, rng, backend)),
				weightHH: NewParameter("weight_hh_"+suffix,
					ScaledUniform(hiddenSize, tensor.Shape{4 * hiddenSize, hiddenSize}, rng, backend)),
				biasIH: NewParameter("bias_ih_"+suffix,
					ScaledUniform(hiddenSize, tensor.Shape{4 * hiddenSize}, rng, backend)),
				biasHH: NewParameter("bias_hh_"+suffix,
					ScaledUniform(hiddenSize, tensor.Shape{4 * hiddenSize}, rng, backend)),
			}
		}
	}

	if dropoutRate > 0 {
		lstm.dropout = NewDropout(dropoutRate, rng, backend)
	}

	return lstm
}

// NumDirections returns 2 for a bidirectional LSTM, 1 otherwise.
func (l *LSTM[B]) NumDirections() int {
	if l.bidirectional {
		return 2
	}
	return 1
}

// OutputSize returns the feature size of the output sequence,
// hidden_size * num_directions.
func (l *LSTM[B]) OutputSize() int {
	return l.hiddenSize * l.NumDirections()
}

// HiddenSize returns the per-direction hidden state size.
func (l *LSTM[B]) HiddenSize() int {
	return l.hiddenSize
}

// NumLayers returns the number of stacked layers.
func (l *LSTM[B]) NumLayers() int {
	return l.numLayers
}

// Forward runs the full stack over a batch-first sequence.
//
// Input shape: [batch, seq_len, input_size]
// Output shape: [batch, seq_len, hidden_size * num_directions]
func (l *LSTM[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("lstm: expected 3D input [batch, seq, features], got shape %v", shape))
	}
	if shape[2] != l.inputSize {
		panic(fmt.Sprintf("lstm: expected input size %d, got %d", l.inputSize, shape[2]))
	}

	output := input
	for layer := 0; layer < l.numLayers; layer++ {
		output = l.forwardLayer(layer, output)
		if l.dropout != nil && layer < l.numLayers-1 {
			output = l.dropout.Forward(output)
		}
	}
	return output
}

// forwardLayer runs one layer over the sequence and stacks the per-step
// hidden states back into a batch-first sequence.
func (l *LSTM[B]) forwardLayer(layer int, input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	steps := sliceTimeSteps(input)

	forward := l.runDirection(&l.layers[layer][0], steps, false)
	if !l.bidirectional {
		return stackTimeSteps(forward)
	}

	reverse := l.runDirection(&l.layers[layer][1], steps, true)

	fwd := stackTimeSteps(forward) // [batch, seq, hidden]
	rev := stackTimeSteps(reverse) // [batch, seq, hidden]
	return tensor.Cat([]*tensor.Tensor[float32, B]{fwd, rev}, 2)
}

// runDirection advances one direction through time, returning the hidden
// state emitted at every step indexed by the original time position.
func (l *LSTM[B]) runDirection(
	dir *lstmDirection[B],
	steps []*tensor.Tensor[float32, B],
	reversed bool,
) []*tensor.Tensor[float32, B] {
	seqLen := len(steps)
	batch := steps[0].Shape()[0]

	h := Zeros[B](tensor.Shape{batch, l.hiddenSize}, l.backend)
	c := Zeros[B](tensor.Shape{batch, l.hiddenSize}, l.backend)

	wIHt := dir.weightIH.Tensor().Transpose() // [layer_input, 4*hidden]
	wHHt := dir.weightHH.Tensor().Transpose() // [hidden, 4*hidden]
	bIH := dir.biasIH.Tensor().Reshape(tensor.Shape{1, 4 * l.hiddenSize})
	bHH := dir.biasHH.Tensor().Reshape(tensor.Shape{1, 4 * l.hiddenSize})

	outputs := make([]*tensor.Tensor[float32, B], seqLen)
	for i := 0; i < seqLen; i++ {
		t := i
		if reversed {
			t = seqLen - 1 - i
		}

		// gates = x_t @ W_ih.T + b_ih + h @ W_hh.T + b_hh, [batch, 4*hidden]
		gates := steps[t].MatMul(wIHt).Add(bIH).Add(h.MatMul(wHHt)).Add(bHH)

		parts := gates.Chunk(4, 1)
		inputGate := parts[0].Sigmoid()
		forgetGate := parts[1].Sigmoid()
		cellGate := parts[2].Tanh()
		outputGate := parts[3].Sigmoid()

		c = forgetGate.Mul(c).Add(inputGate.Mul(cellGate))
		h = outputGate.Mul(c.Tanh())

		outputs[t] = h
	}
	return outputs
}

// sliceTimeSteps splits [batch, seq, features] into seq tensors of
// [batch, features]. The split is recorded, so gradients flow back into the
// sequence tensor.
func sliceTimeSteps[B tensor.Backend](input *tensor.Tensor[float32, B]) []*tensor.Tensor[float32, B] {
	shape := input.Shape()
	seqLen := shape[1]

	chunks := input.Chunk(seqLen, 1)
	steps := make([]*tensor.Tensor[float32, B], seqLen)
	for t, chunk := range chunks {
		steps[t] = chunk.Reshape(tensor.Shape{shape[0], shape[2]})
	}
	return steps
}

// stackTimeSteps joins seq tensors of [batch, hidden] into
// [batch, seq, hidden].
func stackTimeSteps[B tensor.Backend](steps []*tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	batch := steps[0].Shape()[0]
	hidden := steps[0].Shape()[1]

	expanded := make([]*tensor.Tensor[float32, B], len(steps))
	for t, step := range steps {
		expanded[t] = step.Reshape(tensor.Shape{batch, 1, hidden})
	}
	return tensor.Cat(expanded, 1)
}

// Parameters returns all layer parameters ordered layer by layer with the
// forward direction before the reverse one.
func (l *LSTM[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for layer := range l.layers {
		for dir := range l.layers[layer] {
			params = append(params, l.layers[layer][dir].parameters()...)
		}
	}
	return params
}

// StateDict returns every parameter keyed by its name.
func (l *LSTM[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for _, p := range l.Parameters() {
		stateDict[p.Name()] = p.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict restores every parameter, failing on missing keys or shape
// mismatches so a differently configured network cannot load.
func (l *LSTM[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, p := range l.Parameters() {
		raw, ok := stateDict[p.Name()]
		if !ok {
			return fmt.Errorf("lstm: missing %q in state dict", p.Name())
		}
		if err := p.CopyFrom(raw); err != nil {
			return fmt.Errorf("lstm: loading %q: %w", p.Name(), err)
		}
	}
	return nil
}

// Train enables dropout between layers.
func (l *LSTM[B]) Train() {
	if l.dropout != nil {
		l.dropout.Train()
	}
}

// Eval disables dropout between layers.
func (l *LSTM[B]) Eval() {
	if l.dropout != nil {
		l.dropout.Eval()
	}
}
