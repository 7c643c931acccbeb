package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/loom-ml/loom/internal/tensor"
)

// ClassifierConfig describes the LSTM classifier architecture.
type ClassifierConfig struct {
	InputSize     int     // features per timestep (image row width)
	HiddenSize    int     // LSTM hidden state size per direction
	NumLayers     int     // stacked LSTM layers
	NumClasses    int     // output classes
	SeqLen        int     // timesteps per sample (image rows)
	DropoutRate   float32 // inter-layer dropout probability
	Bidirectional bool
}

// LSTMClassifier reads an image row by row with an LSTM and classifies the
// flattened sequence of hidden states with a linear head.
//
// The head consumes every timestep, not just the final one: its input size
// is seq_len * hidden_size * num_directions.
type LSTMClassifier[B tensor.Backend] struct {
	cfg     ClassifierConfig
	lstm    *LSTM[B]
	fc      *Linear[B]
	backend B
}

// NamedParameter pairs a parameter with its fully qualified name, in
// registration order. Used for parameter tables and debugging.
type NamedParameter[B tensor.Backend] struct {
	Name  string
	Param *Parameter[B]
}

// NewLSTMClassifier creates the classifier with freshly initialized weights.
func NewLSTMClassifier[B tensor.Backend](cfg ClassifierConfig, rng *rand.Rand, backend B) *LSTMClassifier[B] {
	if cfg.NumClasses < 2 {
		panic(fmt.Sprintf("classifier: need at least 2 classes, got %d", cfg.NumClasses))
	}
	if cfg.SeqLen < 1 {
		panic(fmt.Sprintf("classifier: sequence length must be positive, got %d", cfg.SeqLen))
	}

	lstm := NewLSTM(cfg.InputSize, cfg.HiddenSize, cfg.NumLayers,
		cfg.DropoutRate, cfg.Bidirectional, rng, backend)
	fc := NewLinear(cfg.SeqLen*lstm.OutputSize(), cfg.NumClasses, rng, backend)

	return &LSTMClassifier[B]{
		cfg:     cfg,
		lstm:    lstm,
		fc:      fc,
		backend: backend,
	}
}

// Config returns the architecture description.
func (m *LSTMClassifier[B]) Config() ClassifierConfig {
	return m.cfg
}

// Forward classifies a batch of images.
//
// Accepts [batch, seq, features] or [batch, 1, seq, features]; a singleton
// channel dimension is squeezed away. Returns logits [batch, num_classes].
func (m *LSTMClassifier[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) == 4 && shape[1] == 1 {
		input = input.Reshape(tensor.Shape{shape[0], shape[2], shape[3]})
		shape = input.Shape()
	}
	if len(shape) != 3 {
		panic(fmt.Sprintf("classifier: expected [batch, seq, features] input, got shape %v", shape))
	}
	if shape[1] != m.cfg.SeqLen {
		panic(fmt.Sprintf("classifier: expected sequence length %d, got %d", m.cfg.SeqLen, shape[1]))
	}

	out := m.lstm.Forward(input) // [batch, seq, hidden*dirs]

	batch := shape[0]
	flat := out.Reshape(tensor.Shape{batch, m.cfg.SeqLen * m.lstm.OutputSize()})
	return m.fc.Forward(flat) // [batch, num_classes]
}

// Parameters returns the LSTM parameters followed by the head parameters.
func (m *LSTMClassifier[B]) Parameters() []*Parameter[B] {
	return append(m.lstm.Parameters(), m.fc.Parameters()...)
}

// NamedParameters returns the parameters with their qualified names in
// registration order, e.g. "lstm.weight_ih_l0" and "fc.weight".
func (m *LSTMClassifier[B]) NamedParameters() []NamedParameter[B] {
	var named []NamedParameter[B]
	for _, p := range m.lstm.Parameters() {
		named = append(named, NamedParameter[B]{Name: "lstm." + p.Name(), Param: p})
	}
	for _, p := range m.fc.Parameters() {
		named = append(named, NamedParameter[B]{Name: "fc." + p.Name(), Param: p})
	}
	return named
}

// NumParameters returns the total number of trainable scalar values.
func (m *LSTMClassifier[B]) NumParameters() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.NumElements()
	}
	return total
}

// StateDict returns the full model state with qualified names.
func (m *LSTMClassifier[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range m.lstm.StateDict() {
		stateDict["lstm."+name] = raw
	}
	for name, raw := range m.fc.StateDict() {
		stateDict["fc."+name] = raw
	}
	return stateDict
}

// LoadStateDict restores the full model state. Unknown keys, missing keys
// and shape mismatches are errors so a checkpoint from a differently
// configured model cannot load silently.
func (m *LSTMClassifier[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	lstmState := make(map[string]*tensor.RawTensor)
	fcState := make(map[string]*tensor.RawTensor)

	for name, raw := range stateDict {
		switch {
		case strings.HasPrefix(name, "lstm."):
			lstmState[strings.TrimPrefix(name, "lstm.")] = raw
		case strings.HasPrefix(name, "fc."):
			fcState[strings.TrimPrefix(name, "fc.")] = raw
		default:
			return fmt.Errorf("classifier: unexpected key %q in state dict", name)
		}
	}

	if err := m.lstm.LoadStateDict(lstmState); err != nil {
		return err
	}
	return m.fc.LoadStateDict(fcState)
}

// Train puts the model in training mode.
func (m *LSTMClassifier[B]) Train() {
	m.lstm.Train()
	m.fc.Train()
}

// Eval puts the model in evaluation mode.
func (m *LSTMClassifier[B]) Eval() {
	m.lstm.Eval()
	m.fc.Eval()
}
