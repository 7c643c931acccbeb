package optim

import (
	"fmt"
	"math"
	"strings"

	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Moment buffers are created lazily on the first step that produces a
// gradient for a parameter, and serialized under "{name}.exp_avg" and
// "{name}.exp_avg_sq" keys so checkpoints can restore mid-training state.
type Adam[B tensor.Backend] struct {
	params   []nn.NamedParameter[B]
	lr       float32
	beta1    float32
	beta2    float32
	eps      float32
	t        int // Timestep for bias correction
	expAvg   map[string]*tensor.RawTensor
	expAvgSq map[string]*tensor.RawTensor
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for the moment running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates an Adam optimizer over the given named parameters.
//
// Parameter names key the serialized moment buffers, so they must be unique;
// module NamedParameters() methods guarantee that.
func NewAdam[B tensor.Backend](params []nn.NamedParameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam[B]{
		params:   params,
		lr:       config.LR,
		beta1:    config.Betas[0],
		beta2:    config.Betas[1],
		eps:      config.Eps,
		expAvg:   make(map[string]*tensor.RawTensor),
		expAvgSq: make(map[string]*tensor.RawTensor),
	}
}

// Step performs a single optimization step.
//
// Parameters with no gradient in the map are skipped.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, p := range a.params {
		grad := getGradient(p.Param, grads)
		if grad == nil {
			continue
		}

		m, ok := a.expAvg[p.Name]
		if !ok {
			m = zerosLike(grad)
			a.expAvg[p.Name] = m
		}
		v, ok := a.expAvgSq[p.Name]
		if !ok {
			v = zerosLike(grad)
			a.expAvgSq[p.Name] = v
		}

		a.updateParameter(p.Param, grad, m, v, biasCorrection1, biasCorrection2)
	}
}

// updateParameter applies the Adam update for a single parameter in place.
func (a *Adam[B]) updateParameter(
	param *nn.Parameter[B],
	grad, m, v *tensor.RawTensor,
	biasCorrection1, biasCorrection2 float32,
) {
	gradData := grad.AsFloat32()
	mData := m.AsFloat32()
	vData := v.AsFloat32()
	paramData := param.Tensor().Raw().AsFloat32()

	for i := range paramData {
		g := gradData[i]

		mData[i] = a.beta1*mData[i] + (1.0-a.beta1)*g
		vData[i] = a.beta2*vData[i] + (1.0-a.beta2)*g*g

		mHat := mData[i] / biasCorrection1
		vHat := vData[i] / biasCorrection2

		paramData[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
	}
}

// GetLR returns the current learning rate.
func (a *Adam[B]) GetLR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam[B]) SetLR(lr float32) {
	a.lr = lr
}

// Name returns "Adam".
func (a *Adam[B]) Name() string {
	return "Adam"
}

// GetTimestep returns the number of steps taken so far.
func (a *Adam[B]) GetTimestep() int {
	return a.t
}

// StateDict returns the optimizer state: the step count under "step" and the
// moment buffers under "{name}.exp_avg" and "{name}.exp_avg_sq".
func (a *Adam[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, 2*len(a.expAvg)+1)

	step, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int32)
	if err != nil {
		panic(err)
	}
	step.AsInt32()[0] = int32(a.t)
	stateDict["step"] = step

	for name, m := range a.expAvg {
		stateDict[name+".exp_avg"] = m
	}
	for name, v := range a.expAvgSq {
		stateDict[name+".exp_avg_sq"] = v
	}

	return stateDict
}

// LoadStateDict restores optimizer state from a state dictionary.
//
// The "step" entry is required. Moment entries must match a known parameter
// name and shape; unknown keys are an error. Parameters without moment
// entries start fresh, as they would after construction.
func (a *Adam[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	step, ok := stateDict["step"]
	if !ok {
		return fmt.Errorf("adam: missing \"step\" in state dict")
	}
	if step.DType() != tensor.Int32 || step.NumElements() != 1 {
		return fmt.Errorf("adam: malformed \"step\" entry: %s", step)
	}

	byName := make(map[string]*nn.Parameter[B], len(a.params))
	for _, p := range a.params {
		byName[p.Name] = p.Param
	}

	expAvg := make(map[string]*tensor.RawTensor)
	expAvgSq := make(map[string]*tensor.RawTensor)
	for key, raw := range stateDict {
		if key == "step" {
			continue
		}

		var name string
		var dst map[string]*tensor.RawTensor
		switch {
		case strings.HasSuffix(key, ".exp_avg"):
			name = strings.TrimSuffix(key, ".exp_avg")
			dst = expAvg
		case strings.HasSuffix(key, ".exp_avg_sq"):
			name = strings.TrimSuffix(key, ".exp_avg_sq")
			dst = expAvgSq
		default:
			return fmt.Errorf("adam: unexpected key %q in state dict", key)
		}

		param, ok := byName[name]
		if !ok {
			return fmt.Errorf("adam: state for unknown parameter %q", name)
		}
		if !raw.Shape().Equal(param.Tensor().Shape()) {
			return fmt.Errorf("adam: moment shape %v does not match parameter %q shape %v",
				raw.Shape(), name, param.Tensor().Shape())
		}
		dst[name] = raw.Clone()
	}

	a.t = int(step.AsInt32()[0])
	a.expAvg = expAvg
	a.expAvgSq = expAvgSq
	return nil
}
