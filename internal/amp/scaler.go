// Package amp implements loss scaling for mixed-precision style training.
//
// Small gradients underflow in reduced precision, so the loss is scaled up
// before the backward pass and the resulting gradients are scaled back down
// before the optimizer step. When scaled gradients overflow to Inf or NaN,
// the step is skipped and the scale is lowered; after a run of clean steps
// the scale is raised again.
//
// The per-batch protocol is:
//
//	grads := autodiff.BackwardWithSeed(loss, backend, scaler.Scale())
//	scaler.Step(optimizer, grads)
//	scaler.Update()
//
// A disabled scaler keeps Scale() at 1 and steps unconditionally, so the
// same loop works with and without loss scaling.
package amp

import (
	"math"

	"github.com/loom-ml/loom/internal/tensor"
)

// Stepper is the optimizer surface the scaler drives.
type Stepper interface {
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)
}

// GradScalerConfig holds tuning knobs for the scaler.
type GradScalerConfig struct {
	InitScale      float32 // Initial loss scale (default: 65536)
	GrowthFactor   float32 // Scale multiplier after a clean run (default: 2.0)
	BackoffFactor  float32 // Scale multiplier after an overflow (default: 0.5)
	GrowthInterval int     // Clean steps required before growing (default: 2000)
}

// GradScaler scales losses up for backward and gradients back down for the
// optimizer, skipping steps whose gradients overflowed.
type GradScaler struct {
	enabled        bool
	scale          float32
	growthFactor   float32
	backoffFactor  float32
	growthInterval int
	growthTracker  int
	foundInf       bool
}

// NewGradScaler creates a scaler with default configuration.
func NewGradScaler(enabled bool) *GradScaler {
	return NewGradScalerWithConfig(enabled, GradScalerConfig{})
}

// NewGradScalerWithConfig creates a scaler with custom configuration.
// Zero-valued fields fall back to their defaults.
func NewGradScalerWithConfig(enabled bool, config GradScalerConfig) *GradScaler {
	if config.InitScale == 0 {
		config.InitScale = 65536
	}
	if config.GrowthFactor == 0 {
		config.GrowthFactor = 2.0
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 0.5
	}
	if config.GrowthInterval == 0 {
		config.GrowthInterval = 2000
	}

	return &GradScaler{
		enabled:        enabled,
		scale:          config.InitScale,
		growthFactor:   config.GrowthFactor,
		backoffFactor:  config.BackoffFactor,
		growthInterval: config.GrowthInterval,
	}
}

// Enabled reports whether loss scaling is active.
func (s *GradScaler) Enabled() bool {
	return s.enabled
}

// Scale returns the current loss scale, or 1 when disabled. The value seeds
// the backward pass.
func (s *GradScaler) Scale() float32 {
	if !s.enabled {
		return 1
	}
	return s.scale
}

// Step unscales the gradients in place and applies the optimizer step.
//
// If any gradient is Inf or NaN after unscaling, the step is skipped; the
// next Update lowers the scale. Returns whether the optimizer stepped.
func (s *GradScaler) Step(optimizer Stepper, grads map[*tensor.RawTensor]*tensor.RawTensor) bool {
	if !s.enabled {
		optimizer.Step(grads)
		return true
	}

	s.foundInf = false
	inv := 1.0 / s.scale
	for _, grad := range grads {
		if grad.DType() != tensor.Float32 {
			continue
		}
		data := grad.AsFloat32()
		for i, g := range data {
			v := g * inv
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				s.foundInf = true
			}
			data[i] = v
		}
	}

	if s.foundInf {
		return false
	}

	optimizer.Step(grads)
	return true
}

// Update adjusts the scale based on the outcome of the last Step: backoff
// after an overflow, growth after growthInterval consecutive clean steps.
func (s *GradScaler) Update() {
	if !s.enabled {
		return
	}

	if s.foundInf {
		s.scale *= s.backoffFactor
		s.growthTracker = 0
		s.foundInf = false
		return
	}

	s.growthTracker++
	if s.growthTracker >= s.growthInterval {
		s.scale *= s.growthFactor
		s.growthTracker = 0
	}
}
