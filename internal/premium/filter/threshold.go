package filter

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

const (
	DefaultThreshold = 10000.0
	MinThreshold     = 1000.0
)

// ErrInvalidThreshold is returned for non-finite or non-positive values.
var ErrInvalidThreshold = errors.New("invalid premium threshold")

// Threshold is the process-wide admission bar for premium trades. Reads and
// writes are lock-free; a change only affects trades that arrive afterwards.
type Threshold struct {
	bits  atomic.Uint64
	floor float64
}

// NewThreshold creates a threshold starting at initial, never going below floor.
func NewThreshold(initial, floor float64) *Threshold {
	if floor <= 0 {
		floor = MinThreshold
	}
	t := &Threshold{floor: floor}
	if _, err := t.Set(initial); err != nil {
		t.bits.Store(math.Float64bits(max(DefaultThreshold, floor)))
	}
	return t
}

// Set stores v, clamped up to the minimum, and returns the value in effect.
func (t *Threshold) Set(v float64) (float64, error) {
	clamped, err := t.Normalize(v)
	if err != nil {
		return t.Get(), err
	}
	t.bits.Store(math.Float64bits(clamped))
	return clamped, nil
}

// Normalize validates v and applies the minimum without storing it.
func (t *Threshold) Normalize(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidThreshold, v)
	}
	return max(v, t.floor), nil
}

func (t *Threshold) Get() float64 {
	return math.Float64frombits(t.bits.Load())
}

func (t *Threshold) Min() float64 { return t.floor }

// Admit reports whether a trade with the given premium qualifies.
func (t *Threshold) Admit(premium float64) bool {
	return premium >= t.Get()
}
