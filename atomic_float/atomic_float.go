package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 encapsulates a float64 for lock-free reads and writes.
// Cell utilities are written by the solver while the view server samples
// them, so every access goes through the bit pattern held in a uint64.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

// NewAtomicFloat64 returns an AtomicFloat64 holding val.
func NewAtomicFloat64(val float64) *AtomicFloat64 {
	af := &AtomicFloat64{}
	af.AtomicSet(val)
	return af
}

// AtomicRead returns the current value, synchronized with the last writer.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicSet unconditionally stores val.
func (af *AtomicFloat64) AtomicSet(val float64) {
	af.bits.Store(math.Float64bits(val))
}

// AtomicSwap stores val and returns the value it replaced, such that no
// concurrent write is lost between the read and the store.
func (af *AtomicFloat64) AtomicSwap(val float64) (old float64) {
	return math.Float64frombits(af.bits.Swap(math.Float64bits(val)))
}
