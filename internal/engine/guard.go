package engine

import "sync/atomic"

// transferGuard is the single in-progress flag wrapped around gateway
// transfers. A transfer can hand control to arbitrary recipient logic
// before returning; any engine operation invoked from inside that window
// must be rejected rather than allowed to observe half-finished custody
// state.
type transferGuard struct {
	busy atomic.Bool
}

// do runs fn with the flag set. A nested do fails with ErrReentrancy.
func (g *transferGuard) do(fn func() error) error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	defer g.busy.Store(false)
	return fn()
}

// inProgress reports whether a guarded transfer is currently in flight.
func (g *transferGuard) inProgress() bool {
	return g.busy.Load()
}
