package providers

import (
	"sync"
	"sync/atomic"
)

// providerError is a simple error type for the providers package.
type providerError string

func (e providerError) Error() string { return string(e) }

// ErrBackendUnavailable is returned when the requested acceleration cannot be
// attached on this host or by this backend.
const ErrBackendUnavailable = providerError("acceleration backend unavailable")

// live counts delegates that were created but not yet released.
var live atomic.Int64

// Delegate is a handle to native acceleration resources attached to an engine.
// The zero value is not usable; construct with NewDelegate.
type Delegate struct {
	choice  Acceleration
	release func() error
	once    sync.Once
	err     error
}

// NewDelegate wraps the release function of a native delegate.
//
// Arguments:
//   - choice: The acceleration the delegate serves.
//   - release: Frees the native resources; may be nil when nothing needs freeing.
//
// Returns:
//   - *Delegate: A handle that must be released exactly once.
func NewDelegate(choice Acceleration, release func() error) *Delegate {
	live.Add(1)
	return &Delegate{choice: choice, release: release}
}

// Acceleration returns the acceleration choice served by the delegate.
func (d *Delegate) Acceleration() Acceleration {
	return d.choice
}

// Release frees the native resources. Calls after the first are no-ops and
// return the result of the first call.
func (d *Delegate) Release() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		if d.release != nil {
			d.err = d.release()
		}
		live.Add(-1)
	})
	return d.err
}

// Live reports the number of delegates that have not been released yet.
func Live() int {
	return int(live.Load())
}
