package source

import "sync"

// defaultGateCap bounds concurrent producer invocations process-wide
// when the host does not configure its own limit.
const defaultGateCap = 4

var (
	gateOnce    sync.Once
	processGate *Gate
)

// Gate is a bounded semaphore over in-flight producer calls. Excess
// requests are dropped, never queued: a queued request would run
// against a query the user has already typed past.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate admitting at most capacity concurrent holders.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// TryAcquire takes a slot without blocking.
func (g *Gate) TryAcquire() bool {
	select {
	case g.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a slot.
func (g *Gate) Release() {
	<-g.slots
}

// ProcessGate returns the gate shared by every adapter in the process,
// creating it with capacity on first call. Later calls ignore the
// argument; the cap is fixed at startup.
func ProcessGate(capacity int) *Gate {
	gateOnce.Do(func() {
		processGate = NewGate(capacity)
	})
	return processGate
}
