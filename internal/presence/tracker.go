package presence

import (
	"sync"

	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/logging"
)

// Broadcaster delivers an event to every live connection.
type Broadcaster interface {
	BroadcastAll(event interface{}) error
}

// Tracker is the process-wide count of open connections. Every change is
// announced to all connections as a clients-total event. The count lives
// only in memory and starts at zero with the process.
type Tracker struct {
	mu          sync.Mutex
	count       int
	broadcaster Broadcaster
}

func NewTracker(b Broadcaster) *Tracker {
	return &Tracker{broadcaster: b}
}

// Register counts a new connection and announces the new total. The
// announcement happens under the lock so concurrent joins produce a strictly
// increasing sequence of totals.
func (t *Tracker) Register() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count++
	t.announce()
	return t.count
}

// Unregister removes a connection from the count and announces the new
// total. Clamped at zero; callers guarantee at-most-once per connection via
// the gateway's teardown.
func (t *Tracker) Unregister() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count > 0 {
		t.count--
	}
	t.announce()
	return t.count
}

// Count returns the current number of open connections.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *Tracker) announce() {
	event := domain.ClientsTotalEvent{Type: domain.EventClientsTotal, Total: t.count}
	if err := t.broadcaster.BroadcastAll(event); err != nil {
		l := logging.L()
		l.Warn().Err(err).Msg("failed to broadcast clients-total")
	}
}
