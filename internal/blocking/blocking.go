// Package blocking implements the waiter registry XREAD BLOCK parks
// against: a connection registers interest in a set of stream keys and
// starting IDs, and is woken either by a subsequent XADD producing new
// entries or by its own timeout.
package blocking

import (
	"sync"
	"time"

	"github.com/redikeep/redikeep/internal/keyspace"
)

// Waiter is a single parked XREAD BLOCK. At most one Waiter may be
// registered per connection at a time; Coordinator does not enforce this
// itself.
type Waiter struct {
	conn     interface{} // opaque per-connection identity, used only for removal
	keys     []string
	startIDs []keyspace.ID
	result   chan []keyspace.KeyEntries
	timer    *time.Timer
}

// Coordinator tracks every currently-blocked XREAD across all connections
// and re-evaluates them whenever a stream is appended to.
type Coordinator struct {
	ks *keyspace.Keyspace

	mu      sync.Mutex
	waiters map[interface{}]*Waiter
}

// New returns a Coordinator backed by ks.
func New(ks *keyspace.Keyspace) *Coordinator {
	return &Coordinator{ks: ks, waiters: make(map[interface{}]*Waiter)}
}

// Register parks a waiter for conn against keys/startIDs. If ms is 0 the
// waiter never times out on its own; otherwise a timer fires after ms
// milliseconds, resolving the waiter with whatever (possibly empty)
// result is available at that point. The returned channel receives at
// most once; it receives nothing if the waiter is dropped by Cancel.
//
// Register first evaluates the read immediately; if it already yields a
// non-empty result, no waiter is parked and the result is returned
// directly via the channel.
func (c *Coordinator) Register(conn interface{}, keys []string, startIDs []keyspace.ID, ms int) <-chan []keyspace.KeyEntries {
	result := make(chan []keyspace.KeyEntries, 1)

	if res := c.ks.XReadAfter(keys, startIDs); len(res) > 0 {
		result <- res
		return result
	}

	w := &Waiter{conn: conn, keys: keys, startIDs: startIDs, result: result}

	c.mu.Lock()
	c.waiters[conn] = w
	c.mu.Unlock()

	if ms > 0 {
		w.timer = time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
			c.resolve(conn, c.ks.XReadAfter(w.keys, w.startIDs))
		})
	}

	return result
}

// Notify re-evaluates every parked waiter, waking and resolving any whose
// read now yields a non-empty result. Call this after every XADD.
func (c *Coordinator) Notify() {
	c.mu.Lock()
	waiters := make([]*Waiter, 0, len(c.waiters))
	for _, w := range c.waiters {
		waiters = append(waiters, w)
	}
	c.mu.Unlock()

	for _, w := range waiters {
		if res := c.ks.XReadAfter(w.keys, w.startIDs); len(res) > 0 {
			c.resolve(w.conn, res)
		}
	}
}

// Cancel drops conn's waiter, if any, without sending a result — used when
// a client connection closes while a blocking XREAD is pending.
func (c *Coordinator) Cancel(conn interface{}) {
	c.mu.Lock()
	w, ok := c.waiters[conn]
	delete(c.waiters, conn)
	c.mu.Unlock()

	if ok && w.timer != nil {
		w.timer.Stop()
	}
}

func (c *Coordinator) resolve(conn interface{}, res []keyspace.KeyEntries) {
	c.mu.Lock()
	w, ok := c.waiters[conn]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.waiters, conn)
	c.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	select {
	case w.result <- res:
	default:
	}
}
