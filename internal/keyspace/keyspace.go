// Package keyspace implements the server's in-memory key/value store: a
// tagged variant of Strings and Streams, each keyed by name, with lazy
// expiration and the stream ID arbitration rules XADD enforces.
package keyspace

import (
	"sort"
	"sync"

	"github.com/redikeep/redikeep/internal/mtime"
)

// Kind names the dynamic type of a Keyspace entry, mirroring the TYPE
// command's reply.
type Kind string

// The Kinds a key can hold, plus None for an absent key.
const (
	KindNone   Kind = "none"
	KindString Kind = "string"
	KindStream Kind = "stream"
)

type stringEntry struct {
	val    []byte
	expiry mtime.TS // zero means no expiry
}

func (e stringEntry) expired(now mtime.TS) bool {
	return !e.expiry.IsZero() && !now.Before(e.expiry)
}

// Keyspace is the server's entire dataset. Every method takes the
// Keyspace's own mutex, so a Keyspace is safe for concurrent use from
// multiple goroutines; each call is applied atomically.
type Keyspace struct {
	mu      sync.Mutex
	strings map[string]stringEntry
	streams map[string]*Stream

	// now is the clock expiry is checked against, supplied to New (tests
	// pass a fixed or controllable clock).
	now func() mtime.TS
}

// New returns an empty Keyspace.
func New(now func() mtime.TS) *Keyspace {
	return &Keyspace{
		strings: make(map[string]stringEntry),
		streams: make(map[string]*Stream),
		now:     now,
	}
}

// Set upserts a String at key. A zero expiry means no expiry.
func (ks *Keyspace) Set(key string, val []byte, expiry mtime.TS) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.strings[key] = stringEntry{val: val, expiry: expiry}
}

// Get returns the String at key, triggering lazy expiration if it has
// passed its expiry. ok is false if the key is absent, expired, or holds a
// Stream.
func (ks *Keyspace) Get(key string) (val []byte, ok bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	e, found := ks.strings[key]
	if !found {
		return nil, false
	}
	if e.expired(ks.now()) {
		delete(ks.strings, key)
		return nil, false
	}
	return e.val, true
}

// TypeOf returns the Kind of value stored at key, sweeping it first if it
// is an expired String.
func (ks *Keyspace) TypeOf(key string) Kind {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if e, ok := ks.strings[key]; ok {
		if e.expired(ks.now()) {
			delete(ks.strings, key)
			return KindNone
		}
		return KindString
	}
	if _, ok := ks.streams[key]; ok {
		return KindStream
	}
	return KindNone
}

// KeysAll returns every live key, sorted. Expired Strings are left out of
// the result but are not removed from the keyspace; a full sweep is not
// performed.
func (ks *Keyspace) KeysAll() []string {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	now := ks.now()
	keys := make([]string, 0, len(ks.strings)+len(ks.streams))
	for k, e := range ks.strings {
		if e.expired(now) {
			continue
		}
		keys = append(keys, k)
	}
	for k := range ks.streams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StreamExists reports whether key currently holds a Stream.
func (ks *Keyspace) StreamExists(key string) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	_, ok := ks.streams[key]
	return ok
}

// LastID returns the last entry ID appended to the Stream at key, or the
// zero ID if the stream is absent or empty.
func (ks *Keyspace) LastID(key string) ID {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	s, ok := ks.streams[key]
	if !ok {
		return ID{}
	}
	return s.lastID()
}
