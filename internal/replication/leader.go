// Package replication implements single-leader replication: the leader
// side (replica table, write propagation, WAIT) and the follower side
// (handshake state machine, RDB ingestion, streaming apply).
package replication

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/mlog"
)

// getAckFrame is the literal broadcast propagated to solicit REPLCONF ACK
// from every replica during a WAIT.
var getAckFrame = []byte("*3\r\n$8\r\nREPLCONF\r\n$6\r\nGETACK\r\n$1\r\n*\r\n")

// Replica is a leader's handle on one attached replica's propagation
// channel, indexed into Leader's table by an opaque Handle rather than a
// back-pointer (per the cyclic-reference design note).
type Replica struct {
	Handle        int
	Conn          io.Writer
	AckOffset     int64
	ListeningPort string
	Capabilities  []string
}

type waitState struct {
	required     int
	targetOffset int64
	acksReceived int
	counted      map[int]bool
	done         chan int
}

// Leader owns the replica table and repl_offset for a server acting as a
// replication master.
type Leader struct {
	mu sync.Mutex

	replID string
	offset int64

	replicas   map[int]*Replica
	nextHandle int

	pendingWait *waitState

	// CountWaitBytes reproduces the leader's observed behavior of adding a
	// WAIT request's own byte length to repl_offset after resolving it;
	// see DESIGN.md's open question decisions.
	CountWaitBytes bool

	log *mlog.Logger
}

// NewLeader returns a Leader with the given replication ID, initial
// offset 0, and no attached replicas. CountWaitBytes defaults to true,
// matching the observed behavior documented in DESIGN.md; set it to false
// to opt out.
func NewLeader(replID string, log *mlog.Logger) *Leader {
	if log == nil {
		log = mlog.Null
	}
	return &Leader{
		replID:         replID,
		replicas:       make(map[int]*Replica),
		log:            log,
		CountWaitBytes: true,
	}
}

// ReplID returns the leader's replication ID.
func (l *Leader) ReplID() string { return l.replID }

// Offset returns the current repl_offset.
func (l *Leader) Offset() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offset
}

// ReplicaCount returns the number of currently attached replicas.
func (l *Leader) ReplicaCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.replicas)
}

// AddReplica registers conn as a replica's propagation channel (called
// once the leader has sent the FULLRESYNC reply and RDB payload, per
// 4.F) and returns its handle.
func (l *Leader) AddReplica(conn io.Writer) *Replica {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextHandle++
	r := &Replica{Handle: l.nextHandle, Conn: conn}
	l.replicas[r.Handle] = r
	return r
}

// RemoveReplica drops a replica's table entry, e.g. when its connection
// closes.
func (l *Leader) RemoveReplica(handle int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.replicas, handle)
}

// SetReplicaMeta records a replica's REPLCONF listening-port/capa values.
func (l *Leader) SetReplicaMeta(handle int, listeningPort string, capa []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.replicas[handle]; ok {
		if listeningPort != "" {
			r.ListeningPort = listeningPort
		}
		if capa != nil {
			r.Capabilities = capa
		}
	}
}

// Propagate writes raw, unmodified, to every attached replica and adds its
// length to repl_offset. Per-replica write failures are logged and do not
// stop propagation to the others (outbound queues are not bounded; slow or
// broken replicas are a documented non-goal).
func (l *Leader) Propagate(raw []byte) {
	l.mu.Lock()
	replicas := make([]*Replica, 0, len(l.replicas))
	for _, r := range l.replicas {
		replicas = append(replicas, r)
	}
	l.offset += int64(len(raw))
	l.mu.Unlock()

	for _, r := range replicas {
		if _, err := r.Conn.Write(raw); err != nil {
			l.log.WarnErr("failed to propagate to replica", err,
				mctx.Annotated("replica", r.Handle))
		}
	}
}

// RecordAck applies an inbound REPLCONF ACK n from the replica at handle,
// updating its recorded offset and, if it satisfies a pending WAIT's
// target, counting its vote. An ACK arriving with no pending WAIT is
// tolerated as a no-op beyond recording the replica's offset.
func (l *Leader) RecordAck(handle int, n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.replicas[handle]; ok {
		r.AckOffset = n
	}

	w := l.pendingWait
	if w == nil || n < w.targetOffset || w.counted[handle] {
		return
	}
	w.counted[handle] = true
	w.acksReceived++
	if w.acksReceived >= w.required {
		select {
		case w.done <- w.acksReceived:
		default:
		}
	}
}

// Wait implements WAIT <required> <timeout>, blocking the calling
// goroutine until enough replicas acknowledge repl_offset, the timeout
// elapses, or there's nothing to wait for. requestLen is the raw WAIT
// request's own byte length, folded into repl_offset on resolution when
// CountWaitBytes is set.
func (l *Leader) Wait(required int, timeout time.Duration, requestLen int) int {
	l.mu.Lock()
	if len(l.replicas) == 0 {
		l.mu.Unlock()
		return 0
	}
	if l.offset == 0 {
		n := len(l.replicas)
		l.mu.Unlock()
		return n
	}

	w := &waitState{
		required:     required,
		targetOffset: l.offset,
		counted:      make(map[int]bool),
		done:         make(chan int, 1),
	}
	l.pendingWait = w
	replicas := make([]*Replica, 0, len(l.replicas))
	for _, r := range l.replicas {
		replicas = append(replicas, r)
	}
	l.mu.Unlock()

	for _, r := range replicas {
		if _, err := r.Conn.Write(getAckFrame); err != nil {
			l.log.WarnErr("failed to broadcast GETACK", err, mctx.Annotated("replica", r.Handle))
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var acks int
	select {
	case acks = <-w.done:
	case <-timer.C:
		l.mu.Lock()
		acks = w.acksReceived
		l.mu.Unlock()
	}

	l.mu.Lock()
	if l.pendingWait == w {
		l.pendingWait = nil
	}
	if l.CountWaitBytes {
		l.offset += int64(requestLen)
	}
	l.mu.Unlock()

	return acks
}

// FullResyncReply formats the leader's PSYNC reply line, "+FULLRESYNC
// <replid> <offset>".
func (l *Leader) FullResyncReply() string {
	return fmt.Sprintf("+FULLRESYNC %s %d\r\n", l.replID, l.Offset())
}
