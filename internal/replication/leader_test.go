package replication

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *fakeConn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func TestWaitNoReplicasResolvesImmediately(t *testing.T) {
	l := NewLeader("abc", nil)
	require.Equal(t, 0, l.Wait(1, time.Second, 10))
}

func TestWaitZeroOffsetResolvesWithReplicaCount(t *testing.T) {
	l := NewLeader("abc", nil)
	l.AddReplica(&fakeConn{})
	l.AddReplica(&fakeConn{})
	require.Equal(t, 2, l.Wait(1, time.Second, 10))
}

func TestPropagateAdvancesOffset(t *testing.T) {
	l := NewLeader("abc", nil)
	conn := &fakeConn{}
	l.AddReplica(conn)

	l.Propagate([]byte("*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\n1\r\n"))
	require.Equal(t, int64(27), l.Offset())
	require.Contains(t, conn.String(), "SET")
}

func TestWaitResolvesOnAck(t *testing.T) {
	l := NewLeader("abc", nil)
	conn := &fakeConn{}
	r := l.AddReplica(conn)
	l.Propagate([]byte("*3\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\n1\r\n"))

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.RecordAck(r.Handle, l.Offset())
	}()

	acks := l.Wait(1, time.Second, 10)
	require.Equal(t, 1, acks)
}

func TestWaitTimesOutWithPartialAcks(t *testing.T) {
	l := NewLeader("abc", nil)
	l.AddReplica(&fakeConn{})
	l.Propagate([]byte("*1\r\n$4\r\nPING\r\n"))

	acks := l.Wait(1, 20*time.Millisecond, 10)
	require.Equal(t, 0, acks)
}

func TestCountWaitBytesAddsRequestLength(t *testing.T) {
	l := NewLeader("abc", nil)
	l.CountWaitBytes = true
	l.AddReplica(&fakeConn{})
	l.Propagate([]byte("*1\r\n$4\r\nPING\r\n"))

	before := l.Offset()
	l.Wait(1, 10*time.Millisecond, 17)
	require.Equal(t, before+17, l.Offset())
}

func TestRecordAckWithNoPendingWaitIsNoOp(t *testing.T) {
	l := NewLeader("abc", nil)
	r := l.AddReplica(&fakeConn{})
	require.NotPanics(t, func() { l.RecordAck(r.Handle, 100) })
}
