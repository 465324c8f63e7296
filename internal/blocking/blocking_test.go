package blocking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/mtime"
)

func TestRegisterResolvesImmediatelyWhenDataAlreadyAvailable(t *testing.T) {
	ks := keyspace.New(func() mtime.TS { return mtime.TS{} })
	ks.XAdd("s", keyspace.RequestedID{MS: 1, Seq: 1}, []keyspace.Field{{Field: "k", Value: "v"}}, 0)

	c := New(ks)
	ch := c.Register("conn1", []string{"s"}, []keyspace.ID{{}}, 0)

	select {
	case res := <-ch:
		require.Len(t, res, 1)
	case <-time.After(time.Second):
		t.Fatal("expected immediate resolution")
	}
}

func TestRegisterWakesOnXAdd(t *testing.T) {
	ks := keyspace.New(func() mtime.TS { return mtime.TS{} })
	c := New(ks)

	ch := c.Register("conn1", []string{"s"}, []keyspace.ID{{}}, 0)

	ks.XAdd("s", keyspace.RequestedID{MS: 1, Seq: 1}, []keyspace.Field{{Field: "k", Value: "v"}}, 0)
	c.Notify()

	select {
	case res := <-ch:
		require.Len(t, res, 1)
		require.Equal(t, "s", res[0].Key)
	case <-time.After(time.Second):
		t.Fatal("expected wake on XADD")
	}
}

func TestRegisterTimesOutWithEmptyResult(t *testing.T) {
	ks := keyspace.New(func() mtime.TS { return mtime.TS{} })
	c := New(ks)

	ch := c.Register("conn1", []string{"s"}, []keyspace.ID{{}}, 20)

	select {
	case res := <-ch:
		require.Empty(t, res)
	case <-time.After(time.Second):
		t.Fatal("expected timeout resolution")
	}
}

func TestCancelDropsWaiterWithoutResult(t *testing.T) {
	ks := keyspace.New(func() mtime.TS { return mtime.TS{} })
	c := New(ks)

	ch := c.Register("conn1", []string{"s"}, []keyspace.ID{{}}, 0)
	c.Cancel("conn1")

	ks.XAdd("s", keyspace.RequestedID{MS: 1, Seq: 1}, nil, 0)
	c.Notify()

	select {
	case <-ch:
		t.Fatal("canceled waiter should not resolve")
	case <-time.After(50 * time.Millisecond):
	}
}
