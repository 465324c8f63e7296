package keyspace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redikeep/redikeep/internal/mtime"
)

func fixedClock(ms int64) func() mtime.TS {
	return func() mtime.TS { return mtime.TSFromUnixMilli(ms) }
}

func TestSetGetRoundTrip(t *testing.T) {
	ks := New(fixedClock(1000))
	ks.Set("foo", []byte("bar"), mtime.TS{})

	val, ok := ks.Get("foo")
	require.True(t, ok)
	require.Equal(t, "bar", string(val))
	require.Equal(t, KindString, ks.TypeOf("foo"))
}

func TestGetExpiresLazily(t *testing.T) {
	now := int64(1000)
	clock := func() mtime.TS { return mtime.TSFromUnixMilli(now) }
	ks := New(clock)

	ks.Set("x", []byte("1"), mtime.TSFromUnixMilli(1100))

	val, ok := ks.Get("x")
	require.True(t, ok)
	require.Equal(t, "1", string(val))

	now = 1300
	_, ok = ks.Get("x")
	require.False(t, ok)
	require.Equal(t, KindNone, ks.TypeOf("x"))
}

func TestKeysAllSkipsExpired(t *testing.T) {
	now := int64(0)
	ks := New(func() mtime.TS { return mtime.TSFromUnixMilli(now) })

	ks.Set("a", []byte("1"), mtime.TS{})
	ks.Set("b", []byte("1"), mtime.TSFromUnixMilli(50))
	now = 100

	require.Equal(t, []string{"a"}, ks.KeysAll())
}

func TestXAddAutoSeq(t *testing.T) {
	ks := New(fixedClock(0))

	id1, rej := ks.XAdd("s", RequestedID{SeqAuto: true, MS: 5}, []Field{{Field: "a", Value: "1"}}, 0)
	require.Equal(t, RejectNone, rej)
	require.Equal(t, "5-0", id1.String())

	id2, rej := ks.XAdd("s", RequestedID{SeqAuto: true, MS: 5}, []Field{{Field: "b", Value: "2"}}, 0)
	require.Equal(t, RejectNone, rej)
	require.Equal(t, "5-1", id2.String())

	_, rej = ks.XAdd("s", RequestedID{SeqAuto: true, MS: 4}, []Field{{Field: "c", Value: "3"}}, 0)
	require.Equal(t, RejectNotGreaterThanTop, rej)

	_, rej = ks.XAdd("s", RequestedID{MS: 0, Seq: 0}, []Field{{Field: "d", Value: "4"}}, 0)
	require.Equal(t, RejectNotGreaterThanZero, rej)
}

func TestXAddEmptyStreamZeroMSSeqOne(t *testing.T) {
	ks := New(fixedClock(0))
	id, rej := ks.XAdd("s", RequestedID{SeqAuto: true, MS: 0}, nil, 0)
	require.Equal(t, RejectNone, rej)
	require.Equal(t, "0-1", id.String())
}

func TestXAddRejectedOnAbsentKeyLeavesNoStream(t *testing.T) {
	ks := New(fixedClock(0))

	_, rej := ks.XAdd("news", RequestedID{MS: 0, Seq: 0}, []Field{{Field: "a", Value: "b"}}, 0)
	require.Equal(t, RejectNotGreaterThanZero, rej)

	require.False(t, ks.StreamExists("news"))
	require.Equal(t, KindNone, ks.TypeOf("news"))
	require.Empty(t, ks.KeysAll())
}

func TestXRange(t *testing.T) {
	ks := New(fixedClock(0))
	ks.XAdd("s", RequestedID{SeqAuto: true, MS: 5}, []Field{{Field: "a", Value: "1"}}, 0)
	ks.XAdd("s", RequestedID{SeqAuto: true, MS: 5}, []Field{{Field: "b", Value: "2"}}, 0)

	entries := ks.XRange("s", MinID, MaxID)
	require.Len(t, entries, 2)
	require.Equal(t, "5-0", entries[0].ID.String())
	require.Equal(t, "5-1", entries[1].ID.String())
}

func TestXReadAfterOmitsKeysWithNoNewEntries(t *testing.T) {
	ks := New(fixedClock(0))
	id, _ := ks.XAdd("s", RequestedID{SeqAuto: true, MS: 1}, []Field{{Field: "k", Value: "v"}}, 0)

	result := ks.XReadAfter([]string{"s", "missing"}, []ID{{}, {}})
	require.Len(t, result, 1)
	require.Equal(t, "s", result[0].Key)
	require.Equal(t, id, result[0].Entries[0].ID)

	result = ks.XReadAfter([]string{"s"}, []ID{id})
	require.Empty(t, result)
}

func TestParseRequestedID(t *testing.T) {
	req, err := ParseRequestedID("*")
	require.NoError(t, err)
	require.True(t, req.Auto)

	req, err = ParseRequestedID("5-*")
	require.NoError(t, err)
	require.True(t, req.SeqAuto)
	require.Equal(t, uint64(5), req.MS)

	req, err = ParseRequestedID("5-2")
	require.NoError(t, err)
	require.Equal(t, uint64(5), req.MS)
	require.Equal(t, uint64(2), req.Seq)

	_, err = ParseRequestedID("bogus")
	require.Error(t, err)
}
