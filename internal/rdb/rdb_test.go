package rdb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redikeep/redikeep/internal/keyspace"
	"github.com/redikeep/redikeep/internal/mtime"
)

func buf(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func sixBitString(s string) []byte {
	return buf([]byte{byte(len(s))}, []byte(s))
}

func TestLoadPlainStringNoExpiry(t *testing.T) {
	data := buf(
		[]byte("REDIS"), []byte("0011"),
		[]byte{0x00}, sixBitString("foo"), sixBitString("bar"),
		[]byte{opEOF},
	)

	ks := keyspace.New(func() mtime.TS { return mtime.TS{} })
	require.NoError(t, Load(bytes.NewReader(data), ks))

	val, ok := ks.Get("foo")
	require.True(t, ok)
	require.Equal(t, "bar", string(val))
}

func TestLoadWithExpireTimeMS(t *testing.T) {
	expireBuf := make([]byte, 8)
	// 1700000000000 little-endian
	ms := uint64(1700000000000)
	for i := 0; i < 8; i++ {
		expireBuf[i] = byte(ms >> (8 * i))
	}

	data := buf(
		[]byte("REDIS"), []byte("0011"),
		[]byte{opExpireTimeMS}, expireBuf,
		[]byte{0x00}, sixBitString("x"), sixBitString("1"),
		[]byte{opEOF},
	)

	ks := keyspace.New(func() mtime.TS { return mtime.TSFromUnixMilli(1600000000000) })
	require.NoError(t, Load(bytes.NewReader(data), ks))

	val, ok := ks.Get("x")
	require.True(t, ok)
	require.Equal(t, "1", string(val))
}

func TestLoadSkipsAuxAndResizeDB(t *testing.T) {
	data := buf(
		[]byte("REDIS"), []byte("0011"),
		[]byte{opAux}, sixBitString("redis-ver"), sixBitString("7.0"),
		[]byte{opResizeDB}, []byte{0x01}, []byte{0x00},
		[]byte{opSelectDB}, []byte{0x00},
		[]byte{0x00}, sixBitString("k"), sixBitString("v"),
		[]byte{opEOF},
	)

	ks := keyspace.New(func() mtime.TS { return mtime.TS{} })
	require.NoError(t, Load(bytes.NewReader(data), ks))

	val, ok := ks.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", string(val))
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := buf([]byte("NOTRD"), []byte("0011"), []byte{opEOF})
	ks := keyspace.New(func() mtime.TS { return mtime.TS{} })
	require.Error(t, Load(bytes.NewReader(data), ks))
}

func TestLoadRejectsUnsupportedValueType(t *testing.T) {
	data := buf(
		[]byte("REDIS"), []byte("0011"),
		[]byte{0x01}, sixBitString("k"),
		[]byte{opEOF},
	)
	ks := keyspace.New(func() mtime.TS { return mtime.TS{} })
	require.Error(t, Load(bytes.NewReader(data), ks))
}

func TestReadString14BitLength(t *testing.T) {
	s := make([]byte, 200)
	for i := range s {
		s[i] = 'a'
	}
	// 14-bit length encoding: 01|XXXXXX XXXXXXXX
	header := []byte{0x40 | byte(len(s)>>8), byte(len(s))}
	data := buf(header, s)

	got, err := readString(newTestReader(data))
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestReadStringSpecialIntFormats(t *testing.T) {
	// format code 0: 1-byte int, value -5
	data := buf([]byte{0xC0, 0xFB})
	got, err := readString(newTestReader(data))
	require.NoError(t, err)
	require.Equal(t, "-5", string(got))
}
