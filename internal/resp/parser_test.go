package resp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParserParsesCompleteFrame(t *testing.T) {
	p := NewParser()
	frame := "*1\r\n$4\r\nPING\r\n"
	p.Feed([]byte(frame))

	args, raw, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, [][]byte{[]byte("PING")}, args)
	require.Equal(t, frame, string(raw))

	_, _, ok, err = p.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParserRollsBackOnPartialInput(t *testing.T) {
	p := NewParser()
	full := "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n"

	for i := 1; i < len(full); i++ {
		p.Feed([]byte{full[i-1]})
		_, _, ok, err := p.Next()
		require.NoError(t, err)
		require.False(t, ok, "should not frame until byte %d of %d", i, len(full))
	}
	p.Feed([]byte{full[len(full)-1]})

	args, raw, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, [][]byte{[]byte("SET"), []byte("foo"), []byte("bar")}, args)
	require.Equal(t, full, string(raw))
}

func TestParserFramesMultipleRequestsAndRetainsTail(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n*1\r\n$3\r\nGE"))

	for i := 0; i < 2; i++ {
		args, _, ok, err := p.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, [][]byte{[]byte("PING")}, args)
	}

	_, _, ok, err := p.Next()
	require.NoError(t, err)
	require.False(t, ok)

	p.Feed([]byte("T\r\n"))
	args, _, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, [][]byte{[]byte("GET")}, args)
}

func TestParserRejectsInlineCommands(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("PING\r\n"))

	_, _, ok, err := p.Next()
	require.Error(t, err)
	require.False(t, ok)
}

func TestParserStructuralErrorOnBadLength(t *testing.T) {
	p := NewParser()
	p.Feed([]byte("*1\r\n$abc\r\nPING\r\n"))

	_, _, ok, err := p.Next()
	require.Error(t, err)
	require.False(t, ok)
}
