package mrand

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexLength(t *testing.T) {
	s := Hex(40)
	require.Len(t, s, 40)
}

func TestHexRandom(t *testing.T) {
	require.NotEqual(t, Hex(40), Hex(40))
}
