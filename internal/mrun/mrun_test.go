package mrun

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redikeep/redikeep/internal/mcmp"
)

func TestInitRunsInRegistrationOrder(t *testing.T) {
	root := new(mcmp.Component)
	child := root.Child("server")

	var order []string
	InitHook(root, func(context.Context) error {
		order = append(order, "root")
		return nil
	})
	InitHook(child, func(context.Context) error {
		order = append(order, "server")
		return nil
	})

	require.NoError(t, Init(context.Background(), root))
	require.Equal(t, []string{"root", "server"}, order)
}

func TestShutdownRunsInReverseOrder(t *testing.T) {
	root := new(mcmp.Component)
	child := root.Child("server")

	var order []string
	ShutdownHook(root, func(context.Context) error {
		order = append(order, "root")
		return nil
	})
	ShutdownHook(child, func(context.Context) error {
		order = append(order, "server")
		return nil
	})

	require.NoError(t, Shutdown(context.Background(), root))
	require.Equal(t, []string{"server", "root"}, order)
}

func TestInitStopsAtFirstError(t *testing.T) {
	root := new(mcmp.Component)

	var ran bool
	InitHook(root, func(context.Context) error { return errors.New("boom") })
	InitHook(root, func(context.Context) error { ran = true; return nil })

	err := Init(context.Background(), root)
	require.Error(t, err)
	require.False(t, ran)
}

func TestShutdownCollectsAllErrors(t *testing.T) {
	root := new(mcmp.Component)

	var ranSecond bool
	ShutdownHook(root, func(context.Context) error { ranSecond = true; return nil })
	ShutdownHook(root, func(context.Context) error { return errors.New("boom") })

	err := Shutdown(context.Background(), root)
	require.Error(t, err)
	require.True(t, ranSecond)
}
