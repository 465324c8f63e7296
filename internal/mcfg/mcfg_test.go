package mcfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redikeep/redikeep/internal/mcmp"
)

func TestPopulateFromCLI(t *testing.T) {
	root := new(mcmp.Component)
	server := root.Child("server")

	port := Int(server, "port", ParamDefaultInt(6379))
	dir := String(root, "dir", ParamDefaultString("."))
	replicaof := Bool(server, "standalone")

	err := Populate(root, SourceCLI{Args: []string{
		"--server-port", "7000",
		"--dir", "/var/lib/redikeep",
		"--server-standalone",
	}})
	require.NoError(t, err)

	require.Equal(t, 7000, *port)
	require.Equal(t, "/var/lib/redikeep", *dir)
	require.True(t, *replicaof)
}

func TestPopulateFromEnv(t *testing.T) {
	root := new(mcmp.Component)
	port := Int(root, "port", ParamDefaultInt(6379))

	env := SourceEnv{
		Prefix: "redikeep",
		Getenv: func(key string) (string, bool) {
			if key == "REDIKEEP_PORT" {
				return "6380", true
			}
			return "", false
		},
	}

	require.NoError(t, Populate(root, env))
	require.Equal(t, 6380, *port)
}

func TestPopulateRequiredMissing(t *testing.T) {
	root := new(mcmp.Component)
	String(root, "dbfilename", ParamRequired())

	err := Populate(root, SourceCLI{})
	require.Error(t, err)
}

func TestMultiSourcePrecedence(t *testing.T) {
	root := new(mcmp.Component)
	port := Int(root, "port")

	ms := MultiSource{
		SourceEnv{Getenv: func(string) (string, bool) { return "1234", true }},
		SourceCLI{Args: []string{"--port", "9999"}},
	}

	require.NoError(t, Populate(root, ms))
	require.Equal(t, 9999, *port)
}
