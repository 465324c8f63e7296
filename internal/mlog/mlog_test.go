package mlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redikeep/redikeep/internal/mcmp"
	"github.com/redikeep/redikeep/internal/mctx"
	"github.com/redikeep/redikeep/internal/merr"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetMessageHandler(NewMessageHandler(&buf))

	l.Info("hello", mctx.Annotated("k", "v"))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "hello", out["msg"])
	require.Equal(t, "INFO", out["level"])
	require.Equal(t, "v", out["ann"].(map[string]interface{})["k"])
}

func TestLoggerRespectsMaxLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetMessageHandler(NewMessageHandler(&buf))
	l.SetMaxLevel(LevelWarn)

	l.Debug("should be dropped")
	require.Equal(t, 0, buf.Len())

	l.Warn("should appear")
	require.Greater(t, buf.Len(), 0)
}

func TestErrorErrIncludesAnnotations(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetMessageHandler(NewMessageHandler(&buf))

	err := merr.Wrap(errors.New("boom"), mctx.Annotated("key", "x"))
	l.ErrorErr("it broke", err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	ann := out["ann"].(map[string]interface{})
	require.Equal(t, "boom", ann["err"])
	require.Equal(t, "x", ann["err.key"])
}

func TestFromUsesComponentPath(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetMessageHandler(NewMessageHandler(&buf))

	root := new(mcmp.Component)
	SetLogger(root, logger)

	child := root.Child("server").Child("listener")
	From(child).Info("listening")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	ns, _ := out["ns"].([]interface{})
	require.Equal(t, []interface{}{"server", "listener"}, ns)
}
