package m

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redikeep/redikeep/internal/mcfg"
	"github.com/redikeep/redikeep/internal/mcmp"
	"github.com/redikeep/redikeep/internal/mlog"
	"github.com/redikeep/redikeep/internal/mrun"
)

func TestLogLevelParamAppliedOnInit(t *testing.T) {
	cmp := new(mcmp.Component)
	cmp.SetValue(cmpKeyCfgSrc, mcfg.Source(mcfg.SourceCLI{Args: []string{"--log-level=debug"}}))

	logger := mlog.NewLogger()
	mlog.SetLogger(cmp, logger)

	var msgs []mlog.Message
	logger.SetMessageHandler(handlerFunc(func(m mlog.Message) error {
		msgs = append(msgs, m)
		return nil
	}))

	logLevelStr := mcfg.String(cmp, "log-level", mcfg.ParamDefaultString("info"))
	mrun.InitHook(cmp, func(context.Context) error {
		src, _ := cmp.Value(cmpKeyCfgSrc).(mcfg.Source)
		require.NoError(t, mcfg.Populate(cmp, src))
		lvl := levelFromString(*logLevelStr)
		require.NotNil(t, lvl)
		logger.SetMaxLevel(*lvl)
		return nil
	})

	require.NoError(t, mrun.Init(context.Background(), cmp))

	logger.Debug("visible at debug")
	require.Len(t, msgs, 1)
	require.Equal(t, "DEBUG", msgs[0].Level.String())
}

func TestLevelFromStringRejectsUnknown(t *testing.T) {
	require.Nil(t, levelFromString("verbose"))
	require.NotNil(t, levelFromString("warn"))
}

type handlerFunc func(mlog.Message) error

func (h handlerFunc) Handle(m mlog.Message) error { return h(m) }
