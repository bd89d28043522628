package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	require.NoError(t, SetLevel("debug"))
	require.Equal(t, logrus.DebugLevel, GetProjectLogger().Logger.GetLevel())

	require.Error(t, SetLevel("chatty"))
	require.Equal(t, logrus.DebugLevel, GetProjectLogger().Logger.GetLevel())

	require.NoError(t, SetLevel("info"))
}

func TestProjectLoggerName(t *testing.T) {
	t.Parallel()

	entry := GetProjectLogger()
	require.Equal(t, projectName, entry.Data["name"])
}
