package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewByEnv(t *testing.T) {
	tests := []struct {
		env   string
		debug bool
	}{
		{env: "local", debug: true},
		{env: "prod", debug: false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			l, err := New("ledger-service", tt.env, "")
			require.NoError(t, err)
			assert.Equal(t, tt.debug, l.Core().Enabled(zapcore.DebugLevel))
			_ = l.Sync()
		})
	}
}

func TestNewLevelOverride(t *testing.T) {
	l, err := New("ledger-service", "local", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	_, err = New("ledger-service", "prod", "loud")
	assert.Error(t, err)
}
