package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestConfigureLevel(t *testing.T) {
	prevGlobal := zerolog.GlobalLevel()
	prevLog, prevStd := Log, log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevGlobal)
		Log, log.Logger = prevLog, prevStd
	})

	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "mixed case and spaces", level: "  WARN ", want: zerolog.WarnLevel},
		{name: "empty defaults to info", level: "", want: zerolog.InfoLevel},
		{name: "unknown defaults to info", level: "loud", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Configure(tt.level, "json")
			assert.Equal(t, tt.want, l.GetLevel())
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
			assert.Equal(t, tt.want, log.Logger.GetLevel())
		})
	}
}
