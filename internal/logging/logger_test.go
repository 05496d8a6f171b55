package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/LucasMargets11/morrisonv2/internal/config"
)

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  log.Level
	}{
		{"trace", log.TraceLevel},
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"", log.ErrorLevel},
		{"verbose", log.ErrorLevel},
	}

	defer log.SetLevel(log.GetLevel())
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			setLogLevel(tt.input)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestInitJSONLogger(t *testing.T) {
	defer log.SetFormatter(log.StandardLogger().Formatter)
	defer log.SetLevel(log.GetLevel())

	InitJSONLogger(&config.Config{LogLevel: "DEBUG"})

	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}
