package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/phux/apiverify/config"
	"github.com/phux/apiverify/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("probe completed")
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "probe completed", entry["msg"])
	assert.Equal(t, "apiverify", entry["component"])
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true, wantWarn: true},
		{level: "info", wantInfo: true, wantWarn: true},
		{level: "warn", wantWarn: true},
		{level: "", wantWarn: true},
		{level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := logging.New(config.LoggingConfig{Level: tt.level}, &bytes.Buffer{})

			assert.Equal(t, tt.wantDebug, logger.Core().Enabled(-1))
			assert.Equal(t, tt.wantInfo, logger.Core().Enabled(0))
			assert.Equal(t, tt.wantWarn, logger.Core().Enabled(1))
		})
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(config.LoggingConfig{Level: "warn", Format: "console"}, &buf)

	logger.Warn("error connecting")

	assert.Contains(t, buf.String(), "warn")
	assert.Contains(t, buf.String(), "error connecting")
}
