package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EnvSelectsFormatAndLevel(t *testing.T) {
	tests := []struct {
		env       string
		wantJSON  bool
		wantDebug bool
	}{
		{env: "dev", wantJSON: false, wantDebug: true},
		{env: "staging", wantJSON: true, wantDebug: true},
		{env: "prod", wantJSON: true, wantDebug: false},
		{env: "unknown", wantJSON: false, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(tt.env, "", &buf)

			assert.Equal(t, tt.wantDebug, log.Enabled(context.Background(), slog.LevelDebug))

			log.Info("hello", slog.String("k", "v"))
			if tt.wantJSON {
				var line map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
				assert.Equal(t, "hello", line["msg"])
				assert.Equal(t, "v", line["k"])
			} else {
				assert.Contains(t, buf.String(), "msg=hello")
				assert.Contains(t, buf.String(), "k=v")
			}
		})
	}
}

func TestNew_LevelOverride(t *testing.T) {
	var buf bytes.Buffer
	log := New("dev", "WARN", &buf)

	log.Info("dropped")
	log.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("error")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelError, lvl)

	_, ok = ParseLevel("")
	assert.False(t, ok)

	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}
