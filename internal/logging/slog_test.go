package logging

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// stubStdout swaps the console sink for a buffer until the test ends.
func stubStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := osStdout
	osStdout = &buf
	t.Cleanup(func() { osStdout = orig })
	return &buf
}

func TestSetup_Sinks(t *testing.T) {
	t.Run("file only", func(t *testing.T) {
		console := stubStdout(t)
		var file bytes.Buffer

		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("loaded dataset", "game", "mw")

		assert.Contains(t, file.String(), "loaded dataset")
		assert.Contains(t, file.String(), "game=mw")
		assert.Empty(t, console.String())
	})

	t.Run("console fallback", func(t *testing.T) {
		console := stubStdout(t)

		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("no log file")

		assert.Contains(t, console.String(), "no log file")
	})

	t.Run("otel bridge", func(t *testing.T) {
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", sdklog.NewLoggerProvider())

		m.Logger().Info("charts rendered")
		assert.Contains(t, file.String(), "charts rendered")
		assert.NoError(t, m.Flush(context.Background()))
	})
}

func TestSetup_Level(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)

			m.Logger().Debug("skipped weapon")
			m.Logger().Warn("missing damage cell")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("skipped weapon")))
			assert.Contains(t, buf.String(), "missing damage cell")
		})
	}
}

func TestSetup_TimeIsUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)

	assert.Regexp(t, `time=\d{4}-\d\d-\d\dT\d\d:\d\d:\d\dZ`, buf.String())
}

func TestSetup_SecondCallSwitchesFile(t *testing.T) {
	var before, after bytes.Buffer
	m := NewSlogManager()

	m.Setup(&before, "info", nil)
	m.Logger().Info("pass 1")
	m.Setup(&after, "info", nil)
	m.Logger().Info("pass 2")

	assert.Contains(t, before.String(), "pass 1")
	assert.NotContains(t, before.String(), "pass 2")
	assert.Contains(t, after.String(), "pass 2")
}

func TestSetup_ContextFollowsSelection(t *testing.T) {
	var buf bytes.Buffer
	category := "ar"
	m := NewSlogManager().WithContext(func() []slog.Attr {
		return []slog.Attr{slog.String("category", category)}
	})
	m.Setup(&buf, "info", nil)

	m.Logger().Info("refresh")
	category = "smg"
	m.Logger().Info("refresh")

	assert.Contains(t, buf.String(), "msg=refresh category=ar")
	assert.Contains(t, buf.String(), "msg=refresh category=smg")
}

func TestSlogManager_BeforeSetup(t *testing.T) {
	m := NewSlogManager()

	assert.Same(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
	assert.NoError(t, m.Close(context.Background()))
	assert.NotPanics(t, func() { m.WriteLog("loader", "ignored", "info") })
}

func TestWriteLog(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "level=DEBUG"},
		{"info", "level=INFO"},
		{"warning", "level=WARN"},
		{"error", "level=ERROR"},
		{"loud", "level=INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)
			buf.Reset()

			m.WriteLog("filter", "excluded akimbo variant", tt.level)

			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "component=filter")
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" info ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestEnableGraylog(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	m := NewSlogManager()
	require.NoError(t, m.EnableGraylog(conn.LocalAddr().String()))

	var buf bytes.Buffer
	m.Setup(&buf, "info", nil)
	m.Logger().Info("run recorded", "weapons", 2)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	packet := make([]byte, 8192)
	n, _, err := conn.ReadFrom(packet)
	require.NoError(t, err)
	assert.Positive(t, n)
	assert.Contains(t, buf.String(), "run recorded")

	assert.NoError(t, m.Close(context.Background()))
}
