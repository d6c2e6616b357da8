package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope used for the OTel log bridge.
const ServiceName = "weaponcharts"

// osStdout is the console sink used when Setup gets no file.
var osStdout io.Writer = os.Stdout

// SlogManager manages slog-based logging with optional Graylog and OTel output.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	graylog io.WriteCloser
	context ContextProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel maps a config level name to slog.Level. "warning" is accepted
// for warn; empty or unknown names mean info.
func parseLevel(level string) slog.Level {
	name := strings.ToUpper(strings.TrimSpace(level))
	if name == "WARNING" {
		name = "WARN"
	}
	var lvl slog.Level
	if name == "" || lvl.UnmarshalText([]byte(name)) != nil {
		return slog.LevelInfo
	}
	return lvl
}

// utcTime renders record times as RFC3339 in UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
		}
	}
	return a
}

// WithContext makes every record carry the attributes returned by p.
// It takes effect on the next Setup.
func (m *SlogManager) WithContext(p ContextProvider) *SlogManager {
	m.context = p
	return m
}

// EnableGraylog ships logs as GELF messages to address (host:port, UDP).
// It takes effect on the next Setup.
func (m *SlogManager) EnableGraylog(address string) error {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return fmt.Errorf("failed to create graylog writer: %w", err)
	}
	m.graylog = w
	return nil
}

// Setup initializes the logging system. Records go to file when one is
// given and to stdout otherwise, plus Graylog and OTel when configured.
// If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{Level: lvl, ReplaceAttr: utcTime}

	out := file
	if out == nil {
		out = osStdout
	}
	handlers := []slog.Handler{slog.NewTextHandler(out, handlerOpts)}

	if m.graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(m.graylog, handlerOpts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if m.context != nil {
		handler = NewContextHandler(handler, m.context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close flushes pending logs and releases the Graylog connection.
func (m *SlogManager) Close(ctx context.Context) error {
	err := m.Flush(ctx)
	if m.graylog != nil {
		err = errors.Join(err, m.graylog.Close())
		m.graylog = nil
	}
	return err
}

// WriteLog logs msg for a pipeline component (loader, filter, chart, ...)
// at the named level. It is a no-op before Setup.
func (m *SlogManager) WriteLog(component, msg, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), msg, "component", component)
}
