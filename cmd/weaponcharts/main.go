package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/weaponcharts/weaponcharts/internal/chart"
	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/internal/dispatcher"
	"github.com/weaponcharts/weaponcharts/internal/filter"
	"github.com/weaponcharts/weaponcharts/internal/loader"
	"github.com/weaponcharts/weaponcharts/internal/logging"
	intOtel "github.com/weaponcharts/weaponcharts/internal/otel"
	"github.com/weaponcharts/weaponcharts/internal/session"
	"github.com/weaponcharts/weaponcharts/internal/storage"
)

// build info, set via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"

	AppName = "weaponcharts"
)

// app holds everything one invocation wires together.
type app struct {
	opts  options
	start time.Time
	out   io.Writer

	logFile     *os.File
	slogManager *logging.SlogManager
	logger      *slog.Logger
	zlog        zerolog.Logger
	otel        *intOtel.Provider

	dispatcher *dispatcher.Dispatcher
	service    *session.Service
	backend    storage.Backend
	renderer   chart.Renderer
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	a := &app{opts: opts, start: time.Now(), out: out}
	defer a.shutdown()

	if err := a.setupLogging(); err != nil {
		return err
	}
	a.logger.Info("Starting up", "version", Version, "build", BuildDate, "command", opts.command)

	if err := a.setupStorage(); err != nil {
		return err
	}
	if err := a.setupSession(); err != nil {
		return err
	}

	game := viper.GetString("data.defaultGame")
	_, firstErr := a.dispatch("game", game)

	switch opts.command {
	case commandRender:
		return firstErr
	case commandInteractive:
		return a.interactive(in)
	}
	return nil
}

// setupLogging loads the configuration and replaces the bootstrap console
// logger with the file, Graylog and OTel sinks.
func (a *app) setupLogging() error {
	a.slogManager = logging.NewSlogManager().WithContext(func() []slog.Attr {
		if a.service != nil {
			return a.service.LogAttrs()
		}
		return nil
	})
	a.slogManager.Setup(nil, "info", nil)
	a.logger = a.slogManager.Logger()

	if err := config.Load(a.opts.configDir); err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return err
		}
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	}
	if err := bindFlags(a.opts); err != nil {
		return err
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	logFilePath := logging.LogFilePath(logsDir, AppName, a.start)
	if _, err := os.Stat(logFilePath); err == nil {
		os.Rename(logFilePath, logFilePath+".old")
	}
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	a.logFile = logFile

	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(intOtel.Config{
		Enabled:         otelCfg.Enabled,
		ServiceName:     otelCfg.ServiceName,
		ServiceVersion:  Version,
		BatchTimeout:    otelCfg.BatchTimeout,
		MetricsInterval: otelCfg.MetricsInterval,
		LogWriter:       logFile,
		Endpoint:        otelCfg.Endpoint,
		Insecure:        otelCfg.Insecure,
	})
	if err != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", err)
		a.otel = nil
	}

	if gl := config.GetGraylogConfig(); gl.Enabled {
		if err := a.slogManager.EnableGraylog(gl.Address); err != nil {
			a.logger.Error("Failed to connect to Graylog", "address", gl.Address, "error", err)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if a.otel != nil {
		otelLogProvider = a.otel.LoggerProvider()
	}
	level := config.GetString("logLevel")
	a.slogManager.Setup(logFile, level, otelLogProvider)
	a.logger = a.slogManager.Logger()

	a.zlog = logging.NewComponentLogger(logFile, level)

	a.logger.Info("Logging to file", "path", logFilePath)
	return nil
}

// setupSession builds the loader, filter, chart set and dispatcher and
// registers the session commands.
func (a *app) setupSession() error {
	dataCfg, err := config.GetDataConfig()
	if err != nil {
		return err
	}
	datasets := make(map[string]loader.Dataset, len(dataCfg.Games))
	for name, g := range dataCfg.Games {
		datasets[name] = loader.Dataset{
			Name:        name,
			Weapons:     g.Weapons,
			Attachments: g.Attachments,
			Groups:      g.Groups,
			Order:       g.Order,
		}
	}

	chartCfg := config.GetChartConfig()
	a.renderer, err = newRenderer(chartCfg)
	if err != nil {
		return err
	}
	var charts *chart.Set
	if a.renderer != nil {
		charts = chart.NewSet(a.renderer)
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(
		a.zlog.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	a.service = session.NewService(session.Dependencies{
		Loader:     loader.New(dataCfg.Timeout, a.logger.With("component", "loader")),
		Datasets:   datasets,
		Filter:     filter.New(config.GetFilterConfig().Exclude...),
		Charts:     charts,
		LogManager: a.slogManager,
		Unit:       chartCfg.Unit,
		Timeout:    dataCfg.Timeout,
	}, session.NewContext())
	a.service.SetBackend(a.backend)
	a.service.Register(a.dispatcher)

	sel := config.GetSelection()
	a.service.SetCategory(sel.Category)
	if sel.Suppressed {
		a.service.SetAttachments(session.Suppressor)
	}
	return nil
}

func newRenderer(cfg config.ChartConfig) (chart.Renderer, error) {
	switch cfg.Format {
	case "xlsx":
		r, err := chart.NewXLSXRenderer(cfg.OutputPath, cfg.Unit)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "svg":
		r, err := chart.NewSVGRenderer(cfg.OutputDir, cfg.Unit)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown chart format: %s", cfg.Format)
	}
}

// shutdown drains the record queue and releases every sink, logging last.
func (a *app) shutdown() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Failed to close storage", "error", err)
		}
	}
	if c, ok := a.renderer.(io.Closer); ok {
		c.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.logger != nil {
		a.logger.Info("Shutting down", "uptime", time.Since(a.start))
	}
	if a.otel != nil {
		a.otel.Shutdown(ctx)
	}
	if a.slogManager != nil {
		a.slogManager.Close(ctx)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}
