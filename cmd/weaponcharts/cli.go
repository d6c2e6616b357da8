package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/internal/dispatcher"
)

const (
	commandRender      = "render"
	commandInteractive = "interactive"
)

type options struct {
	command   string
	configDir string
	flags     *pflag.FlagSet
}

// flag name to config key
var flagKeys = map[string]string{
	"game":       "data.defaultGame",
	"category":   "selection.category",
	"suppressed": "selection.suppressed",
	"format":     "chart.format",
	"unit":       "chart.unit",
	"storage":    "storage.type",
	"log-level":  "logLevel",
}

func parseArgs(args []string) (options, error) {
	opts := options{command: commandRender}
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.command = strings.ToLower(args[0])
		args = args[1:]
	}
	switch opts.command {
	case commandRender, commandInteractive:
	default:
		return opts, fmt.Errorf("unknown command %q, expected %s or %s", opts.command, commandRender, commandInteractive)
	}

	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&opts.configDir, "config", "c", ".", "directory containing "+config.FileName)
	fs.StringP("game", "g", "", "game dataset to load")
	fs.String("category", "", "weapon category, or all")
	fs.Bool("suppressed", false, "equip a suppressor")
	fs.String("format", "", "chart format: xlsx, svg or none")
	fs.String("unit", "", "range unit shown in charts")
	fs.String("storage", "", "storage backend: memory, sqlite, postgres or none")
	fs.String("log-level", "", "log level")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	opts.flags = fs
	return opts, nil
}

// bindFlags lets explicitly set flags override the config file.
func bindFlags(opts options) error {
	if opts.flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, opts.flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// dispatch runs one command and prints its result.
func (a *app) dispatch(command string, args ...string) (any, error) {
	result, err := a.dispatcher.Dispatch(dispatcher.Event{Command: command, Args: args})
	if result != nil {
		fmt.Fprintln(a.out, result)
	}
	if err != nil {
		fmt.Fprintln(a.out, "error:", err)
	}
	return result, err
}

// interactive reads one command per line until EOF or quit. Failed commands
// are reported and the loop goes on.
func (a *app) interactive(in io.Reader) error {
	fmt.Fprintln(a.out, "type help for commands, quit to exit")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch cmd := strings.ToLower(fields[0]); cmd {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(a.out, strings.Join(a.commands(), " "), "quit")
		case "record":
			fmt.Fprintln(a.out, "error: record is internal")
		default:
			a.dispatch(cmd, fields[1:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) commands() []string {
	var out []string
	for _, c := range a.dispatcher.Commands() {
		if c != "record" {
			out = append(out, c)
		}
	}
	return out
}
