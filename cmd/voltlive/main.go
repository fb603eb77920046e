// Package main is the entry point for voltlive.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/dshills/voltlive/internal/app"
	"github.com/dshills/voltlive/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "voltlive"
	cliApp.Usage = "live registers, stack and backtrace for a Voltron-synced debugger"
	cliApp.UsageText = "voltlive [options] <binary>"
	cliApp.Version = fmt.Sprintf("%s (%s)", version, commit)
	cliApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the configuration file (TOML or YAML)",
		},
		cli.StringFlag{
			Name:  "debugger, d",
			Usage: "Debugger behind Voltron: gdb or lldb",
		},
		cli.StringFlag{
			Name:  "address",
			Usage: "Voltron TCP address (host:port)",
		},
		cli.StringFlag{
			Name:  "socket",
			Usage: "Voltron unix socket path, used instead of the TCP address",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "Write logs to this file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Plain text output with commands read from stdin instead of the terminal UI",
		},
		cli.StringFlag{
			Name:  "encoding, e",
			Usage: "Register encoding: binary, decimal, hex, ascii or deref",
		},
		cli.BoolFlag{
			Name:  "no-spawn",
			Usage: "Do not open a debugger terminal when the first sync fails",
		},
	}
	cliApp.Action = run

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		_ = cli.ShowAppHelp(c)
		return errors.New("no binary path provided")
	}

	opts := app.Options{
		ConfigPath: c.String("config"),
		BinaryPath: c.Args().Get(0),
		NoSpawn:    c.Bool("no-spawn"),
		Override:   overrides(c),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, opts)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Run(ctx)
}

// overrides applies the flags the user set on top of file and
// environment settings. Output that is not a terminal forces text mode.
func overrides(c *cli.Context) func(*config.Config) {
	return func(cfg *config.Config) {
		if c.IsSet("debugger") {
			cfg.Debugger = c.String("debugger")
		}
		if c.IsSet("address") {
			cfg.Voltron.Address = c.String("address")
		}
		if c.IsSet("socket") {
			cfg.Voltron.Socket = c.String("socket")
		}
		if c.IsSet("log-level") {
			cfg.Log.Level = c.String("log-level")
		}
		if c.IsSet("log-file") {
			cfg.Log.File = c.String("log-file")
		}
		if c.IsSet("encoding") {
			cfg.Display.Encoding = c.String("encoding")
		}
		if c.Bool("headless") || !term.IsTerminal(int(os.Stdout.Fd())) {
			cfg.Display.Mode = config.ModeText
		}
	}
}
