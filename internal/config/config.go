// Package config loads voltlive settings from defaults, a TOML or YAML
// file, VOLTLIVE_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dshills/voltlive/internal/register"
	"github.com/dshills/voltlive/internal/voltron"
)

// Display modes.
const (
	ModeTUI  = "tui"
	ModeText = "text"
)

// Config is the full voltlive configuration.
type Config struct {
	Debugger string         `toml:"debugger" yaml:"debugger"`
	Voltron  VoltronConfig  `toml:"voltron" yaml:"voltron"`
	Session  SessionConfig  `toml:"session" yaml:"session"`
	Terminal TerminalConfig `toml:"terminal" yaml:"terminal"`
	Log      LogConfig      `toml:"log" yaml:"log"`
	Display  DisplayConfig  `toml:"display" yaml:"display"`
}

// VoltronConfig locates the Voltron server. Socket wins over Address when
// both are set.
type VoltronConfig struct {
	Address string   `toml:"address" yaml:"address"`
	Socket  string   `toml:"socket" yaml:"socket"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// SessionConfig controls session setup and the tracked memory.
type SessionConfig struct {
	Segments         []string `toml:"segments" yaml:"segments"`
	SyncAttempts     int      `toml:"sync_attempts" yaml:"sync_attempts"`
	SyncInterval     Duration `toml:"sync_interval" yaml:"sync_interval"`
	DBExtensions     []string `toml:"db_extensions" yaml:"db_extensions"`
	SecondarySection string   `toml:"secondary_section" yaml:"secondary_section"`
	BreakOnMain      bool     `toml:"break_on_main" yaml:"break_on_main"`
}

// TerminalConfig controls the debugger terminal and the tty relay.
type TerminalConfig struct {
	Emulator string   `toml:"emulator" yaml:"emulator"`
	Tick     Duration `toml:"tick" yaml:"tick"`
}

// LogConfig controls logging. An empty File logs to stderr.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

// DisplayConfig selects the renderer and register encoding.
type DisplayConfig struct {
	Mode     string `toml:"mode" yaml:"mode"`
	Encoding string `toml:"encoding" yaml:"encoding"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debugger: string(voltron.GDB),
		Voltron: VoltronConfig{
			Address: "127.0.0.1:5555",
			Timeout: Duration{5 * time.Second},
		},
		Session: SessionConfig{
			Segments:         []string{"stack", "bss"},
			SyncAttempts:     5,
			SyncInterval:     Duration{time.Second},
			DBExtensions:     []string{".bndb"},
			SecondarySection: ".bss",
			BreakOnMain:      true,
		},
		Terminal: TerminalConfig{
			Emulator: "x-terminal-emulator -e",
			Tick:     Duration{20 * time.Millisecond},
		},
		Log:     LogConfig{Level: "info"},
		Display: DisplayConfig{Mode: ModeTUI, Encoding: register.Hex.String()},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "voltlive", "config.toml")
}

// Load builds a Config from defaults, the file at path and the process
// environment. An empty path tries DefaultPath and ignores its absence;
// an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes the file at path over cfg. The format follows the
// extension: .toml, or .yaml and .yml.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return c.decode(path, data)
}

func (c *Config) decode(path string, data []byte) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// Validate checks every setting and returns all problems found.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := voltron.ParseDebugger(c.Debugger); err != nil {
		bad("debugger", "%q is not gdb or lldb", c.Debugger)
	}
	if c.Voltron.Address == "" && c.Voltron.Socket == "" {
		bad("voltron", "address or socket is required")
	}
	if c.Voltron.Timeout.Duration < 0 {
		bad("voltron.timeout", "must not be negative")
	}
	if !contains(c.Session.Segments, "stack") {
		bad("session.segments", "must include stack")
	}
	if c.Session.SyncAttempts <= 0 {
		bad("session.sync_attempts", "must be positive, got %d", c.Session.SyncAttempts)
	}
	if c.Session.SyncInterval.Duration <= 0 {
		bad("session.sync_interval", "must be positive")
	}
	if c.Terminal.Tick.Duration <= 0 {
		bad("terminal.tick", "must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		bad("log.level", "%q is not a log level", c.Log.Level)
	}
	if c.Display.Mode != ModeTUI && c.Display.Mode != ModeText {
		bad("display.mode", "%q is not tui or text", c.Display.Mode)
	}
	if _, err := register.ParseEncoding(c.Display.Encoding); err != nil {
		bad("display.encoding", "%q is not a register encoding", c.Display.Encoding)
	}
	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
