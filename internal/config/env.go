package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VOLTLIVE_"

// LookupFunc reads one environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envSetter func(c *Config, value string) error

func stringVar(field func(*Config) *string) envSetter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func durationVar(field func(*Config) *Duration) envSetter {
	return func(c *Config, v string) error {
		return field(c).UnmarshalText([]byte(v))
	}
}

func intVar(field func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolVar(field func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func listVar(field func(*Config) *[]string) envSetter {
	return func(c *Config, v string) error {
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*field(c) = out
		return nil
	}
}

// envVars maps variable names, without the prefix, to their settings.
var envVars = map[string]envSetter{
	"DEBUGGER":                  stringVar(func(c *Config) *string { return &c.Debugger }),
	"VOLTRON_ADDRESS":           stringVar(func(c *Config) *string { return &c.Voltron.Address }),
	"VOLTRON_SOCKET":            stringVar(func(c *Config) *string { return &c.Voltron.Socket }),
	"VOLTRON_TIMEOUT":           durationVar(func(c *Config) *Duration { return &c.Voltron.Timeout }),
	"SESSION_SEGMENTS":          listVar(func(c *Config) *[]string { return &c.Session.Segments }),
	"SESSION_SYNC_ATTEMPTS":     intVar(func(c *Config) *int { return &c.Session.SyncAttempts }),
	"SESSION_SYNC_INTERVAL":     durationVar(func(c *Config) *Duration { return &c.Session.SyncInterval }),
	"SESSION_DB_EXTENSIONS":     listVar(func(c *Config) *[]string { return &c.Session.DBExtensions }),
	"SESSION_SECONDARY_SECTION": stringVar(func(c *Config) *string { return &c.Session.SecondarySection }),
	"SESSION_BREAK_ON_MAIN":     boolVar(func(c *Config) *bool { return &c.Session.BreakOnMain }),
	"TERMINAL_EMULATOR":         stringVar(func(c *Config) *string { return &c.Terminal.Emulator }),
	"TERMINAL_TICK":             durationVar(func(c *Config) *Duration { return &c.Terminal.Tick }),
	"LOG_LEVEL":                 stringVar(func(c *Config) *string { return &c.Log.Level }),
	"LOG_FILE":                  stringVar(func(c *Config) *string { return &c.Log.File }),
	"DISPLAY_MODE":              stringVar(func(c *Config) *string { return &c.Display.Mode }),
	"DISPLAY_ENCODING":          stringVar(func(c *Config) *string { return &c.Display.Encoding }),
}

// EnvNames returns the supported environment variable names.
func EnvNames() []string {
	names := make([]string, 0, len(envVars))
	for k := range envVars {
		names = append(names, EnvPrefix+k)
	}
	return names
}

// ApplyEnv overrides settings from VOLTLIVE_* variables. Empty values are
// applied as set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for name, set := range envVars {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(c, v); err != nil {
			return &ValidationError{Field: EnvPrefix + name, Message: fmt.Sprintf("%q: %v", v, err)}
		}
	}
	return nil
}
