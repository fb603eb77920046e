package config

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce collapses bursts of writes from editors.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a config file when it changes on disk and delivers each
// valid result.
type Watcher struct {
	path     string
	debounce time.Duration
	lookup   LookupFunc
	override func(*Config)
	log      *logrus.Entry

	fsw     *fsnotify.Watcher
	updates chan *Config
}

// NewWatcher watches path. Its directory is watched so that editors that
// replace the file by rename are seen.
func NewWatcher(path string, lookup LookupFunc, log *logrus.Entry) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		lookup:   lookup,
		log:      log.WithField("component", "config").WithField("path", abs),
		fsw:      fsw,
		updates:  make(chan *Config, 1),
	}, nil
}

// SetOverride registers fn to run on every reloaded config before
// validation, so command-line flags keep precedence over the file.
func (w *Watcher) SetOverride(fn func(*Config)) {
	w.override = fn
}

// Updates delivers reloaded configurations. It is closed when Run exits.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Run processes file events until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.updates)
	defer w.fsw.Close()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				fire = time.After(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")

		case <-fire:
			fire = nil
			cfg, err := w.reload()
			if err != nil {
				w.log.WithError(err).Error("reload failed, keeping current config")
				continue
			}
			w.log.Info("config reloaded")
			select {
			case w.updates <- cfg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (w *Watcher) reload() (*Config, error) {
	cfg := Default()
	if err := cfg.LoadFile(w.path); err != nil {
		return nil, err
	}
	if w.lookup != nil {
		if err := cfg.ApplyEnv(w.lookup); err != nil {
			return nil, err
		}
	}
	if w.override != nil {
		w.override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
