package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"estatebot/pkg/logx"
)

// Manager holds the live configuration and hot-reloads the channel target
// sets when the config file changes. Everything else (tokens, admins,
// pacing) is fixed for the process lifetime; a restart picks those up.
type Manager struct {
	path string
	log  logx.Logger

	mu  sync.RWMutex
	cfg *Config
}

func NewManager(path string, log logx.Logger) *Manager {
	return &Manager{path: path, log: log}
}

func (m *Manager) Load() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Channels returns a copy of the current target sets.
func (m *Manager) Channels() Channels {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return Channels{}
	}
	return Channels{
		Property: append([]string(nil), m.cfg.Channels.Property...),
		News:     append([]string(nil), m.cfg.Channels.News...),
		All:      append([]string(nil), m.cfg.Channels.All...),
	}
}

func (m *Manager) Admins() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return nil
	}
	return append([]int64(nil), m.cfg.Admins...)
}

// Watch blocks until ctx is done, swapping in the channel sets from any
// rewritten config file. Reload failures keep the previous config.
func (m *Manager) Watch(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	// debounce to avoid reading partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			fresh, err := Load(m.path)
			if err != nil {
				m.log.Warn("config reload failed; keeping previous", logx.Err(err))
				return
			}
			m.mu.Lock()
			if m.cfg != nil {
				m.cfg.Channels = fresh.Channels
			} else {
				m.cfg = fresh
			}
			m.mu.Unlock()
			m.log.Info("channel sets reloaded",
				logx.Int("property", len(fresh.Channels.Property)),
				logx.Int("news", len(fresh.Channels.News)),
				logx.Int("all", len(fresh.Channels.All)))
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events:
			if ev.Name == filepath.Join(dir, file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case <-w.Errors:
			// keep watching
		}
	}
}
