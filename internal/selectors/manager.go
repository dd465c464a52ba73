package selectors

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// maxOverrideSize bounds the external override file (1MB is far beyond any
// realistic pattern table).
const maxOverrideSize = 1 << 20

// ReloadStats contains statistics about selector reloads.
type ReloadStats struct {
	LastReloadTime time.Time `json:"lastReloadTime,omitempty"`
	ReloadCount    int64     `json:"reloadCount"`
	LastError      error     `json:"-"`
	LastErrorStr   string    `json:"lastError,omitempty"`
}

// Manager provides hot-reload capable selector management. It keeps the
// embedded defaults and optionally watches an external YAML file whose tables
// replace them at runtime. Reads are lock-free via atomic.Value.
type Manager struct {
	embedded     *Selectors   // Compiled-in defaults (immutable)
	current      atomic.Value // *Selectors
	externalPath string
	watcher      *fsnotify.Watcher
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex // Protects reload operations and stats
	stats        ReloadStats
	closed       bool
}

// NewManager creates a selector manager. If externalPath is empty, only the
// embedded tables are used. If hotReload is true and externalPath is set,
// file changes trigger reloads.
func NewManager(externalPath string, hotReload bool) (*Manager, error) {
	m := &Manager{
		embedded:     Get(),
		externalPath: externalPath,
		stopCh:       make(chan struct{}),
	}
	m.current.Store(m.embedded)

	if externalPath == "" {
		return m, nil
	}

	if err := m.loadExternal(); err != nil {
		log.Warn().Err(err).Str("path", externalPath).
			Msg("Failed to load external selectors, using embedded defaults")
	} else {
		log.Info().Str("path", externalPath).Msg("Loaded external selectors file")
	}

	if hotReload {
		if err := m.startWatcher(); err != nil {
			log.Warn().Err(err).Str("path", externalPath).
				Msg("Failed to start file watcher, hot-reload disabled")
		} else {
			log.Info().Str("path", externalPath).Msg("Hot-reload enabled for selectors file")
		}
	}

	return m, nil
}

// Current returns the active selector tables. Safe for concurrent use.
func (m *Manager) Current() *Selectors {
	return m.current.Load().(*Selectors)
}

// Stats returns a copy of the reload statistics.
func (m *Manager) Stats() ReloadStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	if s.LastError != nil {
		s.LastErrorStr = s.LastError.Error()
	}
	return s
}

// loadExternal reads and activates the external override file.
func (m *Manager) loadExternal() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := os.Stat(m.externalPath)
	if err != nil {
		return err
	}
	if info.Size() > maxOverrideSize {
		return fmt.Errorf("selectors file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(m.externalPath)
	if err != nil {
		return err
	}

	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		m.stats.LastError = err
		return fmt.Errorf("parse selectors file: %w", err)
	}

	m.current.Store(&s)
	m.stats.ReloadCount++
	m.stats.LastReloadTime = time.Now()
	m.stats.LastError = nil
	return nil
}

// startWatcher begins watching the external file for changes.
func (m *Manager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.externalPath); err != nil {
		_ = watcher.Close()
		return err
	}
	m.watcher = watcher

	m.wg.Add(1)
	go m.watchLoop()
	return nil
}

// watchLoop handles file change events. Editors often emit several events per
// save, so reloads are debounced with a short timer.
func (m *Manager) watchLoop() {
	defer m.wg.Done()

	const debounce = 200 * time.Millisecond
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-m.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if err := m.loadExternal(); err != nil {
				log.Warn().Err(err).Str("path", m.externalPath).
					Msg("Selectors reload failed, keeping previous tables")
			} else {
				log.Info().Str("path", m.externalPath).Msg("Selectors reloaded")
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Selectors file watcher error")
		}
	}
}

// Close stops the watcher and background goroutine. Safe to call twice.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	m.wg.Wait()
}
