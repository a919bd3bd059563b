// Package watch reloads a CV file whenever it changes on disk.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cvstudio/internal/cv"
	"cvstudio/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay coalesces the bursts of events editors produce on save.
const DefaultDebounceDelay = 200 * time.Millisecond

// DocumentWatcher watches one CV file and hands every successfully parsed
// version to a callback.
type DocumentWatcher struct {
	mu sync.Mutex

	path        string
	lastModTime time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	done       chan struct{}

	onChange func(cv.Document)
	onError  func(error)
	logger   *errors.Logger

	running bool
}

// NewDocumentWatcher creates a watcher for path. onError may be nil.
func NewDocumentWatcher(path string, debounceDelay time.Duration, onChange func(cv.Document), onError func(error), logger *errors.Logger) *DocumentWatcher {
	if debounceDelay <= 0 {
		debounceDelay = DefaultDebounceDelay
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &DocumentWatcher{
		path:          filepath.Clean(path),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1), // Buffered so the timer never blocks
		done:          make(chan struct{}),
		onChange:      onChange,
		onError:       onError,
		logger:        logger,
	}
}

// Start begins watching. The file's directory is watched as well so
// editors that save through a rename are still seen.
func (w *DocumentWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("document watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if stat, err := os.Stat(w.path); err == nil {
		w.lastModTime = stat.ModTime()
	} else if !os.IsNotExist(err) {
		_ = watcher.Close()
		return fmt.Errorf("failed to stat file %s: %w", w.path, err)
	}

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.fsWatcher = watcher
	w.running = true
	go w.watchLoop()

	w.logger.Info("Document watcher started",
		"file", w.path,
		"debounce_delay", w.debounceDelay)
	return nil
}

// Stop stops the watcher and waits for its loop to exit.
func (w *DocumentWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.running = false
	w.mu.Unlock()

	<-w.done

	if err := w.fsWatcher.Close(); err != nil {
		w.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	w.logger.Info("Document watcher stopped", "file", w.path)
	return nil
}

// IsRunning returns whether the watcher is currently running
func (w *DocumentWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Path returns the watched file.
func (w *DocumentWatcher) Path() string {
	return w.path
}

func (w *DocumentWatcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.shouldProcessEvent(event) {
				w.scheduleReload()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error")

		case <-w.reloadChan:
			if w.hasFileChanged() {
				w.reload()
			}

		case <-w.stopChan:
			return
		}
	}
}

// shouldProcessEvent keeps write, create and rename events on the watched file
func (w *DocumentWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasFileChanged compares the modification time with the last one seen
func (w *DocumentWatcher) hasFileChanged() bool {
	stat, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	if stat.ModTime().Equal(w.lastModTime) {
		return false
	}
	w.lastModTime = stat.ModTime()
	return true
}

func (w *DocumentWatcher) reload() {
	doc, err := cv.LoadFile(w.path)
	if err != nil {
		w.logger.LogError(err, "Failed to reload document", "file", w.path)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.logger.Debug("Document reloaded", "file", w.path)
	w.onChange(doc)
}

// scheduleReload schedules a debounced reload
func (w *DocumentWatcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		select {
		case w.reloadChan <- struct{}{}:
		default:
			// A reload is already pending
		}
	})
}
