package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher watches configured prompt files and hot-reloads their
// contents into the prompt store, so interview flows pick up edited prompts
// without a restart. A file that becomes unreadable keeps its last good
// content.
type PromptWatcher struct {
	mu sync.RWMutex

	cfg  *Config
	refs []promptFileRef

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onReload func(op, promptType string, err error) // Optional hook, called after each reload attempt

	running bool
}

// NewPromptWatcher creates a watcher over every prompt file the config names.
// Returns nil if no prompt files are configured.
func NewPromptWatcher(cfg *Config, debounceDelay time.Duration, onReload func(op, promptType string, err error)) *PromptWatcher {
	refs := cfg.promptFilePaths()
	if len(refs) == 0 {
		return nil
	}
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	return &PromptWatcher{
		cfg:           cfg,
		refs:          refs,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onReload:      onReload,
	}
}

// Start begins watching prompt files for changes
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	pw.updateModTimes()

	for _, ref := range pw.refs {
		if err := pw.addFileToWatcher(ref.Path); err != nil {
			_ = pw.fsWatcher.Close()
			return fmt.Errorf("failed to watch prompt file %s: %w", ref.Path, err)
		}
	}

	pw.running = true
	go pw.watchLoop()

	return nil
}

// Stop stops the prompt file watcher
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}

	close(pw.stopChan)

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}

	if pw.fsWatcher != nil {
		if err := pw.fsWatcher.Close(); err != nil {
			return err
		}
	}

	pw.running = false
	return nil
}

// IsRunning returns whether the watcher is currently running
func (pw *PromptWatcher) IsRunning() bool {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.running
}

// WatchedFiles returns the prompt file paths under watch
func (pw *PromptWatcher) WatchedFiles() []string {
	files := make([]string, 0, len(pw.refs))
	for _, ref := range pw.refs {
		files = append(files, ref.Path)
	}
	return files
}

// addFileToWatcher adds a file and its directory to the file system watcher
func (pw *PromptWatcher) addFileToWatcher(file string) error {
	if err := pw.fsWatcher.Add(file); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	// Watch the directory too, to catch atomic writes (rename operations)
	dir := filepath.Dir(file)
	if err := pw.fsWatcher.Add(dir); err != nil {
		return err
	}

	return nil
}

func (pw *PromptWatcher) updateModTimes() {
	for _, ref := range pw.refs {
		if stat, err := os.Stat(ref.Path); err == nil {
			pw.lastModTime[ref.Path] = stat.ModTime()
		}
	}
}

// hasFileChanged checks if a file has been modified since last check
func (pw *PromptWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		return false
	}

	lastMod, exists := pw.lastModTime[file]
	if !exists || stat.ModTime().After(lastMod) {
		pw.lastModTime[file] = stat.ModTime()
		return true
	}

	return false
}

// watchLoop is the main event loop for file watching
func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.shouldProcessEvent(event) {
				pw.scheduleReload()
			}

		case _, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}

		case <-pw.reloadChan:
			pw.reloadChangedFiles()

		case <-pw.stopChan:
			return
		}
	}
}

// shouldProcessEvent determines if a file system event should trigger a reload check
func (pw *PromptWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	matched := false
	for _, ref := range pw.refs {
		if event.Name == ref.Path || filepath.Base(event.Name) == filepath.Base(ref.Path) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// reloadChangedFiles re-reads every watched file whose mtime moved
func (pw *PromptWatcher) reloadChangedFiles() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	for _, ref := range pw.refs {
		if !pw.hasFileChanged(ref.Path) {
			continue
		}
		err := pw.cfg.reloadPromptFile(ref)
		if pw.onReload != nil {
			pw.onReload(ref.Operation, ref.Type, err)
		}
	}
}

// scheduleReload schedules a debounced reload
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}

	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
			// Reload already scheduled
		}
	})
}
