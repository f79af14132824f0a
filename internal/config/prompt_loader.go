package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadedPrompts holds the effective prompt text for one flow after file
// loading. File contents win over inline config values.
type LoadedPrompts struct {
	System string
	User   string
}

// promptStore holds the loaded prompts for every flow. The fsnotify watcher
// updates entries at runtime, so all access goes through the accessors.
type promptStore struct {
	mu      sync.RWMutex
	prompts map[string]LoadedPrompts
}

var store = promptStore{prompts: make(map[string]LoadedPrompts)}

// GetLoadedPrompts returns the current effective prompts for the named flow.
func GetLoadedPrompts(op string) LoadedPrompts {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.prompts[op]
}

func setLoadedPrompts(op string, p LoadedPrompts) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.prompts[op] = p
}

// LoadPromptFiles loads custom prompts for every flow, reading external files
// where file paths are configured and falling back to inline config values.
func (c *Config) LoadPromptFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading")

	loadedCount := 0
	for _, op := range FlowOperations {
		pc := c.flowPromptConfig(op)
		if pc == nil {
			continue
		}

		loaded := LoadedPrompts{System: pc.System, User: pc.User}

		if pc.SystemFile != "" {
			content, err := loadPromptFromFile(pc.SystemFile, "system", op)
			if err != nil {
				return err
			}
			loaded.System = content
			loadedCount++
		}
		if pc.UserFile != "" {
			content, err := loadPromptFromFile(pc.UserFile, "user", op)
			if err != nil {
				return err
			}
			loaded.User = content
			loadedCount++
		}

		setLoadedPrompts(op, loaded)
	}

	if loadedCount == 0 {
		log.Println("[CONFIG] No prompt files configured - using inline config and built-in defaults")
	} else {
		log.Printf("[CONFIG] Loaded %d prompt file(s)", loadedCount)
	}

	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// promptFilePaths returns every configured prompt file path, keyed for reload.
type promptFileRef struct {
	Operation string
	Type      string // "system" or "user"
	Path      string
}

func (c *Config) promptFilePaths() []promptFileRef {
	var refs []promptFileRef
	for _, op := range FlowOperations {
		pc := c.flowPromptConfig(op)
		if pc == nil {
			continue
		}
		if pc.SystemFile != "" {
			refs = append(refs, promptFileRef{Operation: op, Type: "system", Path: pc.SystemFile})
		}
		if pc.UserFile != "" {
			refs = append(refs, promptFileRef{Operation: op, Type: "user", Path: pc.UserFile})
		}
	}
	return refs
}

// reloadPromptFile re-reads a single prompt file and swaps it into the store.
// Called by the watcher; a broken file keeps the previous prompt in place.
func (c *Config) reloadPromptFile(ref promptFileRef) error {
	content, err := loadPromptFromFile(ref.Path, ref.Type, ref.Operation)
	if err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	loaded := store.prompts[ref.Operation]
	if ref.Type == "system" {
		loaded.System = content
	} else {
		loaded.User = content
	}
	store.prompts[ref.Operation] = loaded
	return nil
}
