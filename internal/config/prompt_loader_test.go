package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPromptFiles(t *testing.T) {
	tempDir := t.TempDir()

	systemPromptContent := "Test system prompt for question generation"
	userPromptContent := "Test user prompt template: %s"

	systemPromptFile := filepath.Join(tempDir, "system.generate.md")
	userPromptFile := filepath.Join(tempDir, "user.generate.md")

	if err := os.WriteFile(systemPromptFile, []byte(systemPromptContent), 0600); err != nil {
		t.Fatalf("Failed to create test system prompt file: %v", err)
	}
	if err := os.WriteFile(userPromptFile, []byte(userPromptContent), 0600); err != nil {
		t.Fatalf("Failed to create test user prompt file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			Generate: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemFile: systemPromptFile,
					UserFile:   userPromptFile,
				},
			},
		},
	}

	if err := config.LoadPromptFiles(); err != nil {
		t.Fatalf("Failed to load prompts from files: %v", err)
	}

	loaded := GetLoadedPrompts(OpGenerateQuestions)

	if loaded.System != systemPromptContent {
		t.Errorf("Expected loaded system prompt content '%s', got '%s'",
			systemPromptContent, loaded.System)
	}
	if loaded.User != userPromptContent {
		t.Errorf("Expected loaded user prompt content '%s', got '%s'",
			userPromptContent, loaded.User)
	}

	// File paths stay on the config so the watcher can reload them.
	if config.AI.Generate.CustomPrompts.SystemFile != systemPromptFile {
		t.Error("Expected system prompt file path to be preserved")
	}
	if config.AI.Generate.CustomPrompts.UserFile != userPromptFile {
		t.Error("Expected user prompt file path to be preserved")
	}
}

func TestLoadPromptFilesInlineFallback(t *testing.T) {
	config := &Config{
		AI: AIConfig{
			Evaluate: OperationAIConfig{
				CustomPrompts: PromptConfig{
					System: "Inline evaluation system prompt",
					User:   "Inline evaluation user prompt",
				},
			},
		},
	}

	if err := config.LoadPromptFiles(); err != nil {
		t.Fatalf("Failed to load prompts: %v", err)
	}

	loaded := GetLoadedPrompts(OpEvaluateAnswer)
	if loaded.System != "Inline evaluation system prompt" {
		t.Errorf("Expected inline system prompt, got '%s'", loaded.System)
	}
	if loaded.User != "Inline evaluation user prompt" {
		t.Errorf("Expected inline user prompt, got '%s'", loaded.User)
	}
}

func TestLoadPromptFilesMissingFile(t *testing.T) {
	config := &Config{
		AI: AIConfig{
			Parse: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemFile: filepath.Join(t.TempDir(), "nonexistent.md"),
				},
			},
		},
	}

	if err := config.LoadPromptFiles(); err == nil {
		t.Error("Expected error for non-existent prompt file")
	}
}

func TestLoadPromptFromFile(t *testing.T) {
	tempDir := t.TempDir()

	content := "Test prompt content"
	testFile := filepath.Join(tempDir, "test.md")
	if err := os.WriteFile(testFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	loadedContent, err := loadPromptFromFile(testFile, "system", "generate")
	if err != nil {
		t.Fatalf("Failed to load prompt from file: %v", err)
	}
	if loadedContent != content {
		t.Errorf("Expected content '%s', got '%s'", content, loadedContent)
	}

	// Leading and trailing whitespace is trimmed.
	paddedFile := filepath.Join(tempDir, "padded.md")
	if err := os.WriteFile(paddedFile, []byte("\n  padded prompt  \n"), 0600); err != nil {
		t.Fatalf("Failed to create padded test file: %v", err)
	}
	loadedContent, err = loadPromptFromFile(paddedFile, "user", "generate")
	if err != nil {
		t.Fatalf("Failed to load padded prompt: %v", err)
	}
	if loadedContent != "padded prompt" {
		t.Errorf("Expected trimmed content, got '%s'", loadedContent)
	}

	emptyFile := filepath.Join(tempDir, "empty.md")
	if err := os.WriteFile(emptyFile, []byte(""), 0600); err != nil {
		t.Fatalf("Failed to create empty test file: %v", err)
	}
	if _, err := loadPromptFromFile(emptyFile, "system", "generate"); err == nil {
		t.Error("Expected error for empty file")
	}

	if _, err := loadPromptFromFile(filepath.Join(tempDir, "nonexistent.md"), "system", "generate"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestReloadPromptFile(t *testing.T) {
	tempDir := t.TempDir()

	promptFile := filepath.Join(tempDir, "system.transcribe.md")
	if err := os.WriteFile(promptFile, []byte("original prompt"), 0600); err != nil {
		t.Fatalf("Failed to create prompt file: %v", err)
	}

	config := &Config{
		AI: AIConfig{
			Transcribe: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemFile: promptFile,
				},
			},
		},
	}

	if err := config.LoadPromptFiles(); err != nil {
		t.Fatalf("Failed to load prompts: %v", err)
	}
	if got := GetLoadedPrompts(OpTranscribeAnswer).System; got != "original prompt" {
		t.Fatalf("Expected 'original prompt', got '%s'", got)
	}

	if err := os.WriteFile(promptFile, []byte("updated prompt"), 0600); err != nil {
		t.Fatalf("Failed to update prompt file: %v", err)
	}

	refs := config.promptFilePaths()
	var ref promptFileRef
	found := false
	for _, r := range refs {
		if r.Operation == OpTranscribeAnswer && r.Type == "system" {
			ref = r
			found = true
		}
	}
	if !found {
		t.Fatal("Expected transcribe system prompt in file path refs")
	}

	if err := config.reloadPromptFile(ref); err != nil {
		t.Fatalf("Failed to reload prompt file: %v", err)
	}
	if got := GetLoadedPrompts(OpTranscribeAnswer).System; got != "updated prompt" {
		t.Errorf("Expected 'updated prompt' after reload, got '%s'", got)
	}

	// A broken file keeps the previous content in place.
	if err := os.Remove(promptFile); err != nil {
		t.Fatalf("Failed to remove prompt file: %v", err)
	}
	if err := config.reloadPromptFile(ref); err == nil {
		t.Error("Expected error reloading a removed file")
	}
	if got := GetLoadedPrompts(OpTranscribeAnswer).System; got != "updated prompt" {
		t.Errorf("Expected prompt to survive failed reload, got '%s'", got)
	}
}
