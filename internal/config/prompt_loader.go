package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// validatePromptFiles checks that every configured prompt file exists before any is read
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, name string) {
		if filePath == "" {
			return
		}

		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s prompt: %s", name, filePath))
			return
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s prompt file not found: %s", name, absPath))
		}
	}

	validateFile(c.AI.Prompts.SystemFile, "system")
	for _, typ := range sortedKeys(c.AI.Prompts.TypeFiles) {
		validateFile(c.AI.Prompts.TypeFiles[typ], typ)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// loadPromptsFromFiles replaces inline prompts with file contents where a file is configured
func (c *Config) loadPromptsFromFiles() error {
	if c.AI.Prompts.SystemFile != "" {
		content, err := loadPromptFromFile(c.AI.Prompts.SystemFile, "system")
		if err != nil {
			return err
		}
		c.AI.Prompts.System = content
	}

	if len(c.AI.Prompts.TypeFiles) == 0 {
		return nil
	}
	if c.AI.Prompts.Types == nil {
		c.AI.Prompts.Types = make(map[string]string, len(c.AI.Prompts.TypeFiles))
	}
	for _, typ := range sortedKeys(c.AI.Prompts.TypeFiles) {
		content, err := loadPromptFromFile(c.AI.Prompts.TypeFiles[typ], typ)
		if err != nil {
			return err
		}
		c.AI.Prompts.Types[typ] = content
	}
	return nil
}

func loadPromptFromFile(filePath, name string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", name, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s prompt file '%s': %w", name, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s prompt file '%s' is empty", name, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s prompt from file: %s (%d characters)",
		name, absPath, len(trimmedContent))

	return trimmedContent, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
