package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// operationPrompts returns the prompt configs of every operation keyed by name.
func (c *Config) operationPrompts() map[string]*PromptConfig {
	return map[string]*PromptConfig{
		OperationAnalyze:  &c.AI.Analyze.Prompts,
		OperationPrepDeck: &c.AI.PrepDeck.Prompts,
		OperationChat:     &c.AI.Chat.Prompts,
	}
}

// loadPromptsFromFiles replaces inline prompts with file content where a file is configured
func (c *Config) loadPromptsFromFiles() error {
	loaded := 0
	for operation, prompts := range c.operationPrompts() {
		if prompts.SystemFile != "" {
			content, err := loadPromptFromFile(prompts.SystemFile, "system", operation)
			if err != nil {
				return err
			}
			prompts.System = content
			loaded++
		}
		if prompts.UserFile != "" {
			content, err := loadPromptFromFile(prompts.UserFile, "user", operation)
			if err != nil {
				return err
			}
			prompts.User = content
			loaded++
		}
	}

	if loaded == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", loaded)
	}
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, promptType, operation string) {
		if filePath == "" {
			return
		}
		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", promptType, operation, filePath))
			return
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", promptType, operation, absPath))
		}
	}

	for operation, prompts := range c.operationPrompts() {
		validateFile(prompts.SystemFile, "system", operation)
		validateFile(prompts.UserFile, "user", operation)
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
