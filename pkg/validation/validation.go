package validation

import (
	"fmt"
	"strings"
)

const (
	MinThreads = 1
	MaxThreads = 20
)

func ValidateThreadCount(threads int) error {
	if threads < MinThreads || threads > MaxThreads {
		return fmt.Errorf("thread count must be between %d and %d, got %d", MinThreads, MaxThreads, threads)
	}
	return nil
}

func ValidateProductID(id int) error {
	if id <= 0 {
		return fmt.Errorf("product ID must be a positive integer, got %d", id)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateFormat checks an invoice output format.
func ValidateFormat(format string) error {
	switch format {
	case "pdf", "docx", "text":
		return nil
	}
	return fmt.Errorf("invalid format: %s (must be one of: pdf, docx, text)", format)
}

// ValidateLanguage checks an invoice label language.
func ValidateLanguage(lang string) error {
	switch lang {
	case "en", "ru":
		return nil
	}
	return fmt.Errorf("invalid language: %s (must be one of: en, ru)", lang)
}
