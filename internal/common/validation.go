package common

import (
	"fmt"
	"slices"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

// ValidateQuestionCount checks a requested question count against the session bound
func ValidateQuestionCount(count, maxQuestions int) error {
	if maxQuestions <= 0 {
		maxQuestions = 20
	}
	if count < 1 || count > maxQuestions {
		return fmt.Errorf("question count must be between 1 and %d, got %d", maxQuestions, count)
	}
	return nil
}
