package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"intervisage/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ResumeProfile", &ProfileTextFormatter{})
	registry.RegisterFormatter("markdown", "ResumeProfile", &ProfileMarkdownFormatter{})
	registry.RegisterFormatter("text", "GenerateQuestionsOutput", &QuestionsTextFormatter{})
	registry.RegisterFormatter("markdown", "GenerateQuestionsOutput", &QuestionsMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ResumeProfile:
		return "ResumeProfile"
	case types.GenerateQuestionsOutput:
		return "GenerateQuestionsOutput"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ProfileTextFormatter handles text formatting for parsed resume profiles
type ProfileTextFormatter struct{}

func (ptf *ProfileTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ResumeProfile)
	if !ok {
		return "", fmt.Errorf("expected ResumeProfile, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== RESUME PROFILE ===\n\n")

	writeSection := func(title string, items []string) {
		output.WriteString(title + ":\n")
		if len(items) == 0 {
			output.WriteString("  (none)\n")
		}
		for _, item := range items {
			output.WriteString("  - " + item + "\n")
		}
		output.WriteString("\n")
	}

	writeSection("Work Experience", result.WorkExperience)
	writeSection("Skills", result.Skills)
	writeSection("Projects", result.Projects)

	return output.String(), nil
}

func (ptf *ProfileTextFormatter) SupportedType() string {
	return "ResumeProfile"
}

// ProfileMarkdownFormatter handles markdown formatting for parsed resume profiles
type ProfileMarkdownFormatter struct{}

func (pmf *ProfileMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ResumeProfile)
	if !ok {
		return "", fmt.Errorf("expected ResumeProfile, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Resume Profile\n\n")

	writeSection := func(title string, items []string) {
		output.WriteString("## " + title + "\n\n")
		if len(items) == 0 {
			output.WriteString("_none_\n")
		}
		for _, item := range items {
			output.WriteString("- " + item + "\n")
		}
		output.WriteString("\n")
	}

	writeSection("Work Experience", result.WorkExperience)
	writeSection("Skills", result.Skills)
	writeSection("Projects", result.Projects)

	return output.String(), nil
}

func (pmf *ProfileMarkdownFormatter) SupportedType() string {
	return "ResumeProfile"
}

// QuestionsTextFormatter handles text formatting for generated question sets
type QuestionsTextFormatter struct{}

func (qtf *QuestionsTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.GenerateQuestionsOutput)
	if !ok {
		return "", fmt.Errorf("expected GenerateQuestionsOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== INTERVIEW QUESTIONS ===\n\n")
	for i, q := range result.Questions {
		output.WriteString(fmt.Sprintf("%d. %s\n", i+1, q.Question))
		if q.GuidanceLink != "" {
			output.WriteString("   Guidance: " + q.GuidanceLink + "\n")
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func (qtf *QuestionsTextFormatter) SupportedType() string {
	return "GenerateQuestionsOutput"
}

// QuestionsMarkdownFormatter handles markdown formatting for generated question sets
type QuestionsMarkdownFormatter struct{}

func (qmf *QuestionsMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.GenerateQuestionsOutput)
	if !ok {
		return "", fmt.Errorf("expected GenerateQuestionsOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Interview Questions\n\n")
	for i, q := range result.Questions {
		output.WriteString(fmt.Sprintf("%d. %s", i+1, q.Question))
		if q.GuidanceLink != "" {
			output.WriteString(fmt.Sprintf(" ([guidance](%s))", q.GuidanceLink))
		}
		output.WriteString("\n")
	}
	output.WriteString("\n")

	return output.String(), nil
}

func (qmf *QuestionsMarkdownFormatter) SupportedType() string {
	return "GenerateQuestionsOutput"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
