package models

import "fmt"

const (
	FallbackCategory   = "general"
	FallbackConfidence = 0.3
)

// MessageClassification is the result of analysing a message. It is never
// persisted on its own.
type MessageClassification struct {
	Category           string   `json:"category"`
	Confidence         float64  `json:"confidence"`
	SuggestedProjectID string   `json:"suggested_project_id,omitempty"`
	Tags               []string `json:"tags"`
	Summary            string   `json:"summary"`
}

func (c MessageClassification) IsConfident(threshold float64) bool {
	return c.Confidence >= threshold
}

// FallbackClassification is substituted whenever the classifier cannot
// produce a result.
func FallbackClassification(err error) MessageClassification {
	return MessageClassification{
		Category:   FallbackCategory,
		Confidence: FallbackConfidence,
		Tags:       []string{},
		Summary:    fmt.Sprintf("Failed to classify: %v", err),
	}
}

// FallbackKnowledge echoes the original content when extraction fails.
func FallbackKnowledge(content string, err error) string {
	return fmt.Sprintf("Original message: %s\n\nNote: Failed to extract structured knowledge: %v", content, err)
}

// ResearchSuggestion is a proposed next step for a project.
type ResearchSuggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    int      `json:"priority"`
	Resources   []string `json:"resources"`
}

// FallbackSuggestions is returned when no suggestions could be generated.
func FallbackSuggestions(project *Project, err error) []ResearchSuggestion {
	return []ResearchSuggestion{{
		Title:       "Review Project Status",
		Description: fmt.Sprintf("Review the current status and next steps for %s. (Error occurred: %v)", project.Name, err),
		Priority:    3,
		Resources:   []string{},
	}}
}
