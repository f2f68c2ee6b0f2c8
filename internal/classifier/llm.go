package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/council-bot/internal/models"
)

// Completer sends a single prompt to a language model and returns the raw
// text of the reply. When jsonOutput is set the backend is asked for a JSON
// object.
type Completer interface {
	Complete(ctx context.Context, prompt string, jsonOutput bool) (string, error)
}

const (
	defaultMaxTags    = 5
	defaultMaxContext = 10
	defaultConfidence = 0.5
	defaultPriority   = 3
)

var errEmptyResponse = errors.New("empty response from model")

// LLMClassifier implements Classifier on top of any Completer.
type LLMClassifier struct {
	completer  Completer
	maxTags    int
	maxContext int
	logger     *zap.Logger
}

func NewLLMClassifier(completer Completer, maxTags, maxContext int, logger *zap.Logger) *LLMClassifier {
	if maxTags <= 0 {
		maxTags = defaultMaxTags
	}
	if maxContext <= 0 {
		maxContext = defaultMaxContext
	}
	return &LLMClassifier{
		completer:  completer,
		maxTags:    maxTags,
		maxContext: maxContext,
		logger:     logger.Named("classifier"),
	}
}

type classificationResponse struct {
	Category           string          `json:"category"`
	Confidence         json.RawMessage `json:"confidence"`
	SuggestedProjectID json.RawMessage `json:"suggested_project_id"`
	Tags               []string        `json:"tags"`
	Summary            string          `json:"summary"`
}

type suggestionResponse struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    json.RawMessage `json:"priority"`
	Resources   []string        `json:"resources"`
}

func (c *LLMClassifier) ClassifyMessage(ctx context.Context, content string, projects []*models.Project) (models.MessageClassification, error) {
	response, err := c.completer.Complete(ctx, buildClassifyPrompt(content, projects, c.maxTags), true)
	if err != nil {
		return models.MessageClassification{}, fmt.Errorf("classification request failed: %w", err)
	}

	var parsed classificationResponse
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &parsed); err != nil {
		c.logger.Error("Failed to parse classification response",
			zap.Error(err),
			zap.String("response", response))
		return models.FallbackClassification(err), nil
	}

	category := strings.TrimSpace(strings.ToLower(parsed.Category))
	if category == "" {
		category = models.FallbackCategory
	}

	tags := models.NormalizeTags(parsed.Tags)
	if len(tags) > c.maxTags {
		tags = tags[:c.maxTags]
	}

	return models.MessageClassification{
		Category:           category,
		Confidence:         clamp(parseNumber(parsed.Confidence, defaultConfidence), 0, 1),
		SuggestedProjectID: parseOptionalString(parsed.SuggestedProjectID),
		Tags:               tags,
		Summary:            strings.TrimSpace(parsed.Summary),
	}, nil
}

func (c *LLMClassifier) ExtractKnowledge(ctx context.Context, content string) (string, error) {
	response, err := c.completer.Complete(ctx, buildExtractPrompt(content), false)
	if err != nil {
		return "", fmt.Errorf("knowledge extraction request failed: %w", err)
	}
	knowledge := strings.TrimSpace(response)
	if knowledge == "" {
		c.logger.Warn("Model returned empty knowledge extraction")
		return models.FallbackKnowledge(content, errEmptyResponse), nil
	}
	return knowledge, nil
}

func (c *LLMClassifier) SuggestNextSteps(ctx context.Context, project *models.Project, entries []*models.KnowledgeEntry) ([]models.ResearchSuggestion, error) {
	if len(entries) > c.maxContext {
		entries = entries[:c.maxContext]
	}

	response, err := c.completer.Complete(ctx, buildSuggestPrompt(project, entries), true)
	if err != nil {
		return nil, fmt.Errorf("next steps request failed: %w", err)
	}

	raw, err := parseSuggestions(stripCodeFence(response))
	if err != nil {
		c.logger.Error("Failed to parse next steps response",
			zap.Error(err),
			zap.String("project_id", project.ID.String()),
			zap.String("response", response))
		return models.FallbackSuggestions(project, err), nil
	}

	suggestions := make([]models.ResearchSuggestion, 0, len(raw))
	for _, s := range raw {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			continue
		}
		resources := s.Resources
		if resources == nil {
			resources = []string{}
		}
		suggestions = append(suggestions, models.ResearchSuggestion{
			Title:       title,
			Description: strings.TrimSpace(s.Description),
			Priority:    int(clamp(parseNumber(s.Priority, defaultPriority), 1, 5)),
			Resources:   resources,
		})
	}
	if len(suggestions) == 0 {
		return models.FallbackSuggestions(project, errEmptyResponse), nil
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority > suggestions[j].Priority
	})
	return suggestions, nil
}

// parseSuggestions accepts either a bare array or an object wrapping it
// under "suggestions".
func parseSuggestions(response string) ([]suggestionResponse, error) {
	var list []suggestionResponse
	if strings.HasPrefix(response, "[") {
		if err := json.Unmarshal([]byte(response), &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var wrapped struct {
		Suggestions []suggestionResponse `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(response), &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Suggestions == nil {
		return nil, errors.New(`response has no "suggestions" field`)
	}
	return wrapped.Suggestions, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseNumber reads a JSON number or a quoted number, returning def for
// anything else, including quoted NaN and infinities.
func parseNumber(raw json.RawMessage, def float64) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return def
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return def
}

func parseOptionalString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a":
		return ""
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
