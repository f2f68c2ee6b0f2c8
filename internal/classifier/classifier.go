package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/xaenox/council-bot/internal/models"
)

// Classifier analyses message content. Implementations absorb malformed model
// output into the documented fallbacks; an error return means the backend
// itself could not be reached.
type Classifier interface {
	ClassifyMessage(ctx context.Context, content string, projects []*models.Project) (models.MessageClassification, error)
	ExtractKnowledge(ctx context.Context, content string) (string, error)
	SuggestNextSteps(ctx context.Context, project *models.Project, entries []*models.KnowledgeEntry) ([]models.ResearchSuggestion, error)
}

// KeywordClassifier is an offline classifier that works from hashtags,
// a fixed keyword table and project name mentions.
type KeywordClassifier struct {
	maxTags int
}

func NewKeywordClassifier(maxTags int) *KeywordClassifier {
	if maxTags <= 0 {
		maxTags = 5
	}
	return &KeywordClassifier{maxTags: maxTags}
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"bug_report", []string{"bug", "crash", "error", "broken", "fails", "regression"}},
	{"feature_request", []string{"feature", "would be nice", "add support", "request", "enhancement"}},
	{"question", []string{"?", "how do", "how to", "why does", "what is"}},
	{"research", []string{"research", "paper", "study", "investigate", "compare", "benchmark"}},
	{"work", []string{"project", "meeting", "deadline", "task", "report"}},
	{"personal", []string{"family", "friend", "home", "birthday", "holiday"}},
	{"shopping", []string{"buy", "purchase", "store", "shop", "price"}},
	{"education", []string{"learn", "course", "book", "homework", "lecture"}},
	{"travel", []string{"trip", "flight", "hotel", "vacation", "booking"}},
}

func (c *KeywordClassifier) ClassifyMessage(ctx context.Context, content string, projects []*models.Project) (models.MessageClassification, error) {
	lower := strings.ToLower(content)

	category := models.FallbackCategory
	bestHits := 0
	for _, entry := range categoryKeywords {
		hits := 0
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			category, bestHits = entry.category, hits
		}
	}

	tags := hashtags(content)
	if category != models.FallbackCategory {
		tags = append(tags, category)
	}
	tags = models.NormalizeTags(tags)
	if len(tags) > c.maxTags {
		tags = tags[:c.maxTags]
	}

	confidence := 0.4
	if bestHits > 0 {
		confidence = 0.6
	}

	result := models.MessageClassification{
		Category:   category,
		Confidence: confidence,
		Tags:       tags,
		Summary:    summarize(content, 140),
	}

	// The longest mentioned project name wins so "Atlas v2" beats "Atlas".
	var match *models.Project
	for _, p := range projects {
		if strings.Contains(lower, strings.ToLower(p.Name)) && (match == nil || len(p.Name) > len(match.Name)) {
			match = p
		}
	}
	if match != nil {
		result.SuggestedProjectID = match.ID.String()
		result.Confidence += 0.2
	}

	return result, nil
}

func (c *KeywordClassifier) ExtractKnowledge(ctx context.Context, content string) (string, error) {
	return strings.TrimSpace(content), nil
}

func (c *KeywordClassifier) SuggestNextSteps(ctx context.Context, project *models.Project, entries []*models.KnowledgeEntry) ([]models.ResearchSuggestion, error) {
	if len(entries) == 0 {
		return []models.ResearchSuggestion{{
			Title:       "Capture initial notes",
			Description: fmt.Sprintf("Send a few messages about %s so there is knowledge to build on.", project.Name),
			Priority:    3,
			Resources:   []string{},
		}}, nil
	}

	counts := make(map[string]int)
	for _, e := range entries {
		for _, tag := range e.Tags {
			counts[tag]++
		}
	}
	topics := make([]string, 0, len(counts))
	for tag := range counts {
		topics = append(topics, tag)
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > 3 {
		topics = topics[:3]
	}

	suggestions := make([]models.ResearchSuggestion, 0, len(topics)+1)
	for i, topic := range topics {
		suggestions = append(suggestions, models.ResearchSuggestion{
			Title:       fmt.Sprintf("Go deeper on %s", topic),
			Description: fmt.Sprintf("%d notes for %s mention %s. Consolidate them and decide what is still open.", counts[topic], project.Name, topic),
			Priority:    4 - i,
			Resources:   []string{},
		})
	}
	suggestions = append(suggestions, models.ResearchSuggestion{
		Title:       "Review recent notes",
		Description: fmt.Sprintf("Read through the latest %d notes for %s and turn open questions into tasks.", len(entries), project.Name),
		Priority:    1,
		Resources:   []string{},
	})
	return suggestions, nil
}

func hashtags(content string) []string {
	var tags []string
	for _, word := range strings.Fields(content) {
		if !strings.HasPrefix(word, "#") {
			continue
		}
		tag := strings.TrimFunc(strings.TrimPrefix(word, "#"), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// summarize returns the first line of content, cut at max runes.
func summarize(content string, max int) string {
	line := strings.TrimSpace(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	runes := []rune(line)
	if len(runes) <= max {
		return line
	}
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
