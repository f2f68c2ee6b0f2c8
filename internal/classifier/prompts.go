package classifier

import (
	"fmt"
	"strings"

	"github.com/xaenox/council-bot/internal/models"
)

const classifyPrompt = `Analyze the message below and classify it against the available projects.

Message: %s

Available projects:
%s

Return a JSON object with this structure:
{
    "category": "feature_request | bug_report | question | research | general",
    "confidence": 0.0,
    "suggested_project_id": "id of the matching project or null",
    "tags": ["keyword1", "keyword2"],
    "summary": "one sentence summary"
}

Use at most %d tags. Only suggest a project ID from the list above.`

const extractPrompt = `Extract the key information from this message:

Message: %s

Write a short structured summary covering:
- Main topics discussed
- Key decisions or insights
- Action items or next steps
- Important context or references

Keep it concise. Respond with plain text, not JSON.`

const suggestPrompt = `Suggest 3 to 5 next research steps or actions for this project.

Project: %s
Description: %s

Recent knowledge entries:
%s

Return a JSON object with this structure:
{
    "suggestions": [
        {"title": "short title", "description": "what to do and why", "priority": 4, "resources": ["tool or link"]}
    ]
}

Priority is an integer from 1 to 5, higher is more important.`

func buildClassifyPrompt(content string, projects []*models.Project, maxTags int) string {
	var b strings.Builder
	for _, p := range projects {
		fmt.Fprintf(&b, "- %s: %s (ID: %s)\n", p.Name, p.Description, p.ID)
	}
	if b.Len() == 0 {
		b.WriteString("(none)\n")
	}
	return fmt.Sprintf(classifyPrompt, content, strings.TrimRight(b.String(), "\n"), maxTags)
}

func buildExtractPrompt(content string) string {
	return fmt.Sprintf(extractPrompt, content)
}

func buildSuggestPrompt(project *models.Project, entries []*models.KnowledgeEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, "- "+e.Content)
	}
	knowledge := strings.Join(lines, "\n\n")
	if knowledge == "" {
		knowledge = "(no entries yet)"
	}
	return fmt.Sprintf(suggestPrompt, project.Name, project.Description, knowledge)
}
