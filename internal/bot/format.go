package bot

import (
	"fmt"
	"strings"

	"github.com/xaenox/council-bot/internal/models"
)

const previewLength = 200

var markdownReplacer = func() *strings.Replacer {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	pairs := make([]string, 0, len(specialChars)*2)
	for _, char := range specialChars {
		pairs = append(pairs, char, "\\"+char)
	}
	return strings.NewReplacer(pairs...)
}()

// escapeMarkdown escapes text for Telegram's MarkdownV2 parse mode.
func escapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}

func hashtag(s string) string {
	return escapeMarkdown("#" + strings.ReplaceAll(s, " ", "_"))
}

func formatClassification(c models.MessageClassification, projectName string, minConfidence float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Category:* %s\n", hashtag(c.Category))

	confidence := escapeMarkdown(fmt.Sprintf("%.0f%%", c.Confidence*100))
	if !c.IsConfident(minConfidence) {
		confidence += " _\\(low confidence\\)_"
	}
	fmt.Fprintf(&b, "*Confidence:* %s\n", confidence)

	if len(c.Tags) > 0 {
		tags := make([]string, len(c.Tags))
		for i, tag := range c.Tags {
			tags[i] = hashtag(tag)
		}
		fmt.Fprintf(&b, "*Tags:* %s\n", strings.Join(tags, " "))
	}
	if projectName != "" {
		fmt.Fprintf(&b, "*Project:* %s\n", escapeMarkdown(projectName))
	}
	if c.Summary != "" {
		fmt.Fprintf(&b, "\n*Summary:* %s", escapeMarkdown(c.Summary))
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatProjects(projects []*models.Project) string {
	var b strings.Builder
	b.WriteString("*Active projects:*\n")
	for _, p := range projects {
		fmt.Fprintf(&b, "\n*%s*\n%s\n", escapeMarkdown(p.Name), escapeMarkdown(truncate(p.Description, previewLength)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatProjectCreated(p *models.Project) string {
	return fmt.Sprintf("Project *%s* created\\.\n_%s_", escapeMarkdown(p.Name), escapeMarkdown(p.Description))
}

func formatStatusChanged(p *models.Project) string {
	return fmt.Sprintf("Project *%s* is now %s\\.", escapeMarkdown(p.Name), hashtag(string(p.Status)))
}

func formatSuggestions(p *models.Project, suggestions []models.ResearchSuggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Next steps for %s:*\n", escapeMarkdown(p.Name))
	for i, s := range suggestions {
		fmt.Fprintf(&b, "\n%d\\. *%s* %s\n", i+1, escapeMarkdown(s.Title), escapeMarkdown(priorityLabel(s.Priority)))
		if s.Description != "" {
			fmt.Fprintf(&b, "%s\n", escapeMarkdown(s.Description))
		}
		if len(s.Resources) > 0 {
			fmt.Fprintf(&b, "_Resources:_ %s\n", escapeMarkdown(strings.Join(s.Resources, ", ")))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatKnowledge(query string, entries []*models.KnowledgeEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Results for* _%s_*:*\n", escapeMarkdown(query))
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s\n", escapeMarkdown(truncate(e.Content, previewLength)))
		if len(e.Tags) > 0 {
			tags := make([]string, len(e.Tags))
			for i, tag := range e.Tags {
				tags[i] = hashtag(tag)
			}
			fmt.Fprintf(&b, "%s\n", strings.Join(tags, " "))
		}
		fmt.Fprintf(&b, "_%s_\n", escapeMarkdown(e.CreatedAt.Format("2006-01-02 15:04")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPending(msgs []*models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d pending message\\(s\\):*\n", len(msgs))
	for _, m := range msgs {
		fmt.Fprintf(&b, "\n_%s_ %s\n",
			escapeMarkdown(m.CreatedAt.Format("2006-01-02 15:04")),
			escapeMarkdown(truncate(m.Content, previewLength)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func priorityLabel(priority int) string {
	return fmt.Sprintf("(priority %d)", priority)
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// parseNewProjectArgs splits "<name> | <description>".
func parseNewProjectArgs(args string) (name, description string, ok bool) {
	name, description, found := strings.Cut(args, "|")
	if !found {
		return "", "", false
	}
	name, description = strings.TrimSpace(name), strings.TrimSpace(description)
	if name == "" || description == "" {
		return "", "", false
	}
	return name, description, true
}

// parseStatusArgs splits "<project name> <status>"; the name may contain
// spaces, the status is the last word.
func parseStatusArgs(args string) (name, status string, ok bool) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", false
	}
	return strings.Join(fields[:len(fields)-1], " "), strings.ToLower(fields[len(fields)-1]), true
}

func userMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
