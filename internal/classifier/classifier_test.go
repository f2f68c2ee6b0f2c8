package classifier

import (
	"context"
	"reflect"
	"testing"

	"github.com/xaenox/council-bot/internal/models"
)

func mustProject(t *testing.T, name string) *models.Project {
	t.Helper()
	p, err := models.NewProject(name, name+" description", "")
	if err != nil {
		t.Fatalf("NewProject(%q): %v", name, err)
	}
	return p
}

func TestKeywordClassifier_ClassifyMessage(t *testing.T) {
	atlas := mustProject(t, "Atlas")
	atlasV2 := mustProject(t, "Atlas v2")
	projects := []*models.Project{atlas, atlasV2}

	tests := []struct {
		name         string
		content      string
		wantCategory string
		wantTags     []string
		wantProject  string
	}{
		{
			name:         "bug with hashtags",
			content:      "Login crash after deploy, error 500 #Auth #backend",
			wantCategory: "bug_report",
			wantTags:     []string{"auth", "backend", "bug_report"},
		},
		{
			name:         "no keywords",
			content:      "lorem ipsum",
			wantCategory: models.FallbackCategory,
			wantTags:     []string{},
		},
		{
			name:         "longest project name wins",
			content:      "benchmark results for atlas v2 are in",
			wantCategory: "research",
			wantTags:     []string{"research"},
			wantProject:  atlasV2.ID.String(),
		},
	}

	c := NewKeywordClassifier(5)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ClassifyMessage(context.Background(), tt.content, projects)
			if err != nil {
				t.Fatalf("ClassifyMessage: %v", err)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", got.Category, tt.wantCategory)
			}
			if !reflect.DeepEqual(got.Tags, tt.wantTags) {
				t.Errorf("tags = %v, want %v", got.Tags, tt.wantTags)
			}
			if got.SuggestedProjectID != tt.wantProject {
				t.Errorf("suggested project = %q, want %q", got.SuggestedProjectID, tt.wantProject)
			}
			if got.Confidence < 0 || got.Confidence > 1 {
				t.Errorf("confidence %v out of range", got.Confidence)
			}
		})
	}
}

func TestKeywordClassifier_MaxTags(t *testing.T) {
	c := NewKeywordClassifier(2)
	got, err := c.ClassifyMessage(context.Background(), "#a #b #c #d", nil)
	if err != nil {
		t.Fatalf("ClassifyMessage: %v", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(got.Tags, want) {
		t.Errorf("tags = %v, want %v", got.Tags, want)
	}
}

func TestKeywordClassifier_SuggestNextSteps(t *testing.T) {
	p := mustProject(t, "Atlas")
	c := NewKeywordClassifier(5)

	empty, err := c.SuggestNextSteps(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("SuggestNextSteps: %v", err)
	}
	if len(empty) != 1 {
		t.Fatalf("got %d suggestions without knowledge, want 1", len(empty))
	}

	var entries []*models.KnowledgeEntry
	for _, tags := range [][]string{{"kafka", "ops"}, {"kafka"}, {"auth"}} {
		msg, err := models.NewMessage("note", "u", "c", nil)
		if err != nil {
			t.Fatal(err)
		}
		e, err := models.NewKnowledgeEntry("note", msg.ID, &p.ID, tags)
		if err != nil {
			t.Fatal(err)
		}
		entries = append(entries, e)
	}

	got, err := c.SuggestNextSteps(context.Background(), p, entries)
	if err != nil {
		t.Fatalf("SuggestNextSteps: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d suggestions, want 4", len(got))
	}
	if got[0].Title != "Go deeper on kafka" {
		t.Errorf("first suggestion = %q, want the most frequent tag", got[0].Title)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Priority > got[i-1].Priority {
			t.Errorf("suggestions not ordered by priority: %+v", got)
		}
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize("first line\nsecond", 140); got != "first line" {
		t.Errorf("summarize = %q", got)
	}
	if got := summarize("abcdefghij", 5); got != "abcd…" {
		t.Errorf("summarize = %q", got)
	}
}
