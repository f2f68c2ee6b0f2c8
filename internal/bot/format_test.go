package bot

import (
	"errors"
	"strings"
	"testing"

	"github.com/xaenox/council-bot/internal/models"
)

func TestEscapeMarkdown(t *testing.T) {
	tests := map[string]string{
		"plain":          "plain",
		"v1.2-beta!":     `v1\.2\-beta\!`,
		"#tag_name":      `\#tag\_name`,
		`C:\path`:        `C:\\path`,
		"[link](x)":      `\[link\]\(x\)`,
		"a*b~c`d>e|f{g}": "a\\*b\\~c\\`d\\>e\\|f\\{g\\}",
	}
	for in, want := range tests {
		if got := escapeMarkdown(in); got != want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatClassification(t *testing.T) {
	c := models.MessageClassification{
		Category:   "bug_report",
		Confidence: 0.82,
		Tags:       []string{"kafka", "on call"},
		Summary:    "Consumer lag grows.",
	}

	got := formatClassification(c, "Atlas v2", 0.7)
	for _, want := range []string{
		`*Category:* \#bug\_report`,
		"*Confidence:* 82%",
		`*Tags:* \#kafka \#on\_call`,
		`*Project:* Atlas v2`,
		`*Summary:* Consumer lag grows\.`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("formatted classification missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "low confidence") {
		t.Error("confident classification flagged as low confidence")
	}

	low := formatClassification(models.FallbackClassification(errors.New("down")), "", 0.7)
	if !strings.Contains(low, "low confidence") {
		t.Errorf("fallback classification not flagged:\n%s", low)
	}
	if strings.Contains(low, "*Tags:*") || strings.Contains(low, "*Project:*") {
		t.Errorf("empty tags or project should be omitted:\n%s", low)
	}
}

func TestParseNewProjectArgs(t *testing.T) {
	tests := []struct {
		args     string
		wantName string
		wantDesc string
		wantOK   bool
	}{
		{"Atlas | Event pipeline rewrite", "Atlas", "Event pipeline rewrite", true},
		{"  Atlas v2|desc with | pipe ", "Atlas v2", "desc with | pipe", true},
		{"Atlas", "", "", false},
		{" | desc", "", "", false},
		{"Atlas | ", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		name, desc, ok := parseNewProjectArgs(tt.args)
		if name != tt.wantName || desc != tt.wantDesc || ok != tt.wantOK {
			t.Errorf("parseNewProjectArgs(%q) = %q, %q, %v; want %q, %q, %v",
				tt.args, name, desc, ok, tt.wantName, tt.wantDesc, tt.wantOK)
		}
	}
}

func TestParseStatusArgs(t *testing.T) {
	tests := []struct {
		args       string
		wantName   string
		wantStatus string
		wantOK     bool
	}{
		{"Atlas on_hold", "Atlas", "on_hold", true},
		{"Atlas  v2   Completed", "Atlas v2", "completed", true},
		{"Atlas", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		name, status, ok := parseStatusArgs(tt.args)
		if name != tt.wantName || status != tt.wantStatus || ok != tt.wantOK {
			t.Errorf("parseStatusArgs(%q) = %q, %q, %v; want %q, %q, %v",
				tt.args, name, status, ok, tt.wantName, tt.wantStatus, tt.wantOK)
		}
	}
}

func TestFormatSuggestions(t *testing.T) {
	p, err := models.NewProject("Atlas", "pipeline", "")
	if err != nil {
		t.Fatal(err)
	}
	got := formatSuggestions(p, models.FallbackSuggestions(p, errors.New("quota")))
	if !strings.Contains(got, `1\. *Review Project Status* \(priority 3\)`) {
		t.Errorf("unexpected suggestions output:\n%s", got)
	}
	if strings.Contains(got, "Resources") {
		t.Errorf("empty resources should be omitted:\n%s", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 10); got != "héllo" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("héllo world", 5); got != "héll…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := &models.DuplicateNameError{Name: "Atlas"}
	if got := userMessage(err); got != `Project with name "Atlas" already exists` {
		t.Errorf("userMessage = %q", got)
	}
}
