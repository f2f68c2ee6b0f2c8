package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xaenox/council-bot/internal/models"
	"github.com/xaenox/council-bot/internal/storage"
	"go.uber.org/zap"
)

func newTestRepository(t *testing.T) (*KnowledgeRepository, *models.Message) {
	t.Helper()
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	repo := NewKnowledgeRepository(storage.NewMemoryStorage(), idx, zap.NewNop())
	t.Cleanup(func() { repo.Close() })

	msg, err := models.NewMessage("source", "u", "c", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	return repo, msg
}

func addEntry(t *testing.T, repo *KnowledgeRepository, msg *models.Message, content string, tags ...string) *models.KnowledgeEntry {
	t.Helper()
	entry, err := models.NewKnowledgeEntry(content, msg.ID, nil, tags)
	if err != nil {
		t.Fatal(err)
	}
	saved, err := repo.SaveKnowledge(context.Background(), entry)
	if err != nil {
		t.Fatalf("SaveKnowledge: %v", err)
	}
	return saved
}

func TestKnowledgeRepository_SearchUsesIndex(t *testing.T) {
	repo, msg := newTestRepository(t)
	ctx := context.Background()

	jwt := addEntry(t, repo, msg, "Rotate the JWT signing keys every quarter", "security")
	addEntry(t, repo, msg, "Kafka consumer lag alerts", "ops")
	tagged := addEntry(t, repo, msg, "Notes from the architecture review", "JWT")

	count, err := repo.index.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("index holds %d documents, want 3", count)
	}

	got, err := repo.SearchKnowledge(ctx, "jwt", 10)
	if err != nil {
		t.Fatalf("SearchKnowledge: %v", err)
	}
	found := map[string]bool{}
	for _, e := range got {
		found[e.ID.String()] = true
	}
	if len(got) != 2 || !found[jwt.ID.String()] || !found[tagged.ID.String()] {
		t.Errorf("SearchKnowledge(jwt) returned %d entries, want the content and tag matches", len(got))
	}

	// Stemming: "rotating" should find "Rotate".
	got, err = repo.SearchKnowledge(ctx, "rotating", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != jwt.ID {
		t.Errorf("SearchKnowledge(rotating) = %d entries, want the JWT note", len(got))
	}
}

func TestKnowledgeRepository_Limit(t *testing.T) {
	repo, msg := newTestRepository(t)
	for i := 0; i < 5; i++ {
		addEntry(t, repo, msg, "deployment checklist item")
	}

	got, err := repo.SearchKnowledge(context.Background(), "deployment", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("got %d entries, want 3", len(got))
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.bleve")

	idx, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	msg, _ := models.NewMessage("source", "u", "c", nil)
	entry, _ := models.NewKnowledgeEntry("persisted content", msg.ID, nil, nil)
	if err := idx.Add(entry); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	ids, err := idx.Search("persisted", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != entry.ID.String() {
		t.Errorf("Search after reopen = %v, want [%s]", ids, entry.ID)
	}
}

// seededStore returns a store holding entries that were saved before any
// index existed.
func seededStore(t *testing.T, contents ...string) *storage.MemoryStorage {
	t.Helper()
	store := storage.NewMemoryStorage()
	msg, _ := models.NewMessage("source", "u", "c", nil)
	if _, err := store.SaveMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	for _, content := range contents {
		entry, err := models.NewKnowledgeEntry(content, msg.ID, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.SaveKnowledge(context.Background(), entry); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestKnowledgeRepository_Backfill(t *testing.T) {
	store := seededStore(t, "Rotate the JWT signing keys", "Kafka consumer lag alerts")
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	repo := NewKnowledgeRepository(store, idx, zap.NewNop())
	defer repo.Close()

	n, err := repo.Backfill(context.Background())
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 2 {
		t.Errorf("backfilled %d entries, want 2", n)
	}
	count, err := idx.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("index holds %d documents, want 2", count)
	}

	// Stemmed lookups only work through the index.
	got, err := repo.SearchKnowledge(context.Background(), "rotating", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("SearchKnowledge(rotating) = %d entries, want 1", len(got))
	}

	// A second run replaces documents instead of duplicating them.
	if _, err := repo.Backfill(context.Background()); err != nil {
		t.Fatal(err)
	}
	if count, _ := idx.Count(); count != 2 {
		t.Errorf("index holds %d documents after second backfill, want 2", count)
	}
}

func TestKnowledgeRepository_UnindexedEntriesStayVisible(t *testing.T) {
	store := seededStore(t, "Kafka consumer lag alerts", "JWT signing keys")
	idx, err := OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	repo := NewKnowledgeRepository(store, idx, zap.NewNop())
	defer repo.Close()

	got, err := repo.SearchKnowledge(context.Background(), "kafka", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "Kafka consumer lag alerts" {
		t.Errorf("SearchKnowledge(kafka) = %d entries, want the stored entry", len(got))
	}
}

func TestKnowledgeRepository_EmptyQueryUsesStorage(t *testing.T) {
	repo, msg := newTestRepository(t)
	addEntry(t, repo, msg, "first note")
	addEntry(t, repo, msg, "second note")

	got, err := repo.SearchKnowledge(context.Background(), "  ", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("empty query returned %d entries, want 2", len(got))
	}
}
