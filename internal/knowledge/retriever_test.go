package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/yildizm/go-logparser"

	"github.com/yildizm/diagd/internal/classify"
)

func classified(component, message string, severity classify.Severity, ts time.Time) *classify.Entry {
	return &classify.Entry{
		LogEntry: logparser.LogEntry{
			Timestamp: ts,
			Level:     severity.String(),
			Message:   message,
		},
		Severity:     severity,
		Component:    component,
		HasTimestamp: !ts.IsZero(),
	}
}

func TestBuildContext(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []*classify.Entry{
		classified("AMSP", "AMSP engine crash detected", classify.SeverityCritical, base.Add(time.Minute)),
		classified("Firewall", "connection refused by manager", classify.SeverityError, base),
		classified("unknown", "something noted", classify.SeverityInfo, base),
	}

	logCtx := BuildContext(entries)

	if !logCtx.HasCritical {
		t.Error("Expected HasCritical with a critical entry present")
	}
	if len(logCtx.Components) != 2 {
		t.Errorf("Expected 2 components (unknown excluded), got %v", logCtx.Components)
	}
	if len(logCtx.MainIssues) != 3 {
		t.Fatalf("Expected 3 main issues, got %d", len(logCtx.MainIssues))
	}
	// Most severe first.
	if logCtx.MainIssues[0].Severity != classify.SeverityCritical {
		t.Errorf("Expected critical first, got %s", logCtx.MainIssues[0].Severity)
	}

	found := false
	for _, category := range logCtx.ErrorCategories {
		if category == "crash" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected crash category, got %v", logCtx.ErrorCategories)
	}
}

func TestBuildContextMainIssueCap(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var entries []*classify.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, classified("DSA", "heartbeat failed", classify.SeverityError, base.Add(time.Duration(i)*time.Second)))
	}

	logCtx := BuildContext(entries)
	if len(logCtx.MainIssues) != MainIssueCap {
		t.Errorf("Expected main issues capped at %d, got %d", MainIssueCap, len(logCtx.MainIssues))
	}
	// Ties broken by earliest timestamp.
	if !logCtx.MainIssues[0].Timestamp.Equal(base) {
		t.Errorf("Expected earliest entry first, got %v", logCtx.MainIssues[0].Timestamp)
	}
}

func TestGenerateQueriesEmergencyFirst(t *testing.T) {
	logCtx := &LogContext{
		Components:      []string{"AMSP"},
		ErrorCategories: []string{"crash"},
		HasCritical:     true,
		TotalEntries:    4,
	}

	queries := GenerateQueries(logCtx)
	if len(queries) == 0 {
		t.Fatal("Expected queries")
	}
	if queries[0].Priority != PriorityEmergency {
		t.Errorf("Expected emergency query first, got priority %d", queries[0].Priority)
	}
	if len(queries) > QueryCap {
		t.Errorf("Query cap exceeded: %d", len(queries))
	}
}

type failingStore struct{}

func (failingStore) Search(ctx context.Context, query, component string, maxResults int) ([]*Item, error) {
	return nil, ErrStoreUnavailable
}

func TestRetrieveDegradesWhenStoreUnavailable(t *testing.T) {
	retriever := NewRetriever(failingStore{}, RetrieverOptions{})
	logCtx := &LogContext{
		Components:   []string{"AMSP"},
		HasCritical:  true,
		TotalEntries: 1,
	}

	items, unavailable := retriever.Retrieve(context.Background(), logCtx, nil)
	if len(items) != 0 {
		t.Errorf("Expected empty items, got %d", len(items))
	}
	if !unavailable {
		t.Error("Expected unavailable flag when every query fails")
	}
}

func TestRetrieveNilStore(t *testing.T) {
	retriever := NewRetriever(nil, RetrieverOptions{})
	items, unavailable := retriever.Retrieve(context.Background(), &LogContext{TotalEntries: 1}, nil)
	if len(items) != 0 || !unavailable {
		t.Errorf("Nil store must behave as unavailable, got %d items, flag %v", len(items), unavailable)
	}
}

func TestRetrieveDeduplicatesAndReranks(t *testing.T) {
	store := NewMemoryStore()
	store.Add(&Document{
		ID:    "amsp-guide.md",
		Title: "AMSP Troubleshooting",
		Sections: []*Section{
			{Heading: "Engine crash recovery", Content: "When the AMSP engine crashes, collect the crash dump and restart the service."},
			{Heading: "Pattern updates", Content: "Pattern update failures usually indicate relay connectivity problems."},
		},
	})
	store.Add(&Document{
		ID:    "firewall.md",
		Title: "Firewall Reference",
		Sections: []*Section{
			{Heading: "Rule compilation", Content: "Firewall rule compilation errors appear after policy changes."},
		},
	})

	logCtx := &LogContext{
		Components:      []string{"AMSP"},
		ErrorCategories: []string{"crash"},
		HasCritical:     true,
		TotalEntries:    2,
	}

	retriever := NewRetriever(store, RetrieverOptions{MaxItems: 5})
	items, unavailable := retriever.Retrieve(context.Background(), logCtx, nil)
	if unavailable {
		t.Fatal("Store is reachable, flag must be false")
	}
	if len(items) == 0 {
		t.Fatal("Expected retrieved items")
	}

	seen := make(map[string]bool)
	for _, item := range items {
		key := item.Source + "#" + item.Section
		if seen[key] {
			t.Errorf("Duplicate item in merged results: %s", key)
		}
		seen[key] = true
	}

	for i := 1; i < len(items); i++ {
		if items[i-1].Score < items[i].Score {
			t.Errorf("Items not ranked highest first at %d", i)
		}
	}
}

func TestParseDocumentSections(t *testing.T) {
	content := "# AMSP Guide\n\nIntro text.\n\n## Crash recovery\n\nRestart the service.\n\n## Updates\n\nCheck the relay.\n"
	doc := ParseDocument("guide.md", content)

	if doc.Title != "AMSP Guide" {
		t.Errorf("Expected title from level-1 heading, got %q", doc.Title)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[1].Heading != "Crash recovery" {
		t.Errorf("Unexpected section heading: %q", doc.Sections[1].Heading)
	}
}

func TestMemoryStoreSearch(t *testing.T) {
	store := NewMemoryStore()
	store.Add(ParseDocument("amsp.md", "# AMSP\n## Crash recovery\nEngine crash recovery steps.\n## Unrelated\nNothing here.\n"))

	items, err := store.Search(context.Background(), "AMSP crash recovery", "", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("Expected search results")
	}
	if items[0].Section != "Crash recovery" {
		t.Errorf("Expected best section first, got %q", items[0].Section)
	}
	if items[0].Score <= 0 || items[0].Score > 1 {
		t.Errorf("Score outside (0,1]: %f", items[0].Score)
	}
}

func TestMemoryStoreSearchOrdering(t *testing.T) {
	store := NewMemoryStore()
	// Two documents with identically-scoring sections force the tiebreak.
	store.Add(&Document{
		ID:    "b-doc.md",
		Title: "B Doc",
		Sections: []*Section{
			{Heading: "relay sync", Content: "relay sync steps"},
		},
	})
	store.Add(&Document{
		ID:    "a-doc.md",
		Title: "A Doc",
		Sections: []*Section{
			{Heading: "relay sync", Content: "relay sync steps"},
			{Heading: "other", Content: "relay mentioned once among much other unrelated text padding"},
		},
	})

	items, err := store.Search(context.Background(), "relay sync", "", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) < 3 {
		t.Fatalf("Expected 3 results, got %d", len(items))
	}

	for i := 1; i < len(items); i++ {
		if items[i-1].Score < items[i].Score {
			t.Errorf("Results not sorted by score descending at %d", i)
		}
	}
	// Equal scores order by source then section.
	if items[0].Source != "a-doc.md" || items[1].Source != "b-doc.md" {
		t.Errorf("Tiebreak order wrong: %s, %s", items[0].Source, items[1].Source)
	}
}
