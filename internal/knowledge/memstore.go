package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Document is a reference document held by the in-memory store.
type Document struct {
	ID       string
	Title    string
	Path     string
	Sections []*Section
}

// Section is one heading-delimited chunk of a document.
type Section struct {
	Heading string
	Content string
}

// MemoryStore is a term-overlap scoring Store for reference documents.
// It exists so the pipeline runs end to end without an external index; any
// other Store implementation can be swapped in at the boundary.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

// Add inserts or replaces a document.
func (ms *MemoryStore) Add(doc *Document) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.docs[doc.ID] = doc
}

// Remove deletes a document by ID.
func (ms *MemoryStore) Remove(id string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.docs, id)
}

// Len returns the number of stored documents.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.docs)
}

// Search scores every section against the query terms and returns the
// best maxResults items. Scores are term-overlap ratios in [0,1], with a
// small boost for heading matches.
func (ms *MemoryStore) Search(ctx context.Context, query, component string, maxResults int) ([]*Item, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	terms := queryTerms(query, component)
	if len(terms) == 0 {
		return []*Item{}, nil
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var items []*Item
	for _, doc := range ms.docs {
		for _, section := range doc.Sections {
			score := scoreSection(section, terms)
			if score <= 0 {
				continue
			}
			items = append(items, &Item{
				Title:   doc.Title,
				Section: section.Heading,
				Score:   score,
				Source:  doc.ID,
				Excerpt: excerpt(section.Content, 240),
			})
		}
	}

	sortItems(items)
	if maxResults > 0 && len(items) > maxResults {
		items = items[:maxResults]
	}
	return items, nil
}

func queryTerms(query, component string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, field := range strings.Fields(strings.ToLower(query + " " + component)) {
		if len(field) < 3 || seen[field] {
			continue
		}
		seen[field] = true
		terms = append(terms, field)
	}
	return terms
}

func scoreSection(section *Section, terms []string) float64 {
	content := strings.ToLower(section.Content)
	heading := strings.ToLower(section.Heading)

	matched := 0.0
	for _, term := range terms {
		switch {
		case strings.Contains(heading, term):
			matched += 1.2
		case strings.Contains(content, term):
			matched++
		}
	}

	score := matched / float64(len(terms))
	if score > 1 {
		score = 1
	}
	return score
}

func excerpt(content string, limit int) string {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) <= limit {
		return trimmed
	}
	cut := trimmed[:limit]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func sortItems(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Source+items[i].Section < items[j].Source+items[j].Section
	})
}
