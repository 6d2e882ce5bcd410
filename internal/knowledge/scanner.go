package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScanDirectory loads every markdown file under dir into the store.
// Returns the number of documents loaded.
func ScanDirectory(store *MemoryStore, dir string) (int, error) {
	loaded := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isMarkdown(path) {
			return nil
		}
		doc, err := ScanFile(path)
		if err != nil {
			return nil // unreadable reference docs are skipped, not fatal
		}
		store.Add(doc)
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("failed to scan knowledge directory: %w", err)
	}
	return loaded, nil
}

// ScanFile parses one markdown file into a sectioned document.
func ScanFile(path string) (*Document, error) {
	// #nosec G304 - paths come from the configured knowledge directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return ParseDocument(path, string(data)), nil
}

// ParseDocument splits markdown content on headings. Content before the
// first heading becomes an untitled preamble section. The document title is
// the first level-1 heading, falling back to the filename.
func ParseDocument(path, content string) *Document {
	doc := &Document{
		ID:    filepath.Base(path),
		Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:  path,
	}

	current := &Section{}
	var body []string

	flush := func() {
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Heading != "" || current.Content != "" {
			doc.Sections = append(doc.Sections, current)
		}
		body = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if level, heading := headingOf(line); level > 0 {
			flush()
			current = &Section{Heading: heading}
			if level == 1 && doc.Title == strings.TrimSuffix(doc.ID, filepath.Ext(doc.ID)) {
				doc.Title = heading
			}
			continue
		}
		body = append(body, line)
	}
	flush()

	return doc
}

func headingOf(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed[level:])
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}
