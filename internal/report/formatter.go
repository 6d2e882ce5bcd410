package report

import "fmt"

// Formatter defines the interface for output formatting
type Formatter interface {
	Format(r *Report) ([]byte, error)
}

// New creates a formatter for the named output format.
func New(format string, color bool) (Formatter, error) {
	switch format {
	case "json":
		return NewJSON(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	case "terminal", "text", "":
		return NewTerminal(color), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}
