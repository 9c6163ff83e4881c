package export

import (
	"context"
	"regexp"
	"strings"
)

// Sink writes a table somewhere and returns where it went.
type Sink interface {
	ExportRows(ctx context.Context, table Table, filenameHint string) (string, error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SafeName reduces a filename hint to letters, digits, '-' and '_'.
func SafeName(hint string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(hint), "_"), "_")
	if name == "" {
		return "export"
	}
	if len(name) > 31 {
		// spreadsheet sheet names are capped at 31 characters
		name = name[:31]
	}
	return name
}
