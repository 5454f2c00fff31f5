package engine

import "strings"

// joinComment appends file comment lines to the operator comment, one per
// line. Empty parts are skipped.
func joinComment(comment string, fileLines []string) string {
	parts := make([]string, 0, len(fileLines)+1)
	if c := strings.TrimSpace(comment); c != "" {
		parts = append(parts, c)
	}
	for _, line := range fileLines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n")
}
