// assets/embed.go
//
// Files compiled into the binary so the server runs with no external data.

package assets

import "embed"

//go:embed fallback_entries.yaml
var FS embed.FS

// FallbackEntries returns the built-in fallback entry table (YAML).
func FallbackEntries() ([]byte, error) {
	return FS.ReadFile("fallback_entries.yaml")
}
