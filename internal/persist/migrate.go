// internal/persist/migrate.go
//
// Documents written before exclusions were bucketed by category carried a
// single top-level "excludedEntries" array. Those titles are moved into the
// Random bucket, since the category they were served under was never recorded.
//
// Legacy documents that carry a signature must verify over the current
// layout before they are migrated. Unsigned ones predate signatures and are
// accepted as-is, so that path carries no tamper evidence.

package persist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Zhosolune/guess-the-entry-vercel/internal/entry"
)

func migrateLegacy(keys *keyring, plain []byte, legacy json.RawMessage) (*Document, error) {
	var d Document
	if err := json.Unmarshal(plain, &d); err != nil {
		return nil, fmt.Errorf("parse legacy: %w", err)
	}
	if d.Integrity.Signature != "" {
		if err := keys.verify(&d); err != nil {
			return nil, err
		}
	}
	d.normalize()

	var titles []string
	if err := json.Unmarshal(legacy, &titles); err != nil {
		// Unreadable legacy list: nothing worth carrying over.
		titles = nil
	}
	for _, t := range titles {
		d.ExcludedByCategory[entry.Random] = appendUnique(d.ExcludedByCategory[entry.Random], strings.TrimSpace(t))
	}
	return &d, nil
}

// appendUnique appends v to list unless it is empty or already present.
func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
