package records

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeField maps the field spellings found in fixtures and sheet
// headers onto one canonical key: "amount_c", "Amount" and "amount" all
// become "amount", "account_id_c" and "accountId" become "accountid".
func NormalizeField(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimSuffix(name, "_c")
	return strings.ReplaceAll(name, "_", "")
}

// NormalizeKeys returns a copy of raw with every key normalized. When two
// spellings of the same field are present, the bare one wins.
func NormalizeKeys(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		key := NormalizeField(k)
		if _, exists := out[key]; exists && strings.HasSuffix(strings.ToLower(k), "_c") {
			continue
		}
		out[key] = v
	}
	return out
}

// DecodeRecord converts a loosely keyed object into T. JSON field matching
// is case-insensitive, so normalized keys line up with the struct tags.
func DecodeRecord[T any](raw map[string]any) (T, error) {
	var rec T
	b, err := json.Marshal(NormalizeKeys(raw))
	if err != nil {
		return rec, fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
