package action

import (
	"sort"
	"strings"
)

// Match returns the first active definition, ordered by id, that has a
// trigger keyword occurring in message. Matching is case-insensitive
// substring search. It returns nil when nothing fires.
func Match(defs []Definition, message string) *Definition {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return nil
	}
	ordered := make([]Definition, len(defs))
	copy(ordered, defs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for i := range ordered {
		d := ordered[i]
		if !d.IsActive {
			continue
		}
		if containsAny(m, d.TriggerKeywords) {
			return &d
		}
	}
	return nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Active filters defs down to the active ones, keeping order.
func Active(defs []Definition) []Definition {
	out := make([]Definition, 0, len(defs))
	for _, d := range defs {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out
}
