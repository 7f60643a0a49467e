package source

import (
	"fmt"
	"sort"
)

// Ordered returns a copy of entries sorted by ascending Rank. Entries with
// equal rank keep their input order. It fails if a name is empty or used
// twice, since contributor lists are keyed by source name.
func Ordered(entries []Entry) ([]Entry, error) {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("hierarchy: source with root %q has no name", e.Root)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("hierarchy: duplicate source name %q", e.Name)
		}
		seen[e.Name] = true
	}

	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// Ranked builds entries from (name, root) pairs, assigning ranks by
// position: the first pair is the lowest priority.
func Ranked(pairs ...[2]string) []Entry {
	out := make([]Entry, len(pairs))
	for i, p := range pairs {
		out[i] = Entry{Name: p[0], Rank: i, Root: p[1]}
	}
	return out
}
