package snapshots

import "sort"

// Diff returns the keys of stored missing from live (add) and the keys of
// live missing from stored (remove), each in lexical order. Both results
// are non-nil.
func Diff[M ~map[string]V, V any](stored, live M) (add, remove []string) {
	add = []string{}
	remove = []string{}

	for name := range stored {
		if _, ok := live[name]; !ok {
			add = append(add, name)
		}
	}
	for name := range live {
		if _, ok := stored[name]; !ok {
			remove = append(remove, name)
		}
	}

	sort.Strings(add)
	sort.Strings(remove)
	return add, remove
}
