package policy

import (
	"slices"
	"strings"
)

// Ordered set of lower-cased strings with idempotent add and remove. Not safe for concurrent use on its own; Store guards it.
type List struct {
	items []string
}

func NewList(items ...string) *List {
	l := &List{}
	for _, it := range items {
		l.Add(it)
	}
	return l
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func (l *List) Contains(v string) bool {
	return slices.Contains(l.items, normalize(v))
}

// Returns false if the value was already present (or empty).
func (l *List) Add(v string) bool {
	v = normalize(v)
	if v == "" || slices.Contains(l.items, v) {
		return false
	}
	l.items = append(l.items, v)
	return true
}

// Returns false if the value was not present.
func (l *List) Remove(v string) bool {
	v = normalize(v)
	i := slices.Index(l.items, v)
	if i < 0 {
		return false
	}
	l.items = slices.Delete(l.items, i, i+1)
	return true
}

func (l *List) Items() []string {
	return slices.Clone(l.items)
}

func (l *List) Len() int {
	return len(l.items)
}
