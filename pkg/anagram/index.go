package anagram

import (
	"slices"
)

// Signature returns the letters of word sorted in code-point order.
// Two words share a signature iff they are anagrams of each other.
func Signature(word string) string {
	runes := []rune(word)
	slices.Sort(runes)
	return string(runes)
}

// Index maps a signature to every corpus word carrying it.
// It is immutable once built and safe for concurrent readers.
type Index struct {
	groups map[string][]string
	words  int
}

// IndexBuilder accumulates corpus entries. It is not safe for concurrent use.
type IndexBuilder struct {
	sets map[string]map[string]struct{}
}

// NewIndexBuilder returns an empty builder.
func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{sets: make(map[string]map[string]struct{})}
}

// Add normalizes raw and files it under its signature. Blank entries are
// skipped. It reports whether the entry was kept.
func (b *IndexBuilder) Add(raw string) bool {
	word, ok := NormalizeEntry(raw)
	if !ok {
		return false
	}
	sig := Signature(word)
	set, exists := b.sets[sig]
	if !exists {
		set = make(map[string]struct{})
		b.sets[sig] = set
	}
	set[word] = struct{}{}
	return true
}

// Build freezes the accumulated sets into an Index. Each group is sorted so
// lookups return words in a stable order.
func (b *IndexBuilder) Build() *Index {
	idx := &Index{groups: make(map[string][]string, len(b.sets))}
	for sig, set := range b.sets {
		group := make([]string, 0, len(set))
		for w := range set {
			group = append(group, w)
		}
		slices.Sort(group)
		idx.groups[sig] = group
		idx.words += len(group)
	}
	return idx
}

// BuildIndex builds an Index from a raw corpus. A nil or empty corpus yields
// an empty index.
func BuildIndex(corpus []string) *Index {
	b := NewIndexBuilder()
	for _, raw := range corpus {
		b.Add(raw)
	}
	return b.Build()
}

// Lookup returns a copy of the words stored under sig, or nil.
func (ix *Index) Lookup(sig string) []string {
	if ix == nil {
		return nil
	}
	group, ok := ix.groups[sig]
	if !ok {
		return nil
	}
	return slices.Clone(group)
}

// Len returns the number of distinct words in the index.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return ix.words
}

// Groups returns the number of distinct signatures.
func (ix *Index) Groups() int {
	if ix == nil {
		return 0
	}
	return len(ix.groups)
}
