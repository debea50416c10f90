package anagram

// CommonSet is the high-frequency vocabulary used to tag candidates.
// The zero value is an empty set.
type CommonSet struct {
	words map[string]struct{}
}

// NewCommonSet normalizes words into a set. Blank entries are dropped.
func NewCommonSet(words []string) CommonSet {
	set := make(map[string]struct{}, len(words))
	for _, raw := range words {
		if w, ok := NormalizeEntry(raw); ok {
			set[w] = struct{}{}
		}
	}
	return CommonSet{words: set}
}

// IsCommon reports exact membership of word.
func (s CommonSet) IsCommon(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of words in the set.
func (s CommonSet) Len() int { return len(s.words) }
