package game

// charSet is an insertion-ordered set of runes. The zero value is empty and
// ready to use.
type charSet struct {
	items []rune
	index map[rune]struct{}
}

func newCharSet(strs []string) charSet {
	var s charSet
	for _, str := range strs {
		for _, r := range str {
			s.Add(r)
		}
	}
	return s
}

// Add inserts r and reports whether it was new.
func (s *charSet) Add(r rune) bool {
	if s.index == nil {
		s.index = make(map[rune]struct{})
	}
	if _, ok := s.index[r]; ok {
		return false
	}
	s.index[r] = struct{}{}
	s.items = append(s.items, r)
	return true
}

func (s *charSet) Has(r rune) bool {
	_, ok := s.index[r]
	return ok
}

func (s *charSet) Len() int { return len(s.items) }

// Strings returns the members as one-character strings, in insertion order.
func (s *charSet) Strings() []string {
	out := make([]string, len(s.items))
	for i, r := range s.items {
		out[i] = string(r)
	}
	return out
}

func runeStrings(rs []rune) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
