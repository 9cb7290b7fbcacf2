package preprocess

import "sort"

// EncodingMap is a bijection between the distinct values of a categorical column
// and 0..M-1. Values are ordered lexicographically, so the map is deterministic
// for a given set of values.
type EncodingMap struct {
	Classes []string
	index   map[string]int
}

// FitEncoding builds an EncodingMap over values.
func FitEncoding(values []string) EncodingMap {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	classes := make([]string, 0, len(set))
	for v := range set {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return EncodingMap{Classes: classes, index: index}
}

// Encode returns the integer for v. Unseen values report false.
func (e EncodingMap) Encode(v string) (int, bool) {
	i, ok := e.index[v]
	return i, ok
}

// Decode returns the original value for code i.
func (e EncodingMap) Decode(i int) (string, bool) {
	if i < 0 || i >= len(e.Classes) {
		return "", false
	}
	return e.Classes[i], true
}

// Len is the number of classes.
func (e EncodingMap) Len() int { return len(e.Classes) }
