package disorder

import "strings"

// Separator divides a vocabulary prefix from the local code.
const Separator = ":"

// Code is a namespaced term code such as "MIM:190685".
type Code string

// String returns the code as written.
func (c Code) String() string {
	return string(c)
}

// Prefix returns the part before the first separator.
func (c Code) Prefix() string {
	prefix, _, _ := strings.Cut(string(c), Separator)
	return prefix
}

// Local returns the part after the first separator.
func (c Code) Local() string {
	_, local, _ := strings.Cut(string(c), Separator)
	return local
}

// Vocabulary returns the registered vocabulary for the prefix, if any.
func (c Code) Vocabulary() (Vocabulary, bool) {
	return LookupVocabulary(c.Prefix())
}

// Normalize turns a caller-supplied identifier into a lookup code.
//
// Identifiers that already contain a separator are returned unmodified.
// Bare integers are read as OMIM numbers and gain the "MIM:" prefix.
// Anything else is free text and reports false.
func Normalize(id string) (Code, bool) {
	if strings.Contains(id, Separator) {
		return Code(id), true
	}
	if isInteger(id) {
		return Code(string(DefaultVocabulary) + Separator + id), true
	}
	return "", false
}

// isInteger accepts an optional sign followed by one or more ASCII digits.
func isInteger(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
