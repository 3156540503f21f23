package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// StringSet is an insertion-ordered set of strings persisted as a JSON array.
type StringSet []string

// Contains reports whether v is a member.
func (s StringSet) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// Add returns the set with v appended when it is not already present.
func (s StringSet) Add(v string) StringSet {
	if s.Contains(v) {
		return s
	}
	return append(s, v)
}

// Remove returns a copy of the set without v.
func (s StringSet) Remove(v string) StringSet {
	out := make(StringSet, 0, len(s))
	for _, item := range s {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

// Toggle adds v when absent and removes it when present. The returned bool is
// true when v is a member after the call.
func (s StringSet) Toggle(v string) (StringSet, bool) {
	if s.Contains(v) {
		return s.Remove(v), false
	}
	return s.Add(v), true
}

// NewStringSet builds a set from values, dropping duplicates.
func NewStringSet(values ...string) StringSet {
	out := make(StringSet, 0, len(values))
	for _, v := range values {
		out = out.Add(v)
	}
	return out
}

// MarshalJSON encodes a nil set as an empty array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// NewID returns a random identifier carrying a short type prefix, e.g. "u_…".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
