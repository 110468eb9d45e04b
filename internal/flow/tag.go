package flow

import "strings"

// Tag identifies a variant of a closed action set.
//
// Tags are slash-separated paths. A parent path names a group of variants:
// "form" is the group of "form/email" and "form/password".
type Tag string

// Action is implemented by every variant of a closed action set.
type Action interface {
	Tag() Tag
}

// Is reports whether t equals group or is a descendant of it.
func (t Tag) Is(group Tag) bool {
	if t == "" || group == "" {
		return false
	}
	if t == group {
		return true
	}
	return strings.HasPrefix(string(t), string(group)+"/")
}

// Valid reports whether t is non-empty and has no empty path segments.
func (t Tag) Valid() bool {
	if t == "" {
		return false
	}
	for _, seg := range strings.Split(string(t), "/") {
		if seg == "" {
			return false
		}
	}
	return true
}

// matchAny reports whether t matches at least one group.
func (t Tag) matchAny(groups []Tag) bool {
	for _, g := range groups {
		if t.Is(g) {
			return true
		}
	}
	return false
}
