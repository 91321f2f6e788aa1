package registry

import (
	"strings"
)

// QualifiedName is a simple name plus its enclosing namespace path.
// Immutable once constructed; it is the tree storage key for an entry.
type QualifiedName struct {
	Name      string
	Namespace []string
}

// NewQualifiedName builds a qualified name from a namespace path and a
// simple name.
func NewQualifiedName(namespace []string, name string) QualifiedName {
	return QualifiedName{Name: name, Namespace: namespace}
}

// ParseQualifiedName splits a written name like "::Game::Player" into its
// namespace path and simple name. A leading "::" is stripped; the second
// return reports whether it was present (root-anchored lookup).
func ParseQualifiedName(written string) (QualifiedName, bool) {
	anchored := strings.HasPrefix(written, "::")
	trimmed := strings.TrimPrefix(written, "::")
	parts := strings.Split(trimmed, "::")
	if len(parts) == 1 {
		return QualifiedName{Name: parts[0]}, anchored
	}
	return QualifiedName{
		Name:      parts[len(parts)-1],
		Namespace: parts[:len(parts)-1],
	}, anchored
}

// IsQualified reports whether the name carries a namespace path.
func (q QualifiedName) IsQualified() bool {
	return len(q.Namespace) > 0
}

// String renders "A::B::Name".
func (q QualifiedName) String() string {
	if len(q.Namespace) == 0 {
		return q.Name
	}
	return strings.Join(q.Namespace, "::") + "::" + q.Name
}
