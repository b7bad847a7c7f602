package ir

import "strings"

// NameClass classifies an artifact name per spec.md §3.
type NameClass int

const (
	ClassJobDocument NameClass = iota
	ClassProjectDocument
	ClassReserved
	ClassPrivate
)

// ClassifyName determines the NameClass of an artifact name.
// Reserved (contains "__") and Private (leading "_") take precedence
// over the shape checks below them, matching the syntax-stage rejection
// order in spec.md §3/§4.3. Any name containing ":" or "#" that isn't
// Reserved/Private is treated as an (attempted) Project Document; exact
// shape well-formedness ("Name:ResourceID[@Version]") is enforced by
// internal/syntax, not by classification.
func ClassifyName(name string) NameClass {
	switch {
	case strings.Contains(name, "__"):
		return ClassReserved
	case strings.HasPrefix(name, "_"):
		return ClassPrivate
	case strings.ContainsAny(name, ":#"):
		return ClassProjectDocument
	default:
		return ClassJobDocument
	}
}

// WellFormedProjectDoc reports whether name matches "Name:ResourceID[@Version]"
// with non-empty Name and ResourceID and at most one "@version" suffix.
func WellFormedProjectDoc(name string) bool {
	colon := strings.IndexByte(name, ':')
	if colon <= 0 {
		return false
	}
	rest := name[colon+1:]
	if strings.IndexByte(rest, ':') >= 0 {
		return false
	}
	at := strings.IndexByte(rest, '@')
	if at < 0 {
		return rest != ""
	}
	resourceID, version := rest[:at], rest[at+1:]
	return resourceID != "" && version != "" && strings.IndexByte(version, '@') < 0
}

// ProjectDocRef splits a Project Document name into its resource ID and
// version, defaulting a missing version to "stable" (spec.md §3).
func ProjectDocRef(name string) (docName, resourceID, version string, ok bool) {
	if ClassifyName(name) != ClassProjectDocument {
		return "", "", "", false
	}
	colon := strings.IndexByte(name, ':')
	docName = name[:colon]
	rest := name[colon+1:]
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		return docName, rest[:at], rest[at+1:], true
	}
	return docName, rest, "stable", true
}

// InputModifier is a suffix on a wiring input that changes what the
// resolver binds the name to.
type InputModifier int

const (
	ModifierNone InputModifier = iota
	ModifierHistory
	ModifierPrev
)

// SplitModifier separates an input name from a trailing "@history" or
// "@prev" modifier.
func SplitModifier(input string) (name string, mod InputModifier) {
	switch {
	case strings.HasSuffix(input, "@history"):
		return strings.TrimSuffix(input, "@history"), ModifierHistory
	case strings.HasSuffix(input, "@prev"):
		return strings.TrimSuffix(input, "@prev"), ModifierPrev
	default:
		return input, ModifierNone
	}
}
