package store

import "strings"

// CanonicalObjectID strips the version-series suffix some stores append to
// object ids ("abc123;1.0" -> "abc123") so ids compare stably across versions.
func CanonicalObjectID(id string) string {
	if i := strings.IndexByte(id, ';'); i >= 0 {
		return id[:i]
	}
	return id
}
