package store

import (
	"fmt"
	"github.com/ValentinKolb/tKV/lib/tree"
	"strings"
)

var (
	keyEscaper   = strings.NewReplacer("%", "%25", tree.Separator, "%2F")
	keyUnescaper = strings.NewReplacer("%2F", tree.Separator, "%25", "%")
)

// scopePrefix returns the path prefix of a store: the database name and, if it is not the default
// store, the store name. Both are followed by the separator.
func scopePrefix(cfg, defaults Config) string {
	prefix := cfg.Name + tree.Separator
	if cfg.StoreName != defaults.StoreName {
		prefix += cfg.StoreName + tree.Separator
	}
	return prefix
}

// normalizeKey converts a key into its string form. Non-string keys are converted with fmt and logged.
// With escape set, "%" and the separator are percent-escaped so the key maps to a single path segment.
func normalizeKey(key any, escape bool) string {
	var k string
	switch v := key.(type) {
	case string:
		k = v
	case fmt.Stringer:
		k = v.String()
		log.Warningf("%s used as a key, but it is not a string", k)
	default:
		k = fmt.Sprint(v)
		log.Warningf("%s used as a key, but it is not a string", k)
	}
	if escape {
		return keyEscaper.Replace(k)
	}
	return k
}

// KeyString returns the string form of a key as used by every store (without escaping).
// Non-string keys are converted with fmt and logged.
func KeyString(key any) string {
	return normalizeKey(key, false)
}

// unescapePath reverses the escaping of normalizeKey for a relative path found during enumeration
func unescapePath(path string) string {
	segments := strings.Split(path, tree.Separator)
	for i, s := range segments {
		segments[i] = keyUnescaper.Replace(s)
	}
	return strings.Join(segments, tree.Separator)
}

// splitPath splits a path on the separator and drops empty segments
func splitPath(path string) []string {
	parts := strings.Split(path, tree.Separator)
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
