package loader

import (
	"path"
	"strings"
)

// Candidates returns src followed by src with its extension replaced by each
// fallback extension. Query strings and fragments are kept.
func Candidates(src string, fallback []string) []string {
	out := make([]string, 0, 1+len(fallback))
	out = append(out, src)
	if len(fallback) == 0 {
		return out
	}
	base, suffix := splitSuffix(src)
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, ext := range fallback {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		out = append(out, stem+"."+ext+suffix)
	}
	return out
}

// Resolve picks the first candidate whose extension probe accepts. With no
// acceptable candidate, or a nil probe, src is returned unchanged.
func Resolve(src string, fallback []string, probe Probe) string {
	if probe == nil {
		return src
	}
	for _, c := range Candidates(src, fallback) {
		if ext := Ext(c); ext != "" && probe(ext) {
			return c
		}
	}
	return src
}

// Ext returns the lower-cased extension of a path or URL without the dot,
// ignoring any query or fragment.
func Ext(src string) string {
	base, _ := splitSuffix(src)
	ext := path.Ext(base)
	if ext == "" || strings.Contains(ext, "/") {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// splitSuffix splits src before its first '?' or '#'.
func splitSuffix(src string) (base, suffix string) {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		return src[:i], src[i:]
	}
	return src, ""
}
