package imghost

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxNameLength is the base length limit used when none is configured.
const DefaultMaxNameLength = 120

var (
	unsafeBaseRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	unsafeExtChar = regexp.MustCompile(`[^a-z0-9]+`)
	dotRun        = regexp.MustCompile(`\.{2,}`)
)

// NormalizeFilename turns an arbitrary user supplied filename into a
// storage and URL safe name of the form base[.ext].
//
// Both parts are NFKD decomposed and stripped of anything that is not ASCII,
// so diacritics disappear and untransliterable characters are dropped.
// The base keeps [a-z0-9._-] (runs of anything else become a single "-"),
// never holds "..", is trimmed of leading and trailing "-", "." and "_", and
// is cut to maxLen.
// An empty base becomes "file". The extension keeps only [a-z0-9]; when
// nothing is left the dot is omitted.
//
// The function is pure and total. A non-positive maxLen means DefaultMaxNameLength.
func NormalizeFilename(raw string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxNameLength
	}

	base, ext := splitExt(raw)

	base = unsafeBaseRun.ReplaceAllString(toASCII(base), "-")
	base = dotRun.ReplaceAllString(base, ".")
	base = strings.ToLower(strings.Trim(base, "-._"))
	if len(base) > maxLen {
		base = strings.Trim(base[:maxLen], "-._")
	}
	if base == "" {
		base = "file"
	}

	ext = unsafeExtChar.ReplaceAllString(strings.ToLower(toASCII(ext)), "")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// splitExt splits name at its last dot. Leading dots never start an
// extension, so ".env" has no extension.
func splitExt(name string) (string, string) {
	lead := len(name) - len(strings.TrimLeft(name, "."))
	i := strings.LastIndexByte(name, '.')
	if i < lead {
		return name, ""
	}
	return name[:i], name[i+1:]
}

func toASCII(s string) string {
	s = norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	return b.String()
}
