package imghost_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/imghost"
)

func TestNormalizeFilename(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		maxLen int
		want   string
	}{
		{name: "diacritics and punctuation", raw: "Špéciål Name!!.PNG", want: "special-name.png"},
		{name: "spaces and parens", raw: "My Photo (1).JPEG", want: "my-photo-1.jpeg"},
		{name: "already clean", raw: "cat.jpg", want: "cat.jpg"},
		{name: "no extension", raw: "noext", want: "noext"},
		{name: "trailing dot", raw: "trailing.", want: "trailing"},
		{name: "inner dots kept", raw: "photo.tar.gz", want: "photo.tar.gz"},
		{name: "dot runs collapse", raw: "a..b.png", want: "a.b.png"},
		{name: "empty", raw: "", want: "file"},
		{name: "only unicode base", raw: "日本語.jpg", want: "file.jpg"},
		{name: "only punctuation", raw: "!!!", want: "file"},
		{name: "leading dot is not an extension", raw: ".env", want: "env"},
		{name: "extension loses junk", raw: "a.p-n g", want: "a.png"},
		{name: "extension of nothing", raw: "a.日本", want: "a"},
		{name: "separators collapse", raw: "a  /  b\\c", want: "a-b-c"},
		{name: "truncates base only", raw: strings.Repeat("a", 10) + ".png", maxLen: 4, want: "aaaa.png"},
		{name: "truncation trims separators", raw: "abc-def.png", maxLen: 4, want: "abc.png"},
		{name: "default limit", raw: strings.Repeat("b", 300) + ".gif", want: strings.Repeat("b", imghost.DefaultMaxNameLength) + ".gif"},
		{name: "fullwidth compatibility forms", raw: "ＡＢＣ.ＪＰＧ", want: "abc.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imghost.NormalizeFilename(tt.raw, tt.maxLen))
		})
	}
}

func TestNormalizeFilename_Properties(t *testing.T) {
	safe := regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?(\.[a-z0-9]+)?$`)

	inputs := []string{
		"Špéciål Name!!.PNG",
		"../../etc/passwd",
		"..",
		"...hidden...",
		"-_-.-_-",
		"CON",
		"a\x00b.png",
		"résumé final v2.PDF",
		"emoji 😀 party.webp",
		strings.Repeat("ü", 500) + ".jpg",
		"x." + strings.Repeat("y", 50),
		"photo.tar.",
		"%2e%2e%2fsecret",
		"",
	}

	for _, raw := range inputs {
		once := imghost.NormalizeFilename(raw, 0)

		assert.Regexp(t, safe, once, "input %q", raw)
		assert.NotContains(t, once, "/", "input %q", raw)
		assert.NotContains(t, once, "..", "input %q", raw)
		assert.Equal(t, once, imghost.NormalizeFilename(once, 0), "not idempotent for %q", raw)
	}
}
