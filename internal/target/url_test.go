package target

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"bare host gets https", "example.com", "https://example.com", true},
		{"http with path and query kept", "http://example.com/path?q=1", "http://example.com/path?q=1", true},
		{"whitespace trimmed", "  https://www.example.org/  ", "https://www.example.org/", true},
		{"subdomain", "shop.example.co.uk", "https://shop.example.co.uk", true},
		{"spaces rejected", "not a url", "", false},
		{"no dot rejected", "localhost", "", false},
		{"empty rejected", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "example.com", SheetName("https://www.example.com/"))
	assert.Equal(t, "example.com-blog-post", SheetName("http://example.com/blog/post"))
	assert.Equal(t, "example.com-a-b", SheetName("example.com/a?b"))

	long := "example.com/" + strings.Repeat("x", 200)
	assert.Len(t, []rune(SheetName(long)), maxSheetNameLen)
}
