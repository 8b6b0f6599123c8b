package target

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var urlPattern = regexp.MustCompile(`^https?://(www\.)?[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)$`)

// Normalize trims raw, adds an https:// scheme when none is present and
// checks the result against a permissive URL pattern. The boolean is false
// when the URL should be skipped.
func Normalize(raw string) (string, bool) {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, "http") {
		u = "https://" + u
	}

	if !urlPattern.MatchString(u) {
		log.Warn().Str("url", u).Msg("Invalid URL, skipping")
		return "", false
	}
	return u, true
}

const maxSheetNameLen = 100

var sheetNameReplacer = strings.NewReplacer(
	"[", "-", "]", "-", "*", "-", "?", "-", ":", "-", "/", "-", "\\", "-",
)

// SheetName derives a sheet title from a target URL, used when every URL
// gets its own sheet.
func SheetName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	name = strings.TrimPrefix(name, "www.")
	name = strings.TrimRight(name, "/")
	name = sheetNameReplacer.Replace(name)

	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	return name
}
