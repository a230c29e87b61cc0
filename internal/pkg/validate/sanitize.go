package validate

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	angleReplacer     = strings.NewReplacer("<", "", ">", "")
)

// SanitizeName neutralizes markup in a display name: tags are stripped, stray
// angle brackets removed, whitespace collapsed. The result is safe to store
// and to interpolate into HTML email templates.
func SanitizeName(name string) string {
	s := tagPattern.ReplaceAllString(name, "")
	s = angleReplacer.Replace(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
