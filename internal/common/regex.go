package common

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`</?[^>]+(>|$)`)

// FirstSubmatch tries each pattern in order against text and returns the
// first capture group of the first pattern that matches.
func FirstSubmatch(text string, patterns ...*regexp.Regexp) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return m[1], true
		}
	}
	return "", false
}

// StripTags removes HTML tags from s.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// ContainsAny reports whether s contains any of the given substrings.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
