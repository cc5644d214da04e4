package timeparse

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// fillers are removed in this order on every pass.
var fillers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^remind me to(?:\s+|$)`),
	regexp.MustCompile(`(?i)^remind me(?:\s+|$)`),
	regexp.MustCompile(`(?i)^set (?:a )?reminder(?:\s+(?:to|for))?(?:\s+|$)`),
	regexp.MustCompile(`(?i)^(?:create|add) (?:a )?(?:new )?task(?:\s+to)?(?:\s+|$)`),
	regexp.MustCompile(`(?i)^schedule(?:\s+|$)`),
	regexp.MustCompile(`(?i)^task\s*:\s*`),
	regexp.MustCompile(`(?i)^task(?:\s+|$)`),
	regexp.MustCompile(`(?i)^reminder\s*:\s*`),
	regexp.MustCompile(`(?i)(?:^|\s+)for me$`),
	regexp.MustCompile(`(?i)(?:^|\s+)please$`),
}

var reSpaces = regexp.MustCompile(`\s+`)

const edgeJunk = " \t,;:.!?-"

// Strip removes command filler from a task description, collapses
// whitespace and capitalizes the first letter. Passes repeat until nothing
// changes, so Strip(Strip(x)) == Strip(x). Every filler consumes at least one
// character, which bounds the loop.
func Strip(text string) string {
	s := tidy(text)
	for {
		next := s
		for _, re := range fillers {
			next = tidy(re.ReplaceAllString(next, ""))
		}
		if next == s {
			break
		}
		s = next
	}
	return capitalize(s)
}

func tidy(s string) string {
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.Trim(s, edgeJunk)
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
