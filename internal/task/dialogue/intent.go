package dialogue

import (
	"strings"
	"unicode"
)

type intent int

const (
	intentNone intent = iota
	intentDelete
	intentEdit
	intentComplete
	intentCreate
)

// Checked in this order; the first list with a hit decides.
var intentKeywords = []struct {
	intent   intent
	keywords []string
}{
	{intentDelete, []string{"delete task", "remove task", "delete the task", "remove the task", "cancel task"}},
	{intentEdit, []string{"edit task", "update task", "change task", "modify task"}},
	{intentComplete, []string{"complete task", "finish task", "mark task complete", "task done", "mark as done"}},
	{intentCreate, []string{"remind", "schedule", "task", "meeting", "reminder", "create task", "add task", "set reminder"}},
}

var (
	noTimeTokens = []string{"no time", "none", "no specific"}
	keepTokens   = []string{"keep", "same", "no change"}
	cancelWords  = []string{"cancel", "stop", "never mind", "nevermind", "abort"}
)

func classify(text string) intent {
	lower := strings.ToLower(text)
	for _, group := range intentKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.intent
			}
		}
	}
	return intentNone
}

// normalize lowercases s, turns punctuation into spaces and collapses runs
// of whitespace.
func normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// hasPhrase reports whether any token occurs in s as whole words.
func hasPhrase(s string, tokens []string) bool {
	padded := " " + normalize(s) + " "
	for _, tok := range tokens {
		if strings.Contains(padded, " "+tok+" ") {
			return true
		}
	}
	return false
}

func isCancel(s string) bool {
	n := normalize(s)
	for _, w := range cancelWords {
		if n == w {
			return true
		}
	}
	return false
}
