package timeparse

import "time"

// Result is the outcome of parsing one command.
type Result struct {
	Description string
	At          *time.Time
	Matcher     string
}

// Resolved reports whether a time phrase was found.
func (r Result) Resolved() bool { return r.At != nil }

// Parser tries its matchers in order; it holds no mutable state.
type Parser struct {
	matchers []Matcher
}

// New returns a parser using ms in order, or DefaultMatchers when ms is empty.
func New(ms ...Matcher) *Parser {
	if len(ms) == 0 {
		ms = DefaultMatchers()
	}
	return &Parser{matchers: ms}
}

var std = New()

// Parse runs the default parser.
func Parse(text string, now time.Time) Result { return std.Parse(text, now) }

// Matchers returns matcher names in priority order.
func (p *Parser) Matchers() []string {
	out := make([]string, 0, len(p.matchers))
	for _, m := range p.matchers {
		out = append(out, m.Name())
	}
	return out
}

// Parse resolves the first time phrase in text relative to now. The phrase
// is cut out of the text and the rest is cleaned into a description.
func (p *Parser) Parse(text string, now time.Time) Result {
	for _, m := range p.matchers {
		mt, ok := m.Match(text, now)
		if !ok {
			continue
		}
		at := mt.At
		return Result{
			Description: Strip(text[:mt.Start] + " " + text[mt.End:]),
			At:          &at,
			Matcher:     m.Name(),
		}
	}
	return Result{Description: Strip(text)}
}
