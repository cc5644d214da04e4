package router

import (
	"html"
	"strings"
)

// helpText renders the command list for ParseMode=HTML.
func (r *Router) helpText() string {
	lines := []string{"📚 <b>Commands</b>", ""}
	for _, c := range r.Commands() {
		usage := c.Usage
		if usage == "" {
			usage = "/" + c.Name
		}
		line := "<code>" + html.EscapeString(usage) + "</code>"
		if c.Description != "" {
			line += " - " + html.EscapeString(c.Description)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "",
		"Anything else is read as a task request, for example",
		"<i>remind me to pay rent tomorrow at 9</i>.")
	return strings.Join(lines, "\n")
}

// MenuCommands lists commands for the Telegram menu.
func (r *Router) MenuCommands() []MenuEntry {
	cmds := r.Commands()
	out := make([]MenuEntry, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, MenuEntry{Command: c.Name, Description: c.Description})
	}
	return out
}

type MenuEntry struct {
	Command     string
	Description string
}
