package digest

import (
	"strings"

	"bulletbot/internal/store"
)

const (
	// Width is the column limit of a rendered bullet line.
	Width = 80

	bulletPrefix = "  - "
)

var continuation = strings.Repeat(" ", len(bulletPrefix))

// RenderDigest formats collected notes as plain text: a "[name]" header
// per user followed by one wrapped "  - body" line per note. Sections are
// separated by a blank line and the result carries no surrounding
// whitespace. Nothing collected renders as "".
func RenderDigest(collected []store.UserNotes) string {
	var lines []string
	for _, un := range collected {
		lines = append(lines, "", "["+un.Name+"]")
		for _, n := range un.Notes {
			lines = append(lines, formatBullet(n.Body))
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// formatBullet renders "  - body". The body fills Width-4 columns: the
// first line follows the marker, continuation lines are indented by 4 and
// count the indent against the same limit.
func formatBullet(body string) string {
	return bulletPrefix + fill(body, Width-len(bulletPrefix), continuation)
}
