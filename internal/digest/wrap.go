package digest

import (
	"strings"
	"unicode"
)

const tabSize = 8

// fill wraps text greedily. The first line holds at most width columns.
// Every later line starts with indent and holds at most width columns
// including it. Tabs expand to 8-column stops and other whitespace
// characters become spaces; runs of spaces inside a line are kept, and
// whitespace at a line break is dropped. A word that does not fit on a
// line of its own is split across lines.
func fill(text string, width int, indent string) string {
	return strings.Join(wrapChunks(splitChunks(expandWhitespace(text)), width, indent), "\n")
}

func expandWhitespace(text string) string {
	var b strings.Builder
	col := 0
	for _, r := range text {
		switch r {
		case '\t':
			n := tabSize - col%tabSize
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n', '\r':
			b.WriteByte(' ')
			col = 0
		case '\v', '\f':
			b.WriteByte(' ')
			col++
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

// splitChunks cuts text into alternating runs of space and non-space runes.
func splitChunks(text string) [][]rune {
	var chunks [][]rune
	var cur []rune
	for _, r := range text {
		if len(cur) > 0 && unicode.IsSpace(r) != unicode.IsSpace(cur[0]) {
			chunks = append(chunks, cur)
			cur = nil
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

func blank(chunk []rune) bool {
	return strings.TrimSpace(string(chunk)) == ""
}

func wrapChunks(chunks [][]rune, width int, indent string) []string {
	var lines []string
	for len(chunks) > 0 {
		prefix := ""
		if len(lines) > 0 {
			prefix = indent
			if blank(chunks[0]) {
				chunks = chunks[1:]
				continue
			}
		}
		avail := width - len([]rune(prefix))

		var line []rune
		var last []rune
		for len(chunks) > 0 && len(line)+len(chunks[0]) <= avail {
			line = append(line, chunks[0]...)
			last = chunks[0]
			chunks = chunks[1:]
		}

		if len(chunks) > 0 && len(chunks[0]) > avail {
			space := avail - len(line)
			if avail < 1 {
				space = 1
			}
			piece := chunks[0][:space]
			chunks[0] = chunks[0][space:]
			line = append(line, piece...)
			last = piece
		}

		if len(line) > 0 && blank(last) {
			line = line[:len(line)-len(last)]
		}
		if len(line) > 0 {
			lines = append(lines, prefix+string(line))
		}
	}
	return lines
}
