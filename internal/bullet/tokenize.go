package bullet

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var delimRe = regexp.MustCompile(`,[ ]*|[ ]+`)

// Tokenize splits text on commas (with optional trailing spaces) or runs of
// spaces and returns the trimmed, non-empty pieces in order.
//
//	Tokenize("1, 2 test") // ["1", "2", "test"]
func Tokenize(text string) []string {
	parts := delimRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParseIndices tokenizes text and parses every token as a display position.
// It fails with ErrInvalidIndex if there are no tokens or any token is not
// an integer. Integers beyond the int range clamp to math.MaxInt or
// math.MinInt, which no list reaches.
func ParseIndices(text string) ([]int, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrInvalidIndex
	}
	out := make([]int, 0, len(tokens))
	for _, t := range tokens {
		i, err := strconv.Atoi(t)
		if errors.Is(err, strconv.ErrRange) {
			// too large for any list; it resolves as not found
			i = math.MaxInt
			if strings.HasPrefix(t, "-") {
				i = math.MinInt
			}
		} else if err != nil {
			return nil, ErrInvalidIndex
		}
		out = append(out, i)
	}
	return out, nil
}
