package broadcast

import "strings"

// SplitMessage splits text into parts of at most maxLen runes, breaking on
// line boundaries. A single line longer than maxLen is hard-split. The
// line sequence is preserved across parts.
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || len([]rune(text)) <= maxLen {
		return []string{text}
	}

	var (
		parts  []string
		cur    []string
		curLen int
	)
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, strings.Join(cur, "\n"))
			cur = nil
			curLen = 0
		}
	}
	push := func(line string, n int) {
		cur = append(cur, line)
		if len(cur) == 1 {
			curLen = n
		} else {
			curLen += 1 + n
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lr := []rune(line)
		if len(lr) > maxLen {
			flush()
			for len(lr) > maxLen {
				parts = append(parts, string(lr[:maxLen]))
				lr = lr[maxLen:]
			}
			if len(lr) > 0 {
				push(string(lr), len(lr))
			}
			continue
		}
		if curLen+1+len(lr) > maxLen && len(cur) > 0 {
			flush()
		}
		push(line, len(lr))
	}
	flush()
	return parts
}

// clipRunes truncates s to at most maxRunes runes.
func clipRunes(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}
