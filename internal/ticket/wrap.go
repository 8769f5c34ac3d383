package ticket

import (
	"strings"
	"unicode/utf8"
)

// WrapWords packs whitespace-delimited words greedily into lines of at most
// width runes. A word longer than width is placed alone on its own line and is
// never split. An empty or blank input yields exactly one empty line.
func WrapWords(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := make([]string, 0, 1+len(text)/max(width, 1))
	var current strings.Builder
	currentLen := 0
	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if currentLen == 0 {
			current.WriteString(word)
			currentLen = wordLen
			continue
		}
		if currentLen+1+wordLen <= width {
			current.WriteByte(' ')
			current.WriteString(word)
			currentLen += 1 + wordLen
			continue
		}
		lines = append(lines, current.String())
		current.Reset()
		current.WriteString(word)
		currentLen = wordLen
	}
	return append(lines, current.String())
}
