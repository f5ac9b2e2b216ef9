package faces

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// WrapLines splits text into lines no wider than maxWidth when drawn with face.
// Lines break after the last space that fits, or between runes when the line
// has no space (CJK text). A single rune wider than maxWidth gets its own line.
// "\n" always breaks. The result depends only on the text, the face metrics and
// maxWidth.
func WrapLines(face font.Face, text string, maxWidth fixed.Int26_6) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(face, []rune(para), maxWidth)...)
	}
	return lines
}

func wrapParagraph(face font.Face, runes []rune, maxWidth fixed.Int26_6) []string {
	if len(runes) == 0 {
		return []string{""}
	}

	var lines []string
	start := 0
	lastSpace := -1
	for i := 0; i < len(runes); i++ {
		if runes[i] == ' ' {
			lastSpace = i
		}
		if i == start || font.MeasureString(face, string(runes[start:i+1])) <= maxWidth {
			continue
		}

		if lastSpace > start {
			lines = append(lines, strings.TrimRight(string(runes[start:lastSpace]), " "))
			start = lastSpace + 1
		} else {
			lines = append(lines, string(runes[start:i]))
			start = i
		}
		lastSpace = -1
		i = start - 1
	}
	return append(lines, string(runes[start:]))
}
