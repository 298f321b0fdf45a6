package layout

import (
	"strings"
	"unicode"
)

// Ellipsis is appended to the last visible line of truncated text.
const Ellipsis = "..."

// Wrap 按字符数贪心折行：空白折叠为单个空格，超长单词按宽度切块。
// width <= 0 时不折行，返回一行。
func Wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var (
		lines []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}
	for _, w := range words {
		word := []rune(w)
		sep := 0
		if len(cur) > 0 {
			sep = 1
		}
		if len(cur)+sep+len(word) <= width {
			if sep == 1 {
				cur = append(cur, ' ')
			}
			cur = append(cur, word...)
			continue
		}
		if len(word) <= width {
			flush()
			cur = append(cur, word...)
			continue
		}
		// 超长单词：先填满当前行剩余空间，再逐块切分
		if left := width - len(cur) - sep; len(cur) > 0 && left > 0 {
			cur = append(cur, ' ')
			cur = append(cur, word[:left]...)
			word = word[left:]
		}
		flush()
		for len(word) > width {
			lines = append(lines, string(word[:width]))
			word = word[width:]
		}
		cur = append(cur, word...)
	}
	flush()
	return lines
}

// MaxLines returns floor(available / lineHeight), or 0 for non-positive inputs.
func MaxLines(available, lineHeight int) int {
	if available <= 0 || lineHeight <= 0 {
		return 0
	}
	return available / lineHeight
}

// Truncate 将 lines 截断到 max 行；发生截断时最后一行去掉尾部空白并追加省略号。
func Truncate(lines []string, max int) ([]string, bool) {
	if max <= 0 {
		return nil, len(lines) > 0
	}
	if len(lines) <= max {
		out := make([]string, len(lines))
		copy(out, lines)
		return out, false
	}
	out := make([]string, max)
	copy(out, lines[:max])
	out[max-1] = strings.TrimRightFunc(out[max-1], unicode.IsSpace) + Ellipsis
	return out, true
}

// Flow wraps text to maxChars per line and keeps only the lines that fit in
// available pixels at lineHeight pixels per line.
func Flow(text string, maxChars, lineHeight, available int) []string {
	lines, _ := Truncate(Wrap(text, maxChars), MaxLines(available, lineHeight))
	return lines
}
