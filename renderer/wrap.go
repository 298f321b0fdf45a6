package renderer

import (
	"strings"
	"unicode"
)

// WrapPixels 按像素宽度贪心折行：优先在空白处断开，超宽单词在词内拆分，显式换行保留为段落边界。
// limit <= 0 时只按显式换行切分。
func WrapPixels(s Surface, style TextStyle, content string, limit int) []string {
	measure := func(t string) int { return s.MeasureText(style, t) }
	if limit <= 0 {
		return strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
	}

	var (
		lines   []string
		builder strings.Builder
	)
	emit := func(force bool) {
		line := strings.TrimRightFunc(builder.String(), unicode.IsSpace)
		if line == "" && !force {
			builder.Reset()
			return
		}
		lines = append(lines, line)
		builder.Reset()
	}
	fits := func(token string) bool { return measure(builder.String()+token) <= limit }

	for _, token := range tokenize(content) {
		if token == "\n" {
			emit(true)
			continue
		}
		isSpace := strings.TrimSpace(token) == ""
		if isSpace {
			// 行首空白丢弃
			if builder.Len() > 0 {
				builder.WriteString(" ")
			}
			continue
		}
		if fits(token) {
			builder.WriteString(token)
			continue
		}
		if builder.Len() > 0 {
			emit(false)
		}
		if measure(token) <= limit {
			builder.WriteString(token)
			continue
		}
		for _, chunk := range splitByWidth(token, limit, measure) {
			if builder.Len() > 0 {
				emit(false)
			}
			builder.WriteString(chunk)
		}
	}
	if builder.Len() > 0 {
		emit(false)
	}
	return lines
}

func tokenize(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}
	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitByWidth(token string, limit int, measure func(string) int) []string {
	var parts []string
	var cur []rune
	for _, r := range token {
		cur = append(cur, r)
		if len(cur) > 1 && measure(string(cur)) > limit {
			parts = append(parts, string(cur[:len(cur)-1]))
			cur = []rune{r}
		}
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}
