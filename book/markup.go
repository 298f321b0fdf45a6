package book

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// TokenKind distinguishes text runs from inline images.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenImage
)

// Token 是正文标记解析后的最小单元：一段文字或一张内嵌图片。
type Token struct {
	Kind   TokenKind
	Text   string
	Italic bool
	Src    string
	Alt    string
	Width  int
	Height int
}

// ParseContent 按空行切分段落，段内按 <img> 拆成文字与图片交错的序列。
// 段落中出现 <i> 或 <em> 时整段视为斜体；<br> 转为换行，其余标签只保留文字。
func ParseContent(content string) []Token {
	var out []Token
	for _, para := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		out = append(out, parseParagraph(para)...)
	}
	return out
}

func parseParagraph(para string) []Token {
	var (
		out    []Token
		text   strings.Builder
		italic bool
	)
	flush := func() {
		s := strings.TrimSpace(text.String())
		text.Reset()
		if s != "" {
			out = append(out, Token{Kind: TokenText, Text: s})
		}
	}

	z := html.NewTokenizer(strings.NewReader(para))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// 标记损坏时退回为纯文本
				text.WriteString(string(z.Raw()))
			}
			break
		}
		switch tt {
		case html.TextToken:
			text.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "i", "em":
				italic = true
			case "br":
				text.WriteByte('\n')
			case "img":
				flush()
				out = append(out, imageToken(z, hasAttr))
			}
		}
	}
	flush()
	for i := range out {
		if out[i].Kind == TokenText {
			out[i].Italic = italic
		}
	}
	return out
}

func imageToken(z *html.Tokenizer, hasAttr bool) Token {
	tok := Token{Kind: TokenImage}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		switch string(key) {
		case "src":
			tok.Src = string(val)
		case "alt":
			tok.Alt = string(val)
		case "width":
			tok.Width, _ = strconv.Atoi(string(val))
		case "height":
			tok.Height, _ = strconv.Atoi(string(val))
		}
	}
	return tok
}

// Header joins date and location with a bullet.
func Header(date, location string) string {
	var parts []string
	for _, p := range []string{date, location} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " • ")
}

var diaryTerms = []string{"diary", "notebook", "notes"}

// IsDiary reports whether an entry location marks a diary or notebook page.
func IsDiary(location string) bool {
	l := strings.ToLower(location)
	for _, term := range diaryTerms {
		if strings.Contains(l, term) {
			return true
		}
	}
	return false
}
