// Package book 把章节 JSON 排成一本书：标题页、目录、逐章正文与结尾页。
// 正文不截断，按页面剩余高度自动换页；缺失的章节文件与图片记录警告后跳过。
package book

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/assets"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer"
)

// Chapter names one chapter file.
type Chapter struct {
	File  string `json:"file" toml:"file"`
	Title string `json:"title" toml:"title"`
}

// Entry is one dated passage in a chapter file.
type Entry struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

type chapterFile struct {
	Entries []Entry `json:"entries"`
}

// Styles groups the text styles used by the book.
type Styles struct {
	Title        renderer.TextStyle
	Subtitle     renderer.TextStyle
	Ornament     renderer.TextStyle
	ChapterNum   renderer.TextStyle
	ChapterTitle renderer.TextStyle
	EntryHeader  renderer.TextStyle
	Body         renderer.TextStyle
	Italic       renderer.TextStyle
	TOC          renderer.TextStyle
}

// Options configures a Book. Geometry is in device pixels.
type Options struct {
	Title      string
	Subtitle   string
	Tagline    string
	Date       string
	BackMatter []string
	Ornament   string

	Dir      string
	Chapters []Chapter
	Images   assets.Provider

	Width, Height    int
	MarginX, MarginY int
	DPI              float64

	Styles Styles
	// WrapWidth 大于 0 时按字符数折行，否则按像素宽度
	WrapWidth    int
	Leading      int
	ParagraphGap int
	EntryGap     int
	ImageMax     int

	Factory renderer.SurfaceFactory
	Sink    renderer.Sink
	Logger  *log.Logger
}

// Summary reports what a render produced.
type Summary struct {
	Pages         int
	Chapters      int
	Entries       int
	Skipped       []string
	MissingImages int
}

// Book lays out chapters into pages.
type Book struct {
	opts   Options
	logger *log.Logger
	upper  cases.Caser
}

func New(opts Options) (*Book, error) {
	if opts.Factory == nil || opts.Sink == nil {
		return nil, apperr.New(apperr.CodeInvalidConfig, "缺少绘制表面工厂或输出 Sink")
	}
	if opts.Width <= 2*opts.MarginX || opts.Height <= 2*opts.MarginY {
		return nil, apperr.New(apperr.CodeInvalidConfig, "书页边距 %dx%d 超出页面 %dx%d", opts.MarginX, opts.MarginY, opts.Width, opts.Height)
	}
	if opts.Ornament == "" {
		opts.Ornament = "* * *"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Book{opts: opts, logger: logger, upper: cases.Upper(language.Und)}, nil
}

// Render composes the whole book and hands every page to the sink.
func (b *Book) Render(ctx context.Context) (Summary, error) {
	c := &composer{b: b}
	var sum Summary

	c.titlePage()
	c.pageBreak()
	c.toc()

	for i, ch := range b.opts.Chapters {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("第 %d 章之前中断: %w", i+1, err)
		}
		entries, err := b.loadChapter(ch)
		if err != nil {
			b.logger.Warn("跳过章节", "file", ch.File, "err", err)
			sum.Skipped = append(sum.Skipped, ch.File)
			continue
		}
		c.pageBreak()
		c.chapter(i+1, ch.Title, entries)
		sum.Chapters++
		sum.Entries += len(entries)
		if c.err != nil {
			return sum, c.err
		}
	}

	c.pageBreak()
	c.finis()
	c.flush()
	sum.Pages = c.page
	sum.MissingImages = c.missing
	return sum, c.err
}

func (b *Book) loadChapter(ch Chapter) ([]Entry, error) {
	path := ch.File
	if !filepath.IsAbs(path) && b.opts.Dir != "" {
		path = filepath.Join(b.opts.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f chapterFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析章节 %s 失败: %w", path, err)
	}
	return f.Entries, nil
}

// composer 维护当前页与纵向游标，空间不足时换页。
type composer struct {
	b       *Book
	surface renderer.Surface
	page    int
	y       int
	missing int
	err     error
}

func (c *composer) top() int    { return c.b.opts.MarginY }
func (c *composer) bottom() int { return c.b.opts.Height - c.b.opts.MarginY }

func (c *composer) content() layout.Rect {
	o := c.b.opts
	return layout.Rect{X: o.MarginX, Y: o.MarginY, W: o.Width - 2*o.MarginX, H: o.Height - 2*o.MarginY}
}

func (c *composer) ensureSurface() {
	if c.surface == nil {
		c.surface = c.b.opts.Factory(c.b.opts.Width, c.b.opts.Height)
		c.y = c.top()
	}
}

// ensureSpace 在剩余高度放不下 h 时换页；页面顶部的超高元素照常放置。
func (c *composer) ensureSpace(h int) {
	c.ensureSurface()
	if c.y+h > c.bottom() && c.y > c.top() {
		c.pageBreak()
		c.ensureSurface()
	}
}

func (c *composer) pageBreak() {
	c.flush()
}

// flush 封页并交给 Sink；当前没有页面时不做任何事。
func (c *composer) flush() {
	if c.surface == nil || c.err != nil {
		return
	}
	img, err := c.surface.Seal()
	c.surface = nil
	if err != nil {
		c.err = apperr.Wrap(apperr.CodeRenderFailed, err, "第 %d 页栅格化失败", c.page+1)
		return
	}
	if err := c.b.opts.Sink.AddPage(renderer.Page{Index: c.page, Image: img, DPI: c.b.opts.DPI}); err != nil {
		c.err = apperr.Wrap(apperr.CodeSinkFailed, err, "写入第 %d 页失败", c.page+1)
		return
	}
	c.page++
}

func (c *composer) lineHeight(style renderer.TextStyle) int {
	if style == c.b.opts.Styles.Body || style == c.b.opts.Styles.Italic {
		if c.b.opts.Leading > 0 {
			return c.b.opts.Leading
		}
	}
	c.ensureSurface()
	return c.surface.LineHeight(style)
}

func (c *composer) wrap(style renderer.TextStyle, text string) []string {
	c.ensureSurface()
	if w := c.b.opts.WrapWidth; w > 0 {
		var lines []string
		for _, part := range strings.Split(text, "\n") {
			lines = append(lines, layout.Wrap(part, w)...)
		}
		return lines
	}
	return renderer.WrapPixels(c.surface, style, text, c.content().W)
}

// centered 绘制居中的多行文字。
func (c *composer) centered(style renderer.TextStyle, text string) {
	box := c.content()
	lh := c.lineHeight(style)
	for _, line := range c.wrap(style, text) {
		c.ensureSpace(lh)
		c.surface.DrawText(style, renderer.CenterText(c.surface, style, box, line), c.y, line)
		c.y += lh
	}
}

// paragraph 左对齐排版一段正文，跨页不截断。
func (c *composer) paragraph(style renderer.TextStyle, text string) {
	x := c.content().X
	lh := c.lineHeight(style)
	for _, line := range c.wrap(style, text) {
		c.ensureSpace(lh)
		c.surface.DrawText(style, x, c.y, line)
		c.y += lh
	}
	c.y += c.b.opts.ParagraphGap
}

func (c *composer) space(h int) {
	c.ensureSurface()
	c.y += h
}

func (c *composer) titlePage() {
	o := c.b.opts
	s := o.Styles
	c.ensureSurface()
	c.y = c.top() + c.content().H/4
	c.centered(s.Ornament, o.Ornament)
	c.space(o.ParagraphGap)
	c.centered(s.Title, o.Title)
	if o.Subtitle != "" {
		c.space(o.ParagraphGap)
		c.centered(s.Subtitle, o.Subtitle)
	}
	if o.Tagline != "" {
		c.space(3 * o.ParagraphGap)
		c.centered(s.Subtitle, o.Tagline)
	}
	c.space(3 * o.ParagraphGap)
	c.centered(s.Ornament, o.Ornament)
	if o.Date != "" {
		c.space(o.ParagraphGap)
		c.centered(s.TOC, o.Date)
	}
}

func (c *composer) toc() {
	s := c.b.opts.Styles
	c.centered(s.ChapterTitle, "Table of Contents")
	c.space(c.b.opts.ParagraphGap)
	x := c.content().X + c.b.opts.ParagraphGap
	lh := c.lineHeight(s.TOC)
	for i, ch := range c.b.opts.Chapters {
		line := fmt.Sprintf("%d. %s", i+1, ch.Title)
		c.ensureSpace(lh)
		c.surface.DrawText(s.TOC, x, c.y, line)
		c.y += lh + lh/2
	}
}

func (c *composer) chapter(num int, title string, entries []Entry) {
	o := c.b.opts
	s := o.Styles
	c.centered(s.Ornament, "*")
	c.space(o.ParagraphGap / 2)
	c.centered(s.ChapterNum, fmt.Sprintf("CHAPTER %d", num))
	c.centered(s.ChapterTitle, title)
	c.space(o.ParagraphGap)

	for i, e := range entries {
		if header := Header(e.Date, e.Location); header != "" {
			c.paragraph(s.EntryHeader, c.b.upper.String(header))
		}
		diary := IsDiary(e.Location)
		for _, tok := range ParseContent(e.Content) {
			switch tok.Kind {
			case TokenText:
				style := s.Body
				if diary || tok.Italic {
					style = s.Italic
				}
				c.paragraph(style, tok.Text)
			case TokenImage:
				c.image(tok)
			}
			if c.err != nil {
				return
			}
		}
		if i < len(entries)-1 {
			c.space(o.EntryGap)
		}
	}
}

// assetKey 去掉章节图片路径前导的 ./ 与 ../，其余部分（隐藏文件的点、绝对路径）原样保留。
func assetKey(src string) string {
	for {
		switch {
		case strings.HasPrefix(src, "./"):
			src = src[2:]
		case strings.HasPrefix(src, "../"):
			src = src[3:]
		default:
			return src
		}
	}
}

// image 等比缩放到 ImageMax 见方的盒子内并水平居中；缺失时跳过。
func (c *composer) image(tok Token) {
	o := c.b.opts
	if o.Images == nil || tok.Src == "" {
		return
	}
	img, err := o.Images.Image(assetKey(tok.Src))
	if err != nil {
		c.missing++
		c.b.logger.Warn("无法加载插图", "src", tok.Src, "err", err)
		return
	}
	w, h := c.fit(img)
	if w <= 0 || h <= 0 {
		return
	}
	c.ensureSpace(h)
	c.surface.DrawImage(img, layout.Rect{X: layout.CenterX(c.content(), w), Y: c.y, W: w, H: h})
	c.y += h + o.ParagraphGap
}

func (c *composer) fit(img image.Image) (int, int) {
	nw, nh := assets.Size(img)
	box := c.b.opts.ImageMax
	if box <= 0 {
		box = c.content().W
	}
	return layout.Fit(nw, nh, min(box, c.content().W), min(box, c.content().H), layout.FitContain)
}

func (c *composer) finis() {
	o := c.b.opts
	s := o.Styles
	c.ensureSurface()
	c.y = c.top() + c.content().H/4
	c.centered(s.Ornament, o.Ornament)
	c.space(o.ParagraphGap)
	c.centered(s.Title, "Finis")
	c.space(o.ParagraphGap)
	for _, line := range o.BackMatter {
		c.centered(s.Subtitle, line)
	}
}
