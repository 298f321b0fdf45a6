package card

import (
	"image"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/assets"
	"github.com/ByLCY/sleuthprint/binding"
	"github.com/ByLCY/sleuthprint/dsl"
	"github.com/ByLCY/sleuthprint/fonts"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer"
)

// SectionTemplate 描述分节参考页：深色标题带加一排带标签的二维码。
type SectionTemplate struct {
	NameField    string
	EntriesField string
	// EntryKey 以条目字段（先查 entry，再查所在分节）展开为二维码的键
	EntryKey   *dsl.Template
	LabelField string
	MaxEntries int
	Provider   assets.Provider

	HeaderHeight int
	HeaderFill   layout.Color
	HeaderStyle  renderer.TextStyle
	HeaderPad    int

	QRSize   int
	QRBorder int
	// LabelRoom 为二维码下方标签区高度，Padding 为分节底部留白
	LabelRoom int
	Padding   int

	LabelStyle renderer.TextStyle
	LabelGap   int

	PlaceholderStyle renderer.TextStyle
	PlaceholderFill  layout.Color
	Ink              layout.Color
}

// DefaultSectionTemplate returns the clue reference sheet layout at 150 dpi.
func DefaultSectionTemplate() SectionTemplate {
	return SectionTemplate{
		NameField:        "name",
		EntriesField:     "examples",
		LabelField:       "label",
		MaxEntries:       2,
		HeaderHeight:     60,
		HeaderFill:       layout.Color{R: 0x2a, G: 0x2a, B: 0x2a},
		HeaderStyle:      renderer.TextStyle{Role: fonts.RoleHeader, Size: 20, Color: layout.Color{R: 0xd4, G: 0xa5, B: 0x74}},
		HeaderPad:        15,
		QRSize:           300,
		QRBorder:         2,
		LabelRoom:        80,
		Padding:          30,
		LabelStyle:       renderer.TextStyle{Role: fonts.RoleLabel, Size: 14, Color: ink},
		LabelGap:         8,
		PlaceholderStyle: renderer.TextStyle{Role: fonts.RoleLabel, Size: 14, Color: layout.Color{R: 0x66, G: 0x66, B: 0x66}},
		PlaceholderFill:  layout.Color{R: 0xf0, G: 0xf0, B: 0xf0},
		Ink:              ink,
	}
}

// Height returns the section band height: header, QR row with label room, padding.
func (t SectionTemplate) Height() int {
	return t.HeaderHeight + t.QRSize + t.LabelRoom + t.Padding
}

// SectionRenderer renders one section item per band.
type SectionRenderer struct {
	tpl    SectionTemplate
	logger *log.Logger
	upper  cases.Caser
}

func NewSection(tpl SectionTemplate, logger *log.Logger) *SectionRenderer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SectionRenderer{tpl: tpl, logger: logger, upper: cases.Upper(language.Und)}
}

// Render draws the section header and its QR row into band.
func (r *SectionRenderer) Render(s renderer.Surface, item binding.Item, index int, band layout.Rect) (plan layout.RenderPlan) {
	id := item.ID(index)
	plan = layout.RenderPlan{Index: index, Item: id, Cell: band}
	defer func() {
		if rec := recover(); rec != nil {
			err := apperr.New(apperr.CodeRenderFailed, "分节 %s 渲染时发生异常：%v", id, rec)
			plan.Err = err.Error()
			r.logger.Error("分节渲染失败", "item", id, "index", index, "err", err)
		}
	}()
	t := r.tpl

	header := layout.Rect{X: band.X, Y: band.Y, W: band.W, H: t.HeaderHeight}
	s.FillRect(header, t.HeaderFill)
	name := r.upper.String(item.First(t.NameField, "title", "id"))
	lh := s.LineHeight(t.HeaderStyle)
	s.DrawText(t.HeaderStyle, renderer.CenterText(s, t.HeaderStyle, header, name), layout.CenterY(header, lh), name)
	plan.Add(layout.Block{Kind: layout.BlockHeader, Rect: header, Consumed: t.HeaderHeight, Lines: []string{name}})
	cursor := band.Y + t.HeaderHeight + t.HeaderPad

	entries := sectionEntries(item, t.EntriesField)
	if t.MaxEntries > 0 && len(entries) > t.MaxEntries {
		entries = entries[:t.MaxEntries]
	}
	gap := layout.Distribute(band.W, t.QRSize, len(entries))
	for i, entry := range entries {
		box := layout.Rect{X: band.X + gap + i*(t.QRSize+gap), Y: cursor, W: t.QRSize, H: t.QRSize}
		r.drawEntry(s, item, entry, box, &plan)

		label := entry.First(t.LabelField, "label", "name")
		if label != "" {
			ly := box.Bottom() + t.LabelGap
			w := s.MeasureText(t.LabelStyle, label)
			x := layout.CenterX(box, w)
			s.DrawText(t.LabelStyle, x, ly, label)
			plan.Add(layout.Block{Kind: layout.BlockLabel, Rect: layout.Rect{X: x, Y: ly, W: w, H: s.LineHeight(t.LabelStyle)}, Lines: []string{label}})
		}
	}
	plan.Cursor = cursor + t.QRSize
	return plan
}

func (r *SectionRenderer) drawEntry(s renderer.Surface, section, entry binding.Item, box layout.Rect, plan *layout.RenderPlan) {
	t := r.tpl
	merged := make(binding.Item, len(section)+len(entry))
	for k, v := range section {
		merged[k] = v
	}
	for k, v := range entry {
		merged[k] = v
	}
	key, err := binding.Expand(t.EntryKey, merged)
	if err == nil && t.Provider != nil && t.EntryKey != nil {
		var img image.Image
		img, err = loadImage(t.Provider, key)
		if err == nil {
			s.DrawImage(img, box)
			s.StrokeRect(box.Inset(-t.QRBorder), t.Ink, t.QRBorder)
			plan.Add(layout.Block{Kind: layout.BlockQR, Rect: box, Consumed: box.H, Source: key})
			return
		}
	}
	if err != nil && !assets.IsNotFound(err) {
		r.logger.Warn("二维码加载失败", "item", plan.Item, "path", key, "err", err)
	} else {
		r.logger.Warn("二维码缺失", "item", plan.Item, "path", key)
	}
	drawPlaceholder(s, box, "QR Not Found", t.PlaceholderStyle, t.PlaceholderFill, t.Ink)
	plan.Add(layout.Block{Kind: layout.BlockPlaceholder, Slot: "qr", Rect: box, Consumed: box.H, Source: key, Missing: true})
}

// sectionEntries 读取分节的条目列表；字符串条目视为只有 label 的条目。
func sectionEntries(item binding.Item, field string) []binding.Item {
	raw, ok := item.Get(field)
	if !ok {
		return nil
	}
	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case []map[string]any:
		// TOML 的表数组
		for _, m := range v {
			list = append(list, m)
		}
	default:
		return nil
	}
	out := make([]binding.Item, 0, len(list))
	for _, v := range list {
		switch e := v.(type) {
		case map[string]any:
			out = append(out, binding.Item(e))
		case binding.Item:
			out = append(out, e)
		case string:
			out = append(out, binding.Item{"label": strings.TrimSpace(e)})
		}
	}
	return out
}

// SheetTitle 在第一页顶部预留带中绘制页标题与两端带圆点的装饰线。
type SheetTitle struct {
	Text      string
	Style     renderer.TextStyle
	Page      layout.PageGeometry
	LineInset int
	LineGap   int
	Color     layout.Color
}

// Band returns the height reserved for the title on every page: the title line plus the
// space below the rule.
func (t SheetTitle) Band() int {
	if t.Text == "" {
		return 0
	}
	return t.LineGap + t.LineGap*3/5
}

// Decorate draws the title on the first page only.
func (t SheetTitle) Decorate(s renderer.Surface, page int) {
	if page != 0 || t.Text == "" {
		return
	}
	top := t.Page.Margin
	w := s.MeasureText(t.Style, t.Text)
	s.DrawText(t.Style, (t.Page.Width-w)/2, top, t.Text)
	y := top + t.LineGap
	x1, x2 := t.Page.Margin+t.LineInset, t.Page.Width-t.Page.Margin-t.LineInset
	s.DrawLine(x1, y, x2, y, t.Color, 2)
	for _, x := range []int{x1, x2} {
		s.FillRect(layout.Rect{X: x - 4, Y: y - 3, W: 8, H: 6}, t.Color)
	}
}
