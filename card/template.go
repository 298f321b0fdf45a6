package card

import (
	"github.com/ByLCY/sleuthprint/assets"
	"github.com/ByLCY/sleuthprint/dsl"
	"github.com/ByLCY/sleuthprint/fonts"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer"
)

// Box 描述图片槽位的盒子尺寸。W/H 非零时为固定像素；否则按格子尺寸推导。
type Box struct {
	W, H int
	// Inset 在未指定比例时从格子宽（高）中扣除
	Inset       int
	WidthRatio  float64
	HeightRatio float64
	// Square 让高度等于宽度
	Square bool
}

// Size resolves the box against a cell.
func (b Box) Size(cell layout.Rect) (int, int) {
	w, h := b.W, b.H
	if w == 0 {
		if b.WidthRatio > 0 {
			w = int(float64(cell.W) * b.WidthRatio)
		} else {
			w = cell.W - b.Inset
		}
	}
	if h == 0 {
		switch {
		case b.Square:
			h = w
		case b.HeightRatio > 0:
			h = int(float64(cell.H) * b.HeightRatio)
		default:
			h = cell.H - b.Inset
		}
	}
	return max(w, 0), max(h, 0)
}

// ImageSlot is one optional image block (primary image, photo or QR code).
type ImageSlot struct {
	Name     string
	Kind     layout.BlockKind
	Key      *dsl.Template
	Provider assets.Provider
	Box      Box
	Mode     layout.FitMode
	// Gap 为该块之后的间距；0 表示使用模板默认值
	Gap     int
	VCenter bool
	// SkipMissing 资源缺失时不画占位框，把空间还给正文
	SkipMissing bool
	// Placeholder 为占位框内的文字，空则按槽位生成
	Placeholder string
}

// Overlay 把二维码叠加在某个图片槽位的中心，不推进游标。
type Overlay struct {
	Over     string
	Key      *dsl.Template
	Provider assets.Provider
	Ratio    float64
}

// Template 是一类卡片的完整版式，所有尺寸均为像素。
type Template struct {
	Title      string
	TitleField string
	TitleStyle renderer.TextStyle
	TitleTop   int

	Separator      bool
	SeparatorInset int
	SeparatorWidth int
	SeparatorColor layout.Color

	Images  []ImageSlot
	Overlay *Overlay

	// BodyFields 按顺序取第一个非空字段作为正文
	BodyFields   []string
	BodyStyle    renderer.TextStyle
	WrapWidth    int
	LineHeight   int
	BottomMargin int

	AttributionField  string
	AttributionFormat string
	AttributionStyle  renderer.TextStyle
	// AttributionOffset 为署名行顶部到格子底边的距离
	AttributionOffset int

	Border      bool
	BorderColor layout.Color
	BorderWidth int

	Gap              int
	PlaceholderStyle renderer.TextStyle
	PlaceholderFill  layout.Color
	PlaceholderLine  layout.Color
}

var ink = layout.Color{R: 0x1a, G: 0x1a, B: 0x1a}

// DefaultTemplate returns the 72-dpi character-card layout.
func DefaultTemplate() Template {
	return Template{
		Title:             "CARD",
		TitleStyle:        renderer.TextStyle{Role: fonts.RoleTitle, Size: 32, Color: ink},
		TitleTop:          10,
		SeparatorInset:    20,
		SeparatorWidth:    1,
		SeparatorColor:    layout.Color{R: 0x8b, G: 0x73, B: 0x55},
		BodyStyle:         renderer.TextStyle{Role: fonts.RoleBody, Size: 14, Color: ink},
		WrapWidth:         20,
		LineHeight:        16,
		BottomMargin:      30,
		AttributionFormat: "— %s —",
		AttributionStyle:  renderer.TextStyle{Role: fonts.RoleLabel, Size: 10, Color: ink},
		AttributionOffset: 24,
		Border:            true,
		BorderColor:       layout.Color{R: 0x8b, G: 0x73, B: 0x55},
		BorderWidth:       2,
		Gap:               8,
		PlaceholderStyle:  renderer.TextStyle{Role: fonts.RoleLabel, Size: 10, Color: layout.Color{R: 0x66, G: 0x66, B: 0x66}},
		PlaceholderFill:   layout.Color{R: 0xf0, G: 0xf0, B: 0xf0},
		PlaceholderLine:   ink,
	}
}

// Standard boxes used by card layouts.
var (
	ImageBox = Box{Inset: 20, HeightRatio: 0.4}
	PhotoBox = Box{Inset: 40, HeightRatio: 0.25}
	QRBox    = Box{WidthRatio: 0.6, Square: true}
)
