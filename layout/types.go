package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// 该文件定义布局结果（RenderPlan）与几何基础类型，供卡片渲染、分页与调试 JSON 共用。
// 所有坐标均为设备像素，原点在页面左上角。

// Rect is an axis-aligned pixel rectangle.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (r Rect) Right() int   { return r.X + r.W }
func (r Rect) Bottom() int  { return r.Y + r.H }
func (r Rect) CenterX() int { return r.X + r.W/2 }
func (r Rect) CenterY() int { return r.Y + r.H/2 }

// Inset shrinks r by d on every side.
func (r Rect) Inset(d int) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

var (
	Black     = Color{}
	White     = Color{R: 255, G: 255, B: 255}
	Gray      = Color{R: 128, G: 128, B: 128}
	LightGray = Color{R: 200, G: 200, B: 200}
)

// ParseColor parses #rgb, #rrggbb or #rrggbbaa (alpha ignored).
func ParseColor(value string) (Color, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(v) == 3 {
		v = strings.Repeat(v[0:1], 2) + strings.Repeat(v[1:2], 2) + strings.Repeat(v[2:3], 2)
	}
	if len(v) != 6 && len(v) != 8 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	var c [3]int
	for i := range c {
		n, err := strconv.ParseUint(v[2*i:2*i+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
		c[i] = int(n)
	}
	return Color{R: c[0], G: c[1], B: c[2]}, nil
}

// UnmarshalText accepts hex strings in JSON and TOML configs.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// BlockKind names one composed element of a card.
type BlockKind string

const (
	BlockTitle       BlockKind = "title"
	BlockSeparator   BlockKind = "separator"
	BlockImage       BlockKind = "image"
	BlockPhoto       BlockKind = "photo"
	BlockQR          BlockKind = "qr"
	BlockText        BlockKind = "text"
	BlockAttribution BlockKind = "attribution"
	BlockPlaceholder BlockKind = "placeholder"
	BlockHeader      BlockKind = "header"
	BlockLabel       BlockKind = "label"
	BlockBorder      BlockKind = "border"
)

// Block 记录单个元素的位置与占用高度；Lines 仅对文本类块有效。
type Block struct {
	Kind     BlockKind `json:"kind"`
	Slot     string    `json:"slot,omitempty"`
	Rect     Rect      `json:"rect"`
	Consumed int       `json:"consumed"`
	Lines    []string  `json:"lines,omitempty"`
	Source   string    `json:"source,omitempty"`
	Missing  bool      `json:"missing,omitempty"`
	Overlay  bool      `json:"overlay,omitempty"`
}

// RenderPlan 是某个条目在某个格子里的组合结果。每个条目重新计算，不跨条目保留。
type RenderPlan struct {
	Page   int     `json:"page"`
	Index  int     `json:"index"`
	Item   string  `json:"item,omitempty"`
	Cell   Rect    `json:"cell"`
	Blocks []Block `json:"blocks"`
	// Cursor 为组合结束时的纵向游标位置
	Cursor int    `json:"cursor"`
	Err    string `json:"error,omitempty"`
}

// Add appends b to the plan.
func (p *RenderPlan) Add(b Block) { p.Blocks = append(p.Blocks, b) }

// Find returns the first block of kind k.
func (p RenderPlan) Find(k BlockKind) (Block, bool) {
	for _, b := range p.Blocks {
		if b.Kind == k {
			return b, true
		}
	}
	return Block{}, false
}

// Count returns how many blocks of kind k the plan holds.
func (p RenderPlan) Count(k BlockKind) int {
	n := 0
	for _, b := range p.Blocks {
		if b.Kind == k {
			n++
		}
	}
	return n
}
