package layout

import (
	"fmt"
	"strings"

	"github.com/ByLCY/sleuthprint/apperr"
)

// SpacingMode selects how leftover space between grid cells is handled.
type SpacingMode int

const (
	// SpacingCentered 将剩余空间平均分给 n+1 个间隙（两侧与格子之间），整数除法，余数舍弃。
	SpacingCentered SpacingMode = iota
	// SpacingFixed 从边距处紧密排列，格子之间使用固定间隙（默认 0）。
	SpacingFixed
)

func (m SpacingMode) String() string {
	if m == SpacingFixed {
		return "fixed"
	}
	return "centered"
}

// ParseSpacing maps a config value to a SpacingMode; empty means centered.
func ParseSpacing(s string) (SpacingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "centered", "center", "distributed":
		return SpacingCentered, nil
	case "fixed", "packed":
		return SpacingFixed, nil
	default:
		return SpacingCentered, fmt.Errorf("未知的 spacing：%q", s)
	}
}

// PageSpec is the physical page plus the device resolution.
type PageSpec struct {
	Width  Length
	Height Length
	Margin Length
	DPI    float64
}

// CellSpec is the physical size of one card or frame.
type CellSpec struct {
	Width  Length
	Height Length
}

// GridOptions 为可选的网格参数；Columns/Rows 为 0 时根据可用区域自动推导。
type GridOptions struct {
	Columns int
	Rows    int
	Spacing SpacingMode
	Gap     Length
	// TopReserve 在每页可用区域顶部预留的像素（例如页标题带）
	TopReserve int
}

// PageGeometry is a page converted into device pixels.
type PageGeometry struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	Margin  int `json:"margin"`
	UsableW int `json:"usableW"`
	UsableH int `json:"usableH"`
	// Top 为内容区顶部（边距 + 预留带）
	Top int `json:"top"`
}

// Usable returns the content rectangle.
func (p PageGeometry) Usable() Rect {
	return Rect{X: p.Margin, Y: p.Top, W: p.UsableW, H: p.UsableH}
}

// ResolvePage converts a PageSpec into pixels, reserving reserve pixels below the top margin.
func ResolvePage(page PageSpec, reserve int) (PageGeometry, error) {
	if page.DPI <= 0 {
		return PageGeometry{}, apperr.New(apperr.CodeInvalidConfig, "dpi 必须为正数，当前为 %g", page.DPI)
	}
	g := PageGeometry{
		Width:  page.Width.Pixels(page.DPI),
		Height: page.Height.Pixels(page.DPI),
		Margin: page.Margin.Pixels(page.DPI),
	}
	if g.Width <= 0 || g.Height <= 0 {
		return PageGeometry{}, apperr.New(apperr.CodeInvalidConfig, "页面尺寸必须为正数：%s × %s", page.Width, page.Height)
	}
	if 2*g.Margin >= g.Width || 2*g.Margin >= g.Height {
		return PageGeometry{}, apperr.New(apperr.CodeInvalidConfig, "边距 %s 超过页面宽或高的一半", page.Margin)
	}
	if reserve < 0 {
		reserve = 0
	}
	g.UsableW = g.Width - 2*g.Margin
	g.UsableH = g.Height - 2*g.Margin - reserve
	g.Top = g.Margin + reserve
	if g.UsableH <= 0 {
		return PageGeometry{}, apperr.New(apperr.CodeDegenerateGrid, "预留区域 %dpx 占满了可用高度", reserve)
	}
	return g, nil
}

// GridLayout 是一次运行内不可变的网格几何，所有值均为像素。
type GridLayout struct {
	Page    PageGeometry `json:"page"`
	CellW   int          `json:"cellW"`
	CellH   int          `json:"cellH"`
	Columns int          `json:"columns"`
	Rows    int          `json:"rows"`
	Spacing SpacingMode  `json:"spacing"`
	GapX    int          `json:"gapX"`
	GapY    int          `json:"gapY"`
}

// Resolve derives the pixel grid for cells of the given size on the given page.
func Resolve(page PageSpec, cell CellSpec, opts GridOptions) (GridLayout, error) {
	pg, err := ResolvePage(page, opts.TopReserve)
	if err != nil {
		return GridLayout{}, err
	}
	g := GridLayout{
		Page:    pg,
		CellW:   cell.Width.Pixels(page.DPI),
		CellH:   cell.Height.Pixels(page.DPI),
		Spacing: opts.Spacing,
	}
	if g.CellW <= 0 || g.CellH <= 0 {
		return GridLayout{}, apperr.New(apperr.CodeInvalidConfig, "卡片尺寸必须为正数：%s × %s", cell.Width, cell.Height)
	}
	gap := 0
	if opts.Spacing == SpacingFixed {
		gap = opts.Gap.Pixels(page.DPI)
	}

	g.Columns, err = axisCount("列", opts.Columns, pg.UsableW, g.CellW, gap, opts.Spacing)
	if err != nil {
		return GridLayout{}, err
	}
	g.Rows, err = axisCount("行", opts.Rows, pg.UsableH, g.CellH, gap, opts.Spacing)
	if err != nil {
		return GridLayout{}, err
	}

	if opts.Spacing == SpacingFixed {
		g.GapX, g.GapY = gap, gap
	} else {
		g.GapX = Distribute(pg.UsableW, g.CellW, g.Columns)
		g.GapY = Distribute(pg.UsableH, g.CellH, g.Rows)
	}
	return g, nil
}

// axisCount 计算单一方向可容纳的格子数；显式数量必须能放下。
func axisCount(axis string, explicit, usable, cell, gap int, mode SpacingMode) (int, error) {
	fits := func(n int) bool {
		need := n * cell
		if mode == SpacingFixed {
			need += (n - 1) * gap
		}
		return need <= usable
	}
	n := explicit
	if n <= 0 {
		if mode == SpacingFixed {
			n = (usable + gap) / (cell + gap)
		} else {
			n = usable / cell
		}
	}
	if n <= 0 {
		return 0, apperr.New(apperr.CodeDegenerateGrid, "可用区域 %dpx 放不下一个 %dpx 的格子（%s数为 0）", usable, cell, axis)
	}
	if !fits(n) {
		return 0, apperr.New(apperr.CodeDegenerateGrid, "%d %s格子（每个 %dpx）超出可用区域 %dpx", n, axis, cell, usable)
	}
	return n, nil
}

// Distribute returns the centered-distributed gap for n items of size in usable.
func Distribute(usable, size, n int) int {
	if n <= 0 {
		return 0
	}
	gap := (usable - n*size) / (n + 1)
	if gap < 0 {
		return 0
	}
	return gap
}

// Capacity returns columns × rows.
func (g GridLayout) Capacity() int { return g.Columns * g.Rows }

func (g GridLayout) originX() int {
	if g.Spacing == SpacingFixed {
		return g.Page.Margin
	}
	return g.Page.Margin + g.GapX
}

func (g GridLayout) originY() int {
	if g.Spacing == SpacingFixed {
		return g.Page.Top
	}
	return g.Page.Top + g.GapY
}

// Slot returns the rectangle of the i-th cell in row-major order.
func (g GridLayout) Slot(i int) Rect {
	if i < 0 || i >= g.Capacity() {
		panic(fmt.Sprintf("layout: slot %d out of range [0,%d)", i, g.Capacity()))
	}
	col, row := i%g.Columns, i/g.Columns
	return Rect{
		X: g.originX() + col*(g.CellW+g.GapX),
		Y: g.originY() + row*(g.CellH+g.GapY),
		W: g.CellW,
		H: g.CellH,
	}
}

// PageSize returns the page dimensions in pixels.
func (g GridLayout) PageSize() (int, int) { return g.Page.Width, g.Page.Height }

// SectionLayout 为整宽分节模式：每节占满可用宽度，固定高度，自上而下排列。
type SectionLayout struct {
	Page     PageGeometry `json:"page"`
	SectionH int          `json:"sectionH"`
	Sections int          `json:"sections"`
}

// ResolveSections computes how many sections of sectionH pixels fit on a page.
// titleBand pixels are reserved under the top margin on every page.
func ResolveSections(page PageSpec, sectionH, titleBand int) (SectionLayout, error) {
	pg, err := ResolvePage(page, titleBand)
	if err != nil {
		return SectionLayout{}, err
	}
	if sectionH <= 0 {
		return SectionLayout{}, apperr.New(apperr.CodeInvalidConfig, "分节高度必须为正数，当前为 %dpx", sectionH)
	}
	s := SectionLayout{Page: pg, SectionH: sectionH, Sections: pg.UsableH / sectionH}
	if s.Sections == 0 {
		return SectionLayout{}, apperr.New(apperr.CodeDegenerateGrid, "可用高度 %dpx 放不下一个 %dpx 的分节", pg.UsableH, sectionH)
	}
	return s, nil
}

func (s SectionLayout) Capacity() int { return s.Sections }

// Slot returns the i-th section band.
func (s SectionLayout) Slot(i int) Rect {
	if i < 0 || i >= s.Sections {
		panic(fmt.Sprintf("layout: section %d out of range [0,%d)", i, s.Sections))
	}
	return Rect{X: s.Page.Margin, Y: s.Page.Top + i*s.SectionH, W: s.Page.UsableW, H: s.SectionH}
}

func (s SectionLayout) PageSize() (int, int) { return s.Page.Width, s.Page.Height }
