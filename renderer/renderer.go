// Package renderer 定义绘制表面（Surface）与页面输出（Sink）的接口。
// 卡片与分页逻辑只依赖这些接口；具体实现见 renderer/canvas 与 renderer/fpdf。
package renderer

import (
	"image"

	"github.com/ByLCY/sleuthprint/fonts"
	"github.com/ByLCY/sleuthprint/layout"
)

// TextStyle selects a font role, a size in points and a color.
type TextStyle struct {
	Role  fonts.Role   `json:"role"`
	Size  float64      `json:"size"`
	Color layout.Color `json:"color"`
}

// Surface is one page being drawn, in device pixels with the origin at the top-left.
type Surface interface {
	Size() (int, int)
	// MeasureText returns the rendered width of s in pixels.
	MeasureText(style TextStyle, s string) int
	// LineHeight returns the height of one line of text in pixels.
	LineHeight(style TextStyle) int
	// DrawText draws s with its top-left at (x, y).
	DrawText(style TextStyle, x, y int, s string)
	// DrawImage scales img to exactly r.
	DrawImage(img image.Image, r layout.Rect)
	FillRect(r layout.Rect, c layout.Color)
	StrokeRect(r layout.Rect, c layout.Color, width int)
	DrawLine(x1, y1, x2, y2 int, c layout.Color, width int)
	// Seal 栅格化页面；之后不得再绘制。
	Seal() (*image.RGBA, error)
}

// SurfaceFactory creates an empty white surface of w×h pixels.
type SurfaceFactory func(w, h int) Surface

// Page is a sealed page bitmap.
type Page struct {
	Index int
	Image *image.RGBA
	DPI   float64
	// Items 为该页包含的条目序号
	Items []int
}

// Meta is document metadata written by sinks that support it.
type Meta struct {
	Title    string
	Subject  string
	Author   string
	Creator  string
	Keywords []string
}

// Sink collects sealed pages and persists them as one document.
// Nothing is visible at the output path until Commit succeeds.
type Sink interface {
	AddPage(p Page) error
	// Commit 完成文档并原子地写入目标路径。
	Commit() error
	// Abort 丢弃已收集的页面与临时文件。
	Abort() error
	Pages() int
}

// CenterText returns the x that horizontally centers s within box.
func CenterText(s Surface, style TextStyle, box layout.Rect, text string) int {
	return layout.CenterX(box, s.MeasureText(style, text))
}
