package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/sleuthprint/fonts"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer"
)

// Surface draws one page via github.com/tdewolff/canvas.
// 画布单位为设备像素（1 单位 = 1px），栅格化时使用 DPMM(1)。
type Surface struct {
	w, h  int
	dpi   float64
	fonts *fonts.Provider

	c      *canvas.Canvas
	ctx    *canvas.Context
	sealed bool

	faceMu sync.Mutex
	faces  map[faceKey]*canvas.FontFace
}

type faceKey struct {
	role  fonts.Role
	size  float64
	color layout.Color
}

var _ renderer.Surface = (*Surface)(nil)

// NewSurface creates a white w×h pixel page. Text sizes are points at dpi.
func NewSurface(w, h int, dpi float64, fp *fonts.Provider) *Surface {
	c := canvas.New(float64(w), float64(h))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	ctx.SetFillColor(canvas.White)
	ctx.SetStrokeColor(color.RGBA{})
	ctx.DrawPath(0, 0, canvas.Rectangle(float64(w), float64(h)))
	if fp == nil {
		fp = fonts.New(nil, nil)
	}
	return &Surface{w: w, h: h, dpi: dpi, fonts: fp, c: c, ctx: ctx, faces: map[faceKey]*canvas.FontFace{}}
}

// Factory returns a renderer.SurfaceFactory bound to dpi and fp.
func Factory(dpi float64, fp *fonts.Provider) renderer.SurfaceFactory {
	return func(w, h int) renderer.Surface { return NewSurface(w, h, dpi, fp) }
}

func (s *Surface) Size() (int, int) { return s.w, s.h }

// face 将 pt 字号换算为画布单位：canvas 以 mm 解释字号，这里 1 单位 = 1px。
func (s *Surface) face(style renderer.TextStyle) *canvas.FontFace {
	key := faceKey{role: style.Role, size: style.Size, color: style.Color}
	s.faceMu.Lock()
	defer s.faceMu.Unlock()
	if f, ok := s.faces[key]; ok {
		return f
	}
	px := style.Size * s.dpi / layout.PtPerIn
	f := s.fonts.Face(style.Role, px*layout.MmToPt, toColor(style.Color))
	s.faces[key] = f
	return f
}

func (s *Surface) MeasureText(style renderer.TextStyle, text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(s.face(style).TextWidth(text)))
}

func (s *Surface) LineHeight(style renderer.TextStyle) int {
	m := s.face(style).Metrics()
	return int(math.Ceil(m.Ascent + math.Abs(m.Descent)))
}

func (s *Surface) DrawText(style renderer.TextStyle, x, y int, text string) {
	if s.sealed || text == "" {
		return
	}
	face := s.face(style)
	// 基线位置：行顶部加上字体上升部
	baseline := float64(y) + face.Metrics().Ascent
	s.ctx.DrawText(float64(x), baseline, canvas.NewTextLine(face, text, canvas.Left))
}

func (s *Surface) DrawImage(img image.Image, r layout.Rect) {
	if s.sealed || img == nil || r.W <= 0 || r.H <= 0 {
		return
	}
	b := img.Bounds()
	if b.Dx() != r.W || b.Dy() != r.H {
		img = imaging.Resize(img, r.W, r.H, imaging.Lanczos)
	}
	s.ctx.DrawImage(float64(r.X), float64(r.Y), img, canvas.DPMM(1))
}

func (s *Surface) FillRect(r layout.Rect, c layout.Color) {
	if s.sealed {
		return
	}
	s.ctx.SetFillColor(toColor(c))
	s.ctx.SetStrokeColor(color.RGBA{})
	s.ctx.DrawPath(float64(r.X), float64(r.Y), canvas.Rectangle(float64(r.W), float64(r.H)))
}

func (s *Surface) StrokeRect(r layout.Rect, c layout.Color, width int) {
	if s.sealed {
		return
	}
	s.ctx.SetFillColor(color.RGBA{})
	s.ctx.SetStrokeColor(toColor(c))
	s.ctx.SetStrokeWidth(float64(max(width, 1)))
	s.ctx.DrawPath(float64(r.X), float64(r.Y), canvas.Rectangle(float64(r.W), float64(r.H)))
}

func (s *Surface) DrawLine(x1, y1, x2, y2 int, c layout.Color, width int) {
	if s.sealed {
		return
	}
	s.ctx.SetFillColor(color.RGBA{})
	s.ctx.SetStrokeColor(toColor(c))
	s.ctx.SetStrokeWidth(float64(max(width, 1)))
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(float64(x2-x1), float64(y2-y1))
	s.ctx.DrawPath(float64(x1), float64(y1), p)
}

// Seal rasterizes the page into an RGBA bitmap.
func (s *Surface) Seal() (*image.RGBA, error) {
	if s.sealed {
		return nil, fmt.Errorf("页面已栅格化")
	}
	s.sealed = true
	img := rasterizer.Draw(s.c, canvas.DPMM(1), canvas.DefaultColorSpace)
	if img == nil {
		return nil, fmt.Errorf("栅格化页面失败")
	}
	return img, nil
}

func toColor(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
