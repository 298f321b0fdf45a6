// Package rendertest 提供记录型 Surface 与内存 Sink，供卡片、分页与书籍测试使用。
package rendertest

import (
	"errors"
	"image"
	"math"
	"sync"

	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer"
)

// Op kinds recorded by Recorder.
const (
	OpText   = "text"
	OpImage  = "image"
	OpFill   = "fill"
	OpStroke = "stroke"
	OpLine   = "line"
)

// Op is one recorded drawing call.
type Op struct {
	Kind  string
	Rect  layout.Rect
	Text  string
	Style renderer.TextStyle
	Color layout.Color
}

// Recorder 是确定性的 Surface：每个字符宽 Size/2 像素，行高为 1.2 倍字号。
type Recorder struct {
	W, H   int
	Ops    []Op
	Sealed bool
}

var _ renderer.Surface = (*Recorder)(nil)

func (r *Recorder) Size() (int, int) { return r.W, r.H }

func (r *Recorder) MeasureText(style renderer.TextStyle, s string) int {
	return int(math.Ceil(float64(len([]rune(s))) * style.Size / 2))
}

func (r *Recorder) LineHeight(style renderer.TextStyle) int {
	return int(math.Ceil(style.Size * 1.2))
}

func (r *Recorder) DrawText(style renderer.TextStyle, x, y int, s string) {
	r.Ops = append(r.Ops, Op{Kind: OpText, Text: s, Style: style,
		Rect: layout.Rect{X: x, Y: y, W: r.MeasureText(style, s), H: r.LineHeight(style)}})
}

func (r *Recorder) DrawImage(img image.Image, rect layout.Rect) {
	r.Ops = append(r.Ops, Op{Kind: OpImage, Rect: rect})
}

func (r *Recorder) FillRect(rect layout.Rect, c layout.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpFill, Rect: rect, Color: c})
}

func (r *Recorder) StrokeRect(rect layout.Rect, c layout.Color, width int) {
	r.Ops = append(r.Ops, Op{Kind: OpStroke, Rect: rect, Color: c})
}

func (r *Recorder) DrawLine(x1, y1, x2, y2 int, c layout.Color, width int) {
	r.Ops = append(r.Ops, Op{Kind: OpLine, Rect: layout.Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}, Color: c})
}

func (r *Recorder) Seal() (*image.RGBA, error) {
	if r.Sealed {
		return nil, errors.New("already sealed")
	}
	r.Sealed = true
	return image.NewRGBA(image.Rect(0, 0, r.W, r.H)), nil
}

// Texts returns the text of every OpText in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// Count returns how many ops of kind were recorded.
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Factory hands out Recorders and remembers them in creation order.
type Factory struct {
	mu        sync.Mutex
	Recorders []*Recorder
}

// New implements renderer.SurfaceFactory.
func (f *Factory) New(w, h int) renderer.Surface {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &Recorder{W: w, H: h}
	f.Recorders = append(f.Recorders, r)
	return r
}

// Sink keeps pages in memory.
type Sink struct {
	Added     []renderer.Page
	Committed bool
	Aborted   bool
	// FailAt 使第 FailAt 次 AddPage（从 1 开始）失败；0 表示不失败
	FailAt int
}

var _ renderer.Sink = (*Sink)(nil)

// ErrInjected is returned by a Sink configured with FailAt.
var ErrInjected = errors.New("injected sink failure")

func (s *Sink) AddPage(p renderer.Page) error {
	if s.FailAt > 0 && len(s.Added)+1 == s.FailAt {
		return ErrInjected
	}
	s.Added = append(s.Added, p)
	return nil
}

func (s *Sink) Commit() error {
	if len(s.Added) == 0 {
		return errors.New("no pages")
	}
	s.Committed = true
	return nil
}

func (s *Sink) Abort() error {
	s.Aborted = true
	s.Added = nil
	return nil
}

func (s *Sink) Pages() int { return len(s.Added) }
