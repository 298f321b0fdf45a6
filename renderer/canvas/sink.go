package canvasrenderer

import (
	"fmt"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer"
)

// PDFSink 逐页把位图写入 PDF（canvas 的 PDF 后端），Commit 时原子地落盘。
type PDFSink struct {
	path string
	meta renderer.Meta

	file   *renderer.AtomicFile
	writer *pdf.PDF
	pages  int
}

var _ renderer.Sink = (*PDFSink)(nil)

// NewPDFSink creates a sink writing to path. The file is created on the first page.
func NewPDFSink(path string, meta renderer.Meta) *PDFSink {
	return &PDFSink{path: path, meta: meta}
}

// pageMM 返回位图在物理页面上的毫米尺寸。
func pageMM(p renderer.Page) (float64, float64) {
	b := p.Image.Bounds()
	return float64(b.Dx()) / p.DPI * layout.MmPerIn, float64(b.Dy()) / p.DPI * layout.MmPerIn
}

func (s *PDFSink) AddPage(p renderer.Page) error {
	if p.Image == nil || p.DPI <= 0 {
		return apperr.New(apperr.CodeSinkFailed, "第 %d 页缺少位图或 dpi", p.Index+1)
	}
	w, h := pageMM(p)
	if s.writer == nil {
		f, err := renderer.CreateAtomic(s.path)
		if err != nil {
			return apperr.Wrap(apperr.CodeSinkFailed, err, "无法写入 %s", s.path)
		}
		s.file = f
		s.writer = pdf.New(f, w, h, nil)
		s.writer.SetInfo(s.meta.Title, s.meta.Subject, strings.Join(s.meta.Keywords, ", "), s.meta.Author, s.meta.Creator)
	} else {
		s.writer.NewPage(w, h)
	}
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	ctx.DrawImage(0, 0, p.Image, canvas.DPI(p.DPI))
	c.RenderTo(s.writer)
	s.pages++
	return nil
}

func (s *PDFSink) Pages() int { return s.pages }

func (s *PDFSink) Commit() error {
	if s.writer == nil {
		return apperr.New(apperr.CodeNoPages, "没有可写入 %s 的页面", s.path)
	}
	if err := s.writer.Close(); err != nil {
		s.file.Abort()
		return apperr.Wrap(apperr.CodeSinkFailed, err, "写入 PDF %s 失败", s.path)
	}
	if err := s.file.Commit(); err != nil {
		return apperr.Wrap(apperr.CodeSinkFailed, err, "写入 PDF %s 失败", s.path)
	}
	s.writer, s.file = nil, nil
	return nil
}

func (s *PDFSink) Abort() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Abort()
	s.writer, s.file = nil, nil
	if err != nil {
		return fmt.Errorf("清理临时文件失败: %w", err)
	}
	return nil
}
