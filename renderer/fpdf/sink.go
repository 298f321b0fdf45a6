// Package fpdfrenderer 使用 codeberg.org/go-pdf/fpdf 输出位图页面，作为 canvas PDF 后端之外的备选。
package fpdfrenderer

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/renderer"
)

// Sink embeds each page bitmap as a full-page PNG.
type Sink struct {
	path string
	meta renderer.Meta
	doc  *fpdf.Fpdf
	n    int
}

var _ renderer.Sink = (*Sink)(nil)

// NewSink creates an fpdf-backed sink writing to path on Commit.
func NewSink(path string, meta renderer.Meta) *Sink {
	return &Sink{path: path, meta: meta}
}

func (s *Sink) AddPage(p renderer.Page) error {
	if p.Image == nil || p.DPI <= 0 {
		return apperr.New(apperr.CodeSinkFailed, "第 %d 页缺少位图或 dpi", p.Index+1)
	}
	b := p.Image.Bounds()
	size := fpdf.SizeType{Wd: float64(b.Dx()) / p.DPI, Ht: float64(b.Dy()) / p.DPI}
	if s.doc == nil {
		s.doc = fpdf.NewCustom(&fpdf.InitType{OrientationStr: "P", UnitStr: "in", Size: size})
		s.doc.SetAutoPageBreak(false, 0)
		s.doc.SetMargins(0, 0, 0)
		s.doc.SetTitle(s.meta.Title, true)
		s.doc.SetSubject(s.meta.Subject, true)
		s.doc.SetAuthor(s.meta.Author, true)
		s.doc.SetCreator(s.meta.Creator, true)
		s.doc.SetKeywords(strings.Join(s.meta.Keywords, " "), true)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, p.Image); err != nil {
		return apperr.Wrap(apperr.CodeSinkFailed, err, "编码第 %d 页失败", p.Index+1)
	}
	name := fmt.Sprintf("page-%04d", s.n)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	s.doc.AddPageFormat("P", size)
	s.doc.RegisterImageOptionsReader(name, opts, &buf)
	s.doc.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
	if err := s.doc.Error(); err != nil {
		return apperr.Wrap(apperr.CodeSinkFailed, err, "写入第 %d 页失败", p.Index+1)
	}
	s.n++
	return nil
}

func (s *Sink) Pages() int { return s.n }

func (s *Sink) Commit() error {
	if s.doc == nil || s.n == 0 {
		return apperr.New(apperr.CodeNoPages, "没有可写入 %s 的页面", s.path)
	}
	f, err := renderer.CreateAtomic(s.path)
	if err != nil {
		return apperr.Wrap(apperr.CodeSinkFailed, err, "无法写入 %s", s.path)
	}
	if err := s.doc.Output(f); err != nil {
		f.Abort()
		return apperr.Wrap(apperr.CodeSinkFailed, err, "写入 PDF %s 失败", s.path)
	}
	if err := f.Commit(); err != nil {
		return apperr.Wrap(apperr.CodeSinkFailed, err, "写入 PDF %s 失败", s.path)
	}
	s.doc = nil
	return nil
}

// Abort drops the in-memory document; nothing has touched the disk yet.
func (s *Sink) Abort() error {
	s.doc = nil
	s.n = 0
	return nil
}
