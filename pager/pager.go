// Package pager 把条目按行优先顺序分配到页面格子，逐页渲染、封页并交给 Sink。
package pager

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/binding"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer"
)

// Slotter is a page layout with a fixed number of cells; layout.GridLayout and
// layout.SectionLayout both satisfy it.
type Slotter interface {
	Capacity() int
	Slot(i int) layout.Rect
	PageSize() (int, int)
}

// CellRenderer draws one item into one cell.
type CellRenderer interface {
	Render(s renderer.Surface, item binding.Item, index int, cell layout.Rect) layout.RenderPlan
}

// Decorator draws page-level furniture before the cells.
type Decorator interface {
	Decorate(s renderer.Surface, page int)
}

// Options configures a Pager.
type Options struct {
	Logger    *log.Logger
	DPI       float64
	Factory   renderer.SurfaceFactory
	Sink      renderer.Sink
	Decorator Decorator
}

// PageResult 汇总某一页放置的条目与各自的布局结果。
type PageResult struct {
	Index  int                 `json:"index"`
	Items  []int               `json:"items"`
	Plans  []layout.RenderPlan `json:"plans"`
	Failed int                 `json:"failed"`
}

// Pager drives pagination for one run.
type Pager struct {
	grid   Slotter
	cells  CellRenderer
	opts   Options
	logger *log.Logger
}

// New validates the collaborators and returns a Pager.
func New(grid Slotter, cells CellRenderer, opts Options) (*Pager, error) {
	if grid == nil || grid.Capacity() <= 0 {
		return nil, apperr.New(apperr.CodeDegenerateGrid, "每页容量必须大于 0")
	}
	if cells == nil {
		return nil, apperr.New(apperr.CodeInvalidConfig, "缺少格子渲染器")
	}
	if opts.Factory == nil || opts.Sink == nil {
		return nil, apperr.New(apperr.CodeInvalidConfig, "缺少绘制表面工厂或输出 Sink")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Pager{grid: grid, cells: cells, opts: opts, logger: logger}, nil
}

// PageCount returns ceil(n / capacity).
func PageCount(n, capacity int) int {
	if n <= 0 || capacity <= 0 {
		return 0
	}
	return (n + capacity - 1) / capacity
}

// Paginate renders items in input order, capacity items per page.
// Empty input is a configuration error and produces no pages.
func (p *Pager) Paginate(ctx context.Context, items []binding.Item) ([]PageResult, error) {
	if len(items) == 0 {
		return nil, apperr.New(apperr.CodeNoItems, "没有可渲染的条目")
	}
	capacity := p.grid.Capacity()
	total := PageCount(len(items), capacity)
	w, h := p.grid.PageSize()
	p.logger.Debug("开始分页", "items", len(items), "capacity", capacity, "pages", total)

	results := make([]PageResult, 0, total)
	for page := 0; page < total; page++ {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("第 %d 页之前中断: %w", page+1, err)
		}
		res, err := p.renderPage(page, items, capacity, w, h)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (p *Pager) renderPage(page int, items []binding.Item, capacity, w, h int) (PageResult, error) {
	surface := p.opts.Factory(w, h)
	if p.opts.Decorator != nil {
		p.opts.Decorator.Decorate(surface, page)
	}

	res := PageResult{Index: page}
	start := page * capacity
	end := min(start+capacity, len(items))
	for idx := start; idx < end; idx++ {
		plan := p.cells.Render(surface, items[idx], idx, p.grid.Slot(idx-start))
		plan.Page = page
		if plan.Err != "" {
			res.Failed++
		}
		res.Items = append(res.Items, idx)
		res.Plans = append(res.Plans, plan)
	}

	img, err := surface.Seal()
	if err != nil {
		return res, apperr.Wrap(apperr.CodeRenderFailed, err, "第 %d 页栅格化失败", page+1)
	}
	if err := p.opts.Sink.AddPage(renderer.Page{Index: page, Image: img, DPI: p.opts.DPI, Items: res.Items}); err != nil {
		if apperr.GetCode(err) == "" {
			err = apperr.Wrap(apperr.CodeSinkFailed, err, "写入第 %d 页失败", page+1)
		}
		return res, err
	}
	p.logger.Debug("页面完成", "page", page+1, "items", len(res.Items), "failed", res.Failed)
	return res, nil
}

// Plans flattens the per-page plans in page order.
func Plans(pages []PageResult) []layout.RenderPlan {
	var out []layout.RenderPlan
	for _, pg := range pages {
		out = append(out, pg.Plans...)
	}
	return out
}
