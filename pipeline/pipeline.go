// Package pipeline 把一份配置跑成一份 PDF：解析布局、构建模板、分页渲染、提交输出。
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/book"
	"github.com/ByLCY/sleuthprint/card"
	"github.com/ByLCY/sleuthprint/config"
	"github.com/ByLCY/sleuthprint/fonts"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/pager"
	"github.com/ByLCY/sleuthprint/renderer"
	canvasrenderer "github.com/ByLCY/sleuthprint/renderer/canvas"
	fpdfrenderer "github.com/ByLCY/sleuthprint/renderer/fpdf"
)

// qrPixels 为卡片与文档二维码的生成边长，绘制时再缩放到槽位
const qrPixels = 600

// Options overrides the collaborators Run would otherwise build from the config.
type Options struct {
	Logger *log.Logger
	// Debug 非空时把全部布局结果写成 JSON
	Debug   string
	Factory renderer.SurfaceFactory
	Sink    renderer.Sink
}

// Summary reports one run.
type Summary struct {
	Kind    string
	Output  string
	Items   int
	Pages   int
	Failed  int
	Missing int
	Elapsed time.Duration
}

// NewSink builds the configured sink for output.
func NewSink(cfg *config.Config, output string) renderer.Sink {
	meta := renderer.Meta{Title: cfg.Title, Subject: cfg.Kind, Creator: "sleuthprint"}
	if cfg.Kind == config.KindBook && cfg.Book.Title != "" {
		meta.Title = cfg.Book.Title
	}
	if cfg.Sink == config.SinkFPDF {
		return fpdfrenderer.NewSink(output, meta)
	}
	return canvasrenderer.NewPDFSink(output, meta)
}

// Run renders cfg into output. On any error the sink is aborted and output is left untouched.
func Run(ctx context.Context, cfg *config.Config, output string, opts Options) (Summary, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	sum := Summary{Kind: cfg.Kind, Output: output}

	var fp *fonts.Provider
	factory := opts.Factory
	if factory == nil {
		fp = fonts.New(cfg.FontChains(), logger)
		factory = canvasrenderer.Factory(cfg.DPI, fp)
	}
	sink := opts.Sink
	if sink == nil {
		sink = NewSink(cfg, output)
	}
	logger.Info("开始渲染", "job", cfg.Describe(), "output", output)

	var err error
	if cfg.Kind == config.KindBook {
		err = runBook(ctx, cfg, factory, sink, logger, &sum)
	} else {
		err = runGrid(ctx, cfg, factory, sink, logger, opts.Debug, &sum)
	}
	if err == nil && sink.Pages() == 0 {
		err = apperr.New(apperr.CodeNoPages, "没有生成任何页面")
	}
	if err != nil {
		if aerr := sink.Abort(); aerr != nil {
			logger.Warn("清理临时输出失败", "err", aerr)
		}
		return sum, err
	}
	if err := sink.Commit(); err != nil {
		if apperr.GetCode(err) == "" {
			err = apperr.Wrap(apperr.CodeSinkFailed, err, "写入 %s 失败", output)
		}
		return sum, err
	}
	sum.Pages = sink.Pages()
	sum.Elapsed = time.Since(start)
	if fp != nil {
		for _, role := range fonts.Roles {
			if src := fp.Source(role); src != "" {
				logger.Debug("字体来源", "role", role, "source", src)
			}
		}
	}
	logger.Info("渲染完成", "pages", sum.Pages, "items", sum.Items, "failed", sum.Failed, "elapsed", sum.Elapsed.Round(time.Millisecond))
	return sum, nil
}

func runGrid(ctx context.Context, cfg *config.Config, factory renderer.SurfaceFactory, sink renderer.Sink, logger *log.Logger, debug string, sum *Summary) error {
	items, tpls, err := cfg.Prepare()
	if err != nil {
		return err
	}
	sum.Items = len(items)
	grid, err := Layout(cfg)
	if err != nil {
		return err
	}

	var cells pager.CellRenderer
	var deco pager.Decorator
	switch cfg.Kind {
	case config.KindSections:
		p := newProviders(cfg, logger, cfg.Sections.QRSize.Pixels(cfg.DPI))
		cells = card.NewSection(sectionTemplate(cfg, tpls, &p), logger)
		if sl, ok := grid.(layout.SectionLayout); ok {
			deco = sheetTitle(cfg, sl.Page)
		}
	case config.KindDocuments:
		p := newProviders(cfg, logger, qrPixels)
		cells = card.New(documentTemplate(cfg, tpls, p), logger)
	default:
		p := newProviders(cfg, logger, qrPixels)
		cells = card.New(cardTemplate(cfg, tpls, p), logger)
	}

	pg, err := pager.New(grid, cells, pager.Options{Logger: logger, DPI: cfg.DPI, Factory: factory, Sink: sink, Decorator: deco})
	if err != nil {
		return err
	}
	pages, err := pg.Paginate(ctx, items)
	plans := pager.Plans(pages)
	for _, plan := range plans {
		if plan.Err != "" {
			sum.Failed++
		}
		for _, b := range plan.Blocks {
			if b.Missing {
				sum.Missing++
			}
		}
	}
	if debug != "" {
		if derr := layout.WriteDebugJSON(plans, debug); derr != nil {
			logger.Warn("写入布局调试文件失败", "path", debug, "err", derr)
		} else {
			logger.Debug("已写入布局调试文件", "path", debug, "plans", len(plans))
		}
	}
	return err
}

func runBook(ctx context.Context, cfg *config.Config, factory renderer.SurfaceFactory, sink renderer.Sink, logger *log.Logger, sum *Summary) error {
	opts := bookOptions(cfg, newProviders(cfg, logger, qrPixels))
	if opts.Date == "" {
		opts.Date = time.Now().Format("January 2006")
	}
	opts.Factory, opts.Sink, opts.Logger = factory, sink, logger
	b, err := book.New(opts)
	if err != nil {
		return err
	}
	res, err := b.Render(ctx)
	sum.Items = res.Entries
	sum.Missing = res.MissingImages
	sum.Failed = len(res.Skipped)
	return err
}
