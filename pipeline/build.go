package pipeline

import (
	"math"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/sleuthprint/assets"
	"github.com/ByLCY/sleuthprint/book"
	"github.com/ByLCY/sleuthprint/card"
	"github.com/ByLCY/sleuthprint/config"
	"github.com/ByLCY/sleuthprint/dsl"
	"github.com/ByLCY/sleuthprint/fonts"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/pager"
	"github.com/ByLCY/sleuthprint/renderer"
)

// sectionDPI 是分节版式像素常量的参考分辨率
const sectionDPI = 150

// Layout resolves the page layout for grid and section jobs.
func Layout(cfg *config.Config) (pager.Slotter, error) {
	page := cfg.PageSpec()
	spacing, _ := layout.ParseSpacing(cfg.Spacing)
	switch cfg.Kind {
	case config.KindSections:
		sec := sectionTemplate(cfg, nil, nil)
		return layout.ResolveSections(page, sec.Height(), sheetTitle(cfg, layout.PageGeometry{}).Band())
	case config.KindDocuments:
		return documentLayout(cfg, page)
	default:
		return layout.Resolve(page,
			layout.CellSpec{Width: cfg.CardSize.Width, Height: cfg.CardSize.Height},
			layout.GridOptions{Columns: cfg.GridCols, Rows: cfg.GridRows, Spacing: spacing, Gap: cfg.Gap},
		)
	}
}

func px(v int) layout.Length { return layout.Length{Value: float64(v), Unit: layout.UnitPX} }

// documentLayout：full 为整页一格，half 为上下两格，grid 按相框尺寸排布、间距等于边距。
func documentLayout(cfg *config.Config, page layout.PageSpec) (pager.Slotter, error) {
	pg, err := layout.ResolvePage(page, 0)
	if err != nil {
		return nil, err
	}
	switch cfg.Layout {
	case config.LayoutHalf:
		return layout.Resolve(page,
			layout.CellSpec{Width: px(pg.UsableW), Height: px(pg.UsableH / 2)},
			layout.GridOptions{Columns: 1, Rows: 2, Spacing: layout.SpacingFixed},
		)
	case config.LayoutGrid:
		return layout.Resolve(page,
			layout.CellSpec{Width: cfg.FrameSize.Width, Height: cfg.FrameSize.Height},
			layout.GridOptions{Columns: cfg.GridCols, Rows: cfg.GridRows, Spacing: layout.SpacingFixed, Gap: *cfg.Margin},
		)
	default:
		return layout.Resolve(page,
			layout.CellSpec{Width: px(pg.UsableW), Height: px(pg.UsableH)},
			layout.GridOptions{Columns: 1, Rows: 1, Spacing: layout.SpacingFixed},
		)
	}
}

type providers struct {
	files assets.Provider
	qr    assets.Provider
}

func newProviders(cfg *config.Config, logger *log.Logger, qrSize int) providers {
	root := cfg.Dir
	if cfg.AssetRoot != "" {
		root = cfg.Resolve(cfg.AssetRoot)
	}
	return providers{files: assets.NewFileProvider(root, logger), qr: assets.NewQRProvider(qrSize)}
}

func style(role fonts.Role, size float64, c layout.Color) renderer.TextStyle {
	return renderer.TextStyle{Role: role, Size: size, Color: c}
}

func colors(cfg *config.Config, ink, accent layout.Color) (layout.Color, layout.Color) {
	if cfg.Style.Ink != nil {
		ink = *cfg.Style.Ink
	}
	if cfg.Style.Accent != nil {
		accent = *cfg.Style.Accent
	}
	return ink, accent
}

// qrSource 选择二维码来源：qr_content_template 即时生成，否则读取 qr_path_template 文件。
func qrSource(tpls map[string]*dsl.Template, p providers) (*dsl.Template, assets.Provider) {
	if t := tpls["qr_content_template"]; t != nil {
		return t, p.qr
	}
	return tpls["qr_path_template"], p.files
}

func cardTemplate(cfg *config.Config, tpls map[string]*dsl.Template, p providers) card.Template {
	st := cfg.Style
	t := card.DefaultTemplate()
	ink, accent := colors(cfg, t.TitleStyle.Color, t.BorderColor)

	t.Title = cfg.Title
	t.TitleField = cfg.Fields.Title
	t.TitleStyle = style(fonts.RoleTitle, st.TitleSize, ink)
	t.TitleTop = cfg.Px(st.TitleTop)
	t.Separator = st.Separator
	t.SeparatorColor = accent
	t.SeparatorInset = cfg.Px(20)
	t.SeparatorWidth = max(1, cfg.Px(1))
	t.BodyFields = []string{cfg.Fields.Text, cfg.Fields.Description}
	t.BodyStyle = style(fonts.RoleBody, st.BodySize, ink)
	t.WrapWidth = st.WrapWidth
	t.LineHeight = st.LineHeight.Pixels(st.BodySize, cfg.DPI)
	t.BottomMargin = cfg.Px(st.BottomMargin)
	t.AttributionField = cfg.Fields.Possession
	t.AttributionFormat = st.AttributionFormat
	t.AttributionStyle = style(fonts.RoleLabel, st.LabelSize, ink)
	t.AttributionOffset = cfg.Px(st.AttributionOffset)
	t.Border = *st.Border
	t.BorderColor = accent
	t.BorderWidth = max(1, cfg.Px(2))
	t.Gap = cfg.Px(st.Gap)
	t.PlaceholderStyle.Size = st.LabelSize
	t.PlaceholderLine = ink

	if key := tpls["image_path_template"]; key != nil {
		box := boxAt(cfg, card.ImageBox)
		box.HeightRatio = st.ImageHeightRatio
		t.Images = append(t.Images, card.ImageSlot{
			Name: "image", Kind: layout.BlockImage, Key: key, Provider: p.files,
			Box: box, Mode: layout.FitContain,
			Gap: cfg.Px(10), SkipMissing: st.SkipMissing,
		})
	}
	if key := tpls["photo_path_template"]; key != nil {
		box := boxAt(cfg, card.PhotoBox)
		box.HeightRatio = st.PhotoHeightRatio
		if !st.PhotoHeight.IsZero() {
			box.H = st.PhotoHeight.Pixels(cfg.DPI)
		}
		t.Images = append(t.Images, card.ImageSlot{
			Name: "photo", Kind: layout.BlockPhoto, Key: key, Provider: p.files,
			Box: box, Mode: layout.FitContain, SkipMissing: st.SkipMissing,
		})
	}
	if key, provider := qrSource(tpls, p); key != nil {
		box := card.QRBox
		box.WidthRatio = st.QRWidthRatio
		if !st.QRSize.IsZero() {
			n := st.QRSize.Pixels(cfg.DPI)
			box = card.Box{W: n, H: n}
		}
		t.Images = append(t.Images, card.ImageSlot{
			Name: "qr", Kind: layout.BlockQR, Key: key, Provider: provider,
			Box: box, Mode: layout.FitFixedSquare, SkipMissing: st.SkipMissing,
		})
	}
	return t
}

// boxAt 把按 72dpi 给出的默认盒子边距换算到目标 dpi。
func boxAt(cfg *config.Config, b card.Box) card.Box {
	b.Inset = cfg.Px(float64(b.Inset))
	return b
}

func documentTemplate(cfg *config.Config, tpls map[string]*dsl.Template, p providers) card.Template {
	st := cfg.Style
	def := card.DefaultTemplate()
	ink, accent := colors(cfg, def.PlaceholderLine, def.BorderColor)
	// 文档整格放图，不画标题
	t := card.Template{
		Border:           *st.Border,
		BorderColor:      accent,
		BorderWidth:      max(1, cfg.Px(2)),
		Gap:              cfg.Px(st.Gap),
		PlaceholderStyle: style(fonts.RoleLabel, st.LabelSize, layout.Gray),
		PlaceholderFill:  layout.Color{R: 0xf0, G: 0xf0, B: 0xf0},
		PlaceholderLine:  ink,
	}
	t.Images = []card.ImageSlot{{
		Name: "image", Kind: layout.BlockImage, Key: tpls["image_path_template"], Provider: p.files,
		Mode: layout.FitContain, VCenter: cfg.Layout != config.LayoutGrid, SkipMissing: st.SkipMissing,
	}}
	if cfg.QROverlay {
		key, provider := qrSource(tpls, p)
		t.Overlay = &card.Overlay{Over: "image", Key: key, Provider: provider, Ratio: cfg.QRSizeRatio}
	}
	return t
}

func scaled(cfg *config.Config, v int) int {
	return int(math.Round(float64(v) * cfg.DPI / sectionDPI))
}

func sectionTemplate(cfg *config.Config, tpls map[string]*dsl.Template, p *providers) card.SectionTemplate {
	sc := cfg.Sections
	t := card.DefaultSectionTemplate()
	ink, accent := colors(cfg, t.Ink, t.HeaderStyle.Color)

	t.NameField = sc.NameField
	t.EntriesField = sc.EntriesField
	t.LabelField = sc.LabelField
	t.MaxEntries = sc.MaxEntries
	t.HeaderHeight = sc.HeaderHeight.Pixels(cfg.DPI)
	t.HeaderStyle = style(fonts.RoleHeader, cfg.Style.HeaderSize, accent)
	t.HeaderPad = scaled(cfg, 15)
	t.QRSize = sc.QRSize.Pixels(cfg.DPI)
	t.QRBorder = max(1, scaled(cfg, 2))
	t.LabelRoom = scaled(cfg, 80)
	t.Padding = scaled(cfg, 30)
	t.LabelGap = scaled(cfg, 8)
	t.LabelStyle = style(fonts.RoleLabel, 14, ink)
	t.PlaceholderStyle.Size = 14
	t.Ink = ink

	if p != nil {
		t.EntryKey, t.Provider = tpls["entry_qr_template"], p.files
		if c := tpls["qr_content_template"]; c != nil {
			t.EntryKey, t.Provider = c, p.qr
		}
	}
	return t
}

func sheetTitle(cfg *config.Config, pg layout.PageGeometry) card.SheetTitle {
	text := cfg.Sections.SheetTitle
	if text == "" {
		text = cfg.Title
	}
	ink, _ := colors(cfg, layout.Color{R: 0x1a, G: 0x1a, B: 0x1a}, layout.Color{})
	return card.SheetTitle{
		Text:      text,
		Style:     style(fonts.RoleTitle, 28, ink),
		Page:      pg,
		LineInset: scaled(cfg, 50),
		LineGap:   scaled(cfg, 50),
		Color:     layout.Color{R: 0x2a, G: 0x2a, B: 0x2a},
	}
}

var (
	gold      = layout.Color{R: 0xd4, G: 0xaf, B: 0x37}
	rust      = layout.Color{R: 0x8b, G: 0x6f, B: 0x47}
	darkBrown = layout.Color{R: 0x3d, G: 0x28, B: 0x17}
)

func bookOptions(cfg *config.Config, p providers) book.Options {
	bk := cfg.Book
	ink, accent := colors(cfg, darkBrown, gold)
	title := bk.Title
	if title == "" {
		title = cfg.Title
	}
	dir := cfg.Dir
	if bk.ChaptersDir != "" {
		dir = cfg.Resolve(bk.ChaptersDir)
	}
	return book.Options{
		Title:      title,
		Subtitle:   bk.Subtitle,
		Tagline:    bk.Tagline,
		Date:       bk.Date,
		BackMatter: bk.BackMatter,
		Dir:        dir,
		Chapters:   bk.Chapters,
		Images:     p.files,
		Width:      cfg.PageSize.Width.Pixels(cfg.DPI),
		Height:     cfg.PageSize.Height.Pixels(cfg.DPI),
		MarginX:    bk.MarginX.Pixels(cfg.DPI),
		MarginY:    bk.MarginY.Pixels(cfg.DPI),
		DPI:        cfg.DPI,
		Styles: book.Styles{
			Title:        style(fonts.RoleTitle, 48, accent),
			Subtitle:     style(fonts.RoleItalic, 18, rust),
			Ornament:     style(fonts.RoleBody, 24, accent),
			ChapterNum:   style(fonts.RoleItalic, 11, rust),
			ChapterTitle: style(fonts.RoleTitle, 22, accent),
			EntryHeader:  style(fonts.RoleItalic, 9, rust),
			Body:         style(fonts.RoleBody, 11, ink),
			Italic:       style(fonts.RoleItalic, 11, ink),
			TOC:          style(fonts.RoleBody, 10, layout.Color{R: 0x34, G: 0x49, B: 0x5e}),
		},
		WrapWidth:    bk.WrapWidth,
		Leading:      cfg.Px(16),
		ParagraphGap: cfg.Px(12),
		EntryGap:     layout.Inches(0.2).Pixels(cfg.DPI),
		ImageMax:     bk.ImageMax.Pixels(cfg.DPI),
	}
}
