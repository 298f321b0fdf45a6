// Package config 读取 JSON 或 TOML 任务配置，补全默认值并在渲染前完成全部校验。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/binding"
	"github.com/ByLCY/sleuthprint/book"
	"github.com/ByLCY/sleuthprint/dsl"
	"github.com/ByLCY/sleuthprint/fonts"
	"github.com/ByLCY/sleuthprint/layout"
)

// Job kinds.
const (
	KindCards     = "cards"
	KindDocuments = "documents"
	KindSections  = "sections"
	KindBook      = "book"
)

// Document layouts.
const (
	LayoutFull = "full"
	LayoutHalf = "half"
	LayoutGrid = "grid"
)

// Sinks.
const (
	SinkCanvas = "canvas"
	SinkFPDF   = "fpdf"
)

// Size is a physical width × height.
type Size struct {
	Width  layout.Length `json:"width" toml:"width"`
	Height layout.Length `json:"height" toml:"height"`
}

// Fields maps logical card slots to item field names.
type Fields struct {
	Text        string `json:"text" toml:"text"`
	Possession  string `json:"possession" toml:"possession"`
	Title       string `json:"title" toml:"title"`
	Description string `json:"description" toml:"description"`
}

// Style 为卡片版式参数；字号与间距单位均为 pt，渲染时按 dpi 换算成像素。
type Style struct {
	TitleSize         float64               `json:"title_size" toml:"title_size"`
	BodySize          float64               `json:"body_size" toml:"body_size"`
	LabelSize         float64               `json:"label_size" toml:"label_size"`
	HeaderSize        float64               `json:"header_size" toml:"header_size"`
	WrapWidth         int                   `json:"wrap_width" toml:"wrap_width"`
	LineHeight        layout.LineHeightSpec `json:"line_height" toml:"line_height"`
	Gap               float64               `json:"gap" toml:"gap"`
	TitleTop          float64               `json:"title_top" toml:"title_top"`
	BottomMargin      float64               `json:"bottom_margin" toml:"bottom_margin"`
	AttributionOffset float64               `json:"attribution_offset" toml:"attribution_offset"`
	AttributionFormat string                `json:"attribution_format" toml:"attribution_format"`
	ImageHeightRatio  float64               `json:"image_height_ratio" toml:"image_height_ratio"`
	PhotoHeightRatio  float64               `json:"photo_height_ratio" toml:"photo_height_ratio"`
	QRWidthRatio      float64               `json:"qr_width_ratio" toml:"qr_width_ratio"`
	// QRSize/PhotoHeight 非零时使用固定物理尺寸（如 2in 二维码）
	QRSize      layout.Length `json:"qr_size" toml:"qr_size"`
	PhotoHeight layout.Length `json:"photo_height" toml:"photo_height"`
	Border      *bool         `json:"border" toml:"border"`
	Separator   bool          `json:"separator" toml:"separator"`
	Ink         *layout.Color `json:"ink" toml:"ink"`
	Accent      *layout.Color `json:"accent" toml:"accent"`
	SkipMissing bool          `json:"skip_missing" toml:"skip_missing"`
}

// Sections configures kind=sections.
type Sections struct {
	NameField       string        `json:"name_field" toml:"name_field"`
	EntriesField    string        `json:"entries_field" toml:"entries_field"`
	EntryQRTemplate string        `json:"entry_qr_template" toml:"entry_qr_template"`
	LabelField      string        `json:"label_field" toml:"label_field"`
	MaxEntries      int           `json:"max_entries" toml:"max_entries"`
	HeaderHeight    layout.Length `json:"header_height" toml:"header_height"`
	QRSize          layout.Length `json:"qr_size" toml:"qr_size"`
	SheetTitle      string        `json:"sheet_title" toml:"sheet_title"`
}

// Book configures kind=book.
type Book struct {
	Title       string         `json:"title" toml:"title"`
	Subtitle    string         `json:"subtitle" toml:"subtitle"`
	Tagline     string         `json:"tagline" toml:"tagline"`
	Date        string         `json:"date" toml:"date"`
	ChaptersDir string         `json:"chapters_dir" toml:"chapters_dir"`
	Chapters    []book.Chapter `json:"chapters" toml:"chapters"`
	WrapWidth   int            `json:"wrap_width" toml:"wrap_width"`
	ImageMax    layout.Length  `json:"image_max" toml:"image_max"`
	MarginX     layout.Length  `json:"margin_x" toml:"margin_x"`
	MarginY     layout.Length  `json:"margin_y" toml:"margin_y"`
	BackMatter  []string       `json:"back_matter" toml:"back_matter"`
}

// Config is one render job.
type Config struct {
	Kind     string         `json:"kind" toml:"kind"`
	CardSize Size           `json:"card_size" toml:"card_size"`
	PageSize Size           `json:"page_size" toml:"page_size"`
	Margin   *layout.Length `json:"margin" toml:"margin"`
	DPI      float64        `json:"dpi" toml:"dpi"`
	Title    string         `json:"title" toml:"title"`

	DataSource string           `json:"data_source" toml:"data_source"`
	DataKey    string           `json:"data_key" toml:"data_key"`
	Items      []map[string]any `json:"items" toml:"items"`
	Fields     Fields           `json:"fields" toml:"fields"`

	ImagePathTemplate string `json:"image_path_template" toml:"image_path_template"`
	QRPathTemplate    string `json:"qr_path_template" toml:"qr_path_template"`
	PhotoPathTemplate string `json:"photo_path_template" toml:"photo_path_template"`
	QRContentTemplate string `json:"qr_content_template" toml:"qr_content_template"`

	Layout      string        `json:"layout" toml:"layout"`
	GridCols    int           `json:"grid_cols" toml:"grid_cols"`
	GridRows    int           `json:"grid_rows" toml:"grid_rows"`
	Spacing     string        `json:"spacing" toml:"spacing"`
	Gap         layout.Length `json:"gap" toml:"gap"`
	FrameSize   Size          `json:"frame_size" toml:"frame_size"`
	QROverlay   bool          `json:"qr_overlay" toml:"qr_overlay"`
	QRSizeRatio float64       `json:"qr_size_ratio" toml:"qr_size_ratio"`

	AssetRoot string              `json:"asset_root" toml:"asset_root"`
	Sink      string              `json:"sink" toml:"sink"`
	Fonts     map[string][]string `json:"fonts" toml:"fonts"`
	Style     Style               `json:"style" toml:"style"`
	Sections  Sections            `json:"sections" toml:"sections"`
	Book      Book                `json:"book" toml:"book"`

	// Dir 为配置文件所在目录，相对路径以此为基准
	Dir string `json:"-" toml:"-"`
}

// Load reads path (.toml or .json), applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidConfig, err, "读取配置 %s 失败", path)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		cfg.Dir = abs
	} else {
		cfg.Dir = filepath.Dir(path)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext, then applies defaults and validates.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidConfig, err, "TOML 配置解析失败")
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidConfig, err, "JSON 配置解析失败")
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve returns p relative to the config directory unless it is absolute.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Validate checks option values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Kind {
	case KindCards, KindDocuments, KindSections, KindBook:
	default:
		return apperr.New(apperr.CodeInvalidConfig, "未知的 kind：%q", c.Kind)
	}
	switch c.Layout {
	case LayoutFull, LayoutHalf, LayoutGrid:
	default:
		return apperr.New(apperr.CodeInvalidConfig, "未知的 layout：%q（可选 full、half、grid）", c.Layout)
	}
	switch c.Sink {
	case SinkCanvas, SinkFPDF:
	default:
		return apperr.New(apperr.CodeInvalidConfig, "未知的 sink：%q", c.Sink)
	}
	if _, err := layout.ParseSpacing(c.Spacing); err != nil {
		return apperr.Wrap(apperr.CodeInvalidConfig, err, "spacing 无效")
	}
	if c.DPI <= 0 {
		return apperr.New(apperr.CodeInvalidConfig, "dpi 必须为正数")
	}
	if c.QRSizeRatio <= 0 || c.QRSizeRatio > 1 {
		return apperr.New(apperr.CodeInvalidConfig, "qr_size_ratio 必须在 (0, 1] 内，当前 %g", c.QRSizeRatio)
	}
	if c.GridCols < 0 || c.GridRows < 0 || c.Sections.MaxEntries < 0 {
		return apperr.New(apperr.CodeInvalidConfig, "grid_cols、grid_rows 与 max_entries 不能为负数")
	}
	for role := range c.Fonts {
		if !knownRole(fonts.Role(role)) {
			return apperr.New(apperr.CodeInvalidConfig, "未知的字体角色：%q", role)
		}
	}
	if c.Kind == KindBook && len(c.Book.Chapters) == 0 {
		return apperr.New(apperr.CodeNoItems, "book 未配置任何章节")
	}
	return nil
}

func knownRole(r fonts.Role) bool {
	for _, k := range fonts.Roles {
		if k == r {
			return true
		}
	}
	return false
}

// FontChains returns the configured fallback chains with paths resolved.
func (c *Config) FontChains() map[fonts.Role][]string {
	out := make(map[fonts.Role][]string, len(c.Fonts))
	for role, chain := range c.Fonts {
		resolved := make([]string, 0, len(chain))
		for _, src := range chain {
			if strings.HasPrefix(src, "embed:") {
				resolved = append(resolved, src)
				continue
			}
			resolved = append(resolved, c.Resolve(src))
		}
		out[fonts.Role(role)] = resolved
	}
	return out
}

// PageSpec returns the physical page used by grid jobs.
func (c *Config) PageSpec() layout.PageSpec {
	return layout.PageSpec{Width: c.PageSize.Width, Height: c.PageSize.Height, Margin: *c.Margin, DPI: c.DPI}
}

// Px converts a point metric into device pixels.
func (c *Config) Px(pt float64) int { return layout.Points(pt).Pixels(c.DPI) }

// LoadItems 读取 data_source（相对配置目录）或内联 items；空列表返回 NO_ITEMS。
func (c *Config) LoadItems() ([]binding.Item, error) {
	var items []binding.Item
	if c.DataSource != "" {
		path := c.Resolve(c.DataSource)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidConfig, err, "读取数据文件 %s 失败", path)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidConfig, err, "解析数据文件 %s 失败", path)
		}
		if items, err = binding.SelectItems(doc, c.DataKey); err != nil {
			return nil, err
		}
	} else {
		for _, m := range c.Items {
			items = append(items, binding.Item(m))
		}
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.CodeNoItems, "没有找到任何条目")
	}
	return items, nil
}

// Templates 编译各路径模板；未配置的模板不出现在结果中。
func (c *Config) Templates() (map[string]*dsl.Template, error) {
	sources := map[string]string{
		"image_path_template": c.ImagePathTemplate,
		"qr_path_template":    c.QRPathTemplate,
		"photo_path_template": c.PhotoPathTemplate,
		"qr_content_template": c.QRContentTemplate,
		"entry_qr_template":   c.Sections.EntryQRTemplate,
	}
	out := make(map[string]*dsl.Template)
	for name, src := range sources {
		if src == "" {
			continue
		}
		tpl, err := dsl.Parse(src)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidTemplate, err, "%s 语法错误", name)
		}
		out[name] = tpl
	}
	return out, nil
}

// Prepare loads the items and checks every template against every item.
func (c *Config) Prepare() ([]binding.Item, map[string]*dsl.Template, error) {
	items, err := c.LoadItems()
	if err != nil {
		return nil, nil, err
	}
	tpls, err := c.Templates()
	if err != nil {
		return nil, nil, err
	}
	if c.Kind == KindSections {
		for _, name := range []string{"entry_qr_template", "qr_content_template"} {
			if err := c.validateEntries(name, tpls[name], items); err != nil {
				return nil, nil, err
			}
		}
		return items, tpls, nil
	}
	if err := binding.Validate(tpls, items); err != nil {
		return nil, nil, err
	}
	return items, tpls, nil
}

// validateEntries 用分节字段与条目字段合并后的值检查条目二维码模板。
func (c *Config) validateEntries(name string, tpl *dsl.Template, sections []binding.Item) error {
	if tpl == nil {
		return nil
	}
	for i, sec := range sections {
		raw, _ := sec.Get(c.Sections.EntriesField)
		var entries []map[string]any
		switch v := raw.(type) {
		case []map[string]any:
			entries = v
		case []any:
			for _, e := range v {
				if m, ok := e.(map[string]any); ok {
					entries = append(entries, m)
				} else {
					entries = append(entries, map[string]any{"label": e})
				}
			}
		}
		for _, e := range entries {
			merged := binding.Item{}
			for k, v := range sec {
				merged[k] = v
			}
			for k, v := range e {
				merged[k] = v
			}
			if _, err := binding.Expand(tpl, merged); err != nil {
				return apperr.Wrap(apperr.CodeInvalidTemplate, err, "%s 无法用于分节 %s", name, sec.ID(i))
			}
		}
	}
	return nil
}

// Describe is a short human summary used in logs.
func (c *Config) Describe() string {
	return fmt.Sprintf("%s %s×%s @%gdpi", c.Kind, c.PageSize.Width, c.PageSize.Height, c.DPI)
}
