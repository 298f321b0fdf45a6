package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/fonts"
	"github.com/ByLCY/sleuthprint/layout"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写入 %s 失败: %v", name, err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`), ".json")
	if err != nil {
		t.Fatalf("空配置应可解析: %v", err)
	}
	if cfg.Kind != KindCards || cfg.Title != "CARD" || cfg.DPI != 72 || cfg.Sink != SinkCanvas {
		t.Fatalf("默认值错误: %+v", cfg)
	}
	if cfg.CardSize.Width != layout.Inches(2.5) || cfg.PageSize.Height != layout.Inches(11) {
		t.Fatalf("默认尺寸错误: %+v / %+v", cfg.CardSize, cfg.PageSize)
	}
	if *cfg.Margin != layout.Inches(0.5) || cfg.DataKey != "items" || cfg.QRSizeRatio != 0.33 {
		t.Fatalf("默认边距/键/比例错误")
	}
	if !*cfg.Style.Border || cfg.Style.WrapWidth != 20 || cfg.Px(cfg.Style.BottomMargin) != 30 {
		t.Fatalf("默认样式错误: %+v", cfg.Style)
	}
}

func TestExplicitZeroMarginKept(t *testing.T) {
	cfg, err := Parse([]byte(`{"kind":"documents","margin":0,"dpi":150}`), ".json")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if !cfg.Margin.IsZero() {
		t.Fatalf("显式 0 边距应保留，实际 %s", cfg.Margin)
	}
	if cfg.Title != "" || *cfg.Style.Border {
		t.Fatalf("documents 不应带卡片标题与边框")
	}
	if got := cfg.PageSpec(); got.DPI != 150 || got.Width != layout.Inches(8.5) {
		t.Fatalf("PageSpec 错误: %+v", got)
	}
}

func TestLoadJSONWithDataSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data/rumors.json", `{"rumors":[{"id":1,"text":"a"},{"id":2,"text":"b"}]}`)
	path := writeFile(t, dir, "job.json", `{
		"card_size": {"width": "63.5mm", "height": 3.5},
		"title": "FACT",
		"data_source": "data/rumors.json",
		"data_key": "rumors",
		"image_path_template": "fact_images/fact_{id:02d}.png",
		"style": {"line_height": "13pt", "ink": "#1a1a1a"},
		"fonts": {"title": ["fonts/Georgia.ttf", "embed:gobold"]}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.CardSize.Width.Unit != layout.UnitMM || cfg.CardSize.Width.Pixels(72) != 180 {
		t.Fatalf("毫米卡宽换算错误: %s", cfg.CardSize.Width)
	}
	if cfg.Style.LineHeight.Pixels(14, 72) != 13 {
		t.Fatalf("行高应为 13pt")
	}
	if cfg.Style.Ink == nil || *cfg.Style.Ink != (layout.Color{R: 0x1a, G: 0x1a, B: 0x1a}) {
		t.Fatalf("颜色解析错误: %+v", cfg.Style.Ink)
	}
	chains := cfg.FontChains()
	if got := chains[fonts.RoleTitle]; len(got) != 2 || got[0] != filepath.Join(cfg.Dir, "fonts/Georgia.ttf") || got[1] != "embed:gobold" {
		t.Fatalf("字体路径解析错误: %v", got)
	}

	items, tpls, err := cfg.Prepare()
	if err != nil {
		t.Fatalf("准备失败: %v", err)
	}
	if len(items) != 2 || items[1].String("text") != "b" {
		t.Fatalf("条目读取错误: %v", items)
	}
	if tpls["image_path_template"] == nil {
		t.Fatalf("缺少编译后的模板")
	}
}

func TestLoadTOMLInlineItems(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "job.toml", `
kind = "documents"
layout = "half"
qr_overlay = true
margin = "0.5in"

[[items]]
image = "docs/will.png"
qr = "qr/will.png"

[[items]]
image = "docs/letter.png"
qr = "qr/letter.png"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载 TOML 失败: %v", err)
	}
	if cfg.Kind != KindDocuments || cfg.Layout != LayoutHalf || !cfg.QROverlay {
		t.Fatalf("TOML 字段错误: %+v", cfg)
	}
	items, err := cfg.LoadItems()
	if err != nil || len(items) != 2 || items[0].String("image") != "docs/will.png" {
		t.Fatalf("内联条目错误: %v %v", items, err)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code apperr.Code
	}{
		{"bad kind", `{"kind":"poster"}`, apperr.CodeInvalidConfig},
		{"bad layout", `{"layout":"quarter"}`, apperr.CodeInvalidConfig},
		{"bad sink", `{"sink":"svg"}`, apperr.CodeInvalidConfig},
		{"bad spacing", `{"spacing":"random"}`, apperr.CodeInvalidConfig},
		{"bad ratio", `{"qr_size_ratio":1.5}`, apperr.CodeInvalidConfig},
		{"negative dpi", `{"dpi":-1}`, apperr.CodeInvalidConfig},
		{"bad length", `{"margin":"-2in"}`, apperr.CodeInvalidConfig},
		{"unknown font role", `{"fonts":{"fancy":["a.ttf"]}}`, apperr.CodeInvalidConfig},
		{"book without chapters", `{"kind":"book"}`, apperr.CodeNoItems},
		{"malformed", `{`, apperr.CodeInvalidConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.body), ".json")
			if !apperr.Is(err, tc.code) {
				t.Fatalf("期望 %s，实际 %v", tc.code, err)
			}
		})
	}
}

func TestPrepareErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code apperr.Code
	}{
		{"no items", `{"items":[]}`, apperr.CodeNoItems},
		{"template syntax", `{"items":[{"id":1}],"qr_path_template":"qr/{id"}`, apperr.CodeInvalidTemplate},
		{"missing field", `{"items":[{"id":1},{"name":"x"}],"image_path_template":"img/{id}.png"}`, apperr.CodeInvalidTemplate},
		{"bad verb", `{"items":[{"id":"abc"}],"image_path_template":"img/{id:02d}.png"}`, apperr.CodeInvalidTemplate},
		{"missing data file", `{"data_source":"nope.json"}`, apperr.CodeInvalidConfig},
		{"section entry field", `{"kind":"sections","items":[{"name":"A","examples":[{"label":"x"}]}],"sections":{"entry_qr_template":"qr/{file}"}}`, apperr.CodeInvalidTemplate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.body), ".json")
			if err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			cfg.Dir = t.TempDir()
			if _, _, err := cfg.Prepare(); !apperr.Is(err, tc.code) {
				t.Fatalf("期望 %s，实际 %v", tc.code, err)
			}
		})
	}
}

func TestSectionsPrepareUsesEntryFields(t *testing.T) {
	cfg, err := Parse([]byte(`{"kind":"sections","items":[{"name":"Visions","examples":[{"file":"a.png","label":"A"}]}],
		"sections":{"entry_qr_template":"qr/{file}"}}`), ".json")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if _, _, err := cfg.Prepare(); err != nil {
		t.Fatalf("分节条目模板应通过校验: %v", err)
	}
}

func TestLineHeightFormsAgree(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ext  string
		want int
	}{
		{"JSON 数字", `{"style":{"line_height":13}}`, ".json", 13},
		{"JSON 字符串", `{"style":{"line_height":"13"}}`, ".json", 13},
		{"JSON 带单位", `{"style":{"line_height":"13pt"}}`, ".json", 13},
		{"TOML 整数", "[style]\nline_height = 13", ".toml", 13},
		{"TOML 浮点", "[style]\nline_height = 13.0", ".toml", 13},
		{"TOML 带单位", "[style]\nline_height = \"13pt\"", ".toml", 13},
		// 14pt 字号的 1.5 倍
		{"JSON 系数", `{"style":{"line_height":"1.5x"}}`, ".json", 21},
		{"TOML 系数", "[style]\nline_height = \"1.5x\"", ".toml", 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.src), tt.ext)
			if err != nil {
				t.Fatalf("解析失败: %v", err)
			}
			if got := cfg.Style.LineHeight.Pixels(cfg.Style.BodySize, cfg.DPI); got != tt.want {
				t.Fatalf("行高 = %dpx，期望 %dpx（%+v）", got, tt.want, cfg.Style.LineHeight)
			}
		})
	}
	if _, err := Parse([]byte(`{"style":{"line_height":true}}`), ".json"); !apperr.Is(err, apperr.CodeInvalidConfig) {
		t.Fatalf("布尔行高应返回 INVALID_CONFIG，实际 %v", err)
	}
}
