package card

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/assets"
	"github.com/ByLCY/sleuthprint/binding"
	"github.com/ByLCY/sleuthprint/dsl"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer/rendertest"
)

// 2.5×3.5 英寸卡片在 72 dpi 下的格子
var testCell = layout.Rect{X: 36, Y: 36, W: 180, H: 252}

// fakeAssets 按键返回指定尺寸的图片，未登记的键视为缺失。
func fakeAssets(sizes map[string][2]int) assets.Provider {
	return assets.ProviderFunc(func(key string) (image.Image, error) {
		sz, ok := sizes[key]
		if !ok {
			return nil, assets.NotFound(key)
		}
		return image.NewRGBA(image.Rect(0, 0, sz[0], sz[1])), nil
	})
}

func cardTemplate(p assets.Provider, skip bool) Template {
	tpl := DefaultTemplate()
	tpl.BodyFields = []string{"text", "description"}
	tpl.AttributionField = "possession"
	tpl.Images = []ImageSlot{{
		Name: "image", Kind: layout.BlockImage, Key: dsl.MustParse("img/{id:02}.png"),
		Provider: p, Box: ImageBox, Mode: layout.FitContain, SkipMissing: skip,
	}}
	return tpl
}

var butler = binding.Item{
	"id":         1.0,
	"text":       "The butler was seen near the library at midnight",
	"possession": "Cook",
}

func kinds(plan layout.RenderPlan) string {
	var out []string
	for _, b := range plan.Blocks {
		out = append(out, string(b.Kind))
	}
	return strings.Join(out, ",")
}

func TestRenderComposesBlocksInOrder(t *testing.T) {
	p := fakeAssets(map[string][2]int{"img/01.png": {100, 50}})
	s := &rendertest.Recorder{W: 612, H: 792}
	plan := New(cardTemplate(p, false), nil).Render(s, butler, 0, testCell)

	if plan.Err != "" {
		t.Fatalf("意外错误: %s", plan.Err)
	}
	if got, want := kinds(plan), "border,title,image,text,attribution"; got != want {
		t.Fatalf("块顺序 %s，期望 %s", got, want)
	}
	title, _ := plan.Find(layout.BlockTitle)
	// 标题 32pt：行高 39，从格子顶部 +10 开始
	if title.Rect.Y != 46 || title.Consumed != 39 {
		t.Fatalf("标题位置错误: %+v", title)
	}
	img, _ := plan.Find(layout.BlockImage)
	if img.Rect != (layout.Rect{X: 76, Y: 93, W: 100, H: 50}) {
		t.Fatalf("图片位置错误: %+v", img.Rect)
	}
	text, _ := plan.Find(layout.BlockText)
	if text.Rect.Y != 151 {
		t.Fatalf("正文应从 151 开始，实际 %d", text.Rect.Y)
	}
	want := []string{"The butler was seen", "near the library at", "midnight"}
	if strings.Join(text.Lines, "|") != strings.Join(want, "|") {
		t.Fatalf("正文行 %q", text.Lines)
	}
	attr, _ := plan.Find(layout.BlockAttribution)
	if attr.Lines[0] != "— COOK —" || attr.Rect.Y != testCell.Bottom()-24 {
		t.Fatalf("署名错误: %+v", attr)
	}
	if plan.Cursor != 151+3*16 {
		t.Fatalf("游标 %d", plan.Cursor)
	}
	if s.Count(rendertest.OpImage) != 1 {
		t.Fatalf("应绘制 1 张图片")
	}
}

func TestRenderCentersEveryLine(t *testing.T) {
	p := fakeAssets(nil)
	s := &rendertest.Recorder{W: 612, H: 792}
	New(cardTemplate(p, true), nil).Render(s, butler, 0, testCell)
	for _, op := range s.Ops {
		if op.Kind != rendertest.OpText {
			continue
		}
		center := op.Rect.X + op.Rect.W/2
		if d := center - testCell.CenterX(); d < -1 || d > 1 {
			t.Fatalf("文本 %q 未居中：中心 %d", op.Text, center)
		}
	}
}

func TestMissingImageReservesBox(t *testing.T) {
	s := &rendertest.Recorder{W: 612, H: 792}
	plan := New(cardTemplate(fakeAssets(nil), false), nil).Render(s, butler, 0, testCell)

	ph, ok := plan.Find(layout.BlockPlaceholder)
	if !ok || !ph.Missing || ph.Slot != "image" {
		t.Fatalf("缺失图片应生成占位块: %+v", plan.Blocks)
	}
	// ImageBox：宽 180-20，高 floor(252*0.4)
	if ph.Rect.W != 160 || ph.Rect.H != 100 {
		t.Fatalf("占位框尺寸错误: %+v", ph.Rect)
	}
	text, _ := plan.Find(layout.BlockText)
	if text.Rect.Y != 93+100+8 {
		t.Fatalf("占位框应保留高度，正文起点 %d", text.Rect.Y)
	}
	found := false
	for _, txt := range s.Texts() {
		if txt == "Image Not Found" {
			found = true
		}
	}
	if !found {
		t.Fatalf("占位框缺少标签: %q", s.Texts())
	}
}

func TestSkipMissingGivesRoomToText(t *testing.T) {
	s := &rendertest.Recorder{W: 612, H: 792}
	plan := New(cardTemplate(fakeAssets(nil), true), nil).Render(s, butler, 0, testCell)
	if plan.Count(layout.BlockPlaceholder) != 0 {
		t.Fatalf("skip_missing 不应绘制占位框")
	}
	text, _ := plan.Find(layout.BlockText)
	if text.Rect.Y != 93 {
		t.Fatalf("正文应紧接标题，实际 %d", text.Rect.Y)
	}
}

func TestBodyTruncatedToRemainingHeight(t *testing.T) {
	tpl := cardTemplate(fakeAssets(nil), true)
	item := binding.Item{"id": 2, "description": strings.Repeat("word ", 80)}
	s := &rendertest.Recorder{W: 612, H: 792}
	plan := New(tpl, nil).Render(s, item, 0, testCell)

	text, ok := plan.Find(layout.BlockText)
	if !ok {
		t.Fatalf("缺少正文块")
	}
	// 可用高度 (288-30)-93 = 165，行高 16 => 10 行
	if len(text.Lines) != 10 {
		t.Fatalf("应截断为 10 行，实际 %d", len(text.Lines))
	}
	if last := text.Lines[9]; !strings.HasSuffix(last, layout.Ellipsis) {
		t.Fatalf("最后一行应以省略号结尾: %q", last)
	}
	if text.Rect.Bottom() > testCell.Bottom()-tpl.BottomMargin {
		t.Fatalf("正文越过底部边距")
	}
}

func TestQRSlotIsFixedSquare(t *testing.T) {
	tpl := DefaultTemplate()
	tpl.Images = []ImageSlot{{
		Name: "qr", Kind: layout.BlockQR, Key: dsl.MustParse("qr/{id}.png"),
		Provider: fakeAssets(map[string][2]int{"qr/7.png": {29, 40}}), Box: QRBox, Mode: layout.FitFixedSquare,
	}}
	s := &rendertest.Recorder{W: 612, H: 792}
	plan := New(tpl, nil).Render(s, binding.Item{"id": 7}, 0, testCell)
	qr, ok := plan.Find(layout.BlockQR)
	if !ok {
		t.Fatalf("缺少二维码块: %s", kinds(plan))
	}
	if qr.Rect.W != 108 || qr.Rect.H != 108 {
		t.Fatalf("二维码应为 108×108，实际 %dx%d", qr.Rect.W, qr.Rect.H)
	}
}

func TestRenderErrorsStayInPlan(t *testing.T) {
	corrupt := assets.ProviderFunc(func(key string) (image.Image, error) {
		return nil, apperr.New(apperr.CodeAssetDecode, "bad %s", key)
	})
	panicky := assets.ProviderFunc(func(string) (image.Image, error) { panic("boom") })

	tests := []struct {
		name     string
		provider assets.Provider
		item     binding.Item
		code     apperr.Code
	}{
		{"decode failure", corrupt, butler, apperr.CodeAssetDecode},
		{"panic", panicky, butler, apperr.CodeRenderFailed},
		{"template field missing", fakeAssets(nil), binding.Item{"text": "x"}, apperr.CodeRenderFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &rendertest.Recorder{W: 612, H: 792}
			plan := New(cardTemplate(tc.provider, false), nil).Render(s, tc.item, 3, testCell)
			if !strings.HasPrefix(plan.Err, string(tc.code)) {
				t.Fatalf("Err = %q，期望前缀 %s", plan.Err, tc.code)
			}
			if plan.Index != 3 {
				t.Fatalf("序号应保留")
			}
		})
	}
}

func TestExtremeAspectImageStillDrawn(t *testing.T) {
	strip := fakeAssets(map[string][2]int{"img/01.png": {1000, 1}})
	s := &rendertest.Recorder{W: 612, H: 792}
	plan := New(cardTemplate(strip, false), nil).Render(s, butler, 0, testCell)

	img, ok := plan.Find(layout.BlockImage)
	if !ok {
		t.Fatalf("细长图片不应被丢弃: %+v", plan.Blocks)
	}
	if img.Rect.W != 160 || img.Rect.H != 1 {
		t.Fatalf("细长图片尺寸应为 160x1，实际 %+v", img.Rect)
	}
	if s.Count(rendertest.OpImage) != 1 {
		t.Fatalf("应绘制一张图片")
	}
}

func TestRenderErrorLogLevel(t *testing.T) {
	corrupt := assets.ProviderFunc(func(key string) (image.Image, error) {
		return nil, apperr.New(apperr.CodeAssetDecode, "bad %s", key)
	})
	broken := assets.ProviderFunc(func(string) (image.Image, error) {
		return nil, errors.New("disk on fire")
	})

	tests := []struct {
		name     string
		provider assets.Provider
		level    string
	}{
		{"recoverable warns", corrupt, `"level":"warn"`},
		{"unexpected errors", broken, `"level":"error"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := log.NewWithOptions(&buf, log.Options{Formatter: log.JSONFormatter})
			s := &rendertest.Recorder{W: 612, H: 792}
			plan := New(cardTemplate(tc.provider, false), logger).Render(s, butler, 0, testCell)
			if plan.Err == "" {
				t.Fatalf("应记录错误")
			}
			if !strings.Contains(buf.String(), tc.level) {
				t.Fatalf("日志级别不符，期望 %s: %s", tc.level, buf.String())
			}
		})
	}
}

func TestDocumentOverlayCentersQR(t *testing.T) {
	photos := fakeAssets(map[string][2]int{"doc.png": {300, 200}, "qr.png": {50, 50}})
	tpl := Template{
		Images: []ImageSlot{{
			Name: "image", Kind: layout.BlockImage, Key: dsl.MustParse("{image}"),
			Provider: photos, Mode: layout.FitContain, VCenter: true,
		}},
		Overlay: &Overlay{Over: "image", Key: dsl.MustParse("{qr}"), Provider: photos, Ratio: 0.33},
	}
	cell := layout.Rect{X: 0, Y: 0, W: 600, H: 800}
	s := &rendertest.Recorder{W: 600, H: 800}
	plan := New(tpl, nil).Render(s, binding.Item{"image": "doc.png", "qr": "qr.png"}, 0, cell)

	img, _ := plan.Find(layout.BlockImage)
	if img.Rect != (layout.Rect{X: 150, Y: 300, W: 300, H: 200}) {
		t.Fatalf("图片应在格子中居中: %+v", img.Rect)
	}
	qr, ok := plan.Find(layout.BlockQR)
	if !ok || !qr.Overlay {
		t.Fatalf("缺少叠加二维码: %s", kinds(plan))
	}
	// floor(200*0.33)=66，以图片中心 (300,400) 居中
	if qr.Rect != (layout.Rect{X: 267, Y: 367, W: 66, H: 66}) {
		t.Fatalf("叠加二维码位置错误: %+v", qr.Rect)
	}
	if plan.Cursor != 800 {
		t.Fatalf("叠加不应推进游标，游标 %d", plan.Cursor)
	}
}

func TestBoxSize(t *testing.T) {
	cell := layout.Rect{W: 180, H: 252}
	tests := []struct {
		box  Box
		w, h int
	}{
		{ImageBox, 160, 100},
		{PhotoBox, 140, 63},
		{QRBox, 108, 108},
		{Box{W: 144, H: 144}, 144, 144},
		{Box{}, 180, 252},
		{Box{Inset: 400}, 0, 0},
	}
	for _, tc := range tests {
		if w, h := tc.box.Size(cell); w != tc.w || h != tc.h {
			t.Fatalf("%+v => %dx%d，期望 %dx%d", tc.box, w, h, tc.w, tc.h)
		}
	}
}
