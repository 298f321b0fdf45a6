// Package card 在单个格子内组合一张卡片：标题、分隔线、图片、照片、二维码、正文与署名。
// 所有块水平居中，自上而下累加纵向游标；缺失资源以占位框代替，单个条目失败不影响整页。
package card

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/assets"
	"github.com/ByLCY/sleuthprint/binding"
	"github.com/ByLCY/sleuthprint/layout"
	"github.com/ByLCY/sleuthprint/renderer"
)

// Renderer composes cards from a Template.
type Renderer struct {
	tpl    Template
	logger *log.Logger
	upper  cases.Caser
	title  cases.Caser
}

// New returns a Renderer; a nil logger discards output.
func New(tpl Template, logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Renderer{
		tpl:    tpl,
		logger: logger,
		upper:  cases.Upper(language.Und),
		title:  cases.Title(language.English),
	}
}

// Render draws item into cell on s and returns what was placed.
// Errors never escape: they are logged and recorded in the plan.
func (r *Renderer) Render(s renderer.Surface, item binding.Item, index int, cell layout.Rect) (plan layout.RenderPlan) {
	id := item.ID(index)
	plan = layout.RenderPlan{Index: index, Item: id, Cell: cell}
	defer func() {
		if rec := recover(); rec != nil {
			err := apperr.New(apperr.CodeRenderFailed, "条目 %s 渲染时发生异常：%v", id, rec)
			plan.Err = err.Error()
			r.logger.Error("条目渲染失败", "item", id, "index", index, "err", err)
		}
	}()
	if err := r.compose(s, item, cell, &plan); err != nil {
		plan.Err = err.Error()
		if apperr.Recoverable(err) {
			r.logger.Warn("条目渲染中止", "item", id, "index", index, "err", err)
		} else {
			r.logger.Error("条目渲染失败", "item", id, "index", index, "err", err)
		}
	}
	return plan
}

func (r *Renderer) compose(s renderer.Surface, item binding.Item, cell layout.Rect, plan *layout.RenderPlan) error {
	t := r.tpl
	if t.Border && t.BorderWidth > 0 {
		s.StrokeRect(cell, t.BorderColor, t.BorderWidth)
		plan.Add(layout.Block{Kind: layout.BlockBorder, Rect: cell})
	}

	cursor := cell.Y + t.TitleTop
	if title := r.titleText(item); title != "" {
		lh := s.LineHeight(t.TitleStyle)
		w := s.MeasureText(t.TitleStyle, title)
		x := layout.CenterX(cell, w)
		s.DrawText(t.TitleStyle, x, cursor, title)
		plan.Add(layout.Block{Kind: layout.BlockTitle, Rect: layout.Rect{X: x, Y: cursor, W: w, H: lh}, Consumed: lh, Lines: []string{title}})
		cursor += lh + t.Gap
	}

	if t.Separator && t.SeparatorWidth > 0 {
		x1, x2 := cell.X+t.SeparatorInset, cell.Right()-t.SeparatorInset
		s.DrawLine(x1, cursor, x2, cursor, t.SeparatorColor, t.SeparatorWidth)
		plan.Add(layout.Block{Kind: layout.BlockSeparator, Rect: layout.Rect{X: x1, Y: cursor, W: x2 - x1, H: t.SeparatorWidth}, Consumed: t.SeparatorWidth})
		cursor += t.SeparatorWidth + t.Gap
	}

	for _, slot := range t.Images {
		next, err := r.drawSlot(s, item, slot, cell, cursor, plan)
		if err != nil {
			return err
		}
		cursor = next
	}

	if body := item.First(t.BodyFields...); body != "" {
		avail := (cell.Bottom() - t.BottomMargin) - cursor
		lines := layout.Flow(body, t.WrapWidth, t.LineHeight, avail)
		if len(lines) > 0 {
			top := cursor
			for _, line := range lines {
				s.DrawText(t.BodyStyle, renderer.CenterText(s, t.BodyStyle, cell, line), cursor, line)
				cursor += t.LineHeight
			}
			plan.Add(layout.Block{Kind: layout.BlockText, Rect: layout.Rect{X: cell.X, Y: top, W: cell.W, H: cursor - top}, Consumed: cursor - top, Lines: lines})
		}
	}

	if t.AttributionField != "" {
		if v := item.String(t.AttributionField); strings.TrimSpace(v) != "" {
			format := t.AttributionFormat
			if format == "" {
				format = "%s"
			}
			text := fmt.Sprintf(format, r.upper.String(strings.TrimSpace(v)))
			y := cell.Bottom() - t.AttributionOffset
			w := s.MeasureText(t.AttributionStyle, text)
			x := layout.CenterX(cell, w)
			s.DrawText(t.AttributionStyle, x, y, text)
			lh := s.LineHeight(t.AttributionStyle)
			plan.Add(layout.Block{Kind: layout.BlockAttribution, Rect: layout.Rect{X: x, Y: y, W: w, H: lh}, Lines: []string{text}})
		}
	}

	plan.Cursor = cursor
	return nil
}

func (r *Renderer) titleText(item binding.Item) string {
	if r.tpl.TitleField != "" {
		if v := item.First(r.tpl.TitleField); v != "" {
			return v
		}
	}
	return r.tpl.Title
}

// drawSlot 绘制一个图片槽位并返回新的游标位置。资源缺失时画占位框或跳过；
// 模板展开失败或解码失败会中止该条目。
func (r *Renderer) drawSlot(s renderer.Surface, item binding.Item, slot ImageSlot, cell layout.Rect, cursor int, plan *layout.RenderPlan) (int, error) {
	if slot.Key == nil || slot.Provider == nil {
		return cursor, nil
	}
	gap := slot.Gap
	if gap == 0 {
		gap = r.tpl.Gap
	}
	bw, bh := slot.Box.Size(cell)
	if bw <= 0 || bh <= 0 {
		return cursor, nil
	}
	box := layout.Rect{X: layout.CenterX(cell, bw), Y: cursor, W: bw, H: bh}

	key, err := binding.Expand(slot.Key, item)
	if err != nil {
		return cursor, apperr.Wrap(apperr.CodeRenderFailed, err, "%s 路径模板展开失败", slot.Name)
	}
	img, err := loadImage(slot.Provider, key)
	switch {
	case err == nil:
	case assets.IsNotFound(err):
		r.logger.Warn("资源缺失", "slot", slot.Name, "path", key, "index", plan.Index, "item", plan.Item)
		if slot.SkipMissing {
			return cursor, nil
		}
		r.placeholder(s, box, r.placeholderLabel(slot))
		plan.Add(layout.Block{Kind: layout.BlockPlaceholder, Slot: slot.Name, Rect: box, Consumed: bh, Source: key, Missing: true})
		return cursor + bh + gap, nil
	default:
		return cursor, err
	}

	nw, nh := assets.Size(img)
	rect := layout.Place(nw, nh, box, slot.Mode, slot.VCenter)
	if rect.W <= 0 || rect.H <= 0 {
		r.logger.Warn("图片尺寸无效，跳过", "slot", slot.Name, "path", key, "size", fmt.Sprintf("%dx%d", nw, nh), "item", plan.Item)
		return cursor, nil
	}
	s.DrawImage(img, rect)
	consumed := rect.H
	if slot.VCenter {
		consumed = bh
	}
	plan.Add(layout.Block{Kind: slot.Kind, Slot: slot.Name, Rect: rect, Consumed: consumed, Source: key})

	if ov := r.tpl.Overlay; ov != nil && ov.Over == slot.Name {
		r.drawOverlay(s, item, *ov, rect, plan)
	}
	return cursor + consumed + gap, nil
}

func (r *Renderer) drawOverlay(s renderer.Surface, item binding.Item, ov Overlay, under layout.Rect, plan *layout.RenderPlan) {
	if ov.Key == nil || ov.Provider == nil || ov.Ratio <= 0 {
		return
	}
	size := int(float64(min(under.W, under.H)) * ov.Ratio)
	if size <= 0 {
		return
	}
	key, err := binding.Expand(ov.Key, item)
	if err != nil {
		r.logger.Warn("叠加二维码模板展开失败", "item", plan.Item, "err", err)
		return
	}
	img, err := loadImage(ov.Provider, key)
	if err != nil {
		r.logger.Warn("叠加二维码不可用", "path", key, "item", plan.Item, "err", err)
		return
	}
	rect := layout.Rect{X: layout.CenterX(under, size), Y: layout.CenterY(under, size), W: size, H: size}
	s.DrawImage(img, rect)
	plan.Add(layout.Block{Kind: layout.BlockQR, Slot: "overlay", Rect: rect, Source: key, Overlay: true})
}

func loadImage(p assets.Provider, key string) (image.Image, error) {
	if strings.TrimSpace(key) == "" {
		return nil, assets.NotFound("<empty>")
	}
	return p.Image(key)
}

func (r *Renderer) placeholderLabel(slot ImageSlot) string {
	switch {
	case slot.Placeholder != "":
		return slot.Placeholder
	case slot.Kind == layout.BlockQR:
		return "QR Not Found"
	default:
		return r.title.String(slot.Name) + " Not Found"
	}
}

// placeholder 画出与盒子同尺寸的浅色框与居中标签。
func (r *Renderer) placeholder(s renderer.Surface, box layout.Rect, label string) {
	drawPlaceholder(s, box, label, r.tpl.PlaceholderStyle, r.tpl.PlaceholderFill, r.tpl.PlaceholderLine)
}

func drawPlaceholder(s renderer.Surface, box layout.Rect, label string, style renderer.TextStyle, fill, line layout.Color) {
	s.FillRect(box, fill)
	s.StrokeRect(box, line, 2)
	lh := s.LineHeight(style)
	s.DrawText(style, renderer.CenterText(s, style, box, label), layout.CenterY(box, lh), label)
}
