package layout

import (
	"fmt"
	"strings"
)

// FitMode selects how an image is sized into its box.
type FitMode int

const (
	// FitContain 等比缩小放入盒子，从不放大。
	FitContain FitMode = iota
	// FitFixedSquare 强制输出为盒子尺寸（用于二维码，保证打印尺寸可扫描）。
	FitFixedSquare
)

func (m FitMode) String() string {
	if m == FitFixedSquare {
		return "fixed-square"
	}
	return "contain"
}

// ParseFitMode maps "contain" / "fixed-square" (and a few aliases) to a FitMode.
func ParseFitMode(s string) (FitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contain", "fit", "thumbnail":
		return FitContain, nil
	case "fixed-square", "fixed", "square", "exact":
		return FitFixedSquare, nil
	default:
		return FitContain, fmt.Errorf("未知的图片适配模式：%q", s)
	}
}

// Fit computes the drawn size of an image of native size nw×nh inside a bw×bh box.
// Any non-positive dimension yields (0, 0); otherwise both sides are at least 1.
func Fit(nw, nh, bw, bh int, mode FitMode) (int, int) {
	if nw <= 0 || nh <= 0 || bw <= 0 || bh <= 0 {
		return 0, 0
	}
	if mode == FitFixedSquare {
		return bw, bh
	}
	if nw <= bw && nh <= bh {
		return nw, nh
	}
	// scale = min(bw/nw, bh/nh)，使用整数交叉相乘避免浮点误差，结果向下取整；
	// 极端长宽比下短边至少保留 1px
	if int64(bw)*int64(nh) <= int64(bh)*int64(nw) {
		// 宽度受限
		return bw, max(1, int(int64(nh)*int64(bw)/int64(nw)))
	}
	return max(1, int(int64(nw)*int64(bh)/int64(nh))), bh
}

// CenterX returns the left edge that horizontally centers a w-wide element in box.
func CenterX(box Rect, w int) int { return box.CenterX() - w/2 }

// CenterY returns the top edge that vertically centers an h-tall element in box.
func CenterY(box Rect, h int) int { return box.CenterY() - h/2 }

// Place fits an image into box and centers it horizontally at the top of the box.
// When vcenter is set the image is also centered vertically.
func Place(nw, nh int, box Rect, mode FitMode, vcenter bool) Rect {
	w, h := Fit(nw, nh, box.W, box.H, mode)
	r := Rect{X: CenterX(box, w), Y: box.Y, W: w, H: h}
	if vcenter {
		r.Y = CenterY(box, h)
	}
	return r
}
