package layout

import (
	"testing"

	"github.com/ByLCY/sleuthprint/apperr"
)

func letter(dpi float64) PageSpec {
	return PageSpec{Width: Inches(8.5), Height: Inches(11), Margin: Inches(0.5), DPI: dpi}
}

func TestResolveExplicitCenteredGrid(t *testing.T) {
	g, err := Resolve(letter(150), CellSpec{Width: Inches(3), Height: Inches(4)}, GridOptions{Columns: 2, Rows: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Page.Width != 1275 || g.Page.Height != 1650 || g.Page.Margin != 75 {
		t.Fatalf("页面像素不正确: %+v", g.Page)
	}
	if g.CellW != 450 || g.CellH != 600 {
		t.Fatalf("格子像素不正确: %dx%d", g.CellW, g.CellH)
	}
	if g.GapX != 75 || g.GapY != 100 {
		t.Fatalf("间隙不正确: gapX=%d gapY=%d", g.GapX, g.GapY)
	}
	if g.Capacity() != 4 {
		t.Fatalf("capacity = %d, want 4", g.Capacity())
	}
	if got := g.Slot(0); got != (Rect{X: 150, Y: 175, W: 450, H: 600}) {
		t.Fatalf("slot 0 = %+v", got)
	}
	if got := g.Slot(3); got != (Rect{X: 675, Y: 875, W: 450, H: 600}) {
		t.Fatalf("slot 3 = %+v", got)
	}
}

func TestResolveDerivedGrid(t *testing.T) {
	g, err := Resolve(letter(300), CellSpec{Width: Inches(2.5), Height: Inches(3.5)}, GridOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Columns != 3 || g.Rows != 2 {
		t.Fatalf("网格 = %dx%d, want 3x2", g.Columns, g.Rows)
	}
	if g.GapX != 0 || g.GapY != 300 {
		t.Fatalf("gap = %d/%d, want 0/300", g.GapX, g.GapY)
	}
}

func TestResolveRowMajorOrder(t *testing.T) {
	g, err := Resolve(letter(72), CellSpec{Width: Inches(2.5), Height: Inches(3.5)}, GridOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prev := g.Slot(0)
	for i := 1; i < g.Capacity(); i++ {
		s := g.Slot(i)
		if i%g.Columns == 0 {
			if s.Y <= prev.Y || s.X >= prev.X {
				t.Fatalf("slot %d 应换行: prev=%+v cur=%+v", i, prev, s)
			}
		} else if s.Y != prev.Y || s.X <= prev.X {
			t.Fatalf("slot %d 应在同一行右侧: prev=%+v cur=%+v", i, prev, s)
		}
		prev = s
	}
}

func TestCenteredSpacingNeverOverflows(t *testing.T) {
	for _, dpi := range []float64{72, 96, 150, 300} {
		for cw := 1.0; cw <= 7.5; cw += 0.35 {
			for ch := 1.0; ch <= 10; ch += 0.45 {
				g, err := Resolve(letter(dpi), CellSpec{Width: Inches(cw), Height: Inches(ch)}, GridOptions{})
				if err != nil {
					t.Fatalf("dpi=%g cell=%gx%g: unexpected error: %v", dpi, cw, ch, err)
				}
				if need := g.Columns*g.CellW + (g.Columns+1)*g.GapX; need > g.Page.UsableW {
					t.Fatalf("dpi=%g cell=%gx%g: 横向溢出 %d > %d", dpi, cw, ch, need, g.Page.UsableW)
				}
				if need := g.Rows*g.CellH + (g.Rows+1)*g.GapY; need > g.Page.UsableH {
					t.Fatalf("dpi=%g cell=%gx%g: 纵向溢出 %d > %d", dpi, cw, ch, need, g.Page.UsableH)
				}
				last := g.Slot(g.Capacity() - 1)
				if !g.Page.Usable().Contains(last) {
					t.Fatalf("dpi=%g cell=%gx%g: 最后一个格子越界 %+v", dpi, cw, ch, last)
				}
			}
		}
	}
}

func TestResolveFixedSpacing(t *testing.T) {
	page := letter(72)
	frame := CellSpec{Width: Inches(4), Height: Inches(6)}

	g, err := Resolve(page, frame, GridOptions{Spacing: SpacingFixed, Gap: Inches(0.5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Columns != 1 || g.Rows != 1 {
		t.Fatalf("网格 = %dx%d, want 1x1", g.Columns, g.Rows)
	}
	if got := g.Slot(0); got.X != 36 || got.Y != 36 {
		t.Fatalf("固定间距应从边距开始: %+v", got)
	}

	half, err := Resolve(page, CellSpec{Width: Inches(7.5), Height: Inches(5)}, GridOptions{Columns: 1, Rows: 2, Spacing: SpacingFixed})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := half.Slot(1); got != (Rect{X: 36, Y: 396, W: 540, H: 360}) {
		t.Fatalf("half slot 1 = %+v", got)
	}

	_, err = Resolve(page, frame, GridOptions{Columns: 2, Rows: 1, Spacing: SpacingFixed, Gap: Inches(0.5)})
	if !apperr.Is(err, apperr.CodeDegenerateGrid) {
		t.Fatalf("显式网格放不下时应返回 DEGENERATE_GRID，实际 %v", err)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		page PageSpec
		cell CellSpec
		code apperr.Code
	}{
		{"cell wider than page", letter(150), CellSpec{Width: Inches(8), Height: Inches(2)}, apperr.CodeDegenerateGrid},
		{"cell taller than page", letter(150), CellSpec{Width: Inches(2), Height: Inches(10.5)}, apperr.CodeDegenerateGrid},
		{"margin too big", PageSpec{Width: Inches(8.5), Height: Inches(11), Margin: Inches(4.25), DPI: 150}, CellSpec{Width: Inches(1), Height: Inches(1)}, apperr.CodeInvalidConfig},
		{"zero dpi", PageSpec{Width: Inches(8.5), Height: Inches(11), Margin: Inches(0.5)}, CellSpec{Width: Inches(1), Height: Inches(1)}, apperr.CodeInvalidConfig},
		{"zero cell", letter(150), CellSpec{}, apperr.CodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.page, tt.cell, GridOptions{})
			if !apperr.Is(err, tt.code) {
				t.Fatalf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestSlotOutOfRangePanics(t *testing.T) {
	g, err := Resolve(letter(72), CellSpec{Width: Inches(3), Height: Inches(4)}, GridOptions{Columns: 2, Rows: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("越界访问应 panic")
		}
	}()
	g.Slot(g.Capacity())
}

func TestDistribute(t *testing.T) {
	tests := []struct{ usable, size, n, want int }{
		{1125, 300, 2, 175},
		{1125, 450, 2, 75},
		{100, 30, 3, 2}, // 余数 2 被舍弃
		{100, 50, 0, 0},
		{100, 60, 2, 0},
	}
	for _, tt := range tests {
		if got := Distribute(tt.usable, tt.size, tt.n); got != tt.want {
			t.Errorf("Distribute(%d,%d,%d) = %d, want %d", tt.usable, tt.size, tt.n, got, tt.want)
		}
	}
}

func TestResolveSections(t *testing.T) {
	s, err := ResolveSections(letter(150), 485, 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Capacity() != 2 {
		t.Fatalf("capacity = %d, want 2", s.Capacity())
	}
	if got := s.Slot(1); got != (Rect{X: 75, Y: 640, W: 1125, H: 485}) {
		t.Fatalf("slot 1 = %+v", got)
	}
	if _, err := ResolveSections(letter(150), 2000, 0); !apperr.Is(err, apperr.CodeDegenerateGrid) {
		t.Fatalf("过高的分节应返回 DEGENERATE_GRID，实际 %v", err)
	}
}

func TestParseSpacing(t *testing.T) {
	if m, err := ParseSpacing(""); err != nil || m != SpacingCentered {
		t.Fatalf("默认应为 centered")
	}
	if m, err := ParseSpacing("Fixed"); err != nil || m != SpacingFixed {
		t.Fatalf("Fixed 解析失败")
	}
	if _, err := ParseSpacing("diagonal"); err == nil {
		t.Fatalf("未知模式应报错")
	}
}
