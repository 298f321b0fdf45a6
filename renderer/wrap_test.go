package renderer_test

import (
	"reflect"
	"testing"

	"github.com/ByLCY/sleuthprint/renderer"
	"github.com/ByLCY/sleuthprint/renderer/rendertest"
)

func TestWrapPixels(t *testing.T) {
	s := &rendertest.Recorder{W: 100, H: 100}
	style := renderer.TextStyle{Size: 10} // 每字符 5px

	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"fits", "hello", 50, []string{"hello"}},
		{"break on space", "hello world again", 50, []string{"hello", "world", "again"}},
		{"pack words", "ab cd ef gh", 50, []string{"ab cd ef", "gh"}},
		{"split long word", "abcdefghijklmn", 25, []string{"abcde", "fghij", "klmn"}},
		{"newline kept", "ab\n\ncd", 50, []string{"ab", "", "cd"}},
		{"no limit", "a b\nc", 0, []string{"a b", "c"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := renderer.WrapPixels(s, style, tc.text, tc.limit)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("折行结果 %q，期望 %q", got, tc.want)
			}
		})
	}
}

func TestWrapPixelsWithinLimit(t *testing.T) {
	s := &rendertest.Recorder{W: 100, H: 100}
	style := renderer.TextStyle{Size: 12}
	text := "The quick brown fox jumps over the extraordinarily lazy dog beside the riverbank"
	for _, limit := range []int{30, 60, 100, 250} {
		for _, line := range renderer.WrapPixels(s, style, text, limit) {
			if w := s.MeasureText(style, line); w > limit {
				t.Fatalf("limit %d: 行 %q 宽 %d 超出", limit, line, w)
			}
		}
	}
}
