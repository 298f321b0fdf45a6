package binding

import (
	"encoding/json"
	"testing"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/dsl"
)

func decode(t *testing.T, src string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(src), &v); err != nil {
		t.Fatalf("解析 JSON 失败: %v", err)
	}
	return v
}

func TestLookup(t *testing.T) {
	data := decode(t, `{"user":{"name":"Ada","tags":["a","b"]},"items":[{"sku":"x"}]}`)
	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"user.name", "Ada", true},
		{"user.tags[1]", "b", true},
		{"items[0].sku", "x", true},
		{"items[3].sku", nil, false},
		{"user.missing", nil, false},
		{"", nil, false},
	}
	for _, tt := range tests {
		got, ok := Lookup(data, tt.path)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Lookup(%q) = %v,%v want %v,%v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSelectItems(t *testing.T) {
	items, err := SelectItems(decode(t, `{"characters":[{"id":1},{"id":2}]}`), "characters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[1].String("id") != "2" {
		t.Fatalf("items = %v", items)
	}

	items, err = SelectItems(decode(t, `[{"id":"a"}]`), "ignored")
	if err != nil || len(items) != 1 {
		t.Fatalf("顶层数组应直接使用: %v %v", items, err)
	}

	if _, err := SelectItems(decode(t, `{"facts":[]}`), "clues"); !apperr.Is(err, apperr.CodeNoItems) {
		t.Fatalf("缺少键应返回 NO_ITEMS，实际 %v", err)
	}
	if _, err := SelectItems(decode(t, `{"facts":{"a":1}}`), "facts"); !apperr.Is(err, apperr.CodeInvalidConfig) {
		t.Fatalf("非数组应返回 INVALID_CONFIG，实际 %v", err)
	}
	if _, err := SelectItems(decode(t, `{"facts":[1,2]}`), "facts"); !apperr.Is(err, apperr.CodeInvalidConfig) {
		t.Fatalf("非对象条目应返回 INVALID_CONFIG，实际 %v", err)
	}
}

func TestItemHelpers(t *testing.T) {
	it := Item{"id": float64(3), "title": "  ", "name": "Butler"}
	if it.ID(0) != "3" {
		t.Fatalf("ID = %q", it.ID(0))
	}
	if (Item{}).ID(5) != "#5" {
		t.Fatalf("无 id 时应使用序号")
	}
	if got := it.First("title", "", "name"); got != "Butler" {
		t.Fatalf("First = %q", got)
	}
}

func TestExpandAndValidate(t *testing.T) {
	tpl := dsl.MustParse("fact_images/fact_{id:02d}.png")
	got, err := Expand(tpl, Item{"id": float64(4)})
	if err != nil || got != "fact_images/fact_04.png" {
		t.Fatalf("Expand = %q, %v", got, err)
	}
	if got, err := Expand(nil, Item{}); err != nil || got != "" {
		t.Fatalf("nil 模板应展开为空")
	}

	items := []Item{{"id": float64(1)}, {"name": "no id"}}
	err = Validate(map[string]*dsl.Template{"image_path_template": tpl}, items)
	if !apperr.Is(err, apperr.CodeInvalidTemplate) {
		t.Fatalf("缺少字段应返回 INVALID_TEMPLATE，实际 %v", err)
	}
	if err := Validate(map[string]*dsl.Template{"image_path_template": tpl}, items[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
