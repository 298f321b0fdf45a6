package dsl_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ByLCY/sleuthprint/dsl"
)

func lookupFrom(m map[string]any) dsl.Lookup {
	return func(field string) (any, bool) {
		v, ok := m[field]
		return v, ok
	}
}

func TestTemplateExecute(t *testing.T) {
	item := map[string]any{
		"id":    float64(7),
		"name":  "butler",
		"ratio": 0.333,
		"hex":   float64(255),
	}
	tests := []struct {
		src  string
		want string
	}{
		{"fact_images/fact_{id:02d}.png", "fact_images/fact_07.png"},
		{"characters/{name}.png", "characters/butler.png"},
		{"{id}", "7"},
		{"{id:03}", "007"},
		{"{ratio:.2f}", "0.33"},
		{"{hex:x}-{hex:X}", "ff-FF"},
		{"{name:.3}", "but"},
		{"{name:8}|", "butler  |"},
		{"{{literal}} {id}", "{literal} 7"},
		{"plain.png", "plain.png"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tpl, err := dsl.Parse(tt.src)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			got, err := tpl.Execute(lookupFrom(item))
			if err != nil {
				t.Fatalf("execute failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Execute = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTemplateFields(t *testing.T) {
	tpl, err := dsl.Parse("qr/{kind}/{id:02d}_{kind}_{owner.name}.png")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := []string{"kind", "id", "owner.name"}
	if got := tpl.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields = %v, want %v", got, want)
	}
	if tpl.String() != "qr/{kind}/{id:02d}_{kind}_{owner.name}.png" {
		t.Fatalf("String 应返回原始模板")
	}
}

func TestTemplateParseErrors(t *testing.T) {
	for _, src := range []string{
		"unclosed {id",
		"stray } brace",
		"{}",
		"{id:zz}",
		"{9lives}",
		"{a{b}}",
	} {
		if _, err := dsl.Parse(src); err == nil {
			t.Errorf("Parse(%q) 应失败", src)
		}
	}
}

func TestTemplateMissingField(t *testing.T) {
	tpl := dsl.MustParse("img/{portrait}.png")
	_, err := tpl.Execute(lookupFrom(map[string]any{"id": 1.0}))
	var missing *dsl.MissingFieldError
	if !errors.As(err, &missing) || missing.Field != "portrait" {
		t.Fatalf("err = %v, want MissingFieldError(portrait)", err)
	}
}

func TestTemplateTypeMismatch(t *testing.T) {
	tpl := dsl.MustParse("{name:02d}")
	if _, err := tpl.Execute(lookupFrom(map[string]any{"name": "x"})); err == nil {
		t.Fatalf("字符串使用 d 格式应报错")
	}
	tpl = dsl.MustParse("{id:d}")
	if _, err := tpl.Execute(lookupFrom(map[string]any{"id": 1.5})); err == nil {
		t.Fatalf("非整数使用 d 格式应报错")
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"a", "a"},
		{float64(12), "12"},
		{1.25, "1.25"},
		{true, "true"},
		{int64(-3), "-3"},
	}
	for _, tt := range tests {
		if got := dsl.Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
