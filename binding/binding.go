// Package binding 负责把 JSON 数据绑定到条目与路径模板。
package binding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/sleuthprint/apperr"
	"github.com/ByLCY/sleuthprint/dsl"
)

// Item 是一个数据条目：字段名到值的映射，渲染过程中只读。
type Item map[string]any

// Get resolves a dotted/indexed path such as "owner.name" or "photos[0]".
func (it Item) Get(path string) (any, bool) {
	return Lookup(map[string]any(it), path)
}

// String returns the field as text, or "" when absent.
func (it Item) String(path string) string {
	v, ok := it.Get(path)
	if !ok {
		return ""
	}
	return dsl.Stringify(v)
}

// First returns the first non-empty field among paths.
func (it Item) First(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if s := strings.TrimSpace(it.String(p)); s != "" {
			return s
		}
	}
	return ""
}

// ID 返回用于日志的条目标识：优先 id 字段，否则为输入序号。
func (it Item) ID(index int) string {
	if s := it.String("id"); s != "" {
		return s
	}
	if s := it.String("name"); s != "" {
		return s
	}
	return "#" + strconv.Itoa(index)
}

// Lookup resolves path within data.
func Lookup(data any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case Item:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	c, ok := current.([]any)
	if !ok || idx < 0 || idx >= len(c) {
		return nil, false
	}
	return c[idx], true
}

// SelectItems 从解码后的 JSON 中取出条目列表：
// 顶层为数组时直接使用；否则按 key（可为点分路径）取数组。
func SelectItems(data any, key string) ([]Item, error) {
	list, ok := data.([]any)
	if !ok {
		if key == "" {
			return nil, apperr.New(apperr.CodeInvalidConfig, "数据不是数组且未指定 data_key")
		}
		v, found := Lookup(data, key)
		if !found {
			return nil, apperr.New(apperr.CodeNoItems, "数据中不存在键 %q", key)
		}
		if list, ok = v.([]any); !ok {
			return nil, apperr.New(apperr.CodeInvalidConfig, "键 %q 对应的值不是数组（%T）", key, v)
		}
	}
	items := make([]Item, 0, len(list))
	for i, raw := range list {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, apperr.New(apperr.CodeInvalidConfig, "第 %d 个条目不是对象（%T）", i, raw)
		}
		items = append(items, Item(m))
	}
	return items, nil
}

// Expand fills tpl with item's fields.
func Expand(tpl *dsl.Template, item Item) (string, error) {
	if tpl == nil {
		return "", nil
	}
	return tpl.Execute(item.Get)
}

// Validate 在加载阶段检查每个模板引用的字段在每个条目中都存在，并能按格式说明格式化。
func Validate(templates map[string]*dsl.Template, items []Item) error {
	for name, tpl := range templates {
		if tpl == nil {
			continue
		}
		for i, item := range items {
			if _, err := Expand(tpl, item); err != nil {
				return apperr.Wrap(apperr.CodeInvalidTemplate, err, "%s 无法用于条目 %s", name, item.ID(i))
			}
		}
	}
	return nil
}

// Describe 用于日志：列出模板引用的字段。
func Describe(tpl *dsl.Template) string {
	if tpl == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s %v", tpl, tpl.Fields())
}
