// Package dsl 解析资源路径模板，例如 "fact_images/fact_{id:02d}.png"。
//
// 语法：
//   - {field} 或 {field:spec} 插入条目字段，field 可为点分路径（owner.name）或带下标（photos[0]）
//   - spec 支持 [0][width][.precision][d|s|f|x|X]
//   - {{ 与 }} 表示字面量花括号
package dsl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	templateLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Escape", Pattern: `\{\{|\}\}`},
		{Name: "Field", Pattern: `\{[^{}]*\}`},
		{Name: "Text", Pattern: `[^{}]+`},
		{Name: "Stray", Pattern: `[{}]`},
	})

	templateParser = participle.MustBuild[Template](
		participle.Lexer(templateLexer),
	)

	fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+|\[\d+\])*$`)
	specPattern      = regexp.MustCompile(`^(0)?(\d*)(?:\.(\d+))?([dsfxX]?)$`)
)

// Template is a parsed path template.
type Template struct {
	Parts []*Part `parser:"@@*"`

	source string
}

// Part is one literal run, escaped brace or placeholder.
type Part struct {
	Escape *string `parser:"  @Escape"`
	Field  *Field  `parser:"| @Field"`
	Text   *string `parser:"| @Text"`
}

// Field is a {name:spec} placeholder.
type Field struct {
	Name string
	Spec Spec
}

// Capture implements participle.Capture for the raw "{...}" token.
func (f *Field) Capture(values []string) error {
	raw := strings.TrimSuffix(strings.TrimPrefix(strings.Join(values, ""), "{"), "}")
	name, spec, _ := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("占位符缺少字段名：{%s}", raw)
	}
	if !fieldNamePattern.MatchString(name) {
		return fmt.Errorf("非法字段名 %q", name)
	}
	parsed, err := ParseSpec(spec)
	if err != nil {
		return err
	}
	f.Name = name
	f.Spec = parsed
	return nil
}

// Spec 为格式说明的子集：零填充、宽度、精度与类型。
type Spec struct {
	Zero      bool
	Width     int
	Precision int // -1 表示未指定
	Verb      byte
}

// ParseSpec parses the part after ':' in a placeholder.
func ParseSpec(s string) (Spec, error) {
	m := specPattern.FindStringSubmatch(s)
	if m == nil {
		return Spec{}, fmt.Errorf("不支持的格式说明 %q", s)
	}
	spec := Spec{Zero: m[1] == "0", Precision: -1}
	if m[2] != "" {
		spec.Width, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		spec.Precision, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		spec.Verb = m[4][0]
	}
	return spec, nil
}

// Format renders v according to the format s.
func (s Spec) Format(v any) (string, error) {
	switch s.Verb {
	case 'd', 'x', 'X':
		n, ok := asInt(v)
		if !ok {
			return "", fmt.Errorf("格式 %q 需要整数，实际为 %v (%T)", string(s.Verb), v, v)
		}
		return fmt.Sprintf(s.verb(false), n), nil
	case 'f':
		f, ok := asFloat(v)
		if !ok {
			return "", fmt.Errorf("格式 \"f\" 需要数字，实际为 %v (%T)", v, v)
		}
		if s.Precision < 0 {
			s.Precision = 6
		}
		return fmt.Sprintf(s.verb(true), f), nil
	default:
		str := Stringify(v)
		if s.Zero && s.Width > 0 {
			// 数字字段使用 {id:03} 时按整数补零
			if n, ok := asInt(v); ok {
				s.Verb = 'd'
				return fmt.Sprintf(s.verb(false), n), nil
			}
		}
		if s.Precision >= 0 {
			if r := []rune(str); len(r) > s.Precision {
				str = string(r[:s.Precision])
			}
		}
		if pad := s.Width - len([]rune(str)); pad > 0 {
			str += strings.Repeat(" ", pad)
		}
		return str, nil
	}
}

func (s Spec) verb(withPrecision bool) string {
	var b strings.Builder
	b.WriteByte('%')
	if s.Zero {
		b.WriteByte('0')
	}
	if s.Width > 0 {
		b.WriteString(strconv.Itoa(s.Width))
	}
	if withPrecision && s.Precision >= 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(s.Precision))
	}
	b.WriteByte(s.Verb)
	return b.String()
}

// Stringify 将 JSON 解码得到的值转为字符串：整数值的 float64 不带小数点。
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if n, ok := asInt(x); ok {
			return strconv.FormatInt(n, 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	case fmt.Stringer:
		n, err := strconv.ParseInt(x.String(), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if n, ok := asInt(v); ok {
		return float64(n), true
	}
	return 0, false
}

// Lookup resolves a placeholder field name to a value.
type Lookup func(field string) (any, bool)

// MissingFieldError reports a placeholder whose field is absent.
type MissingFieldError struct {
	Template string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("模板 %q 引用了不存在的字段 %q", e.Template, e.Field)
}

// Parse parses a template string.
func Parse(src string) (*Template, error) {
	if src == "" {
		return &Template{}, nil
	}
	tpl, err := templateParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("解析模板 %q 失败: %w", src, err)
	}
	tpl.source = src
	return tpl, nil
}

// MustParse is Parse that panics on error, for package-level templates.
func MustParse(src string) *Template {
	tpl, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return tpl
}

func (t *Template) String() string { return t.source }

// Fields returns the distinct placeholder names in order of appearance.
func (t *Template) Fields() []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range t.Parts {
		if p.Field != nil && !seen[p.Field.Name] {
			seen[p.Field.Name] = true
			out = append(out, p.Field.Name)
		}
	}
	return out
}

// Execute expands the template using lookup.
func (t *Template) Execute(lookup Lookup) (string, error) {
	var b strings.Builder
	for _, p := range t.Parts {
		switch {
		case p.Escape != nil:
			b.WriteString((*p.Escape)[:1])
		case p.Text != nil:
			b.WriteString(*p.Text)
		case p.Field != nil:
			v, ok := lookup(p.Field.Name)
			if !ok {
				return "", &MissingFieldError{Template: t.source, Field: p.Field.Name}
			}
			s, err := p.Field.Spec.Format(v)
			if err != nil {
				return "", fmt.Errorf("模板 %q 字段 %q: %w", t.source, p.Field.Name, err)
			}
			b.WriteString(s)
		}
	}
	return b.String(), nil
}
