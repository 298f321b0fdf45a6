package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 本文件定义带单位的长度与行高，以及到设备像素的换算。

// Unit represents the unit a length was written in.
type Unit int

const (
	UnitNone Unit = iota // 无单位数字（配置中按英寸解释）
	UnitMM
	UnitCM
	UnitIN
	UnitPT
	UnitPX // 设备像素，不随 dpi 缩放
)

// Conversion constants between pt, mm and inches.
const (
	PtToMm  = 0.352777
	MmToPt  = 1.0 / PtToMm
	MmPerIn = 25.4
	PtPerIn = 72.0
)

// 配置里的裸数字按英寸解释。
const unitless = UnitIN

// UnitToString returns a short suffix for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Inches is shorthand for a length in inches.
func Inches(v float64) Length { return Length{Value: v, Unit: UnitIN} }

// Points is shorthand for a length in points.
func Points(v float64) Length { return Length{Value: v, Unit: UnitPT} }

func (l Length) IsZero() bool { return l.Value == 0 }

// ToIN converts to inches; pixel lengths have no physical size and are returned as-is.
func (l Length) ToIN() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value / MmPerIn
	case UnitCM:
		return l.Value * 10 / MmPerIn
	case UnitPT:
		return l.Value / PtPerIn
	default:
		return l.Value
	}
}

func (l Length) ToMM() float64 { return l.ToIN() * MmPerIn }
func (l Length) ToPT() float64 { return l.ToIN() * PtPerIn }

// Pixels 按 round(英寸 × dpi) 换算为整数像素；px 长度直接取整。
func (l Length) Pixels(dpi float64) int {
	if l.Unit == UnitPX {
		return int(math.Round(l.Value))
	}
	return int(math.Round(l.ToIN() * dpi))
}

func (l Length) String() string {
	suffix := UnitToString(l.Unit)
	if suffix == "" {
		suffix = UnitToString(unitless)
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + suffix
}

// ParseLength parses "2.5", "63.5mm", "6cm", "2in", "144pt" or "12px".
// Bare numbers are inches.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("空长度")
	}
	unit := unitless
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析长度 %q", value)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return Length{}, fmt.Errorf("长度必须为非负有限数：%q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// UnmarshalJSON accepts either a bare number (inches) or a unit string.
func (l *Length) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return l.fromAny(raw)
}

// UnmarshalTOML implements toml.Unmarshaler.
func (l *Length) UnmarshalTOML(v any) error { return l.fromAny(v) }

func (l *Length) fromAny(raw any) error {
	switch x := raw.(type) {
	case float64:
		parsed, err := ParseLength(strconv.FormatFloat(x, 'f', -1, 64))
		if err != nil {
			return err
		}
		*l = parsed
	case int64:
		parsed, err := ParseLength(strconv.FormatInt(x, 10))
		if err != nil {
			return err
		}
		*l = parsed
	case string:
		parsed, err := ParseLength(x)
		if err != nil {
			return err
		}
		*l = parsed
	case map[string]any:
		// 兼容 MarshalJSON 的 {value, unit} 形式，便于调试 JSON 回读
		val, _ := x["value"].(float64)
		unit, _ := x["unit"].(float64)
		*l = Length{Value: val, Unit: Unit(unit)}
	default:
		return fmt.Errorf("长度类型不支持：%T", raw)
	}
	return nil
}

// LineHeightKind distinguishes factor-based vs absolute line heights.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec is either a factor of the font size ("1.2x") or an absolute length ("13pt").
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight parses "1.2x" (factor of the font size), a bare number (points) or a
// length with unit.
func ParseLineHeight(value string) (LineHeightSpec, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if strings.HasSuffix(v, "x") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
		if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return LineHeightSpec{}, fmt.Errorf("行高系数必须为正数：%q", value)
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f}, nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return lineHeightPoints(f)
	}
	l, err := ParseLength(value)
	if err != nil {
		return LineHeightSpec{}, err
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, nil
}

// lineHeightPoints 与 Style 中其他度量一致，裸数字按 pt 解释。
func lineHeightPoints(f float64) (LineHeightSpec, error) {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return LineHeightSpec{}, fmt.Errorf("行高必须为正数：%g", f)
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: Points(f)}, nil
}

// UnmarshalText lets JSON and TOML strings decode into a LineHeightSpec.
func (s *LineHeightSpec) UnmarshalText(text []byte) error {
	parsed, err := ParseLineHeight(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalJSON accepts a bare number (points) or a string such as "1.2x" or "13pt".
func (s *LineHeightSpec) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return s.fromAny(raw)
}

// UnmarshalTOML implements toml.Unmarshaler.
func (s *LineHeightSpec) UnmarshalTOML(v any) error { return s.fromAny(v) }

func (s *LineHeightSpec) fromAny(raw any) error {
	var (
		parsed LineHeightSpec
		err    error
	)
	switch x := raw.(type) {
	case float64:
		parsed, err = lineHeightPoints(x)
	case int64:
		parsed, err = lineHeightPoints(float64(x))
	case string:
		parsed, err = ParseLineHeight(x)
	default:
		return fmt.Errorf("行高类型不支持：%T", raw)
	}
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// IsZero reports whether the line height was left unset.
func (s LineHeightSpec) IsZero() bool {
	return s.Factor == 0 && s.Len.IsZero()
}

// Pixels 根据字号（pt）计算行高像素；未设置时回退到 1.4 倍字号。
func (s LineHeightSpec) Pixels(fontSizePt, dpi float64) int {
	switch {
	case s.Kind == LineHeightAbsolute && !s.Len.IsZero():
		return s.Len.Pixels(dpi)
	case s.Kind == LineHeightFactor && s.Factor > 0:
		return Points(fontSizePt * s.Factor).Pixels(dpi)
	default:
		return Points(fontSizePt * 1.4).Pixels(dpi)
	}
}
