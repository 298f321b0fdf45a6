// Package fonts 按角色（标题/正文/标签/斜体）提供字体，按配置的回退链逐个尝试，
// 全部失败时使用内置的 Go 字体。
package fonts

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tdewolff/canvas"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Role is a logical font slot.
type Role string

const (
	RoleTitle  Role = "title"
	RoleBody   Role = "body"
	RoleLabel  Role = "label"
	RoleItalic Role = "italic"
	RoleHeader Role = "header"
)

// Roles lists every role in a stable order.
var Roles = []Role{RoleTitle, RoleBody, RoleLabel, RoleItalic, RoleHeader}

var embedded = map[string][]byte{
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:gobold" 或 "gobold"。
func Load(name string) ([]byte, error) {
	key := strings.TrimPrefix(strings.TrimSpace(name), "embed:")
	data, ok := embedded[key]
	if !ok {
		return nil, fmt.Errorf("内置字体 %s 不存在", key)
	}
	return data, nil
}

// fallbackFor 为各角色选择内置回退字体。
func fallbackFor(role Role) string {
	switch role {
	case RoleTitle, RoleHeader:
		return "gobold"
	case RoleItalic:
		return "goitalic"
	default:
		return "goregular"
	}
}

// Provider resolves roles to canvas font families and caches them.
type Provider struct {
	chains map[Role][]string
	logger *log.Logger

	mu       sync.Mutex
	families map[Role]*canvas.FontFamily
	sources  map[Role]string
}

// New creates a provider. chains maps each role to font paths tried in order;
// entries starting with "embed:" name a built-in font.
func New(chains map[Role][]string, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Provider{
		chains:   chains,
		logger:   logger,
		families: map[Role]*canvas.FontFamily{},
		sources:  map[Role]string{},
	}
}

// Family returns the font family for role, loading it on first use.
func (p *Provider) Family(role Role) *canvas.FontFamily {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fam, ok := p.families[role]; ok {
		return fam
	}
	fam, src := p.load(role)
	p.families[role] = fam
	p.sources[role] = src
	return fam
}

// Source reports which font file served role ("" before first use).
func (p *Provider) Source(role Role) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sources[role]
}

// Face returns a face of sizePt points for role.
func (p *Provider) Face(role Role, sizePt float64, col color.Color) *canvas.FontFace {
	return p.Family(role).Face(sizePt, col, canvas.FontRegular, canvas.FontNormal)
}

func (p *Provider) load(role Role) (*canvas.FontFamily, string) {
	chain := p.chains[role]
	if len(chain) == 0 && role != RoleBody {
		// 未单独配置的角色沿用正文字体链
		chain = p.chains[RoleBody]
	}
	for _, src := range chain {
		data, err := readFont(src)
		if err != nil {
			p.logger.Debug("font candidate unavailable", "role", role, "src", src, "err", err)
			continue
		}
		fam := canvas.NewFontFamily(string(role))
		if err := fam.LoadFont(data, 0, canvas.FontRegular); err != nil {
			p.logger.Warn("字体解析失败，尝试下一个", "role", role, "src", src, "err", err)
			continue
		}
		return fam, src
	}
	name := fallbackFor(role)
	if len(chain) > 0 {
		p.logger.Warn("字体回退到内置字体", "role", role, "fallback", name)
	}
	fam := canvas.NewFontFamily(string(role) + "-fallback")
	if err := fam.LoadFont(embedded[name], 0, canvas.FontRegular); err != nil {
		// 内置字体不可能解析失败
		panic(fmt.Sprintf("fonts: built-in %s: %v", name, err))
	}
	return fam, "embed:" + name
}

func readFont(src string) ([]byte, error) {
	if strings.HasPrefix(src, "embed:") {
		return Load(src)
	}
	return os.ReadFile(src)
}
