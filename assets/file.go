package assets

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/sleuthprint/apperr"
)

// defaultSVGSize 为缺少 viewBox 的 SVG 使用的栅格化边长。
const defaultSVGSize = 512

// FileProvider loads images from disk relative to a root directory and caches the decoded result.
type FileProvider struct {
	root   string
	logger *log.Logger
	// SVGScale 为 SVG 栅格化倍率：viewBox 单位 × SVGScale = 像素
	SVGScale float64

	mu    sync.Mutex
	cache map[string]image.Image
}

var _ Provider = (*FileProvider)(nil)

// NewFileProvider creates a provider rooted at root. A nil logger disables logging.
func NewFileProvider(root string, logger *log.Logger) *FileProvider {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &FileProvider{
		root:     root,
		logger:   logger,
		SVGScale: 1,
		cache:    map[string]image.Image{},
	}
}

// Resolve returns the filesystem path for key.
func (p *FileProvider) Resolve(key string) string {
	if filepath.IsAbs(key) || p.root == "" {
		return filepath.Clean(key)
	}
	return filepath.Join(p.root, key)
}

// Image loads and decodes the image at key.
func (p *FileProvider) Image(key string) (image.Image, error) {
	if strings.TrimSpace(key) == "" {
		return nil, NotFound("<empty>")
	}
	path := p.Resolve(key)

	p.mu.Lock()
	img, ok := p.cache[path]
	p.mu.Unlock()
	if ok {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotFound(path)
		}
		return nil, apperr.Wrap(apperr.CodeAssetDecode, err, "读取图片 %s 失败", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		img, err = p.decodeSVG(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAssetDecode, err, "解码图片 %s 失败", path)
	}
	w, h := Size(img)
	p.logger.Debug("loaded image", "path", path, "width", w, "height", h)

	p.mu.Lock()
	p.cache[path] = img
	p.mu.Unlock()
	return img, nil
}

func (p *FileProvider) decodeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	scale := p.SVGScale
	if scale <= 0 {
		scale = 1
	}
	w, h := int(icon.ViewBox.W*scale), int(icon.ViewBox.H*scale)
	if w <= 0 || h <= 0 {
		w, h = defaultSVGSize, defaultSVGSize
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return rgba, nil
}
