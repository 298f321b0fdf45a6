// Package assets 提供按逻辑键加载图片的 Provider：文件系统图片与即时生成的二维码。
// 找不到资源是正常结果（ASSET_NOT_FOUND），由调用方绘制占位框。
package assets

import (
	"image"

	"github.com/ByLCY/sleuthprint/apperr"
)

// Provider resolves a logical key to an image of known pixel size.
type Provider interface {
	Image(key string) (image.Image, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(key string) (image.Image, error)

func (f ProviderFunc) Image(key string) (image.Image, error) { return f(key) }

// NotFound builds the error returned for a missing asset.
func NotFound(key string) error {
	return apperr.New(apperr.CodeAssetNotFound, "资源不存在：%s", key)
}

// IsNotFound reports whether err marks a missing asset.
func IsNotFound(err error) bool { return apperr.Is(err, apperr.CodeAssetNotFound) }

// Size returns the pixel dimensions of img.
func Size(img image.Image) (int, int) {
	if img == nil {
		return 0, 0
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}
