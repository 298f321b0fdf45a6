package assets

import (
	"image"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/ByLCY/sleuthprint/apperr"
)

// QRProvider 把载荷（通常是 URL）即时编码为二维码图片。
type QRProvider struct {
	Level qr.ErrorCorrectionLevel
	// Size 为输出边长（像素）；小于模块数时按模块数输出
	Size int
}

var _ Provider = QRProvider{}

// NewQRProvider returns a medium error-correction encoder producing size×size images.
func NewQRProvider(size int) QRProvider {
	return QRProvider{Level: qr.M, Size: size}
}

// Image encodes payload as a QR code.
func (p QRProvider) Image(payload string) (image.Image, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, NotFound("<empty qr payload>")
	}
	code, err := qr.Encode(payload, p.Level, qr.Auto)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAssetDecode, err, "生成二维码失败：%q", payload)
	}
	size := p.Size
	if n := code.Bounds().Dx(); size < n {
		size = n
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAssetDecode, err, "缩放二维码失败：%q", payload)
	}
	return scaled, nil
}
