package claim

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// ImageSize is the edge length in pixels of rendered QR codes
const ImageSize = 256

// RenderPNG encodes payload as a QR code PNG
func RenderPNG(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, ImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}

// RenderDataURL renders payload and wraps the PNG as a data: URL for <img src>
func RenderDataURL(payload string) (string, error) {
	png, err := RenderPNG(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
