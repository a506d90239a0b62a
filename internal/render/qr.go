package render

import (
	"encoding/json"
	"fmt"

	"github.com/iamyinka/reliefproj/internal/domain"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer turns a voucher payload into an image.
type Renderer interface {
	Render(p domain.QRPayload) ([]byte, error)
}

// QRRenderer encodes the payload as JSON inside a PNG QR code.
type QRRenderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewQRRenderer() *QRRenderer {
	return &QRRenderer{Size: 300, Level: qrcode.Medium}
}

func (r *QRRenderer) Render(p domain.QRPayload) ([]byte, error) {
	content, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(string(content), r.Level, r.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR for %s: %w", p.Code, err)
	}
	return png, nil
}
