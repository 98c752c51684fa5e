// Package qrcode wraps the QR image encoder used for entry tokens.
// The encoder is a pure function from payload string to PNG bytes; all
// ticket validation happens against the database, never against data
// parsed out of a scanned image.
package qrcode

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the pixel size used for ticket QR images.
const DefaultSize = 300

// EncodePNG encodes the payload into a PNG QR image.  Medium error
// correction matches what standard mobile scanners expect.
func EncodePNG(payload string, size int) ([]byte, error) {
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("encode qr png: %w", err)
	}
	return png, nil
}

// EncodeDataURI encodes the payload into a base64 PNG data URI that a
// frontend can place directly into an <img> tag.
func EncodeDataURI(payload string, size int) (string, error) {
	png, err := EncodePNG(payload, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
