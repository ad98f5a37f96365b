package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/skip2/go-qrcode"
)

// ImageSize is the edge length in pixels of generated QR images.
const ImageSize = 256

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// GenerateToken derives the admission token for a ticket. It is a pure
// function of its inputs: an HMAC over event, profile and nanosecond
// timestamp, encoded as unpadded base64url.
func (q *QRGenerator) GenerateToken(eventID, profileID string, ts time.Time) string {
	mac := hmac.New(sha256.New, q.secret)
	mac.Write([]byte(eventID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(profileID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(ts.UnixNano(), 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// EncodeForScan renders token as a PNG QR code whose content is exactly the
// token, so a scanner reads back the value stored on the ticket.
func (q *QRGenerator) EncodeForScan(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	png, err := qrcode.Encode(token, qrcode.Medium, ImageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
