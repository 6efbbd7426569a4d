package pass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skip2/go-qrcode"

	"ms-booking/internal/models"
)

// Reference is the booking data sealed inside a pass.
type Reference struct {
	BookingID int64     `json:"booking_id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	Quantity  int       `json:"quantity"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Generator seals booking references with AES-GCM and renders them as QR codes.
type Generator struct {
	aead cipher.AEAD
	size int
}

func NewGenerator(secret string) (*Generator, error) {
	key := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Generator{aead: aead, size: 256}, nil
}

// Seal returns the URL-safe token a pass encodes.
func (g *Generator) Seal(b *models.Booking) (string, error) {
	data, err := json.Marshal(Reference{
		BookingID: b.ID,
		EventID:   b.EventID,
		UserID:    b.UserID,
		Quantity:  b.Quantity,
		IssuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open verifies and decrypts a token produced by Seal.
func (g *Generator) Open(token string) (*Reference, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed pass", models.ErrValidation)
	}
	ns := g.aead.NonceSize()
	if len(raw) < ns {
		return nil, fmt.Errorf("%w: malformed pass", models.ErrValidation)
	}
	data, err := g.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: pass failed verification", models.ErrValidation)
	}

	var ref Reference
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, errors.New("pass payload corrupt")
	}
	return &ref, nil
}

// PNG renders the booking's pass as a QR code image.
func (g *Generator) PNG(b *models.Booking) ([]byte, error) {
	token, err := g.Seal(b)
	if err != nil {
		return nil, fmt.Errorf("seal pass: %w", err)
	}
	return qrcode.Encode(token, qrcode.Medium, g.size)
}
