package printing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const escrowNonceSize = 12

// Escrow seals agent API keys with AES-256-GCM so the download endpoint can
// recover the plaintext exactly once. Payload layout: nonce | tag+ciphertext,
// base64-encoded.
type Escrow struct {
	aead cipher.AEAD
}

// NewEscrow builds an Escrow from a base64-encoded 32-byte key.
func NewEscrow(keyBase64 string) (*Escrow, error) {
	if keyBase64 == "" {
		return nil, errors.New("download encryption key not configured")
	}
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("download encryption key must decode to 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Escrow{aead: aead}, nil
}

func (e *Escrow) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, escrowNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (e *Escrow) Decrypt(payloadBase64 string) (string, error) {
	buf, err := base64.StdEncoding.DecodeString(payloadBase64)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if len(buf) < escrowNonceSize {
		return "", errors.New("payload too short")
	}
	plaintext, err := e.aead.Open(nil, buf[:escrowNonceSize], buf[escrowNonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt payload: %w", err)
	}
	return string(plaintext), nil
}
