// Package cipherbox provides authenticated encryption for fields persisted by
// the candidate store. A Box holds a single process-wide key; every payload is
// sealed with a fresh random nonce which is prepended to the ciphertext.
package cipherbox

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned when a ciphertext fails to authenticate. Callers must
// treat it as corruption, never as an empty value.
var ErrDecrypt = errors.New("ciphertext failed to decrypt")

type Box struct {
	aead cipher.AEAD
}

// New creates a Box from a raw symmetric key of chacha20poly1305.KeySize bytes.
func New(key []byte) (*Box, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	return &Box{aead: aead}, nil
}

// Encrypt seals the plaintext and returns nonce||ciphertext.
func (b *Box) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, b.aead.NonceSize(), b.aead.NonceSize()+len(plaintext)+b.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce||ciphertext payload produced by Encrypt.
func (b *Box) Decrypt(payload []byte) ([]byte, error) {
	if len(payload) < b.aead.NonceSize() {
		return nil, ErrDecrypt
	}

	nonce, ciphertext := payload[:b.aead.NonceSize()], payload[b.aead.NonceSize():]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}

	return plaintext, nil
}

// EncryptString seals a string value. Empty strings encrypt to nil so that
// absent fields stay absent on disk.
func (b *Box) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return b.Encrypt([]byte(value))
}

// DecryptString opens a payload produced by EncryptString. A nil payload is an
// absent field and decrypts to the empty string.
func (b *Box) DecryptString(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	plaintext, err := b.Decrypt(payload)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptJSON marshals the value and seals the resulting document.
func (b *Box) EncryptJSON(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return b.Encrypt(data)
}

// DecryptJSON opens a payload produced by EncryptJSON and unmarshals it into
// target. A nil payload leaves target untouched.
func (b *Box) DecryptJSON(payload []byte, target any) error {
	if len(payload) == 0 {
		return nil
	}

	data, err := b.Decrypt(payload)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal decrypted payload: %w", err)
	}

	return nil
}
