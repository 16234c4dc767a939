// Package crypto seals session values kept at rest with AES-256-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// KeyFileName is the key file created next to the database when no key is
// configured.
const KeyFileName = ".adminauth-session-key"

var (
	ErrInvalidKeySize     = errors.New("session key must be 32 bytes for AES-256")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
)

// Sealer encrypts and decrypts stored session values.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// NewSealerFromBase64 builds a Sealer from a base64-encoded key.
func NewSealerFromBase64(encoded string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode session key: %w", err)
	}
	return NewSealer(key)
}

// LoadSealer resolves the key from the configured value, else from keyFile,
// creating the file with a fresh key when it does not exist. generated
// reports whether a new key file was written.
func LoadSealer(configured, keyFile string) (s *Sealer, generated bool, err error) {
	if configured != "" {
		s, err = NewSealerFromBase64(configured)
		return s, false, err
	}

	if data, err := os.ReadFile(keyFile); err == nil {
		s, err = NewSealerFromBase64(string(data))
		if err != nil {
			return nil, false, fmt.Errorf("key file %s: %w", keyFile, err)
		}
		return s, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, false, fmt.Errorf("read key file: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(keyFile), 0o700); err != nil {
		return nil, false, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(keyFile, []byte(key), 0o600); err != nil {
		return nil, false, fmt.Errorf("save key to %s: %w", keyFile, err)
	}
	s, err = NewSealerFromBase64(key)
	return s, true, err
}

// Seal returns base64(nonce || ciphertext). Empty input stays empty.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return "", ErrCiphertextTooShort
	}
	plaintext, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// GenerateKey returns a random base64-encoded AES-256 key.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
