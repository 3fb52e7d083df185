package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	KeySize       = 32
	versionPrefix = "v1:"

	// MinTokenBytes is 128 bits, the floor for anything used as a bearer secret.
	MinTokenBytes = 16
)

var (
	ErrInvalidKey        = errors.New("encryption key must be 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrLegacyDisabled    = errors.New("legacy ciphertext found but legacy decryption is disabled")
)

// Cipher encrypts values at rest with AES-256-GCM.
// Ciphertexts are "v1:" + base64(nonce || sealed).
type Cipher struct {
	aead           cipher.AEAD
	block          cipher.Block
	legacyFallback bool
}

// NewCipher creates a Cipher. When legacyFallback is set, Decrypt also accepts
// un-prefixed base64(iv || AES-CBC ciphertext) values written before GCM was introduced.
func NewCipher(key []byte, legacyFallback bool) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &Cipher{aead: aead, block: block, legacyFallback: legacyFallback}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return versionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, versionPrefix) {
		if !c.legacyFallback {
			return "", ErrLegacyDisabled
		}
		return c.decryptLegacy(ciphertext)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, versionPrefix))
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	return string(plaintext), nil
}

// decryptLegacy reads base64(iv || CBC ciphertext) with PKCS#7 padding.
// This format is unauthenticated; it is only read, never written.
func (c *Cipher) decryptLegacy(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	bs := c.block.BlockSize()
	if len(raw) < 2*bs || len(raw)%bs != 0 {
		return "", ErrInvalidCiphertext
	}

	iv, body := raw[:bs], raw[bs:]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, body)

	out, err = pkcs7Unpad(out, bs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncryptLegacy produces the pre-GCM format. Only used to build fixtures for migration tests.
func (c *Cipher) EncryptLegacy(plaintext string) (string, error) {
	bs := c.block.BlockSize()
	padded := pkcs7Pad([]byte(plaintext), bs)

	out := make([]byte, bs+len(padded))
	iv := out[:bs]
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[bs:], padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

func pkcs7Pad(b []byte, bs int) []byte {
	n := bs - len(b)%bs
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, bs int) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrInvalidCiphertext
	}
	n := int(b[len(b)-1])
	if n == 0 || n > bs || n > len(b) {
		return nil, ErrInvalidCiphertext
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrInvalidCiphertext
		}
	}
	return b[:len(b)-n], nil
}
