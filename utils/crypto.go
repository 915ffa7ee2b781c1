package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// SecretBox encrypts short secrets (gateway key secrets) before they are stored
type SecretBox struct {
	key [32]byte
}

// NewSecretBox derives the box key from the configured passphrase
func NewSecretBox(passphrase string) *SecretBox {
	return &SecretBox{key: sha256.Sum256([]byte(passphrase))}
}

// Seal encrypts plaintext and returns nonce+ciphertext as base64
func (b *SecretBox) Seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal
func (b *SecretBox) Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(raw) < 24 {
		return "", errors.New("sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", errors.New("sealed value could not be decrypted")
	}
	return string(plain), nil
}
