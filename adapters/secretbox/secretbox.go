// Package secretbox seals sensitive setting values with NaCl secretbox.
package secretbox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/artpar/saasgate/ports"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	// ErrShortKey is returned for passphrases shorter than 16 bytes.
	ErrShortKey = errors.New("encryption key must be at least 16 bytes")

	// ErrDecrypt is returned for truncated or tampered ciphertexts.
	ErrDecrypt = errors.New("decrypt: message authentication failed")
)

// Cipher implements ports.Cipher. Ciphertexts are nonce || box.
type Cipher struct {
	key    [keySize]byte
	random ports.Random
}

// New derives a secretbox key from passphrase with HKDF-SHA256.
func New(passphrase string, random ports.Random) (*Cipher, error) {
	if len(passphrase) < 16 {
		return nil, ErrShortKey
	}
	c := &Cipher{random: random}
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("saasgate settings v1"))
	if _, err := io.ReadFull(kdf, c.key[:]); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return c, nil
}

// Encrypt seals plaintext under a fresh nonce.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	b, err := c.random.Bytes(nonceSize)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], b)
	return secretbox.Seal(nonce[:], plaintext, &nonce, &c.key), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])
	out, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &c.key)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

var _ ports.Cipher = (*Cipher)(nil)
