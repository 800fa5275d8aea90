package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// aeadScheme lays out AEAD output as nonce:tag:ciphertext.
type aeadScheme struct {
	aead cipher.AEAD
}

func newGCMScheme(key []byte) (scheme, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aeadScheme{aead: aead}, nil
}

func newChaChaScheme(key []byte) (scheme, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &aeadScheme{aead: aead}, nil
}

func (s *aeadScheme) fieldCount() int { return 3 }

func (s *aeadScheme) seal(plaintext []byte) ([][]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - s.aead.Overhead()
	return [][]byte{nonce, sealed[split:], sealed[:split]}, nil
}

func (s *aeadScheme) open(fields [][]byte) ([]byte, error) {
	nonce, tag, ciphertext := fields[0], fields[1], fields[2]
	if len(nonce) != s.aead.NonceSize() {
		return nil, errors.New("bad nonce length")
	}
	if len(tag) != s.aead.Overhead() {
		return nil, errors.New("bad tag length")
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	return s.aead.Open(nil, nonce, sealed, nil)
}
