package credential

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// cbcScheme is AES-256-CBC with PKCS#7 padding and an HMAC-SHA256 over
// iv||ciphertext. Envelope: iv:ciphertext:mac.
type cbcScheme struct {
	block  cipher.Block
	macKey []byte
}

func newCBCScheme(key []byte) (scheme, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	macKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, []byte("credential-cbc-mac")), macKey); err != nil {
		return nil, err
	}

	return &cbcScheme{block: block, macKey: macKey}, nil
}

func (s *cbcScheme) fieldCount() int { return 3 }

func (s *cbcScheme) seal(plaintext []byte) ([][]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(s.block, iv).CryptBlocks(ciphertext, padded)

	return [][]byte{iv, ciphertext, s.mac(iv, ciphertext)}, nil
}

func (s *cbcScheme) open(fields [][]byte) ([]byte, error) {
	iv, ciphertext, tag := fields[0], fields[1], fields[2]
	if len(iv) != aes.BlockSize {
		return nil, errors.New("bad iv length")
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("bad ciphertext length")
	}
	if !hmac.Equal(tag, s.mac(iv, ciphertext)) {
		return nil, errors.New("mac mismatch")
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(s.block, iv).CryptBlocks(padded, ciphertext)
	return pkcs7Unpad(padded, aes.BlockSize)
}

func (s *cbcScheme) mac(iv, ciphertext []byte) []byte {
	h := hmac.New(sha256.New, s.macKey)
	h.Write(iv)
	h.Write(ciphertext)
	return h.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("bad padding")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("bad padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("bad padding")
		}
	}
	return data[:len(data)-n], nil
}
