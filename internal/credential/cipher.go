// Package credential encrypts the transport credentials stored on accounts.
//
// A Cipher is bound to one Strategy and one 32-byte key at startup. Envelopes
// are hex fields joined by ":" and carry every random value needed to decrypt.
package credential

import (
	"encoding/hex"
	"fmt"
	"strings"

	"tgdrive/internal/domain"
)

// Strategy names an encryption scheme.
type Strategy string

const (
	AESCBC           Strategy = "aes-cbc"
	AESGCM           Strategy = "aes-gcm"
	ChaCha20Poly1305 Strategy = "chacha20-poly1305"
)

// KeySize is the master key length in bytes.
const KeySize = 32

const delimiter = ":"

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{AESCBC, AESGCM, ChaCha20Poly1305}
}

// ParseStrategy maps a config value onto a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown credential cipher %q", name)
}

// scheme is implemented only inside this package.
type scheme interface {
	seal(plaintext []byte) ([][]byte, error)
	open(fields [][]byte) ([]byte, error)
	fieldCount() int
}

// Cipher encrypts and decrypts credential envelopes.
type Cipher struct {
	strategy Strategy
	scheme   scheme
}

// New builds a Cipher for strategy with a KeySize-byte key.
func New(strategy Strategy, key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("credential key must be %d bytes, got %d", KeySize, len(key))
	}

	var (
		s   scheme
		err error
	)
	switch strategy {
	case AESCBC:
		s, err = newCBCScheme(key)
	case AESGCM:
		s, err = newGCMScheme(key)
	case ChaCha20Poly1305:
		s, err = newChaChaScheme(key)
	default:
		return nil, fmt.Errorf("unknown credential cipher %q", strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", strategy, err)
	}

	return &Cipher{strategy: strategy, scheme: s}, nil
}

// ParseKey decodes a hex master key (64 hex characters).
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("credential key is not hex: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("credential key must be %d hex characters", KeySize*2)
	}
	return key, nil
}

// Strategy returns the configured strategy.
func (c *Cipher) Strategy() Strategy {
	return c.strategy
}

// Encrypt returns the envelope for plaintext.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	fields, err := c.scheme.seal([]byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("encrypt credential: %w", err)
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = hex.EncodeToString(f)
	}
	return strings.Join(parts, delimiter), nil
}

// Decrypt opens an envelope. Every failure matches domain.ErrCredentialCorrupted.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, delimiter)
	if len(parts) != c.scheme.fieldCount() {
		return "", fmt.Errorf("%s envelope has %d fields: %w", c.strategy, len(parts), domain.ErrCredentialCorrupted)
	}

	fields := make([][]byte, len(parts))
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil {
			return "", fmt.Errorf("%s envelope field %d: %w", c.strategy, i, domain.ErrCredentialCorrupted)
		}
		fields[i] = b
	}

	plaintext, err := c.scheme.open(fields)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", c.strategy, err, domain.ErrCredentialCorrupted)
	}
	return string(plaintext), nil
}
