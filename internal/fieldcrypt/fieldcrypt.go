// Package fieldcrypt encrypts designated storage fields with AES-256-GCM.
//
// Ciphertext envelope: "ivHex:authTagHex:cipherHex" — a 16-byte random IV,
// the 16-byte GCM authentication tag, and the ciphertext body, each hex
// encoded and colon joined. The codec is pure CPU work with no I/O; the
// derived key is computed once and reused for the process lifetime.
//
// Failure semantics are asymmetric on purpose: an encryption failure aborts
// the write (never persist plaintext where ciphertext was expected), while a
// decryption failure is isolated to the single field so one corrupted row
// cannot take down a whole listing query.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// KeyHexLen is the required length of the hex-encoded key (32 bytes).
	KeyHexLen = 64

	ivSize  = 16
	tagSize = 16
)

// ErrMalformedCiphertext is returned when a value does not match the
// three-part envelope or fails authentication.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Codec encrypts and decrypts field values with a process-wide key.
// Safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// New derives the codec from a 64-hex-character key. A missing or malformed
// key is a hard error — there is no degraded plaintext mode.
func New(hexKey string) (*Codec, error) {
	if len(hexKey) != KeyHexLen {
		return nil, fmt.Errorf("encryption key must be %d hex characters, got %d", KeyHexLen, len(hexKey))
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("initializing GCM: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random IV. Empty input passes through
// unchanged, and a value already in envelope form is returned as is so a
// retried bulk write cannot double-encrypt.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || IsCiphertext(plaintext) {
		return plaintext, nil
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(body), nil
}

// Decrypt opens an envelope produced by Encrypt. Envelope-shape violations
// and authentication failures both return ErrMalformedCiphertext.
func (c *Codec) Decrypt(value string) (string, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected iv:tag:cipher", ErrMalformedCiphertext)
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("%w: bad iv", ErrMalformedCiphertext)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", fmt.Errorf("%w: bad auth tag", ErrMalformedCiphertext)
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad cipher body", ErrMalformedCiphertext)
	}
	plain, err := c.aead.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrMalformedCiphertext)
	}
	return string(plain), nil
}

// EncryptSlice encrypts each element independently. Any element failure
// aborts the whole write — partial plaintext persistence is never acceptable.
func (c *Codec) EncryptSlice(values []string) ([]string, error) {
	if len(values) == 0 {
		return values, nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		enc, err := c.Encrypt(v)
		if err != nil {
			return nil, fmt.Errorf("encrypting element %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

// DecryptSlice decrypts each element independently. A failing element keeps
// its original value so one bad entry does not lose its siblings.
func (c *Codec) DecryptSlice(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, len(values))
	for i, v := range values {
		plain, err := c.Decrypt(v)
		if err != nil {
			out[i] = v
			continue
		}
		out[i] = plain
	}
	return out
}

// DecryptLenient decrypts a scalar field on the read path: on any failure the
// result is the empty string and ok is false, never an error. Read paths must
// not fail a whole record over one corrupted field.
func (c *Codec) DecryptLenient(value string) (plain string, ok bool) {
	p, err := c.Decrypt(value)
	if err != nil {
		return "", false
	}
	return p, true
}

// IsCiphertext reports whether value looks like an envelope produced by
// Encrypt. The check requires exact IV and tag widths in valid hex, so a
// legitimate plaintext containing two colons is not mistaken for ciphertext.
func IsCiphertext(value string) bool {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return false
	}
	if len(parts[0]) != ivSize*2 || len(parts[1]) != tagSize*2 {
		return false
	}
	for _, p := range parts {
		if _, err := hex.DecodeString(p); err != nil {
			return false
		}
	}
	return true
}
