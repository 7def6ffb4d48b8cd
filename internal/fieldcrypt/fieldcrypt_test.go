package fieldcrypt

import (
	"errors"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew_KeyValidation(t *testing.T) {
	cases := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"short", "abcd"},
		{"right length, not hex", strings.Repeat("zz", 32)},
		{"too long", testKey + "00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.key); err == nil {
				t.Fatal("expected key validation error")
			}
		})
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newTestCodec(t)
	for _, plain := range []string{"s3cret", "JBSWY3DPEHPK3PXP", "value with spaces", "unicode ✓ value"} {
		enc, err := c.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt(%q) error: %v", plain, err)
		}
		if enc == plain {
			t.Fatalf("Encrypt(%q) returned plaintext", plain)
		}
		if !IsCiphertext(enc) {
			t.Fatalf("envelope %q not recognized as ciphertext", enc)
		}
		got, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt() error: %v", err)
		}
		if got != plain {
			t.Fatalf("round trip: got %q, want %q", got, plain)
		}
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	c := newTestCodec(t)
	a, err := c.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext produced identical ciphertext")
	}
	for _, enc := range []string{a, b} {
		plain, err := c.Decrypt(enc)
		if err != nil || plain != "same input" {
			t.Fatalf("Decrypt(%q) = %q, %v", enc, plain, err)
		}
	}
}

func TestEncrypt_Idempotent(t *testing.T) {
	c := newTestCodec(t)
	once, err := c.Encrypt("retry me")
	if err != nil {
		t.Fatal(err)
	}
	// Simulates a retried bulk insert hitting the write path twice.
	twice, err := c.Encrypt(once)
	if err != nil {
		t.Fatal(err)
	}
	if twice != once {
		t.Fatal("already-encrypted value was re-encrypted")
	}
	plain, err := c.Decrypt(twice)
	if err != nil || plain != "retry me" {
		t.Fatalf("Decrypt() = %q, %v", plain, err)
	}
}

func TestEncrypt_EmptyPassthrough(t *testing.T) {
	c := newTestCodec(t)
	enc, err := c.Encrypt("")
	if err != nil || enc != "" {
		t.Fatalf("Encrypt(\"\") = %q, %v", enc, err)
	}
}

func TestDecrypt_MalformedShapes(t *testing.T) {
	c := newTestCodec(t)
	cases := []string{
		"no colons at all",
		"one:colon",
		"a:b:c:d",
		"nothex:" + strings.Repeat("aa", 16) + ":" + strings.Repeat("bb", 4),
		strings.Repeat("aa", 16) + ":shorttag:" + strings.Repeat("bb", 4),
	}
	for _, v := range cases {
		if _, err := c.Decrypt(v); !errors.Is(err, ErrMalformedCiphertext) {
			t.Fatalf("Decrypt(%q): expected ErrMalformedCiphertext, got %v", v, err)
		}
	}
}

func TestDecrypt_TamperedTag(t *testing.T) {
	c := newTestCodec(t)
	enc, err := c.Encrypt("tamper target")
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(enc, ":")
	// Flip one hex digit of the auth tag.
	tag := []byte(parts[1])
	if tag[0] == 'a' {
		tag[0] = 'b'
	} else {
		tag[0] = 'a'
	}
	parts[1] = string(tag)
	if _, err := c.Decrypt(strings.Join(parts, ":")); !errors.Is(err, ErrMalformedCiphertext) {
		t.Fatalf("expected ErrMalformedCiphertext for tampered tag, got %v", err)
	}
}

func TestSlice_RoundTripPreservesOrder(t *testing.T) {
	c := newTestCodec(t)
	codes := []string{"c1", "c2", "c3"}
	enc, err := c.EncryptSlice(codes)
	if err != nil {
		t.Fatalf("EncryptSlice() error: %v", err)
	}
	seen := map[string]bool{}
	for i, e := range enc {
		if !IsCiphertext(e) {
			t.Fatalf("element %d not ciphertext: %q", i, e)
		}
		if seen[e] {
			t.Fatal("elements must be encrypted independently")
		}
		seen[e] = true
	}
	got := c.DecryptSlice(enc)
	for i := range codes {
		if got[i] != codes[i] {
			t.Fatalf("element %d: got %q, want %q", i, got[i], codes[i])
		}
	}
}

func TestDecryptSlice_IsolatesBadElement(t *testing.T) {
	c := newTestCodec(t)
	good, err := c.Encrypt("still fine")
	if err != nil {
		t.Fatal(err)
	}
	in := []string{good, "not-an-envelope", good}
	out := c.DecryptSlice(in)
	if out[0] != "still fine" || out[2] != "still fine" {
		t.Fatalf("good elements lost: %v", out)
	}
	if out[1] != "not-an-envelope" {
		t.Fatalf("bad element should keep original value, got %q", out[1])
	}
}

func TestDecryptLenient(t *testing.T) {
	c := newTestCodec(t)
	if plain, ok := c.DecryptLenient("garbage"); ok || plain != "" {
		t.Fatalf("DecryptLenient(garbage) = %q, %v", plain, ok)
	}
	enc, _ := c.Encrypt("ok")
	if plain, ok := c.DecryptLenient(enc); !ok || plain != "ok" {
		t.Fatalf("DecryptLenient() = %q, %v", plain, ok)
	}
}

func TestIsCiphertext_PlaintextWithColons(t *testing.T) {
	// Two colons alone must not be mistaken for an envelope — the IV and tag
	// widths are checked exactly.
	for _, v := range []string{"a:b:c", "http://host:8080", "12:34:56"} {
		if IsCiphertext(v) {
			t.Fatalf("IsCiphertext(%q) = true", v)
		}
	}
}
