package segio

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/sha3"
)

// ByteString is an immutable sequence of bytes. Its UTF-8 text and hash are
// computed on first use and cached. A ByteString never aliases memory owned
// by the caller.
type ByteString struct {
	data []byte
	text atomic.Pointer[string]
	hash atomic.Uint64
	hset atomic.Bool
}

// NewByteString returns a ByteString holding a copy of p.
func NewByteString(p []byte) *ByteString {
	return &ByteString{data: bytes.Clone(p)}
}

// ByteStringOf returns a ByteString holding the given bytes.
func ByteStringOf(p ...byte) *ByteString {
	return NewByteString(p)
}

// EncodeUtf8 returns the UTF-8 bytes of s as a ByteString.
func EncodeUtf8(s string) *ByteString {
	bs := &ByteString{data: []byte(s)}
	if utf8.ValidString(s) {
		bs.text.Store(&s)
	}
	return bs
}

// DecodeHex parses s as hexadecimal.
func DecodeHex(s string) (*ByteString, error) {
	p, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("segio: decode hex: %w", err)
	}
	return &ByteString{data: p}, nil
}

// Size returns the number of bytes.
func (bs *ByteString) Size() int { return len(bs.data) }

// At returns the byte at index i. It panics if i is out of range.
func (bs *ByteString) At(i int) byte { return bs.data[i] }

// Bytes returns a copy of the bytes.
func (bs *ByteString) Bytes() []byte { return bytes.Clone(bs.data) }

// Utf8 returns the bytes decoded as UTF-8, with invalid sequences replaced
// by U+FFFD.
func (bs *ByteString) Utf8() string {
	if p := bs.text.Load(); p != nil {
		return *p
	}
	s := string(bytes.ToValidUTF8(bs.data, []byte(string(utf8.RuneError))))
	bs.text.Store(&s)
	return s
}

// Equal reports whether bs and other hold the same bytes.
func (bs *ByteString) Equal(other *ByteString) bool {
	if bs == other {
		return true
	}
	if bs == nil || other == nil {
		return false
	}
	return bytes.Equal(bs.data, other.data)
}

// Compare orders byte strings lexicographically.
func (bs *ByteString) Compare(other *ByteString) int {
	return bytes.Compare(bs.data, other.data)
}

// Hash returns a content hash. Equal byte strings have equal hashes.
func (bs *ByteString) Hash() uint64 {
	if bs.hset.Load() {
		return bs.hash.Load()
	}
	h := xxhash.Sum64(bs.data)
	bs.hash.Store(h)
	bs.hset.Store(true)
	return h
}

// Hex returns the lowercase hexadecimal encoding.
func (bs *ByteString) Hex() string { return hex.EncodeToString(bs.data) }

// Base64 returns the standard padded base64 encoding.
func (bs *ByteString) Base64() string { return base64.StdEncoding.EncodeToString(bs.data) }

// Sha256 returns the SHA-256 digest.
func (bs *ByteString) Sha256() *ByteString {
	sum := sha256.Sum256(bs.data)
	return &ByteString{data: sum[:]}
}

// Sha3_256 returns the SHA3-256 digest.
func (bs *ByteString) Sha3_256() *ByteString {
	sum := sha3.Sum256(bs.data)
	return &ByteString{data: sum[:]}
}

// String describes bs for debugging. Short valid UTF-8 content is shown as
// text, anything else as hex, truncated after 64 bytes.
func (bs *ByteString) String() string {
	const limit = 64
	if len(bs.data) == 0 {
		return "[size=0]"
	}
	if len(bs.data) <= limit && utf8.Valid(bs.data) {
		return fmt.Sprintf("[text=%s]", bs.data)
	}
	if len(bs.data) <= limit {
		return fmt.Sprintf("[hex=%x]", bs.data)
	}
	return fmt.Sprintf("[size=%d hex=%x…]", len(bs.data), bs.data[:limit])
}
