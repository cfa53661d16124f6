// Package libcipher holds the keyed hashing helpers: sealed HMAC hashes and
// the hex digest used to sign webhook payloads.
package libcipher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
)

var ErrEmptyKey = errors.New("libcipher: signing key is empty")

type GenerateHashArgs struct {
	Payload    []byte
	SigningKey []byte
	Salt       []byte
}

// NewHash returns HMAC(SigningKey, Salt || Payload) using the given hash
// constructor.
func NewHash(args GenerateHashArgs, h func() hash.Hash) ([]byte, error) {
	if len(args.SigningKey) == 0 {
		return nil, ErrEmptyKey
	}
	mac := hmac.New(h, args.SigningKey)
	if _, err := mac.Write(args.Salt); err != nil {
		return nil, err
	}
	if _, err := mac.Write(args.Payload); err != nil {
		return nil, err
	}
	return mac.Sum(nil), nil
}

// Equal compares two sealed hashes in constant time.
func Equal(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// CheckHash recomputes the sealed hash for payload and compares it to hash.
func CheckHash(key, salt, payload string, hash []byte) (bool, error) {
	computed, err := NewHash(GenerateHashArgs{
		Payload:    []byte(payload),
		SigningKey: []byte(key),
		Salt:       []byte(salt),
	}, sha256.New)
	if err != nil {
		return false, err
	}
	return Equal(computed, hash), nil
}

// ComputeHexDigest returns the lowercase hex HMAC-SHA256 of message under key.
func ComputeHexDigest(key, message []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
