package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Password records are a single fixed-width string: a constant header naming
// the algorithm parameters, the base64 salt, then the base64 derived key.
// Every segment has a known length, so the salt can be sliced back out
// without a delimiter.
const (
	recordHeader = "$argon2id$v=19$m=65536,t=1,p=4$"

	hashMemory  = 64 * 1024
	hashTime    = 1
	hashThreads = 4

	saltLen = 16
	keyLen  = 32

	encodedSaltLen = 22 // base64.RawStdEncoding.EncodedLen(saltLen)
	encodedKeyLen  = 43 // base64.RawStdEncoding.EncodedLen(keyLen)

	recordLen = len(recordHeader) + encodedSaltLen + encodedKeyLen
)

// HashPassword derives a password record from the plaintext using a fresh
// random salt. It only fails if the system randomness source does.
func HashPassword(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate password salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, hashTime, hashMemory, hashThreads, keyLen)

	var b strings.Builder
	b.Grow(recordLen)
	b.WriteString(recordHeader)
	b.WriteString(base64.RawStdEncoding.EncodeToString(salt))
	b.WriteString(base64.RawStdEncoding.EncodeToString(key))
	return b.String(), nil
}

// CheckPassword reports whether the plaintext matches a stored password
// record. It re-derives the key with the record's salt and compares in
// constant time. Malformed records are reported as a mismatch, never as an
// error.
func CheckPassword(plaintext, record string) bool {
	if len(record) != recordLen || !strings.HasPrefix(record, recordHeader) {
		return false
	}

	saltPart := record[len(recordHeader) : len(recordHeader)+encodedSaltLen]
	keyPart := record[len(recordHeader)+encodedSaltLen:]

	salt, err := base64.RawStdEncoding.DecodeString(saltPart)
	if err != nil || len(salt) != saltLen {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(keyPart)
	if err != nil || len(want) != keyLen {
		return false
	}

	got := argon2.IDKey([]byte(plaintext), salt, hashTime, hashMemory, hashThreads, keyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}
