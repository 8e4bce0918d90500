// Package cryptoutil provides the two primitives every other package in
// this repository builds on: AES-256-GCM sealing and HMAC-SHA-256
// signing, both keyed off arbitrary secret material via a fixed
// derivation.
//
// This generalizes the teacher's tenant-secret scheme (a pre-formatted
// 32-byte hex key read from an env var) to derive its key from any
// secret string, since the lifecycle secret configured for this service
// is a passphrase, not a pre-hexed key.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/opsmycelium/gateway/internal/merr"
)

// deriveKey turns arbitrary secret material into a 32-byte AES-256 key.
// SHA-256 is collision-resistant on the input and deterministic across
// processes that share the same secret, satisfying both requirements
// from spec.md §4.1 without needing a KDF with tunable work factor --
// the secret itself is high-entropy operator-provisioned material, not
// a user password.
func deriveKey(secretMaterial string) [32]byte {
	return sha256.Sum256([]byte(secretMaterial))
}

// Encrypt seals plaintext with AES-256-GCM under a key derived from
// secretMaterial. The result is base64(nonce || ciphertext || tag).
func Encrypt(secretMaterial, plaintext string) (string, error) {
	key := deriveKey(secretMaterial)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", merr.ErrCrypto.Wrap(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", merr.ErrCrypto.Wrap(err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", merr.ErrCrypto.Wrap(err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt is the inverse of Encrypt. It fails with merr.ErrCrypto on
// malformed base64, a ciphertext shorter than the nonce, a bad tag, or
// non-UTF-8 plaintext.
func Decrypt(secretMaterial, ciphertextB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", merr.ErrCrypto.Wrap(err)
	}

	key := deriveKey(secretMaterial)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", merr.ErrCrypto.Wrap(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", merr.ErrCrypto.Wrap(err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", merr.ErrCrypto.Wrap(fmt.Errorf("ciphertext shorter than nonce (%d bytes)", len(raw)))
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", merr.ErrCrypto.Wrap(err)
	}

	if !utf8.Valid(plaintext) {
		return "", merr.ErrCrypto.Wrap(fmt.Errorf("decrypted payload is not valid UTF-8"))
	}

	return string(plaintext), nil
}

// Sign returns hex(HMAC-SHA-256(secret, message)).
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the HMAC and compares it to sig in constant time.
func Verify(secret, message, sig string) bool {
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hmac.Equal(mac.Sum(nil), expected)
}
