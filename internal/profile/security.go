package profile

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"image/png"
	"math/big"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher backs the Internal provider's PasswordHash field.
// Grounded on the teacher's auth/password.go bcrypt hasher; unchanged
// algorithm and cost, since nothing about the gateway's scope changes
// the threat model for a stored password hash.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher() PasswordHasher {
	return PasswordHasher{cost: bcrypt.DefaultCost + 2}
}

func (h PasswordHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("profile: hashing password: %w", err)
	}
	return string(out), nil
}

func (h PasswordHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// MFAEnroller generates and validates the TOTP secrets backing
// MFADescriptor. Grounded on the teacher's auth/mfa.go MFAService,
// trimmed to the pure enrollment/validation functions the Internal
// identity provider needs -- session/backup-code persistence is its
// caller's concern, not this package's.
type MFAEnroller struct {
	issuer string
}

func NewMFAEnroller(issuer string) MFAEnroller {
	return MFAEnroller{issuer: issuer}
}

// Enroll generates a fresh TOTP secret for accountName and renders its
// enrollment QR code as a PNG.
func (e MFAEnroller) Enroll(accountName string) (MFADescriptor, []byte, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: e.issuer, AccountName: accountName})
	if err != nil {
		return MFADescriptor{}, nil, fmt.Errorf("profile: generating totp key: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return MFADescriptor{}, nil, fmt.Errorf("profile: rendering qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return MFADescriptor{}, nil, fmt.Errorf("profile: encoding qr png: %w", err)
	}

	return MFADescriptor{Enabled: false, TOTPSecret: key.Secret()}, buf.Bytes(), nil
}

// Validate checks code against secret, allowing the library's default
// clock-skew tolerance.
func (MFAEnroller) Validate(code, secret string) bool {
	return totp.Validate(code, secret)
}

// GenerateBackupCodes returns count human-typeable one-time codes. The
// caller is responsible for hashing them before persisting -- this
// function never sees or returns a hash.
func (MFAEnroller) GenerateBackupCodes(count int) ([]string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // excludes I, O, 0, 1
	codes := make([]string, count)
	for i := range codes {
		buf := make([]byte, 8)
		for j := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
			if err != nil {
				return nil, fmt.Errorf("profile: generating backup code: %w", err)
			}
			buf[j] = chars[n.Int64()]
		}
		codes[i] = string(buf[:4]) + "-" + string(buf[4:])
	}
	return codes, nil
}
