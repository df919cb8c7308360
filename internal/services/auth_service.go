package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PasswordSpecialChars is the symbol set a password must draw at least one
// character from.
const PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`

const (
	minPasswordLen = 8
	saltLen        = 16
	keyLen         = 32
	argon2Prefix   = "$argon2id$"
)

// Argon2Params tunes the argon2id key derivation. Zero fields take the
// defaults.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

var DefaultArgon2Params = Argon2Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}

type AuthService interface {
	HashPassword(password string) (string, error)
	// CheckPassword reports whether password matches hash, and whether the
	// stored hash uses an older scheme or parameters and should be
	// replaced.
	CheckPassword(hash, password string) (ok, needsRehash bool)
	ValidatePassword(password string) error
}

type authService struct {
	params Argon2Params
}

func NewAuthService() AuthService {
	return &authService{params: DefaultArgon2Params}
}

// NewAuthServiceWithParams lets tests and low-power hosts trade hashing cost.
func NewAuthServiceWithParams(p Argon2Params) AuthService {
	if p.Time == 0 {
		p.Time = DefaultArgon2Params.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultArgon2Params.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = DefaultArgon2Params.Threads
	}
	return &authService{params: p}
}

// HashPassword derives an argon2id key and encodes it in the PHC string
// format: $argon2id$v=19$m=<kib>,t=<time>,p=<threads>$<salt>$<key>.
func (s *authService) HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", internalError("could not secure password", err)
	}
	p := s.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, keyLen)
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, p.MemoryKiB, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (s *authService) CheckPassword(hash, password string) (bool, bool) {
	switch {
	case hash == "":
		return false, false
	case strings.HasPrefix(hash, argon2Prefix):
		p, salt, key, err := decodeArgon2(hash)
		if err != nil {
			return false, false
		}
		got := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, uint32(len(key)))
		ok := subtle.ConstantTimeCompare(got, key) == 1
		return ok, ok && p != s.params
	case isBcryptHash(hash):
		ok := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
		return ok, ok
	case isLegacyHash(hash):
		sum := sha256.Sum256([]byte(password))
		ok := subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(hash))) == 1
		return ok, ok
	}
	return false, false
}

func decodeArgon2(hash string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return p, nil, nil, fmt.Errorf("malformed argon2 hash")
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("argon2 version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("argon2 params: %w", err)
	}
	if p.Time == 0 || p.Threads == 0 {
		return p, nil, nil, fmt.Errorf("argon2 params out of range")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("argon2 salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("argon2 key: %w", err)
	}
	if len(key) == 0 {
		return p, nil, nil, fmt.Errorf("argon2 key is empty")
	}
	return p, salt, key, nil
}

func (s *authService) ValidatePassword(password string) error {
	return ValidatePassword(password)
}

// ValidatePassword applies the password policy. Checks run in a fixed
// order and the first failure is reported.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return newError(KindValidation, "Password must be at least 8 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return newError(KindValidation, "Password must contain at least one uppercase letter")
	case !lower:
		return newError(KindValidation, "Password must contain at least one lowercase letter")
	case !digit:
		return newError(KindValidation, "Password must contain at least one number")
	case !special:
		return newError(KindValidation, "Password must contain at least one special character(e.g: @, %)")
	}
	return nil
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// isLegacyHash matches the hex SHA-256 digests written by the flat-file
// version of the service.
func isLegacyHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// LegacyHash computes the old unsalted digest, as found in imported
// users.json files.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
