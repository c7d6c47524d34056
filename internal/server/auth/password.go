// Package auth holds the credential hasher and the bearer token codec.
// Neither touches storage.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/justlikeclockwork/clockwork/internal/common"
)

const (
	DefaultIterations = 100_000
	SaltSize          = 32
	KeySize           = 32
)

// PasswordHasher derives PBKDF2-HMAC-SHA256 keys and stores them as
// "<iterations>$<salt-hex>$<hash-hex>". The iteration count travels with
// the record, so records created under an older setting keep verifying.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher returns a hasher that uses iterations for new records.
// A non-positive value selects DefaultIterations.
func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &PasswordHasher{iterations: iterations}
}

func (h *PasswordHasher) Iterations() int { return h.iterations }

// Hash encodes password with a fresh random salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, KeySize, sha256.New)

	return strconv.Itoa(h.iterations) + "$" + hex.EncodeToString(salt) + "$" + hex.EncodeToString(key), nil
}

// Verify reports whether password matches encoded. Any malformed record
// yields false.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	iterations, salt, want, err := parseEncoded(encoded)
	if err != nil {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NeedsRehash reports whether encoded was produced with fewer iterations
// than the hasher currently uses. Malformed records report false; they
// cannot verify, so there is nothing to upgrade.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	iterations, _, _, err := parseEncoded(encoded)
	if err != nil {
		return false
	}
	return iterations < h.iterations
}

// Check reports a malformed record as common.ErrMalformedCredential.
func Check(encoded string) error {
	_, _, _, err := parseEncoded(encoded)
	return err
}

func parseEncoded(encoded string) (iterations int, salt, key []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %w", common.ErrMalformedCredential, err)
		}
	}()

	parts := strings.Split(encoded, "$")
	if len(parts) != 3 {
		return 0, nil, nil, fmt.Errorf("%d fields", len(parts))
	}

	iterations, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("iterations: %w", err)
	}
	if iterations <= 0 {
		return 0, nil, nil, fmt.Errorf("iterations: %d", iterations)
	}

	salt, err = hex.DecodeString(parts[1])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("salt: %w", err)
	}

	key, err = hex.DecodeString(parts[2])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("hash: %w", err)
	}
	if len(key) != KeySize {
		return 0, nil, nil, fmt.Errorf("hash: %d bytes, want %d", len(key), KeySize)
	}

	return iterations, salt, key, nil
}
