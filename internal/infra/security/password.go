package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned by Verify for an encoded hash it cannot parse.
var ErrInvalidHash = errors.New("invalid hash format")

const (
	saltLength = 16
	keyLength  = 32

	// batas atas untuk parameter yang dibaca dari hash tersimpan
	maxMemory = 1 << 20 // KiB, 1 GiB
	maxTime   = 64
	maxKeyLen = 1024
)

// Argon2Hasher hashes passwords with Argon2id and a random salt per password.
// Parameters are embedded in the encoded hash, so changing them later does not
// break stored credentials.
type Argon2Hasher struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// NewArgon2Hasher returns the production parameters (t=3, m=64MiB, p=2).
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{Time: 3, Memory: 64 * 1024, Threads: 2}
}

// Hash returns $argon2id$v=19$m=<m>,t=<t>,p=<p>$<salt>$<hash>
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.Time, h.Memory, h.Threads, keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Time, h.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an encoded hash in constant time.
func (h *Argon2Hasher) Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}
	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false, ErrInvalidHash
	}
	// argon2.IDKey panics on t=0 or p=0
	if threads == 0 || timeCost == 0 || timeCost > maxTime ||
		memory < 8*uint32(threads) || memory > maxMemory {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 || len(want) > maxKeyLen {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
