package paper

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// The plaintext credential exists only at generation time and at the moment
// of a verification attempt; only the salted argon2id hash is ever stored.

var (
	// ErrEntropyUnavailable is fatal for the sweep cycle that hits it:
	// credentials must never be generated from a degraded random source.
	ErrEntropyUnavailable = errors.New("secure random source unavailable")

	credentialAlphabet = "abcdefghijklmnopqrstuvwxyz" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"0123456789" +
		"!@#$%^&*()-_=+[]{}<>?"
)

const (
	// MinCredentialLength is the floor enforced on generated credentials.
	MinCredentialLength = 16

	// argon2id parameters (RFC 9106 second recommended option)
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// GenerateCredential returns a fresh high-entropy plaintext credential of
// the given length (raised to MinCredentialLength if below it), drawn from
// an alphanumeric+symbols alphabet via crypto/rand.
func GenerateCredential(length int) (string, error) {
	if length < MinCredentialLength {
		length = MinCredentialLength
	}

	max := big.NewInt(int64(len(credentialAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", ErrEntropyUnavailable
		}
		b.WriteByte(credentialAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// HashCredential derives a salted argon2id hash of the plaintext, encoded in
// PHC string format. A fresh salt makes every call yield a distinct value.
func HashCredential(plaintext string) ([]byte, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, ErrEntropyUnavailable
	}

	key := argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return []byte(encoded), nil
}

// VerifyCredential reports whether the plaintext matches the stored hash.
// Comparison is constant-time; malformed input returns false, never panics.
func VerifyCredential(plaintext string, encoded []byte) bool {
	parts := strings.Split(string(encoded), "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	memory, time, threads, ok := parseArgonParams(parts[3])
	if !ok {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return false
	}

	derived := argon2.IDKey([]byte(plaintext), salt, time, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1
}

func parseArgonParams(s string) (memory, time uint32, threads uint8, ok bool) {
	for _, kv := range strings.Split(s, ",") {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) != 2 {
			return 0, 0, 0, false
		}
		val, err := strconv.ParseUint(pair[1], 10, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		switch pair[0] {
		case "m":
			memory = uint32(val)
		case "t":
			time = uint32(val)
		case "p":
			if val > 255 {
				return 0, 0, 0, false
			}
			threads = uint8(val)
		default:
			return 0, 0, 0, false
		}
	}
	if memory == 0 || time == 0 || threads == 0 {
		return 0, 0, 0, false
	}
	return memory, time, threads, true
}
