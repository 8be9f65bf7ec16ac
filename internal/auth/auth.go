// Package auth hashes and verifies API keys with argon2id.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	defaultMemory     = 64 * 1024
	defaultIterations = 3
	defaultThreads    = 1
	defaultSaltLength = 16
	defaultKeyLength  = 32
	generatedKeyBytes = 32
)

type Argon2idHash struct {
	m    uint32
	t    uint32
	p    uint8
	salt []byte
	sum  []byte
}

// GenerateKey returns a random URL-safe API key.
func GenerateKey() (string, error) {
	buf := make([]byte, generatedKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashKey returns the PHC encoded argon2id hash of key.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("key must not be empty")
	}
	salt := make([]byte, defaultSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := argon2.IDKey([]byte(key), salt, defaultIterations, defaultMemory, defaultThreads, defaultKeyLength)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		defaultMemory,
		defaultIterations,
		defaultThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

func ParseArgon2idHash(phc string) (*Argon2idHash, error) {
	parts := strings.Split(phc, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("invalid argon2id hash format")
	}
	if parts[2] != "v=19" {
		return nil, fmt.Errorf("unsupported argon2id version: %s", parts[2])
	}
	var m, t, p uint64
	for _, param := range strings.Split(parts[3], ",") {
		name, raw, ok := strings.Cut(param, "=")
		if !ok {
			return nil, errors.New("invalid argon2id params")
		}
		var err error
		switch name {
		case "m":
			m, err = strconv.ParseUint(raw, 10, 32)
		case "t":
			t, err = strconv.ParseUint(raw, 10, 32)
		case "p":
			p, err = strconv.ParseUint(raw, 10, 8)
		default:
			return nil, fmt.Errorf("unknown argon2id param %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid argon2id param %q", name)
		}
	}
	if m == 0 || t == 0 || p == 0 {
		return nil, errors.New("invalid argon2id params")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errors.New("invalid argon2id salt")
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return nil, errors.New("invalid argon2id hash")
	}
	return &Argon2idHash{
		m:    uint32(m),
		t:    uint32(t),
		p:    uint8(p),
		salt: salt,
		sum:  sum,
	}, nil
}

func (h *Argon2idHash) Verify(key string) bool {
	sum := argon2.IDKey([]byte(key), h.salt, h.t, h.m, h.p, uint32(len(h.sum)))
	return subtle.ConstantTimeCompare(sum, h.sum) == 1
}
