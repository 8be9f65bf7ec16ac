package auth

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrExpiredKey = errors.New("api key expired")
)

const expiryLayout = "2006-01-02"

type APIKey struct {
	Alias  string
	Hash   *Argon2idHash
	Expiry time.Time
}

// Expired reports whether the key's expiry day lies before now's day.
func (k APIKey) Expired(now time.Time) bool {
	if k.Expiry.IsZero() {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	ey, em, ed := k.Expiry.Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	return expiry.Before(today)
}

// LoadAPIKeys reads alias:argon2id-hash:YYYY-MM-DD lines. A missing file
// yields no keys.
func LoadAPIKeys(path string) ([]APIKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open api keys: %w", err)
	}
	defer file.Close()

	var keys []APIKey
	aliases := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("api keys: invalid format at line %d", lineNo)
		}
		alias := strings.TrimSpace(parts[0])
		phc := strings.TrimSpace(parts[1])
		expiryRaw := strings.TrimSpace(parts[2])
		if alias == "" || phc == "" || expiryRaw == "" {
			return nil, fmt.Errorf("api keys: invalid format at line %d", lineNo)
		}
		if _, dup := aliases[alias]; dup {
			return nil, fmt.Errorf("api keys: duplicate alias %q at line %d", alias, lineNo)
		}
		hash, err := ParseArgon2idHash(phc)
		if err != nil {
			return nil, fmt.Errorf("api keys: line %d: %w", lineNo, err)
		}
		expiry, err := time.Parse(expiryLayout, expiryRaw)
		if err != nil {
			return nil, fmt.Errorf("api keys: invalid expiry at line %d", lineNo)
		}
		aliases[alias] = struct{}{}
		keys = append(keys, APIKey{Alias: alias, Hash: hash, Expiry: expiry})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read api keys: %w", err)
	}
	return keys, nil
}

// FormatAPIKeyLine renders one keys file line.
func FormatAPIKeyLine(alias, phc string, expiry time.Time) string {
	return alias + ":" + phc + ":" + expiry.Format(expiryLayout)
}

// Keyring authenticates bearer tokens against a fixed set of keys.
// Tokens that verified once are remembered by digest so argon2 runs once
// per token.
type Keyring struct {
	keys []APIKey
	now  func() time.Time

	mu       sync.Mutex
	verified map[[sha256.Size]byte]int
}

func NewKeyring(keys []APIKey) *Keyring {
	return &Keyring{
		keys:     keys,
		now:      time.Now,
		verified: make(map[[sha256.Size]byte]int),
	}
}

func (k *Keyring) Len() int {
	if k == nil {
		return 0
	}
	return len(k.keys)
}

// Authenticate returns the alias of the key matching token.
func (k *Keyring) Authenticate(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidKey
	}
	digest := sha256.Sum256([]byte(token))
	k.mu.Lock()
	pos, ok := k.verified[digest]
	k.mu.Unlock()
	if !ok {
		pos = -1
		for i, key := range k.keys {
			if key.Hash.Verify(token) {
				pos = i
				break
			}
		}
		if pos < 0 {
			return "", ErrInvalidKey
		}
		k.mu.Lock()
		k.verified[digest] = pos
		k.mu.Unlock()
	}
	key := k.keys[pos]
	if key.Expired(k.now()) {
		return key.Alias, ErrExpiredKey
	}
	return key.Alias, nil
}
