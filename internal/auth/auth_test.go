package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashKey("secret-key")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	parsed, err := ParseArgon2idHash(hash)
	if err != nil {
		t.Fatalf("ParseArgon2idHash: %v", err)
	}
	if !parsed.Verify("secret-key") {
		t.Fatal("expected key to verify")
	}
	if parsed.Verify("wrong-key") {
		t.Fatal("expected key to fail verification")
	}
}

func TestParseArgon2idHashRejectsGarbage(t *testing.T) {
	for _, in := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$c3Vt",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$c3Vt",
		"$argon2id$v=19$m=1,t=1$c2FsdA$c3Vt",
		"$argon2id$v=19$m=1,t=1,x=1$c2FsdA$c3Vt",
		"$argon2id$v=19$m=1,t=1,p=1$!!$c3Vt",
	} {
		if _, err := ParseArgon2idHash(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if a == b || len(a) != 43 || strings.ContainsAny(a, "+/=") {
		t.Fatalf("unexpected keys %q %q", a, b)
	}
}

func writeKeys(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api-keys.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("write keys: %v", err)
	}
	return path
}

func TestLoadAPIKeys(t *testing.T) {
	hash, err := HashKey("k1")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	path := writeKeys(t, "# ci", "", FormatAPIKeyLine("ci", hash, time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)))
	keys, err := LoadAPIKeys(path)
	if err != nil {
		t.Fatalf("LoadAPIKeys: %v", err)
	}
	if len(keys) != 1 || keys[0].Alias != "ci" || keys[0].Expiry.Format(expiryLayout) != "2030-01-02" {
		t.Fatalf("unexpected keys: %+v", keys)
	}
	if !keys[0].Hash.Verify("k1") {
		t.Fatal("expected loaded hash to verify")
	}
}

func TestLoadAPIKeysErrors(t *testing.T) {
	hash, err := HashKey("k1")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	cases := map[string][]string{
		"format":    {"ci:" + hash},
		"expiry":    {"ci:" + hash + ":tomorrow"},
		"hash":      {"ci:nothash:2030-01-01"},
		"duplicate": {"ci:" + hash + ":2030-01-01", "ci:" + hash + ":2030-01-01"},
	}
	for name, lines := range cases {
		if _, err := LoadAPIKeys(writeKeys(t, lines...)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadAPIKeysMissingFile(t *testing.T) {
	keys, err := LoadAPIKeys(filepath.Join(t.TempDir(), "none.txt"))
	if err != nil || keys != nil {
		t.Fatalf("expected no keys, got %v %v", keys, err)
	}
}

func TestAPIKeyExpired(t *testing.T) {
	key := APIKey{Expiry: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
	if key.Expired(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)) {
		t.Fatal("key should be valid through its expiry day")
	}
	if !key.Expired(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)) {
		t.Fatal("key should be expired the day after")
	}
	if (APIKey{}).Expired(time.Now()) {
		t.Fatal("zero expiry never expires")
	}
}

func TestKeyringAuthenticate(t *testing.T) {
	live, err := HashKey("live-key")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	old, err := HashKey("old-key")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	liveHash, _ := ParseArgon2idHash(live)
	oldHash, _ := ParseArgon2idHash(old)
	ring := NewKeyring([]APIKey{
		{Alias: "live", Hash: liveHash, Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Alias: "old", Hash: oldHash, Expiry: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	ring.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		alias, err := ring.Authenticate("live-key")
		if err != nil || alias != "live" {
			t.Fatalf("attempt %d: expected live, got %q %v", i, alias, err)
		}
	}
	if _, err := ring.Authenticate("old-key"); !errors.Is(err, ErrExpiredKey) {
		t.Fatalf("expected ErrExpiredKey, got %v", err)
	}
	if _, err := ring.Authenticate("nope"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := ring.Authenticate(""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for empty token, got %v", err)
	}
	if ring.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", ring.Len())
	}
}
