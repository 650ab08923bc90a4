package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	keyScheme      = "cgw"
	secretLen      = 32
	prefixLen      = 8
	secretAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// envPattern bounds the environment segment so it can never contain the
// separator.
var envPattern = regexp.MustCompile(`^[a-z0-9]{1,16}$`)

// GenerateKey issues a service key of the form cgw-{env}-{secret}, where the
// secret is 32 lowercase alphanumerics.
func GenerateKey(env string) (string, error) {
	if !envPattern.MatchString(env) {
		return "", fmt.Errorf("invalid key environment %q: want 1-16 lowercase letters or digits", env)
	}
	secret, err := randomSecret(secretLen)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return keyScheme + "-" + env + "-" + secret, nil
}

// ParseKey splits a well-formed key into its environment and secret.
func ParseKey(key string) (env, secret string, ok bool) {
	rest, found := strings.CutPrefix(key, keyScheme+"-")
	if !found {
		return "", "", false
	}
	env, secret, found = strings.Cut(rest, "-")
	if !found || !envPattern.MatchString(env) || len(secret) != secretLen {
		return "", "", false
	}
	return env, secret, true
}

// HashKey returns the SHA-256 hex digest stored in api_keys.key_hash.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KeyPrefix is the display-safe part of a key kept next to its hash:
// cgw-{env}-{first 8 secret chars}. Malformed keys are cut to 8 bytes.
func KeyPrefix(key string) string {
	env, secret, ok := ParseKey(key)
	if !ok {
		return key[:min(len(key), prefixLen)]
	}
	return keyScheme + "-" + env + "-" + secret[:prefixLen]
}

func randomSecret(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			// 252 is the largest multiple of 36 that fits in a byte.
			if c >= 252 || len(out) == n {
				continue
			}
			out = append(out, secretAlphabet[int(c)%len(secretAlphabet)])
		}
	}
	return string(out), nil
}

// KeyMetadata holds the cached metadata for a service key. Every key belongs
// to exactly one tenant; SchoolID narrows it further when set.
type KeyMetadata struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	SchoolID        string    `json:"school_id,omitempty"`
	Name            string    `json:"name"`
	RPMLimit        *int      `json:"rpm_limit,omitempty"`
	DailyTokenLimit *int64    `json:"daily_token_limit,omitempty"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// ParseDuration accepts Go durations plus a whole-day form such as "365d".
func ParseDuration(s string) (time.Duration, error) {
	days, ok := strings.CutSuffix(s, "d")
	if !ok {
		return time.ParseDuration(s)
	}
	n, err := strconv.Atoi(days)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid day count %q", s)
	}
	return time.Duration(n) * 24 * time.Hour, nil
}
