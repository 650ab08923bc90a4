package auth

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestGenerateKey_Format(t *testing.T) {
	for _, env := range []string{"prod", "dev", "staging2"} {
		key, err := GenerateKey(env)
		if err != nil {
			t.Fatalf("GenerateKey(%q): %v", env, err)
		}
		gotEnv, secret, ok := ParseKey(key)
		if !ok {
			t.Fatalf("ParseKey(%q) rejected a generated key", key)
		}
		if gotEnv != env {
			t.Errorf("env = %q, want %q", gotEnv, env)
		}
		if len(secret) != secretLen {
			t.Errorf("secret length = %d, want %d", len(secret), secretLen)
		}
		if strings.Trim(secret, secretAlphabet) != "" {
			t.Errorf("secret %q has characters outside the alphabet", secret)
		}
	}

	a, _ := GenerateKey("prod")
	b, _ := GenerateKey("prod")
	if a == b {
		t.Error("two generated keys are identical")
	}
}

func TestGenerateKey_RejectsBadEnv(t *testing.T) {
	for _, env := range []string{"", "Prod", "pr-od", "pr od", strings.Repeat("a", 17)} {
		if key, err := GenerateKey(env); err == nil {
			t.Errorf("GenerateKey(%q) = %q, want error", env, key)
		}
	}
}

func TestParseKey(t *testing.T) {
	secret := strings.Repeat("a1", 16)
	tests := []struct {
		name string
		key  string
		env  string
		ok   bool
	}{
		{"valid", "cgw-prod-" + secret, "prod", true},
		{"other scheme", "sk-prod-" + secret, "", false},
		{"short secret", "cgw-prod-abc", "", false},
		{"no env", "cgw-" + secret, "", false},
		{"uppercase env", "cgw-PROD-" + secret, "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _, ok := ParseKey(tt.key)
			if ok != tt.ok || env != tt.env {
				t.Errorf("ParseKey(%q) = (%q, %v), want (%q, %v)", tt.key, env, ok, tt.env, tt.ok)
			}
		})
	}
}

// keygen stores KeyPrefix next to HashKey; the prefix must identify the key
// without revealing more than 8 secret characters.
func TestKeyPrefix_KeygenContract(t *testing.T) {
	key, err := GenerateKey("prod")
	if err != nil {
		t.Fatal(err)
	}
	prefix := KeyPrefix(key)
	if !strings.HasPrefix(key, prefix) {
		t.Errorf("prefix %q is not a prefix of the key", prefix)
	}
	if len(prefix) != len("cgw-prod-")+prefixLen {
		t.Errorf("prefix %q: length = %d, want %d", prefix, len(prefix), len("cgw-prod-")+prefixLen)
	}
	if strings.Contains(HashKey(key), prefix) {
		t.Error("hash should not embed the prefix")
	}

	if got := KeyPrefix("not-a-key-at-all"); got != "not-a-ke" {
		t.Errorf("KeyPrefix(malformed) = %q, want %q", got, "not-a-ke")
	}
	if got := KeyPrefix("abc"); got != "abc" {
		t.Errorf("KeyPrefix(short) = %q, want %q", got, "abc")
	}
}

func TestHashKey(t *testing.T) {
	h := HashKey("cgw-prod-" + strings.Repeat("x", 32))
	if len(h) != 64 {
		t.Fatalf("hash length = %d, want 64", len(h))
	}
	if h != HashKey("cgw-prod-"+strings.Repeat("x", 32)) {
		t.Error("hash is not deterministic")
	}
	if h == HashKey("cgw-dev-"+strings.Repeat("x", 32)) {
		t.Error("keys differing only by env share a hash")
	}
}

func TestKeyMetadata_JSON(t *testing.T) {
	rpm := 30
	daily := int64(250000)
	expires := time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("school scoped with limits", func(t *testing.T) {
		in := KeyMetadata{
			ID:              "key-1",
			TenantID:        "district-7",
			SchoolID:        "lincoln-high",
			Name:            "tutor app",
			RPMLimit:        &rpm,
			DailyTokenLimit: &daily,
			ExpiresAt:       expires,
		}
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		var out KeyMetadata
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatal(err)
		}
		if out.TenantID != "district-7" || out.SchoolID != "lincoln-high" {
			t.Errorf("scope = %q/%q", out.TenantID, out.SchoolID)
		}
		if out.RPMLimit == nil || *out.RPMLimit != rpm {
			t.Errorf("rpm_limit = %v, want %d", out.RPMLimit, rpm)
		}
		if out.DailyTokenLimit == nil || *out.DailyTokenLimit != daily {
			t.Errorf("daily_token_limit = %v, want %d", out.DailyTokenLimit, daily)
		}
		if !out.ExpiresAt.Equal(expires) {
			t.Errorf("expires_at = %v, want %v", out.ExpiresAt, expires)
		}
	})

	t.Run("tenant wide without limits", func(t *testing.T) {
		data, err := json.Marshal(KeyMetadata{ID: "key-2", TenantID: "district-7", Name: "ops"})
		if err != nil {
			t.Fatal(err)
		}
		for _, field := range []string{"school_id", "rpm_limit", "daily_token_limit"} {
			if strings.Contains(string(data), field) {
				t.Errorf("%s should be omitted: %s", field, data)
			}
		}
		var out KeyMetadata
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatal(err)
		}
		if out.RPMLimit != nil || out.DailyTokenLimit != nil {
			t.Error("absent limits should decode as nil")
		}
	})
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"365d", 365 * 24 * time.Hour, false},
		{"0d", 0, false},
		{"90m", 90 * time.Minute, false},
		{"24h", 24 * time.Hour, false},
		{"d", 0, true},
		{"-1d", 0, true},
		{"xd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
