package keystore

import (
	"context"
	"errors"
	"testing"

	"github.com/frostlabs/pulse/internal/domain"
)

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key       string
		wantOwner string
		wantHash  string
		wantErr   bool
	}{
		{"u1-abcdef", "u1", "abcdef", false},
		{"u1-ab-cd", "u1", "ab-cd", false},
		{"nokey", "", "", true},
		{"-hash", "", "", true},
		{"owner-", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		owner, hash, err := SplitKey(tt.key)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SplitKey(%q) expected error", tt.key)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitKey(%q) error = %v", tt.key, err)
			continue
		}
		if owner != tt.wantOwner || hash != tt.wantHash {
			t.Errorf("SplitKey(%q) = (%q, %q), want (%q, %q)", tt.key, owner, hash, tt.wantOwner, tt.wantHash)
		}
	}
}

func TestHashKey_Deterministic(t *testing.T) {
	if HashKey("u1-abc") != HashKey("u1-abc") {
		t.Error("HashKey is not deterministic")
	}
	if HashKey("u1-abc") == HashKey("u1-abd") {
		t.Error("HashKey collides on nearby keys")
	}
	if len(HashKey("x")) != 64 {
		t.Errorf("HashKey length = %d, want 64 hex chars", len(HashKey("x")))
	}
}

func TestTrustedAuthenticator(t *testing.T) {
	auth := TrustedAuthenticator{}

	p, err := auth.VerifyAccess(context.Background(), "app1", "u1")
	if err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}
	if p.UserID != "u1" || p.ApplicationID != "app1" {
		t.Errorf("principal = %+v", p)
	}

	if _, err := auth.VerifyAccess(context.Background(), "app1", ""); !errors.Is(err, domain.ErrInvalidAccessKey) {
		t.Errorf("empty access key error = %v, want ErrInvalidAccessKey", err)
	}
}
