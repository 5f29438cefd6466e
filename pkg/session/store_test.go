package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wellnest/wellnest-api/internal/otpflow"
)

var (
	_ otpflow.SessionStore = (*MemoryStore)(nil)
	_ otpflow.SessionStore = (*RedisStore)(nil)
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, otpflow.SessionTokenKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: %v", err)
	}

	_ = s.Set(ctx, otpflow.SessionTokenKey, "jwt-1")
	_ = s.Set(ctx, otpflow.SessionRoleKey, "Expert")
	_ = s.Set(ctx, otpflow.SessionTokenKey, "jwt-2")

	if v, _ := s.Get(ctx, otpflow.SessionTokenKey); v != "jwt-2" {
		t.Errorf("token = %q, want overwrite", v)
	}
	if snap := s.Snapshot(); len(snap) != 2 || snap[otpflow.SessionRoleKey] != "Expert" {
		t.Errorf("snapshot = %v", snap)
	}

	_ = s.Delete(ctx, otpflow.SessionTokenKey)
	if _, err := s.Get(ctx, otpflow.SessionTokenKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted key still present: %v", err)
	}
}

func TestRedisStore_Keys(t *testing.T) {
	tests := []struct {
		namespace string
		want      string
	}{
		{"", "session:user_role"},
		{"ann@example.com", "session:ann@example.com:user_role"},
	}
	for _, tt := range tests {
		s := NewRedisStore(nil, tt.namespace, time.Hour)
		if got := s.key(otpflow.SessionRoleKey); got != tt.want {
			t.Errorf("key(%q) = %q, want %q", tt.namespace, got, tt.want)
		}
	}
}
