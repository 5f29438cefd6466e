package otpflow

import (
	"context"
	"errors"
	"testing"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", RoleUser},
		{"   ", RoleUser},
		{"User", RoleUser},
		{"user", RoleUser},
		{"EXPERT", RoleExpert},
		{"Expert", RoleExpert},
		{"Admin", "Admin"},
	}
	for _, tt := range tests {
		if got := ResolveRole(tt.in); got != tt.want {
			t.Errorf("ResolveRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLandingRoute(t *testing.T) {
	if got := LandingRoute(""); got != RouteUserHome {
		t.Errorf("LandingRoute(\"\") = %q", got)
	}
	if got := LandingRoute("expert"); got != RouteExpertHome {
		t.Errorf("LandingRoute(expert) = %q", got)
	}
	if got := LandingRoute("Admin"); got != RouteUserHome {
		t.Errorf("LandingRoute(Admin) = %q", got)
	}
}

func TestRouter_FailedOutcomeDoesNotNavigate(t *testing.T) {
	nav := &fakeNavigator{}
	sessions := newFakeSessions()
	r := NewRouter(nav, sessions)

	err := r.OnOutcome(context.Background(), Outcome{Status: OutcomeFailed}, registrationIdentity)
	if err != nil {
		t.Fatalf("OnOutcome: %v", err)
	}
	if calls := nav.Calls(); len(calls) != 0 {
		t.Errorf("navigation = %+v", calls)
	}
	if len(sessions.data) != 0 {
		t.Errorf("sessions written: %v", sessions.data)
	}
}

func TestRouter_SessionWriteFailureStaysPut(t *testing.T) {
	nav := &fakeNavigator{}
	sessions := newFakeSessions()
	sessions.err = errors.New("redis down")
	r := NewRouter(nav, sessions)

	err := r.OnOutcome(context.Background(), Outcome{Status: OutcomeSucceeded, Token: "t"}, registrationIdentity)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls := nav.Calls(); len(calls) != 0 {
		t.Errorf("navigated without a saved session: %+v", calls)
	}
}
