package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/wellnest/wellnest-api/internal/otpflow"
	"github.com/wellnest/wellnest-api/pkg/session"
)

type scriptedAuth struct {
	mu      sync.Mutex
	codes   []string
	accept  string
	resends int
	role    string
}

func (a *scriptedAuth) VerifyOTP(_ context.Context, req otpflow.VerifyRequest) (*otpflow.VerifyResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codes = append(a.codes, req.Code)
	if req.Code != a.accept {
		return &otpflow.VerifyResult{Success: false, Message: "invalid or expired OTP code"}, nil
	}
	return &otpflow.VerifyResult{Success: true, Token: "token-abcdefghijk", Role: a.role}, nil
}

func (a *scriptedAuth) RequestOTP(context.Context, otpflow.Identity) (*otpflow.RequestResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resends++
	return &otpflow.RequestResult{Success: true}, nil
}

func mount(t *testing.T, auth otpflow.AuthService, identity otpflow.Identity, store otpflow.SessionStore) (*otpflow.Controller, *terminal, *bytes.Buffer) {
	t.Helper()
	log, _ := test.NewNullLogger()
	var out bytes.Buffer
	term := newTerminal(&out)
	ctrl, err := otpflow.New(identity, otpflow.Options{
		Auth:            auth,
		Navigator:       term,
		Sessions:        store,
		View:            term,
		Logger:          log,
		AutoSubmitDelay: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ctrl.Close)
	return ctrl, term, &out
}

func TestTerminal_RegistrationLandsOnRoleHome(t *testing.T) {
	auth := &scriptedAuth{accept: "123456", role: "Expert"}
	store := session.NewMemoryStore()
	ctrl, term, out := mount(t, auth, otpflow.Identity{Email: "ann@example.com", Variant: otpflow.VariantRegistration}, store)

	// "9" is typed then deleted before the real code is entered
	input := strings.NewReader("9\n<\n123\n456\nsubmit\n")
	if err := term.run(context.Background(), ctrl, input); err != nil {
		t.Fatal(err)
	}

	route, params := term.Landing()
	if route != otpflow.RouteExpertHome || params["role"] != "Expert" {
		t.Errorf("landing = %s %v", route, params)
	}
	if len(auth.codes) != 1 || auth.codes[0] != "123456" {
		t.Errorf("verified codes = %v", auth.codes)
	}
	if got := store.Snapshot()[otpflow.SessionTokenKey]; got != "token-abcdefghijk" {
		t.Errorf("stored token = %q", got)
	}
	if !strings.Contains(out.String(), "verifying...") {
		t.Errorf("output missing progress: %q", out.String())
	}
}

func TestTerminal_RejectedThenQuit(t *testing.T) {
	auth := &scriptedAuth{accept: "123456"}
	ctrl, term, out := mount(t, auth, otpflow.Identity{Phone: "+15550100", Variant: otpflow.VariantPasswordReset}, nil)

	input := strings.NewReader("000000\nsubmit\nresend\nquit\n123456\nsubmit\n")
	if err := term.run(context.Background(), ctrl, input); err != nil {
		t.Fatal(err)
	}

	if route, _ := term.Landing(); route != "" {
		t.Errorf("navigated to %q after rejection", route)
	}
	if len(auth.codes) != 1 || auth.resends != 1 {
		t.Errorf("codes %v resends %d", auth.codes, auth.resends)
	}
	if !strings.Contains(out.String(), "[error]") {
		t.Errorf("rejection not shown: %q", out.String())
	}
}

func TestRender(t *testing.T) {
	auth := &scriptedAuth{}
	ctrl, _, _ := mount(t, auth, otpflow.Identity{Email: "a@b.co", Variant: otpflow.VariantRegistration}, nil)
	ctrl.ChangeDigit("12", 0)

	if got, want := render(ctrl.Code(), 2), " 1  2 [_] _  _  _ "; got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestDescribe(t *testing.T) {
	got := describe(otpflow.Params{"reset_token": "0123456789abcdef", "email": "a@b.co", "phone": ""})
	if got != "email=a@b.co reset_token=01234567..." {
		t.Errorf("describe = %q", got)
	}
}

func TestRun_MissingIdentity(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), options{Variant: "password_reset", LogLevel: "error"}, strings.NewReader(""), &out, &errOut)
	if err == nil || !strings.Contains(err.Error(), otpflow.RouteForgotPassword) {
		t.Errorf("err = %v", err)
	}
}
