package otpflow

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// fakeClock fires timers only when Advance is called
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeAuth records calls and can hold a verification open
type fakeAuth struct {
	mu            sync.Mutex
	verifyCalls   []VerifyRequest
	requestCalls  []Identity
	verifyResult  *VerifyResult
	verifyErr     error
	requestResult *RequestResult
	requestErr    error

	// when set, VerifyOTP signals started and waits for release
	started   chan struct{}
	release   chan struct{}
	ignoreCtx bool
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		verifyResult:  &VerifyResult{Success: true, Token: "tok-1"},
		requestResult: &RequestResult{Success: true},
	}
}

func (f *fakeAuth) hold() {
	f.started = make(chan struct{}, 8)
	f.release = make(chan struct{})
}

func (f *fakeAuth) VerifyOTP(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	f.mu.Lock()
	f.verifyCalls = append(f.verifyCalls, req)
	res, err := f.verifyResult, f.verifyErr
	started, release, ignoreCtx := f.started, f.release, f.ignoreCtx
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		if ignoreCtx {
			<-release
		} else {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return res, err
}

func (f *fakeAuth) RequestOTP(ctx context.Context, identity Identity) (*RequestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestCalls = append(f.requestCalls, identity)
	return f.requestResult, f.requestErr
}

func (f *fakeAuth) VerifyCalls() []VerifyRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]VerifyRequest(nil), f.verifyCalls...)
}

func (f *fakeAuth) RequestCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requestCalls)
}

func (f *fakeAuth) setVerify(res *VerifyResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyResult, f.verifyErr = res, err
}

type navCall struct {
	Op     string
	Route  string
	Params Params
}

type fakeNavigator struct {
	mu    sync.Mutex
	calls []navCall
}

func (n *fakeNavigator) Push(route string, params Params) {
	n.record(navCall{Op: "push", Route: route, Params: params})
}

func (n *fakeNavigator) Replace(route string, params Params) {
	n.record(navCall{Op: "replace", Route: route, Params: params})
}

func (n *fakeNavigator) Back() {
	n.record(navCall{Op: "back"})
}

func (n *fakeNavigator) record(c navCall) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
}

func (n *fakeNavigator) Calls() []navCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]navCall(nil), n.calls...)
}

type fakeSessions struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: map[string]string{}}
}

func (s *fakeSessions) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

func (s *fakeSessions) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key]
}

type fakeView struct {
	mu        sync.Mutex
	verifying []bool
	resending []bool
	focus     []int
	notices   []Notice
}

func (v *fakeView) SetVerifying(b bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.verifying = append(v.verifying, b)
}

func (v *fakeView) SetResending(b bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resending = append(v.resending, b)
}

func (v *fakeView) Focus(i int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focus = append(v.focus, i)
}

func (v *fakeView) Notify(n Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, n)
}

func (v *fakeView) Notices() []Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Notice(nil), v.notices...)
}

func (v *fakeView) LastNotice() (Notice, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.notices) == 0 {
		return Notice{}, false
	}
	return v.notices[len(v.notices)-1], true
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type harness struct {
	clock    *fakeClock
	auth     *fakeAuth
	nav      *fakeNavigator
	sessions *fakeSessions
	view     *fakeView
	ctrl     *Controller
}

const testDelay = 300 * time.Millisecond

func newHarness(identity Identity) (*harness, error) {
	h := &harness{
		clock:    &fakeClock{},
		auth:     newFakeAuth(),
		nav:      &fakeNavigator{},
		sessions: newFakeSessions(),
		view:     &fakeView{},
	}
	ctrl, err := New(identity, Options{
		Auth:            h.auth,
		Navigator:       h.nav,
		Sessions:        h.sessions,
		View:            h.view,
		Clock:           h.clock,
		Logger:          quietLogger(),
		AutoSubmitDelay: testDelay,
	})
	h.ctrl = ctrl
	return h, err
}

var registrationIdentity = Identity{Email: "jane@example.com", Variant: VariantRegistration}

// typeCode enters s one digit per slot starting at slot 0
func (h *harness) typeCode(s string) {
	for i, r := range s {
		h.ctrl.ChangeDigit(string(r), i)
	}
}
