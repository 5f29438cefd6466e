package otpflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Options wires a controller to its collaborators
type Options struct {
	Auth      AuthService
	Navigator Navigator
	Sessions  SessionStore
	View      View
	Clock     Clock
	Logger    logrus.FieldLogger

	// AutoSubmitDelay defaults to DefaultAutoSubmitDelay
	AutoSubmitDelay time.Duration
}

// Controller owns the state of one mounted OTP screen. All methods are safe
// for concurrent use; collaborators are never called with the lock held.
type Controller struct {
	identity   Identity
	view       View
	router     *Router
	dispatcher *Dispatcher
	resender   *Resender
	log        logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	code     Code
	focus    int
	failed   bool
	eligible bool
	closed   bool
	trigger  *trigger
	// edits counts slot edits so a failure is only charged to the code
	// that was actually submitted
	edits uint64
}

// New mounts a controller for identity. When the identity is unusable the
// navigator is sent back upstream and a *MissingIdentityError is returned.
func New(identity Identity, opts Options) (*Controller, error) {
	if opts.Auth == nil || opts.Navigator == nil {
		return nil, errors.New("otpflow: auth service and navigator are required")
	}
	if opts.View == nil {
		opts.View = NopView{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.AutoSubmitDelay <= 0 {
		opts.AutoSubmitDelay = DefaultAutoSubmitDelay
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	router := NewRouter(opts.Navigator, opts.Sessions)
	if !identity.Complete() {
		opts.Logger.WithField("variant", identity.Variant).Warn("otp screen mounted without identity, redirecting")
		router.RedirectUpstream(identity.Variant)
		return nil, &MissingIdentityError{Variant: identity.Variant}
	}

	log := opts.Logger.WithFields(logrus.Fields{
		"identity": identity.Value(),
		"variant":  identity.Variant,
	})
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		identity:   identity,
		view:       opts.View,
		router:     router,
		dispatcher: NewDispatcher(opts.Auth, opts.View.SetVerifying, log),
		resender:   NewResender(opts.Auth, opts.View.SetResending, log),
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		eligible:   true,
	}
	c.trigger = newTrigger(opts.Clock, opts.AutoSubmitDelay, c.autoSubmit)
	return c, nil
}

// Identity returns the identity the screen was mounted with
func (c *Controller) Identity() Identity {
	return c.identity
}

// ChangeDigit handles text typed or pasted into the slot at index
func (c *Controller) ChangeDigit(text string, index int) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed, focus := c.code.change(text, index)
	c.afterInputLocked(changed, focus)
	c.mu.Unlock()

	if focus >= 0 {
		c.view.Focus(focus)
	}
}

// KeyPress handles a raw key on the slot at index
func (c *Controller) KeyPress(key string, index int) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed, focus := c.code.backspace(key, index)
	c.afterInputLocked(changed, focus)
	c.mu.Unlock()

	if focus >= 0 {
		c.view.Focus(focus)
	}
}

// Clear empties every slot and focuses the first one
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed := c.code.Filled() > 0
	c.code = Code{}
	c.afterInputLocked(changed, 0)
	c.mu.Unlock()

	c.view.Focus(0)
}

func (c *Controller) afterInputLocked(changed bool, focus int) {
	if focus >= 0 {
		c.focus = focus
	}
	if !changed {
		return
	}
	c.edits++
	c.failed = false
	c.eligible = true
	c.evaluateLocked()
}

// evaluateLocked runs the auto-submit transitions for the current code
func (c *Controller) evaluateLocked() {
	if !c.code.Complete() {
		c.trigger.reset()
		return
	}
	if c.failed || !c.eligible || c.dispatcher.InFlight() {
		return
	}
	c.trigger.arm()
	c.eligible = false
}

func (c *Controller) autoSubmit(gen uint64) {
	c.mu.Lock()
	if c.closed || !c.trigger.take(gen) || c.failed || !c.code.Complete() {
		c.mu.Unlock()
		return
	}
	code, edits := c.code.String(), c.edits
	c.mu.Unlock()

	c.log.Debug("auto-submitting otp code")
	c.dispatch(c.ctx, code, edits)
}

// Submit verifies the current code on explicit user request
func (c *Controller) Submit(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Outcome{Status: OutcomeAbandoned, Err: context.Canceled}
	}
	// the manual attempt supersedes a pending automatic one
	c.trigger.supersede()
	code, edits := c.code.String(), c.edits
	c.mu.Unlock()

	return c.dispatch(ctx, code, edits)
}

// dispatch verifies code, which was read when the slots had seen edits edits
func (c *Controller) dispatch(ctx context.Context, code string, edits uint64) Outcome {
	o := c.dispatcher.Submit(ctx, code, c.identity)

	switch o.Status {
	case OutcomeInvalid:
		c.view.Notify(noticeFor(o.Err))
		return o

	case OutcomeFailed:
		c.mu.Lock()
		closed := c.closed
		if !closed {
			// digits edited while the attempt was in flight are a new code
			if c.edits == edits {
				c.failed = true
				c.eligible = false
			}
			c.evaluateLocked()
		}
		c.mu.Unlock()
		if closed {
			return Outcome{Status: OutcomeAbandoned, Err: context.Canceled}
		}
		c.log.WithError(o.Err).Info("otp verification failed")
		c.view.Notify(noticeFor(o.Err))
		return o

	case OutcomeSucceeded:
		c.mu.Lock()
		closed := c.closed
		// verified codes are spent; nothing may auto-submit after routing
		c.eligible = false
		c.mu.Unlock()
		if closed {
			return Outcome{Status: OutcomeAbandoned, Err: context.Canceled}
		}
		c.log.Info("otp verified")
		c.view.Notify(Notice{Level: NoticeSuccess, Message: msgVerified})
		if err := c.router.OnOutcome(ctx, o, c.identity); err != nil {
			c.log.WithError(err).Error("failed to route verified otp")
			c.view.Notify(Notice{Level: NoticeError, Message: msgSessionSave})
		}
		return o

	case OutcomeSkipped:
		// another attempt holds the slot; let its settlement pick this code up
		c.mu.Lock()
		if !c.closed && c.dispatcher.State() != AttemptSucceeded {
			c.eligible = true
			c.evaluateLocked()
		}
		c.mu.Unlock()
		return o

	default:
		return o
	}
}

// Resend requests a fresh code. It runs regardless of verification state and
// leaves the entered digits alone.
func (c *Controller) Resend(ctx context.Context) Outcome {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return Outcome{Status: OutcomeAbandoned, Err: context.Canceled}
	}

	o := c.resender.Resend(ctx, c.identity)
	switch o.Status {
	case OutcomeSucceeded:
		msg := o.Message
		if msg == "" {
			msg = msgResent
		}
		c.view.Notify(Notice{Level: NoticeSuccess, Message: msg})
	case OutcomeFailed:
		msg := o.Message
		if msg == "" {
			msg = msgResendFailed
		}
		c.view.Notify(Notice{Level: NoticeError, Message: msg})
	}
	return o
}

// Close unmounts the screen: the pending auto-submit is dropped and an
// in-flight verification is cancelled and its response discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.trigger.reset()
	c.mu.Unlock()

	c.dispatcher.Abort()
	c.cancel()
}

// Code returns a copy of the slots
func (c *Controller) Code() Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// Focus returns the focused slot
func (c *Controller) Focus() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

// Failed reports the failure flag
func (c *Controller) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// AutoSubmitEligible reports the eligibility flag
func (c *Controller) AutoSubmitEligible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eligible
}

// TriggerState returns the auto-submit state
func (c *Controller) TriggerState() TriggerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trigger.state
}

// AttemptState returns the verification attempt state
func (c *Controller) AttemptState() AttemptState {
	return c.dispatcher.State()
}
