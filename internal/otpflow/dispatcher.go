package otpflow

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// AttemptState is the lifecycle of the latest verification attempt
type AttemptState int

const (
	AttemptIdle AttemptState = iota
	AttemptInFlight
	AttemptSucceeded
	AttemptFailed
)

func (s AttemptState) String() string {
	switch s {
	case AttemptInFlight:
		return "in-flight"
	case AttemptSucceeded:
		return "succeeded"
	case AttemptFailed:
		return "failed"
	default:
		return "idle"
	}
}

// OutcomeStatus classifies the result of a submit or resend call
type OutcomeStatus int

const (
	// OutcomeSkipped: another call was already in flight, nothing was sent
	OutcomeSkipped OutcomeStatus = iota
	// OutcomeInvalid: local validation failed, nothing was sent
	OutcomeInvalid
	OutcomeSucceeded
	OutcomeFailed
	// OutcomeAbandoned: the attempt was aborted before its response arrived
	OutcomeAbandoned
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeInvalid:
		return "invalid"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeAbandoned:
		return "abandoned"
	default:
		return "skipped"
	}
}

// Outcome is what the dispatcher hands to the router
type Outcome struct {
	Status  OutcomeStatus
	Token   string
	Role    string
	Message string
	Err     error
}

type attempt struct {
	cancel  context.CancelFunc
	aborted bool
}

// Dispatcher sends assembled codes to the auth service, one at a time
type Dispatcher struct {
	auth      AuthService
	onLoading func(bool)
	log       logrus.FieldLogger

	mu      sync.Mutex
	state   AttemptState
	current *attempt
}

// NewDispatcher creates a dispatcher. onLoading may be nil.
func NewDispatcher(auth AuthService, onLoading func(bool), log logrus.FieldLogger) *Dispatcher {
	if onLoading == nil {
		onLoading = func(bool) {}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Dispatcher{auth: auth, onLoading: onLoading, log: log}
}

// State returns the current attempt state
func (d *Dispatcher) State() AttemptState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// InFlight reports whether a verification request is outstanding
func (d *Dispatcher) InFlight() bool {
	return d.State() == AttemptInFlight
}

// Submit verifies code for identity. A call made while another attempt is in
// flight returns OutcomeSkipped without touching the network.
func (d *Dispatcher) Submit(ctx context.Context, code string, identity Identity) Outcome {
	if !ValidCode(code) {
		return Outcome{Status: OutcomeInvalid, Err: &IncompleteCodeError{Code: code}}
	}

	d.mu.Lock()
	if d.state == AttemptInFlight {
		d.mu.Unlock()
		d.log.Debug("otp verification already in flight, skipping")
		return Outcome{Status: OutcomeSkipped}
	}
	attemptCtx, cancel := context.WithCancel(ctx)
	a := &attempt{cancel: cancel}
	d.current = a
	d.state = AttemptInFlight
	d.mu.Unlock()

	d.onLoading(true)
	res, err := d.auth.VerifyOTP(attemptCtx, VerifyRequest{Identity: identity, Code: code})
	cancel()
	d.onLoading(false)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == a {
		d.current = nil
	}

	if a.aborted || errors.Is(err, context.Canceled) {
		d.state = AttemptIdle
		d.log.WithField("identity", identity.Value()).Info("otp verification abandoned")
		return Outcome{Status: OutcomeAbandoned, Err: context.Canceled}
	}

	switch {
	case err != nil:
		d.state = AttemptFailed
		d.log.WithError(err).Warn("otp verification request failed")
		return Outcome{Status: OutcomeFailed, Err: &NetworkError{Err: err}}
	case res == nil || !res.Success:
		d.state = AttemptFailed
		msg := ""
		if res != nil {
			msg = res.Message
		}
		return Outcome{Status: OutcomeFailed, Message: msg, Err: &ServiceRejectedError{Message: msg}}
	default:
		d.state = AttemptSucceeded
		return Outcome{
			Status:  OutcomeSucceeded,
			Token:   res.Token,
			Role:    res.Role,
			Message: res.Message,
		}
	}
}

// Abort cancels the in-flight attempt, if any. Its response is discarded.
func (d *Dispatcher) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.aborted = true
		d.current.cancel()
	}
}
