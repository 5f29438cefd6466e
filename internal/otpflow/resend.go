package otpflow

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Resender asks the auth service for a fresh code. It only guards against
// its own overlapping calls and ignores verification state.
type Resender struct {
	auth      AuthService
	onLoading func(bool)
	log       logrus.FieldLogger

	mu       sync.Mutex
	inFlight bool
}

// NewResender creates a resender. onLoading may be nil.
func NewResender(auth AuthService, onLoading func(bool), log logrus.FieldLogger) *Resender {
	if onLoading == nil {
		onLoading = func(bool) {}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resender{auth: auth, onLoading: onLoading, log: log}
}

// InFlight reports whether a resend is outstanding
func (r *Resender) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Resend requests a new code for identity
func (r *Resender) Resend(ctx context.Context, identity Identity) Outcome {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return Outcome{Status: OutcomeSkipped}
	}
	r.inFlight = true
	r.mu.Unlock()

	r.onLoading(true)
	res, err := r.auth.RequestOTP(ctx, identity)
	r.onLoading(false)

	r.mu.Lock()
	r.inFlight = false
	r.mu.Unlock()

	switch {
	case errors.Is(err, context.Canceled):
		return Outcome{Status: OutcomeAbandoned, Err: err}
	case err != nil:
		r.log.WithError(err).Warn("otp resend request failed")
		return Outcome{Status: OutcomeFailed, Err: &NetworkError{Err: err}}
	case res == nil || !res.Success:
		msg := ""
		if res != nil {
			msg = res.Message
		}
		return Outcome{Status: OutcomeFailed, Message: msg, Err: &ServiceRejectedError{Message: msg}}
	default:
		r.log.WithField("identity", identity.Value()).Info("otp code resent")
		return Outcome{Status: OutcomeSucceeded, Message: res.Message}
	}
}
