package otpflow

import "fmt"

// IncompleteCodeError means the code was not exactly six digits. It never
// reaches the network.
type IncompleteCodeError struct {
	Code string
}

func (e *IncompleteCodeError) Error() string {
	return fmt.Sprintf("otp code must be %d digits, got %q", CodeLength, e.Code)
}

// ServiceRejectedError means the auth service reported the code as invalid
// or expired.
type ServiceRejectedError struct {
	Message string
}

func (e *ServiceRejectedError) Error() string {
	if e.Message == "" {
		return "otp code rejected"
	}
	return "otp code rejected: " + e.Message
}

// NetworkError wraps a transport failure talking to the auth service
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "auth service unreachable: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MissingIdentityError is returned at mount when no usable identity was
// handed over.
type MissingIdentityError struct {
	Variant Variant
}

func (e *MissingIdentityError) Error() string {
	return fmt.Sprintf("otp flow mounted without identity (variant %q)", e.Variant)
}

// user-facing texts
const (
	msgIncompleteCode = "Please enter the 6-digit code"
	msgInvalidCode    = "Invalid or expired code. Please try again"
	msgNetwork        = "Network error. Check your connection and try again"
	msgVerified       = "Verification successful"
	msgResent         = "A new code has been sent"
	msgResendFailed   = "Could not resend the code. Please try again"
	msgSessionSave    = "Verified, but the session could not be saved"
)

// noticeFor converts a dispatcher error into the message shown to the user
func noticeFor(err error) Notice {
	switch e := err.(type) {
	case *IncompleteCodeError:
		return Notice{Level: NoticeError, Message: msgIncompleteCode}
	case *ServiceRejectedError:
		if e.Message != "" {
			return Notice{Level: NoticeError, Message: e.Message}
		}
		return Notice{Level: NoticeError, Message: msgInvalidCode}
	case *NetworkError:
		return Notice{Level: NoticeError, Message: msgNetwork}
	default:
		return Notice{Level: NoticeError, Message: msgInvalidCode}
	}
}
