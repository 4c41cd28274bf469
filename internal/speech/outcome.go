package speech

import "time"

// Kind tags the result of one listen attempt.
type Kind int

const (
	OK Kind = iota
	TimedOut
	Unintelligible
	ServiceError
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case TimedOut:
		return "timed_out"
	case Unintelligible:
		return "unintelligible"
	case ServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// Outcome is what a Listener returns. Text is set only for OK; Err only for
// ServiceError.
type Outcome struct {
	Kind     Kind
	Text     string
	Err      error
	Duration time.Duration
}

// ErrorCode classifies speech failures.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeInvalidConfig
	ErrCodeInvalidAudio
	ErrCodeDevice
	ErrCodeProvider
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }
