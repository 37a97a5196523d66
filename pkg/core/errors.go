package core

import "errors"

// Error taxonomy. Wrap these with fmt.Errorf("...: %w") and branch with errors.Is.
var (
	// ErrValidation marks a malformed source request (4xx, nothing spawned).
	ErrValidation = errors.New("invalid source request")
	// ErrForbidden marks a daemon outside the allow-list.
	ErrForbidden = errors.New("source not allowed")
	// ErrSourceQuery marks a failed container runtime query.
	ErrSourceQuery = errors.New("source query failed")
	// ErrSpawn marks a follower process that could not start.
	ErrSpawn = errors.New("spawn log follower")
	// ErrStreamRead marks stderr output or an unreadable line; the stream continues.
	ErrStreamRead = errors.New("stream read")
	// ErrProcessExit marks a follower that has exited.
	ErrProcessExit = errors.New("log follower exited")
)

// RequestError is a rejected source request carrying the message shown to
// the client. It unwraps to ErrValidation or ErrForbidden.
type RequestError struct {
	Err error
	Msg string
}

func (e *RequestError) Error() string { return e.Msg }

func (e *RequestError) Unwrap() error { return e.Err }

// Reject builds a RequestError of the given class.
func Reject(class error, msg string) error {
	return &RequestError{Err: class, Msg: msg}
}
