package core

import "context"

// SourceLister enumerates the currently available sources of one kind.
type SourceLister interface {
	List(ctx context.Context) ([]Source, error)
}

// LogProvider knows how to follow and normalize the logs of one kind of source.
type LogProvider interface {
	// Kind returns the source kind this provider serves.
	Kind() Kind

	// Validate rejects ids that must never reach a follower process.
	// Errors wrap ErrValidation or ErrForbidden.
	Validate(id string) error

	// FollowCommand returns the argv that follows the source, starting with
	// the last maxLines lines.
	FollowCommand(id string, maxLines int) []string

	// Normalize converts one framed line into a LogEvent. It never fails.
	Normalize(id string, line []byte) LogEvent
}
