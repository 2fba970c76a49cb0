package election

import (
	"github.com/pkg/errors"
)

var (
	// Node already exists.
	ErrNodeExists = errors.New("node already exists")

	// Node does not exist.
	ErrNoNode = errors.New("node does not exist")

	// Session has expired.
	ErrSessionExpired = errors.New("session expired")

	// Session is not authorized.
	ErrNoAuth = errors.New("session not authorized")

	// Connection to the coordination service was closed.
	ErrConnectionClosed = errors.New("connection closed")

	// Session is presumed lost after having been disconnected for too long.
	ErrSessionLost = errors.New("session presumed lost")

	// No candidates are registered.
	ErrNoCandidates = errors.New("no candidates registered")

	// A candidate that is not the leader has no predecessor.
	ErrNoPredecessor = errors.New("candidate has no predecessor")

	// Candidacy no longer exists while the session is still in use.
	ErrCandidacyLost = errors.New("candidacy no longer exists")

	// Candidacy has already been registered for the session.
	ErrAlreadyRegistered = errors.New("candidacy already registered")

	// Controller has already been started.
	ErrAlreadyStarted = errors.New("controller already started")

	// Transient errors persisted beyond the retry policy.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Test if an error terminates the session.
//
// Terminal errors void the candidacy and any leadership held by it.
func isSessionTerminal(err error) bool {
	return errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrNoAuth) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrSessionLost)
}

// Test if an error is transient, and the operation failing with it should be
// retried.
func isTransient(err error) bool {
	return err != nil &&
		!isSessionTerminal(err) &&
		!errors.Is(err, ErrNoNode) &&
		!errors.Is(err, ErrNodeExists)
}
