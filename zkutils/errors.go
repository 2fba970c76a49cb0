package zkutils

import (
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
)

var (
	// Node is not a match.
	ErrNodeNotMatch = errors.New("node is not a match")

	// Operation did not complete in time.
	ErrTimeout = errors.New("timeout")
)

// Test if a ZooKeeper error is recoverable.
//
// Takes a conservative approach, and only considers authentication failures
// etc. as unrecoverable.
func IsErrorRecoverable(err error) bool {
	switch err {
	case zk.ErrNoAuth, zk.ErrNoChildrenForEphemerals, zk.ErrNotEmpty, zk.ErrInvalidACL, zk.ErrAuthFailed:
		return false

	default:
		return !IsSessionTerminal(err)
	}
}

// Test if a ZooKeeper error means the session can no longer be used.
//
// Any ephemeral node owned by the session must be considered gone once such
// an error has been observed.
func IsSessionTerminal(err error) bool {
	switch err {
	case zk.ErrSessionExpired, zk.ErrNoAuth, zk.ErrAuthFailed, zk.ErrClosing:
		return true

	default:
		return false
	}
}
