package zkutils

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/nickbruun/zkelection/logging"
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
)

// Delete a node safely.
//
// Will attempt to delete a node until either an unrecoverable error is
// encountered, the node is gone, or the timeout has passed. Returns ErrTimeout
// in the latter case.
func DeleteSafely(conn *zk.Conn, path string, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = timeout

	err := backoff.RetryNotify(func() error {
		err := conn.Delete(path, -1)

		if err == nil {
			log.Debugf("Removed node: %s", path)
			return nil
		} else if err == zk.ErrNoNode {
			log.Debugf("Node no longer exists: %s", path)
			return nil
		} else if !IsErrorRecoverable(err) {
			log.Errorf("Unrecoverable error trying to remove node %s: %v", path, err)
			return backoff.Permanent(err)
		}

		return err
	}, b, func(err error, wait time.Duration) {
		log.Warnf("Failed to remove node %s, waiting %s to retry: %v", path, wait, err)
	})

	if err != nil && IsErrorRecoverable(err) {
		return errors.Wrapf(ErrTimeout, "removing %s: %v", path, err)
	}
	return err
}
