package zkutils

import (
	"sync"
	"time"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/samuel/go-zookeeper/zk"
)

// Session loss.
type SessionLoss struct {
	// The session was explicitly expired by the cluster, or the connection
	// was closed. If false, the session is only presumed lost because the
	// connection has been down for longer than the session can be assumed
	// to be alive.
	Expired bool
}

// Connection session watcher.
//
// Watches for possible losses of sessions.
type connSessionWatcher struct {
	ec             <-chan zk.Event
	sessionTimeout time.Duration
	recvTimeout    time.Duration
	watchers       []chan SessionLoss
	closed         bool
	lock           sync.Mutex
}

// New connection session watcher.
func newConnSessionWatcher(ec <-chan zk.Event, sessionTimeout time.Duration, recvTimeout time.Duration) *connSessionWatcher {
	w := &connSessionWatcher{
		ec:             ec,
		sessionTimeout: sessionTimeout,
		recvTimeout:    recvTimeout,
	}

	go w.watch()

	return w
}

// Publish the possible loss of a session.
func (w *connSessionWatcher) publish(loss SessionLoss) {
	w.lock.Lock()
	defer w.lock.Unlock()

	for _, ch := range w.watchers {
		ch <- loss
		close(ch)
	}
	w.watchers = nil
}

// Wait for the next session state change.
//
// Returns false if the event channel has been closed.
func (w *connSessionWatcher) next() (zk.State, bool) {
	for {
		ev, ok := <-w.ec
		if !ok {
			return zk.StateUnknown, false
		}

		if ev.Type == zk.EventSession {
			return ev.State, true
		}
	}
}

// Watch a session from the point where it was acquired until it is somehow
// lost.
//
// Returns true if the event channel has been closed.
func (w *connSessionWatcher) watchSession() (done bool) {
	for {
		state, ok := w.next()
		if !ok {
			return true
		}

		switch state {
		case zk.StateExpired, zk.StateAuthFailed:
			w.publish(SessionLoss{Expired: true})
			return false

		case zk.StateDisconnected:
			if lost, done := w.awaitReconnect(); lost || done {
				return done
			}
		}
	}
}

// Wait for a disconnected session to be reacquired.
//
// Gives up once the session can no longer be assumed alive.
func (w *connSessionWatcher) awaitReconnect() (lost bool, done bool) {
	deadline := time.NewTimer(w.sessionTimeout - w.recvTimeout)
	defer deadline.Stop()

	for {
		select {
		case ev, ok := <-w.ec:
			if !ok {
				return false, true
			}

			if ev.Type != zk.EventSession {
				continue
			}

			switch ev.State {
			case zk.StateHasSession:
				return false, false

			case zk.StateExpired, zk.StateAuthFailed:
				w.publish(SessionLoss{Expired: true})
				return true, false
			}

		case <-deadline.C:
			log.Warnf("Disconnected for more than %s, presuming session lost", w.sessionTimeout-w.recvTimeout)
			w.publish(SessionLoss{Expired: false})
			return true, false
		}
	}
}

// Watch.
func (w *connSessionWatcher) watch() {
	// Wait for us to get a session.
	for {
		state, ok := w.next()
		if !ok {
			break
		}

		if state != zk.StateHasSession {
			continue
		}

		// Watch the newly established session.
		if w.watchSession() {
			break
		}
	}

	// Close all outstanding watchers by indicating a hard session loss, as the
	// end of the event channel means the connection has been closed.
	w.lock.Lock()
	w.closed = true
	w.lock.Unlock()

	w.publish(SessionLoss{Expired: true})
}

// Add watcher.
//
// Returns a one-shot channel which will emit the nature of the next session
// loss.
func (w *connSessionWatcher) AddWatcher() <-chan SessionLoss {
	ch := make(chan SessionLoss, 1)

	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		ch <- SessionLoss{Expired: true}
		close(ch)
	} else {
		w.watchers = append(w.watchers, ch)
	}

	return ch
}
