package election

import (
	"sync"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/nickbruun/zkelection/zkutils"
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
)

// ZooKeeper coordinator.
type ZooKeeperCoordinator struct {
	cm                 *zkutils.ConnMan
	acl                []zk.ACL
	presumeSessionLoss bool

	lock       sync.Mutex
	ephemerals []string
}

// New ZooKeeper coordinator.
//
// If presumeSessionLoss is set, the session is reported as lost once the
// connection has been down for longer than the session can be assumed to be
// alive, rather than when the cluster reports the expiry after reconnecting.
// The ephemeral nodes created through the coordinator are then removed, should
// the session turn out to have survived.
func NewZooKeeperCoordinator(connMan *zkutils.ConnMan, acl []zk.ACL, presumeSessionLoss bool) *ZooKeeperCoordinator {
	return &ZooKeeperCoordinator{
		cm:                 connMan,
		acl:                acl,
		presumeSessionLoss: presumeSessionLoss,
	}
}

// Translate a ZooKeeper error.
func translateError(err error) error {
	switch err {
	case nil:
		return nil
	case zk.ErrNodeExists:
		return ErrNodeExists
	case zk.ErrNoNode:
		return ErrNoNode
	case zk.ErrSessionExpired:
		return ErrSessionExpired
	case zk.ErrNoAuth, zk.ErrAuthFailed:
		return ErrNoAuth
	case zk.ErrClosing:
		// Only closing the connection ourselves ends the session. Requests
		// failing with zk.ErrConnectionClosed are retried, as the client
		// reconnects to the same session.
		return ErrConnectionClosed
	default:
		return errors.Wrap(err, "zookeeper")
	}
}

func translateEventType(t zk.EventType) WatchEventType {
	switch t {
	case zk.EventNodeCreated:
		return WatchNodeCreated
	case zk.EventNodeDeleted:
		return WatchNodeDeleted
	case zk.EventNodeDataChanged:
		return WatchNodeDataChanged
	case zk.EventNodeChildrenChanged:
		return WatchNodeChildrenChanged
	default:
		return WatchNotWatching
	}
}

func translateState(s zk.State) (SessionEvent, bool) {
	switch s {
	case zk.StateHasSession:
		return SessionConnected, true
	case zk.StateDisconnected:
		return SessionDisconnected, true
	case zk.StateExpired:
		return SessionExpired, true
	case zk.StateAuthFailed:
		return SessionAuthFailed, true
	default:
		return 0, false
	}
}

func (c *ZooKeeperCoordinator) CreatePersistent(path string) error {
	return translateError(zkutils.CreatePersistent(c.cm.Conn, path, c.acl))
}

// Protected creation tags the node name with a GUID, so that a creation whose
// response was lost can be recovered by the client library rather than
// leaving an orphaned node behind.
func (c *ZooKeeperCoordinator) CreateEphemeralSequential(prefix string) (string, error) {
	path, err := c.cm.Conn.CreateProtectedEphemeralSequential(prefix, nil, c.acl)
	if err != nil {
		return "", translateError(err)
	}

	c.lock.Lock()
	c.ephemerals = append(c.ephemerals, path)
	c.lock.Unlock()

	return path, nil
}

// Remove the ephemeral nodes created through the coordinator.
func (c *ZooKeeperCoordinator) withdraw() {
	c.lock.Lock()
	paths := c.ephemerals
	c.ephemerals = nil
	c.lock.Unlock()

	for _, p := range paths {
		if err := zkutils.DeleteSafely(c.cm.Conn, p, c.cm.SessionTimeout); err != nil {
			log.Warnf("Failed to remove %s after presumed session loss: %v", p, err)
		}
	}
}

func (c *ZooKeeperCoordinator) Children(path string) ([]string, error) {
	children, _, err := c.cm.Conn.Children(path)
	return children, translateError(err)
}

func (c *ZooKeeperCoordinator) ExistsW(path string) (bool, <-chan WatchEvent, error) {
	exists, _, zc, err := c.cm.Conn.ExistsW(path)
	if err != nil {
		return false, nil, translateError(err)
	}

	wc := make(chan WatchEvent, 1)

	go func() {
		defer close(wc)

		ev, ok := <-zc
		if !ok {
			return
		}

		wc <- WatchEvent{
			Type: translateEventType(ev.Type),
			Path: ev.Path,
			Err:  translateError(ev.Err),
		}
	}()

	return exists, wc, nil
}

func (c *ZooKeeperCoordinator) SessionEvents(done <-chan struct{}) <-chan SessionEvent {
	in := c.cm.Subscribe()
	out := make(chan SessionEvent)

	var loss <-chan zkutils.SessionLoss
	if c.presumeSessionLoss {
		loss = c.cm.WatchSessionLoss()
	}

	go func() {
		defer c.cm.Unsubscribe(in)
		forwardSessionEvents(in, loss, out, done, func() {
			go c.withdraw()
		})
	}()

	return out
}

// Forward the session events of a connection.
//
// Events are queued until received, so that the subscription never falls
// behind. Stops once done is closed, or the subscription has been closed and
// the queue drained. Closes out when stopping.
func forwardSessionEvents(in <-chan zk.Event, loss <-chan zkutils.SessionLoss, out chan<- SessionEvent, done <-chan struct{}, onLoss func()) {
	defer close(out)

	var queue []SessionEvent

	for in != nil || len(queue) > 0 {
		var send chan<- SessionEvent
		var next SessionEvent
		if len(queue) > 0 {
			send = out
			next = queue[0]
		}

		select {
		case <-done:
			return

		case send <- next:
			queue = queue[1:]

		case ev, ok := <-in:
			if !ok {
				queue = append(queue, SessionClosed)
				in = nil
				loss = nil
				continue
			}

			if ev.Type != zk.EventSession {
				continue
			}

			if se, ok := translateState(ev.State); ok {
				queue = append(queue, se)
			}

		case l, ok := <-loss:
			// Explicit expiry is reported through the session state.
			if ok && !l.Expired {
				log.Warn("Presuming ZooKeeper session lost")
				queue = append(queue, SessionLost)
				onLoss()
			}
			loss = nil
		}
	}
}
