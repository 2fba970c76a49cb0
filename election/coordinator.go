package election

// Watch event type.
type WatchEventType int

const (
	// Watched node was created.
	WatchNodeCreated WatchEventType = iota

	// Watched node was deleted.
	WatchNodeDeleted

	// Data or metadata of the watched node changed.
	WatchNodeDataChanged

	// Children of the watched node changed.
	WatchNodeChildrenChanged

	// The watch was removed without the node changing, for instance because
	// the session ended. The cause is reported in the event's Err.
	WatchNotWatching
)

func (t WatchEventType) String() string {
	switch t {
	case WatchNodeCreated:
		return "created"
	case WatchNodeDeleted:
		return "deleted"
	case WatchNodeDataChanged:
		return "data changed"
	case WatchNodeChildrenChanged:
		return "children changed"
	case WatchNotWatching:
		return "not watching"
	default:
		return "unknown"
	}
}

// Watch event.
//
// Delivered at most once per watch.
type WatchEvent struct {
	Type WatchEventType
	Path string
	Err  error
}

// Session event.
type SessionEvent int

const (
	// Session is established, or reestablished after a disconnect. Watches
	// survive reconnection, and events missed while disconnected are
	// delivered in order.
	SessionConnected SessionEvent = iota

	// Connection was lost. The session may still be alive.
	SessionDisconnected

	// Session expired.
	SessionExpired

	// Session failed authentication.
	SessionAuthFailed

	// Session is presumed lost after having been disconnected for longer
	// than it can safely be assumed to be alive.
	SessionLost

	// Connection was closed by the client, ending the session.
	SessionClosed
)

func (e SessionEvent) String() string {
	switch e {
	case SessionConnected:
		return "connected"
	case SessionDisconnected:
		return "disconnected"
	case SessionExpired:
		return "expired"
	case SessionAuthFailed:
		return "auth failed"
	case SessionLost:
		return "lost"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Coordination service session.
//
// The capabilities of a strongly consistent coordination service required to
// hold an election. All operations are bound to a single session. Errors are
// reported using the sentinel errors of this package; any other error is
// considered transient.
type Coordinator interface {
	// Create a persistent node with no data.
	//
	// Returns ErrNodeExists if the node already exists.
	CreatePersistent(path string) error

	// Create an ephemeral node with no data, suffixed by a unique,
	// monotonically increasing sequence number.
	//
	// The node is removed when the session ends. Returns the full path of
	// the created node.
	CreateEphemeralSequential(prefix string) (string, error)

	// List the names of the children of a node, in no particular order.
	Children(path string) ([]string, error)

	// Test if a node exists, and leave a watch for changes to it.
	//
	// The watch is registered whether or not the node exists, and receives a
	// single event.
	ExistsW(path string) (bool, <-chan WatchEvent, error)

	// Session events.
	//
	// Events are queued until they are received. The channel is closed after
	// the session has ended, or once done is closed.
	SessionEvents(done <-chan struct{}) <-chan SessionEvent
}
