package zkutils

import (
	"sync"
	"time"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/samuel/go-zookeeper/zk"
)

// ZooKeeper connection manager.
//
// ZooKeeper connection wrapper that provides multiplexed access to events as
// well as information about session timeout.
type ConnMan struct {
	Conn           *zk.Conn
	SessionTimeout time.Duration
	RecvTimeout    time.Duration
	PingInterval   time.Duration
	em             *EventMultiplexer
	sw             *connSessionWatcher
	closeOnce      sync.Once
}

// Adapter routing the client library's log output to debug logging.
type zkLogger struct{}

func (zkLogger) Printf(format string, args ...interface{}) {
	log.Debugf("zk: "+format, args...)
}

// Connect as connection manager.
func Connect(servers []string, sessionTimeout time.Duration) (*ConnMan, error) {
	// Create the connection.
	conn, ec, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{}))
	if err != nil {
		return nil, err
	}

	// Set up the connection manager.
	recvTimeout := sessionTimeout * 2 / 3 // Hardcoded in zk.
	em := NewEventMultiplexer(ec)

	cm := &ConnMan{
		Conn:           conn,
		SessionTimeout: sessionTimeout,
		RecvTimeout:    recvTimeout,
		PingInterval:   recvTimeout / 2, // Hardcoded in zk.
		em:             em,
		sw:             newConnSessionWatcher(em.Subscribe(), sessionTimeout, recvTimeout),
	}

	log.Debugf("Connecting to ZooKeeper servers %v with session timeout %s", servers, sessionTimeout)

	return cm, nil
}

// Close connection.
//
// Closing the connection ends the session, which removes any ephemeral node
// owned by it. Closing more than once has no effect.
func (m *ConnMan) Close() {
	m.closeOnce.Do(m.Conn.Close)
}

// Watch for session loss.
//
// Session loss is indicated if a session expires or connection to a cluster
// is lost for more than the time it is safe to assume that a session is still
// well and alive. If session loss is indicated, it is recommended that any
// caller strictly relying on ephemeral nodes attempt to remove the ephemeral
// node.
//
// Returns a one-shot channel which will emit the nature of the loss.
func (m *ConnMan) WatchSessionLoss() <-chan SessionLoss {
	return m.sw.AddWatcher()
}

// Subscribe to all events for the connection.
//
// The channel is closed when the connection is closed, or if the subscriber
// falls too far behind.
func (m *ConnMan) Subscribe() <-chan zk.Event {
	return m.em.Subscribe()
}

// Unsubscribe from the events for the connection.
func (m *ConnMan) Unsubscribe(ch <-chan zk.Event) {
	m.em.Unsubscribe(ch)
}
