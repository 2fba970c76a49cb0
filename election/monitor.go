package election

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/nickbruun/zkelection/logging"
	"github.com/nickbruun/zkelection/metrics"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Watch monitor state.
type MonitorState int32

const (
	// No watch is outstanding.
	Unarmed MonitorState = iota

	// A watch is outstanding on the target.
	Watching

	// The session has ended. Terminal.
	SessionTerminated
)

func (s MonitorState) String() string {
	switch s {
	case Unarmed:
		return "unarmed"
	case Watching:
		return "watching"
	case SessionTerminated:
		return "session terminated"
	default:
		return "unknown"
	}
}

// Watch monitor listener.
//
// Invoked from the goroutine serving the monitor.
type MonitorListener interface {
	// The watch target no longer exists. The monitor is unarmed until Arm is
	// called with a new target.
	OnTargetDeleted()

	// The session has ended. Invoked exactly once, after which the monitor
	// no longer serves.
	OnSessionTerminated(cause error)
}

// Monitor event kind.
type monitorEventKind int

const (
	eventTargetDeleted monitorEventKind = iota
	eventSessionTerminated
	eventTargetChanged
	eventTransient
	eventReconnected
	eventSpurious
)

// Monitor event.
//
// Raw results and events of the coordination service are decoded into
// monitor events once, as they enter the monitor.
type monitorEvent struct {
	kind monitorEventKind
	err  error
}

// Decode the result of an existence check of the watch target.
//
// A present target decodes as spurious, as there is nothing to act upon.
func decodeCheck(exists bool, err error) monitorEvent {
	switch {
	case err == nil && exists:
		return monitorEvent{kind: eventSpurious}
	case err == nil, errors.Is(err, ErrNoNode):
		return monitorEvent{kind: eventTargetDeleted}
	case isSessionTerminal(err):
		return monitorEvent{kind: eventSessionTerminated, err: err}
	default:
		return monitorEvent{kind: eventTransient, err: err}
	}
}

// Decode a watch event for the watch target.
func decodeWatch(target string, ev WatchEvent, ok bool) monitorEvent {
	if !ok {
		return monitorEvent{kind: eventTransient, err: errors.New("watch channel closed")}
	}

	if ev.Type == WatchNotWatching {
		if isSessionTerminal(ev.Err) {
			return monitorEvent{kind: eventSessionTerminated, err: ev.Err}
		}
		return monitorEvent{kind: eventTransient, err: ev.Err}
	}

	if ev.Path != "" && ev.Path != target {
		return monitorEvent{kind: eventSpurious}
	}

	return monitorEvent{kind: eventTargetChanged}
}

// Decode a session event.
func decodeSession(ev SessionEvent, ok bool) monitorEvent {
	if !ok {
		return monitorEvent{kind: eventSessionTerminated, err: ErrConnectionClosed}
	}

	switch ev {
	case SessionConnected:
		return monitorEvent{kind: eventReconnected}
	case SessionExpired:
		return monitorEvent{kind: eventSessionTerminated, err: ErrSessionExpired}
	case SessionAuthFailed:
		return monitorEvent{kind: eventSessionTerminated, err: ErrNoAuth}
	case SessionLost:
		return monitorEvent{kind: eventSessionTerminated, err: ErrSessionLost}
	case SessionClosed:
		return monitorEvent{kind: eventSessionTerminated, err: ErrConnectionClosed}
	default:
		return monitorEvent{kind: eventSpurious}
	}
}

// Watch monitor.
//
// Maintains a single existence watch on a target node, and informs its
// listener when the target is deleted or the session ends. Transient errors
// are retried according to the retry policy and never reach the listener.
//
// Apart from State, a monitor must only be used from a single goroutine:
// the one calling Serve, or the listener invoked by it.
type WatchMonitor struct {
	coord    Coordinator
	listener MonitorListener
	retry    RetryPolicy

	state    atomic.Int32
	target   string
	watch    <-chan WatchEvent
	sessions <-chan SessionEvent
	pending  []monitorEvent

	stop     chan struct{}
	stopOnce sync.Once
}

// New watch monitor.
//
// Subscribes to the session events of the coordinator immediately, so that
// no session event is missed before the monitor is served.
func NewWatchMonitor(coord Coordinator, listener MonitorListener, retry RetryPolicy) *WatchMonitor {
	stop := make(chan struct{})

	return &WatchMonitor{
		coord:    coord,
		listener: listener,
		retry:    retry,
		sessions: coord.SessionEvents(stop),
		stop:     stop,
	}
}

// Current state.
func (m *WatchMonitor) State() MonitorState {
	return MonitorState(m.state.Load())
}

// Current target.
func (m *WatchMonitor) Target() string {
	return m.target
}

func (m *WatchMonitor) enqueue(ev monitorEvent) {
	m.pending = append(m.pending, ev)
}

// Arm the monitor with a target.
//
// Replaces any current target. Has no effect once the session has ended.
func (m *WatchMonitor) Arm(target string) {
	if m.State() == SessionTerminated {
		log.Debugf("Session terminated, not watching %s", target)
		return
	}

	m.target = target
	m.watch = nil

	log.Debugf("Watching %s", target)
	m.check()
}

// Check the existence of the target, leaving a watch.
func (m *WatchMonitor) check() {
	var exists bool
	var watch <-chan WatchEvent

	err := m.withRetries("exists", func() (err error) {
		exists, watch, err = m.coord.ExistsW(m.target)
		return
	})

	ev := decodeCheck(exists, err)
	switch ev.kind {
	case eventSpurious:
		m.watch = watch
		m.state.Store(int32(Watching))
		metrics.WatchArms.Inc()

	case eventTransient:
		// Retries have been given up on.
		m.enqueue(monitorEvent{kind: eventSessionTerminated, err: err})

	default:
		m.enqueue(ev)
	}
}

// Sleep for a duration, unless the session ends.
func (m *WatchMonitor) sleep(d time.Duration) (monitorEvent, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return monitorEvent{}, false

		case sev, ok := <-m.sessions:
			if ev := decodeSession(sev, ok); ev.kind == eventSessionTerminated {
				return ev, true
			}
		}
	}
}

// Run an operation against the coordination service, retrying it on
// transient errors.
//
// Returns the first error that is not transient, or an error wrapping
// ErrRetriesExhausted once the retry policy gives up.
func (m *WatchMonitor) withRetries(operation string, fn func() error) error {
	b := m.retry.backOff()

	for {
		err := fn()
		if !isTransient(err) {
			return err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			log.Errorf("Giving up %s after repeated transient errors: %v", operation, err)
			return errors.Wrapf(ErrRetriesExhausted, "%s: %v", operation, err)
		}

		metrics.TransientRetries.WithLabelValues(operation).Inc()
		log.Warnf("Transient error during %s, waiting %s to retry: %v", operation, wait, err)

		if ev, interrupted := m.sleep(wait); interrupted {
			return ev.err
		}
	}
}

// Terminate the monitor without informing the listener.
//
// Releases the subscription to session events.
func (m *WatchMonitor) terminate() {
	m.state.Store(int32(SessionTerminated))
	m.watch = nil
	m.pending = nil
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// Wait for the next event.
func (m *WatchMonitor) next() monitorEvent {
	if len(m.pending) > 0 {
		ev := m.pending[0]
		m.pending = m.pending[1:]
		return ev
	}

	select {
	case wev, ok := <-m.watch:
		m.watch = nil
		return decodeWatch(m.target, wev, ok)

	case sev, ok := <-m.sessions:
		return decodeSession(sev, ok)
	}
}

func (m *WatchMonitor) handle(ev monitorEvent) {
	switch ev.kind {
	case eventTargetDeleted:
		log.Debugf("Watch target deleted: %s", m.target)
		m.state.Store(int32(Unarmed))
		m.watch = nil
		m.listener.OnTargetDeleted()

	case eventSessionTerminated:
		log.Warnf("Session terminated while watching %s: %v", m.target, ev.err)
		m.terminate()
		m.listener.OnSessionTerminated(ev.err)

	case eventTargetChanged:
		log.Debugf("Watch target changed, checking existence: %s", m.target)
		m.check()

	case eventTransient:
		log.Debugf("Watch on %s lost, rechecking: %v", m.target, ev.err)
		m.check()

	case eventReconnected:
		log.Debug("Session reestablished")
	}
}

// Serve the monitor until the session ends.
func (m *WatchMonitor) Serve() {
	for m.State() != SessionTerminated {
		m.handle(m.next())
	}
}
