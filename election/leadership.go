package election

import (
	"sync"
)

// Leadership handler.
//
// Invoked on its own goroutine when the process becomes the leader. The end
// channel is closed when the leadership ends, after which the handler must
// return.
type LeadershipHandler func(end <-chan struct{})

// Leadership.
//
// Role handler running a leadership handler for as long as the process
// leads. The controller does not report the end of the session to its role
// handler, so End must be called once the controller is done.
type Leadership struct {
	h    LeadershipHandler
	lock sync.Mutex
	end  chan struct{}
	done sync.WaitGroup
}

// New leadership.
func NewLeadership(h LeadershipHandler) *Leadership {
	return &Leadership{h: h}
}

func (l *Leadership) OnRoleDetermined(isLeader bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if isLeader {
		if l.end == nil {
			l.begin()
		}
	} else {
		l.stop()
	}
}

func (l *Leadership) begin() {
	end := make(chan struct{})
	l.end = end
	l.done.Add(1)

	go func() {
		defer l.done.Done()
		l.h(end)
	}()
}

func (l *Leadership) stop() {
	if l.end != nil {
		close(l.end)
		l.end = nil
	}
}

// Test if the leadership handler is running.
func (l *Leadership) Leading() bool {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.end != nil
}

// End the leadership, if held, and wait for the leadership handler to
// return.
func (l *Leadership) End() {
	l.lock.Lock()
	l.stop()
	l.lock.Unlock()

	l.done.Wait()
}
