package election

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/pkg/errors"
)

const mockSessionEventBuffer = 64

// Mock session state.
type mockSessionState int

const (
	mockSessionActive mockSessionState = iota
	mockSessionExpired
	mockSessionClosed
)

// Internal mock coordination service node.
type mockNode struct {
	// Owning session, or zero for persistent nodes.
	owner int64
}

// Internal mock coordination service watch.
type mockWatch struct {
	session int64
	ch      chan WatchEvent
}

// Mock coordination service.
//
// An in-memory coordination service with ZooKeeper semantics. All sessions
// must be created from the same service to take part in the same election.
// Should only be used for testing.
type MockCoordinationService struct {
	lock     sync.Mutex
	nodes    map[string]*mockNode
	seqs     map[string]int32
	watches  map[string][]mockWatch
	sessions map[int64]*MockSession
	nextID   int64
}

// New mock coordination service.
func NewMockCoordinationService() *MockCoordinationService {
	return &MockCoordinationService{
		nodes:    map[string]*mockNode{"/": {}},
		seqs:     make(map[string]int32),
		watches:  make(map[string][]mockWatch),
		sessions: make(map[int64]*MockSession),
	}
}

// New session.
func (s *MockCoordinationService) NewSession() *MockSession {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.nextID++
	m := &MockSession{
		s:      s,
		id:     s.nextID,
		events: make(chan SessionEvent, mockSessionEventBuffer),
	}
	s.sessions[m.id] = m
	m.events <- SessionConnected

	return m
}

// Set the next sequence number assigned under a parent node.
func (s *MockCoordinationService) SetSequence(parent string, next int32) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.seqs[parent] = next
}

// Test if a node exists.
func (s *MockCoordinationService) Exists(nodePath string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, exists := s.nodes[nodePath]
	return exists
}

// List the sorted names of the children of a node.
func (s *MockCoordinationService) Children(nodePath string) []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.children(nodePath)
}

// Number of outstanding watches on a node.
func (s *MockCoordinationService) Watchers(nodePath string) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.watches[nodePath])
}

// Delete a node.
func (s *MockCoordinationService) Delete(nodePath string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, exists := s.nodes[nodePath]; !exists {
		return ErrNoNode
	}
	if len(s.children(nodePath)) > 0 {
		return errors.Errorf("node has children: %s", nodePath)
	}

	s.remove(nodePath)
	return nil
}

// Touch a node, changing its metadata.
func (s *MockCoordinationService) Touch(nodePath string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, exists := s.nodes[nodePath]; !exists {
		return ErrNoNode
	}

	s.fire(nodePath, WatchNodeDataChanged)
	return nil
}

func (s *MockCoordinationService) children(nodePath string) []string {
	prefix := strings.TrimRight(nodePath, "/") + "/"
	names := make([]string, 0)

	for p := range s.nodes {
		if p != "/" && strings.HasPrefix(p, prefix) && !strings.Contains(p[len(prefix):], "/") {
			names = append(names, p[len(prefix):])
		}
	}

	sort.Strings(names)
	return names
}

// Fire the watches of a node.
func (s *MockCoordinationService) fire(nodePath string, t WatchEventType) {
	for _, w := range s.watches[nodePath] {
		w.ch <- WatchEvent{Type: t, Path: nodePath}
		close(w.ch)
	}
	delete(s.watches, nodePath)
}

func (s *MockCoordinationService) remove(nodePath string) {
	delete(s.nodes, nodePath)
	log.Debugf("Removed mock node: %s", nodePath)
	s.fire(nodePath, WatchNodeDeleted)
	s.fire(path.Dir(nodePath), WatchNodeChildrenChanged)
}

func (s *MockCoordinationService) create(nodePath string, owner int64) error {
	if _, exists := s.nodes[nodePath]; exists {
		return ErrNodeExists
	}
	if _, exists := s.nodes[path.Dir(nodePath)]; !exists {
		return ErrNoNode
	}

	s.nodes[nodePath] = &mockNode{owner: owner}
	log.Debugf("Created mock node: %s", nodePath)
	s.fire(nodePath, WatchNodeCreated)
	s.fire(path.Dir(nodePath), WatchNodeChildrenChanged)

	return nil
}

// End a session.
func (s *MockCoordinationService) end(m *MockSession, state mockSessionState, ev SessionEvent, cause error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if m.state != mockSessionActive {
		return
	}
	m.state = state

	// Remove the watches of the session.
	for p, ws := range s.watches {
		kept := ws[:0]
		for _, w := range ws {
			if w.session == m.id {
				w.ch <- WatchEvent{Type: WatchNotWatching, Path: p, Err: cause}
				close(w.ch)
			} else {
				kept = append(kept, w)
			}
		}
		if len(kept) == 0 {
			delete(s.watches, p)
		} else {
			s.watches[p] = kept
		}
	}

	// Remove the ephemeral nodes of the session.
	owned := make([]string, 0)
	for p, n := range s.nodes {
		if n.owner == m.id {
			owned = append(owned, p)
		}
	}
	sort.Strings(owned)

	for _, p := range owned {
		s.remove(p)
	}

	delete(s.sessions, m.id)

	m.events <- ev
	if state == mockSessionClosed {
		close(m.events)
	}
}

// Mock coordination service session.
//
// Implements Coordinator.
type MockSession struct {
	s      *MockCoordinationService
	id     int64
	state  mockSessionState
	events chan SessionEvent

	failures int
	failErr  error
}

// Fail the next n operations of the session with the given error.
func (m *MockSession) FailNext(n int, err error) {
	m.s.lock.Lock()
	defer m.s.lock.Unlock()

	m.failures = n
	m.failErr = err
}

// Expire the session.
//
// Removes the ephemeral nodes of the session, and reports the expiry to the
// session.
func (m *MockSession) Expire() {
	m.s.end(m, mockSessionExpired, SessionExpired, ErrSessionExpired)
}

// Close the session.
func (m *MockSession) Close() {
	m.s.end(m, mockSessionClosed, SessionClosed, ErrConnectionClosed)
}

// Report a session event to the session without changing it.
func (m *MockSession) Notify(ev SessionEvent) {
	m.s.lock.Lock()
	defer m.s.lock.Unlock()

	if m.state == mockSessionActive {
		m.events <- ev
	}
}

// Test if an operation may be performed. Must be called with the service
// lock held.
func (m *MockSession) check() error {
	switch m.state {
	case mockSessionExpired:
		return ErrSessionExpired
	case mockSessionClosed:
		return ErrConnectionClosed
	}

	if m.failures > 0 {
		m.failures--
		return m.failErr
	}

	return nil
}

func (m *MockSession) CreatePersistent(nodePath string) error {
	m.s.lock.Lock()
	defer m.s.lock.Unlock()

	if err := m.check(); err != nil {
		return err
	}

	// Create missing parents.
	comps := strings.Split(strings.Trim(nodePath, "/"), "/")
	for i := 1; i < len(comps); i++ {
		p := "/" + strings.Join(comps[:i], "/")
		if _, exists := m.s.nodes[p]; !exists {
			if err := m.s.create(p, 0); err != nil {
				return err
			}
		}
	}

	return m.s.create(nodePath, 0)
}

func (m *MockSession) CreateEphemeralSequential(prefix string) (string, error) {
	m.s.lock.Lock()
	defer m.s.lock.Unlock()

	if err := m.check(); err != nil {
		return "", err
	}

	parent := path.Dir(prefix)
	seq := m.s.seqs[parent]
	m.s.seqs[parent] = seq + 1

	nodePath := fmt.Sprintf("%s%010d", prefix, seq)

	if err := m.s.create(nodePath, m.id); err != nil {
		return "", err
	}

	return nodePath, nil
}

func (m *MockSession) Children(nodePath string) ([]string, error) {
	m.s.lock.Lock()
	defer m.s.lock.Unlock()

	if err := m.check(); err != nil {
		return nil, err
	}

	if _, exists := m.s.nodes[nodePath]; !exists {
		return nil, ErrNoNode
	}

	return m.s.children(nodePath), nil
}

func (m *MockSession) ExistsW(nodePath string) (bool, <-chan WatchEvent, error) {
	m.s.lock.Lock()
	defer m.s.lock.Unlock()

	if err := m.check(); err != nil {
		return false, nil, err
	}

	ch := make(chan WatchEvent, 1)
	m.s.watches[nodePath] = append(m.s.watches[nodePath], mockWatch{session: m.id, ch: ch})

	_, exists := m.s.nodes[nodePath]
	return exists, ch, nil
}

// Session events.
//
// All subscribers share the buffered events of the session, regardless of done.
func (m *MockSession) SessionEvents(done <-chan struct{}) <-chan SessionEvent {
	return m.events
}
