package election

import (
	"sync"
	"time"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/nickbruun/zkelection/unittest"
)

// Election backend.
//
// Provides sessions against a coordination service for the election test
// suite.
type ElectionBackend interface {
	// New session.
	NewSession() Coordinator

	// End a session, removing its ephemeral nodes.
	EndSession(coord Coordinator)
}

// Role determination recorder.
type RoleRecorder struct {
	lock  sync.Mutex
	roles []bool
	ch    chan bool
}

// New role determination recorder.
func NewRoleRecorder() *RoleRecorder {
	return &RoleRecorder{
		ch: make(chan bool, 64),
	}
}

func (r *RoleRecorder) OnRoleDetermined(isLeader bool) {
	r.lock.Lock()
	r.roles = append(r.roles, isLeader)
	r.lock.Unlock()

	r.ch <- isLeader
}

// Recorded determinations.
func (r *RoleRecorder) Roles() []bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]bool(nil), r.roles...)
}

// Election test suite.
//
// Exercises the election protocol against a backend.
type ElectionTestSuite struct {
	unittest.TestSuite

	Backend ElectionBackend
	Options Options
}

// Start a candidate in a new session.
func (s *ElectionTestSuite) StartCandidate() (Coordinator, *Controller, *RoleRecorder) {
	coord := s.Backend.NewSession()
	rec := NewRoleRecorder()
	c := NewController(coord, rec, s.Options)

	if err := c.Start(); err != nil {
		s.Fatalf("Unexpected error starting election: %v", err)
	}

	return coord, c, rec
}

// Assert that the next role determination is made before a timeout.
func (s *ElectionTestSuite) AssertRole(rec *RoleRecorder, expected bool, timeout time.Duration) {
	select {
	case isLeader := <-rec.ch:
		if isLeader != expected {
			s.Fatalf("Expected role determination leader: %v, but got leader: %v", expected, isLeader)
		}
	case <-time.After(timeout):
		s.Fatalf("No role determination within %s", timeout)
	}
}

// Assert that no role determination is made within a duration.
func (s *ElectionTestSuite) AssertNoRole(rec *RoleRecorder, d time.Duration) {
	select {
	case isLeader := <-rec.ch:
		s.Fatalf("Unexpected role determination, leader: %v", isLeader)
	case <-time.After(d):
	}
}

// Assert that a controller is done before a timeout.
func (s *ElectionTestSuite) AssertDone(c *Controller, timeout time.Duration) {
	select {
	case <-c.Done():
	case <-time.After(timeout):
		s.Fatalf("Election of %s did not end within %s", c.Candidacy(), timeout)
	}
}

func (s *ElectionTestSuite) TestSingleCandidate() {
	coord, c, rec := s.StartCandidate()

	s.AssertRole(rec, true, time.Second)
	s.AssertEqual(true, c.IsLeader())
	s.AssertEqual(c.Candidacy(), c.Leader())
	s.AssertEqual(c.Candidacy(), c.WatchTarget())

	s.Backend.EndSession(coord)
	s.AssertDone(c, 5*time.Second)

	s.AssertNoError(c.Wait())
	s.AssertEqual(false, c.IsLeader())
	s.AssertEqual(true, c.Status().Terminated)
	s.AssertIsNotNil(c.Cause())
}

func (s *ElectionTestSuite) TestStartTwice() {
	coord, c, _ := s.StartCandidate()
	defer s.Backend.EndSession(coord)

	s.AssertErrorIs(c.Start(), ErrAlreadyStarted)
}

func (s *ElectionTestSuite) TestSuccession() {
	coordA, a, recA := s.StartCandidate()
	coordB, b, recB := s.StartCandidate()
	coordC, c, recC := s.StartCandidate()
	defer s.Backend.EndSession(coordC)

	s.AssertRole(recA, true, time.Second)
	s.AssertRole(recB, false, time.Second)
	s.AssertRole(recC, false, time.Second)

	s.AssertEqual(a.Candidacy(), b.WatchTarget())
	s.AssertEqual(b.Candidacy(), c.WatchTarget())
	s.AssertEqual(a.Candidacy(), c.Leader())

	// The end of the leader's session only concerns its successor.
	log.Debugf("Ending session of leader %s", a.Candidacy())
	s.Backend.EndSession(coordA)
	s.AssertDone(a, 5*time.Second)

	s.AssertRole(recB, true, 5*time.Second)
	s.AssertEqual(b.Candidacy(), b.WatchTarget())
	s.AssertEqual(true, b.IsLeader())
	s.AssertNoRole(recC, 200*time.Millisecond)
	s.AssertEqual(b.Candidacy(), c.WatchTarget())

	log.Debugf("Ending session of leader %s", b.Candidacy())
	s.Backend.EndSession(coordB)
	s.AssertDone(b, 5*time.Second)

	s.AssertRole(recC, true, 5*time.Second)
	s.AssertEqual(c.Candidacy(), c.WatchTarget())
	s.AssertEqual(c.Candidacy(), c.Leader())
	s.AssertNoRole(recA, 100*time.Millisecond)
}

func (s *ElectionTestSuite) TestFollowerLeaves() {
	coordA, a, recA := s.StartCandidate()
	defer s.Backend.EndSession(coordA)
	coordB, b, recB := s.StartCandidate()
	coordC, c, recC := s.StartCandidate()
	defer s.Backend.EndSession(coordC)

	s.AssertRole(recA, true, time.Second)
	s.AssertRole(recB, false, time.Second)
	s.AssertRole(recC, false, time.Second)

	// The successor of a follower that leaves watches the next predecessor,
	// and remains a follower.
	s.Backend.EndSession(coordB)
	s.AssertDone(b, 5*time.Second)

	s.AssertRole(recC, false, 5*time.Second)
	s.AssertEqual(a.Candidacy(), c.WatchTarget())
	s.AssertEqual(false, c.IsLeader())
	s.AssertNoRole(recA, 200*time.Millisecond)
	s.AssertEqual(true, a.IsLeader())
}

func (s *ElectionTestSuite) TestHerd() {
	const n = 6

	coords := make([]Coordinator, n)
	controllers := make([]*Controller, n)
	recs := make([]*RoleRecorder, n)

	for i := 0; i < n; i++ {
		coords[i], controllers[i], recs[i] = s.StartCandidate()
		s.AssertRole(recs[i], i == 0, time.Second)
	}
	defer func() {
		for _, coord := range coords[1:] {
			s.Backend.EndSession(coord)
		}
	}()

	// Exactly one candidate is informed when the leader leaves.
	s.Backend.EndSession(coords[0])
	s.AssertRole(recs[1], true, 5*time.Second)

	for i := 2; i < n; i++ {
		s.AssertNoRole(recs[i], 50*time.Millisecond)
		s.AssertEqual(controllers[i-1].Candidacy(), controllers[i].WatchTarget())
	}

	leaders := 0
	for _, c := range controllers {
		if c.IsLeader() {
			leaders++
		}
	}
	s.AssertEqual(1, leaders)
}
