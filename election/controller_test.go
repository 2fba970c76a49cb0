package election

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()

	if opts.Root != DefaultRoot {
		t.Errorf("Expected default root %s, but got %s", DefaultRoot, opts.Root)
	}
	if opts.Prefix != DefaultPrefix {
		t.Errorf("Expected default prefix %s, but got %s", DefaultPrefix, opts.Prefix)
	}
	if opts.Retry == nil || *opts.Retry != DefaultRetryPolicy() {
		t.Errorf("Expected default retry policy, but got %v", opts.Retry)
	}

	custom := Options{Root: "/x", Prefix: "n-", Retry: &testRetryPolicy}.withDefaults()
	if custom.Root != "/x" || custom.Prefix != "n-" || *custom.Retry != testRetryPolicy {
		t.Errorf("Expected options to be kept, but got %+v", custom)
	}
}

func TestTerminationReason(t *testing.T) {
	for _, tc := range []struct {
		Cause  error
		Reason string
	}{
		{ErrSessionExpired, "expired"},
		{ErrNoAuth, "auth_failed"},
		{ErrSessionLost, "lost"},
		{ErrConnectionClosed, "closed"},
		{errors.Wrap(ErrRetriesExhausted, "exists"), "retries_exhausted"},
		{errors.Wrap(ErrNoPredecessor, "candidate"), "invariant_violation"},
		{ErrCandidacyLost, "invariant_violation"},
		{errTransient, "error"},
	} {
		if reason := terminationReason(tc.Cause); reason != tc.Reason {
			t.Errorf("Expected reason %s for %v, but got %s", tc.Reason, tc.Cause, reason)
		}
	}
}

func TestControllerRun(t *testing.T) {
	service := NewMockCoordinationService()
	session := service.NewSession()

	roles := make(chan bool, 1)
	c := NewController(session, RoleHandlerFunc(func(isLeader bool) {
		roles <- isLeader
	}), Options{Retry: &testRetryPolicy})

	result := make(chan error, 1)
	go func() {
		result <- c.Run()
	}()

	select {
	case isLeader := <-roles:
		if !isLeader {
			t.Fatal("Expected sole candidate to lead")
		}
	case <-time.After(time.Second):
		t.Fatal("No role determination within 1 s")
	}

	status := c.Status()
	if !status.IsLeader || status.Terminated || status.Candidacy != "/election/guid-0000000000" || status.WatchTarget != status.Candidacy {
		t.Errorf("Unexpected status of leader: %+v", status)
	}

	session.Close()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Expected run to end without error, but got: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return within 1 s of session closing")
	}

	if status := c.Status(); status.IsLeader || !status.Terminated {
		t.Errorf("Unexpected status after session end: %+v", status)
	}
}

func TestControllerStartFailure(t *testing.T) {
	service := NewMockCoordinationService()
	session := &subscribedSession{MockSession: service.NewSession()}
	session.Expire()

	c := NewController(session, RoleHandlerFunc(func(bool) {
		t.Error("Role handler invoked without candidacy")
	}), Options{Retry: &testRetryPolicy})

	if err := c.Start(); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, but got: %v", err)
	}

	select {
	case <-c.Done():
	default:
		t.Error("Expected controller to be done after failing to start")
	}
	if c.Candidacy() != "" {
		t.Errorf("Expected no candidacy, but got %s", c.Candidacy())
	}

	select {
	case <-session.done:
	default:
		t.Error("Expected session events to be released after failing to start")
	}
}
