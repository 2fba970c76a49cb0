package election

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
)

func TestEnsureElectionRootRace(t *testing.T) {
	service := NewMockCoordinationService()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		session := service.NewSession()
		defer session.Expire()

		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- NewRegistrar(session, "/a/b/election", DefaultPrefix).EnsureElectionRoot()
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Unexpected error ensuring election root: %v", err)
		}
	}

	if !service.Exists("/a/b/election") {
		t.Error("Election root was not created")
	}
}

func TestEnsureElectionRootFailure(t *testing.T) {
	service := NewMockCoordinationService()
	session := service.NewSession()
	session.Expire()

	err := NewRegistrar(session, "/election", DefaultPrefix).EnsureElectionRoot()
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, but got: %v", err)
	}
}

func TestRegisterCandidacy(t *testing.T) {
	service := NewMockCoordinationService()
	session := service.NewSession()
	defer session.Expire()

	r := NewRegistrar(session, "/election/", DefaultPrefix)
	if r.Root() != "/election" {
		t.Errorf("Expected root /election, but got %s", r.Root())
	}

	if err := r.EnsureElectionRoot(); err != nil {
		t.Fatalf("Unexpected error ensuring election root: %v", err)
	}

	node, err := r.RegisterCandidacy()
	if err != nil {
		t.Fatalf("Unexpected error registering candidacy: %v", err)
	}
	if node.Name != "guid-0000000000" || node.SequenceNumber != 0 {
		t.Errorf("Unexpected candidacy node: %s", node)
	}
	if !service.Exists("/election/guid-0000000000") {
		t.Error("Candidacy node does not exist")
	}

	if _, err := r.RegisterCandidacy(); err != ErrAlreadyRegistered {
		t.Errorf("Expected ErrAlreadyRegistered, but got: %v", err)
	}
	if children := service.Children("/election"); len(children) != 1 {
		t.Errorf("Expected a single candidacy, but found %v", children)
	}

	// The candidacy lasts for the lifetime of the session.
	session.Expire()
	if service.Exists("/election/guid-0000000000") {
		t.Error("Candidacy node exists after expiry of session")
	}
}

func TestListCandidates(t *testing.T) {
	service := NewMockCoordinationService()
	session := service.NewSession()
	defer session.Expire()

	candidates, err := ListCandidates(session, "/election", DefaultPrefix)
	if err != nil || len(candidates) != 0 {
		t.Errorf("Expected no candidates of missing root, but got %v (error: %v)", candidates, err)
	}

	if err := session.CreatePersistent("/election/config"); err != nil {
		t.Fatalf("Unexpected error creating node: %v", err)
	}

	service.SetSequence("/election", 7)
	for i := 0; i < 3; i++ {
		if _, err := session.CreateEphemeralSequential("/election/guid-"); err != nil {
			t.Fatalf("Unexpected error creating candidacy: %v", err)
		}
	}

	candidates, err = ListCandidates(session, "/election", DefaultPrefix)
	if err != nil {
		t.Fatalf("Unexpected error listing candidates: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates, but got %v", candidates)
	}
	for i, c := range candidates {
		if c.SequenceNumber != int32(7+i) {
			t.Errorf("Expected candidate %d to have sequence number %d, but was %s", i, 7+i, c)
		}
	}
}
