package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRole(t *testing.T) {
	if r := Role(true); r != "leader" {
		t.Errorf("Expected leader, but got %s", r)
	}
	if r := Role(false); r != "follower" {
		t.Errorf("Expected follower, but got %s", r)
	}
}

func TestSessionTerminations(t *testing.T) {
	before := testutil.ToFloat64(SessionTerminations.WithLabelValues("expired"))
	SessionTerminations.WithLabelValues("expired").Inc()

	if after := testutil.ToFloat64(SessionTerminations.WithLabelValues("expired")); after != before+1 {
		t.Errorf("Expected %v terminations, but got %v", before+1, after)
	}
}
