package election

import (
	"reflect"
	"testing"
)

func TestDeduplicate(t *testing.T) {
	var forwarded []bool
	h := Deduplicate(RoleHandlerFunc(func(isLeader bool) {
		forwarded = append(forwarded, isLeader)
	}))

	for _, isLeader := range []bool{false, false, false, true, true, false, true} {
		h.OnRoleDetermined(isLeader)
	}

	expected := []bool{false, true, false, true}
	if !reflect.DeepEqual(forwarded, expected) {
		t.Errorf("Expected forwarded determinations %v, but got %v", expected, forwarded)
	}
}

func TestDeduplicateFirstDetermination(t *testing.T) {
	calls := 0
	h := Deduplicate(RoleHandlerFunc(func(isLeader bool) {
		calls++
	}))

	h.OnRoleDetermined(true)
	h.OnRoleDetermined(true)

	if calls != 1 {
		t.Errorf("Expected a single call, but got %d", calls)
	}
}
