package election

import (
	"sync"
)

// Role handler.
//
// Supplied by the application to perform the work of the leader. Invoked at
// least once after the candidacy has been registered, and again every time
// the role is determined, also if it has not changed. Implementations must
// tolerate redundant invocations.
//
// The election is driven by the goroutine invoking the handler. Session events
// arriving while the handler runs are queued and acted upon once it returns,
// so a handler blocking for longer than the session timeout may still be
// informed of its leadership after the session has ended. Long running work
// belongs on a goroutine of its own, as with Leadership.
type RoleHandler interface {
	OnRoleDetermined(isLeader bool)
}

// Role handler function.
type RoleHandlerFunc func(isLeader bool)

func (f RoleHandlerFunc) OnRoleDetermined(isLeader bool) {
	f(isLeader)
}

// Deduplicating role handler.
type dedupRoleHandler struct {
	h        RoleHandler
	lock     sync.Mutex
	known    bool
	isLeader bool
}

func (d *dedupRoleHandler) OnRoleDetermined(isLeader bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.known && d.isLeader == isLeader {
		return
	}

	d.known = true
	d.isLeader = isLeader
	d.h.OnRoleDetermined(isLeader)
}

// Deduplicate role determinations.
//
// The returned handler only forwards the first determination, and any
// subsequent change of role.
func Deduplicate(h RoleHandler) RoleHandler {
	return &dedupRoleHandler{h: h}
}
