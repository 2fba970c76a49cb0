// Package election provides leader election on top of a coordination service
// offering ephemeral, sequentially numbered nodes and one-shot watches, such
// as ZooKeeper.
//
// Each participating process registers a single candidacy node under an
// election root. The candidate with the lowest sequence number is the leader.
// Every other candidate watches only its nearest predecessor, so that the
// removal of a candidate wakes up at most one other process. A leader watches
// its own node to detect the loss of its session.
//
// A Controller drives the protocol and informs a RoleHandler every time the
// role of the process has been determined. The controller runs until the
// session with the coordination service ends. To withdraw a candidacy, close
// the session.
//
// Work that must only be done by the leader can be run by a Leadership, which
// starts a handler when leadership is assumed and signals it when it ends.
package election
