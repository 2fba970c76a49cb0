package election

import (
	"github.com/nickbruun/zkelection/zkutils"
	"github.com/pkg/errors"
)

func containsCandidate(candidates []zkutils.SequenceNode, local zkutils.SequenceNode) bool {
	for _, c := range candidates {
		if c.Name == local.Name {
			return true
		}
	}
	return false
}

// Resolve the leader of a set of candidates.
//
// The leader is the candidate with the lowest sequence number. Returns
// ErrNoCandidates if the set is empty.
func ResolveLeader(candidates []zkutils.SequenceNode, local zkutils.SequenceNode) (leader zkutils.SequenceNode, isLeader bool, err error) {
	if len(candidates) == 0 {
		return zkutils.SequenceNode{}, false, ErrNoCandidates
	}

	less := zkutils.SequenceLess(candidates)
	leader = candidates[0]

	for _, c := range candidates[1:] {
		if less(c, leader) {
			leader = c
		}
	}

	return leader, leader.Name == local.Name, nil
}

// Select the node to watch.
//
// A leader watches its own node. Any other candidate watches its nearest
// predecessor: the candidate with the highest sequence number lower than its
// own. Returns ErrNoPredecessor if a candidate that is not the leader has no
// predecessor, which means the view of the candidates is inconsistent.
func SelectWatchTarget(candidates []zkutils.SequenceNode, local zkutils.SequenceNode, isLeader bool) (zkutils.SequenceNode, error) {
	if isLeader {
		return local, nil
	}

	// Order with the local candidate included, so that the ordering holds
	// even if the candidate is missing from the set.
	ordered := candidates
	if !containsCandidate(candidates, local) {
		ordered = append(append(make([]zkutils.SequenceNode, 0, len(candidates)+1), candidates...), local)
	}
	less := zkutils.SequenceLess(ordered)

	var target zkutils.SequenceNode
	found := false

	for _, c := range candidates {
		if !less(c, local) {
			continue
		}

		if !found || less(target, c) {
			target = c
			found = true
		}
	}

	if !found {
		return zkutils.SequenceNode{}, errors.Wrapf(ErrNoPredecessor, "candidate %s", local.Name)
	}

	return target, nil
}
