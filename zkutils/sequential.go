package zkutils

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Sequence node.
type SequenceNode struct {
	// Name.
	Name string

	// Sequence number.
	SequenceNumber int32
}

func (n SequenceNode) Equals(b SequenceNode) bool {
	return n.SequenceNumber == b.SequenceNumber && n.Name == b.Name
}

func (n SequenceNode) String() string {
	return fmt.Sprintf("%s(%d)", n.Name, n.SequenceNumber)
}

// Sequence number ordering.
type sequenceOrder func(a, b int32) bool

func ascendingly(a, b int32) bool {
	return a < b
}

// Negative sequence numbers are the result of the 32 bit counter overflowing,
// and are thus ordered after the positive ones.
func ascendinglyNegativeLast(a, b int32) bool {
	return uint32(a) < uint32(b)
}

// Get expression for a sequence node.
func sequenceNodeExpr(prefix string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`.*?%s(-?\d+)$`, regexp.QuoteMeta(prefix)))
}

// Parse a sequence node.
//
// Returns ErrNodeNotMatch if the node does not match the provided expression.
func parseSequenceNode(name string, expr *regexp.Regexp) (SequenceNode, error) {
	groups := expr.FindStringSubmatch(name)
	if len(groups) < 2 {
		return SequenceNode{}, ErrNodeNotMatch
	}

	idx, err := strconv.ParseInt(groups[1], 10, 32)
	if err != nil {
		return SequenceNode{}, err
	}

	return SequenceNode{
		Name:           name,
		SequenceNumber: int32(idx),
	}, nil
}

// Parse a sequence node.
//
// Returns ErrNodeNotMatch if the node does not match the provided prefix or is
// not a sequence node.
func ParseSequenceNode(name, prefix string) (SequenceNode, error) {
	return parseSequenceNode(name, sequenceNodeExpr(prefix))
}

// Parse a list of sequence nodes.
//
// Ignores any node that is not a sequentially numbered node. If a prefix is
// provided, any node where the sequence number is not immediately preceeded by
// the prefix is also ignored.
func ParseSequenceNodes(names []string, prefix string) []SequenceNode {
	expr := sequenceNodeExpr(prefix)
	nodes := make([]SequenceNode, 0, len(names))

	for _, n := range names {
		if sn, err := parseSequenceNode(n, expr); err == nil {
			nodes = append(nodes, sn)
		}
	}

	return nodes
}

// Determine the ordering to apply to a set of sequence nodes.
//
// Sequence numbers will follow the following order:
//
//	0 .. 2147483647
//	-2147483648 .. -1
//	0 .. 2147483647
//	..
//
// The ordering makes the assumption, that sequence numbers will never be too
// far apart in the natural, overflowing sequence:
//
//   - Ordered ascendingly if the set of sequence numbers are in the range
//     [0 ; 2147483647]
//   - Ordered ascendingly with negative sequence numbers ordered after the
//     positive sequence numbers if the set of sequence numbers are in the
//     range [0 ; 2147483647] and [-2147483648 ; -1073741824].
//   - Ordered ascendingly if the set of sequence numbers are in the range
//     [-2147483648 ; 1073741824].
func orderOf(nodes []SequenceNode) sequenceOrder {
	if len(nodes) < 2 {
		return ascendingly
	}

	snMin := nodes[0].SequenceNumber
	snMax := nodes[0].SequenceNumber

	for _, n := range nodes[1:] {
		if n.SequenceNumber < snMin {
			snMin = n.SequenceNumber
		} else if n.SequenceNumber > snMax {
			snMax = n.SequenceNumber
		}
	}

	if snMin >= int32(-1073741824) || snMax < 0 {
		return ascendingly
	}

	return ascendinglyNegativeLast
}

// Get a less function for sequence nodes of a set.
//
// The ordering is determined by the extent of the given set, and should only
// be applied to nodes of that set. See SortSequenceNodes for details.
func SequenceLess(nodes []SequenceNode) func(a, b SequenceNode) bool {
	order := orderOf(nodes)

	return func(a, b SequenceNode) bool {
		return order(a.SequenceNumber, b.SequenceNumber)
	}
}

// Sort a list of sequence nodes.
//
// Sorts the sequence nodes in a semi-overflow safe manner, as described by
// SequenceLess.
func SortSequenceNodes(nodes []SequenceNode) {
	if len(nodes) < 2 {
		return
	}

	less := SequenceLess(nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		return less(nodes[i], nodes[j])
	})
}
