package election

import (
	"fmt"
	"path"
	"strings"
	"sync"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/nickbruun/zkelection/zkutils"
	"github.com/pkg/errors"
)

// Candidacy registrar.
//
// Registers the candidacy of a session under an election root.
type Registrar struct {
	coord  Coordinator
	root   string
	prefix string

	lock       sync.Mutex
	registered bool
}

// New candidacy registrar.
func NewRegistrar(coord Coordinator, root, prefix string) *Registrar {
	return &Registrar{
		coord:  coord,
		root:   normalizeRoot(root),
		prefix: prefix,
	}
}

func normalizeRoot(root string) string {
	root = strings.TrimRight(root, "/")
	if root == "" {
		return "/"
	}
	return root
}

// Get candidate node path from name.
func candidatePath(root, name string) string {
	if root == "/" {
		return "/" + name
	}
	return fmt.Sprintf("%s/%s", root, name)
}

// Election root.
func (r *Registrar) Root() string {
	return r.root
}

// Ensure that the election root exists.
//
// Losing a creation race against another candidate is not an error.
func (r *Registrar) EnsureElectionRoot() error {
	if r.root == "/" {
		return nil
	}

	err := r.coord.CreatePersistent(r.root)
	switch {
	case err == nil:
		log.Infof("Created election root: %s", r.root)
		return nil

	case errors.Is(err, ErrNodeExists):
		log.Debugf("Election root already exists: %s", r.root)
		return nil

	default:
		return errors.Wrapf(err, "creating election root %s", r.root)
	}
}

// Register the candidacy of the session.
//
// Creates an ephemeral, sequential node with no data under the election
// root. May only be called once; the candidacy lasts for the lifetime of the
// session.
func (r *Registrar) RegisterCandidacy() (zkutils.SequenceNode, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.registered {
		return zkutils.SequenceNode{}, ErrAlreadyRegistered
	}

	nodePath, err := r.coord.CreateEphemeralSequential(candidatePath(r.root, r.prefix))
	if err != nil {
		return zkutils.SequenceNode{}, errors.Wrap(err, "creating candidacy node")
	}

	_, name := path.Split(nodePath)
	node, err := zkutils.ParseSequenceNode(name, r.prefix)
	if err != nil {
		return zkutils.SequenceNode{}, errors.Wrapf(err, "parsing candidacy node %s", nodePath)
	}

	r.registered = true
	log.Infof("Registered candidacy: %s", nodePath)

	return node, nil
}

// List the candidates of an election.
//
// Children of the root that are not candidacy nodes are ignored. The
// candidates are sorted by sequence number. A missing election root yields no
// candidates.
func ListCandidates(coord Coordinator, root, prefix string) ([]zkutils.SequenceNode, error) {
	children, err := coord.Children(normalizeRoot(root))
	if errors.Is(err, ErrNoNode) {
		return []zkutils.SequenceNode{}, nil
	} else if err != nil {
		return nil, err
	}

	candidates := zkutils.ParseSequenceNodes(children, prefix)
	zkutils.SortSequenceNodes(candidates)

	return candidates, nil
}
