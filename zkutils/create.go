package zkutils

import (
	"path"
	"strings"

	log "github.com/nickbruun/zkelection/logging"
	"github.com/samuel/go-zookeeper/zk"
)

// Recursively create nodes with no data if they do not exist.
//
// Does not return any error if the node path already exist.
func CreateRecursively(conn *zk.Conn, nodePath string, acl []zk.ACL) (err error) {
	// Test if the node already exists for efficiency reasons.
	var exists bool
	if exists, _, err = conn.Exists(nodePath); exists || err != nil {
		return
	}

	// Start from the root.
	comps := strings.Split(nodePath, "/")
	for i := 1; i < len(comps); i++ {
		p := strings.Join(comps[:i+1], "/")

		_, err = conn.Create(p, nil, 0, acl)
		if err == zk.ErrNodeExists {
			log.Debugf("Node already exists: %s", p)
			err = nil
			continue
		} else if err != nil {
			return
		}

		log.Debugf("Created node: %s", p)
	}

	return
}

// Create a persistent node with no data.
//
// Missing parents are created. Unlike CreateRecursively, zk.ErrNodeExists is
// returned if the node itself already exists, so that callers can tell
// whether they won a creation race.
func CreatePersistent(conn *zk.Conn, nodePath string, acl []zk.ACL) error {
	_, err := conn.Create(nodePath, nil, 0, acl)
	if err != zk.ErrNoNode {
		return err
	}

	if parent := path.Dir(nodePath); parent != "/" {
		if err = CreateRecursively(conn, parent, acl); err != nil {
			return err
		}
	}

	_, err = conn.Create(nodePath, nil, 0, acl)
	return err
}
