package zkutils

import (
	log "github.com/nickbruun/zkelection/logging"
	"github.com/samuel/go-zookeeper/zk"
)

// Await the existence, or absence, of a node.
func awaitState(conn *zk.Conn, path string, wantExists bool) <-chan error {
	await := make(chan error, 1)

	go func() {
		for {
			exists, _, event, err := conn.ExistsW(path)

			if err != nil {
				log.Debugf("Error testing for existence of %s: %v", path, err)
				await <- err
				return
			} else if exists == wantExists {
				log.Debugf("Node at path %s reached existence %v", path, wantExists)
				await <- nil
				return
			}

			log.Debugf("Node %s has existence %v, awaiting event", path, exists)
			if ev := <-event; ev.Err != nil {
				await <- ev.Err
				return
			}
		}
	}()

	return await
}

// Await the existence of a node.
//
// Emits a nil object, or an error, on the channel, when the node at the given
// path exists or an error occurs.
func AwaitExists(conn *zk.Conn, path string) <-chan error {
	return awaitState(conn, path, true)
}

// Await the absence of a node.
//
// Emits a nil object, or an error, on the channel, when the node at the given
// path no longer exists or an error occurs.
func AwaitAbsent(conn *zk.Conn, path string) <-chan error {
	return awaitState(conn, path, false)
}
