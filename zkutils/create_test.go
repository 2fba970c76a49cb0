package zkutils

import (
	"testing"

	"github.com/samuel/go-zookeeper/zk"
)

func AssertCreateRecursivelyCreates(t *testing.T, conn *zk.Conn, path string) {
	if err := CreateRecursively(conn, path, zk.WorldACL(zk.PermAll)); err != nil {
		t.Errorf("Failed to create path %s recursively: %v", path, err)
		return
	}

	exists, _, err := conn.Exists(path)
	if err != nil {
		t.Errorf("Failed to test if path %s exists: %v", path, err)
		return
	}

	if !exists {
		t.Errorf("Expected path %s to exist", path)
	}
}

func TestCreateRecursively(t *testing.T) {
	testCluster, conn := CreateTestClusterAndConnMan(t, 1)
	defer testCluster.Stop()
	defer conn.Close()

	AssertCreateRecursivelyCreates(t, conn.Conn, "/")
	AssertCreateRecursivelyCreates(t, conn.Conn, "/one")
	AssertCreateRecursivelyCreates(t, conn.Conn, "/one")
	AssertCreateRecursivelyCreates(t, conn.Conn, "/two/three/four/five/six")
	AssertCreateRecursivelyCreates(t, conn.Conn, "/two/three/four/five/six")
}

func TestCreatePersistent(t *testing.T) {
	testCluster, conn := CreateTestClusterAndConnMan(t, 1)
	defer testCluster.Stop()
	defer conn.Close()

	acl := zk.WorldACL(zk.PermAll)

	if err := CreatePersistent(conn.Conn, "/deep/election/root", acl); err != nil {
		t.Fatalf("Failed to create /deep/election/root: %v", err)
	}

	if err := CreatePersistent(conn.Conn, "/deep/election/root", acl); err != zk.ErrNodeExists {
		t.Errorf("Expected second creation to return zk.ErrNodeExists, but it returned: %v", err)
	}

	if err := CreatePersistent(conn.Conn, "/flat", acl); err != nil {
		t.Errorf("Failed to create /flat: %v", err)
	}
}
