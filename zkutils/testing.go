package zkutils

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/samuel/go-zookeeper/zk"
)

// Create a test cluster of a given size.
//
// Skips the test if no ZooKeeper installation is available to run the
// cluster.
func CreateTestCluster(t *testing.T, size int) (testCluster *zk.TestCluster, serverAddresses []string) {
	var err error

	// Create the test cluster.
	testCluster, err = zk.StartTestCluster(size, os.Stdout, os.Stdout)
	if err != nil {
		t.Skipf("Unable to start ZooKeeper test cluster: %v", err)
	}

	// Construct server addresses.
	serverAddresses = make([]string, len(testCluster.Servers))

	for i, s := range testCluster.Servers {
		serverAddresses[i] = fmt.Sprintf("127.0.0.1:%d", s.Port)
	}

	return
}

// Create a test cluster of a given size and a raw connection to it.
func CreateTestClusterAndConn(t *testing.T, size int) (*zk.TestCluster, *zk.Conn) {
	testCluster, servers := CreateTestCluster(t, size)

	conn, _, err := zk.Connect(servers, 10*time.Second)
	if err != nil {
		testCluster.Stop()
		t.Fatalf("Failed to connect to test cluster: %v", err)
	}

	return testCluster, conn
}

// Create a test cluster of a given size and a connection manager for it.
func CreateTestClusterAndConnMan(t *testing.T, size int) (*zk.TestCluster, *ConnMan) {
	testCluster, servers := CreateTestCluster(t, size)

	cm, err := Connect(servers, 10*time.Second)
	if err != nil {
		testCluster.Stop()
		t.Fatalf("Failed to connect to test cluster: %v", err)
	}

	return testCluster, cm
}
