package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nickbruun/zkelection/election"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource election.Status

func (s staticSource) Status() election.Status {
	return election.Status(s)
}

func TestStatus(t *testing.T) {
	s := New("instance-1", staticSource{
		Candidacy:   "/election/guid-0000000001",
		Leader:      "/election/guid-0000000000",
		WatchTarget: "/election/guid-0000000000",
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, map[string]interface{}{
		"instance_id":  "instance-1",
		"candidacy":    "/election/guid-0000000001",
		"leader":       "/election/guid-0000000000",
		"watch_target": "/election/guid-0000000000",
		"is_leader":    false,
		"terminated":   false,
	}, body)
}

func TestStatusOfController(t *testing.T) {
	service := election.NewMockCoordinationService()
	session := service.NewSession()
	defer session.Close()

	c := election.NewController(session, election.RoleHandlerFunc(func(bool) {}), election.Options{})
	require.NoError(t, c.Start())

	rec := httptest.NewRecorder()
	New("instance-1", c).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "instance-1", resp.InstanceID)
	assert.True(t, resp.IsLeader)
	assert.Equal(t, c.Candidacy(), resp.Candidacy)
	assert.Equal(t, c.Candidacy(), resp.Leader)
}

func TestMetrics(t *testing.T) {
	s := New("instance-1", staticSource{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zkelection_role_is_leader")
}

func TestNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	New("instance-1", staticSource{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func serveInBackground(s *Server, ln net.Listener) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- s.Serve(ln)
	}()
	return result
}

func TestServeAndShutdown(t *testing.T) {
	s := New("instance-1", staticSource{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	result := serveInBackground(s, ln)

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/status")
		return err == nil
	}, time.Second, 5*time.Millisecond)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Server did not stop within 1 s of shutdown")
	}
}

func TestShutdownBeforeServing(t *testing.T) {
	s := New("instance-1", staticSource{})
	require.NoError(t, s.Shutdown(context.Background()))

	result := make(chan error, 1)
	go func() {
		result <- s.ListenAndServe("127.0.0.1:0")
	}()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Server kept serving after having been shut down")
	}
}
