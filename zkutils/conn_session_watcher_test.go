package zkutils

import (
	"testing"
	"time"

	"github.com/samuel/go-zookeeper/zk"
)

func sessionEvent(state zk.State) zk.Event {
	return zk.Event{Type: zk.EventSession, State: state}
}

func AssertSessionLoss(t *testing.T, ch <-chan SessionLoss, expired bool) {
	select {
	case loss := <-ch:
		if loss.Expired != expired {
			t.Fatalf("Expected session loss with expired = %v, but got %v", expired, loss.Expired)
		}

	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for session loss")
	}
}

func AssertNoSessionLoss(t *testing.T, ch <-chan SessionLoss) {
	select {
	case loss := <-ch:
		t.Fatalf("Unexpected session loss: %+v", loss)

	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnSessionWatcherExpiry(t *testing.T) {
	ec := make(chan zk.Event)
	w := newConnSessionWatcher(ec, time.Hour, time.Minute)
	loss := w.AddWatcher()

	ec <- sessionEvent(zk.StateConnecting)
	ec <- sessionEvent(zk.StateHasSession)
	ec <- zk.Event{Type: zk.EventNodeDeleted, Path: "/election/guid-0000000001"}
	AssertNoSessionLoss(t, loss)

	ec <- sessionEvent(zk.StateExpired)
	AssertSessionLoss(t, loss, true)

	close(ec)
}

func TestConnSessionWatcherReconnect(t *testing.T) {
	ec := make(chan zk.Event)
	w := newConnSessionWatcher(ec, time.Hour, time.Minute)
	loss := w.AddWatcher()

	ec <- sessionEvent(zk.StateHasSession)
	ec <- sessionEvent(zk.StateDisconnected)
	ec <- sessionEvent(zk.StateConnecting)
	ec <- sessionEvent(zk.StateHasSession)
	AssertNoSessionLoss(t, loss)

	close(ec)
	AssertSessionLoss(t, loss, true)

	// Watchers added after closure are notified immediately.
	AssertSessionLoss(t, w.AddWatcher(), true)
}

func TestConnSessionWatcherPresumedLoss(t *testing.T) {
	ec := make(chan zk.Event)
	w := newConnSessionWatcher(ec, 30*time.Millisecond, 20*time.Millisecond)
	loss := w.AddWatcher()

	ec <- sessionEvent(zk.StateHasSession)
	ec <- sessionEvent(zk.StateDisconnected)
	AssertSessionLoss(t, loss, false)

	close(ec)
}
