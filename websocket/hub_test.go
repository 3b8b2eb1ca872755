package websocket

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeConn struct {
	mu      sync.Mutex
	events  []Event
	failing bool
	closed  bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("write failed")
	}
	f.events = append(f.events, v.(Event))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) snapshot() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Event(nil), f.events...)
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// waitFor polls until cond holds; delivery happens on writer goroutines.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestBroadcastSkipsSender(t *testing.T) {
	hub := NewHub()
	chatID := uuid.New()

	sender := NewClient(uuid.New(), &fakeConn{})
	receiver := NewClient(uuid.New(), &fakeConn{})
	hub.Add(sender)
	hub.Add(receiver)
	hub.Join(chatID, sender.UserID)
	hub.Join(chatID, receiver.UserID)

	hub.Broadcast(chatID, sender.UserID, "new message", "hello")

	recvConn := receiver.Conn.(*fakeConn)
	waitFor(t, func() bool { return len(recvConn.snapshot()) == 1 })
	events := recvConn.snapshot()
	if events[0].Event != "new message" || events[0].ChatID != chatID {
		t.Fatalf("unexpected event: %+v", events[0])
	}
	if got := len(sender.Conn.(*fakeConn).snapshot()); got != 0 {
		t.Fatalf("sender received %d events, expected none", got)
	}
}

func TestJoinRequiresConnectedClient(t *testing.T) {
	hub := NewHub()
	if hub.Join(uuid.New(), uuid.New()) {
		t.Fatalf("expected join to fail for unconnected account")
	}
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	chatID := uuid.New()

	leaver := NewClient(uuid.New(), &fakeConn{})
	control := NewClient(uuid.New(), &fakeConn{})
	hub.Add(leaver)
	hub.Add(control)
	hub.Join(chatID, leaver.UserID)
	hub.Join(chatID, control.UserID)
	hub.Leave(chatID, leaver.UserID)

	hub.Broadcast(chatID, uuid.New(), "new message", "hello")

	// The control client proves the broadcast went out.
	waitFor(t, func() bool { return len(control.Conn.(*fakeConn).snapshot()) == 1 })
	if got := len(leaver.Conn.(*fakeConn).snapshot()); got != 0 {
		t.Fatalf("expected no events after leave, got %d", got)
	}
}

func TestBroadcastDropsFailingConnections(t *testing.T) {
	hub := NewHub()
	chatID := uuid.New()

	conn := &fakeConn{failing: true}
	client := NewClient(uuid.New(), conn)
	hub.Add(client)
	hub.Join(chatID, client.UserID)

	hub.Broadcast(chatID, uuid.New(), "new message", "hello")

	waitFor(t, func() bool { return conn.isClosed() && len(hub.Subscribers(chatID)) == 0 })
}

func TestRemoveIgnoresReplacedConnection(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	chatID := uuid.New()

	stale := NewClient(userID, &fakeConn{})
	fresh := NewClient(userID, &fakeConn{})
	hub.Add(stale)
	hub.Add(fresh)
	hub.Join(chatID, userID)

	hub.Remove(stale)

	if len(hub.Subscribers(chatID)) != 1 {
		t.Fatalf("expected fresh connection to keep its subscription")
	}

	hub.Remove(fresh)
	if len(hub.Subscribers(chatID)) != 0 {
		t.Fatalf("expected no subscribers after removing fresh connection")
	}
}

func TestNotifyTargetsSingleClient(t *testing.T) {
	hub := NewHub()

	target := NewClient(uuid.New(), &fakeConn{})
	other := NewClient(uuid.New(), &fakeConn{})
	hub.Add(target)
	hub.Add(other)

	hub.Notify(target.UserID, Event{Event: "error", Payload: "bad request"})

	targetConn := target.Conn.(*fakeConn)
	waitFor(t, func() bool { return len(targetConn.snapshot()) == 1 })
	if got := targetConn.snapshot()[0]; got.Event != "error" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got := len(other.Conn.(*fakeConn).snapshot()); got != 0 {
		t.Fatalf("other client received %d events, expected none", got)
	}
}

// slowConn records whether WriteJSON is ever entered by two goroutines at
// once; the connection contract allows a single writer only.
type slowConn struct {
	mu       sync.Mutex
	inflight int
	overlaps int
	writes   int
}

func (c *slowConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	c.inflight++
	if c.inflight > 1 {
		c.overlaps++
	}
	c.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	c.mu.Lock()
	c.inflight--
	c.writes++
	c.mu.Unlock()
	return nil
}

func (c *slowConn) Close() error { return nil }

func (c *slowConn) counts() (writes, overlaps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes, c.overlaps
}

func TestConcurrentBroadcastsSerializeWrites(t *testing.T) {
	hub := NewHub()
	chatID := uuid.New()

	conn := &slowConn{}
	client := NewClient(uuid.New(), conn)
	hub.Add(client)
	hub.Join(chatID, client.UserID)

	const broadcasts = 8
	var wg sync.WaitGroup
	for i := 0; i < broadcasts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast(chatID, uuid.New(), "new message", "hello")
		}()
	}
	wg.Wait()

	waitFor(t, func() bool {
		writes, _ := conn.counts()
		return writes == broadcasts
	})
	if _, overlaps := conn.counts(); overlaps != 0 {
		t.Fatalf("connection saw %d overlapping writes, expected none", overlaps)
	}
}
