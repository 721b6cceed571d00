package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "board.reloaded", Data: map[string]int{"records": 3}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: board.reloaded") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"records":3`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestPublishBoardEvent_ChangedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// The first event is followed by board.changed, the second is not.
	b.PublishBoardEvent(KindCreated, "self-a")
	b.PublishBoardEvent(KindMoved, "row-1")

	time.Sleep(50 * time.Millisecond)
	changed, jobs := 0, 0
	for _, s := range drain(ch) {
		switch {
		case strings.Contains(s, "event: board.changed"):
			changed++
		case strings.Contains(s, "event: job."):
			jobs++
		}
	}
	if jobs != 2 {
		t.Errorf("job events = %d, want 2", jobs)
	}
	if changed != 1 {
		t.Errorf("board.changed events = %d, want 1 (throttled)", changed)
	}
}

func TestPublishBoardEvent_Kinds(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishBoardEvent(KindDeleted, "self-x")
	b.PublishBoardEvent("renamed", "self-x")
	b.PublishBoardEvent(KindReloaded, "")

	time.Sleep(50 * time.Millisecond)
	got := drain(ch)
	want := []string{"event: job.deleted", "event: board.changed", "event: board.reloaded"}
	if len(got) != len(want) {
		t.Fatalf("got %d messages: %q", len(got), got)
	}
	for i, w := range want {
		if !strings.Contains(got[i], w) {
			t.Errorf("message %d = %q, want %q", i, got[i], w)
		}
		if id := fmt.Sprintf("id: %d\n", i+1); !strings.HasPrefix(got[i], id) {
			t.Errorf("message %d = %q, want prefix %q", i, got[i], id)
		}
	}
	if !strings.Contains(got[0], `"id":"self-x"`) {
		t.Errorf("missing id in %q", got[0])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishBoardEvent(KindUpdated, "row-1")
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("handler output missing retry hint: %q", body)
	}
	if !strings.Contains(body, "event: job.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "board.reloaded", Data: map[string]string{}})
	b.PublishBoardEvent(KindUpdated, "row-1")
}

func TestSSEHandlerKeepAlive(t *testing.T) {
	b := NewBroker(time.Second, WithKeepAlive(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	b.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), ": ping\n\n") {
		t.Errorf("no keep-alive in %q", w.Body.String())
	}
}

func TestEncode(t *testing.T) {
	raw, err := encode(7, Event{Type: "job.moved", Data: map[string]string{"id": "row-1"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "id: 7\nevent: job.moved\ndata: {\"id\":\"row-1\"}\n\n"
	if string(raw) != want {
		t.Errorf("encode = %q, want %q", raw, want)
	}
}
