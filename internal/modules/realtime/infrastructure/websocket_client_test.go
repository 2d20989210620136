package infrastructure

import (
	"errors"
	"testing"
	"time"

	"chatWs/internal/modules/realtime/application/port"
)

func newQueueOnlyClient(buffer int, wait time.Duration) *Client {
	return NewClient(nil, ClientConfig{SendBuffer: buffer, WriteWait: wait, PongWait: time.Minute})
}

func TestClient_SendWaitsForQueueSpace(t *testing.T) {
	t.Parallel()

	c := newQueueOnlyClient(1, 2*time.Second)
	if err := c.Send([]byte("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		<-c.send
	}()

	if err := c.Send([]byte("b")); err != nil {
		t.Fatalf("a momentarily full queue must not fail the send: %v", err)
	}
	if got := string(<-c.send); got != "b" {
		t.Fatalf("unexpected frame %q", got)
	}
	if !c.Alive() {
		t.Fatal("client should still be alive")
	}
}

func TestClient_SendGivesUpAfterWriteWait(t *testing.T) {
	t.Parallel()

	c := newQueueOnlyClient(1, 30*time.Millisecond)
	_ = c.Send([]byte("a"))

	start := time.Now()
	err := c.Send([]byte("b"))
	if !errors.Is(err, port.ErrSendBufferFull) {
		t.Fatalf("expected ErrSendBufferFull, got %v", err)
	}
	if waited := time.Since(start); waited < 30*time.Millisecond {
		t.Fatalf("send returned after %s, before the write deadline", waited)
	}
}

func TestClient_CloseReleasesBlockedSend(t *testing.T) {
	t.Parallel()

	c := newQueueOnlyClient(1, 5*time.Second)
	_ = c.Send([]byte("a"))

	result := make(chan error, 1)
	go func() { result <- c.Send([]byte("b")) }()
	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case err := <-result:
		if !errors.Is(err, port.ErrHandleClosed) {
			t.Fatalf("expected ErrHandleClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked send was not released by Close")
	}
	if err := c.Send([]byte("c")); !errors.Is(err, port.ErrHandleClosed) {
		t.Fatalf("send after close: %v", err)
	}
}
