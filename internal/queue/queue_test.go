package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	want := Message{Type: TypeGalleryRebuild, Body: "stu_001"}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-msgs:
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()

	if err := q.Publish(ctx, Message{Type: TypeSessionSweep}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Queue full; a cancelled context must not block.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.Publish(cancelled, Message{Type: TypeSessionSweep}); err == nil {
		t.Fatal("publish to full queue with dead context succeeded")
	}
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	// Park the consumer on an undelivered message, then cancel. The
	// goroutine must abandon the delivery and close its channel rather
	// than block forever.
	if err := q.Publish(context.Background(), Message{Type: TypeSessionSweep}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)

	select {
	case _, ok := <-msgs:
		if ok {
			t.Fatal("delivery went through after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer never closed its channel")
	}
}

func TestMemoryNotifierFanOut(t *testing.T) {
	n := NewMemoryNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	b, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := n.Notify(ctx, TypeGalleryRebuild); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	for _, sub := range []<-chan string{a, b} {
		select {
		case got := <-sub:
			if got != TypeGalleryRebuild {
				t.Fatalf("got %q", got)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the event")
		}
	}
}
