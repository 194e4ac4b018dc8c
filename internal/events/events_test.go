package events

import (
	"sync"
	"testing"
	"time"
)

func TestOnEmitOff(t *testing.T) {
	b := New(Options{Source: "ed"})
	var got []Event
	id := b.On(BlockCreated, func(ev Event) { got = append(got, ev) })
	b.On(BlockDeleted, func(Event) { t.Error("unexpected block.deleted delivery") })

	b.Emit(BlockCreated, Block{Index: 1, Type: "p"})
	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(got))
	}
	if got[0].Source != "ed" || got[0].Payload.(Block).Index != 1 {
		t.Errorf("event = %+v", got[0])
	}

	if !b.Off(id) {
		t.Fatal("Off returned false for a registered handler")
	}
	b.Emit(BlockCreated, Block{})
	if len(got) != 1 {
		t.Errorf("handler still called after Off")
	}
	if b.Off(id) {
		t.Error("second Off returned true")
	}
}

func TestContentChanged_Debounced(t *testing.T) {
	b := New(Options{Debounce: 30 * time.Millisecond})
	defer b.Close()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{}, 1)
	b.On(ContentChanged, func(ev Event) {
		mu.Lock()
		got = append(got, ev.Payload.(Content).Blocks)
		mu.Unlock()
		done <- struct{}{}
	})

	for i := 1; i <= 5; i++ {
		b.Emit(ContentChanged, Content{Blocks: i})
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced event")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("deliveries = %v, want [5]", got)
	}
}

func TestFlush_DeliversPending(t *testing.T) {
	b := New(Options{Debounce: time.Hour})
	defer b.Close()
	n := 0
	b.On(ContentChanged, func(Event) { n++ })
	b.Emit(ContentChanged, Content{Blocks: 1})
	b.Emit(ContentChanged, Content{Blocks: 2})
	if n != 0 {
		t.Fatalf("delivered before Flush")
	}
	b.Flush()
	if n != 1 {
		t.Errorf("deliveries after Flush = %d, want 1", n)
	}
	b.Flush()
	if n != 1 {
		t.Errorf("second Flush redelivered")
	}
}

func TestUserKeyPress_Throttled(t *testing.T) {
	b := New(Options{Throttle: time.Hour})
	n := 0
	b.On(UserKeyPress, func(Event) { n++ })
	for i := 0; i < 10; i++ {
		b.Emit(UserKeyPress, Key{Key: "a"})
	}
	if n != 1 {
		t.Errorf("deliveries = %d, want 1", n)
	}
	// Other kinds are not throttled.
	m := 0
	b.On(BlockFocused, func(Event) { m++ })
	b.Emit(BlockFocused, Block{})
	b.Emit(BlockFocused, Block{})
	if m != 2 {
		t.Errorf("block.focused deliveries = %d, want 2", m)
	}
}

func TestClose_StopsDelivery(t *testing.T) {
	b := New(Options{Debounce: 10 * time.Millisecond})
	n := 0
	b.On(BlockCreated, func(Event) { n++ })
	b.Emit(ContentChanged, Content{})
	b.Close()
	b.Emit(BlockCreated, Block{})
	b.Flush()
	if n != 0 {
		t.Errorf("deliveries after Close = %d", n)
	}
}

func TestHandlerMayEmit(t *testing.T) {
	b := New(Options{})
	var order []Kind
	b.On(BlockTypeChanged, func(ev Event) {
		order = append(order, ev.Kind)
		b.Emit(ContentChanged, Content{})
	})
	b.On(ContentChanged, func(ev Event) { order = append(order, ev.Kind) })
	b.Emit(BlockTypeChanged, TypeChange{From: "p", To: "h1"})
	if len(order) != 2 || order[1] != ContentChanged {
		t.Errorf("order = %v", order)
	}
}

func TestThrottledHandlerMayEmitSameKind(t *testing.T) {
	b := New(Options{Throttle: time.Hour})
	calls := 0
	b.On(UserKeyPress, func(ev Event) {
		calls++
		if calls == 1 {
			b.Emit(UserKeyPress, ev.Payload)
		}
	})

	done := make(chan struct{})
	go func() {
		b.Emit(UserKeyPress, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("re-entrant emit of a throttled kind blocked")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (second emit throttled)", calls)
	}
}
