package notify

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func recv(t *testing.T, o *Observer) string {
	t.Helper()
	select {
	case p, ok := <-o.C:
		if !ok {
			t.Fatal("observer channel closed")
		}
		return string(p)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
	}
	return ""
}

func expectEmpty(t *testing.T, o *Observer) {
	t.Helper()
	select {
	case p, ok := <-o.C:
		if ok {
			t.Fatalf("unexpected payload %q", p)
		}
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_SubscribeDeliversInitialState(t *testing.T) {
	h := NewHub(zerolog.Nop())
	o := h.Subscribe([]byte(`[]`))
	defer h.Unsubscribe(o)

	if got := recv(t, o); got != `[]` {
		t.Errorf("initial = %q, want []", got)
	}
	if o.ID == "" {
		t.Error("observer has no ID")
	}
	if h.Count() != 1 {
		t.Errorf("Count() = %d, want 1", h.Count())
	}
}

func TestHub_BroadcastReachesAll(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := h.Subscribe(nil)
	b := h.Subscribe(nil)

	h.Broadcast([]byte(`1`))
	if recv(t, a) != `1` || recv(t, b) != `1` {
		t.Fatal("broadcast not delivered to both observers")
	}
	expectEmpty(t, a)
}

func TestHub_SlowObserverGetsLatest(t *testing.T) {
	h := NewHub(zerolog.Nop())
	slow := h.Subscribe([]byte(`initial`))
	fast := h.Subscribe(nil)

	for i := 1; i <= 100; i++ {
		h.Broadcast([]byte(fmt.Sprint(i)))
		if got := recv(t, fast); got != fmt.Sprint(i) {
			t.Fatalf("fast observer got %q, want %d", got, i)
		}
	}

	if got := recv(t, slow); got != `100` {
		t.Errorf("slow observer got %q, want 100", got)
	}
	expectEmpty(t, slow)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub(zerolog.Nop())
	o := h.Subscribe(nil)
	h.Unsubscribe(o)
	h.Unsubscribe(o)

	if _, ok := <-o.C; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if h.Count() != 0 {
		t.Errorf("Count() = %d, want 0", h.Count())
	}
	h.Broadcast([]byte(`x`)) // must not panic on closed channel
}

func TestHub_Close(t *testing.T) {
	h := NewHub(zerolog.Nop())
	a := h.Subscribe(nil)
	b := h.Subscribe(nil)
	h.Close()
	h.Close()

	for _, o := range []*Observer{a, b} {
		if _, ok := <-o.C; ok {
			t.Error("channel should be closed after Close")
		}
	}
	h.Unsubscribe(a)

	late := h.Subscribe([]byte(`[]`))
	if got := recv(t, late); got != `[]` {
		t.Errorf("late initial = %q", got)
	}
	if _, ok := <-late.C; ok {
		t.Error("late observer channel should be closed")
	}
	if h.Count() != 0 {
		t.Errorf("Count() = %d, want 0", h.Count())
	}
}

func TestHub_ConcurrentBroadcastAndChurn(t *testing.T) {
	h := NewHub(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			o := h.Subscribe(nil)
			time.Sleep(time.Millisecond)
			h.Unsubscribe(o)
		}()
		go func(i int) {
			defer wg.Done()
			h.Broadcast([]byte(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()
	if h.Count() != 0 {
		t.Errorf("Count() = %d, want 0", h.Count())
	}
}
