package inject

import (
	"errors"
	"testing"
	"time"
)

// mockInjector forwards every Inject call to a channel.
type mockInjector struct {
	got   chan string
	block chan struct{} // when non-nil, Inject waits on it
	err   error
}

func newMockInjector() *mockInjector {
	return &mockInjector{got: make(chan string, 32)}
}

func (m *mockInjector) Inject(text string) error {
	if m.block != nil {
		<-m.block
	}
	m.got <- text
	return m.err
}

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for injection")
		return ""
	}
}

func TestWedgeDeliver(t *testing.T) {
	mock := newMockInjector()
	w := NewWedge(mock, 4)
	defer w.Close()

	w.Deliver(42)
	w.Deliver(65535)

	if got := recv(t, mock.got); got != "42\n" {
		t.Errorf("first injection = %q, want %q", got, "42\n")
	}
	if got := recv(t, mock.got); got != "65535\n" {
		t.Errorf("second injection = %q, want %q", got, "65535\n")
	}
}

func TestWedgeContinuesAfterError(t *testing.T) {
	mock := newMockInjector()
	mock.err = errors.New("accessibility denied")
	w := NewWedge(mock, 4)
	defer w.Close()

	w.Deliver(1)
	w.Deliver(2)

	recv(t, mock.got)
	if got := recv(t, mock.got); got != "2\n" {
		t.Errorf("injection after error = %q, want %q", got, "2\n")
	}
}

func TestWedgeDropsWhenFull(t *testing.T) {
	mock := newMockInjector()
	mock.block = make(chan struct{})
	w := NewWedge(mock, 1)

	w.Deliver(1) // picked up by the worker, which then blocks
	// Wait until the worker has taken the first value off the queue.
	deadline := time.Now().Add(time.Second)
	for len(w.ch) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	w.Deliver(2) // queued
	w.Deliver(3) // dropped

	close(mock.block)
	if got := recv(t, mock.got); got != "1\n" {
		t.Errorf("injection = %q, want %q", got, "1\n")
	}
	if got := recv(t, mock.got); got != "2\n" {
		t.Errorf("injection = %q, want %q", got, "2\n")
	}
	w.Close()

	select {
	case s := <-mock.got:
		t.Errorf("unexpected injection %q, value 3 should have been dropped", s)
	default:
	}
}

func TestWedgeCloseIdempotent(t *testing.T) {
	mock := newMockInjector()
	w := NewWedge(mock, 0)
	w.Close()
	w.Close()

	w.Deliver(7) // no-op after close
	select {
	case s := <-mock.got:
		t.Errorf("unexpected injection %q after Close", s)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestInjectorEmpty(t *testing.T) {
	inj := NewInjector("type")
	if err := inj.Inject(""); err != nil {
		t.Errorf("Inject(\"\") error = %v", err)
	}
}

func TestPasteModifier(t *testing.T) {
	if m := pasteModifier(); m != "cmd" && m != "ctrl" {
		t.Errorf("pasteModifier() = %q", m)
	}
}
