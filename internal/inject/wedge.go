package inject

import (
	"log/slog"
	"strconv"
	"sync"
)

// Wedge turns readings into keystrokes, one line per value.
// Deliver never blocks: injection runs on a worker goroutine and readings
// that arrive while the queue is full are dropped.
type Wedge struct {
	inj  TextInjector
	ch   chan uint16
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewWedge starts a Wedge that feeds inj. queue is the number of readings
// that may wait for injection; values < 1 become 1.
func NewWedge(inj TextInjector, queue int) *Wedge {
	if queue < 1 {
		queue = 1
	}
	w := &Wedge{
		inj:  inj,
		ch:   make(chan uint16, queue),
		done: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Deliver queues v for injection.
func (w *Wedge) Deliver(v uint16) {
	select {
	case <-w.done:
		return
	default:
	}
	select {
	case w.ch <- v:
	default:
		slog.Warn("[INJECT] queue full, dropping reading", "value", v)
	}
}

func (w *Wedge) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case v := <-w.ch:
			if err := w.inj.Inject(strconv.FormatUint(uint64(v), 10) + "\n"); err != nil {
				slog.Error("[INJECT] injection failed", "value", v, "error", err)
			}
		}
	}
}

// Close stops the worker and waits for an in-flight injection to finish.
// Queued readings are discarded. Safe to call multiple times.
func (w *Wedge) Close() {
	w.once.Do(func() {
		close(w.done)
	})
	w.wg.Wait()
}
