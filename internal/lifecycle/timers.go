package lifecycle

import (
	"sync"
	"time"
)

// timerSet tracks every ticker and one-shot timer a session schedules
// so terminal transitions can stop them all. Callbacks must re-check
// session state under the session lock: stopping a timer does not
// guarantee an in-flight callback has not already fired.
type timerSet struct {
	mu      sync.Mutex
	tickers []*time.Ticker
	timers  []*time.Timer
	done    chan struct{}
}

func (t *timerSet) doneCh() chan struct{} {
	if t.done == nil {
		t.done = make(chan struct{})
	}
	return t.done
}

// ticker runs f every interval until stopAll, or until the returned
// stop function is called. Stopping releases the goroutine, not just
// the ticks.
func (t *timerSet) ticker(interval time.Duration, f func()) (stop func()) {
	t.mu.Lock()
	tk := time.NewTicker(interval)
	t.tickers = append(t.tickers, tk)
	done := t.doneCh()
	t.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-stopped:
				return
			case <-tk.C:
				f()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			tk.Stop()
			close(stopped)
		})
	}
}

// after runs f once after d unless stopped first.
func (t *timerSet) after(d time.Duration, f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timers = append(t.timers, time.AfterFunc(d, f))
}

func (t *timerSet) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, tk := range t.tickers {
		tk.Stop()
	}
	t.tickers = nil
	for _, tm := range t.timers {
		tm.Stop()
	}
	t.timers = nil
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
}
