package manager

import "sync"

// tracker records which executions of a group have started and finished.
type tracker struct {
	mu         sync.Mutex
	executions map[string]bool
}

func newTracker() *tracker {
	return &tracker{executions: make(map[string]bool)}
}

// begin registers id as running unless it is already known.
func (t *tracker) begin(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.executions[id]; ok {
		return false
	}
	t.executions[id] = false
	return true
}

// finish marks a known id as finished. Unknown ids are ignored.
func (t *tracker) finish(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.executions[id]; !ok {
		return false
	}
	t.executions[id] = true
	return true
}

// drain clears the tracker and returns true when it is non-empty and every execution finished.
func (t *tracker) drain() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.executions) == 0 {
		return false
	}
	for _, done := range t.executions {
		if !done {
			return false
		}
	}
	clear(t.executions)
	return true
}

func (t *tracker) counts() (total, running int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, done := range t.executions {
		if !done {
			running++
		}
	}
	return len(t.executions), running
}

func (t *tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.executions)
}
