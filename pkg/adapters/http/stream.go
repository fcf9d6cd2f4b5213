package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/testctx/internal/logging"
	"github.com/aretw0/testctx/pkg/domain"
)

// allGroups keys subscribers that receive every group's events.
const allGroups = ""

// StreamManager fans lock events out to SSE subscribers.
// It implements ports.LockObserver, so it can be handed to the managers directly.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // group -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates a stream manager. A nil logger discards output.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logging.OrNop(logger),
	}
}

// Subscribe registers a channel for group, or for every group when group is empty.
// The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(group string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[group]; !ok {
		sm.subscribers[group] = make(map[chan string]struct{})
	}
	sm.subscribers[group][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[group]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, group)
				}
			}
		})
	}
}

// Broadcast sends msg to the subscribers of group and to the catch-all ones.
// Slow clients drop messages instead of blocking the caller.
func (sm *StreamManager) Broadcast(group, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	keys := []string{allGroups}
	if group != allGroups {
		keys = append(keys, group)
	}
	for _, key := range keys {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE client buffer full, dropping event", "group", group)
			}
		}
	}
}

// Subscribers counts the open subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}

// OnLockEvent broadcasts e as JSON.
func (sm *StreamManager) OnLockEvent(e domain.LockEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		sm.logger.Error("failed to marshal lock event", "err", err)
		return
	}
	sm.Broadcast(e.Group, string(data))
}
