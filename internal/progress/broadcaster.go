package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vampirenirmal/insightatlas/internal/insight"
)

// subscriptionBuffer bounds how far a slow consumer may lag before its
// updates are dropped.
const subscriptionBuffer = 16

// Subscription is one live consumer of progress updates for a single
// insight id. Updates arrive on C; the subscriber owns nothing else.
type Subscription struct {
	InsightID string
	C         chan insight.ProgressUpdate

	closed bool
	mu     sync.Mutex
}

// Close marks the subscription dead. The broadcaster prunes it lazily on
// the next publish; Close never blocks and is safe to call twice.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.C)
	}
}

// trySend delivers without blocking. Returns false when the subscription
// is closed; a full buffer just drops the update.
func (s *Subscription) trySend(update insight.ProgressUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.C <- update:
	default:
	}
	return true
}

// Broadcaster fans progress updates out to live subscribers and writes
// every update to the replay cache. The subscriber registry is owned here
// and mutated only through Subscribe/Unsubscribe/publish pruning; the raw
// map is never exposed.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]bool
	cache       *Cache
	logger      *slog.Logger
}

func NewBroadcaster(grace time.Duration, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[*Subscription]bool),
		cache:       NewCache(grace),
		logger:      logger.With("component", "progress_broadcaster"),
	}
}

// Subscribe registers a consumer for one insight id. Cached state, if any,
// is replayed immediately onto the returned channel so late joiners see
// the current position without waiting for the next broadcast.
func (b *Broadcaster) Subscribe(insightID string) *Subscription {
	sub := &Subscription{
		InsightID: insightID,
		C:         make(chan insight.ProgressUpdate, subscriptionBuffer),
	}

	b.mu.Lock()
	if _, ok := b.subscribers[insightID]; !ok {
		b.subscribers[insightID] = make(map[*Subscription]bool)
	}
	b.subscribers[insightID][sub] = true
	count := len(b.subscribers[insightID])
	b.mu.Unlock()

	if cached, ok := b.cache.Get(insightID); ok {
		sub.trySend(cached)
	}

	b.logger.Debug("subscriber registered",
		"insight_id", insightID,
		"subscriber_count", count)
	return sub
}

// Unsubscribe removes and closes a subscription.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	if subs, ok := b.subscribers[sub.InsightID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subscribers, sub.InsightID)
		}
	}
	b.mu.Unlock()
	sub.Close()

	b.logger.Debug("subscriber unregistered", "insight_id", sub.InsightID)
}

// Broadcast caches the update and publishes it to every live subscriber
// for its insight id. Closed subscriptions are pruned here, lazily, rather
// than proactively.
func (b *Broadcaster) Broadcast(update insight.ProgressUpdate) {
	b.cache.Put(update)

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subscribers[update.InsightID]))
	for sub := range b.subscribers[update.InsightID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	var dead []*Subscription
	for _, sub := range subs {
		if !sub.trySend(update) {
			dead = append(dead, sub)
		}
	}

	if len(dead) > 0 {
		b.mu.Lock()
		for _, sub := range dead {
			if set, ok := b.subscribers[update.InsightID]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(b.subscribers, update.InsightID)
				}
			}
		}
		b.mu.Unlock()
		b.logger.Debug("pruned closed subscribers",
			"insight_id", update.InsightID,
			"pruned", len(dead))
	}

	b.logger.Debug("progress broadcast",
		"insight_id", update.InsightID,
		"status", string(update.Status),
		"percent", update.Percent,
		"step", update.CurrentStep,
		"live_subscribers", len(subs)-len(dead))
}

// GetProgress is the one-shot read used by the getProgress protocol verb.
func (b *Broadcaster) GetProgress(insightID string) (insight.ProgressUpdate, bool) {
	return b.cache.Get(insightID)
}
