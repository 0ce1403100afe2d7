package progress_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/vampirenirmal/insightatlas/internal/insight"
	"github.com/vampirenirmal/insightatlas/internal/progress"
)

func update(id string, percent int, status insight.Status) insight.ProgressUpdate {
	return insight.ProgressUpdate{
		InsightID:   id,
		Status:      status,
		Percent:     percent,
		CurrentStep: fmt.Sprintf("step at %d", percent),
	}
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	b := progress.NewBroadcaster(time.Minute, nil)
	sub := b.Subscribe("ins_1")
	defer b.Unsubscribe(sub)

	b.Broadcast(update("ins_1", 25, insight.StatusGenerating))

	select {
	case got := <-sub.C:
		if got.Percent != 25 {
			t.Errorf("received percent %d, want 25", got.Percent)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber received nothing")
	}
}

func TestBroadcastIsScopedToInsightID(t *testing.T) {
	b := progress.NewBroadcaster(time.Minute, nil)
	other := b.Subscribe("ins_other")
	defer b.Unsubscribe(other)

	b.Broadcast(update("ins_1", 50, insight.StatusGenerating))

	select {
	case got := <-other.C:
		t.Errorf("subscriber for another id received %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLateSubscriberGetsCachedReplay(t *testing.T) {
	b := progress.NewBroadcaster(time.Minute, nil)
	b.Broadcast(update("ins_1", 65, insight.StatusGenerating))

	sub := b.Subscribe("ins_1")
	defer b.Unsubscribe(sub)

	select {
	case got := <-sub.C:
		if got.Percent != 65 {
			t.Errorf("replayed percent %d, want 65", got.Percent)
		}
	case <-time.After(time.Second):
		t.Fatal("late subscriber got no replay")
	}
}

func TestReplayAfterCompletionWithinGrace(t *testing.T) {
	b := progress.NewBroadcaster(time.Minute, nil)
	b.Broadcast(update("ins_1", 100, insight.StatusCompleted))

	// A client connecting just after completion still sees final state.
	sub := b.Subscribe("ins_1")
	defer b.Unsubscribe(sub)

	select {
	case got := <-sub.C:
		if got.Status != insight.StatusCompleted || got.Percent != 100 {
			t.Errorf("replay = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no replay within grace window")
	}
}

func TestTerminalEntryEvictedAfterGrace(t *testing.T) {
	b := progress.NewBroadcaster(20*time.Millisecond, nil)
	b.Broadcast(update("ins_1", 100, insight.StatusCompleted))

	if _, ok := b.GetProgress("ins_1"); !ok {
		t.Fatal("terminal entry missing before grace expiry")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := b.GetProgress("ins_1"); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("terminal entry never evicted")
}

func TestNonTerminalEntryIsNotEvicted(t *testing.T) {
	b := progress.NewBroadcaster(20*time.Millisecond, nil)
	b.Broadcast(update("ins_1", 40, insight.StatusGenerating))

	time.Sleep(100 * time.Millisecond)
	if _, ok := b.GetProgress("ins_1"); !ok {
		t.Error("in-flight entry evicted")
	}
}

func TestNewWriteSupersedesPendingEviction(t *testing.T) {
	b := progress.NewBroadcaster(30*time.Millisecond, nil)
	b.Broadcast(update("ins_1", 100, insight.StatusFailed))
	// A fresh run for the same id before the grace fires.
	b.Broadcast(update("ins_1", 5, insight.StatusGenerating))

	time.Sleep(100 * time.Millisecond)
	got, ok := b.GetProgress("ins_1")
	if !ok {
		t.Fatal("restarted run's entry was evicted by the stale timer")
	}
	if got.Percent != 5 {
		t.Errorf("cached percent = %d, want 5", got.Percent)
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := progress.NewBroadcaster(time.Minute, nil)
	sub := b.Subscribe("ins_1")
	defer b.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody drains sub.C; well past the buffer size.
		for i := 0; i < 100; i++ {
			b.Broadcast(update("ins_1", i, insight.StatusGenerating))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := progress.NewBroadcaster(time.Minute, nil)
	sub := b.Subscribe("ins_1")
	b.Unsubscribe(sub)

	select {
	case _, open := <-sub.C:
		if open {
			t.Error("channel delivered a value after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed by unsubscribe")
	}

	// Broadcasting after unsubscribe must not panic on the closed channel.
	b.Broadcast(update("ins_1", 80, insight.StatusGenerating))
}

func TestClosedSubscriptionIsPrunedLazily(t *testing.T) {
	b := progress.NewBroadcaster(time.Minute, nil)
	sub := b.Subscribe("ins_1")
	sub.Close()

	// First broadcast hits the closed subscription and prunes it; neither
	// may panic.
	b.Broadcast(update("ins_1", 10, insight.StatusGenerating))
	b.Broadcast(update("ins_1", 20, insight.StatusGenerating))
}

func TestGetProgressMissingID(t *testing.T) {
	b := progress.NewBroadcaster(time.Minute, nil)
	if _, ok := b.GetProgress("never_seen"); ok {
		t.Error("GetProgress reported state for an unknown id")
	}
}
