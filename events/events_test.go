package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rallyscore/go-rallysync/common/types"
)

func TestPublishFanout(t *testing.T) {
	b := NewBus()
	first := b.SubscribeLiveApplied(4)
	second := b.SubscribeLiveApplied(4)

	ev := LiveApplied{GameID: types.RandomGameID(), Op: types.OpScore, At: time.Now()}
	b.PublishLiveApplied(ev)

	require.Equal(t, ev, <-first)
	require.Equal(t, ev, <-second)
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBus()
	_ = b.SubscribeErrors(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// the subscriber never reads; extra events are dropped, not queued
		for i := 0; i < 100; i++ {
			b.PublishError(SyncError{Code: "timeout"})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	b := NewBus()
	reach := b.SubscribeReachability(0)
	b.PublishReachability(ReachabilityChanged{From: "unavailable", To: "connecting"})
	b.Close()

	ev, ok := <-reach
	require.True(t, ok, "buffered event survives close")
	require.Equal(t, "connecting", ev.To)
	_, ok = <-reach
	require.False(t, ok)
}

func TestZeroBufferGetsDefault(t *testing.T) {
	b := NewBus()
	ch := b.SubscribeStart(0)
	for i := 0; i < DefaultBuffer; i++ {
		b.PublishStart(StartRequested{Request: &types.StartGameRequest{GameType: "singles"}})
	}
	require.Len(t, ch, DefaultBuffer)
}
