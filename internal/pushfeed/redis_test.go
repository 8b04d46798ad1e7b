package pushfeed

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/tictactoe-client/internal/match"
)

func newTestRedisFeed(t *testing.T) (*RedisFeed, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := NewRedisFeed(context.Background(), rdb, nil)
	t.Cleanup(func() {
		_ = f.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return f, mr
}

func waitSubscribers(t *testing.T, mr *miniredis.Miniredis, ch string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mr.PubSubNumSub(ch)[ch] == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("channel %s: expected %d subscribers, got %d", ch, want, mr.PubSubNumSub(ch)[ch])
}

func TestRedisFeedDeliversToSubscribers(t *testing.T) {
	f, mr := newTestRedisFeed(t)
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, "21")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	waitSubscribers(t, mr, "game_updates:21", 1)

	if _, err := f.Publish(ctx, inProgress("22", 1)); err != nil {
		t.Fatalf("Publish other: %v", err)
	}
	mr.Publish("game_updates:21", `{"type":"game_update","data":{"game_id":21,"game":{"id":21}}}`)
	n, err := f.Publish(ctx, inProgress("21", 2))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 receiver, got %d", n)
	}

	select {
	case m := <-sub.C():
		if m.ID != "21" || m.MoveCount != 2 {
			t.Fatalf("unexpected match: id=%s moves=%d", m.ID, m.MoveCount)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no update delivered")
	}
}

func TestRedisFeedUnsubscribesOnLastClose(t *testing.T) {
	f, mr := newTestRedisFeed(t)
	ctx := context.Background()

	a, err := f.Subscribe(ctx, "5")
	if err != nil {
		t.Fatalf("Subscribe a: %v", err)
	}
	b, err := f.Subscribe(ctx, "5")
	if err != nil {
		t.Fatalf("Subscribe b: %v", err)
	}
	waitSubscribers(t, mr, ChannelFor("5"), 1)

	a.Close()
	waitSubscribers(t, mr, ChannelFor("5"), 1)
	b.Close()
	waitSubscribers(t, mr, ChannelFor("5"), 0)
}

func TestRedisFeedClose(t *testing.T) {
	f, _ := newTestRedisFeed(t)

	sub, err := f.Subscribe(context.Background(), "9")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected closed subscription channel")
	}
	if _, err := f.Subscribe(context.Background(), match.ID("9")); err == nil {
		t.Fatalf("expected error after close")
	}
}
