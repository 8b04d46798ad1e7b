package pushfeed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/tictactoe-client/internal/match"
)

func inProgress(id match.ID, n int) match.Match {
	m := match.Match{
		ID:           id,
		Status:       match.StatusInProgress,
		TurnOwner:    match.MarkA,
		MoveCount:    n,
		ParticipantA: match.Participant{UserID: "7", Kind: match.KindHuman},
		ParticipantB: match.Participant{UserID: "9", Kind: match.KindHuman},
	}
	for i := 0; i < n; i++ {
		m.Cells[i] = match.MarkA
		if i%2 == 1 {
			m.Cells[i] = match.MarkB
		}
	}
	if n%2 == 1 {
		m.TurnOwner = match.MarkB
	}
	return m
}

func TestSubscription_CoalescesByMoveCount(t *testing.T) {
	// Given: a subscription with nobody reading
	feed := NewLocal()
	defer feed.Close()
	sub, err := feed.Subscribe(context.Background(), "1")
	require.NoError(t, err)

	// When: updates arrive out of order
	feed.Publish(inProgress("1", 3))
	feed.Publish(inProgress("1", 1))
	feed.Publish(inProgress("1", 2))

	// Then: only the newest survives
	got := <-sub.C()
	assert.Equal(t, 3, got.MoveCount)
	select {
	case m := <-sub.C():
		t.Fatalf("unexpected backlog: %d", m.MoveCount)
	default:
	}
}

func TestLocal_RoutesByMatch(t *testing.T) {
	feed := NewLocal()
	defer feed.Close()
	a, err := feed.Subscribe(context.Background(), "1")
	require.NoError(t, err)
	b, err := feed.Subscribe(context.Background(), "1")
	require.NoError(t, err)
	other, err := feed.Subscribe(context.Background(), "2")
	require.NoError(t, err)

	assert.Equal(t, 2, feed.Publish(inProgress("1", 1)))

	assert.Equal(t, 1, (<-a.C()).MoveCount)
	assert.Equal(t, 1, (<-b.C()).MoveCount)
	select {
	case <-other.C():
		t.Fatal("update leaked to another match")
	default:
	}

	a.Close()
	a.Close()
	assert.Equal(t, 1, feed.Publish(inProgress("1", 2)))

	feed.Close()
	_, ok := <-b.C()
	assert.False(t, ok)
	_, err = feed.Subscribe(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDecodeGameUpdate(t *testing.T) {
	t.Run("Round trips an encoded update", func(t *testing.T) {
		m := inProgress("12", 4)
		raw, err := EncodeGameUpdate(m)
		require.NoError(t, err)
		env := decodeEnvelope(t, raw)

		got, err := DecodeGameUpdate(env.Data)

		require.NoError(t, err)
		assert.Equal(t, TypeGameUpdate, env.Type)
		assert.Equal(t, m, got)
	})

	t.Run("Rejects mismatched ids and missing games", func(t *testing.T) {
		_, err := DecodeGameUpdate([]byte(`{"game_id":3,"game":{"id":4,"board_state":["","","","","","","","",""],"current_turn":"X","status":"waiting","total_moves":0}}`))
		assert.ErrorIs(t, err, match.ErrMalformed)

		_, err = DecodeGameUpdate([]byte(`{"game_id":3}`))
		assert.ErrorIs(t, err, match.ErrMalformed)

		_, err = DecodeGameUpdate([]byte(`[]`))
		assert.ErrorIs(t, err, match.ErrMalformed)
	})
}

type countingFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *countingFetcher) FetchMatch(_ context.Context, id match.ID) (match.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 1 {
		return match.Match{}, errors.New("down")
	}
	return inProgress(id, f.calls%9), nil
}

func TestPoll(t *testing.T) {
	f := &countingFetcher{}
	feed := NewPoll(f, 5*time.Millisecond, nil)
	sub, err := feed.Subscribe(context.Background(), "1")
	require.NoError(t, err)

	select {
	case m := <-sub.C():
		assert.Equal(t, match.ID("1"), m.ID)
	case <-time.After(time.Second):
		t.Fatal("poller delivered nothing")
	}

	sub.Close()
	feed.Close()
	f.mu.Lock()
	calls := f.calls
	f.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, calls, f.calls, "polling must stop after close")
}

func decodeEnvelope(t *testing.T, raw []byte) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}
