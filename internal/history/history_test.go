package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/matchview"
)

func finished(id match.ID, winner match.Mark) match.Match {
	m := match.Match{
		ID:           id,
		Status:       match.StatusCompleted,
		WinnerMark:   winner,
		MoveCount:    5,
		ParticipantA: match.Participant{UserID: "7", Kind: match.KindHuman},
		ParticipantB: match.Participant{Kind: match.KindAgent},
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		CompletedAt:  time.Date(2026, 1, 2, 3, 5, 5, 0, time.UTC),
	}
	m.Cells[0], m.Cells[1], m.Cells[2] = match.MarkA, match.MarkA, match.MarkA
	m.Cells[3], m.Cells[4] = match.MarkB, match.MarkB
	return m
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []match.Match
	err   error
}

func (f *fakeSaver) SaveResult(_ context.Context, m match.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, m)
	return nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type staticService struct{ m match.Match }

func (s staticService) FetchMatch(context.Context, match.ID) (match.Match, error) { return s.m, nil }

func (s staticService) SubmitMove(context.Context, match.ID, int) (match.Match, error) {
	return match.Match{}, errors.New("read only")
}

func TestRecordOf(t *testing.T) {
	t.Run("winner and duration", func(t *testing.T) {
		rec, err := RecordOf(finished("12", match.MarkA))
		require.NoError(t, err)
		assert.Equal(t, ResultA, rec.Result)
		assert.Equal(t, "XXXOO....", rec.Board)
		assert.Equal(t, match.KindAgent, rec.PlayerBKind)
		assert.Equal(t, time.Minute, rec.Duration)
	})

	t.Run("draw", func(t *testing.T) {
		rec, err := RecordOf(finished("12", match.Empty))
		require.NoError(t, err)
		assert.Equal(t, ResultDraw, rec.Result)
	})

	t.Run("abandoned falls back to updated time", func(t *testing.T) {
		m := finished("12", match.Empty)
		m.Status = match.StatusAbandoned
		m.CompletedAt = time.Time{}
		m.UpdatedAt = m.CreatedAt.Add(30 * time.Second)
		rec, err := RecordOf(m)
		require.NoError(t, err)
		assert.Equal(t, ResultAbandoned, rec.Result)
		assert.Equal(t, 30*time.Second, rec.Duration)
	})

	t.Run("in progress is refused", func(t *testing.T) {
		m := finished("12", match.Empty)
		m.Status = match.StatusInProgress
		_, err := RecordOf(m)
		assert.Error(t, err)
	})
}

func TestNewRepository_RequiresURL(t *testing.T) {
	_, err := NewRepository("  ")
	assert.Error(t, err)
}

func TestArchiver_ArchiveOnce(t *testing.T) {
	saver := &fakeSaver{}
	a := NewArchiver(saver, nil)
	ctx := context.Background()

	done, err := a.Archive(ctx, finished("12", match.MarkA))
	require.NoError(t, err)
	assert.True(t, done)

	done, err = a.Archive(ctx, finished("12", match.MarkA))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, saver.count())
}

func TestArchiver_SaveFailureIsRetried(t *testing.T) {
	saver := &fakeSaver{err: errors.New("db down")}
	a := NewArchiver(saver, nil)

	_, err := a.Archive(context.Background(), finished("12", match.MarkB))
	require.Error(t, err)

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()
	done, err := a.Archive(context.Background(), finished("12", match.MarkB))
	require.NoError(t, err)
	assert.True(t, done)
}

func TestArchiver_WatchSavesFinishedView(t *testing.T) {
	m := finished("12", match.MarkA)
	r := matchview.New(staticService{m: m}, "7")
	defer r.Close()
	sub := r.Subscribe()
	defer sub.Close()

	saver := &fakeSaver{}
	a := NewArchiver(saver, nil)
	result := make(chan bool, 1)
	go func() {
		done, _ := a.Watch(context.Background(), sub.C())
		result <- done
	}()

	require.NoError(t, r.Load(context.Background(), "12"))

	select {
	case done := <-result:
		assert.True(t, done)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return")
	}
	require.Equal(t, 1, saver.count())
	assert.Equal(t, match.ID("12"), saver.saved[0].ID)
}

func TestArchiver_WatchStopsOnClose(t *testing.T) {
	r := matchview.New(staticService{}, "7")
	sub := r.Subscribe()
	a := NewArchiver(&fakeSaver{}, nil)

	result := make(chan bool, 1)
	go func() {
		done, err := a.Watch(context.Background(), sub.C())
		assert.NoError(t, err)
		result <- done
	}()
	r.Close()

	select {
	case done := <-result:
		assert.False(t, done)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after close")
	}
}
