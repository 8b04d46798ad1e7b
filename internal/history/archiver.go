package history

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/matchview"
)

// Saver persists a finished match.
type Saver interface {
	SaveResult(ctx context.Context, m match.Match) error
}

// Archiver saves each watched match once, the first time a finished snapshot is seen.
type Archiver struct {
	saver  Saver
	logger *zap.Logger

	mu    sync.Mutex
	saved map[match.ID]int
}

func NewArchiver(saver Saver, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{saver: saver, logger: logger, saved: make(map[match.ID]int)}
}

// Watch consumes views until the match is archived, the channel closes or ctx ends.
// It reports whether a result was saved.
func (a *Archiver) Watch(ctx context.Context, views <-chan matchview.View) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case v, ok := <-views:
			if !ok {
				return false, nil
			}
			if !v.Loaded || !v.Match.IsFinished() {
				continue
			}
			done, err := a.Archive(ctx, v.Match)
			if err != nil {
				return false, err
			}
			return done, nil
		}
	}
}

// Archive saves m unless the same finished snapshot was already stored.
func (a *Archiver) Archive(ctx context.Context, m match.Match) (bool, error) {
	if !m.IsFinished() {
		return false, nil
	}
	a.mu.Lock()
	if n, ok := a.saved[m.ID]; ok && n >= m.MoveCount {
		a.mu.Unlock()
		return false, nil
	}
	a.mu.Unlock()

	if err := a.saver.SaveResult(ctx, m); err != nil {
		a.logger.Warn("history_save_failed", zap.String("game_id", string(m.ID)), zap.Error(err))
		return false, err
	}

	a.mu.Lock()
	a.saved[m.ID] = m.MoveCount
	a.mu.Unlock()
	a.logger.Info("history_saved",
		zap.String("game_id", string(m.ID)),
		zap.String("result", resultToken(m)),
		zap.Int("moves", m.MoveCount),
	)
	return true, nil
}
