package matchview

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/pushfeed"
)

// Handle is an open match view: a reconciler bound to one match and fed by a push subscription.
type Handle struct {
	r    *Reconciler
	sub  *pushfeed.Subscription
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Open binds r to id, subscribes to feed and performs the initial load. The subscription
// is established before the load so that no update issued in between is missed. A failed
// load does not fail Open; it is recorded on the view. feed may be nil.
func Open(ctx context.Context, r *Reconciler, feed pushfeed.Feed, id match.ID) (*Handle, error) {
	if err := r.Bind(id); err != nil {
		return nil, err
	}
	h := &Handle{r: r, stop: make(chan struct{}), done: make(chan struct{})}
	if feed != nil {
		sub, err := feed.Subscribe(ctx, id)
		if err != nil {
			close(h.done)
			return nil, err
		}
		h.sub = sub
		go h.pump()
	} else {
		close(h.done)
	}

	if err := r.Load(ctx, id); err != nil {
		if errors.Is(err, ErrClosed) || errors.Is(err, ErrSuperseded) {
			h.Close()
			return nil, err
		}
	}
	return h, nil
}

func (h *Handle) pump() {
	defer close(h.done)
	for {
		select {
		case <-h.stop:
			return
		case m, ok := <-h.sub.C():
			if !ok {
				return
			}
			if out := h.r.ApplyRemoteUpdate(m); out == OutcomeClosed {
				return
			} else if out != OutcomeApplied {
				h.r.logger.Debug("push_not_applied",
					zap.String("match_id", string(m.ID)),
					zap.Stringer("outcome", out),
				)
			}
		}
	}
}

func (h *Handle) Reconciler() *Reconciler { return h.r }

func (h *Handle) View() View { return h.r.View() }

func (h *Handle) AttemptMove(ctx context.Context, cell int) error {
	return h.r.AttemptMove(ctx, cell)
}

// Reload refetches the bound match.
func (h *Handle) Reload(ctx context.Context) error {
	return h.r.Load(ctx, h.r.View().MatchID)
}

func (h *Handle) Subscribe() *Subscription { return h.r.Subscribe() }

// Close cancels the push subscription, closes the reconciler and waits for the pump.
func (h *Handle) Close() {
	h.once.Do(func() {
		close(h.stop)
		if h.sub != nil {
			h.sub.Close()
		}
		h.r.Close()
		<-h.done
	})
}
