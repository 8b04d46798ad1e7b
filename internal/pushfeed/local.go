package pushfeed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/match"
)

// Local is an in-process feed. Publish routes a snapshot to every subscriber of its match.
type Local struct {
	reg *registry
}

func NewLocal() *Local {
	return &Local{reg: newRegistry()}
}

func (l *Local) Subscribe(_ context.Context, id match.ID) (*Subscription, error) {
	sub, _, err := l.reg.add(id, nil)
	return sub, err
}

// Publish returns how many subscriptions took m as their pending value.
func (l *Local) Publish(m match.Match) int { return l.reg.route(m) }

func (l *Local) Close() { l.reg.closeAll() }

// Fetcher loads the current state of a match.
type Fetcher interface {
	FetchMatch(ctx context.Context, id match.ID) (match.Match, error)
}

// Poll is a feed for servers without push support: it refetches every subscribed
// match on a fixed interval and delivers what it gets.
type Poll struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *zap.Logger
	reg      *registry

	mu      sync.Mutex
	cancels map[match.ID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewPoll(f Fetcher, interval time.Duration, logger *zap.Logger) *Poll {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poll{
		fetcher:  f,
		interval: interval,
		logger:   logger,
		reg:      newRegistry(),
		cancels:  make(map[match.ID]context.CancelFunc),
	}
}

func (p *Poll) Subscribe(_ context.Context, id match.ID) (*Subscription, error) {
	sub, first, err := p.reg.add(id, func() { p.stopPolling(id) })
	if err != nil {
		return nil, err
	}
	if first {
		p.startPolling(id)
	}
	return sub, nil
}

func (p *Poll) startPolling(id match.ID) {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	if prev, ok := p.cancels[id]; ok {
		prev()
	}
	p.cancels[id] = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		t := time.NewTicker(p.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			reqCtx, cancelReq := context.WithTimeout(ctx, p.interval)
			m, err := p.fetcher.FetchMatch(reqCtx, id)
			cancelReq()
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Debug("poll_fetch_failed", zap.String("match_id", string(id)), zap.Error(err))
				}
				continue
			}
			p.reg.route(m)
		}
	}()
}

func (p *Poll) stopPolling(id match.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.cancels[id]; ok {
		cancel()
		delete(p.cancels, id)
	}
}

// Close stops every poller and closes all subscriptions.
func (p *Poll) Close() {
	p.mu.Lock()
	for id, cancel := range p.cancels {
		cancel()
		delete(p.cancels, id)
	}
	p.mu.Unlock()
	p.reg.closeAll()
	p.wg.Wait()
}
