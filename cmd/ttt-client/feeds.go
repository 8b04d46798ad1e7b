package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/tictactoe-client/internal/config"
	"github.com/park285/tictactoe-client/internal/pushfeed"
)

const wsReconnectDelay = time.Second

// openFeed builds the push transport selected by TTT_PUSH_MODE. The returned feed is nil
// for "none"; release is always safe to call.
func (a *app) openFeed(ctx context.Context) (pushfeed.Feed, func(), error) {
	logger := a.logger.Named("feed")
	switch a.cfg.PushMode {
	case appcfg.PushNone:
		return nil, func() {}, nil
	case appcfg.PushPoll:
		p := pushfeed.NewPoll(a.client, a.cfg.PollInterval, logger)
		return p, p.Close, nil
	case appcfg.PushRedis:
		rf, err := pushfeed.NewRedisFeedFromURL(ctx, a.cfg.RedisURL, logger)
		if err != nil {
			return nil, func() {}, err
		}
		return rf, func() { _ = rf.Close() }, nil
	default:
		ws := a.newWSFeed()
		release := func() {
			cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = ws.Close(cctx)
		}
		if err := ws.Connect(ctx); err != nil {
			logger.Warn("ws_connect_failed; retrying in background", zap.Error(err))
		}
		return ws, release, nil
	}
}

func (a *app) newWSFeed() *pushfeed.WSFeed {
	sess := a.client.Session()
	ws := pushfeed.NewWSFeed(a.cfg.WSURL, sess.Identity(),
		pushfeed.WithReconnect(a.cfg.WSReconnectAttempts, wsReconnectDelay),
		pushfeed.WithHeaderProvider(sess.Headers),
		pushfeed.WithLogger(a.logger.Named("ws")),
	)
	ws.OnStateChange(func(state pushfeed.State) {
		a.logger.Debug("ws_state", zap.String("state", string(state)))
	})
	return ws
}
