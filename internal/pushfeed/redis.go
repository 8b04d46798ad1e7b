package pushfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/match"
)

const channelPrefix = "game_updates:"

func ChannelFor(id match.ID) string { return channelPrefix + strings.TrimSpace(string(id)) }

// RedisFeed receives game_update envelopes from redis pub/sub, one channel per match.
type RedisFeed struct {
	rdb    *redis.Client
	ps     *redis.PubSub
	reg    *registry
	logger *zap.Logger

	mu   sync.Mutex
	once sync.Once
	wg   sync.WaitGroup
}

// NewRedisFeed starts reading from rdb. logger may be nil.
func NewRedisFeed(ctx context.Context, rdb *redis.Client, logger *zap.Logger) *RedisFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &RedisFeed{
		rdb:    rdb,
		ps:     rdb.Subscribe(ctx),
		reg:    newRegistry(),
		logger: logger,
	}
	f.wg.Add(1)
	go f.loop()
	return f
}

// NewRedisFeedFromURL parses a redis:// URL and pings the server before subscribing.
func NewRedisFeedFromURL(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisFeed, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisFeed(ctx, rdb, logger), nil
}

func (f *RedisFeed) loop() {
	defer f.wg.Done()
	for msg := range f.ps.Channel() {
		var env Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			f.logger.Warn("redis_update_malformed", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		if env.Type != TypeGameUpdate {
			continue
		}
		m, err := DecodeGameUpdate(env.Data)
		if err != nil {
			f.logger.Warn("redis_update_malformed", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		if ChannelFor(m.ID) != msg.Channel {
			f.logger.Debug("redis_update_wrong_channel", zap.String("channel", msg.Channel), zap.String("match_id", string(m.ID)))
			continue
		}
		f.reg.route(m)
	}
}

func (f *RedisFeed) Subscribe(ctx context.Context, id match.ID) (*Subscription, error) {
	ch := ChannelFor(id)
	sub, first, err := f.reg.add(id, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.ps.Unsubscribe(context.Background(), ch); err != nil {
			f.logger.Debug("redis_unsubscribe_failed", zap.String("channel", ch), zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	if first {
		f.mu.Lock()
		err := f.ps.Subscribe(ctx, ch)
		f.mu.Unlock()
		if err != nil {
			sub.Close()
			return nil, fmt.Errorf("redis subscribe %s: %w", ch, err)
		}
	}
	return sub, nil
}

// Publish sends m to its match channel and returns the number of redis receivers.
func (f *RedisFeed) Publish(ctx context.Context, m match.Match) (int64, error) {
	payload, err := EncodeGameUpdate(m)
	if err != nil {
		return 0, err
	}
	return f.rdb.Publish(ctx, ChannelFor(m.ID), payload).Result()
}

// Close closes all subscriptions and the pub/sub connection. The redis client stays open.
func (f *RedisFeed) Close() error {
	var err error
	f.once.Do(func() {
		f.reg.closeAll()
		err = f.ps.Close()
		f.wg.Wait()
	})
	return err
}
