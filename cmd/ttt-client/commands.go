package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/apiclient"
	"github.com/park285/tictactoe-client/internal/history"
	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/presenter"
	"github.com/park285/tictactoe-client/internal/pushfeed"
)

const listLimit = 20

func (a *app) lobby(ctx context.Context, args []string) error {
	if err := a.printLobby(ctx); err != nil {
		return err
	}
	if len(args) == 0 || args[0] != "-f" {
		return nil
	}

	ws := a.newWSFeed()
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = ws.Close(cctx)
	}()
	changed := make(chan struct{}, 1)
	ws.OnLobbyChange(func(env pushfeed.Envelope) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err := ws.Connect(ctx); err != nil {
		a.logger.Warn("ws_connect_failed; retrying in background", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			if err := a.printLobby(ctx); err != nil {
				a.logger.Warn("lobby_refresh_failed", zap.Error(err))
			}
		}
	}
}

func (a *app) printLobby(ctx context.Context) error {
	items, err := a.client.ListGames(ctx, listLimit)
	if err != nil {
		return err
	}
	return a.presenter.Text(presenter.LobbyText(a.cat, items))
}

func (a *app) leaderboard(ctx context.Context) error {
	entries, err := a.client.Leaderboard(ctx, listLimit)
	if err != nil {
		return err
	}
	var mine *apiclient.UserStats
	if a.client.Session().Authenticated() {
		if st, err := a.client.MyStats(ctx); err != nil {
			a.logger.Warn("my_stats_failed", zap.Error(err))
		} else {
			mine = &st
		}
	}
	return a.presenter.Text(presenter.LeaderboardText(a.cat, entries, mine))
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: register <user> <email> <password>")
	}
	sess, err := a.client.Register(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	return a.printText(fmt.Sprintf("registered %s (id %s)", sess.User.Username, sess.Identity()))
}

func (a *app) create(ctx context.Context, args []string) error {
	if !a.client.Session().Authenticated() {
		return errors.New("create needs TTT_USERNAME and TTT_PASSWORD")
	}
	kind := apiclient.OpponentHuman
	var opponent match.UserID
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "ai", "agent", "computer":
			kind = apiclient.OpponentAgent
		case "human":
			if len(args) > 1 {
				opponent = match.UserID(args[1])
			}
		default:
			return fmt.Errorf("unknown opponent %q", args[0])
		}
	}
	id, err := a.client.CreateGame(ctx, opponent, kind)
	if err != nil {
		return err
	}
	return a.printText(fmt.Sprintf("created game #%s; play it with: play %s", id, id))
}

// relay forwards every websocket update of one match to its redis channel.
func (a *app) relay(ctx context.Context, args []string) error {
	id, err := matchArg(args)
	if err != nil {
		return err
	}
	if a.cfg.RedisURL == "" {
		return errors.New("relay needs REDIS_URL")
	}
	rf, err := pushfeed.NewRedisFeedFromURL(ctx, a.cfg.RedisURL, a.logger.Named("redis"))
	if err != nil {
		return err
	}
	defer func() { _ = rf.Close() }()

	ws := a.newWSFeed()
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = ws.Close(cctx)
	}()
	sub, err := ws.Subscribe(ctx, id)
	if err != nil {
		return err
	}
	defer sub.Close()
	if err := ws.Connect(ctx); err != nil {
		a.logger.Warn("ws_connect_failed; retrying in background", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-sub.C():
			if !ok {
				return nil
			}
			n, err := rf.Publish(ctx, m)
			if err != nil {
				a.logger.Warn("relay_publish_failed", zap.String("game_id", string(m.ID)), zap.Error(err))
				continue
			}
			a.logger.Debug("relayed", zap.String("game_id", string(m.ID)), zap.Int("move_count", m.MoveCount), zap.Int64("receivers", n))
			if m.IsFinished() {
				return nil
			}
		}
	}
}

func (a *app) history(ctx context.Context, args []string) error {
	if a.cfg.DatabaseURL == "" {
		return errors.New("history needs DATABASE_URL")
	}
	limit := listLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid limit %q", args[0])
		}
		limit = n
	}
	repo, err := history.NewRepository(a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	records, err := repo.Recent(ctx, limit)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "#%s  %s  %s  moves=%d  %s\n", rec.GameID, rec.Result, rec.Board, rec.MoveCount, rec.Duration.Round(time.Second))
	}
	if b.Len() == 0 {
		b.WriteString("no archived games\n")
	}
	return a.printText(b.String())
}

func matchArg(args []string) (match.ID, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New("missing game id")
	}
	return match.ID(strings.TrimPrefix(strings.TrimSpace(args[0]), "#")), nil
}
