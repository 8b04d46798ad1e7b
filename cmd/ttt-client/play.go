package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/history"
	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/matchview"
)

const archiveWait = 5 * time.Second

// openMatch shows one match until it finishes or the user quits. With interactive set,
// cell numbers read from stdin are submitted as moves.
func (a *app) openMatch(ctx context.Context, args []string, interactive bool) error {
	id, err := matchArg(args)
	if err != nil {
		return err
	}
	sess := a.client.Session()
	if interactive && !sess.Authenticated() {
		return errors.New("play needs TTT_USERNAME and TTT_PASSWORD")
	}

	feed, release, err := a.openFeed(ctx)
	if err != nil {
		return err
	}
	defer release()

	r := matchview.New(a.client, sess.Identity(),
		matchview.WithLogger(a.logger.Named("matchview")),
		matchview.WithCatalog(a.cat),
	)
	h, err := matchview.Open(ctx, r, feed, id)
	if err != nil {
		return err
	}
	defer h.Close()

	if interactive {
		a.joinIfOpen(ctx, h)
	} else if sess.Authenticated() {
		if err := a.client.ObserveGame(ctx, id); err != nil {
			a.logger.Debug("observe_failed", zap.String("game_id", string(id)), zap.Error(err))
		}
	}

	archived := a.startArchiver(ctx, h)

	sub := h.Subscribe()
	defer sub.Close()

	var lines <-chan string
	if interactive {
		lines = readLines(a.in)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := a.presenter.Board(ctx, v); err != nil {
				a.logger.Warn("render_failed", zap.Error(err))
			}
			if v.Loaded && v.Match.IsFinished() {
				waitArchived(archived)
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := a.handleInput(ctx, h, line)
			if err != nil || quit {
				return err
			}
		}
	}
}

// joinIfOpen takes the free seat of a waiting match the viewer is not part of.
func (a *app) joinIfOpen(ctx context.Context, h *matchview.Handle) {
	v := h.View()
	if !v.Loaded || v.ViewerSeat != match.NoSeat || v.Match.Status != match.StatusWaiting {
		return
	}
	if err := a.client.JoinGame(ctx, v.MatchID); err != nil {
		a.logger.Warn("join_failed", zap.String("game_id", string(v.MatchID)), zap.Error(err))
		return
	}
	if err := h.Reload(ctx); err != nil {
		a.logger.Warn("reload_after_join_failed", zap.Error(err))
	}
}

func (a *app) handleInput(ctx context.Context, h *matchview.Handle, line string) (bool, error) {
	switch line = strings.ToLower(strings.TrimSpace(line)); line {
	case "":
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	case "r", "reload":
		if err := h.Reload(ctx); err != nil && isTerminal(err) {
			return true, err
		}
		return false, nil
	}

	cell, err := strconv.Atoi(line)
	if err != nil {
		return false, a.printText("enter a cell number 0-8, 'r' to reload or 'q' to quit")
	}
	err = h.AttemptMove(ctx, cell)
	if err == nil {
		return false, nil
	}
	if isTerminal(err) {
		return true, err
	}
	var me *matchview.Error
	if errors.As(err, &me) && me.Kind == matchview.KindMoveRejected {
		return false, a.printText("! " + me.Message(a.cat))
	}
	// command failures are recorded on the view and shown with the next board
	return false, nil
}

func isTerminal(err error) bool {
	return errors.Is(err, matchview.ErrClosed) || errors.Is(err, matchview.ErrSuperseded)
}

// startArchiver saves the finished match when DATABASE_URL is set. The returned channel
// is closed once archiving is over; it is nil when archiving is off.
func (a *app) startArchiver(ctx context.Context, h *matchview.Handle) <-chan struct{} {
	if a.cfg.DatabaseURL == "" {
		return nil
	}
	repo, err := history.NewRepository(a.cfg.DatabaseURL)
	if err != nil {
		a.logger.Warn("history_unavailable", zap.Error(err))
		return nil
	}
	archiver := history.NewArchiver(repo, a.logger.Named("history"))
	sub := h.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = repo.Close() }()
		defer sub.Close()
		if _, err := archiver.Watch(ctx, sub.C()); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("history_watch_failed", zap.Error(err))
		}
	}()
	return done
}

func waitArchived(done <-chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(archiveWait):
	}
}

func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}
