package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/park285/tictactoe-client/internal/apiclient"
	"github.com/park285/tictactoe-client/internal/config"
	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/pushfeed"
	"github.com/park285/tictactoe-client/internal/session"
)

func main() {
	baseURL := os.Getenv("TTT_API_BASE_URL")
	wsURL := os.Getenv("TTT_WS_URL")
	username := os.Getenv("TTT_USERNAME")
	password := os.Getenv("TTT_PASSWORD")

	if baseURL == "" {
		log.Fatal("TTT_API_BASE_URL is required")
	}

	client := apiclient.NewClient(baseURL, apiclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess := session.Anonymous
	if username != "" && password != "" {
		s, err := client.Login(ctx, username, password)
		if err != nil {
			log.Printf("login error: %v", err)
		} else {
			sess = s
			client = client.WithSession(s)
			log.Printf("login ok: user=%s id=%s", s.User.Username, s.Identity())
		}
	}

	games, err := client.ListGames(ctx, 5)
	if err != nil {
		log.Printf("/api/games error: %v", err)
	} else {
		log.Printf("/api/games ok: %d active", len(games))
	}

	if wsURL == "" {
		derived, err := config.DeriveWSURL(baseURL)
		if err != nil {
			log.Printf("cannot derive ws url: %v; skipping WS check", err)
			return
		}
		wsURL = derived
	}

	ws := pushfeed.NewWSFeed(wsURL, sess.Identity(),
		pushfeed.WithReconnect(0, time.Second),
		pushfeed.WithHeaderProvider(sess.Headers),
	)
	ws.OnStateChange(func(state pushfeed.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnLobbyChange(func(env pushfeed.Envelope) {
		log.Printf("WS lobby push: type=%s", env.Type)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	if len(games) > 0 {
		id := match.ID(games[0].ID)
		sub, err := ws.Subscribe(cctx, id)
		if err == nil {
			log.Printf("WS joined game #%s; waiting for updates", id)
			defer sub.Close()
			go func() {
				for m := range sub.C() {
					log.Printf("WS game_update #%s moves=%d status=%s", m.ID, m.MoveCount, m.Status)
				}
			}()
		}
	}

	// observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
