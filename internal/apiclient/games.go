package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/park285/tictactoe-client/internal/match"
)

// Opponent kinds accepted by CreateGame.
const (
	OpponentHuman = "human"
	OpponentAgent = "ai"
)

func gamePath(id match.ID, suffix string) string {
	return "/api/games/" + url.PathEscape(string(id)) + suffix
}

// ListGames returns the active games shown in the lobby. limit <= 0 uses the server default.
func (c *Client) ListGames(ctx context.Context, limit int) ([]LobbyItem, error) {
	path := "/api/games/"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var items []LobbyItem
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &items, true); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateGame opens a new game. An empty opponentID leaves seat B open (or to the agent).
func (c *Client) CreateGame(ctx context.Context, opponentID match.UserID, opponentType string) (match.ID, error) {
	if opponentType != OpponentAgent {
		opponentType = OpponentHuman
	}
	req := CreateGameRequest{Player2Type: opponentType}
	if opponentID != "" {
		id := match.FlexID(opponentID)
		req.Player2ID = &id
	}
	var resp struct {
		ID match.FlexID `json:"id"`
	}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/games/", req, &resp, false); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: create response without id", match.ErrMalformed)
	}
	return match.ID(resp.ID), nil
}

// FetchMatch loads the current state of a match.
func (c *Client) FetchMatch(ctx context.Context, id match.ID) (match.Match, error) {
	var gd match.GameData
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, ""), nil, &gd, true); err != nil {
		return match.Match{}, err
	}
	return gd.ToMatch()
}

func (c *Client) JoinGame(ctx context.Context, id match.ID) error {
	return c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/join"), nil, nil, false)
}

func (c *Client) ObserveGame(ctx context.Context, id match.ID) error {
	return c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/observe"), nil, nil, false)
}

// SubmitMove plays position for the session user and returns the server's resulting match.
func (c *Client) SubmitMove(ctx context.Context, id match.ID, position int) (match.Match, error) {
	var gd match.GameData
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "/move"), MoveRequest{Position: position}, &gd, false); err != nil {
		return match.Match{}, err
	}
	return gd.ToMatch()
}
