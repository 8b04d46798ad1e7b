package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/park285/tictactoe-client/internal/match"
)

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var resp LeaderboardResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/leaderboard/?limit="+strconv.Itoa(limit), nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) UserStats(ctx context.Context, userID match.UserID) (UserStats, error) {
	var st UserStats
	err := c.doJSON(ctx, fasthttp.MethodGet, "/api/leaderboard/user/"+url.PathEscape(string(userID)), nil, &st, true)
	return st, err
}

func (c *Client) MyStats(ctx context.Context) (UserStats, error) {
	var st UserStats
	err := c.doJSON(ctx, fasthttp.MethodGet, "/api/leaderboard/me", nil, &st, true)
	return st, err
}
