package presenter

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/tictactoe-client/internal/apiclient"
	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/matchview"
	"github.com/park285/tictactoe-client/internal/msgcat"
)

type staticService struct{ m match.Match }

func (s staticService) FetchMatch(context.Context, match.ID) (match.Match, error) { return s.m, nil }
func (s staticService) SubmitMove(context.Context, match.ID, int) (match.Match, error) {
	return s.m, nil
}

func viewOf(t *testing.T, viewer match.UserID, m match.Match) matchview.View {
	t.Helper()
	r := matchview.New(staticService{m: m}, viewer)
	require.NoError(t, r.Load(context.Background(), m.ID))
	return r.View()
}

func sample() match.Match {
	m := match.Match{
		ID:           "42",
		Status:       match.StatusInProgress,
		TurnOwner:    match.MarkA,
		MoveCount:    2,
		ParticipantA: match.Participant{UserID: "7", Kind: match.KindHuman},
		ParticipantB: match.Participant{UserID: "9", Kind: match.KindHuman},
	}
	m.Cells[0] = match.MarkA
	m.Cells[4] = match.MarkB
	return m
}

func TestBoardText(t *testing.T) {
	t.Run("Seated viewer", func(t *testing.T) {
		out := BoardText(msgcat.Default(), viewOf(t, "7", sample()))

		assert.Contains(t, out, "Game #42")
		assert.Contains(t, out, " X | 1 | 2\n")
		assert.Contains(t, out, " 3 | O | 5\n")
		assert.Contains(t, out, "Player 1's turn (X)")
		assert.Contains(t, out, "Moves: 2")
		assert.NotContains(t, out, "observer")
	})

	t.Run("Observer banner", func(t *testing.T) {
		out := BoardText(msgcat.Default(), viewOf(t, "13", sample()))

		assert.Contains(t, out, "You are watching this game as an observer")
	})

	t.Run("Unloaded view", func(t *testing.T) {
		out := BoardText(msgcat.Default(), matchview.View{MatchID: "3", StatusText: "Loading…"})

		assert.Equal(t, "Game #3\nLoading…\n", out)
	})
}

func TestLobbyAndLeaderboardText(t *testing.T) {
	cat := msgcat.Default()
	lobby := LobbyText(cat, []apiclient.LobbyItem{
		{ID: "1", Player1Username: "alice", Player2Type: "ai", Status: "in_progress", ObserverCount: 1},
		{ID: "2", Player1Username: "bob", Player2Type: "human", Status: "waiting"},
	})
	assert.Contains(t, lobby, "#1  alice vs Computer  [in progress]  observers: 1")
	assert.Contains(t, lobby, "#2  bob vs Waiting...  [waiting]")

	assert.Contains(t, LobbyText(cat, nil), "No active games")

	board := LeaderboardText(cat, []apiclient.LeaderboardEntry{
		{Rank: 1, Username: "alice", GamesWon: 5, GamesLost: 2, GamesDrawn: 1, WinRate: 0.625},
	}, &apiclient.UserStats{GamesPlayed: 8, GamesWon: 5, WinRate: 0.625})
	assert.Contains(t, board, "1. alice  W5 L2 D1  (62.5%)")
	assert.Contains(t, board, "You: 8 played, 5 won, win rate 62.5%")
}

func TestRenderPNG(t *testing.T) {
	r := NewPNGRenderer()
	v := viewOf(t, "7", sample())

	raw, err := r.RenderPNG(context.Background(), v, RenderOptions{})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, gridSize+sideMargin*2, gridSize+topMargin+bottomMargin), img.Bounds())

	origin := image.Pt(sideMargin, topMargin)
	center := func(i int) image.Point {
		rc := cellRect(i, origin)
		return image.Pt((rc.Min.X+rc.Max.X)/2, (rc.Min.Y+rc.Max.Y)/2)
	}
	rgba := func(p image.Point) color.RGBA {
		return color.RGBAModel.Convert(img.At(p.X, p.Y)).(color.RGBA)
	}
	assert.NotEqual(t, cellColor, rgba(center(0)), "X glyph must cover the cell center")
	assert.Equal(t, cellColor, rgba(center(8)), "empty cell stays blank")
}

func TestRenderPNGRequiresLoadedView(t *testing.T) {
	_, err := NewPNGRenderer().RenderPNG(context.Background(), matchview.View{MatchID: "1"}, RenderOptions{})
	assert.Error(t, err)
}

func TestPresenterBoard(t *testing.T) {
	var texts []string
	var images [][]byte
	p := NewPresenter(nil, nil,
		func(s string) error { texts = append(texts, s); return nil },
		func(b []byte) error { images = append(images, b); return nil },
	)

	require.NoError(t, p.Board(context.Background(), viewOf(t, "7", sample())))
	require.NoError(t, p.Board(context.Background(), matchview.View{MatchID: "1", StatusText: "Loading…"}))

	require.Len(t, texts, 2)
	assert.True(t, strings.HasPrefix(texts[0], "Game #42"))
	require.Len(t, images, 1)
	assert.True(t, bytes.HasPrefix(images[0], []byte("\x89PNG")))
}

func TestTruncateWithEllipsis(t *testing.T) {
	r := NewPNGRenderer().(*pngRenderer)
	assert.Equal(t, "short", truncateWithEllipsis(r.face, "short", 200))
	got := truncateWithEllipsis(r.face, strings.Repeat("w", 100), 70)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 10)
}
