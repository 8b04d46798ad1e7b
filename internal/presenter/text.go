package presenter

import (
	"fmt"
	"strings"

	"github.com/park285/tictactoe-client/internal/apiclient"
	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/matchview"
	"github.com/park285/tictactoe-client/internal/msgcat"
)

// BoardText renders the view as a 3x3 grid; empty cells show their position number.
func BoardText(cat *msgcat.Catalog, v matchview.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game #%s\n", v.MatchID)
	if !v.Loaded {
		b.WriteString(v.StatusText)
		b.WriteByte('\n')
		writeErrors(&b, v)
		return b.String()
	}
	for r := 0; r < 3; r++ {
		row := v.Match.Row(r)
		cells := make([]string, 3)
		for c, mark := range row {
			if mark == match.Empty {
				cells[c] = fmt.Sprint(r*3 + c)
			} else {
				cells[c] = string(mark)
			}
		}
		fmt.Fprintf(&b, " %s | %s | %s\n", cells[0], cells[1], cells[2])
		if r < 2 {
			b.WriteString("---+---+---\n")
		}
	}
	b.WriteString(v.StatusText)
	b.WriteByte('\n')
	b.WriteString(cat.Text("view.moves", map[string]any{"Count": v.Match.MoveCount}, fmt.Sprintf("Moves: %d", v.Match.MoveCount)))
	b.WriteByte('\n')
	if s := v.ObserverText(cat); s != "" {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	writeErrors(&b, v)
	return b.String()
}

func writeErrors(b *strings.Builder, v matchview.View) {
	for _, s := range []string{v.LoadErrorText, v.MoveErrorText} {
		if s != "" {
			b.WriteString("! ")
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
}

// LobbyText lists active games.
func LobbyText(cat *msgcat.Catalog, items []apiclient.LobbyItem) string {
	var b strings.Builder
	b.WriteString(cat.Text("lobby.header", nil, "Game Lobby"))
	b.WriteByte('\n')
	if len(items) == 0 {
		b.WriteString(cat.Text("lobby.empty", nil, "No active games."))
		b.WriteByte('\n')
		return b.String()
	}
	for _, it := range items {
		opponent := it.Player2Username
		switch {
		case it.Player2Type == apiclient.OpponentAgent:
			opponent = cat.Text("seat.agent", nil, "Computer")
		case opponent == "":
			opponent = cat.Text("lobby.waiting_opponent", nil, "Waiting...")
		}
		players := it.Player1Username + " vs " + opponent
		status := strings.ReplaceAll(it.Status, "_", " ")
		line := cat.Text("lobby.row", map[string]any{
			"ID":        string(it.ID),
			"Players":   players,
			"Status":    status,
			"Observers": it.ObserverCount,
		}, fmt.Sprintf("#%s  %s  [%s]", it.ID, players, status))
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// LeaderboardText formats the ranking and, when mine is not nil, the caller's own stats.
func LeaderboardText(cat *msgcat.Catalog, entries []apiclient.LeaderboardEntry, mine *apiclient.UserStats) string {
	var b strings.Builder
	b.WriteString(cat.Text("leaderboard.header", nil, "Leaderboard"))
	b.WriteByte('\n')
	for _, e := range entries {
		b.WriteString(cat.Text("leaderboard.row", map[string]any{
			"Rank":     e.Rank,
			"Username": e.Username,
			"Won":      e.GamesWon,
			"Lost":     e.GamesLost,
			"Drawn":    e.GamesDrawn,
			"WinRate":  FormatPercentage(e.WinRate),
		}, fmt.Sprintf("%d. %s", e.Rank, e.Username)))
		b.WriteByte('\n')
	}
	if mine != nil {
		b.WriteString(cat.Text("leaderboard.mine", map[string]any{
			"Played":  mine.GamesPlayed,
			"Won":     mine.GamesWon,
			"WinRate": FormatPercentage(mine.WinRate),
		}, fmt.Sprintf("You: %d played", mine.GamesPlayed)))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatPercentage renders a 0..1 ratio as "62.5%".
func FormatPercentage(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
