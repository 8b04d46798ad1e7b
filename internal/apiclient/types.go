package apiclient

import (
	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/session"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type,omitempty"`
	User        session.User `json:"user"`
}

type CreateGameRequest struct {
	Player2ID   *match.FlexID `json:"player2_id,omitempty"`
	Player2Type string        `json:"player2_type"`
}

type MoveRequest struct {
	Position int `json:"position"`
}

// LobbyItem is one row of the active games list.
type LobbyItem struct {
	ID              match.FlexID `json:"id"`
	Player1Username string       `json:"player1_username"`
	Player2Username string       `json:"player2_username,omitempty"`
	Player2Type     string       `json:"player2_type"`
	Status          string       `json:"status"`
	CreatedAt       string       `json:"created_at,omitempty"`
	ObserverCount   int          `json:"observer_count"`
}

type UserStats struct {
	UserID          match.FlexID `json:"user_id"`
	Username        string       `json:"username"`
	GamesPlayed     int          `json:"games_played"`
	GamesWon        int          `json:"games_won"`
	GamesLost       int          `json:"games_lost"`
	GamesDrawn      int          `json:"games_drawn"`
	WinRate         float64      `json:"win_rate"`
	AvgMovesPerGame float64      `json:"avg_moves_per_game"`
	TotalMoves      int          `json:"total_moves"`
}

type LeaderboardEntry struct {
	Rank            int          `json:"rank"`
	UserID          match.FlexID `json:"user_id"`
	Username        string       `json:"username"`
	GamesPlayed     int          `json:"games_played"`
	GamesWon        int          `json:"games_won"`
	GamesLost       int          `json:"games_lost"`
	GamesDrawn      int          `json:"games_drawn"`
	WinRate         float64      `json:"win_rate"`
	AvgMovesPerGame float64      `json:"avg_moves_per_game"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}
