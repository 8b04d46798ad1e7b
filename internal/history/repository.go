// Package history archives finished matches to postgres.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/tictactoe-client/internal/match"
)

const schema = `CREATE TABLE IF NOT EXISTS ttt_games (
    game_id       TEXT PRIMARY KEY,
    player_a_id   TEXT NOT NULL,
    player_b_id   TEXT NOT NULL,
    player_b_kind TEXT NOT NULL,
    result        TEXT NOT NULL,
    board         CHAR(9) NOT NULL,
    move_count    INTEGER NOT NULL,
    started_at    TIMESTAMPTZ,
    ended_at      TIMESTAMPTZ,
    duration_ms   BIGINT NOT NULL DEFAULT 0,
    archived_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Result tokens stored in ttt_games.result.
const (
	ResultA         = "x"
	ResultB         = "o"
	ResultDraw      = "draw"
	ResultAbandoned = "abandoned"
)

// Record is one archived match.
type Record struct {
	GameID      match.ID
	PlayerA     match.UserID
	PlayerB     match.UserID
	PlayerBKind match.ParticipantKind
	Result      string
	Board       string
	MoveCount   int
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
}

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished match. Matches still in play are rejected.
func (r *Repository) SaveResult(ctx context.Context, m match.Match) error {
	if r == nil || r.db == nil {
		return nil
	}
	rec, err := RecordOf(m)
	if err != nil {
		return err
	}

	q := `INSERT INTO ttt_games (
        game_id, player_a_id, player_b_id, player_b_kind,
        result, board, move_count, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
      ) ON CONFLICT (game_id) DO UPDATE SET
        player_a_id=EXCLUDED.player_a_id,
        player_b_id=EXCLUDED.player_b_id,
        player_b_kind=EXCLUDED.player_b_kind,
        result=EXCLUDED.result,
        board=EXCLUDED.board,
        move_count=EXCLUDED.move_count,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms,
        archived_at=now()`

	_, err = r.db.ExecContext(ctx, q,
		string(rec.GameID),
		string(rec.PlayerA), string(rec.PlayerB), string(rec.PlayerBKind),
		rec.Result, rec.Board, rec.MoveCount,
		nullTime(rec.StartedAt), nullTime(rec.EndedAt), rec.Duration.Milliseconds(),
	)
	return err
}

// Recent returns the latest archived matches, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT game_id, player_a_id, player_b_id, player_b_kind,
        result, board, move_count, started_at, ended_at, duration_ms
      FROM ttt_games ORDER BY archived_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec            Record
			id, a, b, kind string
			started, ended sql.NullTime
			durationMillis int64
		)
		if err := rows.Scan(&id, &a, &b, &kind, &rec.Result, &rec.Board, &rec.MoveCount, &started, &ended, &durationMillis); err != nil {
			return nil, err
		}
		rec.GameID, rec.PlayerA, rec.PlayerB = match.ID(id), match.UserID(a), match.UserID(b)
		rec.PlayerBKind = match.ParticipantKind(kind)
		rec.StartedAt, rec.EndedAt = started.Time, ended.Time
		rec.Duration = time.Duration(durationMillis) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordOf derives the archive row of a finished match.
func RecordOf(m match.Match) (Record, error) {
	if !m.IsFinished() {
		return Record{}, fmt.Errorf("match %s is %s, not finished", m.ID, m.Status)
	}
	rec := Record{
		GameID:      m.ID,
		PlayerA:     m.ParticipantA.UserID,
		PlayerB:     m.ParticipantB.UserID,
		PlayerBKind: m.ParticipantB.Kind,
		Result:      resultToken(m),
		Board:       BoardString(m.Cells),
		MoveCount:   m.MoveCount,
		StartedAt:   m.CreatedAt,
		EndedAt:     m.CompletedAt,
	}
	if rec.PlayerBKind == "" {
		rec.PlayerBKind = match.KindHuman
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = m.UpdatedAt
	}
	if !rec.StartedAt.IsZero() && rec.EndedAt.After(rec.StartedAt) {
		rec.Duration = rec.EndedAt.Sub(rec.StartedAt)
	}
	return rec, nil
}

func resultToken(m match.Match) string {
	switch {
	case m.Status == match.StatusAbandoned:
		return ResultAbandoned
	case m.WinnerMark == match.MarkA:
		return ResultA
	case m.WinnerMark == match.MarkB:
		return ResultB
	default:
		return ResultDraw
	}
}

// BoardString encodes the cells row-major, '.' for empty.
func BoardString(cells [match.BoardSize]match.Mark) string {
	var b strings.Builder
	for _, c := range cells {
		if c == match.Empty {
			b.WriteByte('.')
		} else {
			b.WriteString(string(c))
		}
	}
	return b.String()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
