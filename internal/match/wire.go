package match

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FlexID decodes identifiers the server may send as numbers, strings or null.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be number or string: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	if _, err := json.Number(f).Int64(); err == nil {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

// GameData is the server representation of a match.
type GameData struct {
	ID          FlexID     `json:"id"`
	Player1ID   FlexID     `json:"player1_id"`
	Player2ID   FlexID     `json:"player2_id,omitempty"`
	Player2Type string     `json:"player2_type,omitempty"`
	BoardState  []string   `json:"board_state"`
	CurrentTurn string     `json:"current_turn"`
	Status      string     `json:"status"`
	WinnerID    FlexID     `json:"winner_id,omitempty"`
	WinnerMark  *string    `json:"winner_mark,omitempty"`
	TotalMoves  int        `json:"total_moves"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Decode parses and validates a GameData payload.
func Decode(raw []byte) (Match, error) {
	var gd GameData
	if err := json.Unmarshal(raw, &gd); err != nil {
		return Match{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return gd.ToMatch()
}

// ToMatch converts the wire form, rejecting anything that violates the model invariants.
func (gd *GameData) ToMatch() (Match, error) {
	if gd == nil {
		return Match{}, fmt.Errorf("%w: empty game", ErrMalformed)
	}
	if len(gd.BoardState) != BoardSize {
		return Match{}, fmt.Errorf("%w: board has %d cells", ErrMalformed, len(gd.BoardState))
	}

	m := Match{
		ID:        ID(gd.ID),
		TurnOwner: Mark(strings.ToUpper(strings.TrimSpace(gd.CurrentTurn))),
		Status:    Status(strings.ToLower(strings.TrimSpace(gd.Status))),
		MoveCount: gd.TotalMoves,
		ParticipantA: Participant{
			UserID: UserID(gd.Player1ID),
			Kind:   KindHuman,
		},
		ParticipantB: Participant{
			UserID: UserID(gd.Player2ID),
			Kind:   parseKind(gd.Player2Type),
		},
	}
	for i, c := range gd.BoardState {
		m.Cells[i] = Mark(strings.ToUpper(strings.TrimSpace(c)))
	}

	switch {
	case gd.WinnerMark != nil:
		m.WinnerMark = Mark(strings.ToUpper(strings.TrimSpace(*gd.WinnerMark)))
	case gd.WinnerID != "" && UserID(gd.WinnerID) == m.ParticipantA.UserID:
		m.WinnerMark = MarkA
	case gd.WinnerID != "" && UserID(gd.WinnerID) == m.ParticipantB.UserID:
		m.WinnerMark = MarkB
	case gd.WinnerID != "":
		return Match{}, fmt.Errorf("%w: winner %s is not seated", ErrMalformed, gd.WinnerID)
	}

	if gd.CreatedAt != nil {
		m.CreatedAt = *gd.CreatedAt
	}
	if gd.UpdatedAt != nil {
		m.UpdatedAt = *gd.UpdatedAt
	}
	if gd.CompletedAt != nil {
		m.CompletedAt = *gd.CompletedAt
	}

	if err := m.Validate(); err != nil {
		return Match{}, err
	}
	return m, nil
}

// FromMatch builds the wire form, used by tests and by feeds that republish snapshots.
func FromMatch(m Match) GameData {
	gd := GameData{
		ID:          FlexID(m.ID),
		Player1ID:   FlexID(m.ParticipantA.UserID),
		Player2ID:   FlexID(m.ParticipantB.UserID),
		Player2Type: string(m.ParticipantB.Kind),
		BoardState:  make([]string, BoardSize),
		CurrentTurn: string(m.TurnOwner),
		Status:      string(m.Status),
		TotalMoves:  m.MoveCount,
	}
	for i, c := range m.Cells {
		gd.BoardState[i] = string(c)
	}
	if m.WinnerMark != Empty {
		w := string(m.WinnerMark)
		gd.WinnerMark = &w
		gd.WinnerID = FlexID(m.Participant(SeatOf(m.WinnerMark)).UserID)
	}
	if !m.CreatedAt.IsZero() {
		t := m.CreatedAt
		gd.CreatedAt = &t
	}
	if !m.UpdatedAt.IsZero() {
		t := m.UpdatedAt
		gd.UpdatedAt = &t
	}
	if !m.CompletedAt.IsZero() {
		t := m.CompletedAt
		gd.CompletedAt = &t
	}
	return gd
}

func parseKind(s string) ParticipantKind {
	if strings.EqualFold(strings.TrimSpace(s), string(KindAgent)) {
		return KindAgent
	}
	return KindHuman
}
