package match

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inProgressPayload = `{
	"id": 42,
	"player1_id": 7,
	"player2_id": 9,
	"player2_type": "human",
	"board_state": ["X","","","","O","","","",""],
	"current_turn": "X",
	"status": "in_progress",
	"winner_id": null,
	"total_moves": 2,
	"created_at": "2025-01-02T03:04:05Z"
}`

func TestDecode(t *testing.T) {
	t.Run("Decodes an in-progress game", func(t *testing.T) {
		// When: a well-formed payload is decoded
		m, err := Decode([]byte(inProgressPayload))

		// Then: every field maps onto the model
		require.NoError(t, err)
		assert.Equal(t, ID("42"), m.ID)
		assert.Equal(t, MarkA, m.Cells[0])
		assert.Equal(t, MarkB, m.Cells[4])
		assert.Equal(t, MarkA, m.TurnOwner)
		assert.Equal(t, StatusInProgress, m.Status)
		assert.Equal(t, Empty, m.WinnerMark)
		assert.Equal(t, 2, m.MoveCount)
		assert.Equal(t, UserID("7"), m.ParticipantA.UserID)
		assert.Equal(t, UserID("9"), m.ParticipantB.UserID)
		assert.False(t, m.ParticipantB.IsAgent())
		assert.False(t, m.CreatedAt.IsZero())
	})

	t.Run("Accepts string identifiers", func(t *testing.T) {
		raw := `{"id":"g-1","player1_id":"u1","board_state":["","","","","","","","",""],"current_turn":"X","status":"waiting","total_moves":0}`

		m, err := Decode([]byte(raw))

		require.NoError(t, err)
		assert.Equal(t, ID("g-1"), m.ID)
		assert.Equal(t, UserID("u1"), m.ParticipantA.UserID)
		assert.Equal(t, UserID(""), m.ParticipantB.UserID)
	})

	t.Run("Maps winner_id onto the winning seat", func(t *testing.T) {
		raw := `{"id":1,"player1_id":7,"player2_id":9,"board_state":["O","O","O","X","X","","X","",""],"current_turn":"X","status":"completed","winner_id":9,"total_moves":6}`

		m, err := Decode([]byte(raw))

		require.NoError(t, err)
		assert.Equal(t, MarkB, m.WinnerMark)
		assert.False(t, m.IsDraw())
	})

	t.Run("Completed without winner is a draw", func(t *testing.T) {
		raw := `{"id":1,"player1_id":7,"player2_type":"ai","board_state":["X","O","X","X","O","O","O","X","X"],"current_turn":"O","status":"completed","total_moves":9}`

		m, err := Decode([]byte(raw))

		require.NoError(t, err)
		assert.True(t, m.IsDraw())
		assert.True(t, m.ParticipantB.IsAgent())
	})
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"wrong cell count":   `{"id":1,"player1_id":7,"board_state":["","",""],"current_turn":"X","status":"waiting","total_moves":0}`,
		"unknown mark":       `{"id":1,"player1_id":7,"board_state":["Z","","","","","","","",""],"current_turn":"O","status":"in_progress","total_moves":1}`,
		"unknown status":     `{"id":1,"player1_id":7,"board_state":["","","","","","","","",""],"current_turn":"X","status":"paused","total_moves":0}`,
		"move count drift":   `{"id":1,"player1_id":7,"board_state":["X","","","","","","","",""],"current_turn":"O","status":"in_progress","total_moves":3}`,
		"unknown turn":       `{"id":1,"player1_id":7,"board_state":["","","","","","","","",""],"current_turn":"Q","status":"in_progress","total_moves":0}`,
		"winner not seated":  `{"id":1,"player1_id":7,"player2_id":9,"board_state":["X","X","X","O","O","","","",""],"current_turn":"O","status":"completed","winner_id":3,"total_moves":5}`,
		"winner in progress": `{"id":1,"player1_id":7,"winner_mark":"X","board_state":["X","","","","","","","",""],"current_turn":"O","status":"in_progress","total_moves":1}`,
		"missing id":         `{"player1_id":7,"board_state":["","","","","","","","",""],"current_turn":"X","status":"waiting","total_moves":0}`,
		"not json":           `{"id":`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFromMatch(t *testing.T) {
	// Given: a completed match won by seat A
	m := Match{
		ID:           "5",
		Cells:        [BoardSize]Mark{MarkA, MarkA, MarkA, MarkB, MarkB, Empty, Empty, Empty, Empty},
		TurnOwner:    MarkB,
		Status:       StatusCompleted,
		WinnerMark:   MarkA,
		MoveCount:    5,
		ParticipantA: Participant{UserID: "7", Kind: KindHuman},
		ParticipantB: Participant{UserID: "9", Kind: KindHuman},
	}

	// When: it is encoded for the wire
	raw, err := json.Marshal(FromMatch(m))
	require.NoError(t, err)

	// Then: numeric ids stay numeric and the winner id follows the mark
	assert.Contains(t, string(raw), `"id":5`)
	assert.Contains(t, string(raw), `"winner_id":7`)
}

func TestMatch_SeatOfUser(t *testing.T) {
	m := &Match{
		ParticipantA: Participant{UserID: "7"},
		ParticipantB: Participant{Kind: KindAgent},
	}

	assert.Equal(t, SeatA, m.SeatOfUser("7"))
	assert.Equal(t, NoSeat, m.SeatOfUser("9"))
	assert.Equal(t, NoSeat, m.SeatOfUser(""))
}
