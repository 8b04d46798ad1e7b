package match

import (
	"errors"
	"fmt"
	"time"
)

// BoardSize is the number of cells on a 3x3 board, row-major.
const BoardSize = 9

// Mark identifies the symbol of a seat. The empty mark marks a free cell.
type Mark string

const (
	Empty Mark = ""
	MarkA Mark = "X"
	MarkB Mark = "O"
)

func (m Mark) Valid() bool {
	switch m {
	case Empty, MarkA, MarkB:
		return true
	default:
		return false
	}
}

// Status represents the client-observed lifecycle of a match.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted, StatusAbandoned:
		return true
	default:
		return false
	}
}

// Seat is one of the two participant slots.
type Seat int

const (
	NoSeat Seat = iota
	SeatA
	SeatB
)

// Mark returns the mark held by the seat for the whole match.
func (s Seat) Mark() Mark {
	switch s {
	case SeatA:
		return MarkA
	case SeatB:
		return MarkB
	default:
		return Empty
	}
}

// SeatOf maps a mark back to the seat holding it.
func SeatOf(m Mark) Seat {
	switch m {
	case MarkA:
		return SeatA
	case MarkB:
		return SeatB
	default:
		return NoSeat
	}
}

// ID is an opaque match identifier. The server sends integers; strings are accepted too.
type ID string

// UserID identifies an account. Empty means no human occupies the slot.
type UserID string

// ParticipantKind distinguishes a human seat from the non-human agent.
type ParticipantKind string

const (
	KindHuman ParticipantKind = "human"
	KindAgent ParticipantKind = "ai"
)

type Participant struct {
	UserID UserID
	Kind   ParticipantKind
}

func (p Participant) IsAgent() bool { return p.Kind == KindAgent }

// Match is the client copy of one match as last reported by the server.
type Match struct {
	ID           ID
	Cells        [BoardSize]Mark
	TurnOwner    Mark
	Status       Status
	WinnerMark   Mark // Empty when there is no winner
	MoveCount    int
	ParticipantA Participant
	ParticipantB Participant

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// ErrMalformed is wrapped by every validation failure of an inbound payload.
var ErrMalformed = errors.New("malformed match payload")

// Validate checks the structural invariants a payload must satisfy before it may replace a snapshot.
func (m *Match) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil match", ErrMalformed)
	}
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if !m.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrMalformed, m.Status)
	}
	if m.TurnOwner != MarkA && m.TurnOwner != MarkB {
		if m.Status == StatusInProgress || m.TurnOwner != Empty {
			return fmt.Errorf("%w: unknown turn mark %q", ErrMalformed, m.TurnOwner)
		}
	}
	if !m.WinnerMark.Valid() {
		return fmt.Errorf("%w: unknown winner mark %q", ErrMalformed, m.WinnerMark)
	}
	if m.WinnerMark != Empty && m.Status != StatusCompleted {
		return fmt.Errorf("%w: winner set while %s", ErrMalformed, m.Status)
	}
	filled := 0
	for i, c := range m.Cells {
		if !c.Valid() {
			return fmt.Errorf("%w: cell %d has unknown mark %q", ErrMalformed, i, c)
		}
		if c != Empty {
			filled++
		}
	}
	if m.MoveCount < 0 {
		return fmt.Errorf("%w: negative move count %d", ErrMalformed, m.MoveCount)
	}
	if m.MoveCount != filled {
		return fmt.Errorf("%w: move count %d does not match %d filled cells", ErrMalformed, m.MoveCount, filled)
	}
	return nil
}

// SeatOfUser reports which seat the user occupies, NoSeat for observers.
func (m *Match) SeatOfUser(user UserID) Seat {
	if m == nil || user == "" {
		return NoSeat
	}
	switch user {
	case m.ParticipantA.UserID:
		return SeatA
	case m.ParticipantB.UserID:
		return SeatB
	default:
		return NoSeat
	}
}

// Participant returns the participant sitting in seat s.
func (m *Match) Participant(s Seat) Participant {
	if s == SeatB {
		return m.ParticipantB
	}
	return m.ParticipantA
}

func (m *Match) IsDraw() bool {
	return m.Status == StatusCompleted && m.WinnerMark == Empty
}

func (m *Match) IsFinished() bool {
	return m.Status == StatusCompleted || m.Status == StatusAbandoned
}

// Row returns the three marks of board row r (0..2).
func (m *Match) Row(r int) [3]Mark {
	return [3]Mark{m.Cells[r*3], m.Cells[r*3+1], m.Cells[r*3+2]}
}
