package matchview

import (
	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/msgcat"
)

// View is an immutable read of the reconciled match, derived fresh from the snapshot.
type View struct {
	MatchID    match.ID
	Loaded     bool
	Match      match.Match
	Viewer     match.UserID
	ViewerSeat match.Seat
	IsObserver bool
	StatusText string

	LoadError     *Error
	MoveError     *Error
	LoadErrorText string
	MoveErrorText string

	legal [match.BoardSize]bool
}

// LegalMove reports whether the viewer may play cell i right now.
func (v View) LegalMove(i int) bool {
	if i < 0 || i >= match.BoardSize {
		return false
	}
	return v.legal[i]
}

// LegalMoves lists every cell the viewer may play.
func (v View) LegalMoves() []int {
	var out []int
	for i, ok := range v.legal {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// ObserverText is the observer banner, empty for seated viewers.
func (v View) ObserverText(cat *msgcat.Catalog) string {
	if !v.Loaded || !v.IsObserver {
		return ""
	}
	return cat.Text("view.observer", nil, "You are watching this game as an observer")
}

func buildView(cat *msgcat.Catalog, target match.ID, snap *match.Match, viewer match.UserID, loadErr, moveErr *Error) View {
	v := View{
		MatchID:    target,
		Viewer:     viewer,
		ViewerSeat: match.NoSeat,
		IsObserver: true,
		LoadError:  loadErr,
		MoveError:  moveErr,
	}
	v.LoadErrorText = loadErr.Message(cat)
	v.MoveErrorText = moveErr.Message(cat)

	if snap == nil {
		v.StatusText = cat.Text("status.loading", nil, "Loading…")
		return v
	}
	m := *snap
	v.Loaded = true
	v.Match = m
	v.ViewerSeat = m.SeatOfUser(viewer)
	v.IsObserver = v.ViewerSeat == match.NoSeat
	v.StatusText = statusText(cat, &m)

	if m.Status == match.StatusInProgress && !v.IsObserver && v.ViewerSeat.Mark() == m.TurnOwner {
		for i, c := range m.Cells {
			v.legal[i] = c == match.Empty
		}
	}
	return v
}

func statusText(cat *msgcat.Catalog, m *match.Match) string {
	switch m.Status {
	case match.StatusWaiting:
		return cat.Text("status.waiting", nil, "Waiting for players…")
	case match.StatusInProgress:
		seat := match.SeatOf(m.TurnOwner)
		return cat.Text("status.turn", map[string]any{
			"Seat": SeatLabel(cat, m, seat),
			"Mark": string(m.TurnOwner),
		}, SeatLabel(cat, m, seat)+"'s turn ("+string(m.TurnOwner)+")")
	case match.StatusCompleted:
		if m.WinnerMark == match.Empty {
			return cat.Text("status.draw", nil, "It's a draw!")
		}
		seat := match.SeatOf(m.WinnerMark)
		return cat.Text("status.win", map[string]any{
			"Seat": SeatLabel(cat, m, seat),
			"Mark": string(m.WinnerMark),
		}, SeatLabel(cat, m, seat)+" ("+string(m.WinnerMark)+") wins!")
	case match.StatusAbandoned:
		return cat.Text("status.abandoned", nil, "Game abandoned")
	default:
		return string(m.Status)
	}
}

// SeatLabel returns the display name of a seat.
func SeatLabel(cat *msgcat.Catalog, m *match.Match, s match.Seat) string {
	switch s {
	case match.SeatA:
		return cat.Text("seat.a", nil, "Player 1")
	case match.SeatB:
		if m != nil && m.ParticipantB.IsAgent() {
			return cat.Text("seat.agent", nil, "Computer")
		}
		return cat.Text("seat.b", nil, "Player 2")
	default:
		return ""
	}
}
