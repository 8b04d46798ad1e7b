package matchview

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/msgcat"
)

// Kind classifies the failures a match view reports.
type Kind string

const (
	KindLoadFailure        Kind = "load_failure"
	KindMoveRejected       Kind = "move_rejected"
	KindCommandFailure     Kind = "command_failure"
	KindStaleUpdateIgnored Kind = "stale_update_ignored"
)

func (k Kind) Error() string { return strings.ReplaceAll(string(k), "_", " ") }

// Sentinels for errors.Is.
var (
	ErrLoadFailure        error = KindLoadFailure
	ErrMoveRejected       error = KindMoveRejected
	ErrCommandFailure     error = KindCommandFailure
	ErrStaleUpdateIgnored error = KindStaleUpdateIgnored

	ErrClosed     = errors.New("match view closed")
	ErrSuperseded = errors.New("match view moved to another match")
)

// Precondition names the move check that failed.
type Precondition string

const (
	PreNotLoaded      Precondition = "not_loaded"
	PreCellOutOfRange Precondition = "cell_out_of_range"
	PreNotInProgress  Precondition = "not_in_progress"
	PreNotYourTurn    Precondition = "not_your_turn"
	PreCellOccupied   Precondition = "cell_occupied"
)

type Error struct {
	Kind         Kind
	Precondition Precondition // MoveRejected only
	MatchID      match.ID
	Cell         int
	Reason       string
	Err          error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.MatchID != "" {
		b.WriteString(" (match ")
		b.WriteString(string(e.MatchID))
		b.WriteString(")")
	}
	switch {
	case e.Precondition != "":
		b.WriteString(": ")
		b.WriteString(string(e.Precondition))
	case e.Reason != "":
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Message renders the user-visible text of the error.
func (e *Error) Message(cat *msgcat.Catalog) string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindMoveRejected:
		return cat.Text("error.rejected."+string(e.Precondition), map[string]any{"Cell": e.Cell}, e.Error())
	case KindLoadFailure:
		return cat.Text("error.load", map[string]any{"Reason": e.Reason}, e.Error())
	case KindCommandFailure:
		return cat.Text("error.move", map[string]any{"Reason": e.Reason}, e.Error())
	default:
		return e.Error()
	}
}

// reasoner is implemented by transport errors that carry a server-supplied reason.
type reasoner interface {
	Reason() string
}

func reasonOf(err error) string {
	if err == nil {
		return ""
	}
	var r reasoner
	if errors.As(err, &r) {
		if s := strings.TrimSpace(r.Reason()); s != "" {
			return s
		}
	}
	return err.Error()
}

func rejected(id match.ID, cell int, pre Precondition) *Error {
	return &Error{Kind: KindMoveRejected, Precondition: pre, MatchID: id, Cell: cell}
}

func failure(kind Kind, id match.ID, err error) *Error {
	return &Error{Kind: kind, MatchID: id, Reason: reasonOf(err), Err: err}
}

func stale(id match.ID, local, candidate int) *Error {
	return &Error{
		Kind:    KindStaleUpdateIgnored,
		MatchID: id,
		Reason:  fmt.Sprintf("move count %d behind local %d", candidate, local),
	}
}
