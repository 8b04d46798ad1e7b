// Package matchview keeps one consistent client-side view of a match.
//
// A Reconciler merges three sources of match state: explicit loads, responses to the
// viewer's own moves and pushed updates. Loads always replace the snapshot. Every other
// candidate is accepted only when its move count is not behind the local one, and never
// once the local snapshot is completed. The Reconciler runs no goroutines of its own;
// see Open for the pump that connects it to a push feed.
package matchview

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/tictactoe-client/internal/match"
	"github.com/park285/tictactoe-client/internal/msgcat"
	"github.com/park285/tictactoe-client/internal/pushfeed"
)

// Service is the match query/command backend.
type Service interface {
	FetchMatch(ctx context.Context, id match.ID) (match.Match, error)
	SubmitMove(ctx context.Context, id match.ID, cell int) (match.Match, error)
}

// Outcome reports what happened to a pushed candidate.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeStale
	OutcomeOtherMatch
	OutcomeTerminal
	OutcomeMalformed
	OutcomeClosed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeStale:
		return "stale"
	case OutcomeOtherMatch:
		return "other_match"
	case OutcomeTerminal:
		return "terminal"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeClosed:
		return "closed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Diagnostics counts candidates by outcome since the reconciler was created.
type Diagnostics struct {
	Applied   int
	Stale     int
	Malformed int
	Ignored   int
	LastStale *Error
}

type Option func(*Reconciler)

func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithCatalog(c *msgcat.Catalog) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.cat = c
		}
	}
}

type Reconciler struct {
	svc    Service
	viewer match.UserID
	cat    *msgcat.Catalog
	logger *zap.Logger

	mu      sync.Mutex
	target  match.ID
	gen     uint64 // bumped whenever target changes; in-flight results carry the gen they were issued under
	snap    *match.Match
	loadErr *Error
	moveErr *Error
	diag    Diagnostics
	closed  bool
	subs    []*Subscription
}

// New creates a reconciler for the given viewer. An empty viewer observes every match.
func New(svc Service, viewer match.UserID, opts ...Option) *Reconciler {
	r := &Reconciler{
		svc:    svc,
		viewer: viewer,
		cat:    msgcat.Default(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind points the view at id without fetching. A different id clears the current snapshot.
func (r *Reconciler) Bind(id match.ID) error {
	id = match.ID(strings.TrimSpace(string(id)))
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.bindLocked(id)
	return nil
}

func (r *Reconciler) bindLocked(id match.ID) {
	if id == r.target {
		return
	}
	r.target = id
	r.gen++
	r.snap = nil
	r.loadErr = nil
	r.moveErr = nil
	r.publishLocked()
}

// Load fetches id and replaces the snapshot unconditionally. On failure the snapshot is
// left untouched and a LoadFailure is recorded on the view. Load never retries.
func (r *Reconciler) Load(ctx context.Context, id match.ID) error {
	id = match.ID(strings.TrimSpace(string(id)))
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.bindLocked(id)
	gen := r.gen
	r.mu.Unlock()

	var (
		m   match.Match
		err error
	)
	if id == "" {
		err = fmt.Errorf("%w: empty match id", match.ErrMalformed)
	} else {
		m, err = r.svc.FetchMatch(ctx, id)
		if err == nil {
			err = checkPayload(id, &m)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.gen != gen {
		r.logger.Debug("match_load_superseded", zap.String("match_id", string(id)))
		return ErrSuperseded
	}
	if err != nil {
		r.loadErr = failure(KindLoadFailure, id, err)
		r.logger.Warn("match_load_failed", zap.String("match_id", string(id)), zap.Error(err))
		r.publishLocked()
		return r.loadErr
	}
	r.snap = &m
	r.loadErr = nil
	r.diag.Applied++
	r.logger.Debug("match_loaded",
		zap.String("match_id", string(id)),
		zap.Int("move_count", m.MoveCount),
		zap.String("status", string(m.Status)),
	)
	r.publishLocked()
	return nil
}

// ApplyRemoteUpdate offers a pushed snapshot to the view.
func (r *Reconciler) ApplyRemoteUpdate(candidate match.Match) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return OutcomeClosed
	}
	if r.target == "" || candidate.ID != r.target {
		r.diag.Ignored++
		return OutcomeOtherMatch
	}
	if err := candidate.Validate(); err != nil {
		r.diag.Malformed++
		r.logger.Warn("match_update_malformed", zap.String("match_id", string(candidate.ID)), zap.Error(err))
		return OutcomeMalformed
	}
	return r.acceptLocked(candidate, "push")
}

// acceptLocked applies the monotonic acceptance rule shared by pushes and move responses.
func (r *Reconciler) acceptLocked(c match.Match, source string) Outcome {
	if r.snap != nil {
		if r.snap.Status == match.StatusCompleted {
			r.diag.Ignored++
			r.logger.Debug("match_update_after_completion",
				zap.String("match_id", string(c.ID)),
				zap.String("source", source),
			)
			return OutcomeTerminal
		}
		if c.MoveCount < r.snap.MoveCount {
			r.diag.Stale++
			r.diag.LastStale = stale(c.ID, r.snap.MoveCount, c.MoveCount)
			r.logger.Debug("match_update_stale",
				zap.String("match_id", string(c.ID)),
				zap.String("source", source),
				zap.Int("local_moves", r.snap.MoveCount),
				zap.Int("candidate_moves", c.MoveCount),
			)
			return OutcomeStale
		}
	}
	r.snap = &c
	r.diag.Applied++
	r.publishLocked()
	return OutcomeApplied
}

// AttemptMove checks the move locally and, if legal, submits it. The board changes only
// when the command response is accepted; nothing is applied optimistically.
func (r *Reconciler) AttemptMove(ctx context.Context, cell int) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	id, gen := r.target, r.gen
	if rej := r.checkMoveLocked(cell); rej != nil {
		r.mu.Unlock()
		r.logger.Debug("move_rejected",
			zap.String("match_id", string(id)),
			zap.Int("cell", cell),
			zap.String("precondition", string(rej.Precondition)),
		)
		return rej
	}
	r.mu.Unlock()

	m, err := r.svc.SubmitMove(ctx, id, cell)
	if err == nil {
		err = checkPayload(id, &m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.gen != gen {
		return ErrSuperseded
	}
	if err != nil {
		r.moveErr = failure(KindCommandFailure, id, err)
		r.moveErr.Cell = cell
		r.logger.Warn("move_failed", zap.String("match_id", string(id)), zap.Int("cell", cell), zap.Error(err))
		r.publishLocked()
		return r.moveErr
	}
	r.moveErr = nil
	if out := r.acceptLocked(m, "command"); out != OutcomeApplied {
		// a push already carried the view past this response
		r.publishLocked()
	}
	return nil
}

func (r *Reconciler) checkMoveLocked(cell int) *Error {
	id := r.target
	switch {
	case r.snap == nil:
		return rejected(id, cell, PreNotLoaded)
	case cell < 0 || cell >= match.BoardSize:
		return rejected(id, cell, PreCellOutOfRange)
	case r.snap.Status != match.StatusInProgress:
		return rejected(id, cell, PreNotInProgress)
	}
	seat := r.snap.SeatOfUser(r.viewer)
	if seat == match.NoSeat || seat.Mark() != r.snap.TurnOwner {
		return rejected(id, cell, PreNotYourTurn)
	}
	if r.snap.Cells[cell] != match.Empty {
		return rejected(id, cell, PreCellOccupied)
	}
	return nil
}

func checkPayload(id match.ID, m *match.Match) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.ID != id {
		return fmt.Errorf("%w: requested match %s, got %s", match.ErrMalformed, id, m.ID)
	}
	return nil
}

// View returns the current derived view.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Reconciler) viewLocked() View {
	return buildView(r.cat, r.target, r.snap, r.viewer, r.loadErr, r.moveErr)
}

func (r *Reconciler) Diagnostics() Diagnostics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.diag
}

// Close detaches the view. Later loads, moves and updates are refused and every
// subscription channel is closed.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	for _, s := range subs {
		s.box.Close()
	}
}

func (r *Reconciler) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Subscription delivers the newest view after every change. A slow reader only ever
// sees the latest view, never a backlog.
type Subscription struct {
	box  *pushfeed.Mailbox[View]
	r    *Reconciler
	once sync.Once
}

func (s *Subscription) C() <-chan View { return s.box.C() }

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.r.unsubscribe(s)
		s.box.Close()
	})
}

// Subscribe returns a subscription primed with the current view.
func (r *Reconciler) Subscribe() *Subscription {
	s := &Subscription{box: pushfeed.NewMailbox[View](nil), r: r}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		s.box.Close()
		return s
	}
	r.subs = append(r.subs, s)
	s.box.Offer(r.viewLocked())
	return s
}

func (r *Reconciler) unsubscribe(s *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, x := range r.subs {
		if x == s {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

func (r *Reconciler) publishLocked() {
	if len(r.subs) == 0 {
		return
	}
	v := r.viewLocked()
	for _, s := range r.subs {
		s.box.Offer(v)
	}
}
