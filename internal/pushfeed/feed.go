// Package pushfeed delivers out-of-band match snapshots to match views.
//
// Every transport (WebSocket, redis pub/sub, in-process) hands out the same
// Subscription: one per match id, bounded to the newest snapshot, cancellable.
package pushfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/park285/tictactoe-client/internal/match"
)

var ErrClosed = errors.New("push feed closed")

// Feed is implemented by every push transport.
type Feed interface {
	Subscribe(ctx context.Context, id match.ID) (*Subscription, error)
}

// Subscription receives snapshots of a single match. Pending snapshots are coalesced
// so that one with a higher move count is never replaced by an older one.
type Subscription struct {
	MatchID match.ID

	box     *Mailbox[match.Match]
	once    sync.Once
	onClose func()
}

func newSubscription(id match.ID, onClose func()) *Subscription {
	return &Subscription{
		MatchID: id,
		box: NewMailbox(func(pending, next match.Match) bool {
			return next.MoveCount >= pending.MoveCount
		}),
		onClose: onClose,
	}
}

func (s *Subscription) C() <-chan match.Match { return s.box.C() }

// Close cancels the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		s.box.Close()
	})
}

func (s *Subscription) deliver(m match.Match) bool {
	if m.ID != s.MatchID {
		return false
	}
	return s.box.Offer(m)
}

// registry routes snapshots to the subscriptions of their match id.
type registry struct {
	mu     sync.RWMutex
	subs   map[match.ID][]*Subscription
	closed bool
}

func newRegistry() *registry {
	return &registry{subs: make(map[match.ID][]*Subscription)}
}

// add registers a subscription; first reports whether it is the first one for id.
func (r *registry) add(id match.ID, onLast func()) (sub *Subscription, first bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, ErrClosed
	}
	sub = newSubscription(id, nil)
	sub.onClose = func() {
		if r.remove(sub) && onLast != nil {
			onLast()
		}
	}
	first = len(r.subs[id]) == 0
	r.subs[id] = append(r.subs[id], sub)
	return sub, first, nil
}

// remove reports whether sub was the last subscription for its id.
func (r *registry) remove(sub *Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.subs[sub.MatchID]
	for i, s := range list {
		if s == sub {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.subs, sub.MatchID)
		return !r.closed
	}
	r.subs[sub.MatchID] = list
	return false
}

// route delivers m to every subscriber of its id and returns how many accepted it.
func (r *registry) route(m match.Match) int {
	r.mu.RLock()
	list := append([]*Subscription(nil), r.subs[m.ID]...)
	r.mu.RUnlock()
	n := 0
	for _, s := range list {
		if s.deliver(m) {
			n++
		}
	}
	return n
}

func (r *registry) ids() []match.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]match.ID, 0, len(r.subs))
	for id := range r.subs {
		out = append(out, id)
	}
	return out
}

// closeAll closes every subscription and refuses new ones.
func (r *registry) closeAll() {
	r.mu.Lock()
	r.closed = true
	var all []*Subscription
	for _, list := range r.subs {
		all = append(all, list...)
	}
	r.subs = make(map[match.ID][]*Subscription)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

// Envelope is the push message frame shared by the WebSocket and redis transports.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	TypeGameUpdate      = "game_update"
	TypeGamesListUpdate = "games_list_update"
	TypePlayerJoined    = "player_joined"
	TypePlayerLeft      = "player_left"
	TypeJoinGame        = "join_game"
	TypeLeaveGame       = "leave_game"
)

type gameUpdateData struct {
	GameID match.FlexID     `json:"game_id"`
	Game   *json.RawMessage `json:"game,omitempty"`
}

type gameRef struct {
	GameID match.FlexID `json:"game_id"`
}

// DecodeGameUpdate extracts the match carried by a game_update envelope.
func DecodeGameUpdate(data json.RawMessage) (match.Match, error) {
	var u gameUpdateData
	if err := json.Unmarshal(data, &u); err != nil {
		return match.Match{}, fmt.Errorf("%w: %v", match.ErrMalformed, err)
	}
	if u.Game == nil {
		return match.Match{}, fmt.Errorf("%w: game_update without game", match.ErrMalformed)
	}
	m, err := match.Decode(*u.Game)
	if err != nil {
		return match.Match{}, err
	}
	if u.GameID != "" && match.ID(u.GameID) != m.ID {
		return match.Match{}, fmt.Errorf("%w: envelope game %s carries match %s", match.ErrMalformed, u.GameID, m.ID)
	}
	return m, nil
}

// EncodeGameUpdate builds the envelope a server publishes for m.
func EncodeGameUpdate(m match.Match) ([]byte, error) {
	game, err := json.Marshal(match.FromMatch(m))
	if err != nil {
		return nil, err
	}
	raw := json.RawMessage(game)
	data, err := json.Marshal(gameUpdateData{GameID: match.FlexID(m.ID), Game: &raw})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: TypeGameUpdate, Data: data})
}

func gameRefEnvelope(typ string, id match.ID) Envelope {
	data, _ := json.Marshal(gameRef{GameID: match.FlexID(id)})
	return Envelope{Type: typ, Data: data}
}
