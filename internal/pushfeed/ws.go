package pushfeed

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/tictactoe-client/internal/match"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

type StateCallback func(State)

// LobbyCallback is invoked for lobby-level pushes (games list changes, players joining or leaving).
type LobbyCallback func(env Envelope)

// HeaderProvider allows injecting headers at handshake
type HeaderProvider func() map[string]string

var errNotConnected = errors.New("websocket not connected")

type callbackEntry[T any] struct {
	id       int
	callback T
}

// WSFeed receives game updates over the server's per-user WebSocket and routes them to
// subscriptions. Joining and leaving match rooms follows the subscriptions.
type WSFeed struct {
	wsURL  string
	logger *zap.Logger
	reg    *registry

	conn  *websocket.Conn
	connM sync.Mutex

	state  State
	stateM sync.RWMutex

	stateCbs []callbackEntry[StateCallback]
	lobbyCbs []callbackEntry[LobbyCallback]
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	reconnecting         atomic.Bool

	pingInterval time.Duration
	writeTimeout time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
}

type WSOption func(*WSFeed)

// WithReconnect sets the reconnect budget and the base delay of its exponential backoff.
func WithReconnect(maxAttempts int, delay time.Duration) WSOption {
	return func(ws *WSFeed) {
		ws.maxReconnectAttempts = maxAttempts
		if delay > 0 {
			ws.reconnectDelay = delay
		}
	}
}

func WithPingInterval(d time.Duration) WSOption {
	return func(ws *WSFeed) {
		if d > 0 {
			ws.pingInterval = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) WSOption {
	return func(ws *WSFeed) { ws.headerProvider = h }
}

func WithLogger(l *zap.Logger) WSOption {
	return func(ws *WSFeed) {
		if l != nil {
			ws.logger = l
		}
	}
}

// NewWSFeed creates a feed for the socket at <baseURL>/ws/<userID>.
func NewWSFeed(baseURL string, userID match.UserID, opts ...WSOption) *WSFeed {
	uid := strings.TrimSpace(string(userID))
	if uid == "" {
		uid = "anonymous"
	}
	ws := &WSFeed{
		wsURL:                strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/ws/" + url.PathEscape(uid),
		logger:               zap.NewNop(),
		reg:                  newRegistry(),
		state:                StateDisconnected,
		maxReconnectAttempts: 5,
		reconnectDelay:       500 * time.Millisecond,
		pingInterval:         30 * time.Second,
		writeTimeout:         5 * time.Second,
		stopCh:               make(chan struct{}),
	}
	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(ws)
	}
	return ws
}

func (ws *WSFeed) URL() string { return ws.wsURL }

func (ws *WSFeed) State() State {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

// Connect dials the socket. A failed dial schedules background reconnects and is returned.
func (ws *WSFeed) Connect(ctx context.Context) error {
	if ws.isStopping() {
		return ErrClosed
	}
	switch ws.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	ws.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := ws.dial(dialCtx)
	if err != nil {
		ws.setState(StateFailed)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WSFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	return conn, err
}

// attach installs conn, starts its reader and pinger and rejoins every subscribed match.
func (ws *WSFeed) attach(conn *websocket.Conn) {
	ws.connM.Lock()
	ws.conn = conn
	ws.connM.Unlock()
	ws.setState(StateConnected)

	connCtx, connCancel := context.WithCancel(ws.rootCtx)
	ws.wg.Add(2)
	go ws.listen(connCtx, connCancel, conn)
	go ws.pingLoop(connCtx, conn)

	for _, id := range ws.reg.ids() {
		ws.sendRef(TypeJoinGame, id)
	}
}

func (ws *WSFeed) listen(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer ws.wg.Done()
	defer cancel()
	for {
		var env Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if ws.isStopping() {
				return
			}
			ws.logger.Debug("ws_read_failed", zap.Error(err))
			if ws.detach(conn, websocket.StatusGoingAway, "reconnect") {
				ws.setState(StateDisconnected)
				ws.scheduleReconnect()
			}
			return
		}
		ws.dispatch(env)
	}
}

func (ws *WSFeed) dispatch(env Envelope) {
	switch env.Type {
	case TypeGameUpdate:
		m, err := DecodeGameUpdate(env.Data)
		if err != nil {
			ws.logger.Warn("ws_game_update_malformed", zap.Error(err))
			return
		}
		ws.reg.route(m)
	case TypeGamesListUpdate, TypePlayerJoined, TypePlayerLeft:
		ws.cbM.RLock()
		callbacks := make([]callbackEntry[LobbyCallback], len(ws.lobbyCbs))
		copy(callbacks, ws.lobbyCbs)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(env)
			}
		}
	default:
		ws.logger.Debug("ws_message_ignored", zap.String("type", env.Type))
	}
}

func (ws *WSFeed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	consecutivePingFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				consecutivePingFailures = 0
				continue
			}
			consecutivePingFailures++
			if consecutivePingFailures >= 2 {
				if ws.isStopping() {
					return
				}
				// closing the conn ends listen, which schedules the reconnect
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (ws *WSFeed) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		return
	}
	if !ws.reconnecting.CompareAndSwap(false, true) {
		return
	}
	ws.setState(StateReconnecting)

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		defer ws.reconnecting.Store(false)
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(ws.backoff(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(ws.rootCtx, 10*time.Second)
			conn, err := ws.dial(dialCtx)
			cancel()
			if err != nil {
				ws.logger.Debug("ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			if ws.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			ws.logger.Info("ws_reconnected", zap.Int("attempt", attempt))
			ws.attach(conn)
			return
		}
		ws.setState(StateFailed)
		ws.logger.Warn("ws_reconnect_exhausted", zap.Int("attempts", ws.maxReconnectAttempts))
	}()
}

func (ws *WSFeed) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * ws.reconnectDelay
}

// Subscribe joins the match room (once per id) and returns its subscription.
func (ws *WSFeed) Subscribe(_ context.Context, id match.ID) (*Subscription, error) {
	sub, first, err := ws.reg.add(id, func() { ws.sendRef(TypeLeaveGame, id) })
	if err != nil {
		return nil, err
	}
	if first {
		ws.sendRef(TypeJoinGame, id)
	}
	return sub, nil
}

func (ws *WSFeed) sendRef(typ string, id match.ID) {
	err := ws.Send(ws.rootCtx, gameRefEnvelope(typ, id))
	if err != nil && !errors.Is(err, errNotConnected) && !ws.isStopping() {
		ws.logger.Warn("ws_send_failed", zap.String("type", typ), zap.String("match_id", string(id)), zap.Error(err))
	}
}

// Send writes one envelope to the socket.
func (ws *WSFeed) Send(ctx context.Context, env Envelope) error {
	ws.connM.Lock()
	defer ws.connM.Unlock()
	if ws.conn == nil {
		return errNotConnected
	}
	wctx, cancel := context.WithTimeout(ctx, ws.writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, ws.conn, env)
}

func (ws *WSFeed) OnLobbyChange(cb LobbyCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.lobbyCbs = append(ws.lobbyCbs, callbackEntry[LobbyCallback]{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WSFeed) RemoveLobbyCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.lobbyCbs {
		if cb.id == id {
			ws.lobbyCbs = append(ws.lobbyCbs[:i], ws.lobbyCbs[i+1:]...)
			break
		}
	}
}

func (ws *WSFeed) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, callbackEntry[StateCallback]{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WSFeed) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *WSFeed) setState(state State) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]callbackEntry[StateCallback], len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
}

// Close leaves every room, closes all subscriptions and the socket, and waits for the
// background goroutines or ctx.
func (ws *WSFeed) Close(ctx context.Context) error {
	if ws.isStopping() {
		return nil
	}
	for _, id := range ws.reg.ids() {
		ws.sendRef(TypeLeaveGame, id)
	}
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	ws.reg.closeAll()
	ws.connM.Lock()
	conn := ws.conn
	ws.connM.Unlock()
	if conn != nil {
		ws.detach(conn, websocket.StatusNormalClosure, "close")
	}
	ws.rootCancel()
	ws.setState(StateDisconnected)

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// detach closes conn if it is still the current one and reports whether it was.
func (ws *WSFeed) detach(conn *websocket.Conn, code websocket.StatusCode, reason string) bool {
	ws.connM.Lock()
	current := ws.conn == conn
	if current {
		ws.conn = nil
	}
	ws.connM.Unlock()
	_ = conn.Close(code, reason)
	return current
}

func (ws *WSFeed) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WSFeed) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
