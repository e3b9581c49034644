package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// AccountChangeHandler is called with the account pubkey when an
// accountNotification arrives for a subscribed account.
type AccountChangeHandler func(account string)

// WSClient subscribes to Solana account-change notifications over the RPC
// WebSocket endpoint. It manages the connection lifecycle, tracks
// subscription IDs, and dispatches notifications to registered handlers.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.Mutex
	closed bool

	// accounts tracks subscribed pubkeys so they can be restored on reconnect.
	accounts []string
	// subToAccount maps the server-assigned subscription ID back to a pubkey.
	subToAccount map[uint64]string
	// reqToAccount maps a pending subscribe request ID to its pubkey.
	reqToAccount map[uint64]string
	nextID       uint64

	handlerMu sync.RWMutex
	handlers  []AccountChangeHandler

	done chan struct{}
	// connDone closes when the current connection's read loop exits.
	connDone chan struct{}
}

// NewWSClient creates a WebSocket client for the given RPC WS endpoint.
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL:        wsURL,
		subToAccount: make(map[uint64]string),
		reqToAccount: make(map[uint64]string),
		done:         make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and restores any previous
// account subscriptions.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("solana/ws: client closed")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("solana/ws: connect: %w", err)
	}
	if w.conn != nil {
		_ = w.conn.Close()
	}
	w.conn = conn
	w.subToAccount = make(map[uint64]string)
	w.reqToAccount = make(map[uint64]string)
	w.connDone = make(chan struct{})

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn, w.connDone)
	go w.pingLoop(conn)

	for _, acc := range w.accounts {
		if err := w.sendSubscribeLocked(acc); err != nil {
			return fmt.Errorf("solana/ws: restore subscription %s: %w", acc, err)
		}
	}
	return nil
}

// SubscribeAccount subscribes to change notifications for the given account.
// An already-subscribed account is a no-op: Connect restores the full set on
// reconnect, so repeated calls must not stack duplicate subscriptions.
func (w *WSClient) SubscribeAccount(ctx context.Context, account string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("solana/ws: not connected")
	}
	for _, acc := range w.accounts {
		if acc == account {
			return nil
		}
	}
	if err := w.sendSubscribeLocked(account); err != nil {
		return fmt.Errorf("solana/ws: subscribe %s: %w", account, err)
	}
	w.accounts = append(w.accounts, account)
	return nil
}

// sendSubscribeLocked sends an accountSubscribe request. Caller must hold w.mu.
func (w *WSClient) sendSubscribeLocked(account string) error {
	w.nextID++
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      w.nextID,
		"method":  "accountSubscribe",
		"params":  []any{account, map[string]any{"encoding": "base64", "commitment": "confirmed"}},
	}
	w.reqToAccount[w.nextID] = account

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// OnAccountChange registers a handler invoked for every account notification.
func (w *WSClient) OnAccountChange(handler AccountChangeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Close shuts down the connection and stops the read loop.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// wsMessage is the union of subscription confirmations and notifications.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params struct {
		Subscription uint64 `json:"subscription"`
	} `json:"params"`
}

// Disconnected returns a channel that closes when the current connection's
// read loop exits. Callers use it to drive reconnects.
func (w *WSClient) Disconnected() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connDone == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return w.connDone
}

// readLoop reads messages until the connection drops or the client closes.
func (w *WSClient) readLoop(conn *websocket.Conn, connDone chan struct{}) {
	defer close(connDone)
	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch {
		case msg.ID != 0 && len(msg.Result) > 0:
			// Subscription confirmation: result is the subscription ID.
			var subID uint64
			if err := json.Unmarshal(msg.Result, &subID); err != nil {
				continue
			}
			w.mu.Lock()
			if acc, ok := w.reqToAccount[msg.ID]; ok {
				w.subToAccount[subID] = acc
				delete(w.reqToAccount, msg.ID)
			}
			w.mu.Unlock()

		case msg.Method == "accountNotification":
			w.mu.Lock()
			acc := w.subToAccount[msg.Params.Subscription]
			w.mu.Unlock()
			if acc == "" {
				continue
			}
			w.handlerMu.RLock()
			handlers := w.handlers
			w.handlerMu.RUnlock()
			for _, h := range handlers {
				h(acc)
			}
		}
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
