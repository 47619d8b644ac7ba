// =============================
// File: internal/stream/websocket.go
// =============================
package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WSTransport opens websocket sessions speaking the transactionSubscribe
// JSON-RPC dialect.
type WSTransport struct {
	endpoint string
	token    string
	dialer   *websocket.Dialer
}

// NewWSTransport creates a transport for the endpoint. A non-empty token
// is sent as the X-Token header on every dial.
func NewWSTransport(endpoint, token string) *WSTransport {
	return &WSTransport{
		endpoint: endpoint,
		token:    token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Open dials the endpoint.
func (t *WSTransport) Open(ctx context.Context) (Session, error) {
	header := http.Header{}
	if t.token != "" {
		header.Set("X-Token", t.token)
	}
	conn, _, err := t.dialer.DialContext(ctx, t.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", t.endpoint, err)
	}
	return &wsSession{conn: conn}, nil
}

type wsSession struct {
	conn *websocket.Conn
}

func (s *wsSession) Subscribe(ctx context.Context, request interface{}) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	return s.conn.WriteJSON(request)
}

func (s *wsSession) Recv() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *wsSession) Close() error {
	return s.conn.Close()
}

// TransactionSubscribeRequest builds the subscribe envelope for
// transactions mentioning the given account.
func TransactionSubscribeRequest(account string) map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "transactionSubscribe",
		"params": []interface{}{
			map[string]interface{}{
				"accountInclude": []string{account},
			},
			map[string]interface{}{
				"commitment":                     "confirmed",
				"encoding":                       "jsonParsed",
				"transactionDetails":             "full",
				"showRewards":                    false,
				"maxSupportedTransactionVersion": 0,
			},
		},
	}
}
