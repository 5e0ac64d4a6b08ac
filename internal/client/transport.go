package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
	"github.com/suissa/purecore-ninjalive/pkg/circuitbreaker"
	"github.com/suissa/purecore-ninjalive/pkg/retry"
	"github.com/suissa/purecore-ninjalive/pkg/validation"
)

// Transport carries signal messages to and from the relay. Receive's
// channel closes when the connection is gone; Send fails fast once the
// breaker has seen the socket die.
type Transport interface {
	Send(msg *domain.SignalMessage) error
	Receive() <-chan *domain.SignalMessage
	Close() error
}

type wsTransport struct {
	conn    *websocket.Conn
	breaker *circuitbreaker.CircuitBreaker

	writeMu   sync.Mutex
	recv      chan *domain.SignalMessage
	closeOnce sync.Once
	done      chan struct{}

	logger *zap.SugaredLogger
}

// Dial connects to the signaling server, retrying transient failures with
// backoff.
func Dial(ctx context.Context, serverURL string, retryCfg retry.Config, logger *zap.SugaredLogger) (Transport, error) {
	if err := validation.ValidateServerURL(serverURL); err != nil {
		return nil, err
	}

	var conn *websocket.Conn
	err := retry.Do(ctx, retryCfg, func() error {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		c, _, err := websocket.DefaultDialer.DialContext(dialCtx, serverURL, nil)
		if err != nil {
			logger.Warnw("dial failed, will retry", "url", serverURL, "error", err)
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signaling server: %w", err)
	}

	t := &wsTransport{
		conn:    conn,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		recv:    make(chan *domain.SignalMessage, 32),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go t.readPump()
	return t, nil
}

func (t *wsTransport) readPump() {
	defer close(t.recv)

	for {
		var msg domain.SignalMessage
		if err := t.conn.ReadJSON(&msg); err != nil {
			select {
			case <-t.done:
			default:
				t.logger.Infow("signaling connection lost", "error", err)
			}
			return
		}

		select {
		case t.recv <- &msg:
		case <-t.done:
			return
		}
	}
}

func (t *wsTransport) Send(msg *domain.SignalMessage) error {
	return t.breaker.Execute(func() error {
		t.writeMu.Lock()
		defer t.writeMu.Unlock()

		t.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return t.conn.WriteJSON(msg)
	})
}

func (t *wsTransport) Receive() <-chan *domain.SignalMessage {
	return t.recv
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.writeMu.Lock()
		t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}
