package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"MinimartApp/app/config"
	"MinimartApp/app/models"
)

// EventHandler consumes change notifications pulled off the feed, in
// delivery order.
type EventHandler interface {
	HandleChange(event models.ChangeEvent)
}

const (
	reconnectDelay   = 5 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Listener maintains a websocket subscription to the remote ledger's
// change feed. Connection failures reconnect after a fixed delay; events
// are handed to the handler one at a time, in the order received.
type Listener struct {
	url      string
	handler  EventHandler
	log      *logrus.Logger
	stopChan chan struct{}

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewListener creates a listener for the given feed URL. An empty URL
// disables the feed; Start becomes a no-op.
func NewListener(url string, handler EventHandler) *Listener {
	return &Listener{
		url:      url,
		handler:  handler,
		log:      config.GetLogger(),
		stopChan: make(chan struct{}),
	}
}

// Start launches the subscribe/read loop in its own goroutine.
func (l *Listener) Start() {
	if l.url == "" {
		l.log.Info("no change feed configured, listener disabled")
		return
	}
	go l.run()
}

// Stop terminates the loop and closes any open connection.
func (l *Listener) Stop() {
	close(l.stopChan)
	l.mu.Lock()
	if l.conn != nil {
		l.conn.Close()
	}
	l.mu.Unlock()
}

func (l *Listener) run() {
	l.log.WithField("url", l.url).Info("change feed listener started")
	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		if err := l.listenOnce(); err != nil {
			l.log.WithError(err).Warn("change feed disconnected")
		}

		select {
		case <-l.stopChan:
			l.log.Info("change feed listener stopped")
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) listenOnce() error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.Dial(l.url, nil)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	defer func() {
		conn.Close()
		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
	}()

	l.log.Info("change feed connected")
	for {
		var event models.ChangeEvent
		if err := conn.ReadJSON(&event); err != nil {
			return err
		}
		l.handler.HandleChange(event)
	}
}
