// Package session implements C2: the station-side duplex WebSocket
// transport. It is the dial-out mirror of the teacher's websocket.Manager —
// where the gateway upgraded inbound connections from charge points, a
// Session dials out to a CSMS and reconnects with backoff when the link
// drops.
package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/gorilla/websocket"
)

// ErrNotOpen and ErrBackpressure are the two session-local error kinds
// that map onto the station's Transport error kind (spec §7).
var (
	ErrNotOpen      = errors.New("session: not open")
	ErrBackpressure = errors.New("session: outbound buffer full")
)

// State mirrors the session's own connectivity, independent of the
// station-level lifecycle FSM that drives it.
type State string

const (
	StateClosed       State = "Closed"
	StateConnecting   State = "Connecting"
	StateOpen         State = "Open"
	StateReconnecting State = "Reconnecting"
)

// Config configures one Session's dial/backoff/keepalive behavior.
type Config struct {
	URL               string
	Subprotocols      []string
	HandshakeTimeout  time.Duration
	PingInterval      time.Duration
	PongTimeout       time.Duration
	MaxMessageSize    int64
	EnableCompression bool
	BackoffInitial    time.Duration
	BackoffMax        time.Duration

	TLSEnabled        bool
	TLSInsecureSkipCA bool
	CACertFile        string
}

// DefaultConfig mirrors the teacher's websocket.DefaultConfig shape,
// adapted to the dial-out direction.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout:  10 * time.Second,
		PingInterval:      30 * time.Second,
		PongTimeout:       10 * time.Second,
		MaxMessageSize:    1024 * 1024,
		EnableCompression: false,
		BackoffInitial:    1 * time.Second,
		BackoffMax:        30 * time.Second,
	}
}

// InboundHandler is invoked once per received text frame. The session
// itself only frames and transports bytes; message decoding belongs to the
// station's correlator/dispatcher.
type InboundHandler func(message []byte)

// DisconnectHandler is invoked whenever the session drops its connection,
// before a reconnect attempt begins.
type DisconnectHandler func(err error)

// Session owns exactly one logical connection to a CSMS endpoint, with
// automatic reconnection. Safe for concurrent Send calls; inbound handling
// is single-threaded per connection.
type Session struct {
	cfg    *Config
	logger *logger.Logger

	mu    sync.RWMutex
	conn  *websocket.Conn
	state State

	sendChan chan []byte
	closeCh  chan struct{}
	wg       sync.WaitGroup

	onMessage    InboundHandler
	onDisconnect DisconnectHandler

	dialer *websocket.Dialer
}

// New builds a Session that is not yet connected; call Run to start the
// dial/reconnect loop.
func New(cfg *Config, log *logger.Logger, onMessage InboundHandler, onDisconnect DisconnectHandler) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout:  cfg.HandshakeTimeout,
		Subprotocols:      cfg.Subprotocols,
		EnableCompression: cfg.EnableCompression,
	}

	if cfg.TLSEnabled {
		tlsConfig := &tls.Config{InsecureSkipVerify: cfg.TLSInsecureSkipCA}
		if cfg.CACertFile != "" {
			pool := x509.NewCertPool()
			raw, err := os.ReadFile(cfg.CACertFile)
			if err != nil {
				return nil, fmt.Errorf("session: read CA cert: %w", err)
			}
			if !pool.AppendCertsFromPEM(raw) {
				return nil, fmt.Errorf("session: no valid certificates found in %s", cfg.CACertFile)
			}
			tlsConfig.RootCAs = pool
		}
		dialer.TLSClientConfig = tlsConfig
	}

	return &Session{
		cfg:          cfg,
		logger:       log,
		state:        StateClosed,
		sendChan:     make(chan []byte, 256),
		closeCh:      make(chan struct{}),
		onMessage:    onMessage,
		onDisconnect: onDisconnect,
		dialer:       dialer,
	}, nil
}

// Run dials, and after a failed dial or a disconnect waits one jittered
// backoff interval (see waitBackoff) and dials again, until ctx is
// cancelled or Close is called.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closeCh:
			return nil
		default:
		}

		s.setState(StateConnecting)
		conn, err := s.dial(ctx)
		if err != nil {
			s.logger.Warnf("session dial failed: %v", err)
			if !s.waitBackoff(ctx) {
				return nil
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.state = StateOpen
		s.mu.Unlock()

		s.logger.Infof("session connected to %s", s.cfg.URL)
		disconnectErr := s.runConnection(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()

		if s.onDisconnect != nil {
			s.onDisconnect(disconnectErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closeCh:
			return nil
		default:
		}

		s.setState(StateReconnecting)
		if !s.waitBackoff(ctx) {
			return nil
		}
	}
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, http.Header{})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	return conn, nil
}

// waitBackoff blocks for one jittered backoff interval. It builds a fresh
// ExponentialBackOff on every call, so each wait is drawn around
// BackoffInitial: the delay does not grow across consecutive failures and
// BackoffMax is never reached. Returns false if ctx/closeCh fired while
// waiting.
func (s *Session) waitBackoff(ctx context.Context) bool {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.BackoffInitial
	eb.MaxInterval = s.cfg.BackoffMax
	eb.MaxElapsedTime = 0
	d := eb.NextBackOff()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-s.closeCh:
		return false
	case <-timer.C:
		return true
	}
}

// runConnection starts the send/ping/receive goroutines and blocks until
// the connection fails or is closed, returning the terminal error.
func (s *Session) runConnection(ctx context.Context, conn *websocket.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- s.sendLoop(connCtx, conn)
	}()
	go func() {
		defer wg.Done()
		errCh <- s.receiveLoop(connCtx, conn)
	}()

	err := <-errCh
	cancel()
	conn.Close()
	wg.Wait()
	return err
}

func (s *Session) sendLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.sendChan:
			if !ok {
				return fmt.Errorf("session: send channel closed")
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("session: write failed: %w", err)
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("session: ping failed: %w", err)
			}
		}
	}
}

func (s *Session) receiveLoop(ctx context.Context, conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(s.cfg.PingInterval + s.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PingInterval + s.cfg.PongTimeout))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("session: read failed: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if s.onMessage != nil {
			s.onMessage(data)
		}
	}
}

// Send enqueues an outbound frame; returns ErrNotOpen if the session is
// not currently connected, ErrBackpressure if the outbound buffer is full.
func (s *Session) Send(message []byte) error {
	s.mu.RLock()
	open := s.state == StateOpen
	s.mu.RUnlock()

	if !open {
		return ErrNotOpen
	}

	select {
	case s.sendChan <- message:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close stops the session permanently; Run returns after the current
// connection (if any) tears down.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	select {
	case <-s.closeCh:
	default:
		close(s.closeCh)
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.state = StateClosed
}

// State reports the session's current connectivity.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
