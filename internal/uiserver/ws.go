package uiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleWebSocket upgrades a connection and serves the persistent Procedure
// RPC for its lifetime: every inbound [uuid, procedure, payload] frame gets
// dispatched and answered with [uuid, {status, ...}], independent of every
// other in-flight request on the same connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r) || !s.authorized(w, r) {
		return
	}
	if !checkOrigin(s.cfg.AllowedOrigins, r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	if !validateSubprotocol(s.cfg.RequireSubprotocol, SubprotocolUI, r) {
		http.Error(w, "missing or unsupported subprotocol", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("uiserver: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	stop := make(chan struct{})
	go s.wsPingLoop(conn, &writeMu, stop)
	defer close(stop)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		uuid, procedure, payload, err := decodeEnvelope(bytes.NewReader(raw))
		if err != nil {
			s.writeWSFrame(conn, &writeMu, "", failure(err.Error()))
			continue
		}

		fields := s.dispatch(r.Context(), procedure, payload)
		s.writeWSFrame(conn, &writeMu, uuid, fields)
	}
}

func (s *Server) wsPingLoop(conn *websocket.Conn, mu *sync.Mutex, stop <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// writeWSFrame serializes [uuid, fields] and writes it, serialized against
// wsPingLoop's writes on the same connection since gorilla/websocket
// forbids concurrent writers on one *Conn.
func (s *Server) writeWSFrame(conn *websocket.Conn, mu *sync.Mutex, uuid string, fields map[string]interface{}) {
	raw, err := json.Marshal([]interface{}{uuid, fields})
	if err != nil {
		s.log.Errorf("uiserver: marshal ws response: %v", err)
		return
	}
	mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err = conn.WriteMessage(websocket.TextMessage, raw)
	mu.Unlock()
	if err != nil {
		s.log.Errorf("uiserver: write ws response: %v", err)
	}
}
