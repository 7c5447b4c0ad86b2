package uiserver

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charging-platform/charge-point-simulator/internal/config"
	"github.com/charging-platform/charge-point-simulator/internal/logger"
)

// SubprotocolUI is the WebSocket subprotocol UI clients negotiate, per
// spec §6.
const SubprotocolUI = "ui0.0.1"

// Server is C13's control plane: one HTTP mux serving both the
// request/response REST endpoint and the persistent WebSocket RPC,
// structured after the teacher's websocket.Manager (ServeMux + http.Server +
// a dedicated upgrade handler) generalized to the UI's procedure set instead
// of OCPP frames.
type Server struct {
	cfg    config.UIServerConfig
	fleet  Fleet
	log    *logger.Logger
	upgrader websocket.Upgrader

	limiter           *ipLimiter
	maxStationsPerAdd int

	httpServer *http.Server
	wg         sync.WaitGroup
	cancel     context.CancelFunc
}

// New builds a control-plane server bound to fleet; it does not start
// listening until Start is called.
func New(cfg config.UIServerConfig, fleet Fleet, log *logger.Logger) *Server {
	s := &Server{
		cfg:               cfg,
		fleet:             fleet,
		log:               log,
		limiter:           newIPLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		maxStationsPerAdd: cfg.MaxStationsPerAdd,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return checkOrigin(cfg.AllowedOrigins, r)
		},
		Subprotocols: []string{SubprotocolUI},
	}
	return s
}

// Start launches the HTTP server in the background and returns immediately;
// call Stop to shut it down.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WebSocketPath, s.handleWebSocket)
	mux.HandleFunc("/procedure", s.handleHTTPProcedure)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: mux,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("uiserver: http server failed: %v", err)
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.evictLoop(ctx)
	}()

	s.log.Infof("uiserver: listening on %s", s.httpServer.Addr)
	return nil
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *Server) evictLoop(ctx context.Context) {
	ttl := 10 * time.Minute
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.evictStale(ttl)
		}
	}
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) bool {
	ip := getClientIP(r)
	if !s.limiter.Allow(ip) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return true
	}
	return false
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if !checkBasicAuth(s.cfg.BasicAuthUser, s.cfg.BasicAuthPassword, r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="uiserver"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// handleHTTPProcedure serves the request/response transport: a JSON body
// shaped [uuid, procedure, payload], a JSON response shaped
// [uuid, {status, ...}].
func (s *Server) handleHTTPProcedure(w http.ResponseWriter, r *http.Request) {
	if s.rateLimited(w, r) || !s.authorized(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	defer body.Close()

	uuid, procedure, payload, err := decodeEnvelope(body)
	if err != nil {
		s.writeHTTPResponse(w, r, "", failure(err.Error()), http.StatusBadRequest)
		return
	}

	fields := s.dispatch(r.Context(), procedure, payload)
	status := http.StatusOK
	if fields["status"] != "success" {
		status = http.StatusBadRequest
	}
	s.writeHTTPResponse(w, r, uuid, fields, status)
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, r *http.Request, uuid string, fields map[string]interface{}, statusCode int) {
	raw, err := json.Marshal([]interface{}{uuid, fields})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if s.cfg.GzipThresholdBytes > 0 && len(raw) >= s.cfg.GzipThresholdBytes &&
		clientAcceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		gz := gzip.NewWriter(w)
		_, _ = gz.Write(raw)
		_ = gz.Close()
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(raw)
}

func clientAcceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(part) == "gzip" {
			return true
		}
	}
	return false
}

func decodeEnvelope(r io.Reader) (uuid, procedure string, payload json.RawMessage, err error) {
	var envelope []json.RawMessage
	if err = json.NewDecoder(r).Decode(&envelope); err != nil {
		return "", "", nil, fmt.Errorf("uiserver: decode envelope: %w", err)
	}
	if len(envelope) < 2 {
		return "", "", nil, fmt.Errorf("uiserver: envelope needs at least [uuid, procedure]")
	}
	if err = json.Unmarshal(envelope[0], &uuid); err != nil {
		return "", "", nil, fmt.Errorf("uiserver: decode uuid: %w", err)
	}
	if err = json.Unmarshal(envelope[1], &procedure); err != nil {
		return "", "", nil, fmt.Errorf("uiserver: decode procedure: %w", err)
	}
	if len(envelope) >= 3 {
		payload = envelope[2]
	} else {
		payload = json.RawMessage("{}")
	}
	return uuid, procedure, payload, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
