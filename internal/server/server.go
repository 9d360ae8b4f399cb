package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/screenlog/internal/orchestrator"
	"github.com/GriffinCanCode/screenlog/internal/orchestrator/history"
	"github.com/GriffinCanCode/screenlog/internal/orchestrator/output"
	"github.com/GriffinCanCode/screenlog/internal/resilience"
	"github.com/GriffinCanCode/screenlog/internal/trace"
	"github.com/GriffinCanCode/screenlog/internal/ui"
)

// Message is the envelope of every WebSocket message.
type Message struct {
	Type string `json:"type"`
}

// UIMessage mirrors the status icon and pause menu label.
type UIMessage struct {
	Type  string  `json:"type"`
	Icon  ui.Icon `json:"icon"`
	Label string  `json:"label"`
}

// TextMessage announces an extraction that wrote new lines.
type TextMessage struct {
	Type    string `json:"type"`
	Display int    `json:"display"`
	App     string `json:"app,omitempty"`
	Text    string `json:"text"`
}

type AckMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Paused           bool                `json:"paused"`
	RemainingSeconds float64             `json:"remaining_seconds"`
	Icon             ui.Icon             `json:"icon"`
	Label            string              `json:"label"`
	Recorder         orchestrator.Status `json:"recorder"`
	Slots            []output.SlotStatus `json:"slots"`
	OCRBreaker       string              `json:"ocr_breaker,omitempty"`
	Process          Usage               `json:"process"`
}

// Recorder reports scheduler activity.
type Recorder interface {
	Status() orchestrator.Status
}

// Slots reports video writer state.
type Slots interface {
	Snapshot() []output.SlotStatus
}

// Pauser controls the pause window.
type Pauser interface {
	Pause(ctx context.Context) time.Time
	Resume(ctx context.Context)
	Toggle(ctx context.Context)
	State() (bool, time.Duration)
}

// Breaker reports the OCR circuit breaker state.
type Breaker interface {
	State() resilience.State
}

// History serves recent extractions.
type History interface {
	Recent(window time.Duration) []history.Entry
	Events() <-chan history.Entry
}

// Deps are the parts of the recorder the server drives. OCR and History may be nil.
type Deps struct {
	Recorder Recorder
	Slots    Slots
	Pause    Pauser
	OCR      Breaker
	History  History
	Quit     func()
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections. It is also a ui.Sink:
// icon and label changes are pushed to every connected client.
type Server struct {
	deps     Deps
	state    *ui.State
	quitOnce sync.Once
	usage    func() Usage

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

// client owns the write side of one connection. Every outbound message goes
// through send and is written by a single goroutine, so clients see messages
// in the order they were queued.
type client struct {
	conn *websocket.Conn
	rl   *rateLimiter
	send chan any
	done chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		rl:   &rateLimiter{},
		send: make(chan any, SendBuffer),
		done: make(chan struct{}),
	}
}

func (c *client) writeLoop() {
	defer close(c.done)
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
		err := wsjson.Write(ctx, c.conn, msg)
		cancel()
		if err != nil {
			// Keep draining so senders never block on a dead connection.
			for range c.send {
			}
			return
		}
	}
}

// offer queues msg without blocking and reports whether it was accepted.
func (c *client) offer(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// reply queues a response to the client's own request, waiting for room.
func (c *client) reply(ctx context.Context, msg any) {
	select {
	case c.send <- msg:
	case <-ctx.Done():
	}
}

// New creates a new server.
func New(deps Deps) *Server {
	s := &Server{
		deps:  deps,
		state: ui.NewState(),
		usage: ResourceUsage,
		clients: make(map[*websocket.Conn]*client),
	}
	if deps.History != nil {
		go s.broadcastText()
	}
	return s
}

// SetIcon implements ui.Sink.
func (s *Server) SetIcon(icon ui.Icon) {
	s.state.SetIcon(icon)
	s.broadcast()
}

// SetMenuLabel implements ui.Sink.
func (s *Server) SetMenuLabel(label string) {
	s.state.SetMenuLabel(label)
	s.broadcast()
}

func (s *Server) uiMessage() UIMessage {
	icon, label := s.state.Snapshot()
	return UIMessage{Type: TypeUI, Icon: icon, Label: label}
}

func (s *Server) broadcast() {
	s.sendAll(s.uiMessage())
}

func (s *Server) broadcastText() {
	for e := range s.deps.History.Events() {
		s.sendAll(TextMessage{Type: TypeText, Display: e.Display, App: e.App, Text: e.Text})
	}
}

func (s *Server) sendAll(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if !c.offer(msg) {
			slog.Debug("websocket send queue full, dropping message")
		}
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/recent", s.handleRecent)
	mux.HandleFunc("POST /api/pause", s.handlePause)
	mux.HandleFunc("POST /api/resume", s.handleResume)
	mux.HandleFunc("POST /api/quit", s.handleQuit)

	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Status assembles the status report.
func (s *Server) Status() StatusResponse {
	paused, remaining := s.deps.Pause.State()
	icon, label := s.state.Snapshot()

	resp := StatusResponse{
		Paused:           paused,
		RemainingSeconds: remaining.Seconds(),
		Icon:             icon,
		Label:            label,
		Recorder:         s.deps.Recorder.Status(),
		Slots:            s.deps.Slots.Snapshot(),
		Process:          s.usage(),
	}
	if s.deps.OCR != nil {
		resp.OCRBreaker = s.deps.OCR.State().String()
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Status())
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	window := RecentWindow
	if v := r.URL.Query().Get("seconds"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			http.Error(w, "seconds must be a positive integer", http.StatusBadRequest)
			return
		}
		window = time.Duration(secs) * time.Second
	}

	entries := []history.Entry{}
	if s.deps.History != nil {
		entries = append(entries, s.deps.History.Recent(window)...)
	}
	writeJSON(w, entries)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	end := s.deps.Pause.Pause(r.Context())
	writeJSON(w, map[string]string{"status": "paused", "until": end.Format(time.RFC3339)})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.deps.Pause.Resume(r.Context())
	writeJSON(w, map[string]string{"status": "recording"})
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "quitting"})
	s.quit(r.Context())
}

func (s *Server) quit(ctx context.Context) {
	s.quitOnce.Do(func() {
		trace.Logger(ctx).Info("quit requested")
		if s.deps.Quit != nil {
			s.deps.Quit()
		}
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	c := newClient(conn)
	c.offer(s.uiMessage())
	s.mu.Lock()
	s.clients[conn] = c
	s.mu.Unlock()
	go c.writeLoop()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		close(c.send)
		<-c.done
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !c.rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			c.reply(ctx, ErrorMessage{Type: TypeRateLimited, Message: "rate limit exceeded"})
			continue
		}

		switch msg.Type {
		case TypePause:
			s.deps.Pause.Pause(ctx)
		case TypeResume:
			s.deps.Pause.Resume(ctx)
		case TypeToggle:
			s.deps.Pause.Toggle(ctx)
		case TypeQuit:
			c.reply(ctx, AckMessage{Type: TypeAck, Action: msg.Type})
			s.quit(ctx)
			return
		default:
			c.reply(ctx, ErrorMessage{Type: TypeError, Message: "unknown message type " + msg.Type})
			continue
		}
		c.reply(ctx, AckMessage{Type: TypeAck, Action: msg.Type})
	}
}
