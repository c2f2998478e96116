package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/search"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// FetcherFor builds the suggestion fetcher for one connection, typically
// bound to the caller's credentials.
type FetcherFor func(c echo.Context) search.Fetcher

// SearchPayload is the data of a search.results event.
type SearchPayload struct {
	Seq         uint64              `json:"seq"`
	Query       string              `json:"query"`
	Suggestions []search.Suggestion `json:"suggestions"`
	Error       string              `json:"error,omitempty"`
}

type Handler struct {
	hub        *Hub
	fetcherFor FetcherFor
	delay      time.Duration
	metrics    *telemetry.Metrics
	logger     zerolog.Logger
	upgrader   gorillawebsocket.Upgrader
}

type HandlerOption func(*Handler)

// WithSearch enables debounced search on every connection.
func WithSearch(f FetcherFor, delay time.Duration) HandlerOption {
	return func(h *Handler) {
		h.fetcherFor = f
		h.delay = delay
	}
}

// WithAllowedOrigins restricts upgrades to the listed origins. An empty list
// or "*" allows any origin.
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[strings.TrimRight(o, "/")] = true
		}
		if len(allowed) == 0 || allowed["*"] {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
}

func WithMetrics(m *telemetry.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(hub *Hub, logger zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:    hub,
		logger: logger,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleConnect upgrades the request, registers the client and starts its
// pumps. Frames are either ClientMessage JSON or bare text, which is taken
// as the latest search input.
func (h *Handler) HandleConnect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		return nil
	}

	client := NewClient(uuid.NewString())
	h.hub.Register(client)
	log := h.logger.With().Str("client", client.ID).Logger()
	log.Debug().Msg("websocket connected")

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.Background())

	var (
		deb     *search.Debouncer
		fwdDone = make(chan struct{})
	)
	if h.fetcherFor != nil {
		deb = search.New(ctx, h.fetcherFor(c),
			search.WithDelay(h.delay), search.WithLogger(log), search.WithMetrics(h.metrics))
		go h.forward(client, deb.Results(), fwdDone)
	} else {
		close(fwdDone)
	}

	go h.writePump(client, ws)
	go func() {
		defer func() {
			if deb != nil {
				deb.Close()
			}
			<-fwdDone
			cancel()
			h.hub.Unregister(client)
			_ = ws.Close()
			log.Debug().Msg("websocket disconnected")
		}()
		h.readPump(client, ws, deb)
	}()
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn, deb *search.Debouncer) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(frame, &msg); err != nil || msg.Action == "" {
			msg = ClientMessage{Action: "search", Query: string(frame)}
		}
		if h.hub.ProcessMessage(client, msg) {
			continue
		}
		if msg.Action == "search" && deb != nil {
			deb.Input(msg.Query)
		}
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// forward turns debouncer results into search.results events until the
// debouncer closes its channel.
func (h *Handler) forward(client *Client, results <-chan search.Result, done chan<- struct{}) {
	defer close(done)
	for r := range results {
		payload := SearchPayload{Seq: r.Seq, Query: r.Query, Suggestions: r.Suggestions}
		if payload.Suggestions == nil {
			payload.Suggestions = []search.Suggestion{}
		}
		if r.Err != nil {
			payload.Error = searchErrorMessage(r.Err)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error().Err(err).Msg("marshal search payload")
			continue
		}
		h.hub.SendTo(client, Event{Type: EventSearchResults, Timestamp: time.Now().UTC(), Data: data})
	}
}

func searchErrorMessage(err error) string {
	var se *clinicapi.ServerError
	switch {
	case errors.As(err, &se):
		return se.Message
	case errors.Is(err, clinicapi.ErrTransport):
		return clinicapi.TransportNotice
	}
	return "search failed"
}
