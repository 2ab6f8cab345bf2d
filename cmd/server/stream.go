package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brunobiangulo/gonarrate"
	"github.com/brunobiangulo/gonarrate/analysis"
	"github.com/brunobiangulo/gonarrate/pipeline"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamMaxMessage = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origins are policed by corsMiddleware and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamRequest is one client frame. Done asks the server to finish the
// queued texts and close the connection.
type streamRequest struct {
	Text string `json:"text"`
	Done bool   `json:"done,omitempty"`
}

// streamResponse is one server frame, sent in request order.
type streamResponse struct {
	Seq        uint64           `json:"seq"`
	ID         string           `json:"id,omitempty"`
	Result     *analysis.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMS int64            `json:"duration_ms"`
}

// streamConn serialises writes; gorilla allows one concurrent writer.
type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *streamConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *streamConn) writeControl(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(messageType, data, time.Now().Add(streamWriteWait))
}

// GET /stream
// Clients send {"text": ...} frames and receive one response per frame in
// the order sent. {"done": true} drains the queue and closes the socket.
func (h *handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream: upgrade failed", "error", err)
		return
	}
	conn := &streamConn{conn: ws}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := pipeline.New(func(ctx context.Context, text string) *analysis.Result {
		return h.engine.Analyze(ctx, text, gonarrate.WithSource("stream"))
	}, pipeline.Config{Workers: h.streamWorkers})
	if err := p.Start(ctx); err != nil {
		slog.Error("stream: starting pipeline", "error", err)
		return
	}

	written := make(chan struct{})
	go func() {
		defer close(written)
		h.streamWrite(ctx, cancel, conn, p)
	}()

	clean := h.streamRead(ctx, conn, p)
	p.Close()
	if !clean {
		cancel()
	}
	<-written
	if clean {
		conn.writeControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	}
}

// streamRead submits client frames until the client says done (true) or
// the connection fails (false).
func (h *handler) streamRead(ctx context.Context, conn *streamConn, p *pipeline.Pipeline[*analysis.Result]) bool {
	ws := conn.conn
	ws.SetReadLimit(streamMaxMessage)
	ws.SetReadDeadline(time.Now().Add(streamPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("stream: read", "error", err)
			}
			return false
		}
		ws.SetReadDeadline(time.Now().Add(streamPongWait))

		var req streamRequest
		if err := json.Unmarshal(data, &req); err != nil {
			// Malformed frames still take a slot so replies stay aligned.
			req = streamRequest{}
			slog.Debug("stream: malformed frame", "error", err)
		}
		if req.Done {
			return true
		}
		if _, err := p.Submit(ctx, req.Text); err != nil {
			slog.Warn("stream: submit", "error", err)
			return false
		}
	}
}

// streamWrite sends completions in order and keeps the connection alive.
func (h *handler) streamWrite(ctx context.Context, cancel context.CancelFunc, conn *streamConn, p *pipeline.Pipeline[*analysis.Result]) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case c, ok := <-p.Results():
			if !ok {
				return
			}
			resp := streamResponse{
				Seq:        c.Segment.Seq,
				ID:         c.Segment.ID.String(),
				Result:     c.Value,
				DurationMS: c.Duration.Milliseconds(),
			}
			if c.Err != nil {
				resp.Error = c.Err.Error()
			}
			if err := conn.writeJSON(resp); err != nil {
				slog.Warn("stream: write", "seq", resp.Seq, "error", err)
				cancel()
				conn.conn.Close() // unblocks the reader
				return
			}
		case <-ticker.C:
			if err := conn.writeControl(websocket.PingMessage, nil); err != nil {
				cancel()
				conn.conn.Close()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
