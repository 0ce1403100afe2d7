package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vampirenirmal/insightatlas/internal/insight"
	"github.com/vampirenirmal/insightatlas/internal/progress"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin restrictions are enforced by the CORS layer on the API;
		// the socket carries no privileged operations.
		return true
	},
}

// clientMessage is what subscribers send over the socket.
type clientMessage struct {
	Type      string `json:"type"`
	InsightID string `json:"insightId"`
}

// serverMessage covers every frame the server emits.
type serverMessage struct {
	Type         string         `json:"type"`
	InsightID    string         `json:"insightId,omitempty"`
	Status       insight.Status `json:"status,omitempty"`
	Percent      *int           `json:"percent,omitempty"`
	CurrentStep  string         `json:"currentStep,omitempty"`
	SectionCount int            `json:"sectionCount,omitempty"`
	WordCount    int            `json:"wordCount,omitempty"`
	Error        string         `json:"error,omitempty"`
	Message      string         `json:"message,omitempty"`
}

func progressMessage(update insight.ProgressUpdate) serverMessage {
	percent := update.Percent
	return serverMessage{
		Type:         "progress",
		InsightID:    update.InsightID,
		Status:       update.Status,
		Percent:      &percent,
		CurrentStep:  update.CurrentStep,
		SectionCount: update.SectionCount,
		WordCount:    update.WordCount,
		Error:        update.Error,
	}
}

// wsConn owns one client connection: its outbound queue and the set of
// progress subscriptions it holds.
type wsConn struct {
	conn *websocket.Conn
	send chan serverMessage

	mu   sync.Mutex
	subs map[string]*progress.Subscription
	done chan struct{}
}

// handleWebSocket upgrades the connection and speaks the progress
// subscription protocol: subscribe/unsubscribe/getProgress in,
// connected/subscribed/progress/noProgress/error out.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &wsConn{
		conn: conn,
		send: make(chan serverMessage, 32),
		subs: make(map[string]*progress.Subscription),
		done: make(chan struct{}),
	}

	go client.writePump()
	client.queue(serverMessage{Type: "connected"})
	s.readPump(client)
}

func (s *Server) readPump(client *wsConn) {
	defer func() {
		close(client.done)
		client.unsubscribeAll(s.broadcaster)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(1024)
	client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.queue(serverMessage{Type: "error", Message: "malformed message"})
			continue
		}

		switch msg.Type {
		case "subscribe":
			s.subscribe(client, msg.InsightID)
		case "unsubscribe":
			s.unsubscribe(client, msg.InsightID)
		case "getProgress":
			if update, ok := s.broadcaster.GetProgress(msg.InsightID); ok {
				client.queue(progressMessage(update))
			} else {
				client.queue(serverMessage{Type: "noProgress", InsightID: msg.InsightID})
			}
		default:
			client.queue(serverMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

func (s *Server) subscribe(client *wsConn, insightID string) {
	if insightID == "" {
		client.queue(serverMessage{Type: "error", Message: "insightId required"})
		return
	}

	client.mu.Lock()
	if _, exists := client.subs[insightID]; exists {
		client.mu.Unlock()
		client.queue(serverMessage{Type: "subscribed", InsightID: insightID})
		return
	}
	sub := s.broadcaster.Subscribe(insightID)
	client.subs[insightID] = sub
	client.mu.Unlock()

	client.queue(serverMessage{Type: "subscribed", InsightID: insightID})

	// Pump subscription updates (including the immediate cached replay)
	// onto this connection until either side closes.
	go func() {
		for {
			select {
			case update, ok := <-sub.C:
				if !ok {
					return
				}
				client.queue(progressMessage(update))
			case <-client.done:
				return
			}
		}
	}()
}

func (s *Server) unsubscribe(client *wsConn, insightID string) {
	client.mu.Lock()
	sub, ok := client.subs[insightID]
	if ok {
		delete(client.subs, insightID)
	}
	client.mu.Unlock()

	if ok {
		s.broadcaster.Unsubscribe(sub)
	}
	client.queue(serverMessage{Type: "unsubscribed", InsightID: insightID})
}

func (client *wsConn) unsubscribeAll(b *progress.Broadcaster) {
	client.mu.Lock()
	subs := make([]*progress.Subscription, 0, len(client.subs))
	for _, sub := range client.subs {
		subs = append(subs, sub)
	}
	client.subs = make(map[string]*progress.Subscription)
	client.mu.Unlock()

	for _, sub := range subs {
		b.Unsubscribe(sub)
	}
}

// queue enqueues a frame without blocking; a full queue drops the frame,
// trusting the cache replay to cover any gap.
func (client *wsConn) queue(msg serverMessage) {
	select {
	case client.send <- msg:
	case <-client.done:
	default:
	}
}

func (client *wsConn) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			return
		}
	}
}
