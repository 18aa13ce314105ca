// Package ws is the chat transport: one websocket per user, JSON frames
// both ways. It adapts socket traffic to the transport-independent events
// the core consumes and delivers the core's replies back to open sockets.
package ws

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

const sendQueueSize = 16

// Gateway upgrades connections and fans messages in and out. It is the
// transport half of both delivery interfaces: user messages through Send,
// channel posts through the Feed.
type Gateway struct {
	bot      *app.Bot
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[int64]*userConn
}

type userConn struct {
	send      chan outboundFrame
	done      chan struct{}
	closeOnce sync.Once
}

func (c *userConn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

type inboundFrame struct {
	Kind     string `json:"kind"`
	Payload  string `json:"payload"`
	Argument string `json:"argument,omitempty"`
}

type outboundFrame struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Choices []domain.Choice `json:"choices,omitempty"`
}

func NewGateway() *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[int64]*userConn),
	}
}

// Bind attaches the dispatcher. The gateway is constructed first because
// the dispatcher needs it as Sender.
func (g *Gateway) Bind(bot *app.Bot) {
	g.bot = bot
}

// ServeWS handles one user's socket for its whole lifetime.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	uc := &userConn{
		send: make(chan outboundFrame, sendQueueSize),
		done: make(chan struct{}),
	}
	g.register(userID, uc)
	defer g.unregister(userID, uc)

	go func() {
		for {
			select {
			case frame := <-uc.send:
				if err := conn.WriteJSON(frame); err != nil {
					log.Debug().Err(err).Int64("user", userID).Msg("ws write failed")
					return
				}
			case <-uc.done:
				return
			}
		}
	}()
	defer uc.close()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		ev := domain.Inbound{
			SenderID: userID,
			Kind:     domain.InboundKind(frame.Kind),
			Payload:  frame.Payload,
			Argument: frame.Argument,
		}
		g.bot.Handle(r.Context(), ev)
	}
}

// Send implements app.Sender. Messages to users without an open socket are
// dropped; so are messages to a socket whose queue is full. A stalled
// reader must not stall the dispatcher.
func (g *Gateway) Send(recipientID int64, text string, choices ...domain.Choice) {
	g.mu.RLock()
	uc, ok := g.conns[recipientID]
	g.mu.RUnlock()
	if !ok {
		log.Debug().Int64("user", recipientID).Msg("message dropped, no open socket")
		return
	}
	select {
	case uc.send <- outboundFrame{Type: "message", Text: text, Choices: choices}:
	default:
		log.Warn().Int64("user", recipientID).Msg("message dropped, send queue full")
	}
}

func (g *Gateway) register(userID int64, uc *userConn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if old, ok := g.conns[userID]; ok {
		// A reconnect supersedes the previous socket.
		old.close()
	}
	g.conns[userID] = uc
}

func (g *Gateway) unregister(userID int64, uc *userConn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conns[userID] == uc {
		delete(g.conns, userID)
	}
}
