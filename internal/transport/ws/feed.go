package ws

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/fakhriyor21/Quizbot-final/internal/app"
	"github.com/fakhriyor21/Quizbot-final/internal/domain"
)

// Feed is the public announcement channel: a broadcast-only socket any
// number of clients may watch. Posts get a monotonically numbered ref so
// the store can link a test to its announcement.
type Feed struct {
	upgrader websocket.Upgrader
	seq      atomic.Int64

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	send chan outboundFrame
}

var _ app.ChannelSender = (*Feed)(nil)

func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// ServeWS handles one watcher. The feed is one-way: inbound frames are
// read only to detect the close.
func (f *Feed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("feed upgrade failed")
		return
	}
	defer conn.Close()

	sub := &subscriber{send: make(chan outboundFrame, sendQueueSize)}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case frame := <-sub.send:
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// Post implements app.ChannelSender. Delivery to watchers is best-effort;
// the returned ref is assigned regardless of how many sockets are open.
func (f *Feed) Post(_ context.Context, text string, choices ...domain.Choice) (string, error) {
	ref := "ch-" + strconv.FormatInt(f.seq.Add(1), 10)
	frame := outboundFrame{Type: "channel", Text: text, Choices: choices}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for sub := range f.subs {
		select {
		case sub.send <- frame:
		default:
			log.Warn().Msg("channel post dropped for a slow watcher")
		}
	}
	return ref, nil
}
