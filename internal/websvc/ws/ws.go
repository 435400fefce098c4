package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// MaxHistory is how many chat turns are remembered per socket.
const MaxHistory = 10

const writeWait = 10 * time.Second

var ErrUnknownSocket = errors.New("unknown socket")

type client struct {
	conn    *websocket.Conn
	mu      sync.Mutex // guards writes and history
	history []models.ChatTurn
}

// Ws keeps track of the open friend-chat sockets.
type Ws struct {
	connMap sync.Map // socketId -> *client
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{conn: conn})
}

func (s *Ws) get(socketId string) (*client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*client), true
}

// Send writes one text frame to the socket. Writes on the same socket are
// serialized.
func (s *Ws) Send(socketId string, payload []byte) error {
	c, ok := s.get(socketId)
	if !ok {
		return ErrUnknownSocket
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// History returns a copy of the chat turns remembered for a socket.
func (s *Ws) History(socketId string) []models.ChatTurn {
	c, ok := s.get(socketId)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatTurn, len(c.history))
	copy(out, c.history)
	return out
}

// Remember appends turns to the socket history, keeping the last MaxHistory.
func (s *Ws) Remember(socketId string, turns ...models.ChatTurn) {
	c, ok := s.get(socketId)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, turns...)
	if len(c.history) > MaxHistory {
		c.history = c.history[len(c.history)-MaxHistory:]
	}
}

func (s *Ws) Count() int {
	n := 0
	s.connMap.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func (s *Ws) HandleDisconnect(socketId string) {
	if _, ok := s.connMap.LoadAndDelete(socketId); ok {
		log.Infof("socket %s removed, %d open", socketId, s.Count())
	}
}
