package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"petalarena.io/internal/protocol"
	"petalarena.io/internal/session"
)

const (
	writeWait     = 5 * time.Second
	readWait      = 60 * time.Second
	handshakeWait = 10 * time.Second
	maxFrameBytes = 16 * 1024
)

type Server struct {
	gw        *session.Gateway
	dec       *protocol.Decoder
	log       zerolog.Logger
	queueSize int

	upgrader websocket.Upgrader
}

func NewServer(gw *session.Gateway, dec *protocol.Decoder, queueSize int, logger zerolog.Logger) *Server {
	return &Server{
		gw:        gw,
		dec:       dec,
		log:       logger.With().Str("component", "ws").Logger(),
		queueSize: queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		conn.SetReadLimit(maxFrameBytes)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		c := &wsConn{q: session.NewQueue(s.queueSize), cancel: cancel}
		id := uuid.NewString()
		log := s.log.With().Str("conn_id", id).Logger()
		sess := s.gw.Open(id, c)

		// Writer goroutine.
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer conn.Close()
			for {
				select {
				case <-ctx.Done():
					c.flush(conn)
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
					return
				case b := <-c.q.C():
					if err := write(conn, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for ctx.Err() == nil {
			wait := readWait
			if sess.State() == session.StatePending {
				wait = handshakeWait
			}
			_ = conn.SetReadDeadline(time.Now().Add(wait))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			msg, err := s.dec.Decode(raw)
			if err != nil {
				code := protocol.ErrProtoBadRequest
				if eris.Is(err, protocol.ErrVersion) {
					code = protocol.ErrProtoVersion
				}
				c.reply(protocol.NewError(code, err.Error()))
				continue
			}
			if err := sess.Handle(ctx, msg); err != nil {
				log.Debug().Err(err).Msg("command rejected")
			}
		}

		// Cleanup.
		sess.Close()
		cancel()
		<-done
		if n := c.q.Dropped(); n > 0 {
			log.Info().Uint64("dropped_frames", n).Msg("slow client")
		}
	}
}

// wsConn adapts one websocket to session.Handle.
type wsConn struct {
	q      *session.Queue
	once   sync.Once
	cancel context.CancelFunc
}

func (c *wsConn) Send(b []byte) { c.q.Push(b) }

// Close stops the writer after it flushes what is queued.
func (c *wsConn) Close() { c.once.Do(c.cancel) }

func (c *wsConn) reply(msg any) {
	if b, err := protocol.Encode(msg); err == nil {
		c.q.Push(b)
	}
}

func (c *wsConn) flush(conn *websocket.Conn) {
	for {
		select {
		case b := <-c.q.C():
			if err := write(conn, b); err != nil {
				return
			}
		default:
			return
		}
	}
}

func write(conn *websocket.Conn, b []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
