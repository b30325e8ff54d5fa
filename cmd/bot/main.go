package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name  = flag.String("name", "bot", "username")
		token = flag.String("token", "", "session token")
		every = flag.Duration("every", time.Second, "how often to pick a new heading")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.StampMilli}).
		With().Timestamp().Str("bot", *name).Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *url, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("dial")
	}
	defer conn.Close()

	out := &writer{conn: conn}
	b := newBot(*name, time.Now().UnixNano())
	if err := out.send(b.hello(*token)); err != nil {
		logger.Fatal().Err(err).Msg("send AUTH")
	}

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}()

	go func() {
		t := time.NewTicker(*every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if msg := b.wander(); msg != nil {
					_ = out.send(msg)
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Info().Err(err).Msg("disconnected")
			return
		}
		for _, msg := range b.handle(raw, logger) {
			if err := out.send(msg); err != nil {
				logger.Warn().Err(err).Msg("send")
				return
			}
		}
	}
}

// writer serializes frames from the read loop and the wander ticker.
type writer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *writer) send(msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return w.conn.WriteMessage(websocket.TextMessage, raw)
}
