package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/tsudoi-app/tsudoi/internal/chat"
)

const (
	wsWriteWait = 10 * time.Second
	wsReadWait  = 60 * time.Second
	wsPingEvery = 30 * time.Second
)

type wsOutbound struct {
	Type     string             `json:"type"`
	Messages []chat.FeedMessage `json:"messages"`
}

type wsInbound struct {
	Content string `json:"content"`
}

// liveFeed serves one conversation view over a websocket: membership check,
// feed snapshot, then live updates, with sends accepted inbound. The feed's
// subscription is released on every exit path.
func (s *Server) liveFeed(conn *websocket.Conn) {
	defer conn.Close()

	uid, _ := conn.Locals("user_id").(string)
	convID, _ := conn.Locals("conversation_id").(string)
	if uid == "" || convID == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	member, err := s.gate.CheckMembership(ctx, convID, uid)
	if err != nil || !member {
		_ = conn.WriteJSON(map[string]string{"error": "not a member of this conversation"})
		return
	}

	feed := s.feeds.Open(convID)
	if err := feed.Open(ctx); err != nil {
		s.log.Errorw("feed open failed", "conversation", convID, "err", err)
		_ = conn.WriteJSON(map[string]string{"error": "message feed unavailable"})
		return
	}
	defer feed.Close()

	if s.presence != nil {
		_ = s.presence.SetPresence(ctx, uid, true)
		defer func() { _ = s.presence.SetPresence(context.Background(), uid, false) }()
	}

	if err := writeSnapshot(conn, feed); err != nil {
		return
	}

	go s.wsWriter(ctx, cancel, conn, feed)
	s.wsReader(ctx, conn, feed, uid)
}

// wsReader consumes inbound frames until the peer hangs up; each frame is a
// message send.
func (s *Server) wsReader(ctx context.Context, conn *websocket.Conn, feed *chat.Feed, uid string) {
	conn.SetReadLimit(32 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in wsInbound
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		// Writes stay on the writer goroutine; a failed send only logs here
		// and the client retries from its kept input.
		if _, err := feed.Send(ctx, uid, in.Content); err != nil {
			s.log.Warnw("ws send failed", "user", uid, "err", err)
		}
	}
}

// wsWriter pushes a fresh snapshot after every feed change and keeps the
// connection alive with pings.
func (s *Server) wsWriter(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, feed *chat.Feed) {
	defer cancel()
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-feed.Updates():
			if err := writeSnapshot(conn, feed); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, feed *chat.Feed) error {
	return conn.WriteJSON(wsOutbound{Type: "messages", Messages: feed.Messages()})
}
