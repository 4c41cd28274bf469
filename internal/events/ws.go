package events

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"

	"omnis/kiosk/internal/auth"
)

// FeedServer streams the event log to monitor dashboards over websocket.
type FeedServer struct {
	Hub         *Hub
	TokenSecret string // empty disables auth
	SkewSecs    int
}

func NewFeedServer(hub *Hub, secret string, skew int) *FeedServer {
	return &FeedServer{Hub: hub, TokenSecret: secret, SkewSecs: skew}
}

// HandleWS replays the retained log, then pushes new events until the client
// goes away.
func (s *FeedServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	if s.TokenSecret != "" {
		token := auth.FromRequest(r)
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if _, _, err := auth.ValidateMonitorToken(s.TokenSecret, token, "", time.Now(), s.SkewSecs); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	c, err := ws.Accept(w, r, nil)
	if err != nil {
		log.Printf("[events] ws accept: %v", err)
		return
	}
	defer c.Close(ws.StatusInternalError, "closing")

	// subscribe before replay so nothing published in between is lost
	live, cancel := s.Hub.Subscribe(64)
	defer cancel()

	ctx := c.CloseRead(r.Context())
	for _, evt := range s.Hub.List() {
		if err := c.Write(ctx, ws.MessageText, mustJSON(evt)); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			c.Close(ws.StatusNormalClosure, "done")
			return
		case evt := <-live:
			if err := c.Write(ctx, ws.MessageText, mustJSON(evt)); err != nil {
				return
			}
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
