package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"linkbio-service/middleware"
	"linkbio-service/models"
	"linkbio-service/realtime"
	"linkbio-service/render"
	"linkbio-service/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxClientFrame = 512
)

type Subscriber interface {
	Subscribe(profileID string, tables ...realtime.Table) *realtime.Subscription
}

type realtimeMessage struct {
	Type  string                 `json:"type"`
	Event *realtime.Notification `json:"event,omitempty"`
	View  *render.View           `json:"view,omitempty"`
	Error string                 `json:"error,omitempty"`
}

// RealtimeHandler streams a freshly loaded profile view to a websocket
// client every time the profile, its links or its sections change.
type RealtimeHandler struct {
	profiles   ProfileAPI
	hub        Subscriber
	upgrader   websocket.Upgrader
	pingPeriod time.Duration
}

func NewRealtimeHandler(profiles ProfileAPI, hub Subscriber, allowedOrigins []string) *RealtimeHandler {
	return &RealtimeHandler{
		profiles: profiles,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		pingPeriod: pingPeriod,
	}
}

func (h *RealtimeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := optionalIdentity(r)
	identifier := mux.Vars(r)["identifier"]

	view, err := h.profiles.LoadProfile(r.Context(), identifier, identity)
	if err != nil {
		middleware.ErrorHandler(func(http.ResponseWriter, *http.Request) error { return err }).ServeHTTP(w, r)
		return
	}

	profileID := view.Profile.ID
	mode := render.ModePublic
	if identity != nil && identity.UserID == profileID {
		mode = render.ModeEditor
	} else {
		identity = nil
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("warning realtime upgrade failed profile_id=%s error=%v", profileID, err)
		return
	}

	sub := h.hub.Subscribe(profileID)
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go readPump(conn, done)

	snapshot := render.FromProfileView(view, mode)
	session := &realtimeSession{
		conn:      conn,
		profiles:  h.profiles,
		profileID: profileID,
		identity:  identity,
		mode:      mode,
	}
	session.run(r.Context(), sub, snapshot, done, h.pingPeriod)
}

type realtimeSession struct {
	conn      *websocket.Conn
	profiles  ProfileAPI
	profileID string
	identity  *services.Identity
	mode      render.Mode
}

func (s *realtimeSession) run(ctx context.Context, sub *realtime.Subscription, snapshot render.View, done <-chan struct{}, period time.Duration) {
	ticker := time.NewTicker(period)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	if err := s.send(realtimeMessage{Type: "snapshot", View: &snapshot}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case n, ok := <-sub.C():
			if !ok {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := s.send(s.reload(ctx, n)); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reload refetches the whole view instead of patching the previous one.
func (s *realtimeSession) reload(ctx context.Context, n realtime.Notification) realtimeMessage {
	event := n
	view, err := s.profiles.LoadProfile(ctx, s.profileID, s.identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return realtimeMessage{Type: "deleted", Event: &event}
		}
		if models.IsBackend(err) {
			log.Printf("warning realtime reload failed profile_id=%s table=%s error=%v", s.profileID, n.Table, err)
		} else {
			log.Printf("realtime reload rejected profile_id=%s table=%s error=%v", s.profileID, n.Table, err)
		}
		return realtimeMessage{Type: "error", Event: &event, Error: "reload failed"}
	}
	rendered := render.FromProfileView(view, s.mode)
	return realtimeMessage{Type: "update", Event: &event, View: &rendered}
}

func (s *realtimeSession) send(msg realtimeMessage) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		log.Printf("realtime write failed profile_id=%s error=%v", s.profileID, err)
		return err
	}
	return nil
}

// readPump only watches for pongs and the client going away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxClientFrame)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("realtime read error: %v", err)
			}
			return
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(strings.ToLower(origin), "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if set[strings.ToLower(origin)] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
