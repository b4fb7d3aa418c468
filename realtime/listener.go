package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

// Channel is the NOTIFY channel written by the schema triggers.
const Channel = "profile_changes"

type pgListener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

var newListener = func(connStr string, callback pq.EventCallbackType) pgListener {
	return pq.NewListener(connStr, 10*time.Second, time.Minute, callback)
}

// PGListener forwards Postgres change notifications into a Hub.
type PGListener struct {
	listener     pgListener
	hub          *Hub
	pingInterval time.Duration
}

func NewPGListener(connStr string, hub *Hub, pingInterval time.Duration) (*PGListener, error) {
	listener := newListener(connStr, func(event pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("realtime listener event=%d err=%v", event, err)
		}
	})
	if err := listener.Listen(Channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", Channel, err)
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &PGListener{listener: listener, hub: hub, pingInterval: pingInterval}, nil
}

// Run blocks until ctx is cancelled or the listener is closed.
func (l *PGListener) Run(ctx context.Context) {
	ticker := time.NewTicker(l.pingInterval)
	defer ticker.Stop()
	defer l.listener.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-l.listener.NotificationChannel():
			if !ok {
				return
			}
			if n == nil {
				// pq delivers nil after a reconnect; anything sent meanwhile is gone.
				log.Printf("realtime listener reconnected channel=%s", Channel)
				l.hub.InvalidateAll()
				continue
			}
			notification, err := ParseNotification(n.Extra)
			if err != nil {
				log.Printf("warning: realtime payload dropped err=%v", err)
				continue
			}
			l.hub.Publish(notification)
		case <-ticker.C:
			if err := l.listener.Ping(); err != nil {
				log.Printf("warning: realtime listener ping failed err=%v", err)
			}
		}
	}
}

func ParseNotification(payload string) (Notification, error) {
	var n Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if n.ProfileID == "" {
		return Notification{}, fmt.Errorf("notification without profile_id")
	}
	switch n.Table {
	case TableProfiles, TableLinks, TableSubtitles:
	default:
		return Notification{}, fmt.Errorf("unknown table %q", n.Table)
	}
	return n, nil
}
