package notifylisten

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Listener subscribes to one or more Postgres NOTIFY channels over a single
// dedicated connection and dispatches decoded payloads to registered
// Handlers.
type Listener struct {
	pql *pq.Listener

	mu       sync.RWMutex
	handlers map[string]Handler

	done chan struct{}
	wg   sync.WaitGroup
}

// New constructs a Listener against connStr. minReconnect/maxReconnect
// bound pq's own exponential backoff between reconnect attempts.
func New(connStr string, minReconnect, maxReconnect time.Duration) *Listener {
	l := &Listener{handlers: make(map[string]Handler)}
	l.pql = pq.NewListener(connStr, minReconnect, maxReconnect, l.onEvent)
	return l
}

func (l *Listener) onEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		slog.Info("notifylisten: connected")
	case pq.ListenerEventDisconnected:
		slog.Warn("notifylisten: disconnected", "err", err)
	case pq.ListenerEventReconnected:
		slog.Info("notifylisten: reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		slog.Warn("notifylisten: connection attempt failed", "err", err)
	}
}

// RegisterHandler binds h to channel and issues LISTEN for it. Safe to call
// before or after Start.
func (l *Listener) RegisterHandler(channel string, h Handler) error {
	l.mu.Lock()
	l.handlers[channel] = h
	l.mu.Unlock()
	return l.pql.Listen(channel)
}

// Start launches the background dispatch loop. It returns immediately; the
// loop runs until ctx is cancelled or Shutdown is called.
func (l *Listener) Start(ctx context.Context) {
	l.done = make(chan struct{})
	l.wg.Add(1)
	go l.loop(ctx)
}

// Shutdown stops the dispatch loop and closes the underlying connection.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.done != nil {
		close(l.done)
	}
	l.wg.Wait()
	return l.pql.Close()
}

func (l *Listener) loop(ctx context.Context) {
	defer l.wg.Done()

	// pq recommends a periodic Ping to notice a half-dead connection the
	// driver itself hasn't detected yet.
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case n := <-l.pql.Notify:
			if n == nil {
				// pq sends a nil notification right after a reconnect; there
				// is nothing to dispatch. Nothing is reloaded here, so changes
				// notified while the connection was down are not applied to
				// the caches; entries converge only as later notifications
				// for them arrive.
				continue
			}
			l.dispatch(ctx, n)
		case <-ping.C:
			go func() { _ = l.pql.Ping() }()
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, n *pq.Notification) {
	l.mu.RLock()
	h, ok := l.handlers[n.Channel]
	l.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := decodePayload(n.Extra)
	if err != nil {
		slog.Warn("notifylisten: dropping malformed notification", "channel", n.Channel, "err", err)
		return
	}

	if err := h.Apply(ctx, payload); err != nil {
		slog.Warn("notifylisten: handler apply failed", "channel", n.Channel, "pk", payload.PrimaryKey, "err", err)
	}
}
