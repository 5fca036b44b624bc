package notify

import (
	"context"
	"sync"

	"nftminter/internal/session"

	"github.com/zeromicro/go-zero/core/logx"
)

const defaultQueueSize = 64

// Hub keeps notifications until the UI drains them. Each notification is
// handed out exactly once.
type Hub struct {
	mu    sync.Mutex
	queue []session.Notification
	size  int
}

func NewHub(size int) *Hub {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Hub{size: size}
}

func (h *Hub) Notify(ctx context.Context, n session.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.queue) >= h.size {
		dropped := h.queue[0]
		h.queue = h.queue[1:]
		logx.WithContext(ctx).Errorf("通知队列已满, 丢弃最早的通知: kind=%s", dropped.Kind)
	}
	h.queue = append(h.queue, n)
}

// Drain returns and forgets every pending notification.
func (h *Hub) Drain() []session.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := h.queue
	h.queue = nil
	return out
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Multi fans a notification out to every notifier in order.
type Multi []session.Notifier

func (m Multi) Notify(ctx context.Context, n session.Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// Log writes notifications to the service log.
type Log struct{}

func (Log) Notify(ctx context.Context, n session.Notification) {
	logx.WithContext(ctx).Infow("🔔 "+n.Message,
		logx.Field("kind", n.Kind),
		logx.Field("link", n.Link))
}
