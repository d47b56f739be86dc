package service

import (
	"sync"

	"github.com/noah-isme/agenda-api/internal/dto"
)

const inboxBufferSize = 16

type inboxStream chan dto.NotificationResponse

// inboxHub tracks the live streams opened by each recipient on this node.
type inboxHub struct {
	mu      sync.RWMutex
	streams map[string]map[inboxStream]struct{}
}

func newInboxHub() *inboxHub {
	return &inboxHub{streams: make(map[string]map[inboxStream]struct{})}
}

func (h *inboxHub) open(recipientID string) inboxStream {
	stream := make(inboxStream, inboxBufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[recipientID] == nil {
		h.streams[recipientID] = make(map[inboxStream]struct{})
	}
	h.streams[recipientID][stream] = struct{}{}
	return stream
}

// close removes the stream and closes it; calling it twice is a no-op.
func (h *inboxHub) close(recipientID string, stream inboxStream) {
	h.mu.Lock()
	defer h.mu.Unlock()

	streams := h.streams[recipientID]
	if _, ok := streams[stream]; !ok {
		return
	}
	delete(streams, stream)
	close(stream)
	if len(streams) == 0 {
		delete(h.streams, recipientID)
	}
}

// push offers the item to every stream of the recipient without blocking and
// reports how many streams were full and skipped it.
func (h *inboxHub) push(item dto.NotificationResponse) (skipped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for stream := range h.streams[item.RecipientID] {
		select {
		case stream <- item:
		default:
			skipped++
		}
	}
	return skipped
}
