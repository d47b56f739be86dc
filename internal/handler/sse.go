package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/agenda-api/internal/dto"
)

const sseRetry = 5 * time.Second

// sseWriter frames server-sent events on a fasthttp body stream.
type sseWriter struct {
	w *bufio.Writer
}

func (s sseWriter) retry(after time.Duration) error {
	if _, err := fmt.Fprintf(s.w, "retry: %d\n\n", after.Milliseconds()); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s sseWriter) notification(item dto.NotificationResponse) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: notification\nid: %d\ndata: %s\n\n", item.ID, payload); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s sseWriter) keepAlive(now time.Time) error {
	if _, err := fmt.Fprintf(s.w, ": keep-alive %s\n\n", now.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return s.w.Flush()
}

// lastEventID reads the id a reconnecting EventSource resumes from. The query
// form serves clients that cannot set headers.
func lastEventID(c *fiber.Ctx) uint {
	raw := strings.TrimSpace(c.Get("Last-Event-ID"))
	if raw == "" {
		raw = strings.TrimSpace(c.Query("last_event_id"))
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
