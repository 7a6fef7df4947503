package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/GjuanETH/Harajuku-en-casa-sub000/pkg/httputil"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/event"
	"github.com/GjuanETH/Harajuku-en-casa-sub000/services/storefront/internal/service"
)

const defaultHeartbeat = 15 * time.Second

// EventsHandler streams cart changes of the caller's session as
// Server-Sent Events.
type EventsHandler struct {
	carts     *service.CartService
	hub       *event.Hub
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewEventsHandler creates a new SSE handler. A non-positive heartbeat uses
// the default.
func NewEventsHandler(carts *service.CartService, hub *event.Hub, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &EventsHandler{
		carts:     carts,
		hub:       hub,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Stream handles GET /api/cart/events. The current totals are sent first,
// then one "cart" event per change until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionID(r)

	cart, err := h.carts.Get(ctx, session)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	sub := h.hub.Subscribe(session)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, event.NewCartChanged(cart, time.Now())); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.WarnContext(ctx, "response does not support streaming", slog.String("error", err.Error()))
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w io.Writer, ev event.CartChanged) error {
	ev.Origin = ""
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
	return err
}
