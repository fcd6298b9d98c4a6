package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/realtime"
	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
)

const DefaultHeartbeat = 25 * time.Second

// EventsHandler streams the caller's realtime events as Server-Sent Events.
type EventsHandler struct {
	broker    realtime.Broker
	heartbeat time.Duration
}

func NewEventsHandler(broker realtime.Broker, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventsHandler{broker: broker, heartbeat: heartbeat}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	sub, err := h.broker.Subscribe(ctx, p.UserID)
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, "realtime unavailable"))
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	// streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		logger.Ctx(ctx).Warn("event stream not flushable", zap.Error(err))
		return
	}

	logger.Ctx(ctx).Info("event stream opened", zap.String("user_id", p.UserID.String()))
	defer logger.Ctx(ctx).Info("event stream closed", zap.String("user_id", p.UserID.String()))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub.C():
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName(raw), raw); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func eventName(raw []byte) string {
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Type == "" {
		return "message"
	}
	return ev.Type
}
