package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/realtime"
	"github.com/reelwork/marketplace/pkg/logger"
)

// TaskEnqueuer schedules background cleanup that must eventually happen.
type TaskEnqueuer interface {
	// EnqueuePurgeOrphan schedules removal of a profile left without an identity.
	EnqueuePurgeOrphan(ctx context.Context, userID uuid.UUID) error
	// EnqueueIdentityDelete schedules removal of a deleted profile's identity.
	EnqueueIdentityDelete(ctx context.Context, userID uuid.UUID) error
}

// notify publishes ev to each user. Failures are logged and never returned.
func notify(ctx context.Context, pub realtime.Publisher, eventType string, data any, userIDs ...uuid.UUID) {
	if pub == nil {
		return
	}
	ev := realtime.Event{Type: eventType, Data: data, At: time.Now().UTC()}
	seen := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := pub.Publish(ctx, id, ev); err != nil {
			logger.Ctx(ctx).Warn("realtime publish failed",
				zap.String("event", eventType),
				zap.String("user_id", id.String()),
				zap.Error(err))
		}
	}
}
