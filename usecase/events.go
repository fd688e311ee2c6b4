package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

// narrationKey routes narration events, which are not tied to one story.
const narrationKey = "narration"

// publish is fire-and-forget: a dropped event never fails the operation that produced it.
func publish(ctx context.Context, pub domain.EventPublisher, routingKey string, evt domain.Event) {
	if pub == nil {
		return
	}
	evt.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(evt)
	if err != nil {
		log.WithCtx(ctx).Error("❌ Failed to marshal event", zap.String("type", string(evt.Type)), zap.Error(err))
		return
	}
	if err := pub.Publish(ctx, domain.EventsTopic, routingKey, payload); err != nil {
		log.WithCtx(ctx).Warn("Event dropped", zap.String("type", string(evt.Type)), zap.Error(err))
	}
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
