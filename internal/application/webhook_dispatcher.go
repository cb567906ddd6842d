package application

import (
	"context"
	"errors"
	"fmt"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookDispatcher routes verified events to every registered handler
// that accepts the topic
type WebhookDispatcher struct {
	handlers []ports.WebhookHandler
	logger   zerolog.Logger
}

func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

func (d *WebhookDispatcher) RegisterHandler(h ports.WebhookHandler) {
	d.handlers = append(d.handlers, h)
}

// Dispatch runs the matching handlers. Topics nobody handles are only
// logged; handled reports whether any handler matched.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) (handled bool, err error) {
	var errs []error
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}
		handled = true
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", h, err))
		}
	}

	if !handled {
		d.logger.Info().
			Str("topic", string(event.Topic)).
			Str("shop", event.Shop).
			Msg("No handler for webhook topic")
	}
	return handled, errors.Join(errs...)
}
