package notification

import (
	"context"
	"fmt"

	"github.com/example/cartelera/internal/domain/event"
	"github.com/example/cartelera/internal/domain/order"
	"github.com/example/cartelera/internal/email"
	"github.com/example/cartelera/internal/eventbus"
	"github.com/example/cartelera/internal/logging"
	"github.com/rs/zerolog"
)

// Mailer sends the rendered confirmation.
type Mailer interface {
	SendOrderConfirmation(to string, c email.Confirmation) error
}

// Handler processes events for sending notifications
type Handler struct {
	mailer  Mailer
	catalog *event.Catalog
	log     zerolog.Logger
}

// NewHandler creates a new notification handler. The catalog is optional
// and only used to resolve event titles.
func NewHandler(mailer Mailer, catalog *event.Catalog, logger zerolog.Logger) *Handler {
	return &Handler{
		mailer:  mailer,
		catalog: catalog,
		log:     logging.Component(logger, "notifier"),
	}
}

// HandleEvent is an eventbus.Handler. Only OrderPlaced events are acted on.
func (h *Handler) HandleEvent(ctx context.Context, e eventbus.Event) error {
	if e.Type != order.EventOrderPlaced {
		return nil
	}

	var placed order.OrderPlaced
	if err := e.Decode(&placed); err != nil {
		h.log.Error().Err(err).Str("event_id", e.ID).Msg("failed to decode OrderPlaced event")
		return err
	}
	if placed.Email == "" {
		h.log.Warn().Str("order_id", placed.OrderID).Msg("order has no email, skipped")
		return nil
	}

	h.log.Info().Str("order_id", placed.OrderID).Str("session", placed.SessionID).Msg("processing OrderPlaced event")

	if err := h.mailer.SendOrderConfirmation(placed.Email, h.confirmation(placed)); err != nil {
		h.log.Error().Err(err).Str("order_id", placed.OrderID).Msg("failed to send confirmation")
		return fmt.Errorf("send confirmation for %s: %w", placed.OrderID, err)
	}

	h.log.Info().Str("order_id", placed.OrderID).Str("to", placed.Email).Msg("order confirmation sent")
	return nil
}

func (h *Handler) confirmation(placed order.OrderPlaced) email.Confirmation {
	items := make([]email.OrderItem, len(placed.Items))
	for i, item := range placed.Items {
		items[i] = email.OrderItem{
			EventID:  item.EventID,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
		if rec, ok := h.catalog.ByID(item.EventID); ok {
			items[i].Title = rec.Title
			items[i].Venue = rec.Venue
			items[i].When = rec.Datetime
		}
	}
	return email.Confirmation{
		OrderID:  placed.OrderID,
		Name:     placed.Name,
		Currency: placed.Currency,
		Total:    placed.Total,
		PlacedAt: placed.PlacedAt,
		Items:    items,
	}
}
