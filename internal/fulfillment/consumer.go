package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LuonVuiTuoiLV/ecommerce-project-sub001/internal/catalog"
	"github.com/segmentio/kafka-go"
)

type eventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderCompletedEvent is the payload the order-fulfillment collaborator
// publishes once payment succeeded. Each item still has a live hold under
// the checkout id.
type OrderCompletedEvent struct {
	CheckoutID string      `json:"checkout_id"`
	UserID     string      `json:"user_id"`
	Items      []eventItem `json:"items"`
}

// LineCompleter finalizes one order line: conditional durable decrement
// plus hold release.
type LineCompleter interface {
	CompleteLine(ctx context.Context, checkoutID, productID string, quantity int) error
}

type Consumer struct {
	completer LineCompleter
	reader    *kafka.Reader
}

func NewConsumer(completer LineCompleter, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "order-completed",
		GroupID:  "stock-engine",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{completer, reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		fmt.Printf("error closing kafka reader: %v\n", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Printf("error reading message: %v\n", err)
		return
	}

	var event OrderCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		fmt.Printf("error parsing message: %v\n", err)
		return
	}

	c.Handle(ctx, event)
}

// Handle applies an order-completion event line by line. A line that
// fails keeps the rest of the event going: each line's hold belongs to a
// single product and completion is idempotent per (checkout, product).
func (c *Consumer) Handle(ctx context.Context, event OrderCompletedEvent) {
	if event.CheckoutID == "" {
		fmt.Println("missing checkout_id, skipping event")
		return
	}

	for _, item := range event.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			fmt.Printf("skipping malformed item in checkout %s\n", event.CheckoutID)
			continue
		}

		err := c.completer.CompleteLine(ctx, event.CheckoutID, item.ProductID, item.Quantity)
		if errors.Is(err, catalog.ErrInsufficientStock) {
			// The optimistic admission raced and oversold; the conditional
			// decrement refused to go negative. The order needs manual
			// handling downstream.
			fmt.Printf("oversell detected for product %s in checkout %s\n", item.ProductID, event.CheckoutID)
			continue
		}
		if err != nil {
			fmt.Printf("failed to complete line %s for checkout %s: %v\n", item.ProductID, event.CheckoutID, err)
		}
	}
}
