package order

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/example/cartelera/internal/domain/cart"
	"github.com/example/cartelera/internal/domain/event"
)

const AggregateType = "Order"

var (
	ErrValidation = errors.New("validation error")
	ErrEmptyCart  = errors.New("cart is empty")
)

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	dniPattern   = regexp.MustCompile(`^\d{8}$`)
	phonePattern = regexp.MustCompile(`^\d{7,15}$`)
)

// ValidationError names the buyer field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	DNI   string `json:"dni"`
	Phone string `json:"phone"`
}

// Validate checks email, dni and phone in that order and reports the first
// offending field.
func (b Buyer) Validate() error {
	if !emailPattern.MatchString(strings.TrimSpace(b.Email)) {
		return &ValidationError{Field: "email", Reason: "must look like local@domain"}
	}
	if !dniPattern.MatchString(strings.TrimSpace(b.DNI)) {
		return &ValidationError{Field: "dni", Reason: "must be exactly 8 digits"}
	}
	if !phonePattern.MatchString(strings.TrimSpace(b.Phone)) {
		return &ValidationError{Field: "phone", Reason: "must be 7 to 15 digits"}
	}
	return nil
}

type Item struct {
	EventID  string  `json:"id"`
	Quantity int     `json:"qty"`
	Price    float64 `json:"price"`
}

func (i Item) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

// Order is an immutable checkout record.
type Order struct {
	ID        string    `json:"id"`
	Buyer     Buyer     `json:"buyer"`
	Items     []Item    `json:"items"`
	Total     float64   `json:"total"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// Catalog resolves events at checkout time.
type Catalog interface {
	ByID(id string) (event.Record, bool)
}

// NewID combines the millisecond timestamp with the first cart line's event
// id. Unique enough for a single-user ledger; two checkouts of the same
// first event within one millisecond collide.
func NewID(at time.Time, firstEventID string) string {
	return fmt.Sprintf("EVT-%d-%s", at.UnixMilli(), firstEventID)
}

// Place validates the buyer and snapshots every cart line with the event's
// current unit price.
func Place(buyer Buyer, lines []cart.Line, catalog Catalog, now time.Time) (Order, error) {
	if err := buyer.Validate(); err != nil {
		return Order{}, err
	}
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}

	items := make([]Item, 0, len(lines))
	total := 0.0
	currency := ""
	for _, line := range lines {
		rec, ok := catalog.ByID(line.EventID)
		if !ok {
			return Order{}, fmt.Errorf("%w: %s", event.ErrEventNotFound, line.EventID)
		}
		if currency == "" {
			currency = rec.Currency
		}
		item := Item{EventID: line.EventID, Quantity: line.Quantity, Price: rec.PriceFrom}
		total += item.Subtotal()
		items = append(items, item)
	}

	return Order{
		ID:        NewID(now, lines[0].EventID),
		Buyer:     normalize(buyer),
		Items:     items,
		Total:     cart.RoundCents(total),
		Currency:  currency,
		CreatedAt: now.UTC(),
	}, nil
}

func normalize(b Buyer) Buyer {
	return Buyer{
		Name:  strings.TrimSpace(b.Name),
		Email: strings.TrimSpace(b.Email),
		DNI:   strings.TrimSpace(b.DNI),
		Phone: strings.TrimSpace(b.Phone),
	}
}
