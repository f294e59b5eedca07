package cart

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/cartelera/internal/domain/event"
)

const AggregateType = "Cart"

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrOutOfStock      = errors.New("not enough stock")
	ErrInvalidEvent    = errors.New("event_id is required")
	ErrLineNotFound    = errors.New("event is not in the cart")
)

// Inventory resolves live stock for an event. Stock is looked up on every
// mutation, never cached on the line.
type Inventory interface {
	Stock(id string) (stock int, soldOut bool, ok bool)
}

// PriceLookup resolves the live unit price for an event.
type PriceLookup interface {
	Price(id string) (float64, bool)
}

type Line struct {
	EventID  string `json:"id"`
	Quantity int    `json:"qty"`
}

// Ledger is the ordered list of cart lines, unique by event id.
type Ledger struct {
	lines []Line
}

// New builds a ledger from stored lines. Lines with an empty id or a
// quantity below one are dropped and duplicate ids are merged.
func New(lines ...Line) *Ledger {
	l := &Ledger{}
	for _, line := range lines {
		if line.EventID == "" || line.Quantity < 1 {
			continue
		}
		if i := l.indexOf(line.EventID); i >= 0 {
			if line.Quantity > math.MaxInt-l.lines[i].Quantity {
				l.lines[i].Quantity = math.MaxInt
			} else {
				l.lines[i].Quantity += line.Quantity
			}
			continue
		}
		l.lines = append(l.lines, line)
	}
	return l
}

func (l *Ledger) indexOf(eventID string) int {
	for i, line := range l.lines {
		if line.EventID == eventID {
			return i
		}
	}
	return -1
}

// Lines returns a copy of the lines in insertion order.
func (l *Ledger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

// Quantity returns the quantity held for an event, zero when absent.
func (l *Ledger) Quantity(eventID string) int {
	if i := l.indexOf(eventID); i >= 0 {
		return l.lines[i].Quantity
	}
	return 0
}

// Count is the badge value: the sum of all line quantities.
func (l *Ledger) Count() int {
	n := 0
	for _, line := range l.lines {
		n += line.Quantity
	}
	return n
}

func (l *Ledger) Len() int { return len(l.lines) }

func (l *Ledger) IsEmpty() bool { return len(l.lines) == 0 }

// Add merges quantity into the line for eventID, appending a new line if
// none exists. The ledger is left unchanged on error.
func (l *Ledger) Add(inv Inventory, eventID string, quantity int) error {
	if eventID == "" {
		return ErrInvalidEvent
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	stock, soldOut, ok := inv.Stock(eventID)
	if !ok {
		return fmt.Errorf("%w: %s", event.ErrEventNotFound, eventID)
	}
	if soldOut {
		return fmt.Errorf("%w: event %s is sold out", ErrOutOfStock, eventID)
	}

	i := l.indexOf(eventID)
	current := 0
	if i >= 0 {
		current = l.lines[i].Quantity
	}
	// Both sides are non-negative, so the difference cannot wrap.
	if quantity > stock-current {
		return fmt.Errorf("%w: requested %d, in cart %d, available %d", ErrOutOfStock, quantity, current, stock)
	}

	if i >= 0 {
		l.lines[i].Quantity += quantity
	} else {
		l.lines = append(l.lines, Line{EventID: eventID, Quantity: quantity})
	}
	return nil
}

// SetQuantity replaces the quantity of an existing line, clamping it to
// [1, stock]. The applied quantity is returned. An event with no stock left
// cannot satisfy the lower bound and fails with ErrOutOfStock.
func (l *Ledger) SetQuantity(inv Inventory, eventID string, quantity int) (int, error) {
	i := l.indexOf(eventID)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrLineNotFound, eventID)
	}
	stock, _, ok := inv.Stock(eventID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", event.ErrEventNotFound, eventID)
	}
	if stock < 1 {
		return 0, fmt.Errorf("%w: event %s has no stock", ErrOutOfStock, eventID)
	}

	applied := max(1, min(quantity, stock))
	l.lines[i].Quantity = applied
	return applied, nil
}

// Remove drops the line for eventID. It reports whether a line was removed;
// removing an absent line is not an error.
func (l *Ledger) Remove(eventID string) bool {
	i := l.indexOf(eventID)
	if i < 0 {
		return false
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
	return true
}

func (l *Ledger) Clear() {
	l.lines = nil
}

// Total sums quantity x unit price with prices resolved at call time, so a
// catalog price change is reflected in the total. Lines whose event is no
// longer in the catalog contribute nothing.
func (l *Ledger) Total(prices PriceLookup) float64 {
	total := 0.0
	for _, line := range l.lines {
		price, ok := prices.Price(line.EventID)
		if !ok {
			continue
		}
		total += float64(line.Quantity) * price
	}
	return RoundCents(total)
}

// RoundCents rounds an amount to two decimals.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
