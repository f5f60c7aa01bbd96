package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CartLine has no quantity; repeated items are separate lines.
type CartLine struct {
	Name  string          `json:"nombre"`
	Price decimal.Decimal `json:"precio"`
}

type Cart struct {
	Lines []CartLine `json:"lines"`
}

// ParseCart decodes a cart stored in the session. Empty input is an empty cart.
func ParseCart(raw string) (*Cart, error) {
	c := &Cart{}
	if raw == "" {
		return c, nil
	}
	if err := json.Unmarshal([]byte(raw), &c.Lines); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cart) Encode() (string, error) {
	if c.Lines == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c.Lines)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Cart) Add(name string, price decimal.Decimal) {
	c.Lines = append(c.Lines, CartLine{Name: name, Price: price})
}

// RemoveAt drops the line at index i and reports whether it existed.
func (c *Cart) RemoveAt(i int) bool {
	if i < 0 || i >= len(c.Lines) {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Price)
	}
	return total
}

func (c *Cart) Count() int { return len(c.Lines) }

func (c *Cart) Empty() bool { return len(c.Lines) == 0 }

func (c *Cart) Clear() { c.Lines = nil }

// CartGroup is the per-name aggregate written as one sale line item.
type CartGroup struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// Group aggregates lines by name in first-seen order, keeping the price of
// the first line for each name.
func (c *Cart) Group() []CartGroup {
	index := make(map[string]int, len(c.Lines))
	var groups []CartGroup
	for _, l := range c.Lines {
		if i, ok := index[l.Name]; ok {
			groups[i].Quantity++
			continue
		}
		index[l.Name] = len(groups)
		groups = append(groups, CartGroup{Name: l.Name, Quantity: 1, Price: l.Price})
	}
	return groups
}
