package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Slot is a component position of a PC build.
type Slot int

const (
	SlotCPU Slot = iota
	SlotMotherboard
	SlotRAM
	SlotGPU
	SlotStorage
	SlotPSU
	SlotCase

	slotCount
)

// Slots lists every slot in assembly order.
var Slots = [slotCount]Slot{SlotCPU, SlotMotherboard, SlotRAM, SlotGPU, SlotStorage, SlotPSU, SlotCase}

var slotNames = [slotCount]string{"cpu", "motherboard", "ram", "gpu", "storage", "psu", "case"}

// Fractions sum to exactly one.
var slotFractions = [slotCount]decimal.Decimal{
	decimal.RequireFromString("0.18"),
	decimal.RequireFromString("0.15"),
	decimal.RequireFromString("0.10"),
	decimal.RequireFromString("0.35"),
	decimal.RequireFromString("0.08"),
	decimal.RequireFromString("0.07"),
	decimal.RequireFromString("0.07"),
}

func (s Slot) Valid() bool {
	return s >= 0 && s < slotCount
}

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

// Fraction is the share of the total budget allocated to the slot.
func (s Slot) Fraction() decimal.Decimal {
	if !s.Valid() {
		return decimal.Zero
	}
	return slotFractions[s]
}

// ParseSlot maps a slot name back to its Slot.
func ParseSlot(name string) (Slot, bool) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), true
		}
	}
	return 0, false
}

// Build is the component set assembled for a session.
// A nil part means no acceptable candidate was found for that slot.
type Build struct {
	Parts  [slotCount]*ProductSummary
	Total  decimal.Decimal
	Budget decimal.Decimal
}

// Part returns the product chosen for the slot, if any.
func (b Build) Part(s Slot) (ProductSummary, bool) {
	if !s.Valid() || b.Parts[s] == nil {
		return ProductSummary{}, false
	}
	return *b.Parts[s], true
}

// SetPart stores a copy of p under the slot. Total is not touched.
func (b *Build) SetPart(s Slot, p ProductSummary) {
	if !s.Valid() {
		return
	}
	b.Parts[s] = &p
}

// Recompute derives Total from the filled slots.
func (b *Build) Recompute() {
	total := decimal.Zero
	for _, p := range b.Parts {
		if p != nil {
			total = total.Add(p.Price)
		}
	}
	b.Total = total
}

// Filled returns the number of slots holding a part.
func (b Build) Filled() int {
	n := 0
	for _, p := range b.Parts {
		if p != nil {
			n++
		}
	}
	return n
}

// Empty reports whether no slot has been filled.
func (b Build) Empty() bool {
	return b.Filled() == 0
}

// Clone returns a deep copy, so callers can hand out snapshots safely.
func (b Build) Clone() Build {
	out := Build{Total: b.Total, Budget: b.Budget}
	for i, p := range b.Parts {
		if p != nil {
			c := *p
			if p.Stock != nil {
				stock := *p.Stock
				c.Stock = &stock
			}
			out.Parts[i] = &c
		}
	}
	return out
}

// Equal compares builds by value.
func (b Build) Equal(o Build) bool {
	if !b.Total.Equal(o.Total) || !b.Budget.Equal(o.Budget) {
		return false
	}
	for i := range b.Parts {
		x, y := b.Parts[i], o.Parts[i]
		if (x == nil) != (y == nil) {
			return false
		}
		if x != nil && !x.Equal(*y) {
			return false
		}
	}
	return true
}

type buildJSON struct {
	Budget decimal.Decimal            `json:"budget"`
	Total  decimal.Decimal            `json:"total"`
	Parts  map[string]*ProductSummary `json:"parts"`
}

func (b Build) MarshalJSON() ([]byte, error) {
	out := buildJSON{
		Budget: b.Budget,
		Total:  b.Total,
		Parts:  make(map[string]*ProductSummary, slotCount),
	}
	for i, p := range b.Parts {
		if p != nil {
			out.Parts[slotNames[i]] = p
		}
	}
	return json.Marshal(out)
}

func (b *Build) UnmarshalJSON(data []byte) error {
	var in buildJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = Build{Budget: in.Budget, Total: in.Total}
	for name, p := range in.Parts {
		s, ok := ParseSlot(name)
		if !ok {
			return fmt.Errorf("unknown build slot %q", name)
		}
		if p != nil {
			b.SetPart(s, *p)
		}
	}
	return nil
}
