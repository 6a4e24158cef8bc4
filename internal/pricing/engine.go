package pricing

import (
	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// Mode selects which unit price a cart line is tendered at.
type Mode string

const (
	// ModeCard prices lines at their card unit price. Default.
	ModeCard Mode = "card"
	// ModeCash prices lines at their cash unit price.
	ModeCash Mode = "cash"
)

// Valid reports whether the mode is one of the supported tender types.
func (m Mode) Valid() bool {
	return m == ModeCard || m == ModeCash
}

// DiscountKind discriminates the discount union.
type DiscountKind string

const (
	// KindPercent reduces the base by a fraction expressed in basis points.
	KindPercent DiscountKind = "percent"
	// KindAmount reduces the base by a fixed monetary amount.
	KindAmount DiscountKind = "amount"
)

// Discount is either a percentage (basis points, 100 bps = 1%) or a fixed
// amount taken off a base value. Bounds (percent <= 100%, amount <= base)
// are validated where discounts are created; the engine clamps at zero
// regardless so an out-of-range discount can never push a value negative.
type Discount struct {
	ID     uuid.UUID
	Kind   DiscountKind
	Bps    int32
	Amount money.Money
	Reason string
}

// ApplyTo returns base reduced by the discount, floored at zero.
func (d Discount) ApplyTo(base money.Money) money.Money {
	switch d.Kind {
	case KindPercent:
		return base.Sub(base.PercentBps(d.Bps)).ClampZero()
	case KindAmount:
		return base.Sub(d.Amount).ClampZero()
	default:
		return base
	}
}

// Line is one product/variant position in a cart. Lines are owned by the
// session; the engine only ever reads them.
type Line struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	Qty           int32
	CardUnitPrice money.Money
	CashUnitPrice money.Money
	Taxable       bool
	Discount      *Discount
}

// EffectiveUnitPrice applies the line's own discount to the given price basis.
func (l Line) EffectiveUnitPrice(basis money.Money) money.Money {
	if l.Discount == nil {
		return basis
	}
	return l.Discount.ApplyTo(basis)
}

// Total is the discounted unit price times quantity on the given basis.
func (l Line) Total(basis money.Money) money.Money {
	return l.EffectiveUnitPrice(basis).MulQty(l.Qty)
}

// UnitPrice returns the card or cash unit price depending on mode.
func (l Line) UnitPrice(mode Mode) money.Money {
	if mode == ModeCash {
		return l.CashUnitPrice
	}
	return l.CardUnitPrice
}

// Snapshot is the immutable result of one recompute. It is replaced whole
// on every mutation, never patched.
type Snapshot struct {
	Subtotal      money.Money `json:"subtotal"`
	CashDiscount  money.Money `json:"cashDiscount"`
	OrderDiscount money.Money `json:"orderDiscount"`
	Tax           money.Money `json:"tax"`
	Total         money.Money `json:"total"`
}

// Compute derives the authoritative totals for the given cart state.
//
// The displayed subtotal is always card-based: product-level discounts are
// reflected in it, tender-mode discounting is not. The cash discount is the
// gap between the card-priced and cash-priced cart and only surfaces once
// cash is selected. Order-level discounts compound against the running
// value in stack order. Because order discounts are not tied to individual
// lines, the taxable base is scaled by the same ratio the whole cart was
// discounted before the flat rate (basis points) applies.
func Compute(lines []Line, mode Mode, stack []Discount, taxBps int32) Snapshot {
	var cardSubtotal, cashSubtotal money.Money
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		cardSubtotal = cardSubtotal.Add(l.Total(l.CardUnitPrice))
		cashSubtotal = cashSubtotal.Add(l.Total(l.CashUnitPrice))
	}

	cashDiscount := money.Zero
	if mode == ModeCash {
		cashDiscount = cardSubtotal.Sub(cashSubtotal).ClampZero()
	}

	running := cardSubtotal
	var orderDiscount money.Money
	for _, d := range stack {
		before := running
		running = d.ApplyTo(running)
		orderDiscount = orderDiscount.Add(before.Sub(running))
	}

	finalSubtotal := running.Sub(cashDiscount).ClampZero()

	var taxableBase money.Money
	for _, l := range lines {
		if l.Qty <= 0 || !l.Taxable {
			continue
		}
		taxableBase = taxableBase.Add(l.Total(l.UnitPrice(mode)))
	}

	ratio := finalSubtotal.RatioOf(cardSubtotal)
	taxableAfterDiscounts := taxableBase.MulRatio(ratio)
	tax := taxableAfterDiscounts.PercentBps(taxBps)

	return Snapshot{
		Subtotal:      cardSubtotal,
		CashDiscount:  cashDiscount,
		OrderDiscount: orderDiscount,
		Tax:           tax,
		Total:         finalSubtotal.Add(tax),
	}
}
