package cart

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/pricing"
)

// ErrNotFound indicates the requested line or discount could not be located.
var ErrNotFound = errors.New("cart entry not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrDiscountLocked rejects line mutations while a cash discount is live.
// Switching the session back to card tender releases the lock.
var ErrDiscountLocked = errors.New("cash discount locked")

// View is one consistent, versioned observation of a session. Readers only
// ever see a View produced by a fully completed mutation.
type View struct {
	Version  uint64           `json:"version"`
	Mode     pricing.Mode     `json:"paymentMode"`
	Lines    []pricing.Line   `json:"lines"`
	Snapshot pricing.Snapshot `json:"snapshot"`
	At       time.Time        `json:"at"`
}

// Session is the mutable container for one terminal cart: its lines, the
// order-level discount stack and the tender mode. All mutations serialise
// on an internal mutex, recompute synchronously, and publish the resulting
// snapshot through a single atomic cell.
type Session struct {
	ID     uuid.UUID
	TaxBps int32
	Now    func() time.Time

	// OnRecompute, when set, observes every committed view. Called outside
	// the session lock with an immutable View.
	OnRecompute func(View)

	mu      sync.Mutex
	lines   []pricing.Line
	stack   []pricing.Discount
	mode    pricing.Mode
	version uint64
	view    atomic.Pointer[View]
}

// NewSession constructs an empty session defaulting to card tender.
func NewSession(id uuid.UUID, taxBps int32) *Session {
	s := &Session{ID: id, TaxBps: taxBps, mode: pricing.ModeCard}
	s.publishLocked()
	return s
}

func (s *Session) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AddLineInput carries the data needed to add a product to the cart.
type AddLineInput struct {
	ProductID     uuid.UUID
	VariantID     *uuid.UUID
	Qty           int32
	CardUnitPrice money.Money
	CashUnitPrice money.Money
	Taxable       bool
}

// AddLine inserts a new line or increments the quantity of an existing one
// matching the same product and variant.
func (s *Session) AddLine(in AddLineInput) (pricing.Line, error) {
	if s == nil {
		return pricing.Line{}, errors.New("cart session not configured")
	}
	if in.ProductID == uuid.Nil {
		return pricing.Line{}, fmt.Errorf("product id required: %w", ErrInvalidInput)
	}
	qty := in.Qty
	if qty <= 0 {
		qty = 1
	}

	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].ProductID == in.ProductID && variantEqual(s.lines[i].VariantID, in.VariantID) {
			s.lines[i].Qty += qty
			line := s.lines[i]
			view := s.publishLocked()
			s.mu.Unlock()
			s.notify(view)
			return line, nil
		}
	}
	line := pricing.Line{
		ID:            uuid.New(),
		ProductID:     in.ProductID,
		VariantID:     in.VariantID,
		Qty:           qty,
		CardUnitPrice: in.CardUnitPrice,
		CashUnitPrice: in.CashUnitPrice,
		Taxable:       in.Taxable,
	}
	s.lines = append(s.lines, line)
	view := s.publishLocked()
	s.mu.Unlock()
	s.notify(view)
	return line, nil
}

// UpdateLineQty sets a line's quantity. A quantity of zero or less removes
// the line, which counts as a removal for the discount lock.
func (s *Session) UpdateLineQty(lineID uuid.UUID, qty int32) error {
	if s == nil {
		return errors.New("cart session not configured")
	}
	s.mu.Lock()
	idx := s.indexOfLocked(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if qty <= 0 {
		if s.lockedLocked() {
			s.mu.Unlock()
			return fmt.Errorf("cannot remove line while cash tender is active: %w", ErrDiscountLocked)
		}
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	} else {
		s.lines[idx].Qty = qty
	}
	view := s.publishLocked()
	s.mu.Unlock()
	s.notify(view)
	return nil
}

// SetLineDiscount attaches or clears a line's product-level discount.
func (s *Session) SetLineDiscount(lineID uuid.UUID, d *pricing.Discount) error {
	if s == nil {
		return errors.New("cart session not configured")
	}
	s.mu.Lock()
	idx := s.indexOfLocked(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.lockedLocked() {
		s.mu.Unlock()
		return fmt.Errorf("cannot change line discount while cash tender is active: %w", ErrDiscountLocked)
	}
	s.lines[idx].Discount = d
	view := s.publishLocked()
	s.mu.Unlock()
	s.notify(view)
	return nil
}

// RemoveLine deletes a line from the cart.
func (s *Session) RemoveLine(lineID uuid.UUID) error {
	if s == nil {
		return errors.New("cart session not configured")
	}
	s.mu.Lock()
	idx := s.indexOfLocked(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.lockedLocked() {
		s.mu.Unlock()
		return fmt.Errorf("cannot remove line while cash tender is active: %w", ErrDiscountLocked)
	}
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	view := s.publishLocked()
	s.mu.Unlock()
	s.notify(view)
	return nil
}

// SetPaymentMode switches the tender mode and recomputes every line at the
// newly selected unit price.
func (s *Session) SetPaymentMode(mode pricing.Mode) error {
	if s == nil {
		return errors.New("cart session not configured")
	}
	if !mode.Valid() {
		return fmt.Errorf("unknown payment mode %q: %w", mode, ErrInvalidInput)
	}
	s.mu.Lock()
	s.mode = mode
	view := s.publishLocked()
	s.mu.Unlock()
	s.notify(view)
	return nil
}

// AddOrderDiscount appends a discount to the order-level stack. Insertion
// order is significant: each entry applies to the running, already
// discounted value.
func (s *Session) AddOrderDiscount(d pricing.Discount) (pricing.Discount, error) {
	if s == nil {
		return pricing.Discount{}, errors.New("cart session not configured")
	}
	switch d.Kind {
	case pricing.KindPercent:
		if d.Bps <= 0 || d.Bps > 10000 {
			return pricing.Discount{}, fmt.Errorf("percent must be within (0, 100]: %w", ErrInvalidInput)
		}
	case pricing.KindAmount:
		if !d.Amount.IsPositive() {
			return pricing.Discount{}, fmt.Errorf("amount must be positive: %w", ErrInvalidInput)
		}
	default:
		return pricing.Discount{}, fmt.Errorf("unknown discount kind %q: %w", d.Kind, ErrInvalidInput)
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.mu.Lock()
	s.stack = append(s.stack, d)
	view := s.publishLocked()
	s.mu.Unlock()
	s.notify(view)
	return d, nil
}

// RemoveOrderDiscount removes one stack entry by identity.
func (s *Session) RemoveOrderDiscount(id uuid.UUID) error {
	if s == nil {
		return errors.New("cart session not configured")
	}
	s.mu.Lock()
	for i := range s.stack {
		if s.stack[i].ID == id {
			s.stack = append(s.stack[:i], s.stack[i+1:]...)
			view := s.publishLocked()
			s.mu.Unlock()
			s.notify(view)
			return nil
		}
	}
	s.mu.Unlock()
	return ErrNotFound
}

// RemoveAllOrderDiscounts empties the discount stack.
func (s *Session) RemoveAllOrderDiscounts() error {
	if s == nil {
		return errors.New("cart session not configured")
	}
	s.mu.Lock()
	s.stack = nil
	view := s.publishLocked()
	s.mu.Unlock()
	s.notify(view)
	return nil
}

// Clear empties the cart, resets the tender mode to card and drops the
// discount stack.
func (s *Session) Clear() error {
	if s == nil {
		return errors.New("cart session not configured")
	}
	s.mu.Lock()
	s.lines = nil
	s.stack = nil
	s.mode = pricing.ModeCard
	view := s.publishLocked()
	s.mu.Unlock()
	s.notify(view)
	return nil
}

// Current returns the latest committed view. Never nil after construction.
func (s *Session) Current() View {
	return *s.view.Load()
}

// Snapshot returns the latest committed pricing snapshot.
func (s *Session) Snapshot() pricing.Snapshot {
	return s.view.Load().Snapshot
}

// Lines returns a copy of the lines in the latest committed view.
func (s *Session) Lines() []pricing.Line {
	return s.view.Load().Lines
}

// Mode returns the tender mode of the latest committed view.
func (s *Session) Mode() pricing.Mode {
	return s.view.Load().Mode
}

// Locked reports whether the discount lock is active: cash tender selected
// and a positive cash discount in the committed snapshot.
func (s *Session) Locked() bool {
	v := s.view.Load()
	return v.Mode == pricing.ModeCash && v.Snapshot.CashDiscount.IsPositive()
}

func (s *Session) lockedLocked() bool {
	if s.mode != pricing.ModeCash {
		return false
	}
	return s.view.Load().Snapshot.CashDiscount.IsPositive()
}

func (s *Session) indexOfLocked(lineID uuid.UUID) int {
	for i := range s.lines {
		if s.lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

// publishLocked recomputes over the current state and swaps the view cell.
// Callers must hold s.mu so exactly one recompute commits per mutation.
func (s *Session) publishLocked() View {
	started := time.Now()
	s.version++
	lines := make([]pricing.Line, len(s.lines))
	copy(lines, s.lines)
	view := View{
		Version:  s.version,
		Mode:     s.mode,
		Lines:    lines,
		Snapshot: pricing.Compute(lines, s.mode, s.stack, s.TaxBps),
		At:       s.now(),
	}
	s.view.Store(&view)
	if obs.RecomputeTotal != nil {
		obs.RecomputeTotal.WithLabelValues(string(view.Mode)).Inc()
	}
	if obs.RecomputeDuration != nil {
		obs.RecomputeDuration.Observe(float64(time.Since(started).Microseconds()))
	}
	return view
}

func (s *Session) notify(view View) {
	if s.OnRecompute != nil {
		s.OnRecompute(view)
	}
}

func variantEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
