package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/pricing"
)

// Handler wires cart sessions to HTTP.
type Handler struct {
	Registry *Registry
	Catalog  *catalog.Service
	Validate *validator.Validate
	Currency string
}

type addLineRequest struct {
	ProductID     string `json:"productId" validate:"required,uuid"`
	VariantID     string `json:"variantId" validate:"omitempty,uuid"`
	Qty           int32  `json:"qty"`
	CardUnitPrice string `json:"cardUnitPrice"`
	CashUnitPrice string `json:"cashUnitPrice"`
	Taxable       *bool  `json:"taxable"`
}

type updateLineRequest struct {
	Qty int32 `json:"qty"`
}

type discountRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=percent amount"`
	Percent string `json:"percent" validate:"required_if=Kind percent"`
	Amount  string `json:"amount" validate:"required_if=Kind amount"`
	Reason  string `json:"reason" validate:"max=200"`
}

type paymentModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=card cash"`
}

// Create opens a new cart session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart registry not configured", nil)
		return
	}
	s := h.Registry.Create()
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.viewBody(s)})
}

// Get returns the lines and the current pricing snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// Snapshot returns only the current pricing snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view := s.Current()
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"version":  view.Version,
		"snapshot": view.Snapshot,
		"currency": h.Currency,
	}})
}

// AddLine adds a product to the cart. Prices may be supplied inline by the
// terminal or resolved from the catalog when omitted.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload addLineRequest
	if !h.decode(w, r, &payload) {
		return
	}

	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid product id", nil)
		return
	}
	var variantID *uuid.UUID
	if payload.VariantID != "" {
		parsed, err := uuid.Parse(payload.VariantID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid variant id", nil)
			return
		}
		variantID = &parsed
	}

	card := common.MoneyDefault(payload.CardUnitPrice, money.Zero)
	cash := common.MoneyDefault(payload.CashUnitPrice, money.Zero)
	taxable := payload.Taxable != nil && *payload.Taxable
	if card.IsZero() && cash.IsZero() && h.Catalog != nil {
		card, cash, taxable, err = h.Catalog.Prices(r.Context(), payload.ProductID, payload.VariantID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "unknown product", nil)
				return
			}
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "unable to resolve product prices", nil)
			return
		}
		if payload.Taxable != nil {
			taxable = *payload.Taxable
		}
	}
	if cash.IsZero() && !card.IsZero() {
		cash = card
	}

	line, err := s.AddLine(AddLineInput{
		ProductID:     productID,
		VariantID:     variantID,
		Qty:           payload.Qty,
		CardUnitPrice: card,
		CashUnitPrice: cash,
		Taxable:       taxable,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"line": h.lineBody(line, s.Mode()),
		"view": h.viewBody(s),
	}})
}

// UpdateLine sets a line's quantity. Zero or negative removes the line.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}
	var payload updateLineRequest
	if !h.decode(w, r, &payload) {
		return
	}
	if err := s.UpdateLineQty(lineID, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// SetLineDiscount attaches a product-level discount to a line.
func (h *Handler) SetLineDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}
	var payload discountRequest
	if !h.decode(w, r, &payload) {
		return
	}
	d, ok := h.discount(w, payload)
	if !ok {
		return
	}
	if err := s.SetLineDiscount(lineID, &d); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// ClearLineDiscount removes a line's product-level discount.
func (h *Handler) ClearLineDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}
	if err := s.SetLineDiscount(lineID, nil); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// RemoveLine deletes a line from the cart.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	lineID, ok := h.lineID(w, r)
	if !ok {
		return
	}
	if err := s.RemoveLine(lineID); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// SetPaymentMode switches the tender mode.
func (h *Handler) SetPaymentMode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload paymentModeRequest
	if !h.decode(w, r, &payload) {
		return
	}
	if err := s.SetPaymentMode(pricing.Mode(payload.Mode)); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// AddDiscount appends an order-level discount to the stack.
func (h *Handler) AddDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload discountRequest
	if !h.decode(w, r, &payload) {
		return
	}
	d, ok := h.discount(w, payload)
	if !ok {
		return
	}
	applied, err := s.AddOrderDiscount(d)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"discountId": applied.ID.String(),
		"view":       h.viewBody(s),
	}})
}

// RemoveDiscount removes one order-level discount by id.
func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	discountID, err := uuid.Parse(chi.URLParam(r, "discountId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid discount id", nil)
		return
	}
	if err := s.RemoveOrderDiscount(discountID); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// ClearDiscounts removes every order-level discount.
func (h *Handler) ClearDiscounts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveAllOrderDiscounts(); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// Clear empties the cart and resets tender mode and discounts.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Clear(); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.viewBody(s)})
}

// Close tears the session down entirely.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.Registry.Delete(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "cart registry not configured", nil)
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid cart id", nil)
		return nil, false
	}
	s, ok := h.Registry.Get(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart not found", nil)
		return nil, false
	}
	return s, true
}

func (h *Handler) lineID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "lineId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid line id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "malformed json body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", map[string]any{"error": err.Error()})
			return false
		}
	}
	return true
}

// discount converts the wire payload into an engine discount. Percent values
// arrive as free text ("10", "7.5") and are stored as basis points; bounds
// are enforced here per the terminal dialog contract.
func (h *Handler) discount(w http.ResponseWriter, payload discountRequest) (pricing.Discount, bool) {
	switch payload.Kind {
	case "percent":
		parsed, err := decimal.NewFromString(strings.TrimSpace(payload.Percent))
		if err != nil || parsed.IsNegative() || parsed.GreaterThan(decimal.NewFromInt(100)) {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "percent must be within (0, 100]", nil)
			return pricing.Discount{}, false
		}
		bps := int32(parsed.Shift(2).Round(0).IntPart())
		if bps <= 0 {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "percent must be within (0, 100]", nil)
			return pricing.Discount{}, false
		}
		return pricing.Discount{ID: uuid.New(), Kind: pricing.KindPercent, Bps: bps, Reason: payload.Reason}, true
	case "amount":
		amount := common.MoneyDefault(payload.Amount, money.Zero)
		if !amount.IsPositive() {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "amount must be positive", nil)
			return pricing.Discount{}, false
		}
		return pricing.Discount{ID: uuid.New(), Kind: pricing.KindAmount, Amount: amount, Reason: payload.Reason}, true
	default:
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "unknown discount kind", nil)
		return pricing.Discount{}, false
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var app *common.AppError
	switch {
	case errors.Is(err, ErrDiscountLocked):
		if obs.GuardRejectionsTotal != nil {
			obs.GuardRejectionsTotal.WithLabelValues("discount_lock").Inc()
		}
		app = common.NewAppError(common.CodeDiscountLocked, "switch back to card tender before changing lines", http.StatusConflict, err)
	case errors.Is(err, ErrNotFound):
		app = common.NewAppError(common.CodeNotFound, "cart entry not found", http.StatusNotFound, err)
	case errors.Is(err, ErrInvalidInput):
		app = common.NewAppError(common.CodeBadRequest, err.Error(), http.StatusBadRequest, err)
	default:
		app = common.NewAppError(common.CodeInternal, "unable to process cart mutation", http.StatusInternalServerError, err)
	}
	common.JSONAppError(w, app)
}

func (h *Handler) viewBody(s *Session) map[string]any {
	view := s.Current()
	lines := make([]map[string]any, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, h.lineBody(l, view.Mode))
	}
	return map[string]any{
		"cartId":      s.ID.String(),
		"version":     view.Version,
		"paymentMode": string(view.Mode),
		"currency":    h.Currency,
		"locked":      view.Mode == pricing.ModeCash && view.Snapshot.CashDiscount.IsPositive(),
		"lines":       lines,
		"snapshot":    view.Snapshot,
	}
}

func (h *Handler) lineBody(l pricing.Line, mode pricing.Mode) map[string]any {
	body := map[string]any{
		"lineId":             l.ID.String(),
		"productId":          l.ProductID.String(),
		"qty":                l.Qty,
		"cardUnitPrice":      l.CardUnitPrice,
		"cashUnitPrice":      l.CashUnitPrice,
		"taxable":            l.Taxable,
		"effectiveUnitPrice": l.EffectiveUnitPrice(l.UnitPrice(mode)),
		"lineTotal":          l.Total(l.UnitPrice(mode)),
	}
	if l.VariantID != nil {
		body["variantId"] = l.VariantID.String()
	}
	if l.Discount != nil {
		discount := map[string]any{
			"kind":   string(l.Discount.Kind),
			"reason": l.Discount.Reason,
		}
		if l.Discount.Kind == pricing.KindPercent {
			discount["percentBps"] = l.Discount.Bps
		} else {
			discount["amount"] = l.Discount.Amount
		}
		body["discount"] = discount
	}
	return body
}
