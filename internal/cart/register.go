package cart

import (
	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
)

type Mode string

const (
	ModeSales  Mode = "sales"
	ModeRefund Mode = "refund"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrAlreadyHeld    = errors.New("a cart is already on hold")
	ErrNothingHeld    = errors.New("no held cart to restore")
	ErrNoRefundTarget = errors.New("no sale selected for refund")
	ErrWrongMode      = errors.New("operation not available in this mode")
	ErrInvalidMode    = errors.New("invalid mode")
)

func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeSales, ModeRefund:
		return Mode(value), nil
	}
	return "", ErrInvalidMode
}

// Register is the transaction state of one sales terminal: the working cart,
// the held snapshot and the refund target.
type Register struct {
	mode          Mode
	cart          Cart
	held          []Line
	refundSaleID  int64
	refundReceipt string
	online        bool
}

func NewRegister() *Register {
	return &Register{mode: ModeSales}
}

func (r *Register) Mode() Mode { return r.mode }

func (r *Register) Cart() *Cart { return &r.cart }

func (r *Register) Online() bool { return r.online }

func (r *Register) ToggleOnline() bool {
	r.online = !r.online
	return r.online
}

// SetMode always clears the cart and the refund target, even when the mode
// does not change.
func (r *Register) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	r.mode = mode
	r.cart.Clear()
	r.clearRefund()
	return nil
}

func (r *Register) HasHeld() bool { return r.held != nil }

// Held returns a copy of the held snapshot, or nil.
func (r *Register) Held() []Line { return cloneLines(r.held) }

// Hold moves the current cart aside.
func (r *Register) Hold() error {
	if r.held != nil {
		return ErrAlreadyHeld
	}
	if r.cart.Empty() {
		return ErrEmptyCart
	}
	r.held = r.cart.Lines()
	r.cart.Clear()
	return nil
}

// Restore swaps the held snapshot back in, discarding the current cart.
// It works once per hold.
func (r *Register) Restore() error {
	if r.held == nil {
		return ErrNothingHeld
	}
	r.cart.Replace(r.held)
	r.held = nil
	return nil
}

// AdoptHeld installs a snapshot recovered from outside the register, such as
// a cache entry from a previous session. It does nothing if one is held.
func (r *Register) AdoptHeld(lines []Line) bool {
	if r.held != nil || len(lines) == 0 {
		return false
	}
	r.held = cloneLines(lines)
	return true
}

// LoadRefund replaces the cart wholesale with the items of a completed sale.
func (r *Register) LoadRefund(saleID int64, receipt string, items []domain.SaleDetailItem) error {
	if r.mode != ModeRefund {
		return ErrWrongMode
	}
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineFromSaleDetail(item))
	}
	r.cart.Replace(lines)
	r.refundSaleID = saleID
	r.refundReceipt = receipt
	return nil
}

func (r *Register) RefundTarget() (int64, string, error) {
	if r.mode != ModeRefund {
		return 0, "", ErrWrongMode
	}
	if r.refundSaleID == 0 {
		return 0, "", ErrNoRefundTarget
	}
	return r.refundSaleID, r.refundReceipt, nil
}

// ResetRefund clears the cart and the refund target after a refund completes.
func (r *Register) ResetRefund() {
	r.cart.Clear()
	r.clearRefund()
}

// SaleRequest builds the submission body for the current cart.
func (r *Register) SaleRequest(saleDate string) (domain.SaleRequest, error) {
	if r.mode != ModeSales {
		return domain.SaleRequest{}, ErrWrongMode
	}
	if r.cart.Empty() {
		return domain.SaleRequest{}, ErrEmptyCart
	}
	return domain.SaleRequest{
		Items:         r.cart.SaleItems(),
		SaleDate:      saleDate,
		PaymentMethod: domain.PaymentCard,
		IsOnline:      r.online,
	}, nil
}

func (r *Register) clearRefund() {
	r.refundSaleID = 0
	r.refundReceipt = ""
}
