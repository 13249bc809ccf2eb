package page

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"flowork/terminal/internal/cache"
	"flowork/terminal/internal/cart"
	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/view"
)

type salesConfig struct {
	SearchURL        string `json:"search_url" validate:"required"`
	SettingsURL      string `json:"settings_url" validate:"required"`
	SubmitURL        string `json:"submit_url" validate:"required"`
	RefundURL        string `json:"refund_url" validate:"required"`
	RefundRecordsURL string `json:"refund_records_url" validate:"required"`
	SaleDetailsURL   string `json:"sale_details_url" validate:"required"`
	TerminalID       string `json:"terminal_id"`
}

type salesPage struct {
	base
	cfg salesConfig

	register *cart.Register
	rules    []domain.DiscountRule
	loaded   bool

	saleDate    string
	refundStart string
	refundEnd   string

	query    string
	searched bool
	results  []domain.ProductSummary

	detailTitle  string
	variants     []domain.Variant
	recordsTitle string
	records      []domain.RefundRecord
}

func newSales(raw map[string]string, deps Deps, notes notify.Notifier) (*salesPage, error) {
	var cfg salesConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &salesPage{cfg: cfg, register: cart.NewRegister()}
	p.init(KindSales, deps, notes)
	p.resetDates()
	p.actions = map[string]handler{
		"load_settings":    p.loadSettings,
		"set_mode":         p.setMode,
		"toggle_online":    p.toggleOnline,
		"set_sale_date":    p.setSaleDate,
		"set_refund_range": p.setRefundRange,
		"search":           p.search,
		"open_result":      p.openResult,
		"add_variant":      p.addVariant,
		"close_modal":      p.closeModal,
		"load_refund":      p.loadRefund,
		"cancel_refund":    p.cancelRefund,
		"set_quantity":     p.setQuantity,
		"set_discount":     p.setDiscount,
		"remove_line":      p.removeLine,
		"clear_cart":       p.clearCart,
		"auto_discount":    p.autoDiscount,
		"toggle_hold":      p.toggleHold,
		"submit_sale":      p.submitSale,
		"submit_refund":    p.submitRefund,
	}
	return p, nil
}

func (p *salesPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := p.register.Cart().Lines()
	_, receipt, _ := p.register.RefundTarget()
	return view.Sales(view.SalesState{
		Mode:          p.register.Mode(),
		Online:        p.register.Online(),
		SaleDate:      p.saleDate,
		RefundStart:   p.refundStart,
		RefundEnd:     p.refundEnd,
		Query:         p.query,
		Searched:      p.searched,
		Results:       p.results,
		DetailTitle:   p.detailTitle,
		Variants:      p.variants,
		RecordsTitle:  p.recordsTitle,
		Records:       p.records,
		Lines:         lines,
		Totals:        p.register.Cart().Totals(),
		Held:          p.register.HasHeld(),
		RefundReceipt: receipt,
	}, p.deps.Format)
}

func (p *salesPage) resetDates() {
	now := p.now()
	f := p.deps.Format
	p.saleDate = f.Today(now)
	p.refundEnd = f.Today(now)
	p.refundStart = f.Date(f.MonthAgo(now))
}

func (p *salesPage) heldKey() string {
	if p.cfg.TerminalID == "" {
		return ""
	}
	return cache.HeldCartKey(p.cfg.TerminalID)
}

// loadSettings fetches the discount rules and picks up a cart held by a
// previous session of the same terminal.
func (p *salesPage) loadSettings(ctx context.Context, _ json.RawMessage) error {
	if err := p.ensureRules(ctx); err != nil {
		p.fail(ctx, err)
		return nil
	}
	if key := p.heldKey(); key != "" && !p.register.HasHeld() {
		var held []cart.Line
		ok, err := p.deps.Cache.GetJSON(ctx, key, &held)
		if err != nil {
			p.deps.Logger.Warn(ctx, "read held cart: "+err.Error())
		}
		if ok && p.register.AdoptHeld(held) {
			p.notes.Toast(notify.Info, "보류된 판매가 있습니다.")
		}
	}
	return nil
}

func (p *salesPage) ensureRules(ctx context.Context) error {
	if p.loaded {
		return nil
	}
	key := cache.SettingsKey(p.cfg.SettingsURL)
	var settings domain.SalesSettings
	ok, err := p.deps.Cache.GetJSON(ctx, key, &settings)
	if err != nil {
		p.deps.Logger.Warn(ctx, "read cached sales settings: "+err.Error())
	}
	if !ok {
		settings, err = p.deps.Client.SalesSettings(ctx, p.cfg.SettingsURL)
		if err != nil {
			return err
		}
		if err := p.deps.Cache.SetJSON(ctx, key, settings, p.deps.SettingsTTL); err != nil {
			p.deps.Logger.Warn(ctx, "cache sales settings: "+err.Error())
		}
	}
	p.rules = settings.AmountDiscounts
	p.loaded = true
	return nil
}

func (p *salesPage) clearResults() {
	p.query = ""
	p.searched = false
	p.results = nil
	p.closeDialogs()
}

func (p *salesPage) closeDialogs() {
	p.detailTitle, p.variants = "", nil
	p.recordsTitle, p.records = "", nil
}

func (p *salesPage) setMode(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Mode string `json:"mode"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	mode, err := cart.ParseMode(in.Mode)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	if err := p.register.SetMode(mode); err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.clearResults()
	p.resetDates()
	return nil
}

func (p *salesPage) toggleOnline(context.Context, json.RawMessage) error {
	p.register.ToggleOnline()
	return nil
}

func (p *salesPage) setSaleDate(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		SaleDate string `json:"sale_date"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if _, err := p.deps.Format.ParseDate(in.SaleDate); err != nil {
		p.reject("날짜 형식이 올바르지 않습니다.")
		return nil
	}
	p.saleDate = in.SaleDate
	return nil
}

func (p *salesPage) setRefundRange(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	start, err1 := p.deps.Format.ParseDate(in.Start)
	end, err2 := p.deps.Format.ParseDate(in.End)
	if err1 != nil || err2 != nil || end.Before(start) {
		p.reject("날짜 범위가 잘못되었습니다.")
		return nil
	}
	p.refundStart, p.refundEnd = in.Start, in.End
	return nil
}

func (p *salesPage) search(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Query string `json:"query"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	p.query = in.Query
	req := domain.SearchRequest{Query: in.Query, Mode: string(p.register.Mode())}
	if p.register.Mode() == cart.ModeRefund {
		req.StartDate, req.EndDate = p.refundStart, p.refundEnd
	}
	resp, err := p.deps.Client.SearchProducts(ctx, p.cfg.SearchURL, req)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.closeDialogs()

	if resp.MatchType == domain.MatchVariant && resp.Result != nil {
		if p.register.Mode() == cart.ModeSales {
			p.register.Cart().AddLine(cart.LineFromVariant(*resp.Result), 1)
			p.query = ""
			p.searched = false
			p.results = nil
			return nil
		}
		v := resp.Result
		p.searched = true
		p.results = []domain.ProductSummary{{
			ProductNumber: v.ProductNumber,
			ProductName:   v.ProductName,
			Color:         v.Color,
			OriginalPrice: v.OriginalPrice,
			SalePrice:     v.SalePrice,
		}}
		return nil
	}
	p.searched = true
	p.results = resp.Results
	return nil
}

func (p *salesPage) openResult(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int `json:"index"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	idx := int(in.Index)
	if idx < 0 || idx >= len(p.results) {
		return errors.Wrapf(ErrBadPayload, "result %d", idx)
	}
	r := p.results[idx]

	if p.register.Mode() == cart.ModeRefund {
		records, err := p.deps.Client.RefundRecords(ctx, p.cfg.RefundRecordsURL, domain.RefundRecordsRequest{
			ProductNumber: r.ProductNumber,
			Color:         r.Color,
			StartDate:     p.refundStart,
			EndDate:       p.refundEnd,
		})
		if err != nil {
			p.fail(ctx, err)
			return nil
		}
		p.closeDialogs()
		p.recordsTitle = fmt.Sprintf("판매 기록: %s (%s)", r.ProductNumber, r.Color)
		p.records = records
		return nil
	}

	resp, err := p.deps.Client.SearchProducts(ctx, p.cfg.SearchURL, domain.SearchRequest{
		Query: r.ProductNumber,
		Mode:  domain.SearchModeDetailStock,
	})
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	variants := make([]domain.Variant, 0, len(resp.Variants))
	for _, v := range resp.Variants {
		if r.Color == "" || v.Color == r.Color {
			variants = append(variants, v)
		}
	}
	p.closeDialogs()
	p.detailTitle = fmt.Sprintf("%s (%s)", r.ProductName, r.ProductNumber)
	p.variants = variants
	return nil
}

func (p *salesPage) addVariant(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int `json:"index"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	idx := int(in.Index)
	if idx < 0 || idx >= len(p.variants) {
		return errors.Wrapf(ErrBadPayload, "variant %d", idx)
	}
	p.register.Cart().AddLine(cart.LineFromVariant(p.variants[idx]), 1)
	p.closeDialogs()
	return nil
}

func (p *salesPage) closeModal(context.Context, json.RawMessage) error {
	p.closeDialogs()
	return nil
}

func (p *salesPage) loadRefund(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		SaleID        Int    `json:"sale_id"`
		ReceiptNumber string `json:"receipt_number"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if p.register.Mode() != cart.ModeRefund {
		p.fail(ctx, cart.ErrWrongMode)
		return nil
	}
	items, err := p.deps.Client.SaleDetails(ctx, p.cfg.SaleDetailsURL, int64(in.SaleID))
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	if err := p.register.LoadRefund(int64(in.SaleID), in.ReceiptNumber, items); err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.closeDialogs()
	return nil
}

func (p *salesPage) cancelRefund(context.Context, json.RawMessage) error {
	p.register.ResetRefund()
	return nil
}

func (p *salesPage) setQuantity(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index    Int `json:"index"`
		Quantity Int `json:"quantity"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.register.Cart().SetQuantity(int(in.Index), int(in.Quantity)) {
		p.rejected = true
	}
	return nil
}

func (p *salesPage) setDiscount(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index  Int `json:"index"`
		Amount Int `json:"amount"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.register.Cart().SetDiscount(int(in.Index), int64(in.Amount)) {
		p.rejected = true
	}
	return nil
}

func (p *salesPage) removeLine(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int `json:"index"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.register.Cart().RemoveLine(int(in.Index)) {
		p.rejected = true
	}
	return nil
}

func (p *salesPage) clearCart(context.Context, json.RawMessage) error {
	p.register.Cart().Clear()
	return nil
}

func (p *salesPage) autoDiscount(ctx context.Context, _ json.RawMessage) error {
	c := p.register.Cart()
	if c.Empty() {
		p.fail(ctx, cart.ErrEmptyCart)
		return nil
	}
	if err := p.ensureRules(ctx); err != nil {
		p.fail(ctx, err)
		return nil
	}
	rule, ok := c.ApplyAutoDiscount(p.rules)
	if !ok {
		p.notes.Toast(notify.Info, "적용 가능한 할인 규칙이 없습니다.")
		return nil
	}
	f := p.deps.Format
	p.notes.Toast(notify.Success, fmt.Sprintf("%s원 이상: %s원 할인 적용", f.Number(rule.Limit), f.Number(rule.Discount)))
	return nil
}

func (p *salesPage) toggleHold(ctx context.Context, _ json.RawMessage) error {
	key := p.heldKey()
	if p.register.HasHeld() {
		if !p.confirm(ctx, "보류된 판매 목록을 복원하시겠습니까?") {
			return nil
		}
		if err := p.register.Restore(); err != nil {
			p.fail(ctx, err)
			return nil
		}
		if key != "" {
			if err := p.deps.Cache.Delete(ctx, key); err != nil {
				p.deps.Logger.Warn(ctx, "drop held cart: "+err.Error())
			}
		}
		return nil
	}
	if err := p.register.Hold(); err != nil {
		p.fail(ctx, err)
		return nil
	}
	if key != "" {
		if err := p.deps.Cache.SetJSON(ctx, key, p.register.Held(), p.deps.HeldCartTTL); err != nil {
			p.deps.Logger.Warn(ctx, "store held cart: "+err.Error())
		}
	}
	p.notes.Toast(notify.Info, "판매가 보류되었습니다.")
	return nil
}

func (p *salesPage) submitSale(ctx context.Context, _ json.RawMessage) error {
	req, err := p.register.SaleRequest(p.saleDate)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	if !p.confirm(ctx, "판매를 등록하시겠습니까?") {
		return nil
	}
	resp, err := p.deps.Client.SubmitSale(ctx, p.cfg.SubmitURL, req)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.register.Cart().Clear()
	p.clearResults()
	msg := "판매 등록 완료"
	if resp.ReceiptNumber != "" {
		msg += " (" + resp.ReceiptNumber + ")"
	}
	p.notes.Toast(notify.Success, msg)
	return nil
}

func (p *salesPage) submitRefund(ctx context.Context, _ json.RawMessage) error {
	saleID, _, err := p.register.RefundTarget()
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	if !managerApproved(ctx) {
		p.reject("관리자 PIN 확인이 필요합니다.")
		return nil
	}
	if !p.confirm(ctx, "전체 환불 처리하시겠습니까?") {
		return nil
	}
	if _, err := p.deps.Client.RefundSale(ctx, p.cfg.RefundURL, saleID); err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.register.ResetRefund()
	p.clearResults()
	p.notes.Toast(notify.Success, "환불 완료")
	return nil
}
