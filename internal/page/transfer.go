package page

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/view"
)

// variantPicker narrows a product number down to one variant: the search
// gives product numbers, the product gives colors, the color gives sizes.
type variantPicker struct {
	searchURL  string
	variantURL string

	state    view.PickerState
	variants []domain.Variant
}

func (v *variantPicker) view() view.PickerState {
	s := v.state
	s.Results = slices.Clone(v.state.Results)
	s.Sizes = slices.Clone(v.state.Sizes)
	return s
}

func (v *variantPicker) reset() {
	v.state = view.PickerState{}
	v.variants = nil
}

func (v *variantPicker) selected() (domain.Variant, bool) {
	for _, vr := range v.state.Sizes {
		if vr.VariantID == v.state.VariantID && vr.VariantID != 0 {
			return vr, true
		}
	}
	return domain.Variant{}, false
}

func (b *base) pickerSearch(ctx context.Context, v *variantPicker, payload json.RawMessage) error {
	var in struct {
		Query string `json:"query"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	in.Query = strings.TrimSpace(in.Query)
	v.state.Query = in.Query
	if in.Query == "" {
		b.reject("품번을 입력하세요.")
		return nil
	}
	results, err := b.deps.Client.ProductSearch(ctx, v.searchURL, in.Query)
	if err != nil {
		b.fail(ctx, err)
		return nil
	}
	v.state.Results = results
	v.state.Searched = true
	return nil
}

func (b *base) pickerProduct(ctx context.Context, v *variantPicker, payload json.RawMessage) error {
	var in struct {
		ProductNumber string `json:"product_number"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.ProductNumber == "" {
		return errors.Wrap(ErrBadPayload, "product_number is empty")
	}
	resp, err := b.deps.Client.SearchProducts(ctx, v.variantURL, domain.SearchRequest{
		Query: in.ProductNumber,
		Mode:  domain.SearchModeDetailStock,
	})
	if err != nil {
		b.fail(ctx, err)
		return nil
	}

	variants := resp.Variants
	if resp.Result != nil && len(variants) == 0 {
		variants = []domain.Variant{*resp.Result}
	}
	query := v.state.Query
	v.reset()
	v.state.Query = query
	v.state.ProductNumber = in.ProductNumber
	for _, vr := range variants {
		if vr.ProductNumber != "" && vr.ProductNumber != in.ProductNumber {
			continue
		}
		v.variants = append(v.variants, vr)
		if !slices.Contains(v.state.Colors, vr.Color) {
			v.state.Colors = append(v.state.Colors, vr.Color)
		}
	}
	if len(v.variants) == 0 {
		b.reject("옵션 정보가 없습니다.")
	}
	return nil
}

func (b *base) pickerColor(v *variantPicker, payload json.RawMessage) error {
	var in struct {
		Color string `json:"color"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Color != "" && !slices.Contains(v.state.Colors, in.Color) {
		return errors.Wrapf(ErrBadPayload, "color %q", in.Color)
	}
	v.state.Color = in.Color
	v.state.VariantID = 0
	v.state.Sizes = nil
	for _, vr := range v.variants {
		if in.Color != "" && vr.Color == in.Color {
			v.state.Sizes = append(v.state.Sizes, vr)
		}
	}
	return nil
}

func (b *base) pickerSize(v *variantPicker, payload json.RawMessage) error {
	var in struct {
		VariantID Int `json:"variant_id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.VariantID == 0 {
		v.state.VariantID = 0
		return nil
	}
	for _, vr := range v.state.Sizes {
		if vr.VariantID == int64(in.VariantID) {
			v.state.VariantID = vr.VariantID
			return nil
		}
	}
	return errors.Wrapf(ErrBadPayload, "variant %d is not a size of %q", in.VariantID, v.state.Color)
}

type transferConfig struct {
	ProductSearchURL string `json:"product_search_url" validate:"required"`
	SearchURL        string `json:"search_url" validate:"required"`
	RequestURL       string `json:"request_url" validate:"required"`
	ActionURL        string `json:"action_url" validate:"required"`
	Stores           string `json:"stores"`
	Transfers        string `json:"transfers"`
}

type transferPage struct {
	base
	cfg    transferConfig
	picker variantPicker

	stores    []domain.Store
	source    int64
	quantity  int
	transfers []domain.Transfer
}

func newTransfer(raw map[string]string, deps Deps, notes notify.Notifier) (*transferPage, error) {
	var cfg transferConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &transferPage{
		cfg:    cfg,
		picker: variantPicker{searchURL: cfg.ProductSearchURL, variantURL: cfg.SearchURL},
	}
	if err := unmarshalConfig("stores", cfg.Stores, &p.stores); err != nil {
		return nil, err
	}
	if err := unmarshalConfig("transfers", cfg.Transfers, &p.transfers); err != nil {
		return nil, err
	}
	p.init(KindStockTransfer, deps, notes)
	p.actions = map[string]handler{
		"search_product": func(ctx context.Context, payload json.RawMessage) error {
			return p.pickerSearch(ctx, &p.picker, payload)
		},
		"select_product": func(ctx context.Context, payload json.RawMessage) error {
			return p.pickerProduct(ctx, &p.picker, payload)
		},
		"select_color": func(_ context.Context, payload json.RawMessage) error {
			return p.pickerColor(&p.picker, payload)
		},
		"select_size": func(_ context.Context, payload json.RawMessage) error {
			return p.pickerSize(&p.picker, payload)
		},
		"set_source": p.setSource,
		"request":    p.request,
		"ship":       p.transition(domain.TransferShip, "출고 확정하시겠습니까?"),
		"reject":     p.transition(domain.TransferReject, "요청을 거부하시겠습니까?"),
		"receive":    p.transition(domain.TransferReceive, "물품을 수령하셨습니까?"),
	}
	return p, nil
}

func unmarshalConfig(key, value string, dst any) error {
	if value == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return errors.Wrapf(err, "invalid page config: %s", key)
	}
	return nil
}

func (p *transferPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return view.Transfer(view.TransferState{
		Picker:        p.picker.view(),
		Stores:        p.stores,
		SourceStoreID: p.source,
		Quantity:      p.quantity,
		Transfers:     slices.Clone(p.transfers),
	})
}

func (p *transferPage) setSource(_ context.Context, payload json.RawMessage) error {
	var in struct {
		SourceStoreID Int `json:"source_store_id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	p.source = int64(in.SourceStoreID)
	return nil
}

func (p *transferPage) request(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		SourceStoreID *Int `json:"source_store_id"`
		Quantity      Int  `json:"quantity"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.SourceStoreID != nil {
		p.source = int64(*in.SourceStoreID)
	}
	p.quantity = int(in.Quantity)

	variant, ok := p.picker.selected()
	if !ok || p.source == 0 || p.quantity <= 0 {
		p.reject("모든 항목을 입력하세요.")
		return nil
	}
	msg, err := p.deps.Client.RequestTransfer(ctx, p.cfg.RequestURL, domain.TransferRequest{
		SourceStoreID: p.source,
		VariantID:     variant.VariantID,
		Quantity:      p.quantity,
	})
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.notes.Toast(notify.Success, orDefault(msg, "요청되었습니다."))

	t := domain.Transfer{
		Direction:     domain.DirectionIncoming,
		Status:        domain.TransferRequested,
		ProductNumber: variant.ProductNumber,
		ProductName:   variant.ProductName,
		Color:         variant.Color,
		Size:          variant.Size,
		Quantity:      p.quantity,
		RequestedAt:   p.deps.Format.Today(p.now()),
	}
	for _, st := range p.stores {
		if st.ID == p.source {
			t.StoreName = st.StoreName
		}
	}
	p.transfers = append([]domain.Transfer{t}, p.transfers...)
	p.picker.reset()
	p.source, p.quantity = 0, 0
	return nil
}

// transitionRules lists which side may move a transfer out of which status.
var transitionRules = map[string]struct {
	direction string
	from      string
	to        string
}{
	domain.TransferShip:    {domain.DirectionOutgoing, domain.TransferRequested, domain.TransferShipped},
	domain.TransferReject:  {domain.DirectionOutgoing, domain.TransferRequested, domain.TransferRejected},
	domain.TransferReceive: {domain.DirectionIncoming, domain.TransferShipped, domain.TransferReceived},
}

func (p *transferPage) transition(action, question string) handler {
	rule := transitionRules[action]
	return func(ctx context.Context, payload json.RawMessage) error {
		var in struct {
			ID Int `json:"id"`
		}
		if err := decode(payload, &in); err != nil {
			return err
		}
		idx := slices.IndexFunc(p.transfers, func(t domain.Transfer) bool { return t.ID == int64(in.ID) })
		if idx >= 0 {
			t := p.transfers[idx]
			if t.Direction != rule.direction || t.Status != rule.from {
				p.reject("처리할 수 없는 상태입니다.")
				return nil
			}
		}
		if !p.confirm(ctx, question) {
			return nil
		}
		msg, err := p.deps.Client.TransferAction(ctx, p.cfg.ActionURL, int64(in.ID), action)
		if err != nil {
			p.fail(ctx, err)
			return nil
		}
		if idx >= 0 {
			p.transfers[idx].Status = rule.to
		}
		p.notes.Toast(notify.Success, orDefault(msg, "처리되었습니다."))
		return nil
	}
}

type storeOrderConfig struct {
	ProductSearchURL string `json:"product_search_url" validate:"required"`
	SearchURL        string `json:"search_url" validate:"required"`
	CreateURL        string `json:"create_url" validate:"required"`
	StatusPrefix     string `json:"status_prefix" validate:"required"`
	Manage           Flag   `json:"manage"`
	Orders           string `json:"orders"`
}

type storeOrderPage struct {
	base
	cfg    storeOrderConfig
	picker variantPicker

	quantity int
	date     string
	orders   []domain.StoreOrder
}

func newStoreOrder(raw map[string]string, deps Deps, notes notify.Notifier) (*storeOrderPage, error) {
	var cfg storeOrderConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &storeOrderPage{
		cfg:    cfg,
		picker: variantPicker{searchURL: cfg.ProductSearchURL, variantURL: cfg.SearchURL},
	}
	if err := unmarshalConfig("orders", cfg.Orders, &p.orders); err != nil {
		return nil, err
	}
	p.init(KindStoreOrder, deps, notes)
	p.actions = map[string]handler{
		"search_product": func(ctx context.Context, payload json.RawMessage) error {
			return p.pickerSearch(ctx, &p.picker, payload)
		},
		"select_product": func(ctx context.Context, payload json.RawMessage) error {
			return p.pickerProduct(ctx, &p.picker, payload)
		},
		"select_color": func(_ context.Context, payload json.RawMessage) error {
			return p.pickerColor(&p.picker, payload)
		},
		"select_size": func(_ context.Context, payload json.RawMessage) error {
			return p.pickerSize(&p.picker, payload)
		},
		"create":  p.create,
		"approve": p.approve,
		"reject":  p.rejectOrder,
	}
	return p, nil
}

func (p *storeOrderPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	date := p.date
	if date == "" {
		date = p.deps.Format.Today(p.now())
	}
	return view.StoreOrder(view.StoreOrderState{
		Picker:   p.picker.view(),
		Quantity: p.quantity,
		Date:     date,
		Orders:   slices.Clone(p.orders),
		Manage:   bool(p.cfg.Manage),
	})
}

func (p *storeOrderPage) create(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Quantity Int    `json:"quantity"`
		Date     string `json:"date"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	p.quantity = int(in.Quantity)
	p.date = strings.TrimSpace(in.Date)

	variant, ok := p.picker.selected()
	if !ok {
		p.reject("상품을 선택하세요.")
		return nil
	}
	if p.quantity <= 0 {
		p.reject("수량을 입력하세요.")
		return nil
	}
	if p.date == "" {
		p.date = p.deps.Format.Today(p.now())
	} else if _, err := p.deps.Format.ParseDate(p.date); err != nil {
		return errors.Wrapf(ErrBadPayload, "date %q", p.date)
	}

	msg, err := p.deps.Client.CreateStoreOrder(ctx, p.cfg.CreateURL, domain.StoreOrderRequest{
		VariantID: variant.VariantID,
		Quantity:  p.quantity,
		Date:      p.date,
	})
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.notes.Toast(notify.Success, orDefault(msg, "주문이 요청되었습니다."))
	p.orders = append([]domain.StoreOrder{{
		Date:          p.date,
		ProductNumber: variant.ProductNumber,
		ProductName:   variant.ProductName,
		Color:         variant.Color,
		Size:          variant.Size,
		Quantity:      p.quantity,
		Status:        domain.StoreOrderRequested,
	}}, p.orders...)
	p.picker.reset()
	p.quantity = 0
	return nil
}

func (p *storeOrderPage) find(id int64) int {
	return slices.IndexFunc(p.orders, func(o domain.StoreOrder) bool { return o.ID == id })
}

func (p *storeOrderPage) approve(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		ID                Int  `json:"id"`
		ConfirmedQuantity *Int `json:"confirmed_quantity"`
		Qty               *Int `json:"qty"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.cfg.Manage {
		p.reject("권한이 없습니다.")
		return nil
	}
	idx := p.find(int64(in.ID))
	qty := -1
	switch {
	case in.ConfirmedQuantity != nil:
		qty = int(*in.ConfirmedQuantity)
	case in.Qty != nil:
		qty = int(*in.Qty)
	case idx >= 0:
		qty = p.orders[idx].Quantity
	}
	if qty < 0 {
		p.reject("확정 수량을 입력하세요.")
		return nil
	}
	return p.setStatus(ctx, idx, int64(in.ID), domain.StoreOrderStatus{
		Status:            domain.StoreOrderApproved,
		ConfirmedQuantity: qty,
	})
}

func (p *storeOrderPage) rejectOrder(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		ID Int `json:"id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.cfg.Manage {
		p.reject("권한이 없습니다.")
		return nil
	}
	if !p.confirm(ctx, "거절하시겠습니까?") {
		return nil
	}
	return p.setStatus(ctx, p.find(int64(in.ID)), int64(in.ID), domain.StoreOrderStatus{
		Status: domain.StoreOrderRejected,
	})
}

func (p *storeOrderPage) setStatus(ctx context.Context, idx int, id int64, st domain.StoreOrderStatus) error {
	if idx >= 0 && p.orders[idx].Status != domain.StoreOrderRequested {
		p.reject("이미 처리된 주문입니다.")
		return nil
	}
	msg, err := p.deps.Client.UpdateStoreOrderStatus(ctx, p.cfg.StatusPrefix, id, st)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	if idx >= 0 {
		p.orders[idx].Status = st.Status
		p.orders[idx].ConfirmedQuantity = st.ConfirmedQuantity
	}
	p.notes.Toast(notify.Success, orDefault(msg, "처리되었습니다."))
	return nil
}
