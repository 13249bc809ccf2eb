package page

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/view"
)

type orderConfig struct {
	ProductSearchURL string `json:"product_search_url" validate:"required"`
	ProductLookupURL string `json:"product_lookup_url" validate:"required"`
	SubmitURL        string `json:"submit_url" validate:"required"`
	Sources          string `json:"sources"`
	Order            string `json:"order"`
}

type orderPage struct {
	base
	cfg orderConfig

	state view.OrderState
}

func newOrder(raw map[string]string, deps Deps, notes notify.Notifier) (*orderPage, error) {
	var cfg orderConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &orderPage{cfg: cfg}
	if cfg.Sources != "" {
		if err := json.Unmarshal([]byte(cfg.Sources), &p.state.Sources); err != nil {
			return nil, errors.Wrap(err, "invalid page config: sources")
		}
	}
	p.state.Order = domain.Order{ReceptionMethod: domain.ReceptionVisit, Status: domain.OrderStatusOrdered}
	if cfg.Order != "" {
		if err := json.Unmarshal([]byte(cfg.Order), &p.state.Order); err != nil {
			return nil, errors.Wrap(err, "invalid page config: order")
		}
	}
	if len(p.state.Order.Processing) == 0 {
		p.state.Order.Processing = []domain.OrderProcessing{{}}
	}
	p.init(KindOrder, deps, notes)
	p.actions = map[string]handler{
		"set_reception":     p.setReception,
		"set_status":        p.setStatus,
		"search_product":    p.searchProduct,
		"select_product":    p.selectProduct,
		"set_option":        p.setOption,
		"add_processing":    p.addProcessing,
		"remove_processing": p.removeProcessing,
		"set_processing":    p.setProcessing,
		"submit":            p.submit,
	}
	return p, nil
}

func (p *orderPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Order.Processing = slices.Clone(p.state.Order.Processing)
	return view.Order(s)
}

func (p *orderPage) setReception(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Method string `json:"method"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Method != domain.ReceptionVisit && in.Method != domain.ReceptionDelivery {
		return errors.Wrapf(ErrBadPayload, "reception %q", in.Method)
	}
	p.state.Order.ReceptionMethod = in.Method
	return nil
}

func (p *orderPage) setStatus(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Status string `json:"status"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !slices.Contains(domain.OrderStatuses, in.Status) {
		return errors.Wrapf(ErrBadPayload, "status %q", in.Status)
	}
	o := &p.state.Order
	o.Status = in.Status
	if o.Status == domain.OrderStatusComplete && o.CompletedAt == "" {
		o.CompletedAt = p.deps.Format.Today(p.now())
	}
	return nil
}

func (p *orderPage) searchProduct(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Query string `json:"query"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	p.state.Query = in.Query
	results, err := p.deps.Client.ProductSearch(ctx, p.cfg.ProductSearchURL, in.Query)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.state.Results = results
	p.state.Searched = true
	return nil
}

func (p *orderPage) selectProduct(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		ProductNumber string `json:"product_number"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	opts, err := p.deps.Client.ProductLookup(ctx, p.cfg.ProductLookupURL, in.ProductNumber)
	if err != nil {
		p.rejected = true
		p.state.LookupFailed = true
		p.state.LookupStatus = userText(err)
		p.state.Colors, p.state.Sizes = nil, nil
		return nil
	}
	o := &p.state.Order
	o.ProductNumber = opts.ProductNumber
	if o.ProductNumber == "" {
		o.ProductNumber = in.ProductNumber
	}
	o.ProductName = opts.ProductName
	o.Color, o.Size = "", ""
	p.state.Colors, p.state.Sizes = opts.Colors, opts.Sizes
	p.state.LookupFailed = false
	p.state.LookupStatus = fmt.Sprintf("품번: %s / 상품명: %s", o.ProductNumber, o.ProductName)
	p.state.Searched = false
	p.state.Results = nil
	return nil
}

func (p *orderPage) setOption(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	switch in.Field {
	case "color":
		if in.Value != "" && !slices.Contains(p.state.Colors, in.Value) {
			return errors.Wrapf(ErrBadPayload, "color %q", in.Value)
		}
		p.state.Order.Color = in.Value
	case "size":
		if in.Value != "" && !slices.Contains(p.state.Sizes, in.Value) {
			return errors.Wrapf(ErrBadPayload, "size %q", in.Value)
		}
		p.state.Order.Size = in.Value
	default:
		return errors.Wrapf(ErrBadPayload, "field %q", in.Field)
	}
	return nil
}

func (p *orderPage) addProcessing(context.Context, json.RawMessage) error {
	p.state.Order.Processing = append(p.state.Order.Processing, domain.OrderProcessing{})
	return nil
}

func (p *orderPage) removeProcessing(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int `json:"index"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	rows := p.state.Order.Processing
	idx := int(in.Index)
	if idx < 0 || idx >= len(rows) {
		return errors.Wrapf(ErrBadPayload, "row %d", idx)
	}
	if len(rows) <= 1 {
		p.reject("최소 1개의 처리 내역이 필요합니다.")
		return nil
	}
	p.state.Order.Processing = slices.Delete(rows, idx, idx+1)
	return nil
}

func (p *orderPage) setProcessing(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int    `json:"index"`
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	idx := int(in.Index)
	if idx < 0 || idx >= len(p.state.Order.Processing) {
		return errors.Wrapf(ErrBadPayload, "row %d", idx)
	}
	row := &p.state.Order.Processing[idx]
	switch in.Field {
	case "source":
		row.Source = in.Value
	case "result":
		row.Result = in.Value
	default:
		return errors.Wrapf(ErrBadPayload, "field %q", in.Field)
	}
	return nil
}

type orderForm struct {
	CustomerName   *string `json:"customer_name"`
	CustomerPhone  *string `json:"customer_phone"`
	Postcode       *string `json:"postcode"`
	Address1       *string `json:"address1"`
	Address2       *string `json:"address2"`
	CourierCompany *string `json:"courier_company"`
	TrackingNumber *string `json:"tracking_number"`
	CompletedAt    *string `json:"completed_at"`
	Remarks        *string `json:"remarks"`
}

func (f orderForm) apply(o *domain.Order) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&o.CustomerName, f.CustomerName)
	set(&o.CustomerPhone, f.CustomerPhone)
	set(&o.Postcode, f.Postcode)
	set(&o.Address1, f.Address1)
	set(&o.Address2, f.Address2)
	set(&o.CourierCompany, f.CourierCompany)
	set(&o.TrackingNumber, f.TrackingNumber)
	set(&o.CompletedAt, f.CompletedAt)
	set(&o.Remarks, f.Remarks)
}

// validateOrder returns the first problem an operator has to fix, or "".
func validateOrder(o domain.Order) string {
	switch {
	case o.CustomerName == "" || o.CustomerPhone == "":
		return "고객 정보를 입력해주세요."
	case o.ProductNumber == "" || o.Color == "" || o.Size == "":
		return "상품을 선택해주세요."
	case o.ReceptionMethod == domain.ReceptionDelivery && (o.Address1 == "" || o.Address2 == ""):
		return "주소를 입력해주세요."
	case len(o.Processing) == 0:
		return "최소 1개의 처리 내역이 필요합니다."
	}
	for _, row := range o.Processing {
		if strings.TrimSpace(row.Source) == "" {
			return "주문처를 선택해주세요."
		}
	}
	return ""
}

func (p *orderPage) submit(ctx context.Context, payload json.RawMessage) error {
	var form orderForm
	if err := decode(payload, &form); err != nil {
		return err
	}
	order := p.state.Order
	order.Processing = slices.Clone(order.Processing)
	form.apply(&order)
	if order.ReceptionMethod != domain.ReceptionDelivery {
		order.Postcode, order.Address1, order.Address2 = "", "", ""
	}
	if order.Status != domain.OrderStatusShipped {
		order.CourierCompany, order.TrackingNumber = "", ""
	}
	if order.Status != domain.OrderStatusComplete {
		order.CompletedAt = ""
	}
	p.state.Order = order
	if msg := validateOrder(order); msg != "" {
		p.reject(msg)
		return nil
	}
	msg, err := p.deps.Client.SubmitOrder(ctx, p.cfg.SubmitURL, order)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	if msg == "" {
		msg = "저장되었습니다."
	}
	p.state.Submitted = true
	p.notes.Toast(notify.Success, msg)
	return nil
}

type orderListConfig struct {
	UpdateStatusURL string `json:"update_status_url" validate:"required"`
	Orders          string `json:"orders"`
}

type orderListPage struct {
	base
	cfg    orderListConfig
	orders []domain.Order
}

func newOrderList(raw map[string]string, deps Deps, notes notify.Notifier) (*orderListPage, error) {
	var cfg orderListConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &orderListPage{cfg: cfg}
	if cfg.Orders != "" {
		if err := json.Unmarshal([]byte(cfg.Orders), &p.orders); err != nil {
			return nil, errors.Wrap(err, "invalid page config: orders")
		}
	}
	p.init(KindOrderList, deps, notes)
	p.actions = map[string]handler{
		"update_status": p.updateStatus,
	}
	return p, nil
}

func (p *orderListPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return view.OrderList(view.OrderListState{Orders: slices.Clone(p.orders)})
}

func (p *orderListPage) updateStatus(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		OrderID       Int    `json:"order_id"`
		NewStatus     string `json:"new_status"`
		CurrentStatus string `json:"current_status"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.NewStatus == in.CurrentStatus {
		return nil
	}
	if !slices.Contains(domain.OrderStatuses, in.NewStatus) {
		return errors.Wrapf(ErrBadPayload, "status %q", in.NewStatus)
	}
	if !p.confirm(ctx, fmt.Sprintf("주문(ID: %d)의 상태를 [%s](으)로 변경하시겠습니까?", in.OrderID, in.NewStatus)) {
		return nil
	}
	_, err := p.deps.Client.UpdateOrderStatus(ctx, p.cfg.UpdateStatusURL, domain.OrderStatusRequest{
		OrderID:   int64(in.OrderID),
		NewStatus: in.NewStatus,
	})
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	for i := range p.orders {
		if p.orders[i].ID == int64(in.OrderID) {
			p.orders[i].Status = in.NewStatus
		}
	}
	p.notes.Toast(notify.Success, "상태가 변경되었습니다.")
	return nil
}
