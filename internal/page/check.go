package page

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/floworkapi"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/stockcheck"
	"flowork/terminal/internal/view"
)

type checkConfig struct {
	FetchURL   string `json:"fetch_url" validate:"required"`
	SubmitURL  string `json:"submit_url" validate:"required"`
	MultiStore Flag   `json:"multi_store"`
	StoreID    *Int   `json:"store_id"`
	StoresURL  string `json:"stores_url"`
}

type checkPage struct {
	base
	cfg checkConfig

	list   *stockcheck.List
	stores []domain.Store
	status notify.Status
}

func newCheck(raw map[string]string, deps Deps, notes notify.Notifier) (*checkPage, error) {
	var cfg checkConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &checkPage{cfg: cfg, list: stockcheck.NewList(bool(cfg.MultiStore), cfg.StoreID.ptr())}
	p.init(KindCheck, deps, notes)
	p.actions = map[string]handler{
		"load_stores":       p.loadStores,
		"toggle_scanning":   p.toggleScanning,
		"set_store":         p.setStore,
		"scan":              p.scan,
		"set_scan_quantity": p.setScanQuantity,
		"remove":            p.remove,
		"reset":             p.reset,
		"submit":            p.submit,
		"status_expire":     p.statusExpire,
	}
	return p, nil
}

func (p *checkPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	items, qty := p.list.Totals()
	return view.Check(view.CheckState{
		Scanning:   p.list.Scanning(),
		MultiStore: p.list.MultiStore(),
		StoreID:    p.list.StoreID(),
		Stores:     p.stores,
		Entries:    p.list.Entries(),
		TotalItems: items,
		TotalQty:   qty,
		Status:     p.status,
		Now:        p.now(),
	}, p.deps.Format)
}

func (p *checkPage) setStatus(kind notify.Kind, text string) {
	p.status = notify.NewStatus(kind, text, p.now())
	p.notes.Inline("scan-status", kind, text)
}

func (p *checkPage) lookup() stockcheck.Lookup {
	return stockcheck.LookupFunc(func(ctx context.Context, barcode string, target *int64) (domain.ScanLookup, error) {
		return p.deps.Client.FetchVariant(ctx, p.cfg.FetchURL, barcode, target)
	})
}

func (p *checkPage) submitter() stockcheck.Submitter {
	return stockcheck.SubmitFunc(func(ctx context.Context, req domain.BulkStockRequest) (string, error) {
		return p.deps.Client.BulkUpdateStock(ctx, p.cfg.SubmitURL, req)
	})
}

func (p *checkPage) loadStores(ctx context.Context, _ json.RawMessage) error {
	if p.cfg.StoresURL == "" {
		return nil
	}
	stores, err := p.deps.Client.ListStores(ctx, p.cfg.StoresURL)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.stores = stores
	return nil
}

func (p *checkPage) toggleScanning(ctx context.Context, _ json.RawMessage) error {
	if _, err := p.list.ToggleScanning(); err != nil {
		p.fail(ctx, err)
	}
	return nil
}

func (p *checkPage) setStore(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		StoreID string `json:"store_id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	var storeID *int64
	if s := strings.TrimSpace(in.StoreID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errors.Wrapf(ErrBadPayload, "store_id %q", s)
		}
		storeID = &id
	}

	confirmed := p.list.Len() == 0
	if !confirmed {
		if !p.confirm(ctx, "매장이 변경되어 현재 스캔 목록을 초기화합니다.") {
			return nil
		}
		confirmed = true
	}
	if err := p.list.ChangeStore(storeID, confirmed); err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.status = notify.Status{}
	return nil
}

func (p *checkPage) scan(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Barcode string `json:"barcode"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	entry, err := p.list.Scan(ctx, p.lookup(), in.Barcode)
	switch {
	case err == nil:
		p.setStatus(notify.Success, fmt.Sprintf("스캔 성공: %s (%s/%s)", entry.ProductName, entry.Color, entry.Size))
	case errors.Is(err, stockcheck.ErrNoStore):
		p.reject("작업할 매장을 먼저 선택해주세요.")
	case errors.Is(err, stockcheck.ErrEmptyBarcode), errors.Is(err, stockcheck.ErrNotScanning):
		p.rejected = true
	case floworkapi.IsTransport(err):
		p.rejected = true
		p.deps.Logger.Error(ctx, "barcode lookup failed", err)
		p.setStatus(notify.Danger, "서버 통신 오류 발생")
	default:
		p.rejected = true
		p.setStatus(notify.Danger, "오류: "+floworkapi.UserMessage(err))
	}
	return nil
}

func (p *checkPage) setScanQuantity(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Barcode  string `json:"barcode"`
		Quantity Int    `json:"quantity"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.list.SetQuantity(in.Barcode, int64(in.Quantity)) {
		p.rejected = true
	}
	return nil
}

func (p *checkPage) remove(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Barcode string `json:"barcode"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.list.Remove(in.Barcode) {
		p.rejected = true
	}
	return nil
}

func (p *checkPage) reset(ctx context.Context, _ json.RawMessage) error {
	if p.list.Len() == 0 {
		return nil
	}
	if !p.confirm(ctx, "스캔 목록을 초기화하시겠습니까?") {
		return nil
	}
	p.list.Clear()
	p.setStatus(notify.Info, "목록이 초기화되었습니다.")
	return nil
}

func (p *checkPage) submit(ctx context.Context, _ json.RawMessage) error {
	req, err := p.list.Request()
	switch {
	case errors.Is(err, stockcheck.ErrEmptyList):
		p.reject("저장할 스캔 내역이 없습니다.")
		return nil
	case errors.Is(err, stockcheck.ErrNoStore):
		p.reject("작업할 매장이 선택되지 않았습니다.")
		return nil
	case err != nil:
		p.fail(ctx, err)
		return nil
	}
	if !p.confirm(ctx, fmt.Sprintf("총 %d개 품목의 실사 재고를 반영하시겠습니까?\n(기존 실사 재고를 덮어씁니다)", len(req.Items))) {
		return nil
	}
	msg, err := p.list.Submit(ctx, p.submitter())
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	if msg == "" {
		msg = "실사 재고가 반영되었습니다."
	}
	p.notes.Toast(notify.Success, msg)
	p.status = notify.Status{}
	return nil
}

func (p *checkPage) statusExpire(context.Context, json.RawMessage) error {
	if !p.status.Visible(p.now()) {
		p.status = notify.Status{}
	}
	return nil
}
