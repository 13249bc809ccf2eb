package page

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/view"
)

type detailConfig struct {
	UpdateStockURL          string `json:"update_stock_url" validate:"required"`
	ToggleFavoriteURL       string `json:"toggle_favorite_url" validate:"required"`
	UpdateActualStockURL    string `json:"update_actual_stock_url" validate:"required"`
	UpdateProductDetailsURL string `json:"update_product_details_url" validate:"required"`
	ProductID               Int    `json:"product_id" validate:"required"`
	MyStoreID               *Int   `json:"my_store_id"`
	StoreID                 *Int   `json:"store_id"`
	Product                 string `json:"product"`
}

// detailProduct is the product block the detail page is opened with.
type detailProduct struct {
	ProductName   string           `json:"product_name"`
	ProductNumber string           `json:"product_number"`
	ReleaseYear   string           `json:"release_year"`
	ItemCategory  string           `json:"item_category"`
	OriginalPrice int64            `json:"original_price"`
	SalePrice     int64            `json:"sale_price"`
	Favorite      Flag             `json:"is_favorite"`
	Variants      []view.DetailRow `json:"variants"`
}

type detailPage struct {
	base
	cfg detailConfig

	state view.DetailState
	saved *view.DetailState
}

func newDetail(raw map[string]string, deps Deps, notes notify.Notifier) (*detailPage, error) {
	var cfg detailConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	var product detailProduct
	if cfg.Product != "" {
		if err := json.Unmarshal([]byte(cfg.Product), &product); err != nil {
			return nil, errors.Wrap(err, "invalid page config: product")
		}
	}
	p := &detailPage{cfg: cfg, state: view.DetailState{
		ProductID:     int64(cfg.ProductID),
		ProductName:   product.ProductName,
		ProductNumber: product.ProductNumber,
		ReleaseYear:   product.ReleaseYear,
		ItemCategory:  product.ItemCategory,
		OriginalPrice: product.OriginalPrice,
		SalePrice:     product.SalePrice,
		Favorite:      bool(product.Favorite),
		Rows:          product.Variants,
	}}
	p.init(KindDetail, deps, notes)
	p.actions = map[string]handler{
		"change_stock":       p.changeStock,
		"toggle_actual_mode": p.toggleActualMode,
		"set_actual_stock":   p.setActualStock,
		"toggle_favorite":    p.toggleFavorite,
		"edit":               p.edit,
		"cancel_edit":        p.cancelEdit,
		"edit_variant":       p.editVariant,
		"add_variant_row":    p.addVariantRow,
		"delete_variant_row": p.deleteVariantRow,
		"save_details":       p.saveDetails,
	}
	return p, nil
}

func (p *detailPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Rows = append([]view.DetailRow(nil), p.state.Rows...)
	return view.Detail(s, p.deps.Format)
}

// ownStore reports whether the page shows the operator's own store, the
// only one whose stock may be changed by hand.
func (p *detailPage) ownStore() bool {
	if p.cfg.StoreID == nil || p.cfg.MyStoreID == nil {
		return true
	}
	return *p.cfg.StoreID == *p.cfg.MyStoreID
}

func (p *detailPage) row(barcode string) (int, bool) {
	for i, r := range p.state.Rows {
		if r.Barcode == barcode && barcode != "" {
			return i, true
		}
	}
	return -1, false
}

func (p *detailPage) changeStock(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Barcode string `json:"barcode"`
		Change  Int    `json:"change"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Change != 1 && in.Change != -1 {
		return errors.Wrapf(ErrBadPayload, "change %d", in.Change)
	}
	idx, ok := p.row(in.Barcode)
	if !ok {
		return errors.Wrapf(ErrBadPayload, "barcode %q", in.Barcode)
	}
	if !p.ownStore() {
		p.reject("재고 수정은 '내 매장'이 선택된 경우에만 가능합니다.")
		return nil
	}
	verb := "증가"
	if in.Change < 0 {
		verb = "감소"
	}
	if !p.confirm(ctx, fmt.Sprintf("재고를 1개 %s시키겠습니까?", verb)) {
		return nil
	}
	resp, err := p.deps.Client.UpdateStock(ctx, p.cfg.UpdateStockURL, domain.StockChangeRequest{
		Barcode: in.Barcode,
		Change:  int64(in.Change),
	})
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	r := &p.state.Rows[idx]
	r.Quantity = resp.NewQuantity
	r.Diff = resp.NewStockDiff.String()
	return nil
}

func (p *detailPage) toggleActualMode(context.Context, json.RawMessage) error {
	p.state.ActualMode = !p.state.ActualMode
	return nil
}

func (p *detailPage) setActualStock(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Barcode     string `json:"barcode"`
		ActualStock string `json:"actual_stock"`
	}
	if err := decode(payload, &in); err != nil {
		var num struct {
			Barcode     string `json:"barcode"`
			ActualStock int64  `json:"actual_stock"`
		}
		if decode(payload, &num) != nil {
			return err
		}
		in.Barcode, in.ActualStock = num.Barcode, strconv.FormatInt(num.ActualStock, 10)
	}
	idx, ok := p.row(in.Barcode)
	if !ok {
		return errors.Wrapf(ErrBadPayload, "barcode %q", in.Barcode)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(in.ActualStock), 10, 64)
	if err != nil || value < 0 {
		p.reject("0 이상의 숫자만 입력 가능합니다.")
		return nil
	}
	resp, err := p.deps.Client.UpdateActualStock(ctx, p.cfg.UpdateActualStockURL, domain.ActualStockRequest{
		Barcode:     in.Barcode,
		ActualStock: value,
	})
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	r := &p.state.Rows[idx]
	actual := value
	if n, ok := resp.NewActualStock.Int(); ok {
		actual = n
	}
	r.Actual = &actual
	r.Diff = resp.NewStockDiff.String()
	return nil
}

func (p *detailPage) toggleFavorite(ctx context.Context, _ json.RawMessage) error {
	verb := "추가"
	if p.state.Favorite {
		verb = "해제"
	}
	if !p.confirm(ctx, fmt.Sprintf("이 상품을 즐겨찾기 %s하시겠습니까?", verb)) {
		return nil
	}
	resp, err := p.deps.Client.ToggleFavorite(ctx, p.cfg.ToggleFavoriteURL, p.state.ProductID)
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.state.Favorite = resp.NewFavoriteStatus == 1
	return nil
}

func (p *detailPage) edit(context.Context, json.RawMessage) error {
	if p.state.EditMode {
		return nil
	}
	saved := p.state
	saved.Rows = append([]view.DetailRow(nil), p.state.Rows...)
	p.saved = &saved
	p.state.EditMode = true
	p.state.ActualMode = false
	return nil
}

func (p *detailPage) cancelEdit(context.Context, json.RawMessage) error {
	if p.saved != nil {
		p.state = *p.saved
		p.saved = nil
	}
	p.state.EditMode = false
	return nil
}

func (p *detailPage) editIndex(raw Int) (int, error) {
	idx := int(raw)
	if !p.state.EditMode {
		return -1, errors.Wrap(ErrBadPayload, "not editing")
	}
	if idx < 0 || idx >= len(p.state.Rows) || p.state.Rows[idx].Deleted {
		return -1, errors.Wrapf(ErrBadPayload, "row %d", idx)
	}
	return idx, nil
}

func (p *detailPage) editVariant(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int     `json:"index"`
		Color *string `json:"color"`
		Size  *string `json:"size"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	idx, err := p.editIndex(in.Index)
	if err != nil {
		return err
	}
	r := &p.state.Rows[idx]
	if in.Color != nil {
		r.Color = strings.TrimSpace(*in.Color)
	}
	if in.Size != nil {
		r.Size = strings.TrimSpace(*in.Size)
	}
	return nil
}

func (p *detailPage) addVariantRow(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Color string `json:"color"`
		Size  string `json:"size"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.state.EditMode {
		return errors.Wrap(ErrBadPayload, "not editing")
	}
	color, size := strings.TrimSpace(in.Color), strings.TrimSpace(in.Size)
	if color == "" || size == "" {
		p.reject("컬러와 사이즈를 입력해주세요.")
		return nil
	}
	p.state.Rows = append(p.state.Rows, view.DetailRow{Color: color, Size: size, Added: true})
	return nil
}

func (p *detailPage) deleteVariantRow(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int `json:"index"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	idx, err := p.editIndex(in.Index)
	if err != nil {
		return err
	}
	if p.state.Rows[idx].Added {
		p.state.Rows = append(p.state.Rows[:idx], p.state.Rows[idx+1:]...)
		return nil
	}
	p.state.Rows[idx].Deleted = true
	return nil
}

func (p *detailPage) saveDetails(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		ProductName   *string `json:"product_name"`
		ReleaseYear   *string `json:"release_year"`
		ItemCategory  *string `json:"item_category"`
		OriginalPrice *Int    `json:"original_price"`
		SalePrice     *Int    `json:"sale_price"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.state.EditMode {
		return errors.Wrap(ErrBadPayload, "not editing")
	}
	next := p.state
	if in.ProductName != nil {
		next.ProductName = strings.TrimSpace(*in.ProductName)
	}
	if in.ReleaseYear != nil {
		next.ReleaseYear = strings.TrimSpace(*in.ReleaseYear)
	}
	if in.ItemCategory != nil {
		next.ItemCategory = strings.TrimSpace(*in.ItemCategory)
	}
	if in.OriginalPrice != nil {
		next.OriginalPrice = int64(*in.OriginalPrice)
	}
	if in.SalePrice != nil {
		next.SalePrice = int64(*in.SalePrice)
	}
	if next.ProductName == "" {
		p.reject("상품명을 입력해주세요.")
		return nil
	}
	if next.OriginalPrice < 0 || next.SalePrice < 0 {
		p.reject("0 이상의 숫자만 입력 가능합니다.")
		return nil
	}

	req := domain.ProductUpdate{
		ProductID:    next.ProductID,
		ProductName:  next.ProductName,
		ReleaseYear:  next.ReleaseYear,
		ItemCategory: next.ItemCategory,
	}
	kept := make([]view.DetailRow, 0, len(next.Rows))
	for _, r := range next.Rows {
		change := domain.VariantChange{
			VariantID:     r.VariantID,
			Color:         r.Color,
			Size:          r.Size,
			OriginalPrice: next.OriginalPrice,
			SalePrice:     next.SalePrice,
		}
		switch {
		case r.Added:
			change.Action = domain.VariantAdd
		case r.Deleted:
			change = domain.VariantChange{VariantID: r.VariantID, Action: domain.VariantDelete}
		default:
			change.Action = domain.VariantUpdate
		}
		req.Variants = append(req.Variants, change)
		if !r.Deleted {
			r.Added = false
			kept = append(kept, r)
		}
	}

	if !p.confirm(ctx, "수정된 상품 정보를 저장하시겠습니까?") {
		return nil
	}
	if _, err := p.deps.Client.UpdateProductDetails(ctx, p.cfg.UpdateProductDetailsURL, req); err != nil {
		p.fail(ctx, err)
		return nil
	}
	next.Rows = kept
	next.EditMode = false
	p.state = next
	p.saved = nil
	p.notes.Toast(notify.Success, "저장되었습니다.")
	return nil
}
