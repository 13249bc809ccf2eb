package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
)

const detailProductJSON = `{
	"product_name": "반팔 티셔츠", "product_number": "TS-01", "release_year": "2026",
	"item_category": "상의", "original_price": 12000, "sale_price": 9000, "is_favorite": 0,
	"variants": [
		{"variant_id": 11, "barcode": "A1", "color": "BK", "size": "M", "quantity": 3, "hq_quantity": 10},
		{"variant_id": 12, "barcode": "A2", "color": "BK", "size": "L", "quantity": 1, "hq_quantity": 4}
	]
}`

func detailCfg(extra map[string]string) map[string]string {
	cfg := map[string]string{
		"update_stock_url":           "/api/update_stock",
		"toggle_favorite_url":        "/api/toggle_favorite",
		"update_actual_stock_url":    "/api/update_actual_stock",
		"update_product_details_url": "/api/update_product_details",
		"product_id":                 "5",
		"product":                    detailProductJSON,
	}
	for k, v := range extra {
		cfg[k] = v
	}
	return cfg
}

func detailState(p *testPage) *detailPage { return p.Controller.(*detailPage) }

func TestDetailChangeStockOnOwnStore(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/update_stock", map[string]any{"status": "success", "barcode": "A1", "new_quantity": 4, "new_stock_diff": "+1"})
	p := newTestPage(t, KindDetail, detailCfg(map[string]string{"store_id": "3", "my_store_id": "3"}), client)

	p.do(t, "change_stock", map[string]any{"barcode": "A1", "change": 1})
	notes := p.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.Confirm, notes[0].Kind)
	assert.Equal(t, "재고를 1개 증가시키겠습니까?", notes[0].Text)
	assert.Zero(t, u.count("/api/update_stock"))

	require.NoError(t, p.Dispatch(withYes(), "change_stock", mustJSON(t, map[string]any{"barcode": "A1", "change": 1})))
	var sent domain.StockChangeRequest
	u.body(t, "/api/update_stock", &sent)
	assert.Equal(t, domain.StockChangeRequest{Barcode: "A1", Change: 1}, sent)

	row := detailState(p).state.Rows[0]
	assert.Equal(t, int64(4), row.Quantity)
	assert.Equal(t, "+1", row.Diff)

	err := p.Dispatch(withYes(), "change_stock", mustJSON(t, map[string]any{"barcode": "A1", "change": 2}))
	require.ErrorIs(t, err, ErrBadPayload)
}

func TestDetailChangeStockRefusedForOtherStore(t *testing.T) {
	u, client := newUpstream(t)
	p := newTestPage(t, KindDetail, detailCfg(map[string]string{"store_id": "4", "my_store_id": "3"}), client, confirmAll)

	p.do(t, "change_stock", map[string]any{"barcode": "A1", "change": -1})
	assert.Equal(t, []string{"재고 수정은 '내 매장'이 선택된 경우에만 가능합니다."}, texts(p.notes.Drain()))
	assert.Zero(t, u.count("/api/update_stock"))
}

func TestDetailActualStock(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/update_actual_stock", map[string]any{"status": "success", "barcode": "A2", "new_actual_stock": "5", "new_stock_diff": "+4"})
	p := newTestPage(t, KindDetail, detailCfg(nil), client)

	p.do(t, "toggle_actual_mode", nil)
	assert.True(t, detailState(p).state.ActualMode)

	p.do(t, "set_actual_stock", map[string]any{"barcode": "A2", "actual_stock": "-2"})
	assert.Equal(t, []string{"0 이상의 숫자만 입력 가능합니다."}, texts(p.notes.Drain()))
	assert.Zero(t, u.count("/api/update_actual_stock"))

	p.do(t, "set_actual_stock", map[string]any{"barcode": "A2", "actual_stock": 5})
	var sent domain.ActualStockRequest
	u.body(t, "/api/update_actual_stock", &sent)
	assert.Equal(t, domain.ActualStockRequest{Barcode: "A2", ActualStock: 5}, sent)

	row := detailState(p).state.Rows[1]
	require.NotNil(t, row.Actual)
	assert.Equal(t, int64(5), *row.Actual)
	assert.Equal(t, "+4", row.Diff)
}

func TestDetailToggleFavorite(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/toggle_favorite", map[string]any{"status": "success", "new_favorite_status": 1})
	p := newTestPage(t, KindDetail, detailCfg(nil), client, confirmAll)

	p.do(t, "toggle_favorite", nil)
	assert.True(t, detailState(p).state.Favorite)
	var sent struct {
		ProductID int64 `json:"product_id"`
	}
	u.body(t, "/api/toggle_favorite", &sent)
	assert.Equal(t, int64(5), sent.ProductID)
}

func TestDetailEditAndSave(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/update_product_details", map[string]any{"status": "success", "message": "저장 완료"})
	p := newTestPage(t, KindDetail, detailCfg(nil), client, confirmAll)

	require.ErrorIs(t, p.Dispatch(withYes(), "add_variant_row", mustJSON(t, map[string]any{"color": "WH", "size": "S"})), ErrBadPayload)

	p.do(t, "edit", nil)
	p.do(t, "edit_variant", map[string]any{"index": 0, "color": " NV "})
	p.do(t, "add_variant_row", map[string]any{"color": "WH", "size": "S"})
	p.do(t, "add_variant_row", map[string]any{"color": "WH", "size": ""})
	assert.Equal(t, []string{"컬러와 사이즈를 입력해주세요."}, texts(p.notes.Drain()))
	p.do(t, "delete_variant_row", map[string]any{"index": 1})
	p.do(t, "save_details", map[string]any{"product_name": "반팔 티", "sale_price": "8000"})

	var sent domain.ProductUpdate
	u.body(t, "/api/update_product_details", &sent)
	assert.Equal(t, int64(5), sent.ProductID)
	assert.Equal(t, "반팔 티", sent.ProductName)
	require.Len(t, sent.Variants, 3)
	assert.Equal(t, domain.VariantChange{VariantID: 11, Action: domain.VariantUpdate, Color: "NV", Size: "M", OriginalPrice: 12000, SalePrice: 8000}, sent.Variants[0])
	assert.Equal(t, domain.VariantChange{VariantID: 12, Action: domain.VariantDelete}, sent.Variants[1])
	assert.Equal(t, domain.VariantAdd, sent.Variants[2].Action)

	s := detailState(p).state
	assert.False(t, s.EditMode)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, "WH", s.Rows[1].Color)
	assert.False(t, s.Rows[1].Added)
	assert.Equal(t, []string{"저장되었습니다."}, texts(p.notes.Drain()))
}

func TestDetailCancelEditRestoresRows(t *testing.T) {
	_, client := newUpstream(t)
	p := newTestPage(t, KindDetail, detailCfg(nil), client)

	p.do(t, "edit", nil)
	p.do(t, "edit_variant", map[string]any{"index": 1, "size": "XL"})
	p.do(t, "add_variant_row", map[string]any{"color": "WH", "size": "S"})
	p.do(t, "cancel_edit", nil)

	s := detailState(p).state
	assert.False(t, s.EditMode)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, "L", s.Rows[1].Size)
}
