package page

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowork/terminal/internal/domain"
)

func orderCfg() map[string]string {
	return map[string]string{
		"product_search_url": "/api/product_search",
		"product_lookup_url": "/api/product_lookup",
		"submit_url":         "/api/orders",
	}
}

func replyOrderProduct(u *upstream) {
	u.reply("POST /api/product_search", map[string]any{
		"status":   "success",
		"products": []map[string]any{{"product_number": "TS-01", "product_name": "반팔 티셔츠"}},
	})
	u.handle("POST /api/product_lookup", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success", "product_number": "TS-01", "product_name": "반팔 티셔츠",
			"colors": []string{"BK", "WH"}, "sizes": []string{"M", "L"},
		})
	})
}

func orderState(p *testPage) *orderPage { return p.Controller.(*orderPage) }

func TestOrderSelectProductAndSubmit(t *testing.T) {
	u, client := newUpstream(t)
	replyOrderProduct(u)
	u.reply("POST /api/orders", map[string]any{"status": "success", "message": "주문이 등록되었습니다."})
	p := newTestPage(t, KindOrder, orderCfg(), client)

	p.do(t, "search_product", map[string]any{"query": "TS"})
	require.Len(t, orderState(p).state.Results, 1)

	p.do(t, "select_product", map[string]any{"product_number": "TS-01"})
	s := orderState(p).state
	assert.Equal(t, "품번: TS-01 / 상품명: 반팔 티셔츠", s.LookupStatus)
	assert.Nil(t, s.Results)
	assert.Equal(t, []string{"BK", "WH"}, s.Colors)

	require.ErrorIs(t, p.Dispatch(withYes(), "set_option", mustJSON(t, map[string]any{"field": "color", "value": "RD"})), ErrBadPayload)
	p.do(t, "set_option", map[string]any{"field": "color", "value": "WH"})
	p.do(t, "set_option", map[string]any{"field": "size", "value": "L"})
	p.do(t, "set_processing", map[string]any{"index": 0, "field": "source", "value": "본사"})

	p.do(t, "submit", map[string]any{
		"customer_name": " 김고객 ", "customer_phone": "010-1234-5678",
		"postcode": "06000", "address1": "서울", "address2": "101호",
	})

	var sent domain.Order
	u.body(t, "/api/orders", &sent)
	assert.Equal(t, "김고객", sent.CustomerName)
	assert.Equal(t, domain.ReceptionVisit, sent.ReceptionMethod)
	assert.Empty(t, sent.Address1, "visit orders carry no address")
	assert.Equal(t, "WH", sent.Color)
	assert.Equal(t, []domain.OrderProcessing{{Source: "본사"}}, sent.Processing)
	assert.True(t, orderState(p).state.Submitted)
	assert.Equal(t, []string{"주문이 등록되었습니다."}, texts(p.notes.Drain()))
}

func TestOrderValidation(t *testing.T) {
	u, client := newUpstream(t)
	replyOrderProduct(u)
	p := newTestPage(t, KindOrder, orderCfg(), client)

	p.do(t, "submit", map[string]any{})
	assert.Equal(t, []string{"고객 정보를 입력해주세요."}, texts(p.notes.Drain()))

	p.do(t, "submit", map[string]any{"customer_name": "김고객", "customer_phone": "010"})
	assert.Equal(t, []string{"상품을 선택해주세요."}, texts(p.notes.Drain()))

	p.do(t, "select_product", map[string]any{"product_number": "TS-01"})
	p.do(t, "set_option", map[string]any{"field": "color", "value": "BK"})
	p.do(t, "set_option", map[string]any{"field": "size", "value": "M"})
	p.do(t, "set_reception", map[string]any{"method": domain.ReceptionDelivery})
	p.do(t, "submit", map[string]any{"address1": "서울"})
	assert.Equal(t, []string{"주소를 입력해주세요."}, texts(p.notes.Drain()))

	p.do(t, "submit", map[string]any{"address2": "101호"})
	assert.Equal(t, []string{"주문처를 선택해주세요."}, texts(p.notes.Drain()))

	p.do(t, "remove_processing", map[string]any{"index": 0})
	assert.Equal(t, []string{"최소 1개의 처리 내역이 필요합니다."}, texts(p.notes.Drain()))
	assert.Zero(t, u.count("/api/orders"))
}

func TestOrderStatusFields(t *testing.T) {
	_, client := newUpstream(t)
	p := newTestPage(t, KindOrder, orderCfg(), client)

	p.do(t, "set_status", map[string]any{"status": domain.OrderStatusComplete})
	assert.Equal(t, "2026-03-15", orderState(p).state.Order.CompletedAt)

	require.ErrorIs(t, p.Dispatch(withYes(), "set_status", mustJSON(t, map[string]any{"status": "배송중"})), ErrBadPayload)
	require.ErrorIs(t, p.Dispatch(withYes(), "set_reception", mustJSON(t, map[string]any{"method": "퀵"})), ErrBadPayload)

	p.do(t, "add_processing", nil)
	p.do(t, "remove_processing", map[string]any{"index": 1})
	assert.Len(t, orderState(p).state.Order.Processing, 1)
}

func TestOrderLookupFailureClearsOptions(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/product_lookup", map[string]any{"status": "error", "message": "상품을 찾을 수 없습니다."})
	p := newTestPage(t, KindOrder, orderCfg(), client)

	p.do(t, "select_product", map[string]any{"product_number": "XX"})
	s := orderState(p).state
	assert.True(t, s.LookupFailed)
	assert.Equal(t, "상품을 찾을 수 없습니다.", s.LookupStatus)
	assert.Empty(t, s.Colors)
}

func TestOrderListUpdateStatus(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/update_order_status", map[string]any{"status": "success"})
	cfg := map[string]string{
		"update_status_url": "/api/update_order_status",
		"orders":            `[{"id":7,"order_status":"고객주문","customer_name":"김고객"}]`,
	}
	p := newTestPage(t, KindOrderList, cfg, client)

	p.do(t, "update_status", map[string]any{"order_id": 7, "new_status": "고객주문", "current_status": "고객주문"})
	assert.Empty(t, p.notes.Drain())

	p.do(t, "update_status", map[string]any{"order_id": 7, "new_status": domain.OrderStatusArrived, "current_status": "고객주문"})
	notes := p.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "주문(ID: 7)의 상태를 [매장도착](으)로 변경하시겠습니까?", notes[0].Text)
	assert.Zero(t, u.count("/api/update_order_status"))

	require.NoError(t, p.Dispatch(withYes(), "update_status", mustJSON(t, map[string]any{"order_id": 7, "new_status": domain.OrderStatusArrived, "current_status": "고객주문"})))
	var sent domain.OrderStatusRequest
	u.body(t, "/api/update_order_status", &sent)
	assert.Equal(t, domain.OrderStatusRequest{OrderID: 7, NewStatus: domain.OrderStatusArrived}, sent)
	assert.Equal(t, domain.OrderStatusArrived, p.Controller.(*orderListPage).orders[0].Status)
	assert.Equal(t, []string{"상태가 변경되었습니다."}, texts(p.notes.Drain()))
}
