package view

import (
	"flowork/terminal/internal/domain"
)

// PickerState is the product search plus color/size selection shared by the
// transfer and store order pages.
type PickerState struct {
	Query         string
	Searched      bool
	Results       []domain.ProductRef
	ProductNumber string
	Colors        []string
	Color         string
	// Sizes holds the variants of the selected color.
	Sizes     []domain.Variant
	VariantID int64
}

func picker(p PickerState) Node {
	box := El("div",
		input("req-pn", "query", p.Query).Action("search_product"),
		button("검색", "search_product").WithID("btn-search-prod"),
	).WithID("variant-picker")

	if p.Searched {
		list := El("div").WithID("search-results").WithClass("list-group")
		if len(p.Results) == 0 {
			list = list.Append(Txt("div", "검색 결과 없음").WithClass("p-2"))
		}
		for _, r := range p.Results {
			list = list.Append(button(r.ProductName+" ("+r.ProductNumber+")", "select_product", "product_number", r.ProductNumber).
				WithRole("product-result").
				WithClass("list-group-item", "list-group-item-action"))
		}
		box = box.Append(list)
	}

	colors := El("select", option("", "선택", p.Color == "")).WithID("req-color").Action("select_color").
		Disabled(p.ProductNumber == "")
	for _, c := range p.Colors {
		colors = colors.Append(option(c, c, p.Color == c))
	}
	sizes := El("select", option("", "선택", p.VariantID == 0)).WithID("req-size").Action("select_size").
		Disabled(p.Color == "")
	for _, v := range p.Sizes {
		sizes = sizes.Append(option(i64toa(v.VariantID), v.Size, p.VariantID == v.VariantID))
	}
	return box.Append(colors, sizes)
}

type TransferState struct {
	Picker        PickerState
	Stores        []domain.Store
	SourceStoreID int64
	Quantity      int
	Transfers     []domain.Transfer
}

func Transfer(s TransferState) Node {
	source := El("select", option("", "요청할 매장", s.SourceStoreID == 0)).WithID("req-source-store").Action("set_source")
	for _, st := range s.Stores {
		source = source.Append(option(i64toa(st.ID), st.StoreName, s.SourceStoreID == st.ID))
	}
	qty := ""
	if s.Quantity > 0 {
		qty = itoa(s.Quantity)
	}
	request := El("section",
		picker(s.Picker),
		source,
		input("req-qty", "quantity", qty),
		button("이동 요청", "request").WithID("btn-submit-request").WithClass("btn-primary"),
	).WithID("transfer-request")

	rows := make([]Node, 0, len(s.Transfers))
	for _, t := range s.Transfers {
		id := i64toa(t.ID)
		actions := El("td")
		switch {
		case t.Direction == domain.DirectionOutgoing && t.Status == domain.TransferRequested:
			actions = actions.Append(
				button("출고", "ship", "id", id).WithClass("btn-ship", "btn-primary"),
				button("거부", "reject", "id", id).WithClass("btn-reject", "btn-danger"),
			)
		case t.Direction == domain.DirectionIncoming && t.Status == domain.TransferShipped:
			actions = actions.Append(button("수령", "receive", "id", id).WithClass("btn-receive", "btn-success"))
		}
		rows = append(rows, El("tr",
			Txt("td", t.RequestedAt),
			Txt("td", directionLabel(t.Direction)),
			Txt("td", t.StoreName),
			Txt("td", t.ProductName+" ("+t.ProductNumber+")"),
			Txt("td", t.Color+" / "+t.Size),
			Txt("td", itoa(t.Quantity)),
			Txt("td", transferStatusLabel(t.Status)),
			actions,
		).WithRole("transfer").WithAttr("data-id", id))
	}

	return El("main",
		request,
		table("transfer-table", []string{"요청일", "구분", "매장", "상품", "옵션", "수량", "상태", ""}, rows, "이동 내역이 없습니다.", 8),
	).WithID("stock-transfer")
}

func directionLabel(d string) string {
	if d == domain.DirectionOutgoing {
		return "출고"
	}
	return "입고"
}

func transferStatusLabel(status string) string {
	switch status {
	case domain.TransferRequested:
		return "요청"
	case domain.TransferShipped:
		return "출고완료"
	case domain.TransferReceived:
		return "입고완료"
	case domain.TransferRejected:
		return "거부"
	case domain.StoreOrderApproved:
		return "승인"
	}
	return status
}

type StoreOrderState struct {
	Picker   PickerState
	Quantity int
	Date     string
	Orders   []domain.StoreOrder
	// Manage shows the approve and reject controls.
	Manage bool
}

func StoreOrder(s StoreOrderState) Node {
	qty := ""
	if s.Quantity > 0 {
		qty = itoa(s.Quantity)
	}
	request := El("section",
		picker(s.Picker),
		input("req-qty", "quantity", qty),
		input("req-date", "date", s.Date),
		button("주문 요청", "create").WithID("btn-submit-order").WithClass("btn-primary").Disabled(s.Picker.VariantID == 0),
	).WithID("store-order-request")

	headers := []string{"일자", "매장", "상품", "옵션", "요청", "확정", "상태"}
	if s.Manage {
		headers = append(headers, "")
	}
	rows := make([]Node, 0, len(s.Orders))
	for _, o := range s.Orders {
		id := i64toa(o.ID)
		tr := El("tr",
			Txt("td", o.Date),
			Txt("td", o.StoreName),
			Txt("td", o.ProductName+" ("+o.ProductNumber+")"),
			Txt("td", o.Color+" / "+o.Size),
			Txt("td", itoa(o.Quantity)),
			Txt("td", itoa(o.ConfirmedQuantity)),
			Txt("td", transferStatusLabel(o.Status)),
		).WithRole("store-order").WithAttr("data-id", id)
		if s.Manage {
			cell := El("td")
			if o.Status == domain.StoreOrderRequested {
				cell = cell.Append(
					button("승인", "approve", "id", id, "qty", itoa(o.Quantity)).WithClass("btn-approve", "btn-success"),
					button("거절", "reject", "id", id).WithClass("btn-reject", "btn-danger"),
				)
			}
			tr = tr.Append(cell)
		}
		rows = append(rows, tr)
	}

	return El("main",
		request,
		table("store-order-table", headers, rows, "주문 내역이 없습니다.", len(headers)),
	).WithID("store-order")
}
