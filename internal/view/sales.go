package view

import (
	"flowork/terminal/internal/cart"
	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/format"
)

type SalesState struct {
	Mode        cart.Mode
	Online      bool
	SaleDate    string
	RefundStart string
	RefundEnd   string
	Query       string
	Searched    bool
	Results     []domain.ProductSummary

	// DetailTitle is set while the variant picker of a result is open.
	DetailTitle string
	Variants    []domain.Variant
	// RecordsTitle is set while the sale records of a result are open.
	RecordsTitle string
	Records      []domain.RefundRecord

	Lines         []cart.Line
	Totals        cart.Totals
	Held          bool
	RefundReceipt string
}

func Sales(s SalesState, f *format.Formatter) Node {
	refund := s.Mode == cart.ModeRefund
	left := El("section",
		salesToolbar(s, refund),
		salesResults(s, refund, f),
		When(s.DetailTitle != "", variantPicker(s, f)),
		When(s.RecordsTitle != "", refundRecords(s, f)),
	).WithID("sales-left-panel").WithClass("sales-left")
	if refund {
		left = left.WithClass("mode-refund-bg")
	}

	title := "판매 목록"
	if refund {
		title = "환불 목록"
	}
	right := El("section",
		Txt("h2", title).WithID("right-panel-title"),
		cartTable(s, f),
		El("div",
			Txt("span", f.Number(int64(s.Totals.TotalQty))).WithID("total-qty"),
			Txt("span", f.Number(s.Totals.TotalAmount)).WithID("total-amount"),
		).WithClass("cart-totals"),
		When(!refund, salesActions(s)),
		When(refund, refundActions(s)),
	).WithID("sales-right-panel")

	return El("main", left, right).WithID("sales").WithAttr("data-mode", string(s.Mode))
}

func salesToolbar(s SalesState, refund bool) Node {
	online := "OFFLINE"
	if s.Online {
		online = "ONLINE"
	}
	bar := El("div",
		radio("mode-sales", "판매", !refund).Action("set_mode", "mode", string(cart.ModeSales)),
		radio("mode-refund", "환불", refund).Action("set_mode", "mode", string(cart.ModeRefund)),
		button(online, "toggle_online").WithID("btn-toggle-online"),
		input("search-input", "query", s.Query).Action("search"),
	).WithClass("toolbar")
	if refund {
		return bar.Append(El("div",
			input("refund-start", "start", s.RefundStart),
			input("refund-end", "end", s.RefundEnd),
		).WithID("date-area-refund").Action("set_refund_range"))
	}
	return bar.Append(input("sale-date", "sale_date", s.SaleDate).Action("set_sale_date"))
}

func salesResults(s SalesState, refund bool, f *format.Formatter) Node {
	last := "재고"
	if refund {
		last = "판매량"
	}
	headers := []string{"품번", "품명", "컬러", "년도", "최초가", "판매가", last}
	if !s.Searched {
		return table("search-results", headers, nil, "상품을 검색하세요.", len(headers))
	}
	rows := make([]Node, 0, len(s.Results))
	for i, r := range s.Results {
		year := r.Year.String()
		if year == "" {
			year = "-"
		}
		rows = append(rows, row("result", r.ProductNumber, r.ProductName, r.Color, year,
			f.Number(r.OriginalPrice), f.Number(r.SalePrice), i64toa(r.StatQty)).
			Action("open_result", "index", itoa(i)))
	}
	return table("search-results", headers, rows, "검색 결과가 없습니다.", len(headers))
}

func variantPicker(s SalesState, f *format.Formatter) Node {
	rows := make([]Node, 0, len(s.Variants))
	for i, v := range s.Variants {
		stock := "-"
		if v.Stock != nil {
			stock = i64toa(*v.Stock)
		}
		tr := row("variant", v.Color, v.Size, f.Number(v.OriginalPrice), f.Number(v.SalePrice), stock).
			Append(El("td", button("추가", "add_variant", "index", itoa(i))))
		if v.Stock != nil && *v.Stock <= 0 {
			tr = tr.WithClass("text-danger")
		}
		rows = append(rows, tr)
	}
	return El("dialog",
		Txt("h3", s.DetailTitle).WithID("detail-modal-title"),
		table("detail-modal-table", []string{"컬러", "사이즈", "최초가", "판매가", "재고", ""}, rows, "재고 정보가 없습니다.", 6),
		button("닫기", "close_modal"),
	).WithID("detail-modal")
}

func refundRecords(s SalesState, f *format.Formatter) Node {
	rows := make([]Node, 0, len(s.Records))
	for _, r := range s.Records {
		rows = append(rows, row("record", r.SaleDate, r.ReceiptNumber, r.ProductNumber, r.ProductName,
			r.Color, r.Size, itoa(r.Quantity), f.Number(r.TotalAmount)).
			Action("load_refund", "sale_id", i64toa(r.SaleID), "receipt_number", r.ReceiptNumber))
	}
	return El("dialog",
		Txt("h3", s.RecordsTitle).WithID("records-modal-title"),
		table("records-modal-table", []string{"일자", "영수증", "품번", "품명", "컬러", "사이즈", "수량", "금액"}, rows, "기록 없음", 8),
		button("닫기", "close_modal"),
	).WithID("records-modal")
}

func cartTable(s SalesState, f *format.Formatter) Node {
	rows := make([]Node, 0, len(s.Lines))
	for i, l := range s.Lines {
		var lt cart.LineTotals
		if i < len(s.Totals.Lines) {
			lt = s.Totals.Lines[i]
		}
		idx := itoa(i)
		rows = append(rows, El("tr",
			Txt("td", itoa(i+1)),
			El("td", Txt("strong", l.ProductName), Txt("small", l.ProductNumber)),
			Txt("td", l.Color+" / "+l.Size),
			Txt("td", f.Number(lt.ListPrice)).WithClass("text-decoration-line-through"),
			Txt("td", f.Number(l.SalePrice)),
			Txt("td", f.Percent(lt.DiscountRate)).WithRole("discount-rate"),
			El("td", input("", "amount", i64toa(l.DiscountAmount)).Action("set_discount", "index", idx)),
			El("td", input("", "quantity", itoa(l.Quantity)).Action("set_quantity", "index", idx)),
			El("td", button("×", "remove_line", "index", idx)),
		).WithRole("cart-line"))
	}
	return table("cart-table", []string{"#", "상품", "옵션", "최초가", "판매가", "할인율", "할인", "수량", ""}, rows, "담긴 상품이 없습니다.", 9)
}

func salesActions(s SalesState) Node {
	hold := button("판매보류", "toggle_hold").WithID("btn-hold").WithClass("btn-warning")
	if s.Held {
		hold = button("보류중 (복원)", "toggle_hold").WithID("btn-hold").WithClass("btn-danger")
	}
	return El("div",
		hold,
		button("자동할인", "auto_discount").WithID("btn-auto-discount"),
		button("초기화", "clear_cart"),
		button("판매등록", "submit_sale").WithID("btn-submit-sale").WithClass("btn-primary").Disabled(len(s.Lines) == 0),
	).WithID("sales-actions")
}

func refundActions(s SalesState) Node {
	receipt := s.RefundReceipt
	if receipt == "" {
		receipt = "선택되지 않음"
	}
	return El("div",
		Txt("span", receipt).WithID("refund-target-info"),
		button("환불처리", "submit_refund").WithID("btn-submit-refund").WithClass("btn-danger").Disabled(s.RefundReceipt == ""),
		button("취소", "cancel_refund").WithID("btn-cancel-refund"),
	).WithID("refund-actions")
}
