package view

import (
	"time"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/format"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/stockcheck"
)

type CheckState struct {
	Scanning   bool
	MultiStore bool
	StoreID    *int64
	Stores     []domain.Store
	// Entries are in scan order; the table shows the newest first.
	Entries    []stockcheck.Entry
	TotalItems int
	TotalQty   int64
	Status     notify.Status
	Now        time.Time
}

func Check(s CheckState, f *format.Formatter) Node {
	toggle := button("리딩 OFF", "toggle_scanning").WithID("btn-toggle-scan").WithClass("btn-success")
	placeholder := "리딩 OFF 상태..."
	if s.Scanning {
		toggle = button("리딩 ON", "toggle_scanning").WithID("btn-toggle-scan").WithClass("btn-danger")
		placeholder = "바코드를 스캔하세요..."
	}
	barcode := input("barcode-input", "barcode", "").
		WithAttr("placeholder", placeholder).
		Action("scan").
		Disabled(!s.Scanning)

	rows := make([]Node, 0, len(s.Entries))
	for i := len(s.Entries) - 1; i >= 0; i-- {
		e := s.Entries[i]
		diff := e.Diff()
		class := "diff-" + string(stockcheck.Classify(diff))
		diffText := f.Number(diff)
		if diff > 0 {
			diffText = "+" + diffText
		}
		rows = append(rows, El("tr",
			Txt("td", e.ProductName),
			Txt("td", e.ProductNumber),
			Txt("td", e.Color+" / "+e.Size),
			Txt("td", f.Number(e.StoreStock)),
			El("td", input("", "quantity", i64toa(e.ScanQuantity)).Action("set_scan_quantity", "barcode", e.Barcode)),
			Txt("td", diffText).WithRole("diff").WithClass(class),
			El("td", button("삭제", "remove", "barcode", e.Barcode)),
		).WithRole("scan-row").WithAttr("data-barcode", e.Barcode))
	}

	return El("main",
		When(s.MultiStore, storeSelect(s)),
		El("div", toggle, barcode).WithClass("scan-bar"),
		InlineStatus("scan-status", s.Status, s.Now),
		table("scan-table", []string{"품명", "품번", "옵션", "전산재고", "실사수량", "차이", ""}, rows, "스캔한 상품이 없습니다.", 7),
		El("div",
			Txt("span", f.Number(int64(s.TotalItems))).WithID("total-items"),
			Txt("span", f.Number(s.TotalQty)).WithID("total-qty"),
		).WithClass("scan-totals"),
		El("div",
			button("초기화", "reset").WithID("btn-reset"),
			button("실사 저장", "submit").WithID("btn-submit").WithClass("btn-primary").
				Disabled(len(s.Entries) == 0 || (s.MultiStore && s.StoreID == nil)),
		).WithClass("actions"),
	).WithID("check")
}

func storeSelect(s CheckState) Node {
	sel := El("select", option("", "매장 선택", s.StoreID == nil)).WithID("target-store").Action("set_store")
	for _, st := range s.Stores {
		sel = sel.Append(option(i64toa(st.ID), st.StoreName, s.StoreID != nil && *s.StoreID == st.ID))
	}
	return sel
}
