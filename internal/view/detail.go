package view

import (
	"strconv"

	"flowork/terminal/internal/format"
)

type DetailRow struct {
	VariantID  int64  `json:"variant_id,omitempty"`
	Barcode    string `json:"barcode"`
	Color      string `json:"color"`
	Size       string `json:"size"`
	Quantity   int64  `json:"quantity"`
	Actual     *int64 `json:"actual_stock,omitempty"`
	Diff       string `json:"stock_diff,omitempty"`
	HQQuantity int64  `json:"hq_quantity"`
	// Added and Deleted mark pending edits until the product is saved.
	Added   bool `json:"-"`
	Deleted bool `json:"-"`
}

type DetailState struct {
	ProductID     int64
	ProductName   string
	ProductNumber string
	ReleaseYear   string
	ItemCategory  string
	OriginalPrice int64
	SalePrice     int64
	Favorite      bool
	EditMode      bool
	ActualMode    bool
	Rows          []DetailRow
}

func Detail(s DetailState, f *format.Formatter) Node {
	fav := button("즐겨찾기 추가", "toggle_favorite").WithID("fav-btn").WithClass("btn-outline-secondary")
	if s.Favorite {
		fav = button("즐겨찾기 해제", "toggle_favorite").WithID("fav-btn").WithClass("btn-warning")
	}

	actual := button("실사재고 등록", "toggle_actual_mode").WithID("toggle-actual-stock-btn").WithClass("btn-secondary")
	if s.ActualMode {
		actual = button("등록 완료", "toggle_actual_mode").WithID("toggle-actual-stock-btn").WithClass("btn-success")
	}

	header := El("header",
		Txt("h2", s.ProductName),
		Txt("span", s.ProductNumber).WithClass("product-number"),
		Txt("span", f.Number(s.SalePrice)).WithID("sale-price"),
		Txt("span", f.Number(s.OriginalPrice)).WithID("original-price"),
		fav,
	).WithClass("product-details")

	var editor Node
	if s.EditMode {
		editor = El("form",
			input("edit-product-name", "product_name", s.ProductName),
			input("edit-release-year", "release_year", s.ReleaseYear),
			input("edit-item-category", "item_category", s.ItemCategory),
			input("edit-original-price-field", "original_price", i64toa(s.OriginalPrice)),
			input("edit-sale-price-field", "sale_price", i64toa(s.SalePrice)),
			button("수정 완료", "save_details").WithID("save-product-btn").WithClass("btn-primary"),
			button("취소", "cancel_edit").WithID("cancel-edit-btn"),
		).WithID("product-editor")
	}

	controls := El("div",
		When(!s.EditMode, actual),
		When(!s.EditMode, button("상품 수정", "edit").WithID("edit-product-btn")),
	).WithClass("detail-controls")

	return El("main", header, controls, When(s.EditMode, editor), variantsTable(s, f)).
		WithID("detail").
		WithClass(editClass(s.EditMode))
}

func editClass(edit bool) string {
	if edit {
		return "edit-mode"
	}
	return ""
}

func variantsTable(s DetailState, f *format.Formatter) Node {
	rows := make([]Node, 0, len(s.Rows)+1)
	for i, r := range s.Rows {
		if r.Deleted {
			continue
		}
		if s.EditMode {
			rows = append(rows, El("tr",
				El("td", input("", "color", r.Color).Action("edit_variant", "index", itoa(i))),
				El("td", input("", "size", r.Size).Action("edit_variant", "index", itoa(i))),
				El("td", button("삭제", "delete_variant_row", "index", itoa(i)).WithClass("btn-danger")),
			).WithRole("variant-row"))
			continue
		}

		qty := Txt("span", f.Number(r.Quantity)).WithID("stock-" + r.Barcode)
		if r.Quantity == 0 {
			qty = qty.WithClass("text-danger")
		}
		actualValue := ""
		if r.Actual != nil {
			actualValue = i64toa(*r.Actual)
		}
		rows = append(rows, El("tr",
			Txt("td", r.Color),
			Txt("td", r.Size),
			El("td",
				qty,
				button("+", "change_stock", "barcode", r.Barcode, "change", "1").WithClass("btn-inc"),
				button("-", "change_stock", "barcode", r.Barcode, "change", "-1").WithClass("btn-dec"),
			),
			Txt("td", f.Number(r.HQQuantity)).WithClass("hq-stock"),
			El("td", input("actual-"+r.Barcode, "actual_stock", actualValue).
				Action("set_actual_stock", "barcode", r.Barcode).
				Disabled(!s.ActualMode)),
			diffBadge(r),
		).WithRole("variant-row").WithAttr("data-barcode", r.Barcode))
	}
	if s.EditMode {
		rows = append(rows, El("tr",
			El("td", input("new-color", "color", "")),
			El("td", input("new-size", "size", "")),
			El("td", button("추가", "add_variant_row").WithID("btn-add-variant")),
		).WithID("add-variant-row"))
	}
	headers := []string{"컬러", "사이즈", "매장재고", "본사재고", "실사재고", "차이"}
	if s.EditMode {
		headers = []string{"컬러", "사이즈", ""}
	}
	return table("variants-table", headers, rows, "옵션 정보가 없습니다.", len(headers))
}

func diffBadge(r DetailRow) Node {
	td := Txt("td", "-").WithID("diff-" + r.Barcode).WithRole("diff").WithClass("stock-diff", "badge")
	if r.Diff == "" {
		return td.WithClass("bg-light")
	}
	td.Text = r.Diff
	n, err := strconv.ParseInt(r.Diff, 10, 64)
	switch {
	case err != nil:
		return td
	case n > 0:
		return td.WithClass("bg-primary")
	case n < 0:
		return td.WithClass("bg-danger")
	default:
		return td.WithClass("bg-secondary")
	}
}
