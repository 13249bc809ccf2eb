package view

import (
	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/keypad"
	"flowork/terminal/internal/search"
)

const AllCategories = "전체"

type SearchState struct {
	Query      string
	Mode       keypad.Mode
	Shift      bool
	Keys       [][]keypad.Key
	Category   string
	Categories []domain.CategoryButton
	Columns    int

	Loading          bool
	Failed           bool
	Products         []domain.LiveProduct
	ShowingFavorites bool
	Pager            search.Pager
}

func Search(s SearchState) Node {
	return El("main",
		El("form",
			input("search-query-input", "query", s.Query).Action("input"),
			button("×", "clear").WithID("keypad-clear-top"),
		).WithID("search-form").Action("submit"),
		categoryBar(s),
		El("section",
			searchHeader(s),
			productList(s),
			Pagination(s.Pager, "page"),
		).WithID("product-list-view"),
		keypadView(s),
	).WithID("search").WithAttr("data-input-mode", string(s.Mode))
}

func categoryBar(s SearchState) Node {
	bar := El("div").WithID("category-bar")
	if s.Columns > 0 {
		bar = bar.WithAttr("data-columns", itoa(s.Columns))
	}
	active := s.Category
	if active == "" {
		active = AllCategories
	}
	for _, c := range s.Categories {
		b := button(c.Label, "set_category", "category", c.Value).WithClass("category-btn")
		if c.Value == active {
			b = b.WithClass("active")
		}
		bar = bar.Append(b)
	}
	return bar
}

func searchHeader(s SearchState) Node {
	if s.ShowingFavorites {
		return Txt("h2", "즐겨찾기 목록").WithID("product-list-header")
	}
	h := El("h2", Txt("span", "상품 검색 결과")).WithID("product-list-header")
	if s.Category != "" && s.Category != AllCategories {
		h = h.Append(Txt("span", s.Category).WithClass("badge", "bg-success"))
	}
	return h
}

func productList(s SearchState) Node {
	ul := El("ul").WithID("product-list-ul").WithClass("list-group")
	switch {
	case s.Loading:
		return ul.Append(Txt("li", "검색 중...").WithClass("text-muted"))
	case s.Failed:
		return ul.Append(Txt("li", "오류 발생").WithClass("text-danger"))
	case len(s.Products) == 0 && s.ShowingFavorites:
		return ul.Append(Txt("li", "즐겨찾기 없음").WithClass("text-muted"))
	case len(s.Products) == 0:
		return ul.Append(Txt("li", "검색 결과 없음").WithClass("text-muted"))
	}
	for _, p := range s.Products {
		discount := Txt("span", p.Discount.String()).WithClass("discount", "text-secondary")
		if p.OriginalPrice > 0 {
			discount = Txt("span", p.Discount.String()).WithClass("discount", "text-danger")
		}
		ul = ul.Append(El("li",
			Node{Tag: "img"}.WithAttr("src", p.ImageURL).WithAttr("alt", p.ProductName),
			Txt("div", p.ProductName).WithClass("product-name"),
			El("div",
				Txt("span", p.ProductNumber),
				When(p.Colors != "", Txt("span", p.Colors)),
				Txt("span", p.SalePrice.String()),
				discount,
			).WithClass("product-meta"),
		).WithRole("product").WithAttr("href", "/product/"+i64toa(p.ProductID)))
	}
	return ul
}

func keypadView(s SearchState) Node {
	pad := El("div").WithID("keypad-" + string(s.Mode)).WithClass("keypad")
	for _, keys := range s.Keys {
		r := El("div").WithClass("keypad-row")
		for _, k := range keys {
			b := button(k.Label, "key", "key", k.Value).WithClass("keypad-btn")
			if s.Shift && (k.Value == "shift-kor" || k.Value == "shift-eng") {
				b = b.WithClass("active", "btn-primary")
			}
			r = r.Append(b)
		}
		pad = pad.Append(r)
	}
	return El("div", pad).WithID("keypad-container")
}
