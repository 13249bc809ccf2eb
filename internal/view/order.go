package view

import (
	"flowork/terminal/internal/domain"
)

type OrderState struct {
	Order   domain.Order
	Sources []domain.Store

	Query        string
	Results      []domain.ProductRef
	Searched     bool
	Colors       []string
	Sizes        []string
	LookupStatus string
	LookupFailed bool
	Submitted    bool
}

// Order draws the customer order form. Address fields only show for
// delivery; shipping and completion fields follow the status.
func Order(s OrderState) Node {
	o := s.Order
	delivery := o.ReceptionMethod == domain.ReceptionDelivery

	reception := El("div").WithID("reception-method")
	for _, m := range []string{domain.ReceptionVisit, domain.ReceptionDelivery} {
		reception = reception.Append(radio("reception-"+m, m, o.ReceptionMethod == m).
			Action("set_reception", "method", m))
	}

	status := El("select").WithID("order_status").Action("set_status")
	for _, st := range domain.OrderStatuses {
		status = status.Append(option(st, st, o.Status == st))
	}

	form := El("form",
		reception,
		status,
		input("customer_name", "customer_name", o.CustomerName),
		input("customer_phone", "customer_phone", o.CustomerPhone),
		When(delivery, El("div",
			Txt("small", "* 택배수령 시 주소는 필수입니다.").WithID("address-required-text"),
			input("postcode", "postcode", o.Postcode),
			input("address1", "address1", o.Address1).WithAttr("required", "true"),
			input("address2", "address2", o.Address2).WithAttr("required", "true"),
		).WithID("address-fields-wrapper")),
		productPicker(s),
		When(o.Status == domain.OrderStatusShipped, El("div",
			input("courier_company", "courier_company", o.CourierCompany),
			input("tracking_number", "tracking_number", o.TrackingNumber),
		).WithID("shipping-fields")),
		When(o.Status == domain.OrderStatusComplete, El("div",
			input("completed_at", "completed_at", o.CompletedAt),
		).WithID("completion-fields")),
		processingRows(s),
		input("remarks", "remarks", o.Remarks),
		button("저장", "submit").WithID("btn-submit-order").WithClass("btn-primary"),
	).WithID("order-form")

	return El("main", form).WithID("order")
}

func productPicker(s OrderState) Node {
	o := s.Order
	box := El("div",
		input("product_search", "query", s.Query).Action("search_product"),
		input("product_number", "product_number", o.ProductNumber).WithAttr("readonly", "true"),
		input("product_name", "product_name", o.ProductName).WithAttr("readonly", "true"),
	).WithID("product-picker")

	if s.Searched {
		list := El("div").WithID("product-search-results").WithClass("list-group")
		if len(s.Results) == 0 {
			list = list.Append(Txt("div", "검색 결과 없음").WithClass("p-2"))
		}
		for _, p := range s.Results {
			list = list.Append(button(p.ProductName+" ("+p.ProductNumber+")", "select_product", "product_number", p.ProductNumber).
				WithRole("product-result").
				WithClass("list-group-item"))
		}
		box = box.Append(list)
	}
	if s.LookupStatus != "" {
		st := Txt("div", s.LookupStatus).WithID("product-lookup-status")
		if s.LookupFailed {
			st = st.WithClass("text-danger")
		} else {
			st = st.WithClass("text-success")
		}
		box = box.Append(st)
	}

	colors := El("select", option("", "컬러 선택", o.Color == "")).WithID("color").Action("set_option", "field", "color").
		Disabled(len(s.Colors) == 0)
	for _, c := range s.Colors {
		colors = colors.Append(option(c, c, o.Color == c))
	}
	sizes := El("select", option("", "사이즈 선택", o.Size == "")).WithID("size").Action("set_option", "field", "size").
		Disabled(len(s.Sizes) == 0)
	for _, z := range s.Sizes {
		sizes = sizes.Append(option(z, z, o.Size == z))
	}
	return box.Append(colors, sizes)
}

func processingRows(s OrderState) Node {
	box := El("div").WithID("processing-body")
	for i, p := range s.Order.Processing {
		idx := itoa(i)
		src := El("select", option("", "주문처 선택", p.Source == "")).
			Action("set_processing", "index", idx, "field", "source")
		for _, st := range s.Sources {
			src = src.Append(option(st.StoreName, st.StoreName, p.Source == st.StoreName))
		}
		box = box.Append(El("div",
			src,
			input("", "processing_result", p.Result).Action("set_processing", "index", idx, "field", "result"),
			button("삭제", "remove_processing", "index", idx).WithClass("btn-outline-danger").
				Disabled(len(s.Order.Processing) <= 1),
		).WithRole("processing-row"))
	}
	return box.Append(button("처리 내역 추가", "add_processing").WithID("btn-add-processing"))
}

type OrderListState struct {
	Orders []domain.Order
}

// OrderList draws one row per order with a status button group; the
// current status is drawn active and carries no action.
func OrderList(s OrderListState) Node {
	rows := make([]Node, 0, len(s.Orders))
	for _, o := range s.Orders {
		group := El("div").WithClass("btn-group", "status-group")
		for _, st := range domain.OrderStatuses {
			if st == o.Status {
				group = group.Append(Txt("button", st).WithClass("btn", "btn-primary", "active").WithRole("status"))
				continue
			}
			group = group.Append(button(st, "update_status",
				"order_id", i64toa(o.ID), "new_status", st, "current_status", o.Status).
				WithClass("btn-outline-secondary").WithRole("status"))
		}
		rows = append(rows, El("tr",
			Txt("td", i64toa(o.ID)),
			Txt("td", o.CustomerName),
			Txt("td", o.ProductName),
			Txt("td", o.Color+" / "+o.Size),
			Txt("td", o.ReceptionMethod),
			El("td", group),
		).WithRole("order").WithAttr("data-order-id", i64toa(o.ID)))
	}
	return El("main",
		table("order-list-table", []string{"ID", "고객", "상품", "옵션", "수령", "상태"}, rows, "주문 내역이 없습니다.", 6),
	).WithID("order-list")
}
