package view

import (
	"time"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
)

type SettingState struct {
	BrandName  string
	Stores     []domain.Store
	Staff      []domain.Staff
	Categories domain.CategoryConfig
	Loading    bool

	// EditStore and EditStaff are set while the edit dialog is open.
	EditStore *domain.Store
	EditStaff *domain.Staff

	BrandStatus    notify.Status
	LoadStatus     notify.Status
	StoreStatus    notify.Status
	StaffStatus    notify.Status
	CategoryStatus notify.Status
	Now            time.Time
}

func Setting(s SettingState) Node {
	page := El("main",
		El("section",
			El("form",
				input("brand-name-input", "brand_name", s.BrandName),
				button("저장", "set_brand").WithClass("btn-primary"),
			).WithID("form-brand-name"),
			InlineStatus("brand-name-status", s.BrandStatus, s.Now),
		).WithID("brand"),
		El("section",
			button("설정 파일 로드", "load_settings").WithID("btn-load-settings").Disabled(s.Loading),
			InlineStatus("load-settings-status", s.LoadStatus, s.Now),
		).WithID("load-settings"),
		storesSection(s),
		staffSection(s),
		categorySection(s),
	).WithID("setting")
	if s.EditStore != nil {
		page = page.Append(editStoreDialog(s.EditStore))
	}
	if s.EditStaff != nil {
		page = page.Append(editStaffDialog(s.EditStaff))
	}
	return page
}

func storesSection(s SettingState) Node {
	rows := make([]Node, 0, len(s.Stores))
	for _, st := range s.Stores {
		id := i64toa(st.ID)
		actions := El("td",
			button("수정", "edit_store", "id", id).WithClass("btn-edit-store"),
			button("삭제", "delete_store", "id", id).WithClass("btn-delete-store", "btn-danger"),
		)
		if !st.Approved {
			actions = actions.Append(button("승인", "approve_store", "id", id).WithClass("btn-approve-store", "btn-success"))
		} else {
			actions = actions.Append(button("초기화", "reset_store", "id", id).WithClass("btn-reset-store"))
		}
		active := "비활성화"
		if !st.Active {
			active = "활성화"
		}
		actions = actions.Append(button(active, "toggle_store_active", "id", id).WithClass("btn-toggle-active-store"))

		state := "미승인"
		switch {
		case st.Approved && st.Active:
			state = "운영중"
		case st.Approved:
			state = "비활성"
		}
		rows = append(rows, El("tr",
			Txt("td", st.StoreCode),
			Txt("td", st.StoreName),
			Txt("td", st.StorePhone),
			Txt("td", state),
			actions,
		).WithRole("store").WithAttr("data-id", id))
	}
	return El("section",
		El("form",
			input("new_store_code", "store_code", ""),
			input("new_store_name", "store_name", ""),
			input("new_store_phone", "store_phone", ""),
			button("매장 추가", "add_store").WithClass("btn-primary"),
		).WithID("form-add-store"),
		InlineStatus("add-store-status", s.StoreStatus, s.Now),
		table("all-stores-table", []string{"코드", "매장명", "연락처", "상태", ""}, rows, "등록된 매장이 없습니다.", 5),
	).WithID("stores")
}

func staffSection(s SettingState) Node {
	rows := make([]Node, 0, len(s.Staff))
	for _, st := range s.Staff {
		id := i64toa(st.ID)
		rows = append(rows, El("tr",
			Txt("td", st.Name),
			Txt("td", st.Position),
			Txt("td", st.Contact),
			El("td",
				button("수정", "edit_staff", "id", id).WithClass("btn-edit-staff"),
				button("삭제", "delete_staff", "id", id).WithClass("btn-delete-staff", "btn-danger"),
			),
		).WithRole("staff").WithAttr("data-id", id))
	}
	return El("section",
		El("form",
			input("new_staff_name", "name", ""),
			input("new_staff_position", "position", ""),
			input("new_staff_contact", "contact", ""),
			button("직원 추가", "add_staff").WithClass("btn-primary"),
		).WithID("form-add-staff"),
		InlineStatus("add-staff-status", s.StaffStatus, s.Now),
		table("all-staff-table", []string{"이름", "직책", "연락처", ""}, rows, "등록된 직원이 없습니다.", 4),
	).WithID("staff")
}

func categorySection(s SettingState) Node {
	box := El("div").WithID("cat-buttons-container")
	for i, b := range s.Categories.Buttons {
		idx := itoa(i)
		box = box.Append(El("div",
			input("", "label", b.Label).Action("set_category_row", "index", idx, "field", "label"),
			input("", "value", b.Value).Action("set_category_row", "index", idx, "field", "value"),
			button("×", "remove_category_row", "index", idx).WithClass("btn-remove-cat"),
		).WithRole("category-row").WithClass("cat-row"))
	}
	return El("section",
		El("form",
			input("cat-columns", "columns", itoa(s.Categories.Columns)).Action("set_category_columns"),
			box,
			button("행 추가", "add_category_row").WithID("btn-add-cat-row"),
			button("저장", "save_categories").WithClass("btn-primary"),
		).WithID("form-category-config"),
		InlineStatus("category-config-status", s.CategoryStatus, s.Now),
	).WithID("categories")
}

func editStoreDialog(st *domain.Store) Node {
	return El("dialog",
		input("edit_store_code", "store_code", st.StoreCode),
		input("edit_store_name", "store_name", st.StoreName),
		input("edit_store_phone", "store_phone", st.StorePhone),
		button("저장", "update_store", "id", i64toa(st.ID)).WithID("btn-save-edit-store").WithClass("btn-primary"),
		button("닫기", "close_modal"),
	).WithID("edit-store-modal")
}

func editStaffDialog(st *domain.Staff) Node {
	return El("dialog",
		input("edit_staff_name", "name", st.Name),
		input("edit_staff_position", "position", st.Position),
		input("edit_staff_contact", "contact", st.Contact),
		button("저장", "update_staff", "id", i64toa(st.ID)).WithID("btn-save-edit-staff").WithClass("btn-primary"),
		button("닫기", "close_modal"),
	).WithID("edit-staff-modal")
}
