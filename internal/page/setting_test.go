package page

import (
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
)

func settingCfg() map[string]string {
	return map[string]string{
		"brand_url":         "/api/setting/brand_name",
		"load_settings_url": "/api/setting/load_from_file",
		"setting_url":       "/api/setting",
		"stores_url":        "/api/stores/list",
		"add_store_url":     "/api/stores",
		"update_store_url":  "/api/stores/update/{id}",
		"delete_store_url":  "/api/stores/delete/{id}",
		"approve_store_url": "/api/stores/approve/{id}",
		"reset_store_url":   "/api/stores/reset/{id}",
		"toggle_store_url":  "/api/stores/toggle_active/{id}",
		"staff_url":         "/api/staff/list",
		"add_staff_url":     "/api/staff",
		"update_staff_url":  "/api/staff/update/{id}",
		"delete_staff_url":  "/api/staff/delete/{id}",
		"brand_name":        "FLOWORK",
		"categories":        `{"columns":3,"buttons":[{"label":"상의","value":"TOP"}]}`,
	}
}

var settingStores = []map[string]any{
	{"id": 1, "store_code": "S01", "store_name": "강남점", "store_phone": "02-000", "is_approved": true, "is_active": true},
	{"id": 2, "store_code": "S02", "store_name": "홍대점", "is_approved": false, "is_active": true},
}

func settingState(p *testPage) *settingPage { return p.Controller.(*settingPage) }

func TestSettingLoadFetchesStoresAndStaff(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("GET /api/stores/list", map[string]any{"status": "success", "stores": settingStores})
	u.reply("GET /api/staff/list", map[string]any{"status": "success", "staff": []map[string]any{{"id": 9, "name": "김직원", "position": "매니저"}}})
	p := newTestPage(t, KindSetting, settingCfg(), client)

	p.do(t, "load", nil)
	s := settingState(p).state
	require.Len(t, s.Stores, 2)
	assert.Equal(t, "홍대점", s.Stores[1].StoreName)
	require.Len(t, s.Staff, 1)
	assert.Equal(t, "김직원", s.Staff[0].Name)
	assert.Equal(t, 3, s.Categories.Columns)
	assert.Empty(t, p.notes.Drain())
}

func TestSettingLoadFailureAlerts(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("GET /api/stores/list", map[string]any{"status": "success", "stores": settingStores})
	u.reply("GET /api/staff/list", map[string]any{"status": "error", "message": "권한이 없습니다."})
	p := newTestPage(t, KindSetting, settingCfg(), client)

	p.do(t, "load", nil)
	assert.Equal(t, []string{"권한이 없습니다."}, texts(p.notes.Drain()))
	assert.Nil(t, settingState(p).state.Stores)
}

func TestSettingBrandStatusIsInline(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/setting/brand_name", map[string]any{"status": "success"})
	p := newTestPage(t, KindSetting, settingCfg(), client)

	p.do(t, "set_brand", map[string]any{"brand_name": "  NEW  "})
	s := settingState(p).state
	assert.Equal(t, "NEW", s.BrandName)
	assert.Equal(t, "저장되었습니다.", s.BrandStatus.Text)
	assert.True(t, s.BrandStatus.Visible(testNow))
	assert.False(t, s.BrandStatus.Visible(testNow.Add(notify.InlineTTL)))

	notes := p.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "brand-name-status", notes[0].Target)

	p.do(t, "set_brand", map[string]any{"brand_name": " "})
	s = settingState(p).state
	assert.Equal(t, notify.Danger, s.BrandStatus.Kind)
	assert.Equal(t, "브랜드 이름을 입력하세요.", s.BrandStatus.Text)
	assert.Equal(t, 1, u.count("/api/setting/brand_name"))
}

func TestSettingStoreActionsConfirmAndReload(t *testing.T) {
	u, client := newUpstream(t)
	var listed atomic.Int32
	u.handle("GET /api/stores/list", func(w http.ResponseWriter, r *http.Request) {
		listed.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "stores": settingStores[:1]})
	})
	u.reply("DELETE /api/stores/delete/2", map[string]any{"status": "success", "message": "삭제되었습니다."})
	p := newTestPage(t, KindSetting, settingCfg(), client)

	p.do(t, "delete_store", map[string]any{"id": 2})
	notes := p.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.Confirm, notes[0].Kind)
	assert.Equal(t, "delete_store", notes[0].Action)
	assert.Zero(t, u.count("/api/stores/delete/2"))

	require.NoError(t, p.Dispatch(withYes(), "delete_store", mustJSON(t, map[string]any{"id": "2"})))
	assert.Equal(t, 1, u.count("/api/stores/delete/2"))
	assert.Equal(t, []string{"삭제되었습니다."}, texts(p.notes.Drain()))
	assert.Equal(t, int32(1), listed.Load())
	assert.Len(t, settingState(p).state.Stores, 1)

	require.ErrorIs(t, p.Dispatch(withYes(), "approve_store", mustJSON(t, map[string]any{"id": 0})), ErrBadPayload)
}

func TestSettingEditAndUpdateStore(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("GET /api/stores/list", map[string]any{"status": "success", "stores": settingStores})
	u.reply("GET /api/staff/list", map[string]any{"status": "success", "staff": []map[string]any{}})
	u.reply("POST /api/stores/update/1", map[string]any{"status": "success"})
	p := newTestPage(t, KindSetting, settingCfg(), client)
	p.do(t, "load", nil)

	require.ErrorIs(t, p.Dispatch(withYes(), "edit_store", mustJSON(t, map[string]any{"id": 42})), ErrBadPayload)

	p.do(t, "edit_store", map[string]any{"id": 1})
	require.NotNil(t, settingState(p).state.EditStore)
	assert.Equal(t, "강남점", settingState(p).state.EditStore.StoreName)

	p.do(t, "update_store", map[string]any{"id": 1, "store_code": "S01", "store_name": " "})
	assert.Equal(t, []string{"이름 필수"}, texts(p.notes.Drain()))
	assert.Zero(t, u.count("/api/stores/update/1"))

	p.do(t, "update_store", map[string]any{"id": 1, "store_code": "S01", "store_name": "강남본점 "})
	var sent domain.StoreForm
	u.body(t, "/api/stores/update/1", &sent)
	assert.Equal(t, "강남본점", sent.StoreName)
	assert.Nil(t, settingState(p).state.EditStore)
	assert.Equal(t, []string{"저장되었습니다."}, texts(p.notes.Drain()))
}

func TestSettingStaffLifecycle(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("GET /api/staff/list", map[string]any{"status": "success", "staff": []map[string]any{{"id": 9, "name": "김직원"}}})
	u.reply("POST /api/staff", map[string]any{"status": "success"})
	u.reply("DELETE /api/staff/delete/9", map[string]any{"status": "success"})
	p := newTestPage(t, KindSetting, settingCfg(), client, confirmAll)

	p.do(t, "add_staff", map[string]any{"name": ""})
	s := settingState(p).state
	assert.Equal(t, "이름 필수", s.StaffStatus.Text)
	assert.Zero(t, u.count("/api/staff"))
	p.notes.Drain()

	p.do(t, "add_staff", map[string]any{"name": "김직원", "position": "매니저", "contact": "010"})
	var sent domain.StaffForm
	u.body(t, "/api/staff", &sent)
	assert.Equal(t, domain.StaffForm{Name: "김직원", Position: "매니저", Contact: "010"}, sent)
	s = settingState(p).state
	assert.Equal(t, "추가되었습니다.", s.StaffStatus.Text)
	require.Len(t, s.Staff, 1)

	p.do(t, "edit_staff", map[string]any{"id": 9})
	require.NotNil(t, settingState(p).state.EditStaff)
	p.do(t, "close_modal", nil)
	assert.Nil(t, settingState(p).state.EditStaff)

	p.do(t, "delete_staff", map[string]any{"id": 9})
	assert.Equal(t, 1, u.count("/api/staff/delete/9"))
}

func TestSettingCategoryEditor(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/setting", map[string]any{"status": "success"})
	p := newTestPage(t, KindSetting, settingCfg(), client)

	p.do(t, "add_category_row", nil)
	p.do(t, "set_category_row", map[string]any{"index": 1, "field": "label", "value": " 하의 "})
	p.do(t, "set_category_row", map[string]any{"index": 1, "field": "value", "value": "BOTTOM"})
	p.do(t, "add_category_row", nil)
	require.ErrorIs(t, p.Dispatch(withYes(), "set_category_row", mustJSON(t, map[string]any{"index": 5, "field": "label", "value": "x"})), ErrBadPayload)

	p.do(t, "set_category_columns", map[string]any{"columns": 0})
	assert.Equal(t, []string{"열 수는 1 이상이어야 합니다."}, texts(p.notes.Drain()))
	p.do(t, "set_category_columns", map[string]any{"columns": "4"})

	p.do(t, "save_categories", nil)
	var sent struct {
		Key   string                `json:"key"`
		Value domain.CategoryConfig `json:"value"`
	}
	u.body(t, "/api/setting", &sent)
	assert.Equal(t, domain.SettingCategoryConfig, sent.Key)
	assert.Equal(t, domain.CategoryConfig{
		Columns: 4,
		Buttons: []domain.CategoryButton{{Label: "상의", Value: "TOP"}, {Label: "하의", Value: "BOTTOM"}},
	}, sent.Value)

	s := settingState(p).state
	assert.Len(t, s.Categories.Buttons, 2, "blank rows are dropped on save")
	assert.Equal(t, "저장되었습니다.", s.CategoryStatus.Text)

	p.do(t, "remove_category_row", map[string]any{"index": 0})
	assert.Equal(t, "BOTTOM", settingState(p).state.Categories.Buttons[0].Value)
}

func TestSettingLoadSettingsNeedsConfirmation(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/setting/load_from_file", map[string]any{"status": "success", "message": "로드 완료"})
	p := newTestPage(t, KindSetting, settingCfg(), client)

	p.do(t, "load_settings", nil)
	assert.Zero(t, u.count("/api/setting/load_from_file"))
	p.notes.Drain()

	require.NoError(t, p.Dispatch(withYes(), "load_settings", nil))
	s := settingState(p).state
	assert.False(t, s.Loading)
	assert.Equal(t, "로드 완료", s.LoadStatus.Text)
}
