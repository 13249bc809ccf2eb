package page

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/view"
)

type settingConfig struct {
	BrandURL        string `json:"brand_url" validate:"required"`
	LoadSettingsURL string `json:"load_settings_url" validate:"required"`
	SettingURL      string `json:"setting_url" validate:"required"`

	StoresURL       string `json:"stores_url" validate:"required"`
	AddStoreURL     string `json:"add_store_url" validate:"required"`
	UpdateStoreURL  string `json:"update_store_url" validate:"required"`
	DeleteStoreURL  string `json:"delete_store_url" validate:"required"`
	ApproveStoreURL string `json:"approve_store_url" validate:"required"`
	ResetStoreURL   string `json:"reset_store_url" validate:"required"`
	ToggleStoreURL  string `json:"toggle_store_url" validate:"required"`

	StaffURL       string `json:"staff_url" validate:"required"`
	AddStaffURL    string `json:"add_staff_url" validate:"required"`
	UpdateStaffURL string `json:"update_staff_url" validate:"required"`
	DeleteStaffURL string `json:"delete_staff_url" validate:"required"`

	BrandName  string `json:"brand_name"`
	Categories string `json:"categories"`
}

type settingPage struct {
	base
	cfg   settingConfig
	state view.SettingState
}

func newSetting(raw map[string]string, deps Deps, notes notify.Notifier) (*settingPage, error) {
	var cfg settingConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &settingPage{cfg: cfg}
	p.state.BrandName = cfg.BrandName
	if cfg.Categories != "" {
		if err := json.Unmarshal([]byte(cfg.Categories), &p.state.Categories); err != nil {
			return nil, errors.Wrap(err, "invalid page config: categories")
		}
	}
	p.init(KindSetting, deps, notes)
	p.actions = map[string]handler{
		"load":                 p.load,
		"set_brand":            p.setBrand,
		"load_settings":        p.loadSettings,
		"add_store":            p.addStore,
		"edit_store":           p.editStore,
		"update_store":         p.updateStore,
		"delete_store":         p.storeAction("삭제하시겠습니까?", p.deps.Client.DeleteStore, cfg.DeleteStoreURL),
		"approve_store":        p.storeAction("승인하시겠습니까?", p.deps.Client.ApproveStore, cfg.ApproveStoreURL),
		"reset_store":          p.storeAction("초기화하시겠습니까?", p.deps.Client.ResetStore, cfg.ResetStoreURL),
		"toggle_store_active":  p.storeAction("상태 변경?", p.deps.Client.ToggleStoreActive, cfg.ToggleStoreURL),
		"add_staff":            p.addStaff,
		"edit_staff":           p.editStaff,
		"update_staff":         p.updateStaff,
		"delete_staff":         p.deleteStaff,
		"close_modal":          p.closeModal,
		"add_category_row":     p.addCategoryRow,
		"remove_category_row":  p.removeCategoryRow,
		"set_category_row":     p.setCategoryRow,
		"set_category_columns": p.setCategoryColumns,
		"save_categories":      p.saveCategories,
	}
	return p, nil
}

func (p *settingPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Categories.Buttons = slices.Clone(p.state.Categories.Buttons)
	s.Now = p.now()
	return view.Setting(s)
}

func (p *settingPage) status(dst *notify.Status, target string, kind notify.Kind, text string) {
	*dst = notify.NewStatus(kind, text, p.now())
	p.notes.Inline(target, kind, text)
}

// load fetches the store and staff lists side by side.
func (p *settingPage) load(ctx context.Context, _ json.RawMessage) error {
	var stores []domain.Store
	var staff []domain.Staff
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stores, err = p.deps.Client.ListStores(gctx, p.cfg.StoresURL)
		return err
	})
	g.Go(func() error {
		var err error
		staff, err = p.deps.Client.ListStaff(gctx, p.cfg.StaffURL)
		return err
	})
	if err := g.Wait(); err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.state.Stores, p.state.Staff = stores, staff
	return nil
}

func (p *settingPage) refreshStores(ctx context.Context) {
	stores, err := p.deps.Client.ListStores(ctx, p.cfg.StoresURL)
	if err != nil {
		p.deps.Logger.Warn(ctx, "reload stores: "+err.Error())
		return
	}
	p.state.Stores = stores
}

func (p *settingPage) refreshStaff(ctx context.Context) {
	staff, err := p.deps.Client.ListStaff(ctx, p.cfg.StaffURL)
	if err != nil {
		p.deps.Logger.Warn(ctx, "reload staff: "+err.Error())
		return
	}
	p.state.Staff = staff
}

func (p *settingPage) setBrand(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		BrandName string `json:"brand_name"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	msg, err := p.deps.Client.SetBrand(ctx, p.cfg.BrandURL, in.BrandName)
	if err != nil {
		p.rejected = true
		p.status(&p.state.BrandStatus, "brand-name-status", notify.Danger, userText(err))
		return nil
	}
	p.state.BrandName = strings.TrimSpace(in.BrandName)
	p.status(&p.state.BrandStatus, "brand-name-status", notify.Success, orDefault(msg, "저장되었습니다."))
	return nil
}

func (p *settingPage) loadSettings(ctx context.Context, _ json.RawMessage) error {
	if !p.confirm(ctx, "설정 파일을 로드하시겠습니까?") {
		return nil
	}
	p.state.Loading = true
	defer func() { p.state.Loading = false }()
	msg, err := p.deps.Client.LoadSettings(ctx, p.cfg.LoadSettingsURL)
	if err != nil {
		p.rejected = true
		p.status(&p.state.LoadStatus, "load-settings-status", notify.Danger, userText(err))
		return nil
	}
	p.status(&p.state.LoadStatus, "load-settings-status", notify.Success, orDefault(msg, "설정을 불러왔습니다."))
	return nil
}

type storeForm struct {
	ID         Int    `json:"id"`
	StoreCode  string `json:"store_code"`
	StoreName  string `json:"store_name"`
	StorePhone string `json:"store_phone"`
}

func (f storeForm) form() domain.StoreForm {
	return domain.StoreForm{
		StoreCode:  strings.TrimSpace(f.StoreCode),
		StoreName:  strings.TrimSpace(f.StoreName),
		StorePhone: strings.TrimSpace(f.StorePhone),
	}
}

func (p *settingPage) addStore(ctx context.Context, payload json.RawMessage) error {
	var in storeForm
	if err := decode(payload, &in); err != nil {
		return err
	}
	form := in.form()
	if form.StoreName == "" {
		p.rejected = true
		p.status(&p.state.StoreStatus, "add-store-status", notify.Danger, "이름 필수")
		return nil
	}
	msg, err := p.deps.Client.AddStore(ctx, p.cfg.AddStoreURL, form)
	if err != nil {
		p.rejected = true
		p.status(&p.state.StoreStatus, "add-store-status", notify.Danger, userText(err))
		return nil
	}
	p.status(&p.state.StoreStatus, "add-store-status", notify.Success, orDefault(msg, "추가되었습니다."))
	p.refreshStores(ctx)
	return nil
}

func (p *settingPage) findStore(id int64) (domain.Store, bool) {
	for _, st := range p.state.Stores {
		if st.ID == id {
			return st, true
		}
	}
	return domain.Store{}, false
}

func (p *settingPage) editStore(_ context.Context, payload json.RawMessage) error {
	var in struct {
		ID Int `json:"id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	st, ok := p.findStore(int64(in.ID))
	if !ok {
		return errors.Wrapf(ErrBadPayload, "store %d", in.ID)
	}
	p.state.EditStaff = nil
	p.state.EditStore = &st
	return nil
}

func (p *settingPage) updateStore(ctx context.Context, payload json.RawMessage) error {
	var in storeForm
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.ID <= 0 {
		return errors.Wrap(ErrBadPayload, "store id")
	}
	form := in.form()
	if form.StoreName == "" {
		p.reject("이름 필수")
		return nil
	}
	if _, err := p.deps.Client.UpdateStore(ctx, p.cfg.UpdateStoreURL, int64(in.ID), form); err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.state.EditStore = nil
	p.notes.Toast(notify.Success, "저장되었습니다.")
	p.refreshStores(ctx)
	return nil
}

type storeCall func(ctx context.Context, prefix string, id int64) (string, error)

// storeAction builds a confirmed per-store action followed by a reload.
func (p *settingPage) storeAction(question string, call storeCall, prefix string) handler {
	return func(ctx context.Context, payload json.RawMessage) error {
		var in struct {
			ID Int `json:"id"`
		}
		if err := decode(payload, &in); err != nil {
			return err
		}
		if in.ID <= 0 {
			return errors.Wrap(ErrBadPayload, "store id")
		}
		if !p.confirm(ctx, question) {
			return nil
		}
		msg, err := call(ctx, prefix, int64(in.ID))
		if err != nil {
			p.fail(ctx, err)
			return nil
		}
		if msg != "" {
			p.notes.Toast(notify.Success, msg)
		}
		p.refreshStores(ctx)
		return nil
	}
}

type staffForm struct {
	ID       Int    `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Contact  string `json:"contact"`
}

func (f staffForm) form() domain.StaffForm {
	return domain.StaffForm{
		Name:     strings.TrimSpace(f.Name),
		Position: strings.TrimSpace(f.Position),
		Contact:  strings.TrimSpace(f.Contact),
	}
}

func (p *settingPage) addStaff(ctx context.Context, payload json.RawMessage) error {
	var in staffForm
	if err := decode(payload, &in); err != nil {
		return err
	}
	form := in.form()
	if form.Name == "" {
		p.rejected = true
		p.status(&p.state.StaffStatus, "add-staff-status", notify.Danger, "이름 필수")
		return nil
	}
	msg, err := p.deps.Client.AddStaff(ctx, p.cfg.AddStaffURL, form)
	if err != nil {
		p.rejected = true
		p.status(&p.state.StaffStatus, "add-staff-status", notify.Danger, userText(err))
		return nil
	}
	p.status(&p.state.StaffStatus, "add-staff-status", notify.Success, orDefault(msg, "추가되었습니다."))
	p.refreshStaff(ctx)
	return nil
}

func (p *settingPage) editStaff(_ context.Context, payload json.RawMessage) error {
	var in struct {
		ID Int `json:"id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	for _, st := range p.state.Staff {
		if st.ID == int64(in.ID) {
			p.state.EditStore = nil
			p.state.EditStaff = &st
			return nil
		}
	}
	return errors.Wrapf(ErrBadPayload, "staff %d", in.ID)
}

func (p *settingPage) updateStaff(ctx context.Context, payload json.RawMessage) error {
	var in staffForm
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.ID <= 0 {
		return errors.Wrap(ErrBadPayload, "staff id")
	}
	form := in.form()
	if form.Name == "" {
		p.reject("이름 필수")
		return nil
	}
	if _, err := p.deps.Client.UpdateStaff(ctx, p.cfg.UpdateStaffURL, int64(in.ID), form); err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.state.EditStaff = nil
	p.notes.Toast(notify.Success, "저장되었습니다.")
	p.refreshStaff(ctx)
	return nil
}

func (p *settingPage) deleteStaff(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		ID Int `json:"id"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.ID <= 0 {
		return errors.Wrap(ErrBadPayload, "staff id")
	}
	if !p.confirm(ctx, "삭제하시겠습니까?") {
		return nil
	}
	if _, err := p.deps.Client.DeleteStaff(ctx, p.cfg.DeleteStaffURL, int64(in.ID)); err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.refreshStaff(ctx)
	return nil
}

func (p *settingPage) closeModal(context.Context, json.RawMessage) error {
	p.state.EditStore, p.state.EditStaff = nil, nil
	return nil
}

func (p *settingPage) addCategoryRow(context.Context, json.RawMessage) error {
	p.state.Categories.Buttons = append(p.state.Categories.Buttons, domain.CategoryButton{})
	return nil
}

func (p *settingPage) categoryIndex(raw Int) (int, error) {
	idx := int(raw)
	if idx < 0 || idx >= len(p.state.Categories.Buttons) {
		return -1, errors.Wrapf(ErrBadPayload, "category row %d", idx)
	}
	return idx, nil
}

func (p *settingPage) removeCategoryRow(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int `json:"index"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	idx, err := p.categoryIndex(in.Index)
	if err != nil {
		return err
	}
	p.state.Categories.Buttons = slices.Delete(p.state.Categories.Buttons, idx, idx+1)
	return nil
}

func (p *settingPage) setCategoryRow(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Index Int    `json:"index"`
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	idx, err := p.categoryIndex(in.Index)
	if err != nil {
		return err
	}
	b := &p.state.Categories.Buttons[idx]
	switch in.Field {
	case "label":
		b.Label = strings.TrimSpace(in.Value)
	case "value":
		b.Value = strings.TrimSpace(in.Value)
	default:
		return errors.Wrapf(ErrBadPayload, "field %q", in.Field)
	}
	return nil
}

func (p *settingPage) setCategoryColumns(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Columns Int `json:"columns"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Columns < 1 {
		p.reject("열 수는 1 이상이어야 합니다.")
		return nil
	}
	p.state.Categories.Columns = int(in.Columns)
	return nil
}

func (p *settingPage) saveCategories(ctx context.Context, _ json.RawMessage) error {
	cfg := domain.CategoryConfig{Columns: p.state.Categories.Columns}
	for _, b := range p.state.Categories.Buttons {
		if b.Label == "" || b.Value == "" {
			continue
		}
		cfg.Buttons = append(cfg.Buttons, b)
	}
	if cfg.Columns < 1 {
		cfg.Columns = 1
	}
	msg, err := p.deps.Client.UpdateSetting(ctx, p.cfg.SettingURL, domain.SettingCategoryConfig, cfg)
	if err != nil {
		p.rejected = true
		p.status(&p.state.CategoryStatus, "category-config-status", notify.Danger, userText(err))
		return nil
	}
	p.state.Categories = cfg
	p.status(&p.state.CategoryStatus, "category-config-status", notify.Success, orDefault(msg, "저장되었습니다."))
	return nil
}

func orDefault(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
