package floworkapi

import (
	"context"
	"net/http"
	"strings"

	"flowork/terminal/internal/domain"
)

type brandRequest struct {
	BrandName string `json:"brand_name"`
}

func (c *Client) SetBrand(ctx context.Context, path, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("brand_name", "브랜드 이름을 입력하세요.")
	}
	return c.post(ctx, "set_brand", path, brandRequest{BrandName: name})
}

// LoadSettings asks the server to reload its settings file.
func (c *Client) LoadSettings(ctx context.Context, path string) (string, error) {
	return c.post(ctx, "load_settings", path, map[string]any{})
}

func (c *Client) AddStore(ctx context.Context, path string, form domain.StoreForm) (string, error) {
	if err := validateStore(form); err != nil {
		return "", err
	}
	return c.post(ctx, "add_store", path, form)
}

func (c *Client) UpdateStore(ctx context.Context, prefix string, id int64, form domain.StoreForm) (string, error) {
	if err := validateStore(form); err != nil {
		return "", err
	}
	return c.post(ctx, "update_store", expand(prefix, id), form)
}

func (c *Client) DeleteStore(ctx context.Context, prefix string, id int64) (string, error) {
	return c.delete(ctx, "delete_store", expand(prefix, id))
}

func (c *Client) ApproveStore(ctx context.Context, prefix string, id int64) (string, error) {
	return c.post(ctx, "approve_store", expand(prefix, id), map[string]any{})
}

func (c *Client) ResetStore(ctx context.Context, prefix string, id int64) (string, error) {
	return c.post(ctx, "reset_store", expand(prefix, id), map[string]any{})
}

func (c *Client) ToggleStoreActive(ctx context.Context, prefix string, id int64) (string, error) {
	return c.post(ctx, "toggle_store_active", expand(prefix, id), map[string]any{})
}

func validateStore(form domain.StoreForm) error {
	if strings.TrimSpace(form.StoreName) == "" {
		return invalid("store_name", "매장 이름을 입력하세요.")
	}
	return nil
}

func (c *Client) AddStaff(ctx context.Context, path string, form domain.StaffForm) (string, error) {
	if strings.TrimSpace(form.Name) == "" {
		return "", invalid("name", "이름을 입력하세요.")
	}
	return c.post(ctx, "add_staff", path, form)
}

func (c *Client) UpdateStaff(ctx context.Context, prefix string, id int64, form domain.StaffForm) (string, error) {
	if strings.TrimSpace(form.Name) == "" {
		return "", invalid("name", "이름을 입력하세요.")
	}
	return c.post(ctx, "update_staff", expand(prefix, id), form)
}

func (c *Client) DeleteStaff(ctx context.Context, prefix string, id int64) (string, error) {
	return c.delete(ctx, "delete_staff", expand(prefix, id))
}

func (c *Client) UpdateSetting(ctx context.Context, path, key string, value any) (string, error) {
	return c.post(ctx, "update_setting", path, domain.SettingUpdate{Key: key, Value: value})
}

type storesResponse struct {
	domain.Envelope
	Stores []domain.Store `json:"stores"`
}

func (c *Client) ListStores(ctx context.Context, path string) ([]domain.Store, error) {
	var out storesResponse
	if err := c.do(ctx, call{endpoint: "list_stores", method: http.MethodGet, path: path, out: &out}); err != nil {
		return nil, err
	}
	return out.Stores, nil
}

type staffResponse struct {
	domain.Envelope
	Staff []domain.Staff `json:"staff"`
}

func (c *Client) ListStaff(ctx context.Context, path string) ([]domain.Staff, error) {
	var out staffResponse
	if err := c.do(ctx, call{endpoint: "list_staff", method: http.MethodGet, path: path, out: &out}); err != nil {
		return nil, err
	}
	return out.Staff, nil
}
