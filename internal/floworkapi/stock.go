package floworkapi

import (
	"context"
	"net/http"
	"strings"

	"flowork/terminal/internal/domain"
)

type fetchVariantRequest struct {
	Barcode       string `json:"barcode"`
	TargetStoreID *int64 `json:"target_store_id"`
}

type scanLookupResponse struct {
	domain.Envelope
	domain.ScanLookup
}

// FetchVariant looks up a scanned barcode together with the store stock of
// targetStoreID (nil for the operator's own store).
func (c *Client) FetchVariant(ctx context.Context, path, barcode string, targetStoreID *int64) (domain.ScanLookup, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.ScanLookup{}, invalid("barcode", "바코드가 비어 있습니다.")
	}
	var out scanLookupResponse
	err := c.do(ctx, call{
		endpoint: "fetch_variant",
		method:   http.MethodPost,
		path:     path,
		body:     fetchVariantRequest{Barcode: barcode, TargetStoreID: targetStoreID},
		out:      &out,
	})
	if err != nil {
		return domain.ScanLookup{}, err
	}
	if out.Barcode == "" {
		out.Barcode = barcode
	}
	return out.ScanLookup, nil
}

func (c *Client) BulkUpdateStock(ctx context.Context, path string, req domain.BulkStockRequest) (string, error) {
	if len(req.Items) == 0 {
		return "", invalid("items", "저장할 항목이 없습니다.")
	}
	return c.post(ctx, "bulk_update_stock", path, req)
}

func (c *Client) LiveSearch(ctx context.Context, path string, req domain.LiveSearchRequest) (domain.LiveSearchResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	var out domain.LiveSearchResponse
	err := c.do(ctx, call{endpoint: "live_search", method: http.MethodPost, path: path, body: req, out: &out})
	return out, err
}

func (c *Client) UpdateStock(ctx context.Context, path string, req domain.StockChangeRequest) (domain.StockChangeResponse, error) {
	var out domain.StockChangeResponse
	err := c.do(ctx, call{endpoint: "update_stock", method: http.MethodPost, path: path, body: req, out: &out})
	return out, err
}

func (c *Client) UpdateActualStock(ctx context.Context, path string, req domain.ActualStockRequest) (domain.ActualStockResponse, error) {
	if req.ActualStock < 0 {
		return domain.ActualStockResponse{}, invalid("actual_stock", "실사재고는 0 이상이어야 합니다.")
	}
	var out domain.ActualStockResponse
	err := c.do(ctx, call{endpoint: "update_actual_stock", method: http.MethodPost, path: path, body: req, out: &out})
	return out, err
}

type favoriteRequest struct {
	ProductID int64 `json:"product_id"`
}

func (c *Client) ToggleFavorite(ctx context.Context, path string, productID int64) (domain.FavoriteResponse, error) {
	var out domain.FavoriteResponse
	err := c.do(ctx, call{
		endpoint: "toggle_favorite",
		method:   http.MethodPost,
		path:     path,
		body:     favoriteRequest{ProductID: productID},
		out:      &out,
	})
	return out, err
}

func (c *Client) UpdateProductDetails(ctx context.Context, path string, req domain.ProductUpdate) (string, error) {
	return c.post(ctx, "update_product_details", path, req)
}
