package floworkapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"flowork/terminal/internal/domain"
)

type queryRequest struct {
	Query string `json:"query"`
}

// ProductSearch is the product-number search shared by the order, transfer
// and store order pages.
func (c *Client) ProductSearch(ctx context.Context, path, query string) ([]domain.ProductRef, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("query", "검색어를 입력하세요.")
	}
	var out domain.ProductListResponse
	if err := c.do(ctx, call{endpoint: "product_search", method: http.MethodPost, path: path, body: queryRequest{Query: query}, out: &out}); err != nil {
		return nil, err
	}
	return out.Products, nil
}

type lookupRequest struct {
	ProductNumber string `json:"product_number"`
}

// ProductLookup returns the colors and sizes available for a product number.
func (c *Client) ProductLookup(ctx context.Context, path, productNumber string) (domain.ProductOptions, error) {
	productNumber = strings.TrimSpace(productNumber)
	if productNumber == "" {
		return domain.ProductOptions{}, invalid("product_number", "품번을 입력하세요.")
	}
	var out domain.ProductOptions
	err := c.do(ctx, call{endpoint: "product_lookup", method: http.MethodPost, path: path, body: lookupRequest{ProductNumber: productNumber}, out: &out})
	return out, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, path string, req domain.OrderStatusRequest) (string, error) {
	if req.OrderID <= 0 || strings.TrimSpace(req.NewStatus) == "" {
		return "", invalid("order_status", "주문 상태를 확인하세요.")
	}
	return c.post(ctx, "update_order_status", path, req)
}

func (c *Client) SubmitOrder(ctx context.Context, path string, order domain.Order) (string, error) {
	return c.post(ctx, "submit_order", path, order)
}

func (c *Client) RequestTransfer(ctx context.Context, path string, req domain.TransferRequest) (string, error) {
	if req.SourceStoreID <= 0 || req.VariantID <= 0 || req.Quantity <= 0 {
		return "", invalid("transfer", "모든 항목을 입력하세요.")
	}
	return c.post(ctx, "request_transfer", path, req)
}

// TransferAction ships, rejects or receives a transfer. pathTemplate may use
// "{id}" and "{action}"; without them it is a prefix followed by id/action.
func (c *Client) TransferAction(ctx context.Context, pathTemplate string, id int64, action string) (string, error) {
	switch action {
	case domain.TransferShip, domain.TransferReject, domain.TransferReceive:
	default:
		return "", invalid("action", fmt.Sprintf("알 수 없는 작업입니다: %s", action))
	}
	path := pathTemplate
	if strings.Contains(path, "{action}") {
		path = expand(strings.ReplaceAll(path, "{action}", action), id)
	} else {
		path = fmt.Sprintf("%s/%d/%s", strings.TrimRight(path, "/"), id, action)
	}
	return c.post(ctx, "transfer_"+action, path, map[string]any{})
}

func (c *Client) CreateStoreOrder(ctx context.Context, path string, req domain.StoreOrderRequest) (string, error) {
	if req.VariantID <= 0 {
		return "", invalid("variant_id", "상품을 선택하세요.")
	}
	if req.Quantity <= 0 {
		return "", invalid("quantity", "수량을 입력하세요.")
	}
	return c.post(ctx, "create_store_order", path, req)
}

// UpdateStoreOrderStatus approves or rejects a store order. The status URL
// is prefix + id + "/status" unless the prefix carries "{id}".
func (c *Client) UpdateStoreOrderStatus(ctx context.Context, prefix string, id int64, req domain.StoreOrderStatus) (string, error) {
	if req.Status != domain.StoreOrderApproved && req.Status != domain.StoreOrderRejected {
		return "", invalid("status", "알 수 없는 상태입니다.")
	}
	if req.ConfirmedQuantity < 0 {
		return "", invalid("confirmed_quantity", "확정 수량은 0 이상이어야 합니다.")
	}
	path := prefix
	if strings.Contains(path, "{id}") {
		path = expand(path, id)
	} else {
		path = fmt.Sprintf("%s%d/status", path, id)
	}
	return c.post(ctx, "store_order_status", path, req)
}
