package floworkapi

import (
	"context"
	"net/http"
	"strings"

	"flowork/terminal/internal/domain"
)

// SearchProducts runs the sales/refund product search. In detail_stock mode
// the server answers with the variant list of one product number.
func (c *Client) SearchProducts(ctx context.Context, path string, req domain.SearchRequest) (domain.SearchResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return domain.SearchResponse{}, invalid("query", "검색어를 입력하세요.")
	}
	var out domain.SearchResponse
	err := c.do(ctx, call{endpoint: "search_products", method: http.MethodPost, path: path, body: req, out: &out})
	return out, err
}

type salesSettingsResponse struct {
	domain.Envelope
	Config domain.SalesSettings `json:"config"`
}

func (c *Client) SalesSettings(ctx context.Context, path string) (domain.SalesSettings, error) {
	var out salesSettingsResponse
	if err := c.do(ctx, call{endpoint: "sales_settings", method: http.MethodGet, path: path, out: &out}); err != nil {
		return domain.SalesSettings{}, err
	}
	return out.Config, nil
}

func (c *Client) SubmitSale(ctx context.Context, path string, req domain.SaleRequest) (domain.SaleResponse, error) {
	if len(req.Items) == 0 {
		return domain.SaleResponse{}, invalid("items", "판매할 상품이 없습니다.")
	}
	var out domain.SaleResponse
	err := c.do(ctx, call{endpoint: "submit_sale", method: http.MethodPost, path: path, body: req, out: &out})
	return out, err
}

// RefundSale refunds a whole receipt. pathTemplate carries the sale id
// placeholder.
func (c *Client) RefundSale(ctx context.Context, pathTemplate string, saleID int64) (string, error) {
	if saleID <= 0 {
		return "", invalid("sale_id", "환불할 영수증을 선택하세요.")
	}
	return c.post(ctx, "refund_sale", expand(pathTemplate, saleID), map[string]any{})
}

type refundRecordsResponse struct {
	domain.Envelope
	Records []domain.RefundRecord `json:"records"`
}

func (c *Client) RefundRecords(ctx context.Context, path string, req domain.RefundRecordsRequest) ([]domain.RefundRecord, error) {
	var out refundRecordsResponse
	if err := c.do(ctx, call{endpoint: "refund_records", method: http.MethodPost, path: path, body: req, out: &out}); err != nil {
		return nil, err
	}
	return out.Records, nil
}

type saleDetailsResponse struct {
	domain.Envelope
	Items []domain.SaleDetailItem `json:"items"`
}

func (c *Client) SaleDetails(ctx context.Context, pathTemplate string, saleID int64) ([]domain.SaleDetailItem, error) {
	var out saleDetailsResponse
	if err := c.do(ctx, call{endpoint: "sale_details", method: http.MethodGet, path: expand(pathTemplate, saleID), out: &out}); err != nil {
		return nil, err
	}
	return out.Items, nil
}
