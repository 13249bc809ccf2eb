package floworkapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowork/terminal/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL, Options{CSRFToken: "tok-1", SessionCookie: "session=abc"})
	require.NoError(t, err)
	return client
}

func writeJSONBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := New("/api", Options{})
	require.Error(t, err)
}

func TestRequestsCarryHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.Header.Get(HeaderCSRF))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "session=abc", r.Header.Get("Cookie"))
		assert.Equal(t, "/api/sales/search_products", r.URL.Path)

		var req domain.SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "DX123", req.Query)
		assert.Equal(t, domain.SearchModeSales, req.Mode)

		writeJSONBody(w, http.StatusOK, map[string]any{
			"status":     "success",
			"match_type": "variant",
			"result":     map[string]any{"variant_id": 7, "product_name": "러닝화", "sale_price": 59000},
		})
	})

	res, err := client.SearchProducts(context.Background(), "/api/sales/search_products", domain.SearchRequest{Query: " DX123 ", Mode: domain.SearchModeSales})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchVariant, res.MatchType)
	require.NotNil(t, res.Result)
	assert.Equal(t, int64(7), res.Result.VariantID)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "json error body uses server message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSONBody(w, http.StatusBadRequest, map[string]any{"status": "error", "message": "재고 부족"})
			},
			check: func(t *testing.T, err error) {
				assert.True(t, IsApp(err))
				assert.Equal(t, "재고 부족", UserMessage(err))
			},
		},
		{
			name: "json error body without message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSONBody(w, http.StatusInternalServerError, map[string]any{"status": "error"})
			},
			check: func(t *testing.T, err error) {
				assert.True(t, IsApp(err))
				assert.Equal(t, "Server Error: 500", UserMessage(err))
			},
		},
		{
			name: "html error page is a transport error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, "<h1>not found</h1>")
			},
			check: func(t *testing.T, err error) {
				assert.True(t, IsTransport(err))
				assert.Equal(t, "Server Error: 404 (Not Found)", UserMessage(err))
			},
		},
		{
			name: "ok status with failed envelope",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSONBody(w, http.StatusOK, map[string]any{"status": "error", "message": "존재하지 않는 바코드"})
			},
			check: func(t *testing.T, err error) {
				assert.True(t, IsApp(err))
				assert.Equal(t, "존재하지 않는 바코드", UserMessage(err))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, tc.handler)
			_, err := client.FetchVariant(context.Background(), "/api/fetch_variant", "8801", nil)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestValidationHappensBeforeRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.FetchVariant(context.Background(), "/api/fetch_variant", "  ", nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = client.RequestTransfer(context.Background(), "/api/stock_transfer/request", domain.TransferRequest{VariantID: 1, Quantity: 1})
	assert.True(t, IsValidation(err))

	_, err = client.SearchProducts(context.Background(), "", domain.SearchRequest{Query: "x"})
	assert.True(t, IsValidation(err))
	assert.False(t, called)
}

func TestFetchVariantSendsTargetStore(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["target_store_id"])
		writeJSONBody(w, http.StatusOK, map[string]any{
			"status": "success", "barcode": "8801", "product_name": "자켓", "color": "BK", "size": "95", "store_stock": 4,
		})
	})
	store := int64(3)
	got, err := client.FetchVariant(context.Background(), "/api/fetch_variant", "8801", &store)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.StoreStock)
	assert.Equal(t, "자켓", got.ProductName)
}

func TestURLTemplates(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeJSONBody(w, http.StatusOK, map[string]any{"status": "success", "message": "ok", "items": []any{}})
	})
	ctx := context.Background()

	_, err := client.RefundSale(ctx, "/api/sales/999999/refund", 42)
	require.NoError(t, err)
	_, err = client.SaleDetails(ctx, "/api/sales/{id}/details", 42)
	require.NoError(t, err)
	_, err = client.DeleteStore(ctx, "/api/stores/", 5)
	require.NoError(t, err)
	_, err = client.TransferAction(ctx, "/api/stock_transfer", 9, domain.TransferShip)
	require.NoError(t, err)
	_, err = client.UpdateStoreOrderStatus(ctx, "/api/store_orders/", 11, domain.StoreOrderStatus{Status: domain.StoreOrderRejected})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/sales/42/refund",
		"GET /api/sales/42/details",
		"DELETE /api/stores/5",
		"POST /api/stock_transfer/9/ship",
		"POST /api/store_orders/11/status",
	}, paths)
}

func TestTransferActionRejectsUnknownAction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL.Path)
	})
	_, err := client.TransferAction(context.Background(), "/api/stock_transfer", 1, "cancel")
	assert.True(t, IsValidation(err))
}

func TestUploadExcelSendsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "A", r.FormValue("col_barcode"))
		assert.Equal(t, "2,5", r.FormValue("excluded_row_indices"))
		file, header, err := r.FormFile(DefaultFileField)
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "stock.xlsx", header.Filename)
		assert.Equal(t, []byte("PK"), data)
		writeJSONBody(w, http.StatusOK, map[string]any{"status": "success", "task_id": "t-1"})
	})

	up := Upload{Filename: "stock.xlsx", Data: []byte("PK"), Fields: map[string]string{"col_barcode": "A"}}
	res, err := client.UploadExcel(context.Background(), "/api/upload", up.WithExcluded([]int{2, 5}))
	require.NoError(t, err)
	assert.Equal(t, "t-1", res.TaskID)
	assert.NotContains(t, up.Fields, "excluded_row_indices")
}

func TestTaskStatusKeepsProcessingStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/task_status/t-1", r.URL.Path)
		writeJSONBody(w, http.StatusOK, map[string]any{"status": "processing", "percent": 40, "current": 4, "total": 10})
	})
	status, err := client.TaskStatus(context.Background(), "/api/task_status/", "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskProcessing, status.Status)
	assert.Equal(t, 40, status.Percent)
}

func TestHolidaysSortedByDate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusOK, map[string]string{"2025-03-01": "삼일절", "2025-01-01": "신정"})
	})
	got, err := client.Holidays(context.Background(), "/api/holidays")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "신정", got[0].Name)
}

func TestFetchCSRFTokenReadsMetaTag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><meta charset="utf-8"><meta name="csrf-token" content="fresh-token"></head><body></body></html>`)
	})
	token, err := client.FetchCSRFToken(context.Background(), "/sales")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, "fresh-token", client.CSRFToken())
}

func TestCancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusOK, map[string]any{"status": "success"})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.SalesSettings(ctx, "/api/sales/settings")
	require.Error(t, err)
	assert.Equal(t, "요청이 취소되었습니다.", UserMessage(err))
}
