package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Text accepts either a JSON string or a JSON number. The upstream server is
// not consistent about pre-formatting prices and diffs.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// Int parses the text as an integer, returning false when it is not numeric.
func (t Text) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(t), 10, 64)
	return n, err == nil
}

// Envelope is the status/message pair every upstream JSON body carries.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const StatusSuccess = "success"

func (e Envelope) OK() bool { return e.Status == StatusSuccess }

type Variant struct {
	VariantID     int64  `json:"variant_id"`
	ProductID     int64  `json:"product_id,omitempty"`
	ProductName   string `json:"product_name"`
	ProductNumber string `json:"product_number"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	OriginalPrice int64  `json:"original_price"`
	SalePrice     int64  `json:"sale_price"`
	Stock         *int64 `json:"stock,omitempty"`
	HQStock       *int64 `json:"hq_stock,omitempty"`
}

// ProductSummary is one row of a product_number/color grouped search.
type ProductSummary struct {
	ProductNumber string `json:"product_number"`
	ProductName   string `json:"product_name"`
	Color         string `json:"color"`
	Year          Text   `json:"year,omitempty"`
	OriginalPrice int64  `json:"original_price"`
	SalePrice     int64  `json:"sale_price"`
	StatQty       int64  `json:"stat_qty"`
}

const (
	MatchVariant = "variant"
	MatchList    = "list"
)

const (
	SearchModeSales       = "sales"
	SearchModeRefund      = "refund"
	SearchModeDetailStock = "detail_stock"
)

type SearchRequest struct {
	Query     string `json:"query"`
	Mode      string `json:"mode,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type SearchResponse struct {
	Envelope
	MatchType string           `json:"match_type,omitempty"`
	Result    *Variant         `json:"result,omitempty"`
	Results   []ProductSummary `json:"results,omitempty"`
	Variants  []Variant        `json:"variants,omitempty"`
}

type DiscountRule struct {
	Limit    int64 `json:"limit"`
	Discount int64 `json:"discount"`
}

type SalesSettings struct {
	AmountDiscounts []DiscountRule `json:"amount_discounts"`
}

type SaleItem struct {
	VariantID      int64 `json:"variant_id"`
	Quantity       int   `json:"quantity"`
	Price          int64 `json:"price"`
	DiscountAmount int64 `json:"discount_amount"`
}

const PaymentCard = "카드"

type SaleRequest struct {
	Items         []SaleItem `json:"items"`
	SaleDate      string     `json:"sale_date"`
	PaymentMethod string     `json:"payment_method"`
	IsOnline      bool       `json:"is_online"`
}

type SaleResponse struct {
	Envelope
	SaleID        int64  `json:"sale_id,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
}

type RefundRecordsRequest struct {
	ProductNumber string `json:"product_number"`
	Color         string `json:"color"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

type RefundRecord struct {
	SaleID        int64  `json:"sale_id"`
	ReceiptNumber string `json:"receipt_number"`
	SaleDate      string `json:"sale_date"`
	ProductNumber string `json:"product_number"`
	ProductName   string `json:"product_name"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	Quantity      int    `json:"quantity"`
	TotalAmount   int64  `json:"total_amount"`
}

type SaleDetailItem struct {
	VariantID      int64  `json:"variant_id"`
	Name           string `json:"name"`
	PN             string `json:"pn"`
	Color          string `json:"color"`
	Size           string `json:"size"`
	Price          int64  `json:"price"`
	OriginalPrice  int64  `json:"original_price"`
	DiscountAmount int64  `json:"discount_amount"`
	Quantity       int    `json:"quantity"`
}

// ScanLookup is the variant and store stock returned for a scanned barcode.
type ScanLookup struct {
	Barcode       string `json:"barcode"`
	ProductName   string `json:"product_name"`
	ProductNumber string `json:"product_number"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	StoreStock    int64  `json:"store_stock"`
}

type StockUpdateItem struct {
	Barcode  string `json:"barcode"`
	Quantity int64  `json:"quantity"`
}

type BulkStockRequest struct {
	Items         []StockUpdateItem `json:"items"`
	TargetStoreID *int64            `json:"target_store_id,omitempty"`
}

type LiveSearchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
}

type LiveProduct struct {
	ProductID     int64  `json:"product_id"`
	ImageURL      string `json:"image_url"`
	ProductName   string `json:"product_name"`
	ProductNumber string `json:"product_number"`
	Colors        string `json:"colors,omitempty"`
	SalePrice     Text   `json:"sale_price"`
	OriginalPrice int64  `json:"original_price"`
	Discount      Text   `json:"discount"`
}

type LiveSearchResponse struct {
	Envelope
	Products         []LiveProduct `json:"products"`
	ShowingFavorites bool          `json:"showing_favorites"`
	SelectedCategory string        `json:"selected_category"`
	TotalPages       int           `json:"total_pages"`
	CurrentPage      int           `json:"current_page"`
}

type StockChangeRequest struct {
	Barcode string `json:"barcode"`
	Change  int64  `json:"change"`
}

type StockChangeResponse struct {
	Envelope
	Barcode      string `json:"barcode"`
	NewQuantity  int64  `json:"new_quantity"`
	NewStockDiff Text   `json:"new_stock_diff"`
}

type ActualStockRequest struct {
	Barcode     string `json:"barcode"`
	ActualStock int64  `json:"actual_stock"`
}

type ActualStockResponse struct {
	Envelope
	Barcode        string `json:"barcode"`
	NewActualStock Text   `json:"new_actual_stock"`
	NewStockDiff   Text   `json:"new_stock_diff"`
}

type FavoriteResponse struct {
	Envelope
	NewFavoriteStatus int `json:"new_favorite_status"`
}

const (
	VariantAdd    = "add"
	VariantUpdate = "update"
	VariantDelete = "delete"
)

type VariantChange struct {
	VariantID     int64  `json:"variant_id,omitempty"`
	Action        string `json:"action"`
	Color         string `json:"color,omitempty"`
	Size          string `json:"size,omitempty"`
	OriginalPrice int64  `json:"original_price"`
	SalePrice     int64  `json:"sale_price"`
}

type ProductUpdate struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ReleaseYear  string          `json:"release_year"`
	ItemCategory string          `json:"item_category"`
	Variants     []VariantChange `json:"variants"`
}

type ProductRef struct {
	ProductName   string `json:"product_name"`
	ProductNumber string `json:"product_number"`
}

type ProductListResponse struct {
	Envelope
	Products []ProductRef `json:"products"`
}

type ProductOptions struct {
	Envelope
	ProductName   string   `json:"product_name"`
	ProductNumber string   `json:"product_number"`
	Colors        []string `json:"colors"`
	Sizes         []string `json:"sizes"`
}

const (
	ReceptionVisit    = "방문수령"
	ReceptionDelivery = "택배수령"
)

const (
	OrderStatusOrdered    = "고객주문"
	OrderStatusRegistered = "주문등록"
	OrderStatusArrived    = "매장도착"
	OrderStatusContacted  = "고객연락"
	OrderStatusShipped    = "택배 발송"
	OrderStatusComplete   = "완료"
	OrderStatusOther      = "기타"
)

// OrderStatuses lists customer-order statuses in workflow order.
var OrderStatuses = []string{
	OrderStatusOrdered,
	OrderStatusRegistered,
	OrderStatusArrived,
	OrderStatusContacted,
	OrderStatusShipped,
	OrderStatusComplete,
	OrderStatusOther,
}

type OrderProcessing struct {
	Source string `json:"processing_source"`
	Result string `json:"processing_result,omitempty"`
}

type Order struct {
	ID              int64             `json:"id,omitempty"`
	ReceptionMethod string            `json:"reception_method"`
	Status          string            `json:"order_status"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	Postcode        string            `json:"postcode,omitempty"`
	Address1        string            `json:"address1,omitempty"`
	Address2        string            `json:"address2,omitempty"`
	ProductNumber   string            `json:"product_number"`
	ProductName     string            `json:"product_name"`
	Color           string            `json:"color"`
	Size            string            `json:"size"`
	CourierCompany  string            `json:"courier_company,omitempty"`
	TrackingNumber  string            `json:"tracking_number,omitempty"`
	CompletedAt     string            `json:"completed_at,omitempty"`
	Remarks         string            `json:"remarks,omitempty"`
	Processing      []OrderProcessing `json:"processing"`
}

type OrderStatusRequest struct {
	OrderID   int64  `json:"order_id"`
	NewStatus string `json:"new_status"`
}

type StoreForm struct {
	StoreCode  string `json:"store_code"`
	StoreName  string `json:"store_name"`
	StorePhone string `json:"store_phone"`
}

type Store struct {
	ID int64 `json:"id"`
	StoreForm
	Approved bool `json:"is_approved"`
	Active   bool `json:"is_active"`
}

type StaffForm struct {
	Name     string `json:"name"`
	Position string `json:"position"`
	Contact  string `json:"contact"`
}

type Staff struct {
	ID int64 `json:"id"`
	StaffForm
}

type CategoryButton struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type CategoryConfig struct {
	Columns int              `json:"columns"`
	Buttons []CategoryButton `json:"buttons"`
}

const SettingCategoryConfig = "CATEGORY_CONFIG"

type SettingUpdate struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type ExcelPreview struct {
	Envelope
	PreviewData   map[string][]string `json:"preview_data"`
	ColumnLetters []string            `json:"column_letters"`
}

type SuspiciousRow struct {
	RowIndex int    `json:"row_index"`
	Preview  string `json:"preview"`
	Reasons  Text   `json:"reasons"`
}

type VerifyResponse struct {
	Envelope
	SuspiciousRows []SuspiciousRow `json:"suspicious_rows"`
}

type UploadResponse struct {
	Envelope
	TaskID string `json:"task_id,omitempty"`
}

const (
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskError      = "error"
)

type TaskResult struct {
	Message string `json:"message"`
}

type TaskStatus struct {
	Status  string      `json:"status"`
	Percent int         `json:"percent"`
	Current int         `json:"current"`
	Total   int         `json:"total"`
	Result  *TaskResult `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}

const (
	TransferShip    = "ship"
	TransferReject  = "reject"
	TransferReceive = "receive"
)

type TransferRequest struct {
	SourceStoreID int64 `json:"source_store_id"`
	VariantID     int64 `json:"variant_id"`
	Quantity      int   `json:"quantity"`
}

const (
	TransferRequested = "REQUESTED"
	TransferShipped   = "SHIPPED"
	TransferReceived  = "RECEIVED"
	TransferRejected  = "REJECTED"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Transfer is one inter-store transfer as seen from the current store.
// Outgoing transfers are requests other stores made against this store.
type Transfer struct {
	ID            int64  `json:"id"`
	Direction     string `json:"direction"`
	Status        string `json:"status"`
	StoreName     string `json:"store_name"`
	ProductNumber string `json:"product_number"`
	ProductName   string `json:"product_name"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	Quantity      int    `json:"quantity"`
	RequestedAt   string `json:"requested_at"`
}

type StoreOrder struct {
	ID                int64  `json:"id"`
	StoreName         string `json:"store_name"`
	Date              string `json:"date"`
	ProductNumber     string `json:"product_number"`
	ProductName       string `json:"product_name"`
	Color             string `json:"color"`
	Size              string `json:"size"`
	Quantity          int    `json:"quantity"`
	ConfirmedQuantity int    `json:"confirmed_quantity"`
	Status            string `json:"status"`
}

type StoreOrderRequest struct {
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Date      string `json:"date"`
}

const (
	StoreOrderRequested = "REQUESTED"
	StoreOrderApproved  = "APPROVED"
	StoreOrderRejected  = "REJECTED"
)

type StoreOrderStatus struct {
	Status            string `json:"status"`
	ConfirmedQuantity int    `json:"confirmed_quantity"`
}

const (
	EventTypeSchedule = "일정"
	DefaultEventColor = "#0d6efd"
)

type ScheduleEvent struct {
	ID        int64  `json:"id,omitempty"`
	StaffID   int64  `json:"staff_id"`
	EventType string `json:"event_type"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
	AllDay    bool   `json:"all_day"`
	Color     string `json:"color"`
}

type CalendarProps struct {
	StaffID   int64  `json:"staff_id"`
	EventType string `json:"event_type"`
	RawTitle  string `json:"raw_title"`
}

// CalendarEvent is an event as the calendar feed lists it. Title carries the
// staff name prefix; the editable title is in Props.
type CalendarEvent struct {
	ID     int64         `json:"id"`
	Title  string        `json:"title"`
	Start  string        `json:"start"`
	End    *string       `json:"end"`
	AllDay bool          `json:"allDay"`
	Color  string        `json:"color"`
	Props  CalendarProps `json:"extendedProps"`
}

type Holiday struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

type OperatorCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Operator struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
