// Package stockcheck tallies barcode scans against store stock for a physical
// count.
package stockcheck

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
)

var (
	ErrEmptyBarcode    = errors.New("barcode is required")
	ErrNotScanning     = errors.New("scanning is off")
	ErrNoStore         = errors.New("select a store first")
	ErrEmptyList       = errors.New("no scanned items to save")
	ErrConfirmRequired = errors.New("confirmation required")
)

type Class string

const (
	ClassOver    Class = "over"
	ClassShort   Class = "short"
	ClassMatched Class = "matched"
)

type Entry struct {
	domain.ScanLookup
	ScanQuantity int64 `json:"scan_quantity"`
}

// Diff is counted minus recorded stock.
func (e Entry) Diff() int64 {
	return e.ScanQuantity - e.StoreStock
}

func Classify(diff int64) Class {
	switch {
	case diff > 0:
		return ClassOver
	case diff < 0:
		return ClassShort
	default:
		return ClassMatched
	}
}

type Lookup interface {
	FetchVariant(ctx context.Context, barcode string, targetStoreID *int64) (domain.ScanLookup, error)
}

type Submitter interface {
	BulkUpdateActualStock(ctx context.Context, req domain.BulkStockRequest) (string, error)
}

// List is keyed by barcode and keeps first-scan order. In a multi-store
// context every network operation needs a target store.
type List struct {
	multiStore bool
	storeID    *int64
	scanning   bool
	order      []string
	entries    map[string]*Entry
}

func NewList(multiStore bool, storeID *int64) *List {
	return &List{
		multiStore: multiStore,
		storeID:    storeID,
		entries:    make(map[string]*Entry),
	}
}

func (l *List) MultiStore() bool { return l.multiStore }

func (l *List) StoreID() *int64 { return l.storeID }

func (l *List) Scanning() bool { return l.scanning }

func (l *List) Len() int { return len(l.order) }

func (l *List) ToggleScanning() (bool, error) {
	if !l.scanning && l.needsStore() {
		return false, ErrNoStore
	}
	l.scanning = !l.scanning
	return l.scanning, nil
}

// Scan looks the barcode up and folds it into the tally. A failed lookup
// leaves the list untouched.
func (l *List) Scan(ctx context.Context, lookup Lookup, barcode string) (Entry, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Entry{}, ErrEmptyBarcode
	}
	if !l.scanning {
		return Entry{}, ErrNotScanning
	}
	if l.needsStore() {
		return Entry{}, ErrNoStore
	}
	found, err := lookup.FetchVariant(ctx, barcode, l.storeID)
	if err != nil {
		return Entry{}, err
	}
	if found.Barcode == "" {
		found.Barcode = barcode
	}
	return l.add(found), nil
}

func (l *List) add(found domain.ScanLookup) Entry {
	if entry, ok := l.entries[found.Barcode]; ok {
		entry.ScanQuantity++
		return *entry
	}
	entry := &Entry{ScanLookup: found, ScanQuantity: 1}
	l.entries[found.Barcode] = entry
	l.order = append(l.order, found.Barcode)
	return *entry
}

// SetQuantity overwrites a counted quantity; negatives are ignored.
func (l *List) SetQuantity(barcode string, qty int64) bool {
	entry, ok := l.entries[barcode]
	if !ok || qty < 0 {
		return false
	}
	entry.ScanQuantity = qty
	return true
}

func (l *List) Remove(barcode string) bool {
	if _, ok := l.entries[barcode]; !ok {
		return false
	}
	delete(l.entries, barcode)
	for i, bc := range l.order {
		if bc == barcode {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

func (l *List) Get(barcode string) (Entry, bool) {
	entry, ok := l.entries[barcode]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Entries returns the tally in first-scan order.
func (l *List) Entries() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, bc := range l.order {
		out = append(out, *l.entries[bc])
	}
	return out
}

func (l *List) Totals() (items int, qty int64) {
	for _, entry := range l.entries {
		qty += entry.ScanQuantity
	}
	return len(l.entries), qty
}

func (l *List) Clear() {
	l.order = nil
	l.entries = make(map[string]*Entry)
}

// Request builds the absolute overwrite of actual stock for every entry.
func (l *List) Request() (domain.BulkStockRequest, error) {
	if len(l.order) == 0 {
		return domain.BulkStockRequest{}, ErrEmptyList
	}
	if l.needsStore() {
		return domain.BulkStockRequest{}, ErrNoStore
	}
	items := make([]domain.StockUpdateItem, 0, len(l.order))
	for _, entry := range l.Entries() {
		items = append(items, domain.StockUpdateItem{Barcode: entry.Barcode, Quantity: entry.ScanQuantity})
	}
	return domain.BulkStockRequest{Items: items, TargetStoreID: l.storeID}, nil
}

// Submit sends the tally and clears it only when the server accepts it.
func (l *List) Submit(ctx context.Context, submitter Submitter) (string, error) {
	req, err := l.Request()
	if err != nil {
		return "", err
	}
	msg, err := submitter.BulkUpdateActualStock(ctx, req)
	if err != nil {
		return "", err
	}
	l.Clear()
	return msg, nil
}

// ChangeStore switches the target store. Stock baselines are per store, so a
// non-empty tally is only dropped with confirmation; without it nothing
// changes.
func (l *List) ChangeStore(storeID *int64, confirmed bool) error {
	if l.Len() > 0 && !confirmed {
		return ErrConfirmRequired
	}
	l.storeID = storeID
	l.Clear()
	if l.needsStore() {
		l.scanning = false
	}
	return nil
}

func (l *List) needsStore() bool {
	return l.multiStore && l.storeID == nil
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, barcode string, targetStoreID *int64) (domain.ScanLookup, error)

func (f LookupFunc) FetchVariant(ctx context.Context, barcode string, targetStoreID *int64) (domain.ScanLookup, error) {
	return f(ctx, barcode, targetStoreID)
}

// SubmitFunc adapts a function to Submitter.
type SubmitFunc func(ctx context.Context, req domain.BulkStockRequest) (string, error)

func (f SubmitFunc) BulkUpdateActualStock(ctx context.Context, req domain.BulkStockRequest) (string, error) {
	return f(ctx, req)
}
