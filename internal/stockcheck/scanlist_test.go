package stockcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowork/terminal/internal/domain"
)

type fakeCatalog struct {
	stock   map[string]int64
	calls   int
	lastFor *int64
}

func (f *fakeCatalog) FetchVariant(_ context.Context, barcode string, storeID *int64) (domain.ScanLookup, error) {
	f.calls++
	f.lastFor = storeID
	stock, ok := f.stock[barcode]
	if !ok {
		return domain.ScanLookup{}, errors.New("상품을 찾을 수 없습니다")
	}
	return domain.ScanLookup{Barcode: barcode, ProductName: "Runner", Color: "BLK", Size: "260", StoreStock: stock}, nil
}

func scanningList(t *testing.T) *List {
	t.Helper()
	l := NewList(false, nil)
	on, err := l.ToggleScanning()
	require.NoError(t, err)
	require.True(t, on)
	return l
}

func int64p(v int64) *int64 { return &v }

func TestScanSameBarcodeIncrements(t *testing.T) {
	catalog := &fakeCatalog{stock: map[string]int64{"B1": 1}}
	l := scanningList(t)

	_, err := l.Scan(context.Background(), catalog, "B1")
	require.NoError(t, err)
	entry, err := l.Scan(context.Background(), catalog, " B1 ")
	require.NoError(t, err)

	assert.Equal(t, int64(2), entry.ScanQuantity)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, int64(1), entry.Diff())
	assert.Equal(t, ClassOver, Classify(entry.Diff()))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassOver, Classify(3))
	assert.Equal(t, ClassShort, Classify(-1))
	assert.Equal(t, ClassMatched, Classify(0))
}

func TestScanFailureLeavesListUnchanged(t *testing.T) {
	catalog := &fakeCatalog{stock: map[string]int64{"B1": 5}}
	l := scanningList(t)
	_, err := l.Scan(context.Background(), catalog, "B1")
	require.NoError(t, err)

	_, err = l.Scan(context.Background(), catalog, "NOPE")
	require.Error(t, err)
	assert.Equal(t, []Entry{{ScanLookup: domain.ScanLookup{Barcode: "B1", ProductName: "Runner", Color: "BLK", Size: "260", StoreStock: 5}, ScanQuantity: 1}}, l.Entries())
}

func TestScanRequiresScanningAndBarcode(t *testing.T) {
	catalog := &fakeCatalog{stock: map[string]int64{"B1": 5}}
	l := NewList(false, nil)

	_, err := l.Scan(context.Background(), catalog, "B1")
	assert.ErrorIs(t, err, ErrNotScanning)

	_, err = l.ToggleScanning()
	require.NoError(t, err)
	_, err = l.Scan(context.Background(), catalog, "   ")
	assert.ErrorIs(t, err, ErrEmptyBarcode)
	assert.Zero(t, catalog.calls)
}

func TestMultiStoreNeedsStore(t *testing.T) {
	catalog := &fakeCatalog{stock: map[string]int64{"B1": 5}}
	l := NewList(true, nil)

	_, err := l.ToggleScanning()
	assert.ErrorIs(t, err, ErrNoStore)

	require.NoError(t, l.ChangeStore(int64p(3), false))
	_, err = l.ToggleScanning()
	require.NoError(t, err)

	_, err = l.Scan(context.Background(), catalog, "B1")
	require.NoError(t, err)
	require.NotNil(t, catalog.lastFor)
	assert.Equal(t, int64(3), *catalog.lastFor)
}

func TestChangeStoreNeedsConfirmationWhenListNotEmpty(t *testing.T) {
	catalog := &fakeCatalog{stock: map[string]int64{"B1": 5}}
	l := NewList(true, int64p(1))
	_, err := l.ToggleScanning()
	require.NoError(t, err)
	_, err = l.Scan(context.Background(), catalog, "B1")
	require.NoError(t, err)

	assert.ErrorIs(t, l.ChangeStore(int64p(2), false), ErrConfirmRequired)
	assert.Equal(t, int64(1), *l.StoreID())
	assert.Equal(t, 1, l.Len())

	require.NoError(t, l.ChangeStore(int64p(2), true))
	assert.Equal(t, int64(2), *l.StoreID())
	assert.Zero(t, l.Len())

	require.NoError(t, l.ChangeStore(nil, false))
	assert.False(t, l.Scanning())
}

func TestSetQuantityAllowsZeroRejectsNegative(t *testing.T) {
	catalog := &fakeCatalog{stock: map[string]int64{"B1": 2}}
	l := scanningList(t)
	_, err := l.Scan(context.Background(), catalog, "B1")
	require.NoError(t, err)

	assert.True(t, l.SetQuantity("B1", 0))
	assert.False(t, l.SetQuantity("B1", -1))
	assert.False(t, l.SetQuantity("B9", 4))

	entry, ok := l.Get("B1")
	require.True(t, ok)
	assert.Equal(t, int64(0), entry.ScanQuantity)
	assert.Equal(t, ClassShort, Classify(entry.Diff()))
}

func TestSubmitClearsOnlyOnSuccess(t *testing.T) {
	catalog := &fakeCatalog{stock: map[string]int64{"B1": 2, "B2": 0}}
	l := scanningList(t)
	for _, bc := range []string{"B1", "B2", "B1"} {
		_, err := l.Scan(context.Background(), catalog, bc)
		require.NoError(t, err)
	}

	failing := SubmitFunc(func(context.Context, domain.BulkStockRequest) (string, error) {
		return "", errors.New("저장 실패")
	})
	_, err := l.Submit(context.Background(), failing)
	require.Error(t, err)
	assert.Equal(t, 2, l.Len())

	var sent domain.BulkStockRequest
	ok := SubmitFunc(func(_ context.Context, req domain.BulkStockRequest) (string, error) {
		sent = req
		return "2건 반영", nil
	})
	msg, err := l.Submit(context.Background(), ok)
	require.NoError(t, err)
	assert.Equal(t, "2건 반영", msg)
	assert.Zero(t, l.Len())
	assert.Equal(t, []domain.StockUpdateItem{{Barcode: "B1", Quantity: 2}, {Barcode: "B2", Quantity: 1}}, sent.Items)
	assert.Nil(t, sent.TargetStoreID)
}

func TestSubmitValidatesBeforeSending(t *testing.T) {
	called := false
	submitter := SubmitFunc(func(context.Context, domain.BulkStockRequest) (string, error) {
		called = true
		return "", nil
	})

	l := NewList(false, nil)
	_, err := l.Submit(context.Background(), submitter)
	assert.ErrorIs(t, err, ErrEmptyList)
	assert.False(t, called)
}

func TestRemoveAndTotals(t *testing.T) {
	catalog := &fakeCatalog{stock: map[string]int64{"B1": 2, "B2": 0, "B3": 1}}
	l := scanningList(t)
	for _, bc := range []string{"B1", "B2", "B3", "B3"} {
		_, err := l.Scan(context.Background(), catalog, bc)
		require.NoError(t, err)
	}
	require.True(t, l.Remove("B2"))
	assert.False(t, l.Remove("B2"))

	items, qty := l.Totals()
	assert.Equal(t, 2, items)
	assert.Equal(t, int64(3), qty)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "B1", entries[0].Barcode)
	assert.Equal(t, "B3", entries[1].Barcode)
}
