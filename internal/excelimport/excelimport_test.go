package excelimport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", addr, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestCheckFilename(t *testing.T) {
	assert.NoError(t, CheckFilename("stock.xlsx"))
	assert.NoError(t, CheckFilename("OLD.XLS"))
	assert.ErrorIs(t, CheckFilename("stock.csv"), ErrNotExcel)
}

func TestPreviewColumnsAndRows(t *testing.T) {
	data := workbook(t,
		[]any{"품번", "품명", "바코드"},
		[]any{"DX1", "러닝화", "8801"},
		[]any{"DX2", "", "8802"},
		[]any{"DX3", "자켓", "8803"},
		[]any{"DX4", "모자", "8804"},
		[]any{"DX5", "양말", "8805"},
		[]any{"DX6", "가방", "8806"},
	)

	got, err := Preview(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, got.ColumnLetters)
	assert.Equal(t, []string{"품번", "DX1", "DX2", "DX3", "DX4"}, got.PreviewData["A"])
	assert.Equal(t, []string{"품명", "러닝화", "", "자켓", "모자"}, got.PreviewData["B"])
	assert.True(t, got.OK())
}

func TestPreviewEmptySheet(t *testing.T) {
	data := workbook(t)
	_, err := Preview(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestVerifyBarcodeLayout(t *testing.T) {
	data := workbook(t,
		[]any{"바코드", "수량"},
		[]any{"8801", "3"},
		[]any{"", "2"},
		[]any{"8803", "두개"},
		[]any{"", ""},
		[]any{"8805", "1,200"},
	)
	form := map[string]string{"barcode_col": "A", "qty_col": "b"}

	rows, err := Verify(bytes.NewReader(data), form, LayoutFor(form, true))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[0].RowIndex)
	assert.Equal(t, "(없음)", rows[0].Preview)
	assert.Equal(t, "식별값(품번/바코드) 누락", rows[0].Reasons.String())
	assert.Equal(t, 4, rows[1].RowIndex)
	assert.Contains(t, rows[1].Reasons.String(), "'qty' 필드에 문자 포함 ('두개')")
}

func TestVerifyRequiresMappedColumns(t *testing.T) {
	data := workbook(t, []any{"바코드"}, []any{"8801"})
	_, err := Verify(bytes.NewReader(data), map[string]string{"barcode_col": "A"}, BarcodeLayout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qty")
}

func TestVerifyProductLayoutPreview(t *testing.T) {
	data := workbook(t,
		[]any{"품번", "품명", "정가", "판매가", "매장재고"},
		[]any{"DX1", "러닝화", "89000", "6만", "3"},
	)
	form := map[string]string{"col_pn": "A", "col_pname": "B", "col_oprice": "C", "col_sprice": "D", "col_store_stock": "E"}
	rows, err := Verify(bytes.NewReader(data), form, LayoutFor(form, true))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "DX1 / 러닝화", rows[0].Preview)
}

func TestJobExclusionsFlowIntoUpload(t *testing.T) {
	data := workbook(t,
		[]any{"바코드", "수량"},
		[]any{"", "1"},
		[]any{"8802", "x"},
	)
	job, err := NewJob("count.xlsx", data)
	require.NoError(t, err)

	_, err = job.Upload()
	assert.ErrorIs(t, err, ErrNotVerified)

	job.SetForm(map[string]string{"barcode_col": "A", "qty_col": "B"})
	rows, err := job.VerifyLocal(true)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	on, err := job.ToggleExclude(3)
	require.NoError(t, err)
	assert.True(t, on)
	_, err = job.ToggleExclude(9)
	assert.ErrorIs(t, err, ErrUnknownRow)

	up, err := job.Upload()
	require.NoError(t, err)
	assert.Equal(t, "3", up.Fields["excluded_row_indices"])
	assert.Equal(t, "A", up.Fields["barcode_col"])
	assert.NotContains(t, job.Form, "excluded_row_indices")
}

func TestJobWithoutSuspiciousRowsSendsNoExclusions(t *testing.T) {
	data := workbook(t, []any{"바코드", "수량"}, []any{"8801", "1"})
	job, err := NewJob("count.xlsx", data)
	require.NoError(t, err)
	job.SetForm(map[string]string{"barcode_col": "A", "qty_col": "B"})
	_, err = job.VerifyLocal(true)
	require.NoError(t, err)

	up, err := job.Upload()
	require.NoError(t, err)
	assert.NotContains(t, up.Fields, "excluded_row_indices")
}

func TestNewJobRejectsBadInput(t *testing.T) {
	_, err := NewJob("a.xlsx", nil)
	assert.ErrorIs(t, err, ErrNoFile)
	_, err = NewJob("a.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrNotExcel)
}
