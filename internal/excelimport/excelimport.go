// Package excelimport reads stock workbooks locally: the column preview the
// mapping form is built from, and the row checks run before an upload.
package excelimport

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/floworkapi"
)

const (
	MaxPreviewColumns = 26
	PreviewRows       = 5
)

var (
	ErrNoData      = errors.New("파일에 데이터가 없습니다.")
	ErrNotExcel    = errors.New("엑셀 파일(.xlsx, .xls)만 업로드 가능합니다.")
	ErrNoFile      = errors.New("엑셀 파일을 선택하세요.")
	ErrUnknownRow  = errors.New("검증 목록에 없는 행입니다.")
	ErrNotVerified = errors.New("업로드 전에 검증을 먼저 실행하세요.")
)

func CheckFilename(name string) error {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".xlsx", ".xls":
		return nil
	default:
		return ErrNotExcel
	}
}

func readRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "파일 읽기 오류")
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheet)
	}
	return rows, nil
}

// Preview lists the column letters of the active sheet (at most 26) and the
// first rows of each column, header included.
func Preview(r io.Reader) (domain.ExcelPreview, error) {
	rows, err := readRows(r)
	if err != nil {
		return domain.ExcelPreview{}, err
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return domain.ExcelPreview{}, ErrNoData
	}
	if width > MaxPreviewColumns {
		width = MaxPreviewColumns
	}

	depth := len(rows)
	if depth > PreviewRows {
		depth = PreviewRows
	}

	out := domain.ExcelPreview{
		Envelope:      domain.Envelope{Status: domain.StatusSuccess},
		PreviewData:   make(map[string][]string, width),
		ColumnLetters: make([]string, 0, width),
	}
	for col := 1; col <= width; col++ {
		letter, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return domain.ExcelPreview{}, errors.WithStack(err)
		}
		values := make([]string, 0, depth)
		for i := 0; i < depth; i++ {
			values = append(values, cell(rows[i], col-1))
		}
		out.ColumnLetters = append(out.ColumnLetters, letter)
		out.PreviewData[letter] = values
	}
	return out, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Field binds an import field to the form key holding its column letter.
type Field struct {
	Name     string
	FormKey  string
	Required bool
}

var BarcodeLayout = []Field{
	{Name: "barcode", FormKey: "barcode_col", Required: true},
	{Name: "qty", FormKey: "qty_col", Required: true},
}

// ProductLayout is the product-number import. storeStock picks the store
// stock column over the headquarters one.
func ProductLayout(storeStock bool) []Field {
	stockKey := "col_hq_stock"
	if storeStock {
		stockKey = "col_store_stock"
	}
	return []Field{
		{Name: "product_number", FormKey: "col_pn"},
		{Name: "product_name", FormKey: "col_pname"},
		{Name: "original_price", FormKey: "col_oprice"},
		{Name: "sale_price", FormKey: "col_sprice"},
		{Name: "qty", FormKey: stockKey},
	}
}

// LayoutFor picks the barcode layout when the form maps a barcode column.
func LayoutFor(form map[string]string, storeStock bool) []Field {
	if _, ok := form["barcode_col"]; ok {
		return BarcodeLayout
	}
	return ProductLayout(storeStock)
}

func columnIndices(form map[string]string, layout []Field) (map[string]int, error) {
	out := make(map[string]int, len(layout))
	var missing []string
	for _, f := range layout {
		letter := strings.ToUpper(strings.TrimSpace(form[f.FormKey]))
		if letter == "" {
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		n, err := excelize.ColumnNameToNumber(letter)
		if err != nil {
			return nil, errors.Wrapf(err, "%s 열 %q", f.Name, letter)
		}
		out[f.Name] = n - 1
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("필수 항목의 엑셀 열을 선택해야 합니다: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

var numericFields = []string{"original_price", "sale_price", "qty"}

// Verify flags data rows (row 2 onward) that have no identifier or carry
// text in a numeric column. Blank rows are skipped.
func Verify(r io.Reader, form map[string]string, layout []Field) ([]domain.SuspiciousRow, error) {
	indices, err := columnIndices(form, layout)
	if err != nil {
		return nil, err
	}
	rows, err := readRows(r)
	if err != nil {
		return nil, err
	}

	var out []domain.SuspiciousRow
	for i := 1; i < len(rows); i++ {
		item := make(map[string]string, len(indices))
		hasData := false
		for name, idx := range indices {
			v := strings.TrimSpace(cell(rows[i], idx))
			item[name] = v
			if v != "" {
				hasData = true
			}
		}
		if !hasData {
			continue
		}

		var reasons []string
		pk := item["product_number"]
		if pk == "" {
			pk = item["barcode"]
		}
		if pk == "" {
			reasons = append(reasons, "식별값(품번/바코드) 누락")
		}
		for _, field := range numericFields {
			if v := item[field]; v != "" && !numeric(v) {
				reasons = append(reasons, fmt.Sprintf("'%s' 필드에 문자 포함 ('%s')", field, v))
			}
		}
		if len(reasons) == 0 {
			continue
		}

		preview := pk
		if preview == "" {
			preview = "(없음)"
		}
		if name := item["product_name"]; name != "" {
			preview += " / " + name
		}
		out = append(out, domain.SuspiciousRow{
			RowIndex: i + 1,
			Preview:  preview,
			Reasons:  domain.Text(strings.Join(reasons, ", ")),
		})
	}
	return out, nil
}

func numeric(v string) bool {
	clean := strings.NewReplacer(",", "", ".", "").Replace(v)
	clean = strings.TrimPrefix(clean, "-")
	if clean == "" {
		return false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Job is one workbook moving through analyze, verify and upload.
type Job struct {
	Filename   string
	Data       []byte
	Form       map[string]string
	Preview    *domain.ExcelPreview
	Suspicious []domain.SuspiciousRow
	verified   bool
	excluded   map[int]bool
}

func NewJob(filename string, data []byte) (*Job, error) {
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	if err := CheckFilename(filename); err != nil {
		return nil, err
	}
	return &Job{Filename: filename, Data: data, Form: map[string]string{}, excluded: map[int]bool{}}, nil
}

// PreviewLocal fills Preview from the workbook itself.
func (j *Job) PreviewLocal() (domain.ExcelPreview, error) {
	p, err := Preview(bytes.NewReader(j.Data))
	if err != nil {
		return domain.ExcelPreview{}, err
	}
	j.Preview = &p
	return p, nil
}

// SetForm replaces the column mapping. Any earlier verification is void.
func (j *Job) SetForm(form map[string]string) {
	j.Form = make(map[string]string, len(form))
	for k, v := range form {
		j.Form[k] = v
	}
	j.Suspicious = nil
	j.verified = false
	j.excluded = map[int]bool{}
}

func (j *Job) SetVerified(rows []domain.SuspiciousRow) {
	j.Suspicious = rows
	j.verified = true
	j.excluded = map[int]bool{}
}

func (j *Job) VerifyLocal(storeStock bool) ([]domain.SuspiciousRow, error) {
	rows, err := Verify(bytes.NewReader(j.Data), j.Form, LayoutFor(j.Form, storeStock))
	if err != nil {
		return nil, err
	}
	j.SetVerified(rows)
	return rows, nil
}

func (j *Job) Verified() bool { return j.verified }

// ToggleExclude flips whether a suspicious row is skipped on upload.
func (j *Job) ToggleExclude(row int) (bool, error) {
	for _, s := range j.Suspicious {
		if s.RowIndex == row {
			j.excluded[row] = !j.excluded[row]
			return j.excluded[row], nil
		}
	}
	return false, ErrUnknownRow
}

func (j *Job) Excluded(row int) bool { return j.excluded[row] }

func (j *Job) ExcludedRows() []int {
	out := make([]int, 0, len(j.excluded))
	for row, on := range j.excluded {
		if on {
			out = append(out, row)
		}
	}
	sort.Ints(out)
	return out
}

// Upload builds the multipart form. The exclusion list is only sent when the
// verification found suspicious rows.
func (j *Job) Upload() (floworkapi.Upload, error) {
	if !j.verified {
		return floworkapi.Upload{}, ErrNotVerified
	}
	up := floworkapi.Upload{Filename: j.Filename, Data: j.Data, Fields: j.Form}
	if len(j.Suspicious) > 0 {
		up = up.WithExcluded(j.ExcludedRows())
	}
	return up, nil
}

// FormUpload is the verify request body: the workbook plus the mapping.
func (j *Job) FormUpload() floworkapi.Upload {
	return floworkapi.Upload{Filename: j.Filename, Data: j.Data, Fields: j.Form}
}
