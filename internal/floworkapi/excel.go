package floworkapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
)

const (
	DefaultFileField = "excel_file"
	excludedRowsKey  = "excluded_row_indices"
)

// Upload is a multipart form with one workbook and plain text fields such as
// the column mapping.
type Upload struct {
	FileField string
	Filename  string
	Data      []byte
	Fields    map[string]string
}

// WithExcluded returns a copy of u carrying the comma-joined row indices the
// operator chose to skip.
func (u Upload) WithExcluded(rows []int) Upload {
	fields := make(map[string]string, len(u.Fields)+1)
	for k, v := range u.Fields {
		fields[k] = v
	}
	parts := make([]string, 0, len(rows))
	for _, r := range rows {
		parts = append(parts, strconv.Itoa(r))
	}
	fields[excludedRowsKey] = strings.Join(parts, ",")
	u.Fields = fields
	return u
}

func (u Upload) encode() (io.Reader, string, error) {
	if len(u.Data) == 0 {
		return nil, "", invalid(DefaultFileField, "엑셀 파일을 선택하세요.")
	}
	field := u.FileField
	if field == "" {
		field = DefaultFileField
	}
	name := u.Filename
	if name == "" {
		name = "upload.xlsx"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(u.Fields))
	for k := range u.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, u.Fields[k]); err != nil {
			return nil, "", errors.Wrapf(err, "write field %s", k)
		}
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return nil, "", errors.Wrap(err, "create form file")
	}
	if _, err := part.Write(u.Data); err != nil {
		return nil, "", errors.Wrap(err, "write form file")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart writer")
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) AnalyzeExcel(ctx context.Context, path string, up Upload) (domain.ExcelPreview, error) {
	var out domain.ExcelPreview
	err := c.do(ctx, call{endpoint: "analyze_excel", method: http.MethodPost, path: path, upload: &up, out: &out})
	return out, err
}

func (c *Client) VerifyExcel(ctx context.Context, path string, up Upload) ([]domain.SuspiciousRow, error) {
	var out domain.VerifyResponse
	if err := c.do(ctx, call{endpoint: "verify_excel", method: http.MethodPost, path: path, upload: &up, out: &out}); err != nil {
		return nil, err
	}
	return out.SuspiciousRows, nil
}

// UploadExcel starts the import. A non-empty TaskID means the server queued
// a background task that has to be polled.
func (c *Client) UploadExcel(ctx context.Context, path string, up Upload) (domain.UploadResponse, error) {
	var out domain.UploadResponse
	err := c.do(ctx, call{endpoint: "upload_excel", method: http.MethodPost, path: path, upload: &up, out: &out})
	return out, err
}

// TaskStatus reads one progress snapshot of a background task.
func (c *Client) TaskStatus(ctx context.Context, pathTemplate, taskID string) (domain.TaskStatus, error) {
	if strings.TrimSpace(taskID) == "" {
		return domain.TaskStatus{}, invalid("task_id", "작업 ID가 없습니다.")
	}
	var out domain.TaskStatus
	err := c.do(ctx, call{endpoint: "task_status", method: http.MethodGet, path: expand(pathTemplate, taskID), out: &out, raw: true})
	return out, err
}
