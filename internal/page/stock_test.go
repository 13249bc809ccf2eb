package page

import (
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/view"
)

var suspiciousRows = [][]any{
	{"바코드", "수량"},
	{"8801", 3},
	{"8802", "abc"},
	{"8803", 1},
}

func stockWorkbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	if len(rows) == 0 {
		rows = suspiciousRows
	}
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

func stockCfg() map[string]string {
	return map[string]string{"upload_url": "/api/stock/upload", "task_status_url": "/api/task_status/{id}", "layout": "barcode"}
}

func (p *stockPage) snapshot() (view.ImportPhase, string, domain.TaskStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase, p.outcome, p.progress
}

func TestStockImportFlowPollsTask(t *testing.T) {
	u, client := newUpstream(t)
	var excluded atomic.Value
	u.handle("POST /api/stock/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		excluded.Store(r.FormValue("excluded_row_indices"))
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "task_id": "t-1"})
	})
	var polls atomic.Int32
	u.handle("GET /api/task_status/t-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			writeJSON(w, http.StatusOK, map[string]any{"status": "processing", "percent": 40, "current": 2, "total": 5})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "completed", "result": map[string]any{"message": "5건 반영"}})
	})
	p := newTestPage(t, KindStock, stockCfg(), client)
	sp := p.Controller.(*stockPage)

	p.do(t, "analyze", map[string]any{"filename": "stock.xlsx", "file": stockWorkbook(t)})
	phase, _, _ := sp.snapshot()
	require.Equal(t, view.PhaseAnalyzed, phase)
	assert.Equal(t, []string{"A", "B"}, sp.preview.ColumnLetters)

	p.do(t, "verify", nil)
	assert.Equal(t, []string{"필수 항목의 엑셀 열을 선택해야 합니다: barcode"}, texts(p.notes.Drain()))

	p.do(t, "set_column", map[string]any{"field": "barcode_col", "value": "a"})
	p.do(t, "set_column", map[string]any{"field": "qty_col", "value": "B"})
	p.do(t, "verify", nil)
	phase, _, _ = sp.snapshot()
	require.Equal(t, view.PhaseVerified, phase)
	require.Len(t, sp.job.Suspicious, 1)
	assert.Equal(t, 3, sp.job.Suspicious[0].RowIndex)

	p.do(t, "toggle_exclude", map[string]any{"row_index": 3})
	p.do(t, "upload", nil)

	require.Eventually(t, func() bool {
		phase, _, _ := sp.snapshot()
		return phase == view.PhaseDone
	}, 2*time.Second, 5*time.Millisecond)

	_, outcome, progress := sp.snapshot()
	assert.Equal(t, "5건 반영", outcome)
	assert.Equal(t, 100, progress.Percent)
	assert.Equal(t, "3", excluded.Load())
	assert.Contains(t, texts(p.notes.Drain()), "5건 반영")
}

func TestStockVerifyWithoutSuspiciousRowsUploadsDirectly(t *testing.T) {
	u, client := newUpstream(t)
	u.reply("POST /api/stock/upload", map[string]any{"status": "success", "message": "반영 완료"})
	p := newTestPage(t, KindStock, stockCfg(), client)
	sp := p.Controller.(*stockPage)

	clean := stockWorkbook(t, []any{"바코드", "수량"}, []any{"8801", 3}, []any{"8802", 1})
	p.do(t, "analyze", map[string]any{"filename": "stock.xlsx", "file": clean})
	p.do(t, "verify", map[string]any{"column_map": map[string]string{"barcode_col": "A", "qty_col": "B"}})

	phase, outcome, _ := sp.snapshot()
	assert.Equal(t, view.PhaseDone, phase)
	assert.Equal(t, "반영 완료", outcome)
	assert.Equal(t, 1, u.count("/api/stock/upload"))
}

func TestStockTaskFailureAndCancel(t *testing.T) {
	t.Run("task error", func(t *testing.T) {
		u, client := newUpstream(t)
		u.reply("POST /api/stock/upload", map[string]any{"status": "success", "task_id": "t-2"})
		u.reply("GET /api/task_status/t-2", map[string]any{"status": "error", "message": "중복 바코드"})
		p := newTestPage(t, KindStock, stockCfg(), client)
		sp := p.Controller.(*stockPage)

		p.do(t, "analyze", map[string]any{"filename": "stock.xlsx", "file": stockWorkbook(t)})
		p.do(t, "verify", map[string]any{"column_map": map[string]string{"barcode_col": "A", "qty_col": "B"}})
		p.do(t, "upload", nil)

		require.Eventually(t, func() bool {
			phase, _, _ := sp.snapshot()
			return phase == view.PhaseFailed
		}, 2*time.Second, 5*time.Millisecond)
		_, outcome, _ := sp.snapshot()
		assert.Equal(t, "오류: 중복 바코드", outcome)
	})

	t.Run("cancelled", func(t *testing.T) {
		u, client := newUpstream(t)
		u.reply("POST /api/stock/upload", map[string]any{"status": "success", "task_id": "t-3"})
		u.reply("GET /api/task_status/t-3", map[string]any{"status": "processing", "percent": 10})
		p := newTestPage(t, KindStock, stockCfg(), client, func(d *Deps) { d.Poller.MaxAttempts = 1 << 20 })
		sp := p.Controller.(*stockPage)

		p.do(t, "analyze", map[string]any{"filename": "stock.xlsx", "file": stockWorkbook(t)})
		p.do(t, "verify", map[string]any{"column_map": map[string]string{"barcode_col": "A", "qty_col": "B"}})
		p.do(t, "upload", nil)
		require.Eventually(t, func() bool {
			_, _, progress := sp.snapshot()
			return progress.Percent == 10
		}, 2*time.Second, 5*time.Millisecond)

		require.ErrorIs(t, p.Dispatch(t.Context(), "analyze", mustJSON(t, map[string]any{"filename": "x.xlsx", "file": []byte("x")})), ErrBadPayload)

		p.do(t, "cancel_task", nil)
		require.Eventually(t, func() bool {
			phase, _, _ := sp.snapshot()
			return phase == view.PhaseFailed
		}, 2*time.Second, 5*time.Millisecond)
		_, outcome, _ := sp.snapshot()
		assert.Equal(t, "작업 확인이 중단되었습니다.", outcome)
	})
}

func TestStockRejectsNonExcelFile(t *testing.T) {
	_, client := newUpstream(t)
	p := newTestPage(t, KindStock, stockCfg(), client)

	p.do(t, "analyze", map[string]any{"filename": "stock.csv", "file": []byte("a,b")})
	notes := p.notes.Drain()
	require.Len(t, notes, 1)
	assert.Nil(t, p.Controller.(*stockPage).job)

	p.do(t, "upload", nil)
	assert.Len(t, p.notes.Drain(), 1)
}
