package page

import (
	"context"
	"encoding/json"
	"maps"
	"strings"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/excelimport"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/taskpoll"
	"flowork/terminal/internal/view"
)

type stockConfig struct {
	AnalyzeURL    string `json:"analyze_url"`
	VerifyURL     string `json:"verify_url"`
	UploadURL     string `json:"upload_url" validate:"required"`
	TaskStatusURL string `json:"task_status_url" validate:"required"`
	StoreStock    Flag   `json:"store_stock"`
	Layout        string `json:"layout" validate:"omitempty,oneof=barcode product"`
}

type stockPage struct {
	base
	cfg stockConfig

	job     *excelimport.Job
	preview domain.ExcelPreview
	phase   view.ImportPhase
	busy    bool

	progress   domain.TaskStatus
	outcome    string
	cancelTask context.CancelFunc
}

func newStock(raw map[string]string, deps Deps, notes notify.Notifier) (*stockPage, error) {
	var cfg stockConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &stockPage{cfg: cfg}
	p.init(KindStock, deps, notes)
	p.actions = map[string]handler{
		"analyze":        p.analyze,
		"preview_local":  p.previewLocal,
		"set_column":     p.setColumn,
		"verify":         p.verify,
		"toggle_exclude": p.toggleExclude,
		"close_modal":    p.closeModal,
		"upload":         p.upload,
		"cancel_task":    p.cancel,
	}
	return p, nil
}

func (p *stockPage) fields() []excelimport.Field {
	switch p.cfg.Layout {
	case "barcode":
		return excelimport.BarcodeLayout
	case "product":
		return excelimport.ProductLayout(bool(p.cfg.StoreStock))
	}
	if p.job != nil {
		return excelimport.LayoutFor(p.job.Form, bool(p.cfg.StoreStock))
	}
	return excelimport.BarcodeLayout
}

func (p *stockPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := view.StockState{
		Phase:         p.phase,
		Busy:          p.busy,
		ColumnLetters: p.preview.ColumnLetters,
		PreviewData:   p.preview.PreviewData,
		Fields:        p.fields(),
		Progress:      p.progress,
		Outcome:       p.outcome,
	}
	if p.job != nil {
		s.Filename = p.job.Filename
		s.Form = maps.Clone(p.job.Form)
		s.Suspicious = p.job.Suspicious
		s.Excluded = make(map[int]bool)
		for _, row := range p.job.ExcludedRows() {
			s.Excluded[row] = true
		}
	}
	return view.Stock(s)
}

type fileInput struct {
	Filename string            `json:"filename"`
	File     []byte            `json:"file"`
	FileB64  []byte            `json:"file_b64"`
	Columns  map[string]string `json:"column_map"`
}

func (f fileInput) data() []byte {
	if len(f.File) > 0 {
		return f.File
	}
	return f.FileB64
}

func (p *stockPage) open(payload json.RawMessage) (fileInput, error) {
	var in fileInput
	if err := decode(payload, &in); err != nil {
		return in, err
	}
	if p.phase == view.PhaseUploading {
		return in, errors.Wrap(ErrBadPayload, "upload in progress")
	}
	return in, nil
}

func (p *stockPage) analyze(ctx context.Context, payload json.RawMessage) error {
	in, err := p.open(payload)
	if err != nil {
		return err
	}
	return p.load(ctx, in, p.cfg.AnalyzeURL == "")
}

func (p *stockPage) previewLocal(ctx context.Context, payload json.RawMessage) error {
	in, err := p.open(payload)
	if err != nil {
		return err
	}
	return p.load(ctx, in, true)
}

// load starts a new job from a workbook. The column preview comes from the
// server when an analyze endpoint is configured and from the file otherwise.
func (p *stockPage) load(ctx context.Context, in fileInput, local bool) error {
	job, err := excelimport.NewJob(in.Filename, in.data())
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.busy = true
	defer func() { p.busy = false }()

	var preview domain.ExcelPreview
	if local {
		preview, err = job.PreviewLocal()
	} else {
		preview, err = p.deps.Client.AnalyzeExcel(ctx, p.cfg.AnalyzeURL, job.FormUpload())
	}
	if err != nil {
		p.phase = view.PhaseFailed
		p.preview = domain.ExcelPreview{}
		p.job = nil
		p.fail(ctx, err)
		return nil
	}
	if len(in.Columns) > 0 {
		job.SetForm(in.Columns)
	}
	p.job = job
	p.preview = preview
	p.phase = view.PhaseAnalyzed
	p.progress = domain.TaskStatus{}
	p.outcome = ""
	return nil
}

func (p *stockPage) requireJob(ctx context.Context) bool {
	if p.job == nil {
		p.fail(ctx, excelimport.ErrNoFile)
		return false
	}
	if p.phase == view.PhaseUploading {
		p.reject("업로드가 진행 중입니다.")
		return false
	}
	return true
}

func (p *stockPage) setColumn(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.requireJob(ctx) {
		return nil
	}
	form := maps.Clone(p.job.Form)
	if v := strings.ToUpper(strings.TrimSpace(in.Value)); v != "" {
		form[in.Field] = v
	} else {
		delete(form, in.Field)
	}
	p.job.SetForm(form)
	p.phase = view.PhaseAnalyzed
	return nil
}

func (p *stockPage) verify(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Columns map[string]string `json:"column_map"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.requireJob(ctx) {
		return nil
	}
	if len(in.Columns) > 0 {
		p.job.SetForm(in.Columns)
	}
	for _, f := range p.fields() {
		if f.Required && p.job.Form[f.FormKey] == "" {
			p.reject("필수 항목의 엑셀 열을 선택해야 합니다: " + f.Name)
			return nil
		}
	}

	p.busy = true
	var rows []domain.SuspiciousRow
	var err error
	if p.cfg.VerifyURL != "" {
		rows, err = p.deps.Client.VerifyExcel(ctx, p.cfg.VerifyURL, p.job.FormUpload())
		if err == nil {
			p.job.SetVerified(rows)
		}
	} else {
		rows, err = p.job.VerifyLocal(bool(p.cfg.StoreStock))
	}
	p.busy = false
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	p.phase = view.PhaseVerified
	if len(rows) == 0 {
		return p.upload(ctx, nil)
	}
	return nil
}

func (p *stockPage) toggleExclude(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		RowIndex Int `json:"row_index"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if !p.requireJob(ctx) {
		return nil
	}
	if _, err := p.job.ToggleExclude(int(in.RowIndex)); err != nil {
		p.fail(ctx, err)
	}
	return nil
}

func (p *stockPage) closeModal(context.Context, json.RawMessage) error {
	if p.job != nil && p.phase == view.PhaseVerified {
		p.job.SetForm(p.job.Form)
		p.phase = view.PhaseAnalyzed
	}
	return nil
}

func (p *stockPage) upload(ctx context.Context, _ json.RawMessage) error {
	if !p.requireJob(ctx) {
		return nil
	}
	up, err := p.job.Upload()
	if err != nil {
		p.fail(ctx, err)
		return nil
	}
	resp, err := p.deps.Client.UploadExcel(ctx, p.cfg.UploadURL, up)
	if err != nil {
		p.phase = view.PhaseFailed
		p.outcome = userText(err)
		p.fail(ctx, err)
		return nil
	}
	if resp.TaskID == "" {
		p.phase = view.PhaseDone
		p.outcome = orDefault(resp.Message, "완료되었습니다.")
		p.notes.Toast(notify.Success, p.outcome)
		return nil
	}
	p.phase = view.PhaseUploading
	p.progress = domain.TaskStatus{Status: domain.TaskProcessing}
	p.outcome = ""
	p.startPolling(ctx, resp.TaskID)
	return nil
}

// startPolling follows the task in the background. Progress and the final
// outcome are applied under the page lock.
func (p *stockPage) startPolling(ctx context.Context, taskID string) {
	bg, cancel := p.detach(p.deps.Logger.WithField(ctx, "task_id", taskID))
	p.cancelTask = cancel

	fetch := func(ctx context.Context) (domain.TaskStatus, error) {
		return p.deps.Client.TaskStatus(ctx, p.cfg.TaskStatusURL, taskID)
	}
	progress := func(st domain.TaskStatus) {
		p.mu.Lock()
		p.progress = st
		p.mu.Unlock()
	}
	go func() {
		defer cancel()
		out, err := p.deps.Poller.Poll(bg, fetch, progress)
		if err != nil {
			p.deps.Logger.Info(bg, "task polling stopped: "+err.Error())
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		p.finish(out)
	}()
}

func (p *stockPage) finish(out taskpoll.Outcome) {
	p.cancelTask = nil
	if out.Last.Status != "" {
		p.progress = out.Last
	}
	switch out.State {
	case taskpoll.Completed:
		p.phase = view.PhaseDone
		p.progress.Percent = 100
		p.outcome = orDefault(out.Message, "완료되었습니다.")
		p.notes.Toast(notify.Success, p.outcome)
	case taskpoll.Failed:
		p.phase = view.PhaseFailed
		p.outcome = "오류: " + orDefault(out.Message, "작업이 실패했습니다.")
		p.notes.Alert(p.outcome)
	case taskpoll.TimedOut:
		p.phase = view.PhaseFailed
		p.outcome = "작업 상태 확인 시간이 초과되었습니다."
		p.notes.Alert(p.outcome)
	default:
		p.phase = view.PhaseFailed
		p.outcome = "작업 확인이 중단되었습니다."
	}
	if p.progress.Status == "" {
		p.progress.Status = domain.TaskError
	}
}

func (p *stockPage) cancel(context.Context, json.RawMessage) error {
	if p.cancelTask == nil {
		p.rejected = true
		return nil
	}
	p.cancelTask()
	return nil
}
