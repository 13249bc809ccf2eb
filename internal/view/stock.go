package view

import (
	"strconv"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/excelimport"
)

type ImportPhase string

const (
	PhaseEmpty     ImportPhase = ""
	PhaseAnalyzed  ImportPhase = "analyzed"
	PhaseVerified  ImportPhase = "verified"
	PhaseUploading ImportPhase = "uploading"
	PhaseDone      ImportPhase = "done"
	PhaseFailed    ImportPhase = "failed"
)

type StockState struct {
	Phase    ImportPhase
	Filename string
	Busy     bool

	ColumnLetters []string
	PreviewData   map[string][]string
	Fields        []excelimport.Field
	Form          map[string]string

	Suspicious []domain.SuspiciousRow
	Excluded   map[int]bool

	Progress domain.TaskStatus
	Outcome  string
}

func Stock(s StockState) Node {
	status := "엑셀 파일을 선택하세요."
	wrapper := El("div").WithID("wrapper-file")
	switch {
	case s.Busy && s.Phase == PhaseEmpty:
		status = "분석 중..."
		wrapper = wrapper.WithClass("loading")
	case s.Phase == PhaseFailed && len(s.ColumnLetters) == 0:
		status = "분석 실패"
		wrapper = wrapper.WithClass("error")
	case s.Phase != PhaseEmpty:
		status = "완료: " + s.Filename + " (" + itoa(len(s.ColumnLetters)) + "열)"
		wrapper = wrapper.WithClass("success")
	}
	wrapper = wrapper.Append(
		input("excel_file", "file", "").Action("analyze").WithAttr("accept", ".xlsx,.xls"),
		Txt("span", status).WithID("status-file"),
	)

	return El("main",
		wrapper,
		When(len(s.ColumnLetters) > 0, mappingGrid(s)),
		When(len(s.Suspicious) > 0 && s.Phase == PhaseVerified, verificationDialog(s)),
		When(s.Phase == PhaseUploading || s.Phase == PhaseDone || (s.Phase == PhaseFailed && s.Progress.Status != ""), progressBar(s)),
	).WithID("stock")
}

func mappingGrid(s StockState) Node {
	grid := El("div").WithID("grid-mapping")
	for _, f := range s.Fields {
		selected := s.Form[f.FormKey]
		sel := El("select", option("", "-- 열 선택 --", selected == "")).
			WithAttr("name", f.FormKey).
			Action("set_column", "field", f.FormKey)
		for _, l := range s.ColumnLetters {
			sel = sel.Append(option(l, l, selected == l))
		}
		label := f.Name
		if f.Required {
			label += " *"
		}
		item := El("div", Txt("label", label), sel).WithRole("mapping").WithClass("mapping-item-wrapper")
		if values, ok := s.PreviewData[selected]; ok && selected != "" {
			ul := El("ul").WithClass("col-preview")
			for _, v := range values {
				if v == "" {
					v = "(빈 값)"
				}
				ul = ul.Append(Txt("li", v))
			}
			item = item.Append(ul)
		}
		grid = grid.Append(item)
	}
	submit := "검증 및 업로드"
	switch s.Phase {
	case PhaseVerified:
		submit = "업로드"
	case PhaseFailed:
		submit = "재시도"
	}
	action := "verify"
	if s.Phase == PhaseVerified {
		action = "upload"
	}
	return grid.Append(
		button(submit, action).WithID("btn-submit-import").WithClass("btn-primary").
			Disabled(s.Busy || s.Phase == PhaseUploading),
	)
}

func verificationDialog(s StockState) Node {
	rows := make([]Node, 0, len(s.Suspicious))
	for _, r := range s.Suspicious {
		idx := strconv.Itoa(r.RowIndex)
		tr := El("tr",
			Txt("td", idx).WithClass("text-center"),
			Txt("td", r.Preview),
			Txt("td", r.Reasons.String()).WithClass("text-danger", "small"),
			El("td", button("×", "toggle_exclude", "row_index", idx).WithClass("btn-exclude")),
		).WithRole("suspicious").WithAttr("data-row-index", idx)
		if s.Excluded[r.RowIndex] {
			tr = tr.WithClass("table-danger", "text-decoration-line-through", "excluded")
		}
		rows = append(rows, tr)
	}
	return El("dialog",
		Txt("span", itoa(len(s.Suspicious))).WithID("suspicious-count"),
		table("suspicious-rows", []string{"행", "미리보기", "사유", "제외"}, rows, "", 4),
		button("업로드 진행", "upload").WithID("btn-confirm-upload").WithClass("btn-primary"),
		button("취소", "close_modal"),
	).WithID("verification-modal")
}

func progressBar(s StockState) Node {
	p := s.Progress
	bar := Txt("div", itoa(p.Percent)+"%").
		WithClass("progress-bar").
		WithAttr("style", "width: "+itoa(p.Percent)+"%").
		WithAttr("aria-valuenow", itoa(p.Percent))
	text := "처리 중... (" + itoa(p.Current) + "/" + itoa(p.Total) + ")"
	switch s.Phase {
	case PhaseDone:
		bar = bar.WithClass("bg-success")
		bar.Text = "완료"
		text = s.Outcome
	case PhaseFailed:
		bar = bar.WithClass("bg-danger")
		text = s.Outcome
	}
	return El("div",
		El("div", bar).WithClass("progress"),
		Txt("div", text).WithID("progress-status").WithClass("progress-status"),
		When(s.Phase == PhaseUploading, button("중단", "cancel_task").WithID("btn-cancel-task")),
	).WithID("progress-wrapper").WithClass("progress-wrapper")
}
