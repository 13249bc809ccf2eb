package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/excelimport"
	"flowork/terminal/internal/floworkapi"
	"flowork/terminal/internal/taskpoll"
)

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "upload a stock workbook and wait for the import task",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "file", Required: true},
			&cli.StringFlag{Name: "map", Required: true, Usage: "column mapping, e.g. A=barcode,B=qty"},
			&cli.BoolFlag{Name: "store-stock", Usage: "product layout quantity is store stock instead of headquarters stock"},
			&cli.StringFlag{Name: "url-analyze", Usage: "server preview endpoint; previews locally when empty"},
			&cli.StringFlag{Name: "url-verify", Usage: "server verify endpoint; verifies locally when empty"},
			&cli.StringFlag{Name: "url-upload", Required: true},
			&cli.StringFlag{Name: "url-status", Value: "/api/task_status/{id}"},
			&cli.BoolFlag{Name: "keep-suspicious", Usage: "upload suspicious rows instead of excluding them"},
			&cli.DurationFlag{Name: "poll-interval", Value: time.Second},
			&cli.DurationFlag{Name: "poll-max-interval", Value: 5 * time.Second},
			&cli.Uint64Flag{Name: "poll-max-attempts", Value: taskpoll.DefaultMaxAttempts},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			storeStock := c.Bool("store-stock")
			form, err := parseColumnMap(c.String("map"), storeStock)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			path := c.Path("file")
			data, err := os.ReadFile(path)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			job, err := excelimport.NewJob(filepath.Base(path), data)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			opts := importOptions{
				analyzeURL:     c.String("url-analyze"),
				verifyURL:      c.String("url-verify"),
				uploadURL:      c.String("url-upload"),
				statusURL:      c.String("url-status"),
				storeStock:     storeStock,
				keepSuspicious: c.Bool("keep-suspicious"),
				poller: taskpoll.Poller{
					Interval:    c.Duration("poll-interval"),
					MaxInterval: c.Duration("poll-max-interval"),
					MaxAttempts: c.Uint64("poll-max-attempts"),
					Logger:      e.log,
				},
			}
			return runImport(c.Context, e, job, form, opts)
		},
	}
}

type importOptions struct {
	analyzeURL     string
	verifyURL      string
	uploadURL      string
	statusURL      string
	storeStock     bool
	keepSuspicious bool
	poller         taskpoll.Poller
}

// parseColumnMap turns "A=barcode,B=qty" into the form keys the import
// endpoints expect. Mapping a barcode column selects the barcode layout.
func parseColumnMap(mapping string, storeStock bool) (map[string]string, error) {
	pairs := map[string]string{}
	for _, part := range strings.Split(mapping, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		letter, field, ok := strings.Cut(part, "=")
		letter = strings.ToUpper(strings.TrimSpace(letter))
		field = strings.ToLower(strings.TrimSpace(field))
		if !ok || letter == "" || field == "" {
			return nil, errors.Errorf("잘못된 열 지정 %q (예: A=barcode)", part)
		}
		pairs[field] = letter
	}
	if len(pairs) == 0 {
		return nil, errors.New("열 지정이 비어 있습니다")
	}

	layout := excelimport.ProductLayout(storeStock)
	if _, ok := pairs["barcode"]; ok {
		layout = excelimport.BarcodeLayout
	}
	keys := make(map[string]string, len(layout))
	for _, f := range layout {
		keys[f.Name] = f.FormKey
	}

	form := make(map[string]string, len(pairs))
	for field, letter := range pairs {
		key, ok := keys[field]
		if !ok {
			return nil, errors.Errorf("알 수 없는 항목 %q", field)
		}
		form[key] = letter
	}
	return form, nil
}

func runImport(ctx context.Context, e *env, job *excelimport.Job, form map[string]string, opts importOptions) error {
	var (
		preview domain.ExcelPreview
		err     error
	)
	if opts.analyzeURL != "" {
		preview, err = e.client.AnalyzeExcel(ctx, opts.analyzeURL, job.FormUpload())
		if err == nil {
			job.Preview = &preview
		}
	} else {
		preview, err = job.PreviewLocal()
	}
	if err != nil {
		return cli.Exit(floworkapi.UserMessage(err), 1)
	}
	printPreview(e, preview)

	job.SetForm(form)
	var suspicious []domain.SuspiciousRow
	if opts.verifyURL != "" {
		suspicious, err = e.client.VerifyExcel(ctx, opts.verifyURL, job.FormUpload())
		if err == nil {
			job.SetVerified(suspicious)
		}
	} else {
		suspicious, err = job.VerifyLocal(opts.storeStock)
	}
	if err != nil {
		return cli.Exit(floworkapi.UserMessage(err), 1)
	}
	for _, row := range suspicious {
		e.printf("의심 행 %d: %s (%s)\n", row.RowIndex, row.Preview, row.Reasons)
		if !opts.keepSuspicious {
			if _, err := job.ToggleExclude(row.RowIndex); err != nil {
				return err
			}
		}
	}
	if excluded := job.ExcludedRows(); len(excluded) > 0 {
		e.printf("제외: %d개 행\n", len(excluded))
	}

	up, err := job.Upload()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	resp, err := e.client.UploadExcel(ctx, opts.uploadURL, up)
	if err != nil {
		return cli.Exit(floworkapi.UserMessage(err), 1)
	}
	if resp.TaskID == "" {
		e.printf("%s\n", resp.Message)
		return nil
	}

	e.printf("작업 %s 시작\n", resp.TaskID)
	fetch := func(ctx context.Context) (domain.TaskStatus, error) {
		return e.client.TaskStatus(ctx, opts.statusURL, resp.TaskID)
	}
	outcome, err := opts.poller.Poll(ctx, fetch, func(s domain.TaskStatus) {
		e.printf("진행 %d%% (%d/%d)\n", s.Percent, s.Current, s.Total)
	})
	if err != nil {
		return cli.Exit("작업 확인이 중단되었습니다.", 1)
	}
	switch outcome.State {
	case taskpoll.Completed:
		e.printf("완료: %s\n", outcome.Message)
		return nil
	case taskpoll.Failed:
		return cli.Exit("오류: "+outcome.Message, 1)
	default:
		return cli.Exit(fmt.Sprintf("작업이 %d번 확인 후에도 끝나지 않았습니다.", outcome.Attempts), 1)
	}
}

func printPreview(e *env, p domain.ExcelPreview) {
	for _, letter := range p.ColumnLetters {
		e.printf("%s: %s\n", letter, strings.Join(p.PreviewData[letter], " | "))
	}
}
