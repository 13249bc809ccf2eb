package main

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/floworkapi"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/stockcheck"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "count stock from barcodes read on stdin, one per line; a blank line ends the count",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "store", Usage: "target store id for a multi-store count"},
			&cli.StringFlag{Name: "url-lookup", Value: "/api/fetch_variant"},
			&cli.StringFlag{Name: "url-submit", Value: "/api/bulk_update_actual_stock"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "save without asking"},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			var storeID *int64
			if c.IsSet("store") {
				id := c.Int64("store")
				storeID = &id
			}
			in := bufio.NewReader(c.App.Reader)
			var confirm notify.Confirmer = &notify.Prompt{In: in, Out: e.out}
			if c.Bool("yes") {
				confirm = notify.Always(true)
			}
			return runScan(c.Context, e, in, confirm, storeID, c.String("url-lookup"), c.String("url-submit"))
		},
	}
}

func runScan(ctx context.Context, e *env, in *bufio.Reader, confirm notify.Confirmer, storeID *int64, lookupURL, submitURL string) error {
	list := stockcheck.NewList(storeID != nil, storeID)
	if _, err := list.ToggleScanning(); err != nil {
		return err
	}
	lookup := stockcheck.LookupFunc(func(ctx context.Context, barcode string, target *int64) (domain.ScanLookup, error) {
		return e.client.FetchVariant(ctx, lookupURL, barcode, target)
	})

	for {
		line, err := in.ReadString('\n')
		barcode := strings.TrimSpace(line)
		if barcode != "" {
			entry, scanErr := list.Scan(ctx, lookup, barcode)
			if scanErr != nil {
				e.printf("%s: %s\n", barcode, floworkapi.UserMessage(scanErr))
			} else {
				e.printf("%s %s %s/%s  %d개 (%s)\n", entry.Barcode, entry.ProductName, entry.Color, entry.Size,
					entry.ScanQuantity, diffLabel(entry.Diff()))
			}
		}
		if errors.Is(err, io.EOF) || (barcode == "" && err == nil) {
			break
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if list.Len() == 0 {
		e.printf("스캔된 상품이 없습니다.\n")
		return nil
	}
	printTally(e, list)

	items, qty := list.Totals()
	if !confirm.Confirm(ctx, "실사 재고 "+e.format.Number(int64(items))+"종 "+e.format.Number(qty)+"개를 저장할까요?") {
		e.printf("저장하지 않았습니다.\n")
		return nil
	}
	submitter := stockcheck.SubmitFunc(func(ctx context.Context, req domain.BulkStockRequest) (string, error) {
		return e.client.BulkUpdateStock(ctx, submitURL, req)
	})
	msg, err := list.Submit(ctx, submitter)
	if err != nil {
		return cli.Exit(floworkapi.UserMessage(err), 1)
	}
	e.printf("%s\n", msg)
	return nil
}

func printTally(e *env, list *stockcheck.List) {
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	_, _ = io.WriteString(tw, "바코드\t상품\t컬러\t사이즈\t실사\t전산\t차이\n")
	for _, entry := range list.Entries() {
		_, _ = io.WriteString(tw, strings.Join([]string{
			entry.Barcode, entry.ProductName, entry.Color, entry.Size,
			e.format.Number(entry.ScanQuantity), e.format.Number(entry.StoreStock), diffLabel(entry.Diff()),
		}, "\t")+"\n")
	}
	_ = tw.Flush()
}

func diffLabel(diff int64) string {
	switch stockcheck.Classify(diff) {
	case stockcheck.ClassOver:
		return "+" + strconv.FormatInt(diff, 10) + " 과다"
	case stockcheck.ClassShort:
		return strconv.FormatInt(diff, 10) + " 부족"
	default:
		return "0 일치"
	}
}
