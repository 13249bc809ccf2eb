package main

import (
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/floworkapi"
	"flowork/terminal/internal/search"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "search products by name or product number",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "/api/live_search"},
			&cli.StringFlag{Name: "category", Value: "전체"},
			&cli.IntFlag{Name: "page", Value: 1},
			&cli.IntFlag{Name: "per-page", Value: 10},
		},
		Action: func(c *cli.Context) error {
			e, err := newEnv(c)
			if err != nil {
				return err
			}
			req := domain.LiveSearchRequest{
				Query:    strings.TrimSpace(strings.Join(c.Args().Slice(), " ")),
				Category: c.String("category"),
				Page:     c.Int("page"),
				PerPage:  search.NormalizePerPage(c.Int("per-page")),
			}
			if req.Page < 1 {
				req.Page = 1
			}
			resp, err := e.client.LiveSearch(c.Context, c.String("url"), req)
			if err != nil {
				return cli.Exit(floworkapi.UserMessage(err), 1)
			}
			printSearch(e, resp)
			return nil
		},
	}
}

func printSearch(e *env, resp domain.LiveSearchResponse) {
	if resp.ShowingFavorites {
		e.printf("즐겨찾기 상품\n")
	}
	if len(resp.Products) == 0 {
		e.printf("검색 결과가 없습니다.\n")
		return
	}
	for _, p := range resp.Products {
		line := p.ProductNumber + "  " + p.ProductName
		if p.Colors != "" {
			line += " [" + p.Colors + "]"
		}
		line += "  " + e.format.Won(p.OriginalPrice) + " → " + string(p.SalePrice)
		if p.Discount != "" {
			line += " (" + string(p.Discount) + ")"
		}
		e.printf("%s\n", line)
	}

	pager := search.NewPager(resp.CurrentPage, resp.TotalPages, true)
	if pager.Hidden() {
		return
	}
	parts := make([]string, 0, len(pager.Links))
	for _, link := range pager.Links {
		switch {
		case link.Gap:
			parts = append(parts, "…")
		case link.Current:
			parts = append(parts, "["+strconv.Itoa(link.Number)+"]")
		default:
			parts = append(parts, strconv.Itoa(link.Number))
		}
	}
	e.printf("페이지 %s\n", strings.Join(parts, " "))
}
