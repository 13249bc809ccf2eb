package page

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/keypad"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/search"
	"flowork/terminal/internal/view"
)

type searchConfig struct {
	LiveSearchURL string `json:"live_search_url" validate:"required"`
	Categories    string `json:"categories"`
	Columns       Int    `json:"columns"`
	PerPage       Int    `json:"per_page"`
	InputMode     string `json:"input_mode" validate:"omitempty,oneof=num kor eng"`
}

type searchPage struct {
	base
	cfg        searchConfig
	categories domain.CategoryConfig

	pad      *keypad.Keypad
	debounce *search.Debouncer
	seq      search.Sequencer

	category string
	page     int

	loading    bool
	failed     bool
	products   []domain.LiveProduct
	favorites  bool
	totalPages int
}

func newSearch(raw map[string]string, deps Deps, notes notify.Notifier) (*searchPage, error) {
	var cfg searchConfig
	if err := bindConfig(raw, &cfg); err != nil {
		return nil, err
	}
	p := &searchPage{
		cfg:      cfg,
		pad:      keypad.New(keypad.Mode(cfg.InputMode)),
		debounce: search.NewDebouncer(search.DefaultDelay, deps.AfterFunc),
		category: view.AllCategories,
		page:     1,
	}
	if cfg.Categories != "" {
		if err := json.Unmarshal([]byte(cfg.Categories), &p.categories); err != nil {
			return nil, errors.Wrap(err, "invalid page config: categories")
		}
	}
	if cfg.Columns > 0 {
		p.categories.Columns = int(cfg.Columns)
	}
	p.init(KindSearch, deps, notes)
	p.actions = map[string]handler{
		"load":         p.load,
		"key":          p.key,
		"backspace":    p.backspace,
		"space":        p.space,
		"shift":        p.shift,
		"set_mode":     p.setMode,
		"clear":        p.clear,
		"input":        p.input,
		"submit":       p.submit,
		"set_category": p.setCategory,
		"page":         p.setPage,
	}
	return p, nil
}

func (p *searchPage) Close() {
	p.debounce.Cancel()
	p.seq.Cancel()
	p.base.Close()
}

func (p *searchPage) View() view.Node {
	p.mu.Lock()
	defer p.mu.Unlock()
	return view.Search(view.SearchState{
		Query:            p.pad.Text(),
		Mode:             p.pad.Mode(),
		Shift:            p.pad.Shift(),
		Keys:             p.pad.Rows(),
		Category:         p.category,
		Categories:       p.categories.Buttons,
		Columns:          p.categories.Columns,
		Loading:          p.loading,
		Failed:           p.failed,
		Products:         p.products,
		ShowingFavorites: p.favorites,
		Pager:            search.NewPager(p.page, p.totalPages, false),
	})
}

func (p *searchPage) request() domain.LiveSearchRequest {
	return domain.LiveSearchRequest{
		Query:    p.pad.Text(),
		Category: p.category,
		Page:     p.page,
		PerPage:  search.NormalizePerPage(int(p.cfg.PerPage)),
	}
}

// schedule queues a debounced search for the current query. The request is
// captured now; the response is applied later under the page lock.
func (p *searchPage) schedule(ctx context.Context) {
	p.page = 1
	p.loading = true
	req := p.request()
	p.debounce.Trigger(func() {
		bg, cancel := p.detach(ctx)
		defer cancel()
		seq, sctx := p.seq.Next(bg)
		resp, err := p.deps.Client.LiveSearch(sctx, p.cfg.LiveSearchURL, req)

		p.mu.Lock()
		defer p.mu.Unlock()
		p.apply(bg, seq, resp, err)
	})
}

// searchNow runs the search inside the current action, dropping any pending
// debounced one.
func (p *searchPage) searchNow(ctx context.Context) {
	p.debounce.Cancel()
	p.loading = true
	seq, sctx := p.seq.Next(ctx)
	resp, err := p.deps.Client.LiveSearch(sctx, p.cfg.LiveSearchURL, p.request())
	p.apply(ctx, seq, resp, err)
}

func (p *searchPage) apply(ctx context.Context, seq uint64, resp domain.LiveSearchResponse, err error) {
	if !p.seq.IsCurrent(seq) {
		p.deps.Metrics.IncStaleSearch()
		p.deps.Logger.Debug(ctx, "dropped stale search response")
		return
	}
	defer p.seq.Finish(seq)
	p.loading = false
	if err != nil {
		if errors.Is(err, context.Canceled) && p.life.Err() != nil {
			return
		}
		p.failed = true
		p.products = nil
		p.totalPages = 0
		p.deps.Logger.Warn(ctx, "live search failed: "+err.Error())
		return
	}
	p.failed = false
	p.products = resp.Products
	p.favorites = resp.ShowingFavorites
	p.totalPages = resp.TotalPages
	if resp.CurrentPage > 0 {
		p.page = resp.CurrentPage
	}
}

func (p *searchPage) load(ctx context.Context, _ json.RawMessage) error {
	p.searchNow(ctx)
	return nil
}

func (p *searchPage) key(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Key string `json:"key"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if p.pad.Press(in.Key) {
		p.schedule(ctx)
	}
	return nil
}

func (p *searchPage) backspace(ctx context.Context, _ json.RawMessage) error {
	if p.pad.Backspace() {
		p.schedule(ctx)
	}
	return nil
}

func (p *searchPage) space(ctx context.Context, _ json.RawMessage) error {
	if p.pad.Press(keypad.KeySpace) {
		p.schedule(ctx)
	}
	return nil
}

func (p *searchPage) shift(context.Context, json.RawMessage) error {
	p.pad.ToggleShift()
	return nil
}

func (p *searchPage) setMode(_ context.Context, payload json.RawMessage) error {
	var in struct {
		Mode string `json:"mode"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	mode, ok := keypad.ParseMode(in.Mode)
	if !ok {
		return errors.Wrapf(ErrBadPayload, "mode %q", in.Mode)
	}
	p.pad.SetMode(mode)
	return nil
}

func (p *searchPage) clear(ctx context.Context, _ json.RawMessage) error {
	p.pad.Clear()
	p.page = 1
	p.searchNow(ctx)
	return nil
}

func (p *searchPage) input(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Text string `json:"query"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Text == p.pad.Text() {
		return nil
	}
	p.pad.SetText(in.Text)
	p.schedule(ctx)
	return nil
}

func (p *searchPage) submit(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Text *string `json:"query"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Text != nil {
		p.pad.SetText(*in.Text)
	}
	p.page = 1
	p.searchNow(ctx)
	return nil
}

func (p *searchPage) setCategory(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Category string `json:"category"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Category == "" {
		in.Category = view.AllCategories
	}
	p.category = in.Category
	p.page = 1
	p.searchNow(ctx)
	return nil
}

func (p *searchPage) setPage(ctx context.Context, payload json.RawMessage) error {
	var in struct {
		Page Int `json:"page"`
	}
	if err := decode(payload, &in); err != nil {
		return err
	}
	if in.Page < 1 || (p.totalPages > 0 && int(in.Page) > p.totalPages) {
		p.rejected = true
		return nil
	}
	p.page = int(in.Page)
	p.searchNow(ctx)
	return nil
}
