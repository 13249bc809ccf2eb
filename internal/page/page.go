// Package page holds one controller per terminal page. A controller owns the
// state of its page, changes it only through Dispatch and renders it through
// the pure functions of package view.
package page

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"flowork/terminal/internal/cache"
	"flowork/terminal/internal/floworkapi"
	"flowork/terminal/internal/format"
	"flowork/terminal/internal/logger"
	"flowork/terminal/internal/metrics"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/search"
	"flowork/terminal/internal/taskpoll"
	"flowork/terminal/internal/view"
)

type Kind string

const (
	KindCheck         Kind = "check"
	KindDetail        Kind = "detail"
	KindSearch        Kind = "search"
	KindOrder         Kind = "order"
	KindOrderList     Kind = "order_list"
	KindSales         Kind = "sales"
	KindSetting       Kind = "setting"
	KindStock         Kind = "stock"
	KindStockTransfer Kind = "stock_transfer"
	KindStoreOrder    Kind = "store_order"
	KindSchedule      Kind = "schedule"
)

var Kinds = []Kind{
	KindCheck, KindDetail, KindSearch, KindOrder, KindOrderList, KindSales,
	KindSetting, KindStock, KindStockTransfer, KindStoreOrder, KindSchedule,
}

var (
	ErrUnknownPage   = errors.New("unknown page")
	ErrUnknownAction = errors.New("unknown action")
	ErrMissingConfig = errors.New("missing page config")
	ErrBadPayload    = errors.New("invalid action payload")
)

// Deps are shared by every controller and must not be mutated after the
// first controller is built.
type Deps struct {
	Client  *floworkapi.Client
	Format  *format.Formatter
	Confirm notify.Confirmer
	Cache   cache.Cache
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time

	Poller      taskpoll.Poller
	AfterFunc   search.AfterFunc
	HeldCartTTL time.Duration
	SettingsTTL time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Format == nil {
		d.Format = format.Korean()
	}
	if d.Confirm == nil {
		d.Confirm = notify.Always(false)
	}
	if d.Cache == nil {
		d.Cache = cache.NoopCache{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.AfterFunc == nil {
		d.AfterFunc = search.RealAfterFunc
	}
	if d.Poller.Logger == nil {
		d.Poller.Logger = d.Logger
	}
	if d.Poller.Metrics == nil {
		d.Poller.Metrics = d.Metrics
	}
	return d
}

type Controller interface {
	Kind() Kind
	// Dispatch applies one action. Upstream and validation failures become
	// notices; the returned error is reserved for unknown actions and
	// payloads that cannot be decoded.
	Dispatch(ctx context.Context, action string, payload json.RawMessage) error
	View() view.Node
	// Close stops any background work the page started.
	Close()
}

func New(kind Kind, cfg map[string]string, deps Deps, notes notify.Notifier) (Controller, error) {
	if deps.Client == nil {
		return nil, errors.New("page: upstream client is required")
	}
	deps = deps.withDefaults()
	if notes == nil {
		notes = notify.NewQueue(deps.Clock)
	}
	switch kind {
	case KindSales:
		return newSales(cfg, deps, notes)
	case KindCheck:
		return newCheck(cfg, deps, notes)
	case KindSearch:
		return newSearch(cfg, deps, notes)
	case KindDetail:
		return newDetail(cfg, deps, notes)
	case KindOrder:
		return newOrder(cfg, deps, notes)
	case KindOrderList:
		return newOrderList(cfg, deps, notes)
	case KindSetting:
		return newSetting(cfg, deps, notes)
	case KindStock:
		return newStock(cfg, deps, notes)
	case KindStockTransfer:
		return newTransfer(cfg, deps, notes)
	case KindStoreOrder:
		return newStoreOrder(cfg, deps, notes)
	case KindSchedule:
		return newSchedule(cfg, deps, notes)
	}
	return nil, errors.Wrapf(ErrUnknownPage, "%q", kind)
}

type handler func(ctx context.Context, payload json.RawMessage) error

// base carries what every controller shares: the action table, the lock
// guarding page state and the outcome bookkeeping of the current action.
type base struct {
	kind    Kind
	deps    Deps
	notes   notify.Notifier
	actions map[string]handler

	mu       sync.Mutex
	action   string
	rejected bool

	life     context.Context
	shutdown context.CancelFunc
}

func (b *base) init(kind Kind, deps Deps, notes notify.Notifier) {
	b.kind, b.deps, b.notes = kind, deps, notes
	b.life, b.shutdown = context.WithCancel(context.Background())
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Close() { b.shutdown() }

func (b *base) Dispatch(ctx context.Context, action string, payload json.RawMessage) error {
	h, ok := b.actions[action]
	if !ok {
		b.deps.Metrics.ObserveAction(string(b.kind), "unknown", metrics.OutcomeError)
		return errors.Wrapf(ErrUnknownAction, "%s/%s", b.kind, action)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ctx = b.deps.Logger.WithFields(ctx, map[string]any{"page": string(b.kind), "action": action})
	b.action = action
	b.rejected = false

	err := h(ctx, payload)
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		b.deps.Logger.Warn(ctx, "action failed: "+err.Error())
	case b.rejected:
		outcome = metrics.OutcomeRejected
	}
	b.deps.Metrics.ObserveAction(string(b.kind), action, outcome)
	return err
}

// fail reports err to the operator as an alert and marks the action rejected.
func (b *base) fail(ctx context.Context, err error) {
	b.rejected = true
	msg := userText(err)
	if floworkapi.IsTransport(err) {
		b.deps.Logger.Error(ctx, "upstream request failed", err)
	} else {
		b.deps.Logger.Info(ctx, "action rejected: "+msg)
	}
	b.notes.Alert(msg)
}

// reject reports a local precondition failure.
func (b *base) reject(text string) {
	b.rejected = true
	b.notes.Alert(text)
}

// confirm asks question through the request's confirmer. A refusal queues a
// confirm notice so the caller can resend the action with confirmation.
func (b *base) confirm(ctx context.Context, question string) bool {
	c := confirmerFrom(ctx, b.deps.Confirm)
	if c.Confirm(ctx, question) {
		return true
	}
	b.rejected = true
	b.notes.AskConfirm(b.action, question)
	return false
}

func (b *base) now() time.Time { return b.deps.Clock() }

// detach keeps the values of ctx, such as log fields, but ties its lifetime
// to the controller instead of the request.
func (b *base) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(b.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func decode(payload json.RawMessage, dst any) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return errors.Wrap(ErrBadPayload, err.Error())
	}
	return nil
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindConfig decodes the page's string settings into dst and validates it.
// Missing required settings are reported together under ErrMissingConfig.
func bindConfig(raw map[string]string, dst any) error {
	clean := make(map[string]string, len(raw))
	for k, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			clean[k] = v
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.Wrap(err, "decode page config")
	}
	err = configValidator.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}
	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fe.Field())
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Wrap(ErrMissingConfig, strings.Join(missing, ", "))
	}
	sort.Strings(invalid)
	return errors.Errorf("invalid page config: %s", strings.Join(invalid, ", "))
}
