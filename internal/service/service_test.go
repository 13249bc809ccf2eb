package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowork/terminal/internal/domain"
	"flowork/terminal/internal/floworkapi"
	"flowork/terminal/internal/notify"
	"flowork/terminal/internal/page"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *fakeClock) {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success","message":"저장 완료"}`))
		}
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := floworkapi.New(srv.URL, floworkapi.Options{})
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)}
	svc := New(page.Deps{Client: client}, Options{IdleTTL: 10 * time.Minute, Clock: clock.Now})
	t.Cleanup(func() { svc.CloseAll(context.Background()) })
	return svc, clock
}

var checkConfig = map[string]string{"fetch_url": "/api/fetch_variant", "submit_url": "/api/bulk_update_actual_stock"}

func staff(name string) context.Context {
	return WithActor(context.Background(), domain.Actor{Username: name, Role: domain.RoleStaff})
}

func TestOpenReturnsInitialView(t *testing.T) {
	svc, _ := newTestService(t, nil)

	snap, err := svc.Open(staff("kim"), page.KindCheck, "T1", checkConfig)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.SessionID)
	assert.Contains(t, snap.SessionID, "ses-")
	assert.Equal(t, page.KindCheck, snap.Page)
	assert.NotEmpty(t, snap.View.Tag)
	assert.Empty(t, snap.Notices)

	infos := svc.List(staff("kim"))
	require.Len(t, infos, 1)
	assert.Equal(t, "T1", infos[0].TerminalID)
	assert.Equal(t, "kim", infos[0].Owner)
	assert.Empty(t, svc.List(staff("lee")))
}

func TestOpenChecksRoleAndConfig(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Open(staff("kim"), page.KindSetting, "", nil)
	require.ErrorIs(t, err, ErrPageForbidden)

	_, err = svc.Open(staff("kim"), page.KindCheck, "", map[string]string{"fetch_url": "/f"})
	require.ErrorIs(t, err, page.ErrMissingConfig)

	_, err = svc.Open(staff("kim"), page.Kind("nope"), "", nil)
	require.ErrorIs(t, err, page.ErrUnknownPage)
}

func TestCanOpen(t *testing.T) {
	assert.True(t, CanOpen(domain.RoleAdmin, page.KindSetting))
	assert.False(t, CanOpen(domain.RoleStaff, page.KindSetting))
	assert.True(t, CanOpen(domain.RoleStaff, page.KindSales))
	assert.False(t, CanOpen("guest", page.KindSales))
}

func TestDispatchDrainsNotices(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staff("kim")
	snap, err := svc.Open(ctx, page.KindCheck, "", checkConfig)
	require.NoError(t, err)

	out, err := svc.Dispatch(ctx, snap.SessionID, "submit", nil, false)
	require.NoError(t, err)
	require.Len(t, out.Notices, 1)
	assert.Equal(t, notify.Alert, out.Notices[0].Kind)

	again, err := svc.Get(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Empty(t, again.Notices, "notices are delivered once")

	_, err = svc.Dispatch(ctx, snap.SessionID, "launch", nil, false)
	require.ErrorIs(t, err, page.ErrUnknownAction)
}

func TestDispatchConfirmFlag(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success", "barcode": "A1", "product_name": "티셔츠", "color": "WH", "size": "M", "store_stock": 1,
			"message": "1건 반영",
		})
	})
	ctx := staff("kim")
	snap, err := svc.Open(ctx, page.KindCheck, "", checkConfig)
	require.NoError(t, err)
	id := snap.SessionID

	_, err = svc.Dispatch(ctx, id, "toggle_scanning", nil, false)
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, id, "scan", json.RawMessage(`{"barcode":"A1"}`), false)
	require.NoError(t, err)

	out, err := svc.Dispatch(ctx, id, "submit", nil, false)
	require.NoError(t, err)
	require.Len(t, out.Notices, 1)
	assert.Equal(t, notify.Confirm, out.Notices[0].Kind)
	assert.Equal(t, "submit", out.Notices[0].Action)

	out, err = svc.Dispatch(ctx, id, "submit", nil, true)
	require.NoError(t, err)
	require.NotEmpty(t, out.Notices)
	assert.Equal(t, "1건 반영", out.Notices[len(out.Notices)-1].Text)
}

func TestSessionsArePrivateToTheirOwner(t *testing.T) {
	svc, _ := newTestService(t, nil)
	snap, err := svc.Open(staff("kim"), page.KindCheck, "", checkConfig)
	require.NoError(t, err)

	_, err = svc.Get(staff("lee"), snap.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	admin := WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
	_, err = svc.Get(admin, snap.SessionID)
	require.NoError(t, err)
}

func TestIdleSessionsExpire(t *testing.T) {
	svc, clock := newTestService(t, nil)
	ctx := staff("kim")
	first, err := svc.Open(ctx, page.KindCheck, "", checkConfig)
	require.NoError(t, err)
	second, err := svc.Open(ctx, page.KindCheck, "", checkConfig)
	require.NoError(t, err)

	clock.now = clock.now.Add(8 * time.Minute)
	_, err = svc.Dispatch(ctx, second.SessionID, "reset", nil, true)
	require.NoError(t, err)

	clock.now = clock.now.Add(5 * time.Minute)
	_, err = svc.Get(ctx, first.SessionID)
	require.ErrorIs(t, err, ErrSessionExpired)
	_, err = svc.Get(ctx, first.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 0, svc.Sweep(ctx, clock.now))
	assert.Equal(t, 1, svc.Sweep(ctx, clock.now.Add(6*time.Minute)))
	assert.Empty(t, svc.List(ctx))
}

func TestClose(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := staff("kim")
	snap, err := svc.Open(ctx, page.KindSearch, "", map[string]string{"live_search_url": "/api/live"})
	require.NoError(t, err)

	require.NoError(t, svc.Close(ctx, snap.SessionID))
	require.ErrorIs(t, svc.Close(ctx, snap.SessionID), ErrSessionNotFound)
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunSweeper(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
