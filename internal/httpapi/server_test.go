package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"kmarket/internal/config"
	"kmarket/internal/live"
	"kmarket/internal/market"
	"kmarket/internal/render"
	"kmarket/internal/treemap"
	"kmarket/internal/view"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	srv   *Server
	model *live.Model
	clock *fakeClock
	ts    *httptest.Server
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(cfg)
	}
	r, err := render.New(render.Options{})
	require.NoError(t, err)

	model := live.NewModel(market.Sanitize(market.Sample()))
	srv := New(cfg, model, r, zerolog.Nop())
	clock := &fakeClock{t: time.Date(2026, 2, 9, 16, 26, 1, 0, time.UTC)}
	srv.now = clock.Now

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, model: model, clock: clock, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) createView(t *testing.T, w, h float64) ViewResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/views", CreateViewRequest{Width: w, Height: h})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[ViewResponse](t, resp)
}

func containsRect(outer, inner treemap.Rect) bool {
	const eps = 1e-9
	return inner.X0 >= outer.X0-eps && inner.Y0 >= outer.Y0-eps &&
		inner.X1 <= outer.X1+eps && inner.Y1 <= outer.Y1+eps
}

func stockCenter(t *testing.T, data market.MarketData, id string, w, h float64) (float64, float64) {
	t.Helper()
	l := treemap.Compute(data, w, h, treemap.DefaultOptions())
	st, _, ok := l.Stock(id)
	require.True(t, ok, "stock %s not laid out", id)
	return st.Center()
}

func TestHealthAndMarket(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	h := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "KOSPI/KOSDAQ", h.Market)
	assert.Equal(t, uint64(1), h.Version)
	assert.Equal(t, 17, h.Stocks)
	assert.Zero(t, h.Subscribers)

	resp = e.do(t, http.MethodGet, "/api/market", nil)
	m := decode[MarketResponse](t, resp)
	assert.Len(t, m.Data.Sectors, len(market.Sample().Sectors))
	assert.Len(t, m.Stats.Sectors, len(m.Data.Sectors))
}

func TestLegend(t *testing.T) {
	e := newTestEnv(t)
	l := decode[LegendResponse](t, e.do(t, http.MethodGet, "/api/legend", nil))
	assert.Len(t, l.Buckets, 9)
	require.Len(t, l.Legend, 7)
	assert.Equal(t, "-3%", l.Legend[0].Label)
	assert.Equal(t, "#8b0000", l.Legend[0].Hex)
}

func TestIndexPage(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "K-Market <span>Heatmap</span>")
	assert.Contains(t, string(body), "2026-02-09 16:26:01")
}

func TestLayoutJSONAndMsgpack(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/layout?width=800&height=600", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	l := decode[LayoutResponse](t, resp)
	assert.Equal(t, 800.0, l.Width)
	assert.Equal(t, 600.0, l.Height)
	require.NotEmpty(t, l.Sectors)
	bounds := treemap.Rect{X1: 800, Y1: 600}
	for _, sec := range l.Sectors {
		assert.True(t, containsRect(bounds, sec.Rect), "sector %s outside viewport", sec.ID)
		for _, st := range sec.Stocks {
			assert.True(t, containsRect(sec.Rect, st.Rect), "stock %s outside its sector", st.ID)
			assert.True(t, strings.HasPrefix(st.Color, "#"))
		}
	}

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/layout?width=800&height=600", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/msgpack")
	mresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer mresp.Body.Close()
	assert.Equal(t, "application/msgpack", mresp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	var ml LayoutResponse
	require.NoError(t, msgpack.Unmarshal(raw, &ml))
	assert.Equal(t, l.Sectors[0].ID, ml.Sectors[0].ID)
	assert.Equal(t, l.Sectors[0].Rect, ml.Sectors[0].Rect)
	assert.Equal(t, len(l.Sectors[0].Stocks), len(ml.Sectors[0].Stocks))
}

func TestLayoutBadRequest(t *testing.T) {
	e := newTestEnv(t)
	for _, q := range []string{"", "?width=800", "?width=abc&height=600", "?width=0&height=600", "?width=-1&height=600", "?width=100000&height=600"} {
		resp := e.do(t, http.MethodGet, "/api/layout"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %q", q)
		er := decode[errorResponse](t, resp)
		assert.NotEmpty(t, er.Error)
	}
}

func TestHeatmapPNG(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/heatmap.png?width=400&height=300&dpr=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 600, img.Bounds().Dy())

	resp = e.do(t, http.MethodGet, "/api/heatmap.png?width=400&height=300&dpr=10", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Each side is within range but the scaled raster is too large.
	resp = e.do(t, http.MethodGet, "/api/heatmap.png?width=8192&height=8192&dpr=2", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[errorResponse](t, resp).Error, "device pixels")
}

func TestFrameDevicePixelBudget(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/views", CreateViewRequest{Width: 8192, Height: 8192, DPR: 3})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	v := e.createView(t, 8000, 8000)
	resp = e.do(t, http.MethodGet, "/api/views/"+v.ID+"/frame.png?dpr=2", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[errorResponse](t, resp).Error, "device pixels")
}

func TestViewLifecycle(t *testing.T) {
	e := newTestEnv(t)
	v := e.createView(t, 1000, 600)
	require.NotEmpty(t, v.ID)
	assert.Equal(t, 100, v.State.Zoom)
	assert.Equal(t, "Zoom: 100%", v.Controls.ZoomText)
	assert.Nil(t, v.Popover)
	base := "/api/views/" + v.ID

	// Wheel up zooms in around the pointer.
	resp := e.do(t, http.MethodPost, base+"/events", view.Event{Type: view.EventWheel, X: 500, Y: 300, DeltaY: -500})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v = decode[ViewResponse](t, resp)
	assert.Greater(t, v.State.Zoom, 100)
	assert.Equal(t, view.Zooming, v.State.Mode)

	// Reset animates back to identity.
	resp = e.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[ViewResponse](t, resp).State.Animating)

	e.clock.Advance(time.Second)
	v = decode[ViewResponse](t, e.do(t, http.MethodGet, base, nil))
	assert.False(t, v.State.Animating)
	assert.True(t, v.State.Transform.IsIdentity())

	resp = e.do(t, http.MethodPut, base+"/size", SizeRequest{Width: 500, Height: 600})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 500.0, decode[ViewResponse](t, resp).State.Width)

	resp = e.do(t, http.MethodGet, base+"/frame.png?overlay=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dx())

	resp = e.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = e.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestViewHoverPopover(t *testing.T) {
	e := newTestEnv(t)
	v := e.createView(t, 1000, 600)
	data, _ := e.model.Snapshot()
	x, y := stockCenter(t, data, "samsung", 1000, 600)

	resp := e.do(t, http.MethodPost, "/api/views/"+v.ID+"/events", view.Event{Type: view.EventMove, X: x, Y: y})
	v = decode[ViewResponse](t, resp)
	assert.Equal(t, "samsung", v.State.Hover.StockID)
	require.NotNil(t, v.Popover)
	assert.Equal(t, v.State.Hover.SectorID, v.Popover.SectorID)

	var highlighted int
	for _, row := range v.Popover.Rows {
		if row.Highlighted {
			highlighted++
			assert.Equal(t, "samsung", row.ID)
		}
	}
	assert.Equal(t, 1, highlighted)
}

func TestViewFollowsDatasetReload(t *testing.T) {
	e := newTestEnv(t)
	v := e.createView(t, 1000, 600)
	data, _ := e.model.Snapshot()
	x, y := stockCenter(t, data, "samsung", 1000, 600)
	e.do(t, http.MethodPost, "/api/views/"+v.ID+"/events", view.Event{Type: view.EventMove, X: x, Y: y})

	next := market.Sanitize(market.Sample())
	for i := range next.Sectors {
		for j := range next.Sectors[i].Stocks {
			if next.Sectors[i].Stocks[j].ID == "samsung" {
				next.Sectors[i].Stocks[j].Change = -9.5
			}
		}
	}
	require.True(t, e.model.Replace(next))

	v = decode[ViewResponse](t, e.do(t, http.MethodGet, "/api/views/"+v.ID, nil))
	require.NotNil(t, v.Popover)
	var found bool
	for _, row := range v.Popover.Rows {
		if row.ID == "samsung" {
			found = true
			assert.Equal(t, "-9.5%", row.ChangeText)
		}
	}
	assert.True(t, found)
}

func TestViewErrors(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/views/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, errSessionNotFound.Error(), decode[errorResponse](t, resp).Error)

	resp = e.do(t, http.MethodPost, "/api/views", CreateViewRequest{Width: -5, Height: 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do(t, http.MethodPost, "/api/views", CreateViewRequest{Width: 10, Height: 10, DPR: 99})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	v := e.createView(t, 400, 300)
	resp = e.do(t, http.MethodPost, "/api/views/"+v.ID+"/events", view.Event{Type: "teleport"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do(t, http.MethodPost, "/api/views/"+v.ID+"/events", view.Event{Type: view.EventPinch, Scale: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do(t, http.MethodPost, "/api/views/"+v.ID+"/events", view.Event{Type: view.EventResize, Width: 100000, Height: 100000})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do(t, http.MethodPut, "/api/views/"+v.ID+"/size", SizeRequest{Width: 1e9, Height: 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.do(t, http.MethodGet, "/api/views/"+v.ID+"/frame.png?dpr=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMaxSessions(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.Session.MaxSessions = 1 })
	e.createView(t, 400, 300)
	resp := e.do(t, http.MethodPost, "/api/views", CreateViewRequest{Width: 400, Height: 300})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSessionSweep(t *testing.T) {
	m := newSessionManager(0, time.Minute)
	now := time.Unix(1000, 0)
	ctrl := view.NewController(market.Sample(), treemap.DefaultOptions(), view.DefaultOptions())
	a, err := m.create(ctrl, 1, 1, now)
	require.NoError(t, err)
	b, err := m.create(ctrl, 1, 1, now)
	require.NoError(t, err)

	_, err = m.get(b.id, now.Add(50*time.Second))
	require.NoError(t, err)

	expired := m.sweep(now.Add(90 * time.Second))
	assert.Equal(t, []string{a.id}, expired)
	assert.Equal(t, 1, m.len())

	_, err = m.get(a.id, now)
	assert.ErrorIs(t, err, errSessionNotFound)
}

func TestRunPushesDatasetToSessions(t *testing.T) {
	e := newTestEnv(t)
	v := e.createView(t, 400, 300)
	sess, err := e.srv.sessions.get(v.ID, e.clock.Now())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.srv.Run(ctx) }()

	// Wait for the subscription before publishing.
	require.Eventually(t, func() bool { return e.model.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	health := decode[HealthResponse](t, e.do(t, http.MethodGet, "/api/health", nil))
	assert.Equal(t, 1, health.Subscribers)
	assert.Equal(t, 1, health.Sessions)
	require.True(t, e.model.Replace(market.MarketData{Name: "empty"}))

	require.Eventually(t, func() bool {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return sess.dataVersion == 2 && sess.ctrl.Layout().Empty()
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestWebsocket(t *testing.T) {
	e := newTestEnv(t)
	v := e.createView(t, 1000, 600)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/views/" + v.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var first ViewResponse
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, v.ID, first.ID)

	data, _ := e.model.Snapshot()
	x, y := stockCenter(t, data, "kakao", 1000, 600)
	require.NoError(t, wsjson.Write(ctx, conn, view.Event{Type: view.EventMove, X: x, Y: y}))

	var next ViewResponse
	require.NoError(t, wsjson.Read(ctx, conn, &next))
	assert.Equal(t, "kakao", next.State.Hover.StockID)
	assert.NotNil(t, next.Popover)

	require.NoError(t, wsjson.Write(ctx, conn, view.Event{Type: "bogus"}))
	var bad wsError
	require.NoError(t, wsjson.Read(ctx, conn, &bad))
	assert.Contains(t, bad.Error, "bogus")

	require.NoError(t, wsjson.Write(ctx, conn, view.Event{Type: view.EventResize, Width: 100000, Height: 100000}))
	require.NoError(t, wsjson.Read(ctx, conn, &bad))
	assert.Contains(t, bad.Error, "out of range")
	assert.Equal(t, view.EventResize, bad.Event.Type)

	resp := e.do(t, http.MethodGet, "/api/views/"+v.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[ViewResponse](t, resp).State
	assert.Equal(t, 1000.0, st.Width, "oversized resize must not reach the view")
	assert.Equal(t, 600.0, st.Height)

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestWebsocketUnknownView(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/api/views/nope/ws", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
