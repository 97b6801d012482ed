package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/woozymasta/dzpool/internal/config"
	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/pool"
	"github.com/woozymasta/dzpool/internal/recycle"
	"github.com/woozymasta/dzpool/internal/session"
	"github.com/woozymasta/dzpool/internal/surface"
	"github.com/woozymasta/dzpool/internal/surface/memory"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, capacity int) (*ServerContext, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.Pool.Capacity = capacity
	cfg.Generator.Seed = 1
	cfg.Server.SnapshotWidth = 64
	cfg.Server.SnapshotHeight = 64

	hub := NewHub()
	sess, err := session.Open(context.Background(), memory.NewProvider(memory.Options{}), nil, cfg,
		session.Options{OnClick: hub.Broadcast})
	require.NoError(t, err)

	srv, err := NewServerContext(cfg, sess, hub)
	require.NoError(t, err)

	ts := httptest.NewServer(RequestLogger(srv.Routes()))
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
		_ = sess.Close()
	})

	return srv, ts
}

func get(t *testing.T, url string, header http.Header) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHandleIndex(t *testing.T) {
	srv, ts := newTestServer(t, 3)

	resp := get(t, ts.URL+"/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, srv.IndexHTML, body)

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	cached := get(t, ts.URL+"/", http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, cached.StatusCode)

	missing := get(t, ts.URL+"/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHandleFavicon(t *testing.T) {
	_, ts := newTestServer(t, 1)

	resp := get(t, ts.URL+"/favicon.ico", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
}

func TestHandleSession(t *testing.T) {
	srv, ts := newTestServer(t, 5)

	resp := get(t, ts.URL+"/api/session", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	info := decode[SessionInfo](t, resp)
	assert.Equal(t, srv.Session.ID(), info.ID)
	assert.Equal(t, 5, info.Capacity)
	assert.Equal(t, 5, info.Points)
	assert.Equal(t, 0, info.Cursor)
	assert.Equal(t, 5, info.Last.Placed)
	assert.True(t, info.Last.Fitted)
	assert.Equal(t, 1.0, info.Camera.Zoom)
	assert.Equal(t, srv.Config.Attribution, info.Attribution)
}

func TestHandleMarkers(t *testing.T) {
	_, ts := newTestServer(t, 4)

	resp := get(t, ts.URL+"/api/markers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))

	fc := decode[geo.GeoJSONFeatureCollection](t, resp)
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 4)
	for _, f := range fc.Features {
		assert.Equal(t, "Point", f.Geometry.Type)
		require.Len(t, f.Geometry.Coordinates, 2)
		assert.True(t, geo.Bounds{Base: geo.LatLng{Lat: 50, Lng: 7}, Span: 1}.Contains(
			geo.LatLng{Lat: f.Geometry.Coordinates[1], Lng: f.Geometry.Coordinates[0]}))
	}
}

func TestHandleSlots(t *testing.T) {
	_, ts := newTestServer(t, 3)

	slots := decode[[]pool.Slot](t, get(t, ts.URL+"/api/slots", nil))
	require.Len(t, slots, 3)
	for i, s := range slots {
		assert.Equal(t, i, s.Index)
		assert.True(t, s.Visible)
		assert.NotEmpty(t, s.MarkerID)
	}
}

func TestHandleAgainAndReset(t *testing.T) {
	srv, ts := newTestServer(t, 3)
	before := srv.Session.Points()

	resp := post(t, ts.URL+"/api/again", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[recycle.Result](t, resp)
	assert.Equal(t, 3, res.Placed)
	assert.False(t, res.Fitted)
	assert.NotEqual(t, before, srv.Session.Points())

	reset := post(t, ts.URL+"/api/reset", "")
	assert.Equal(t, http.StatusNoContent, reset.StatusCode)

	fc := decode[geo.GeoJSONFeatureCollection](t, get(t, ts.URL+"/api/markers", nil))
	assert.Empty(t, fc.Features)

	slots := decode[[]pool.Slot](t, get(t, ts.URL+"/api/slots", nil))
	assert.Len(t, slots, 3, "reset keeps the pool")
}

func TestHandleRecycle(t *testing.T) {
	_, ts := newTestServer(t, 3)
	post(t, ts.URL+"/api/reset", "")

	resp := post(t, ts.URL+"/api/recycle",
		`{"points":[{"lat":51,"lng":7.5},{"lat":200,"lng":7},{"lat":50.9,"lng":7.1},{"lat":50,"lng":7}],"fit":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[recycle.Result](t, resp)
	assert.Equal(t, recycle.Result{Placed: 2, Skipped: 1, Truncated: 1, Fitted: true}, res)

	slots := decode[[]pool.Slot](t, get(t, ts.URL+"/api/slots", nil))
	assert.True(t, slots[0].Visible)
	assert.False(t, slots[1].Visible, "invalid point leaves the slot untouched")
	assert.Equal(t, geo.LatLng{Lat: 50.9, Lng: 7.1}, slots[2].Position)

	cam := decode[surface.CameraPosition](t, get(t, ts.URL+"/api/camera", nil))
	assert.Equal(t, 1.0, cam.Zoom)
	assert.Len(t, cam.Targets, 3)
}

func TestHandleRecycle_BadBody(t *testing.T) {
	_, ts := newTestServer(t, 2)

	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/recycle", `{"points":`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/recycle", `{"pts":[]}`).StatusCode)
}

func TestHandleSimulateClick(t *testing.T) {
	srv, ts := newTestServer(t, 2)

	for _, want := range []int{0, 1, 0} {
		resp := post(t, ts.URL+"/api/click", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		res := decode[ClickResult](t, resp)
		assert.Equal(t, want, res.Slot.Index)
		assert.True(t, res.Slot.Active)
		assert.Equal(t, pool.ActiveZIndex, res.Slot.ZIndex)
		assert.Equal(t, srv.Config.Pool.ActiveIcon, res.Slot.Icon)
		assert.Equal(t, (want+1)%2, res.Cursor)
	}
}

func TestHandleMarkerClick(t *testing.T) {
	_, ts := newTestServer(t, 3)

	resp := post(t, ts.URL+"/api/markers/2/click", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[ClickResult](t, resp)
	assert.Equal(t, 2, res.Slot.Index)
	assert.True(t, res.Slot.Active)
	assert.Equal(t, 0, res.Cursor, "user clicks leave the cursor alone")

	assert.Equal(t, http.StatusNotFound, post(t, ts.URL+"/api/markers/3/click", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, post(t, ts.URL+"/api/markers/-1/click", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/markers/x/click", "").StatusCode)
}

func TestHandleSnapshot(t *testing.T) {
	_, ts := newTestServer(t, 3)

	resp := get(t, ts.URL+"/api/snapshot.webp", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/webp", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Greater(t, len(body), 12)
	assert.Equal(t, "RIFF", string(body[:4]))
	assert.Equal(t, "WEBP", string(body[8:12]))

	sized := get(t, ts.URL+"/api/snapshot.webp?w=32&h=48", nil)
	assert.Equal(t, http.StatusOK, sized.StatusCode)

	for _, q := range []string{"w=8", "h=4096", "w=abc"} {
		bad := get(t, ts.URL+"/api/snapshot.webp?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, bad.StatusCode, q)

		msg, err := io.ReadAll(bad.Body)
		require.NoError(t, err)
		assert.Contains(t, string(msg), fmt.Sprintf("between %d and %d", minSnapshotSide, maxSnapshotSide), q)
	}
}

func TestHandleEvents(t *testing.T) {
	srv, ts := newTestServer(t, 3)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return srv.Hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	post(t, ts.URL+"/api/click", "")
	post(t, ts.URL+"/api/markers/2/click", "")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first, second session.ClickEvent
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	points := srv.Session.Points()
	assert.Equal(t, 0, first.Slot)
	assert.True(t, first.Simulated)
	assert.Equal(t, points[0], first.Position)
	assert.Equal(t, 2, second.Slot)
	assert.False(t, second.Simulated)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub()
	hub.Broadcast(session.ClickEvent{Slot: 1})
	assert.Equal(t, 0, hub.Clients())

	hub.Close()
	hub.Broadcast(session.ClickEvent{Slot: 2})
}

func TestRequestLogger_CapturesStatus(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/again", bytes.NewReader(nil)))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestResponseWriterWrapper_HijackUnsupported(t *testing.T) {
	ww := &responseWriterWrapper{ResponseWriter: httptest.NewRecorder()}

	_, _, err := ww.Hijack()
	assert.ErrorIs(t, err, errNoHijack)
}
