// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/dzpool/internal/geo"
	"github.com/woozymasta/dzpool/internal/pool"
	"github.com/woozymasta/dzpool/internal/recycle"
	"github.com/woozymasta/dzpool/internal/render"
	"github.com/woozymasta/dzpool/internal/session"
	"github.com/woozymasta/dzpool/internal/surface"

	"github.com/rs/zerolog/log"
)

const (
	minSnapshotSide = 16
	maxSnapshotSide = 2048
	maxRecycleBody  = 1 << 20
)

// SessionInfo is the body of GET /api/session.
type SessionInfo struct {
	Opened      time.Time              `json:"opened"`
	ID          string                 `json:"id"`
	Attribution string                 `json:"attribution,omitempty"`
	Camera      surface.CameraPosition `json:"camera"`
	Last        recycle.Result         `json:"lastRecycle"`
	Capacity    int                    `json:"capacity"`
	Points      int                    `json:"points"`
	Cursor      int                    `json:"cursor"`
	Subscribers int                    `json:"subscribers"`
}

// ClickResult is the body of a successful click request.
type ClickResult struct {
	Slot   pool.Slot `json:"slot"`
	Cursor int       `json:"cursor"`
}

// RecycleRequest is the body of POST /api/recycle.
type RecycleRequest struct {
	Points []geo.LatLng `json:"points"`
	Fit    bool         `json:"fit"`
}

// Routes registers every handler on a new mux.
func (s *ServerContext) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/session", s.HandleSession)
	mux.HandleFunc("GET /api/markers", s.HandleMarkers)
	mux.HandleFunc("GET /api/slots", s.HandleSlots)
	mux.HandleFunc("GET /api/camera", s.HandleCamera)
	mux.HandleFunc("GET /api/snapshot.webp", s.HandleSnapshot)
	mux.HandleFunc("GET /api/events", s.Hub.HandleEvents)
	mux.HandleFunc("POST /api/again", s.HandleAgain)
	mux.HandleFunc("POST /api/reset", s.HandleReset)
	mux.HandleFunc("POST /api/recycle", s.HandleRecycle)
	mux.HandleFunc("POST /api/click", s.HandleSimulateClick)
	mux.HandleFunc("POST /api/markers/{index}/click", s.HandleMarkerClick)
	mux.HandleFunc("GET /favicon.ico", s.HandleFavicon)
	mux.HandleFunc("GET /", s.HandleIndex)

	return mux
}

// HandleFavicon serves the site favicon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleIndex serves the viewer page.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && strings.Contains(r.URL.Path, ".") {
		http.NotFound(w, r)
		return
	}

	if match := r.Header.Get("If-None-Match"); match == s.indexETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", s.indexETag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleSession serves the session summary.
func (s *ServerContext) HandleSession(w http.ResponseWriter, r *http.Request) {
	info := SessionInfo{
		Attribution: s.Config.Attribution,
		Subscribers: s.Hub.Clients(),
	}

	s.withSession(func(sess *session.Session) {
		info.ID = sess.ID()
		info.Opened = sess.Opened()
		info.Capacity = sess.Capacity()
		info.Points = len(sess.Points())
		info.Cursor = sess.Cursor()
		info.Camera = sess.Camera()
		info.Last = sess.LastRecycle()
	})

	writeJSON(w, http.StatusOK, info)
}

// HandleMarkers serves the visible slots as a GeoJSON FeatureCollection.
func (s *ServerContext) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	var fc geo.GeoJSONFeatureCollection
	s.withSession(func(sess *session.Session) {
		fc = sess.FeatureCollection()
	})

	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "no-store")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(fc)
}

// HandleSlots serves the full state of every slot, hidden ones included.
func (s *ServerContext) HandleSlots(w http.ResponseWriter, r *http.Request) {
	var slots []pool.Slot
	s.withSession(func(sess *session.Session) {
		slots = sess.Slots()
	})

	writeJSON(w, http.StatusOK, slots)
}

// HandleCamera serves the current camera of the map surface.
func (s *ServerContext) HandleCamera(w http.ResponseWriter, r *http.Request) {
	var cam surface.CameraPosition
	s.withSession(func(sess *session.Session) {
		cam = sess.Camera()
	})

	writeJSON(w, http.StatusOK, cam)
}

// HandleAgain hides every marker and recycles a fresh point list.
func (s *ServerContext) HandleAgain(w http.ResponseWriter, r *http.Request) {
	var res recycle.Result
	s.withSession(func(sess *session.Session) {
		res = sess.Again()
	})

	log.Info().
		Int("placed", res.Placed).
		Int("skipped", res.Skipped).
		Msg("Fresh point list placed")

	writeJSON(w, http.StatusOK, res)
}

// HandleReset hides every marker.
func (s *ServerContext) HandleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(sess *session.Session) {
		sess.Reset()
	})

	w.WriteHeader(http.StatusNoContent)
}

// HandleRecycle places a caller supplied point list.
func (s *ServerContext) HandleRecycle(w http.ResponseWriter, r *http.Request) {
	var req RecycleRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecycleBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid recycle request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Points == nil {
		req.Points = []geo.LatLng{}
	}

	var res recycle.Result
	s.withSession(func(sess *session.Session) {
		res = sess.Recycle(req.Points, req.Fit)
	})

	writeJSON(w, http.StatusOK, res)
}

// HandleSimulateClick clicks the slot under the cursor.
func (s *ServerContext) HandleSimulateClick(w http.ResponseWriter, r *http.Request) {
	var (
		res ClickResult
		ok  bool
	)

	s.withSession(func(sess *session.Session) {
		var i int
		if i, ok = sess.SimulateClick(); ok {
			res.Slot = sess.Slots()[i]
			res.Cursor = sess.Cursor()
		}
	})

	if !ok {
		http.Error(w, "marker pool is empty", http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleMarkerClick performs a user click on the slot named in the path.
func (s *ServerContext) HandleMarkerClick(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid slot index", http.StatusBadRequest)
		return
	}

	var res ClickResult
	s.withSession(func(sess *session.Session) {
		if err = sess.Click(i); err == nil {
			res.Slot = sess.Slots()[i]
			res.Cursor = sess.Cursor()
		}
	})

	switch {
	case errors.Is(err, session.ErrSlotRange):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// HandleSnapshot renders the visible markers as a webp image. The w and h
// query parameters override the configured size.
func (s *ServerContext) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	opts := render.Options{
		Width:  s.Config.Server.SnapshotWidth,
		Height: s.Config.Server.SnapshotHeight,
	}

	var err error
	if opts.Width, err = sideParam(r, "w", opts.Width); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if opts.Height, err = sideParam(r, "h", opts.Height); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var slots []pool.Slot
	s.withSession(func(sess *session.Session) {
		slots = sess.Slots()
	})

	var buf bytes.Buffer
	if err := render.EncodeWebP(&buf, render.Render(slots, opts), s.Config.Server.SnapshotQuality); err != nil {
		log.Error().Err(err).Msg("Failed to encode snapshot")
		http.Error(w, "snapshot encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

var errSnapshotSide = fmt.Errorf("snapshot side must be between %d and %d", minSnapshotSide, maxSnapshotSide)

func sideParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < minSnapshotSide || v > maxSnapshotSide {
		return 0, errSnapshotSide
	}

	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}
