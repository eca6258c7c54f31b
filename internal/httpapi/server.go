package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"kmarket/internal/config"
	"kmarket/internal/dashboard"
	"kmarket/internal/live"
	"kmarket/internal/palette"
	"kmarket/internal/render"
	"kmarket/internal/shell"
	"kmarket/internal/treemap"
	"kmarket/internal/util"
	"kmarket/internal/view"
)

// maxViewport bounds any requested width or height, in layout pixels.
const maxViewport = 8192

// maxDevicePixels bounds a rendered frame after device pixel scaling.
const maxDevicePixels = 8192 * 8192

const contentTypeMsgpack = "application/msgpack"

// Server serves the heatmap API.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	cfg      *config.Config
	model    *live.Model
	renderer *render.Renderer
	sessions *sessionManager
	log      zerolog.Logger
	now      func() time.Time
	started  time.Time
}

// New creates a server for the dataset held by model.
func New(cfg *config.Config, model *live.Model, renderer *render.Renderer, log zerolog.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		model:    model,
		renderer: renderer,
		sessions: newSessionManager(cfg.Session.MaxSessions, cfg.Session.IdleTimeout),
		log:      util.Component(log, "httpapi"),
		now:      time.Now,
	}
	s.started = s.now()

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the router with every route and middleware installed.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	// The websocket outlives any request timeout.
	s.router.Get("/api/views/{id}/ws", s.handleWS)

	s.router.Group(func(r chi.Router) {
		if s.cfg.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
		}

		r.Get("/", s.handleIndex)

		r.Route("/api", func(r chi.Router) {
			r.Get("/health", s.handleHealth)
			r.Get("/market", s.handleMarket)
			r.Get("/legend", s.handleLegend)
			r.Get("/layout", s.handleLayout)
			r.Get("/heatmap.png", s.handleHeatmapPNG)

			r.Route("/views", func(r chi.Router) {
				r.Post("/", s.handleCreateView)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetView)
					r.Delete("/", s.handleDeleteView)
					r.Post("/events", s.handleEvents)
					r.Post("/reset", s.handleReset)
					r.Put("/size", s.handleSize)
					r.Get("/frame.png", s.handleFrame)
				})
			})
		})
	})
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Run keeps sessions in step with the dataset and expires idle sessions
// until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	subID, updates := s.model.Subscribe(16)
	defer s.model.Unsubscribe(subID)

	interval := s.cfg.Session.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	sweep := time.NewTicker(interval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			for _, sess := range s.sessions.all() {
				sess.mu.Lock()
				s.syncData(sess)
				sess.mu.Unlock()
			}
			s.log.Info().Uint64("version", upd.Version).Msg("dataset pushed to views")
		case <-sweep.C:
			if expired := s.sessions.sweep(s.now()); len(expired) > 0 {
				s.log.Info().Int("count", len(expired)).Msg("expired idle views")
			}
		}
	}
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// ---------------------------------------------------------------------------
// Stateless handlers
// ---------------------------------------------------------------------------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, _ := s.model.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := shell.Render(w, shell.NewPage(data.Name, s.started)); err != nil {
		s.log.Error().Err(err).Msg("rendering page")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data, version := s.model.Snapshot()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Market:      data.Name,
		Version:     version,
		Stocks:      data.StockCount(),
		Sessions:    s.sessions.len(),
		Subscribers: s.model.Subscribers(),
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	data, version := s.model.Snapshot()
	writeJSON(w, http.StatusOK, MarketResponse{
		Version: version,
		Data:    data,
		Stats:   dashboard.ComputeMarketStats(data),
	})
}

func (s *Server) handleLegend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LegendResponse{
		Buckets: palette.Buckets(),
		Legend:  palette.Legend(),
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	width, height, err := parseSize(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, version := s.model.Snapshot()
	resp := newLayoutResponse(treemap.Compute(data, width, height, s.cfg.LayoutOptions()), version)

	if strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		b, err := msgpack.Marshal(resp)
		if err != nil {
			s.log.Error().Err(err).Msg("encoding msgpack layout")
			writeError(w, http.StatusInternalServerError, "encoding layout")
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.Write(b)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHeatmapPNG(w http.ResponseWriter, r *http.Request) {
	width, height, err := parseSize(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dpr, err := s.parseDPR(r, s.cfg.Render.DPR)
	if err == nil {
		err = checkRaster(width, height, dpr)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, _ := s.model.Snapshot()
	img := s.renderer.RenderImage(render.Frame{
		Layout:    treemap.Compute(data, width, height, s.cfg.LayoutOptions()),
		Transform: view.Identity(),
		DPR:       dpr,
	})
	s.writePNG(w, img)
}

// ---------------------------------------------------------------------------
// View sessions
// ---------------------------------------------------------------------------

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var req CreateViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := checkSize(req.Width, req.Height, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dpr := req.DPR
	if dpr == 0 {
		dpr = s.cfg.Render.DPR
	}
	if err := s.checkDPR(dpr); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := checkRaster(req.Width, req.Height, dpr); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, version := s.model.Snapshot()
	ctrl := view.NewController(data, s.cfg.LayoutOptions(), s.cfg.ViewOptions())
	ctrl.Resize(req.Width, req.Height)

	sess, err := s.sessions.create(ctrl, dpr, version, s.now())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.log.Info().Str("view", sess.id).Float64("width", req.Width).Float64("height", req.Height).Msg("view opened")

	sess.mu.Lock()
	resp := s.viewResponse(sess)
	sess.mu.Unlock()
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) error { return nil })
}

func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.remove(id) {
		writeError(w, http.StatusNotFound, errSessionNotFound.Error())
		return
	}
	s.log.Info().Str("view", id).Msg("view closed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var ev view.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := checkEvent(ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.withSession(w, r, func(sess *session) error {
		return sess.ctrl.Apply(ev, s.now())
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) error {
		sess.ctrl.Reset(s.now())
		return nil
	})
}

func (s *Server) handleSize(w http.ResponseWriter, r *http.Request) {
	var req SizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := checkSize(req.Width, req.Height, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.withSession(w, r, func(sess *session) error {
		sess.ctrl.Resize(req.Width, req.Height)
		return nil
	})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(chi.URLParam(r, "id"), s.now())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	sess.mu.Lock()
	dpr, err := s.parseDPR(r, sess.dpr)
	if err != nil {
		sess.mu.Unlock()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.syncData(sess)
	sess.ctrl.Tick(s.now())
	frame := render.Frame{
		Layout:    sess.ctrl.Layout(),
		Transform: sess.ctrl.Transform(),
		Hover:     sess.ctrl.Hover(),
		DPR:       dpr,
	}
	width, height := sess.ctrl.Size()
	if err := checkRaster(width, height, dpr); err != nil {
		sess.mu.Unlock()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	popover, hasPopover := dashboard.BuildPopover(sess.ctrl.Data(), frame.Hover, width, height)
	sess.mu.Unlock()

	// Layouts are immutable once computed, so painting happens outside the
	// session lock.
	img := s.renderer.RenderImage(frame)
	if overlay, _ := strconv.ParseBool(r.URL.Query().Get("overlay")); overlay {
		dc := gg.NewContextForRGBA(img)
		s.renderer.DrawControls(dc, width, height, frame.Transform.K, dpr, false)
		if hasPopover {
			s.renderer.DrawPopover(dc, popover, dpr)
		}
	}
	s.writePNG(w, img)
}

// withSession runs fn on the session named in the URL while holding its
// lock, advances any animation and writes the resulting view. An error from
// fn is reported as a bad request.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session) error) {
	sess, err := s.sessions.get(chi.URLParam(r, "id"), s.now())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	sess.mu.Lock()
	s.syncData(sess)
	if err := fn(sess); err != nil {
		sess.mu.Unlock()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess.ctrl.Tick(s.now())
	resp := s.viewResponse(sess)
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// syncData installs the model's dataset if the session is behind. The
// caller holds sess.mu.
func (s *Server) syncData(sess *session) {
	data, version := s.model.Snapshot()
	if version == sess.dataVersion {
		return
	}
	sess.ctrl.SetData(data)
	sess.dataVersion = version
}

// viewResponse describes sess. The caller holds sess.mu.
func (s *Server) viewResponse(sess *session) ViewResponse {
	st := sess.ctrl.State()
	resp := ViewResponse{
		ID:       sess.id,
		State:    st,
		Frame:    fmt.Sprintf("/api/views/%s/frame.png?v=%d", sess.id, st.Version),
		Controls: s.renderer.ControlsLayout(st.Width, st.Height, st.Transform.K),
	}
	if p, ok := dashboard.BuildPopover(sess.ctrl.Data(), st.Hover, st.Width, st.Height); ok {
		resp.Popover = &p
	}
	return resp
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) writePNG(w http.ResponseWriter, img *image.RGBA) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := render.EncodePNG(w, img); err != nil {
		s.log.Error().Err(err).Msg("encoding PNG")
	}
}

func (s *Server) checkDPR(dpr float64) error {
	if !(dpr > 0) || dpr > s.cfg.Render.MaxDPR {
		return fmt.Errorf("dpr must be in (0, %v]", s.cfg.Render.MaxDPR)
	}
	return nil
}

// parseDPR reads the optional dpr query parameter.
func (s *Server) parseDPR(r *http.Request, fallback float64) (float64, error) {
	v := r.URL.Query().Get("dpr")
	if v == "" {
		return fallback, nil
	}
	dpr, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid dpr %q", v)
	}
	return dpr, s.checkDPR(dpr)
}

// parseSize reads the required width and height query parameters.
func parseSize(r *http.Request) (float64, float64, error) {
	q := r.URL.Query()
	width, err := strconv.ParseFloat(q.Get("width"), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width %q", q.Get("width"))
	}
	height, err := strconv.ParseFloat(q.Get("height"), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height %q", q.Get("height"))
	}
	return width, height, checkSize(width, height, false)
}

// checkSize validates a viewport. Sessions may start with a zero size.
func checkSize(width, height float64, allowZero bool) error {
	valid := func(v float64) bool {
		if math.IsNaN(v) || v < 0 || v > maxViewport {
			return false
		}
		return allowZero || v > 0
	}
	if !valid(width) || !valid(height) {
		return fmt.Errorf("size %vx%v out of range", width, height)
	}
	return nil
}

// checkRaster rejects frames whose device pixel count exceeds
// maxDevicePixels.
func checkRaster(width, height, dpr float64) error {
	w, h := render.DeviceSize(width, height, dpr)
	if w*h > maxDevicePixels {
		return fmt.Errorf("frame %vx%v at dpr %v exceeds %d device pixels", width, height, dpr, maxDevicePixels)
	}
	return nil
}

// checkEvent validates client-supplied event fields before they reach a
// view. It guards both the REST and websocket event paths.
func checkEvent(ev view.Event) error {
	if ev.Type == view.EventResize {
		return checkSize(ev.Width, ev.Height, true)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("encoding JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
