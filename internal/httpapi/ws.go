package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"kmarket/internal/view"
)

const wsWriteTimeout = 5 * time.Second

// wsError is sent instead of a view when an event is rejected.
type wsError struct {
	Error string     `json:"error"`
	Event view.Event `json:"event"`
}

// handleWS upgrades to a websocket carrying view events from the client and
// view updates back. An update is pushed after every event and whenever the
// view changes on its own (animation, wheel gesture end, dataset reload).
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(chi.URLParam(r, "id"), s.now())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.wsOrigins(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("view", sess.id).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := s.log.With().Str("view", sess.id).Logger()
	log.Debug().Msg("websocket connected")

	events := make(chan view.Event)
	readErr := make(chan error, 1)
	go func() {
		for {
			var ev view.Event
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				readErr <- err
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	var sent uint64
	push := func(force bool) error {
		sess.mu.Lock()
		s.syncData(sess)
		sess.ctrl.Tick(s.now())
		version := sess.ctrl.Version()
		if !force && version == sent {
			sess.mu.Unlock()
			return nil
		}
		resp := s.viewResponse(sess)
		sess.mu.Unlock()

		sent = version
		return s.wsWrite(ctx, conn, resp)
	}

	if err := push(true); err != nil {
		return
	}

	interval := s.cfg.Session.TickInterval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			sess.touch(s.now())
			err := checkEvent(ev)
			if err == nil {
				sess.mu.Lock()
				err = sess.ctrl.Apply(ev, s.now())
				sess.mu.Unlock()
			}
			if err != nil {
				if err := s.wsWrite(ctx, conn, wsError{Error: err.Error(), Event: ev}); err != nil {
					return
				}
				continue
			}
			if err := push(false); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if _, err := s.sessions.get(sess.id, s.now()); errors.Is(err, errSessionNotFound) {
				conn.Close(websocket.StatusGoingAway, "view closed")
				return
			}
			if err := push(false); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case err := <-readErr:
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Debug().Msg("websocket closed")
			default:
				log.Debug().Err(err).Msg("websocket read ended")
			}
			return

		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) wsWrite(ctx context.Context, conn *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}

// wsOrigins maps the CORS allow-list onto websocket origin patterns. "*"
// accepts any origin.
func (s *Server) wsOrigins() []string {
	var out []string
	for _, o := range s.cfg.Server.AllowedOrigins {
		if o == "*" {
			return []string{"*"}
		}
		out = append(out, hostOf(o))
	}
	return out
}

func hostOf(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}
