package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/modoterra/logtap/pkg/core"
	"github.com/modoterra/logtap/pkg/transport/sse"
	"github.com/modoterra/logtap/pkg/transport/ws"
)

func (d *Daemon) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(d.recoverer)

	r.Get("/healthz", d.handleHealth)
	r.Get("/api/sources", d.handleSources)
	r.Get("/api/logs/{type}", d.handleStream)
	r.Get("/api/logs/{type}/{id}", d.handleStream)
	r.Get("/api/ws/logs/{type}", d.handleWebSocket)
	r.Get("/api/ws/logs/{type}/{id}", d.handleWebSocket)
	return r
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": d.sessions.Len(),
	})
}

func (d *Daemon) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := d.sources.ListSources(r.Context())
	if err != nil {
		d.logger.Error("list sources", "err", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, sse.ErrorPayload{Error: "Failed to get sources"})
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

// handleStream serves /api/logs/{type}/{id} as Server-Sent Events.
func (d *Daemon) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := d.provider(chi.URLParam(r, "type"), id)
	if err != nil {
		d.reject(w, r, err)
		return
	}

	sink, err := sse.New(w)
	if err != nil {
		d.logger.Error("open event stream", "err", err)
		return
	}
	d.runSession(r.Context(), d.newSession(p, id, sink))
}

// handleWebSocket serves the same stream over a WebSocket.
func (d *Daemon) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := d.provider(chi.URLParam(r, "type"), id)
	if err != nil {
		d.reject(w, r, err)
		return
	}

	conn, err := ws.Upgrade(w, r)
	if err != nil {
		d.logger.Warn("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		select {
		case <-conn.Closed():
			cancel()
		case <-ctx.Done():
		}
	}()
	d.runSession(ctx, d.newSession(p, id, conn))
}

func (d *Daemon) runSession(ctx context.Context, s *Session) {
	if err := s.Run(ctx); !isExpectedEnd(err) {
		d.logger.Warn("stream ended", "session", s.ID, "source", s.Key(), "err", err)
	}
}

// reject writes a rejected stream request: 403 for the allow-list, 400
// otherwise. Nothing has been spawned at this point.
func (d *Daemon) reject(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, core.ErrForbidden) {
		status = http.StatusForbidden
	}
	msg := "Invalid request"
	var re *core.RequestError
	if errors.As(err, &re) {
		msg = re.Msg
	}
	d.logger.Info("stream rejected", "path", r.URL.Path, "status", status, "reason", msg)
	writeJSON(w, status, sse.ErrorPayload{Error: msg})
}

// recoverer turns a handler panic into a 500 so one bad request never takes
// the server down.
func (d *Daemon) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			d.logger.Error("unhandled error", "panic", rec, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
			writeJSON(w, http.StatusInternalServerError, sse.ErrorPayload{Error: "Internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
