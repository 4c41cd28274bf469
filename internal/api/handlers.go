package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"omnis/kiosk/internal/auth"
	"omnis/kiosk/internal/config"
	"omnis/kiosk/internal/coordinator"
	"omnis/kiosk/internal/events"
	"omnis/kiosk/internal/health"
)

type StatusSource interface {
	Status() coordinator.Status
}

type VoiceControl interface {
	Start() error
	Stop() error
	IsRunning() bool
}

type FaceLister interface {
	Names() []string
}

type HealthFunc func(ctx context.Context) health.HealthStatus

type Deps struct {
	Status StatusSource
	Voice  VoiceControl
	Faces  FaceLister
	Hub    *events.Hub
	Health HealthFunc
}

type Handlers struct {
	cfg  config.Config
	d    Deps
	feed *events.FeedServer
}

func NewHandlers(cfg config.Config, d Deps) *Handlers {
	return &Handlers{
		cfg:  cfg,
		d:    d,
		feed: events.NewFeedServer(d.Hub, cfg.Monitor.TokenSecret, cfg.Monitor.TokenSkewSecs),
	}
}

// authorized enforces the monitor token when a secret is configured.
func (h *Handlers) authorized(w http.ResponseWriter, r *http.Request) bool {
	if h.cfg.Monitor.TokenSecret == "" {
		return true
	}
	token := auth.FromRequest(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return false
	}
	if _, _, err := auth.ValidateMonitorToken(h.cfg.Monitor.TokenSecret, token, "", time.Now(), h.cfg.Monitor.TokenSkewSecs); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.d.Health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	st := h.d.Health(r.Context())
	code := http.StatusOK
	if !st.OK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, st)
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.d.Status == nil {
		http.Error(w, "perception not running", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, h.d.Status.Status())
}

func (h *Handlers) HandleListFaces(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if h.d.Faces != nil {
		names = append(names, h.d.Faces.Names()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(names), "names": names})
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": h.d.Hub.List()})
}

func (h *Handlers) HandleEventFeed(w http.ResponseWriter, r *http.Request) {
	h.feed.HandleWS(w, r)
}

func (h *Handlers) HandleStartVoice(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	if h.d.Voice.IsRunning() {
		h.d.Hub.Publish("voice_start_requested", map[string]any{"noop": true})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": true})
		return
	}
	h.d.Hub.Publish("voice_start_requested", nil)
	if err := h.d.Voice.Start(); err != nil && err != coordinator.ErrVoiceRunning {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.d.Hub.Publish("voice_started", nil)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": true})
}

func (h *Handlers) HandleStopVoice(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	if !h.d.Voice.IsRunning() {
		h.d.Hub.Publish("voice_stop_requested", map[string]any{"noop": true})
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": false})
		return
	}
	h.d.Hub.Publish("voice_stop_requested", nil)
	if err := h.d.Voice.Stop(); err != nil && err != coordinator.ErrVoiceNotRunning {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.d.Hub.Publish("voice_stopped", nil)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": false})
}
